package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/quillpost/middleware"
	"github.com/cppla/quillpost/services"
	"github.com/cppla/quillpost/utils"
)

// UserController serves /user.
type UserController struct {
	users *services.UserService
	log   *zap.Logger
}

// NewUserController creates a UserController.
func NewUserController(users *services.UserService, log *zap.Logger) *UserController {
	return &UserController{users: users, log: log}
}

// ListUsers handles GET /user/allUser.
func (u *UserController) ListUsers(ctx *gin.Context) {
	users, err := u.users.List(ctx.Request.Context())
	if err != nil {
		respondError(ctx, u.log, err)
		return
	}
	if len(users) == 0 {
		utils.Message(ctx, "There are no users", gin.H{"users": users})
		return
	}
	utils.Success(ctx, gin.H{"users": users})
}

// SingleUser handles GET /user/singleUser/:id behind middleware.TokenParam.
func (u *UserController) SingleUser(ctx *gin.Context) {
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, codeNoSession, "unauthorized")
		return
	}
	utils.Message(ctx, "User Fetched Sucessfully", gin.H{"user": user})
}

// DeleteUser handles DELETE /user/deleteUser/:id behind middleware.TokenParam.
func (u *UserController) DeleteUser(ctx *gin.Context) {
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, codeNoSession, "unauthorized")
		return
	}
	if err := u.users.Delete(ctx.Request.Context(), user.ID); err != nil {
		respondError(ctx, u.log, err)
		return
	}
	utils.Message(ctx, fmt.Sprintf("User deleted with id:%d", user.ID), nil)
}
