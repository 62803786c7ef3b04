package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/quillpost/services"
	"github.com/cppla/quillpost/utils"
)

// AuthController serves the email and password endpoints under /auth.
type AuthController struct {
	auth *services.AuthService
	log  *zap.Logger
}

// NewAuthController creates an AuthController.
func NewAuthController(auth *services.AuthService, log *zap.Logger) *AuthController {
	return &AuthController{auth: auth, log: log}
}

// Register handles POST /auth/register.
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		FullName string `json:"fullName" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badPayload(ctx)
		return
	}

	res, err := a.auth.Register(ctx.Request.Context(), services.RegisterInput{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(ctx, a.log, err)
		return
	}
	if res.Merged {
		utils.Message(ctx, "Oauth User added Sucessfully!", res)
		return
	}
	utils.Created(ctx, "User added Sucessfully!", res)
}

// Login handles POST /auth/login.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badPayload(ctx)
		return
	}

	res, err := a.auth.Login(ctx.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			utils.Error(ctx, http.StatusUnauthorized, codeUnknownUser, "User doesn't exist!")
			return
		}
		respondError(ctx, a.log, err)
		return
	}
	utils.Success(ctx, gin.H{"token": res.Token, "user": res.User})
}

// VerifyEmail handles GET /auth/emailVerify/:code.
func (a *AuthController) VerifyEmail(ctx *gin.Context) {
	if err := a.auth.VerifyEmail(ctx.Request.Context(), strings.TrimSpace(ctx.Param("code"))); err != nil {
		respondError(ctx, a.log, err)
		return
	}
	utils.Message(ctx, "User verified successfully.", nil)
}

// ResendEmail handles POST /auth/resendEmail.
func (a *AuthController) ResendEmail(ctx *gin.Context) {
	email, ok := bindEmail(ctx)
	if !ok {
		return
	}
	if err := a.auth.ResendVerification(ctx.Request.Context(), email); err != nil {
		respondError(ctx, a.log, err)
		return
	}
	utils.Message(ctx, "Email send", nil)
}

// ForgotPassword handles POST /auth/forgotPassword.
func (a *AuthController) ForgotPassword(ctx *gin.Context) {
	email, ok := bindEmail(ctx)
	if !ok {
		return
	}
	if err := a.auth.ForgotPassword(ctx.Request.Context(), email); err != nil {
		respondError(ctx, a.log, err)
		return
	}
	utils.Message(ctx, "Reset password link send successfully.", nil)
}

// ResetPassword handles POST /auth/resetPassword/:userId, where the path
// segment carries the reset token.
func (a *AuthController) ResetPassword(ctx *gin.Context) {
	var req struct {
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badPayload(ctx)
		return
	}
	if err := a.auth.ResetPassword(ctx.Request.Context(), strings.TrimSpace(ctx.Param("userId")), req.Password); err != nil {
		respondError(ctx, a.log, err)
		return
	}
	utils.Message(ctx, "Password reset successfully.", nil)
}

func bindEmail(ctx *gin.Context) (string, bool) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badPayload(ctx)
		return "", false
	}
	return req.Email, true
}
