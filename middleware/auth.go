package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/quillpost/models"
	"github.com/cppla/quillpost/services"
	"github.com/cppla/quillpost/utils"
)

// ContextUserKey is the gin context key holding the authenticated *models.User.
const ContextUserKey = "user"

// Envelope codes answered by the guards. They do not overlap the codes the
// controllers map service errors to.
const (
	CodeHeaderMissing = 40111
	CodeHeaderFormat  = 40112
	CodeEmptyBearer   = 40113
	CodeTokenMissing  = 40114
	CodeTokenInvalid  = 40115
	CodeUserGone      = 40116
	CodeAuthFailure   = 50001
)

// Authenticator resolves a session token to an existing user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// AuthRequired authenticates the request with an "Authorization: Bearer" session token.
func AuthRequired(auth Authenticator, log *zap.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			utils.Abort(ctx, http.StatusUnauthorized, CodeHeaderMissing, "authorization header missing")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			utils.Abort(ctx, http.StatusUnauthorized, CodeHeaderFormat, "invalid authorization header format")
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			utils.Abort(ctx, http.StatusUnauthorized, CodeEmptyBearer, "empty bearer token")
			return
		}
		authenticate(ctx, auth, log, tokenString)
	}
}

// TokenParam authenticates with a session token carried in the named path
// segment, as in /user/singleUser/:id.
func TokenParam(auth Authenticator, log *zap.Logger, param string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString := strings.TrimSpace(ctx.Param(param))
		if tokenString == "" {
			utils.Abort(ctx, http.StatusUnauthorized, CodeTokenMissing, "missing token")
			return
		}
		authenticate(ctx, auth, log, tokenString)
	}
}

func authenticate(ctx *gin.Context, auth Authenticator, log *zap.Logger, token string) {
	user, err := auth.Authenticate(ctx.Request.Context(), token)
	switch {
	case err == nil:
		ctx.Set(ContextUserKey, user)
		ctx.Next()
	case errors.Is(err, services.ErrInvalidToken):
		utils.Abort(ctx, http.StatusUnauthorized, CodeTokenInvalid, "invalid or expired token")
	case errors.Is(err, services.ErrUserNotFound):
		utils.Abort(ctx, http.StatusUnauthorized, CodeUserGone, "No user found")
	default:
		log.Error("authenticating request", zap.String("path", ctx.FullPath()), zap.Error(err))
		utils.Abort(ctx, http.StatusInternalServerError, CodeAuthFailure, "internal server error")
	}
}

// CurrentUser returns the user stored by AuthRequired or TokenParam.
func CurrentUser(ctx *gin.Context) (*models.User, bool) {
	v, ok := ctx.Get(ContextUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}
