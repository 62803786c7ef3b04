package controllers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/quillpost/services"
	"github.com/cppla/quillpost/utils"
)

// OAuthController serves GitHub and Google sign-in.
type OAuthController struct {
	oauth *services.OAuthService
	log   *zap.Logger
}

// NewOAuthController creates an OAuthController.
func NewOAuthController(oauth *services.OAuthService, log *zap.Logger) *OAuthController {
	return &OAuthController{oauth: oauth, log: log}
}

// GitHubExchange handles POST /auth/github/exchange. The code may come in
// the JSON body or the query string.
func (o *OAuthController) GitHubExchange(ctx *gin.Context) {
	var req struct {
		Code string `json:"code"`
	}
	_ = ctx.ShouldBindJSON(&req)
	if req.Code == "" {
		req.Code = ctx.Query("code")
	}

	tok, err := o.oauth.GitHubExchange(ctx.Request.Context(), req.Code)
	if err != nil {
		respondError(ctx, o.log, err)
		return
	}
	utils.Success(ctx, tok)
}

// GitHubUser handles GET /auth/github/user with the GitHub access token as bearer.
func (o *OAuthController) GitHubUser(ctx *gin.Context) {
	header := ctx.GetHeader("Authorization")
	token := strings.TrimSpace(header)
	if parts := strings.SplitN(header, " ", 2); len(parts) == 2 && (strings.EqualFold(parts[0], "Bearer") || strings.EqualFold(parts[0], "token")) {
		token = strings.TrimSpace(parts[1])
	}

	res, err := o.oauth.GitHubLogin(ctx.Request.Context(), token)
	if err != nil {
		respondError(ctx, o.log, err)
		return
	}
	utils.Message(ctx, "User signed in", res)
}

// GitHubRedirect handles GET /auth/oauth/github/login.
func (o *OAuthController) GitHubRedirect(ctx *gin.Context) {
	url, err := o.oauth.GitHubAuthorizeURL(ctx.Request.Context())
	if err != nil {
		respondError(ctx, o.log, err)
		return
	}
	utils.Success(ctx, gin.H{"authorization_url": url})
}

// GitHubCallback handles GET /auth/oauth/github/callback.
func (o *OAuthController) GitHubCallback(ctx *gin.Context) {
	code, state := ctx.Query("code"), ctx.Query("state")
	if code == "" || state == "" {
		badPayload(ctx)
		return
	}
	res, err := o.oauth.GitHubCallback(ctx.Request.Context(), state, code)
	if err != nil {
		respondError(ctx, o.log, err)
		return
	}
	utils.Message(ctx, "User signed in", res)
}

// Google handles POST /auth/google with {"token": "<id token>"}.
func (o *OAuthController) Google(ctx *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badPayload(ctx)
		return
	}
	res, err := o.oauth.GoogleLogin(ctx.Request.Context(), req.Token)
	if err != nil {
		respondError(ctx, o.log, err)
		return
	}
	utils.Message(ctx, "User signed in", res)
}
