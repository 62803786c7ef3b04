package routes

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/quillpost/config"
	"github.com/cppla/quillpost/controllers"
	"github.com/cppla/quillpost/middleware"
	"github.com/cppla/quillpost/services"
	"github.com/cppla/quillpost/utils"
)

// Dependencies is everything the router hands to controllers and middleware.
type Dependencies struct {
	Config config.AppConfig
	Log    *zap.Logger
	Auth   *services.AuthService
	OAuth  *services.OAuthService
	Posts  *services.PostService
	Users  *services.UserService
	// Ping reports datastore health for /health; nil skips the check.
	Ping func(ctx context.Context) error
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(d Dependencies) *gin.Engine {
	switch strings.ToLower(d.Config.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	accessLog := d.Log.Named("http")
	r.Use(ginzap.Ginzap(accessLog, time.RFC3339, true))
	r.Use(ginzap.RecoveryWithZap(accessLog, true))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(d.Config.AllowedOrigins) == 0 || (len(d.Config.AllowedOrigins) == 1 && d.Config.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		// browsers reject credentials with a wildcard origin
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = d.Config.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		if d.Ping != nil {
			if err := d.Ping(ctx.Request.Context()); err != nil {
				d.Log.Warn("health check failed", zap.Error(err))
				utils.Error(ctx, http.StatusServiceUnavailable, 50301, "database unavailable")
				return
			}
		}
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(d.Auth, d.Log)
	oauthController := controllers.NewOAuthController(d.OAuth, d.Log)
	postController := controllers.NewPostController(d.Posts, d.Log)
	userController := controllers.NewUserController(d.Users, d.Log)

	bearer := middleware.AuthRequired(d.Users, d.Log)
	tokenInPath := middleware.TokenParam(d.Users, d.Log, "id")

	authGroup := r.Group("/auth")
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.GET("/emailVerify/:code", authController.VerifyEmail)
	authGroup.POST("/resendEmail", authController.ResendEmail)
	authGroup.POST("/forgotPassword", authController.ForgotPassword)
	authGroup.POST("/resetPassword/:userId", authController.ResetPassword)
	authGroup.POST("/github/exchange", oauthController.GitHubExchange)
	authGroup.GET("/github/user", oauthController.GitHubUser)
	authGroup.GET("/oauth/github/login", oauthController.GitHubRedirect)
	authGroup.GET("/oauth/github/callback", oauthController.GitHubCallback)
	authGroup.POST("/google", oauthController.Google)

	postGroup := r.Group("/post")
	postGroup.GET("/getAllPost", postController.ListPosts)
	postGroup.GET("/getUserPost/:id", postController.ListUserPosts)
	postGroup.POST("/create/:id", postController.CreatePost)
	postGroup.PUT("/updatePost/:id", bearer, postController.UpdatePost)
	postGroup.DELETE("/deletePost/:id", bearer, postController.DeletePost)
	postGroup.GET("/:id", postController.GetPost)

	userGroup := r.Group("/user")
	userGroup.GET("/allUser", userController.ListUsers)
	userGroup.GET("/singleUser/:id", tokenInPath, userController.SingleUser)
	userGroup.DELETE("/deleteUser/:id", tokenInPath, userController.DeleteUser)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
