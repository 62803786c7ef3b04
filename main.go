package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"google.golang.org/api/idtoken"

	"github.com/cppla/quillpost/config"
	"github.com/cppla/quillpost/models"
	"github.com/cppla/quillpost/repository"
	"github.com/cppla/quillpost/routes"
	"github.com/cppla/quillpost/services"
	"github.com/cppla/quillpost/utils"
)

func main() {
	configPath := flag.String("config", "", "path to config.json (defaults to $CONFIG_FILE or config/config.json)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := utils.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(cfg config.AppConfig, log *zap.Logger) error {
	ctx := context.Background()

	db, err := config.OpenDatabase(cfg, log, models.All()...)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	tokens, err := utils.NewTokenService(cfg.JWTSecret)
	if err != nil {
		return err
	}
	hasher := utils.NewPasswordHasher(cfg.BcryptCost)
	mailer := utils.NewSMTPMailer(cfg, log)

	rc := utils.NewRedis(ctx, cfg, log)
	if rc != nil {
		defer rc.Close()
	}
	states := utils.NewStateStore(rc)

	var validator services.IDTokenValidator
	if cfg.GoogleClientID != "" {
		v, err := idtoken.NewValidator(ctx)
		if err != nil {
			log.Warn("google sign-in disabled", zap.Error(err))
		} else {
			validator = v
		}
	}

	users := repository.NewUserStore(db)
	posts := repository.NewPostStore(db)
	resets := repository.NewResetRequestStore(db)

	r := routes.SetupRouter(routes.Dependencies{
		Config: cfg,
		Log:    log,
		Auth:   services.NewAuthService(cfg, users, resets, mailer, tokens, hasher, log),
		OAuth:  services.NewOAuthService(cfg, users, tokens, states, validator, log),
		Posts:  services.NewPostService(posts, users, tokens, log),
		Users:  services.NewUserService(users, tokens, log),
		Ping:   sqlDB.PingContext,
	})

	log.Info("starting server", zap.String("port", cfg.AppPort), zap.String("db", cfg.DBDriver))
	return utils.NewServer(":"+cfg.AppPort, r, log).ListenAndServe()
}
