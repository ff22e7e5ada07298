package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"accounts-api/internal/config"
	"accounts-api/internal/db"
	"accounts-api/internal/email"
	apihttp "accounts-api/internal/http"
	"accounts-api/internal/repository"
	"accounts-api/internal/service"
	"accounts-api/internal/sso"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.EmailEndpointURL != "" {
		sender, err := email.NewHTTPSender(cfg.EmailEndpointURL, cfg.EmailEndpointKey)
		if err != nil {
			logger.Warn("http email sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	} else if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.EmailFromName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}
	mailer := email.NewMailer(emailSender, cfg.ProjectName, cfg.FrontendURL, cfg.SupportEmail, cfg.ResetTokenTTLHours)

	var recoveryLimiter service.RecoveryRateLimiter
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			recoveryLimiter = service.NewRedisRecoveryRateLimiter(redisClient, 10*time.Minute, 3)
		}
		cancel()
	}

	tokenSvc := service.NewTokenService(
		cfg.JWTSecret,
		time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute,
		time.Duration(cfg.ResetTokenTTLHours)*time.Hour,
	)

	userRepo := repository.NewPgUserRepository(pool)
	userSvc := service.NewUserService(logger, userRepo, tokenSvc, mailer, recoveryLimiter)

	ssoSvc := sso.NewService(logger, userSvc, tokenSvc, cfg.FrontendURL)
	registerSSOProviders(ctx, logger, cfg, ssoSvc)

	loginHandler := apihttp.NewLoginHandler(logger, userSvc, tokenSvc)
	userHandler := apihttp.NewUserHandler(logger, userSvc)
	ssoHandler := apihttp.NewSSOHandler(logger, ssoSvc)
	authRequired := apihttp.JWTAuthMiddleware(tokenSvc, userSvc)

	corsOrigins := append([]string{cfg.FrontendURL}, cfg.CORSOrigins...)
	router := apihttp.NewRouter(logger, loginHandler, userHandler, ssoHandler, authRequired, corsOrigins, func(ctx context.Context) error {
		return db.Ping(ctx, pool)
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}

// registerSSOProviders registra solo los providers con credenciales configuradas.
func registerSSOProviders(ctx context.Context, logger *zap.Logger, cfg *config.Config, ssoSvc *sso.Service) {
	callbackURL := func(provider string) string {
		return cfg.ServerURL + "/sso/" + provider + "/callback"
	}

	if cfg.GoogleClientID != "" {
		provider, err := sso.NewGoogle(ctx, cfg.GoogleClientID, cfg.GoogleClientSecret, callbackURL("google"))
		if err != nil {
			logger.Warn("google sso init failed", zap.Error(err))
		} else {
			ssoSvc.Register(provider)
		}
	}
	if cfg.MicrosoftClientID != "" {
		provider, err := sso.NewMicrosoft(ctx, cfg.MicrosoftClientID, cfg.MicrosoftClientSecret, cfg.MicrosoftTenantID, callbackURL("microsoft"))
		if err != nil {
			logger.Warn("microsoft sso init failed", zap.Error(err))
		} else {
			ssoSvc.Register(provider)
		}
	}
	if cfg.LinkedInClientID != "" {
		ssoSvc.Register(sso.NewLinkedIn(cfg.LinkedInClientID, cfg.LinkedInClientSecret, callbackURL("linkedin")))
	}
	if cfg.OktaBaseURL != "" && cfg.OktaClientID != "" {
		ssoSvc.Register(sso.NewOkta(cfg.OktaBaseURL, cfg.OktaClientID, cfg.OktaClientSecret, callbackURL("okta")))
	}
}
