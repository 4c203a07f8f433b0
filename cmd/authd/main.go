package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/tendant/simple-auth/pkg/account"
	"github.com/tendant/simple-auth/pkg/admin"
	"github.com/tendant/simple-auth/pkg/api"
	"github.com/tendant/simple-auth/pkg/config"
	"github.com/tendant/simple-auth/pkg/emailconfirm"
	"github.com/tendant/simple-auth/pkg/notification"
	"github.com/tendant/simple-auth/pkg/password"
	"github.com/tendant/simple-auth/pkg/secrettoken"
	"github.com/tendant/simple-auth/pkg/session"
	"github.com/tendant/simple-auth/pkg/social"
	"github.com/tendant/simple-auth/pkg/tokenengine"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment")
	}

	var cfg config.Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("Failed to read config", "err", err)
		os.Exit(1)
	}

	signer, err := newSigner(cfg.JWT)
	if err != nil {
		slog.Error("Failed to create signer", "err", err)
		os.Exit(1)
	}

	engine := tokenengine.NewEngine(signer, cfg.JWT.Issuer, cfg.JWT.Audience,
		tokenengine.WithAccessTokenExpiry(cfg.JWT.AccessExpiry),
		tokenengine.WithRefreshTokenExpiry(cfg.JWT.RefreshExpiry),
	)

	accountRepo, tokenRepo, err := newRepositories(cfg)
	if err != nil {
		slog.Error("Failed to connect to database", "err", err)
		os.Exit(1)
	}

	notifier, err := newNotifier(cfg)
	if err != nil {
		slog.Error("Failed to create notifier", "err", err)
		os.Exit(1)
	}
	notifications, err := notification.NewDefaultManager(notifier)
	if err != nil {
		slog.Error("Failed to register notice templates", "err", err)
		os.Exit(1)
	}

	tokens := secrettoken.NewStore(tokenRepo)

	sessions := session.NewService(accountRepo, engine)
	passwords := password.NewService(accountRepo, tokens, notifications,
		password.WithResetURL(cfg.BaseURL+"/auth/password"))
	confirmations := emailconfirm.NewService(accountRepo, tokens, notifications,
		emailconfirm.WithConfirmURL(cfg.BaseURL+"/auth/confirm"))
	socials := social.NewService(accountRepo, engine, newProviders(cfg)...)
	admins := admin.NewService(accountRepo)

	handle := api.NewHandle(sessions, passwords, confirmations, socials, admins,
		api.NewTokenCookieService(!cfg.DevMode))

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(30 * time.Second))
	handle.Routes(router)

	slog.Info("Starting authd", "addr", cfg.Server.Addr(), "dev_mode", cfg.DevMode)
	if err := http.ListenAndServe(cfg.Server.Addr(), router); err != nil {
		slog.Error("Server stopped", "err", err)
		os.Exit(1)
	}
}

func newSigner(cfg config.JWTConfig) (tokenengine.Signer, error) {
	if cfg.Alg == "RS256" {
		key, err := tokenengine.LoadRSAPrivateKeyFromPEM(cfg.PrivateKeyFile)
		if err != nil {
			return nil, err
		}
		return tokenengine.NewRSASigner(key, cfg.KeyID), nil
	}
	return tokenengine.NewHMACSigner(cfg.Secret), nil
}

func newRepositories(cfg config.Config) (account.Repository, secrettoken.Repository, error) {
	if cfg.DevMode {
		slog.Warn("Dev mode: using in-memory repositories")
		return account.NewInMemoryRepository(), secrettoken.NewInMemoryRepository(), nil
	}

	pool, err := pgxpool.New(context.Background(), cfg.Database.ToDatabaseURL())
	if err != nil {
		return nil, nil, err
	}
	return account.NewPostgresRepository(pool), secrettoken.NewPostgresRepository(pool), nil
}

func newNotifier(cfg config.Config) (notification.Notifier, error) {
	if cfg.DevMode {
		slog.Warn("Dev mode: email delivery disabled, notices are recorded only")
		return &notification.MockNotifier{}, nil
	}
	return notification.NewEmailNotifier(notification.SMTPConfig{
		Host:     cfg.Email.Host,
		Port:     cfg.Email.Port,
		TLS:      cfg.Email.TLS,
		Username: cfg.Email.Username,
		Password: cfg.Email.Password,
		From:     cfg.Email.From,
	})
}

func newProviders(cfg config.Config) []social.Provider {
	var providers []social.Provider
	redirect := func(name string) string {
		return cfg.BaseURL + "/auth/" + name + "/callback"
	}

	if cfg.Social.GoogleClientID != "" {
		providers = append(providers, social.NewGoogleProvider(social.Config{
			ClientID:     cfg.Social.GoogleClientID,
			ClientSecret: cfg.Social.GoogleClientSecret,
			RedirectURL:  redirect("google"),
		}))
	}
	if cfg.Social.FacebookClientID != "" {
		providers = append(providers, social.NewFacebookProvider(social.Config{
			ClientID:     cfg.Social.FacebookClientID,
			ClientSecret: cfg.Social.FacebookClientSecret,
			RedirectURL:  redirect("facebook"),
		}))
	}
	if cfg.Social.VKClientID != "" {
		providers = append(providers, social.NewVKProvider(social.Config{
			ClientID:     cfg.Social.VKClientID,
			ClientSecret: cfg.Social.VKClientSecret,
			RedirectURL:  redirect("vk"),
		}))
	}

	slog.Info("Social providers configured", "count", len(providers))
	return providers
}
