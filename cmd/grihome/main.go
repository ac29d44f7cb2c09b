// Package main runs the Grihome marketplace API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	app "github.com/grihome/grihome/internal/app"
	"github.com/grihome/grihome/internal/app/httpapi"
	"github.com/grihome/grihome/internal/app/metrics"
	"github.com/grihome/grihome/internal/app/services/ads"
	authsvc "github.com/grihome/grihome/internal/app/services/auth"
	"github.com/grihome/grihome/internal/app/storage/postgres"
	"github.com/grihome/grihome/internal/config"
	"github.com/grihome/grihome/internal/database"
	"github.com/grihome/grihome/internal/geocode"
	"github.com/grihome/grihome/internal/logging"
	"github.com/grihome/grihome/internal/middleware"
	"github.com/grihome/grihome/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		FilePrefix: cfg.Logging.FilePrefix,
	}).WithField("component", "grihome")

	if err := run(cfg, log); err != nil {
		log.WithError(err).Error("server exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	stores := app.Stores{}
	if cfg.Database.DSN != "" {
		db, err := database.Open(cfg.Database.DSN)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

		pg := postgres.New(db)
		stores = app.Stores{
			Users:      pg,
			Projects:   pg,
			Properties: pg,
			Agents:     pg,
			Forum:      pg,
			Ads:        pg,
			Sessions:   pg,
		}
		log.Info("using postgres storage")
	} else {
		log.Warn("DATABASE_URL not set; using in-memory storage")
	}

	opts := app.Options{
		JWTSecret: cfg.Auth.JWTSecret,
		TokenTTL:  cfg.Auth.TokenTTL,
		OTPTTL:    cfg.Auth.OTPTTL,
		OTPMax:    cfg.Auth.OTPMaxAttempt,
		OAuth:     oauthProviders(),
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		opts.OTPStore = authsvc.NewRedisOTPStore(client)
		log.Info("using redis OTP store")
	}

	if cfg.Geocode.Endpoint != "" {
		opts.Geocoder = geocode.New(cfg.Geocode.Endpoint, cfg.Geocode.APIKey)
	} else {
		opts.Geocoder = geocode.New(geocode.DefaultBaseURL, cfg.Geocode.APIKey)
	}

	window, err := preLaunchWindow(cfg.Ads)
	if err != nil {
		return err
	}
	opts.PreLaunchWindow = window

	application, err := app.New(stores, opts, log)
	if err != nil {
		return fmt.Errorf("build application: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("start application: %w", err)
	}

	seed := config.LoadSeedConfigOrDefault()
	if err := seedAdSlots(ctx, application, seed); err != nil {
		log.WithError(err).Warn("seed ad slots")
	}

	handler, err := httpapi.NewHandler(application, httpapi.Options{
		AuditLogPath: cfg.HTTP.AuditLogPath,
	})
	if err != nil {
		return fmt.Errorf("build handler: %w", err)
	}

	appLogger := logging.NewLogger(log)

	limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst, appLogger)
	stopCleanup := make(chan struct{})
	defer close(stopCleanup)
	limiter.StartCleanup(time.Minute, stopCleanup)

	chain := metrics.InstrumentHandler(handler)
	chain = middleware.NewAuthMiddleware(application.Auth, appLogger, httpapi.PublicPaths()).Handler(chain)
	chain = limiter.Handler(chain)
	chain = middleware.NewCORSMiddleware(cfg.HTTP.AllowedOrigins).Handler(chain)
	chain = middleware.NewTracingMiddleware(appLogger).Handler(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", server.Addr).Info("listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Info("shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http server shutdown")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("application shutdown")
	}
	return nil
}

// preLaunchWindow parses the optional promotional window boundaries.
func preLaunchWindow(cfg config.AdsConfig) (ads.PreLaunchWindow, error) {
	var window ads.PreLaunchWindow
	if cfg.PreLaunchStart == "" || cfg.PreLaunchEnd == "" {
		return window, nil
	}

	start, err := time.Parse(time.RFC3339, cfg.PreLaunchStart)
	if err != nil {
		return window, fmt.Errorf("parse ADS_PRELAUNCH_START: %w", err)
	}
	end, err := time.Parse(time.RFC3339, cfg.PreLaunchEnd)
	if err != nil {
		return window, fmt.Errorf("parse ADS_PRELAUNCH_END: %w", err)
	}
	if !end.After(start) {
		return window, fmt.Errorf("pre-launch window end must be after start")
	}
	return ads.PreLaunchWindow{Start: start, End: end}, nil
}

// seedAdSlots applies the configured slot table; existing rows are updated.
func seedAdSlots(ctx context.Context, application *app.Application, seed *config.SeedConfig) error {
	for _, slot := range seed.AdSlots {
		if _, err := application.Ads.ConfigureSlot(ctx, slot.Slot, slot.BasePrice, slot.Active); err != nil {
			return fmt.Errorf("slot %d: %w", slot.Slot, err)
		}
	}
	return nil
}

// oauthProviders builds the provider table from the environment. Providers
// without credentials are omitted.
func oauthProviders() map[string]authsvc.OAuthProvider {
	providers := map[string]authsvc.OAuthProvider{}

	if id := os.Getenv("OAUTH_GOOGLE_CLIENT_ID"); id != "" {
		providers["google"] = authsvc.OAuthProvider{
			Name:         "google",
			ClientID:     id,
			ClientSecret: os.Getenv("OAUTH_GOOGLE_CLIENT_SECRET"),
			TokenURL:     "https://oauth2.googleapis.com/token",
			UserInfoURL:  "https://openidconnect.googleapis.com/v1/userinfo",
			RedirectURI:  os.Getenv("OAUTH_GOOGLE_REDIRECT_URI"),
		}
	}
	if id := os.Getenv("OAUTH_FACEBOOK_CLIENT_ID"); id != "" {
		providers["facebook"] = authsvc.OAuthProvider{
			Name:         "facebook",
			ClientID:     id,
			ClientSecret: os.Getenv("OAUTH_FACEBOOK_CLIENT_SECRET"),
			TokenURL:     "https://graph.facebook.com/v18.0/oauth/access_token",
			UserInfoURL:  "https://graph.facebook.com/me?fields=email,name",
			RedirectURI:  os.Getenv("OAUTH_FACEBOOK_REDIRECT_URI"),
		}
	}
	return providers
}
