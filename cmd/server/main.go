// Command server runs the visa application intake API.
//
// Startup order:
//  1. Load .env (best effort) and environment configuration
//  2. Configure zerolog level
//  3. Open SQLite and run migrations
//  4. Build the eligibility rule index (file-backed or compiled-in defaults)
//  5. Configure OpenTelemetry tracing (optional)
//  6. Select the confirmation notifier (SES or log-only)
//  7. Register routes and serve until SIGINT/SIGTERM
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"

	"github.com/atlasvisa/go-visa-backend/internal/config"
	"github.com/atlasvisa/go-visa-backend/internal/eligibility"
	httpapi "github.com/atlasvisa/go-visa-backend/internal/http"
	"github.com/atlasvisa/go-visa-backend/internal/notify"
	"github.com/atlasvisa/go-visa-backend/internal/observability"
	"github.com/atlasvisa/go-visa-backend/internal/repo"
	"github.com/atlasvisa/go-visa-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

// @title        AtlasVisa Intake API
// @version      1.0
// @description  REST API for the visa application wizard: eligibility choice sets, draft autosave, step updates, and submission.
// @BasePath     /api/v1
func main() {
	// Best-effort .env for local development; real deployments use the environment.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.SetLogLevel(cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	log.Info().Str("version", version).Str("db", cfg.DBPath).Msg("starting intake api")

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("run migrations")
	}

	// Eligibility rules: operator-supplied JSON wins, defaults otherwise.
	var idx eligibility.Index
	if cfg.RulesPath != "" {
		loaded, err := eligibility.LoadFile(cfg.RulesPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.RulesPath).Msg("load eligibility rules")
		}
		log.Info().Int("rules", loaded.RuleCount()).Str("path", cfg.RulesPath).Msg("eligibility rules loaded")
		idx = loaded
	} else {
		idx = eligibility.NewIndex(eligibility.DefaultRules(),
			eligibility.WithUniverse(eligibility.DefaultUniverse()))
		log.Info().Msg("using compiled-in eligibility rules")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Warn().Err(err).Msg("otel setup failed, continuing without tracing")
	}

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.Notify.Enabled {
		loc, lerr := language.Parse(cfg.Notify.Locale)
		if lerr != nil {
			log.Warn().Err(lerr).Str("locale", cfg.Notify.Locale).Msg("bad notify locale, using English")
			loc = language.English
		}
		ses, serr := notify.NewSESNotifier(ctx, cfg.Notify.Region, cfg.Notify.Sender, loc)
		if serr != nil {
			log.Fatal().Err(serr).Msg("configure ses notifier")
		}
		notifier = ses
		log.Info().Str("region", cfg.Notify.Region).Msg("ses confirmation emails enabled")
	}

	engine := gin.New()
	httpapi.RegisterRoutes(engine, db, idx, notifier, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	if shutdownOTel != nil {
		if err := shutdownOTel(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}

	os.Exit(0)
}
