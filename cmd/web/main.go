package main

import (
	"context"
	"encoding/gob"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/donseba/go-htmx"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/joho/godotenv"
	"github.com/veloforge/dreamride/internal/appctx"
	"github.com/veloforge/dreamride/internal/builder"
	"github.com/veloforge/dreamride/internal/envstruct"
	"github.com/veloforge/dreamride/internal/errors"
	"github.com/veloforge/dreamride/internal/logging"
	"github.com/veloforge/dreamride/internal/pprofserver"
	"github.com/veloforge/dreamride/internal/repositories"
	"github.com/veloforge/dreamride/internal/sqlite"
	"github.com/veloforge/dreamride/internal/studio"
	"github.com/veloforge/dreamride/internal/studiostub"
	"github.com/veloforge/dreamride/internal/webauthnhandler"
)

func init() {
	gob.Register(webauthn.SessionData{})
}

type application struct {
	logger          *slog.Logger
	sessionManager  *scs.SessionManager
	webAuthnHandler *webauthnhandler.WebAuthnHandler
	appCtx          *appctx.AppContext
	builders        *builder.Registry
	studio          *studio.Client
	projects        *repositories.ProjectRepository
	htmx            *htmx.HTMX
	templateDir     string
}

type config struct {
	// Addr is the address the server listens on. Port 0 picks a free port.
	Addr      string `env:"DREAMRIDE_ADDR" envDefault:"localhost:4000"`
	PprofPort string `env:"DREAMRIDE_PPROF_PORT" envDefault:":6060"`
	SQLiteURL string `env:"DREAMRIDE_SQLITE_URL" envDefault:"./dreamride.sqlite"`
	// StudioURL points at the studio backend. Empty starts an in-process
	// stub, which is what local development and the e2e tests use.
	StudioURL   string `env:"DREAMRIDE_STUDIO_URL" envDefault:""`
	TemplateDir string `env:"DREAMRIDE_TEMPLATE_DIR" envDefault:"./ui/templates"`
	// OpenAIAPIKey switches the in-process stub from placeholder images to
	// real DALL-E renders. Ignored when StudioURL is set.
	OpenAIAPIKey string `env:"OPENAI_API_KEY" envDefault:""`
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		cfg config
		err error
	)
	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "parse config")
	}

	// pprof listens on localhost so that it's not open to the world.
	pprofserver.Launch(cfg.PprofPort, logger)

	dbs, err := sqlite.NewDatabase(ctx, cfg.SQLiteURL, logger)
	if err != nil {
		return errors.Wrap(err, "open database", slog.String("url", cfg.SQLiteURL))
	}
	defer func() {
		if closeErr := dbs.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "close database", errors.SlogError(closeErr))
		}
	}()
	go dbs.StartOptimizer(ctx)

	studioURL := cfg.StudioURL
	if studioURL == "" {
		if studioURL, err = startLocalStudio(ctx, logger, cfg.OpenAIAPIKey); err != nil {
			return errors.Wrap(err, "start local studio stub")
		}
		logger.LogAttrs(ctx, slog.LevelInfo, "using in-process studio stub", slog.String("url", studioURL))
	}
	studioClient := studio.NewClient(studioURL, logger)
	if err = studioClient.Healthy(ctx); err != nil {
		// Not fatal: the backend may still be coming up.
		logger.LogAttrs(ctx, slog.LevelWarn, "studio backend not reachable", errors.SlogError(err))
	}

	sessionManager := scs.New()
	sessionManager.Store = sqlite3store.NewWithCleanupInterval(dbs.ReadWrite, 24*time.Hour)
	sessionManager.Lifetime = 12 * time.Hour

	fqdn := strings.Split(cfg.Addr, ":")[0]
	rpOrigins := []string{fmt.Sprintf("http://%s", cfg.Addr)}
	webAuthnHandler, err := webauthnhandler.New(fqdn, rpOrigins, logger, sessionManager, dbs)
	if err != nil {
		return errors.Wrap(err, "initialise webauthn")
	}

	app := &application{
		logger:          logger,
		sessionManager:  sessionManager,
		webAuthnHandler: webAuthnHandler,
		appCtx:          appctx.New(sessionManager),
		builders:        builder.NewRegistry(studioClient, studioClient, studioClient, logger),
		studio:          studioClient,
		projects:        repositories.NewProjectRepository(dbs, logger),
		htmx:            htmx.New(),
		templateDir:     cfg.TemplateDir,
	}
	app.builders.Lifetime = sessionManager.Lifetime
	go app.builders.StartEvictor(ctx)

	return app.configureAndStartServer(ctx, cfg.Addr)
}

// startLocalStudio serves the studio contract stub on an ephemeral loopback
// port for the lifetime of ctx.
func startLocalStudio(ctx context.Context, logger *slog.Logger, openAIAPIKey string) (string, error) {
	var renderer studiostub.ImageRenderer
	if openAIAPIKey != "" {
		renderer = studiostub.NewOpenAIRenderer(openAIAPIKey)
	}

	listener, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return "", errors.Wrap(err, "TCP listen")
	}
	srv := &http.Server{
		Handler:           studiostub.New(logger, renderer).Handler(),
		ReadHeaderTimeout: time.Second,
	}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	go func() {
		if serveErr := srv.Serve(listener); !errors.Is(serveErr, http.ErrServerClosed) {
			logger.LogAttrs(ctx, slog.LevelError, "studio stub stopped",
				errors.SlogError(errors.Wrap(serveErr, "serve studio stub")))
		}
	}()
	return fmt.Sprintf("http://%s", listener.Addr().String()), nil
}

func main() {
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: true,
	})))

	// A .env file is optional; the environment wins over it.
	_ = godotenv.Load()

	ctx := context.Background()
	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server failed", errors.SlogError(err))
		os.Exit(1)
	}
}
