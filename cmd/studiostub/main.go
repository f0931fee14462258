// Command studiostub serves the scripted studio backend on its own port so
// the web app can be pointed at it with DREAMRIDE_STUDIO_URL.
package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/veloforge/dreamride/internal/errors"
	"github.com/veloforge/dreamride/internal/logging"
	"github.com/veloforge/dreamride/internal/studiostub"
)

func main() {
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))
	_ = godotenv.Load()

	addr := os.Getenv("DREAMRIDE_STUDIOSTUB_ADDR")
	if addr == "" {
		addr = "localhost:4100"
	}

	var renderer studiostub.ImageRenderer
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		renderer = studiostub.NewOpenAIRenderer(key)
		logger.Info("rendering images through OpenAI")
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           studiostub.New(logger, renderer).Handler(),
		ReadHeaderTimeout: time.Second,
	}
	logger.Info("starting studio stub", "addr", addr)
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("studio stub stopped", errors.SlogError(err))
		os.Exit(1)
	}
}
