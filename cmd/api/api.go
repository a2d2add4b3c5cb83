package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"

	httpapi "github.com/ulpfield/hazard-bot/internal/api/http"
	"github.com/ulpfield/hazard-bot/internal/app"
	"github.com/ulpfield/hazard-bot/internal/config"
)

func main() {
	log.Info("Starting Hazard API...")
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize application")
	}
	defer a.Close()

	handler := httpapi.NewHandler(a.Findings, a.Notifier, a.Log, cfg.WhatsAppTarget)
	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: httpapi.SetupRouter(cfg.GinMode, handler),
	}

	go func() {
		log.Infof("Listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown failed")
	}
}
