package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/quizzer/internal/api"
	"github.com/dgallion1/quizzer/internal/pipeline"
)

func serve(args []string) error {
	fs := flag.NewFlagSet("quizzer serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "YAML config file (default: $QUIZZER_CONFIG)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, *configPath, true)
	if err != nil {
		return err
	}
	defer a.Close()
	log, cfg := a.log, a.cfg

	orch := pipeline.NewOrchestrator(pipeline.OrchestratorConfig{
		WorkerCount:  cfg.WorkerCount,
		MaxQueueSize: cfg.MaxQueueSize,
	}, a.pipeline, pipeline.NewRunStore(cfg.RunTTL), log)
	orch.Start(ctx)

	srv := api.NewServer(orch, a.provider, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown", "error", err)
		}
		orch.Stop()
	}()

	log.Info("starting quizzer", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	return nil
}
