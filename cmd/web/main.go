package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomz197/reflex/internal/config"
	"github.com/tomz197/reflex/internal/highscore"
	"github.com/tomz197/reflex/internal/highscore/sqlite"
	"github.com/tomz197/reflex/internal/web"
)

func main() {
	var cfg config.Web
	if err := config.ParseEnv(&cfg); err != nil {
		config.Exitf("config: %v", err)
	}
	logger := config.NewLogger(os.Stderr, cfg.LogLevel, "web")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		logger.Fatal("open database", "path", cfg.DBPath, "err", err)
	}
	defer store.Close()

	srv := web.New(web.Options{
		Board:      highscore.NewBoard(store, logger),
		SSHCommand: cfg.SSHCommand(),
		Logger:     logger,
	})

	addr := net.JoinHostPort(cfg.Host, cfg.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting web server", "addr", "http://"+addr, "ssh", cfg.SSHCommand())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", "err", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down web server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "err", err)
	}
}
