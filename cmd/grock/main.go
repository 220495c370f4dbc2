package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gagansidh-u/studio/internal/app"
	"github.com/Gagansidh-u/studio/internal/config"
	"github.com/Gagansidh-u/studio/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	if err = logger.Initialize(); err != nil {
		log.Fatalf("error starting logger: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Log.Fatal("error creating app", logger.Error(err))
	}

	ongoingCtx, cancelOngoingRequests := context.WithCancel(context.Background())
	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: a.Router(),
		BaseContext: func(_ net.Listener) context.Context {
			return ongoingCtx
		},
	}

	go startServer(server, cfg.Addr)

	<-ctx.Done()
	logger.Log.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	logger.Log.Info("stopping server")
	if err = server.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("error shutting down server", logger.Error(err))
	}
	logger.Log.Info("server stopped")

	cancelOngoingRequests()

	logger.Log.Info("closing store")
	if err = a.Close(); err != nil {
		logger.Log.Error("error closing store", logger.Error(err))
	}

	logger.Log.Info("shutdown complete")
}

func startServer(server *http.Server, addr string) {
	logger.Log.Info("starting server", logger.String("address", addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Log.Error("server error", logger.Error(err))
	}
}
