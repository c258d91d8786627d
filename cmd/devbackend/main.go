package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dtroode/zeitnachricht/internal/config"
	"github.com/dtroode/zeitnachricht/internal/devbackend"
	"github.com/dtroode/zeitnachricht/internal/logger"
	"github.com/dtroode/zeitnachricht/internal/model"
	"github.com/dtroode/zeitnachricht/internal/server"
	"github.com/dtroode/zeitnachricht/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel, cfg.LogFormat)

	backend, err := devbackend.New(
		token.NewJWT(cfg.DevBackend.JWTSecret),
		logger,
		devbackend.WithAdmin(cfg.DevBackend.AdminEmail, cfg.DevBackend.AdminPassword),
	)
	if err != nil {
		logger.Fatal("failed to initialize backend", "error", err)
	}

	handler := devbackend.NewHandler(backend, logger)
	httpServer := devbackend.NewHTTPServer(handler.Router(), fmt.Sprintf(":%s", cfg.DevBackend.Port))
	sl := server.NewPlainListener()

	var wg sync.WaitGroup
	wg.Add(2)
	go func(s model.Server) {
		defer wg.Done()
		logger.Info("Starting server on", "address", s.Address())
		if err := s.Start(sl); err != nil {
			logger.Error("failed to start server", "error", err)
			stop()
		}
	}(httpServer)
	go func() {
		defer wg.Done()
		devbackend.RunDelivery(ctx, backend, cfg.DevBackend.DeliveryInterval, logger)
	}()

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err, "address", httpServer.Address())
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
