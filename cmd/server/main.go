package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/wcrooks/studiobooks/internal/config"
	"github.com/wcrooks/studiobooks/internal/db"
	"github.com/wcrooks/studiobooks/internal/logger"
	"github.com/wcrooks/studiobooks/internal/server"
	"github.com/wcrooks/studiobooks/internal/services"
)

var (
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	markOverdueFlag = flag.Bool("mark-overdue", false, "Flip past-due sent invoices to overdue and exit")
	markExpiredFlag = flag.Bool("mark-expired", false, "Expire open proposals past their valid-until date and exit")
)

func main() {
	flag.Parse()
	_ = godotenv.Load()
	cfg := config.Load()

	if err := logger.Setup(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: "stdout"}); err != nil {
		_ = logger.Setup(logger.DefaultConfig())
	}
	lg := logger.WithComponent("main")

	dbConn, err := db.ConnectAndMigrate()
	if err != nil {
		lg.Fatal().Err(err).Msg("database connection failed")
	}

	if *migrateOnlyFlag {
		lg.Info().Msg("migrations completed; exiting as requested")
		return
	}
	if *markOverdueFlag {
		svc := services.NewInvoiceService(dbConn, services.NewSettingsService(dbConn))
		n, err := svc.MarkOverdue(time.Now())
		if err != nil {
			lg.Fatal().Err(err).Msg("mark-overdue failed")
		}
		lg.Info().Int64("updated", n).Msg("overdue invoices marked")
		return
	}
	if *markExpiredFlag {
		n, err := services.NewProposalService(dbConn).MarkExpired(time.Now())
		if err != nil {
			lg.Fatal().Err(err).Msg("mark-expired failed")
		}
		lg.Info().Int64("updated", n).Msg("expired proposals marked")
		return
	}

	lg.Info().Str("env", cfg.Env).Str("port", cfg.Port).Msg("starting server")
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.New(dbConn),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		lg.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			lg.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	lg.Info().Msg("shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		lg.Error().Err(err).Msg("error during shutdown")
	}
	lg.Info().Msg("server gracefully stopped")
}
