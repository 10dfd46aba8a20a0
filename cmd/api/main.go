package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"algoforce/internal/config"
	"algoforce/internal/database"
	"algoforce/internal/otp"
	"algoforce/internal/server"
	"algoforce/internal/services"
	"algoforce/internal/store"
	"algoforce/internal/util"

	"gorm.io/gorm"
)

const (
	shutdownTimeout = 30 * time.Second
	readTimeout     = 15 * time.Second
	writeTimeout    = 15 * time.Second
	idleTimeout     = 60 * time.Second
)

func main() {
	log.SetPrefix("[API] ")
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Starting %s v%s", cfg.App.Name, cfg.App.Version)
	log.Printf("Environment: debug=%v, port=%s, host=%s", cfg.App.Debug, cfg.App.Port, cfg.App.Host)

	var (
		repo store.ContactRepository
		db   *gorm.DB
	)
	if cfg.Database.IsMemory() {
		log.Println("Using in-memory contact store, records are lost on restart")
		repo = store.NewMemoryContactStore()
	} else {
		log.Println("Initializing database connection...")
		db, err = database.Open(cfg.Database)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer func() {
			log.Println("Closing database connections...")
			if err := database.Close(db); err != nil {
				log.Printf("Error closing database: %v", err)
			}
		}()
		repo = store.NewGormContactStore(db)
	}

	strategy, err := otp.NewStrategy(cfg)
	if err != nil {
		log.Fatalf("Failed to configure OTP strategy: %v", err)
	}

	log.Println("Initializing services...")
	svc := server.Services{
		Contacts: services.NewContactService(repo, strategy, services.Options{
			ResubmitWindow: cfg.OTP.ResubmitWindow,
			RetryWindow:    cfg.OTP.RetryWindow,
			Debug:          cfg.App.Debug,
		}),
		Health: services.NewHealthService(strategy.Name(), repo),
	}
	// config.Load refuses admin auth without a SQL database
	if cfg.Auth.Enabled {
		expiry := time.Duration(cfg.Auth.TokenExpiryMinutes) * time.Minute
		svc.Auth = services.NewAuthService(db, util.NewTokenManager(cfg.Auth.SecretKey, expiry), expiry)
	}

	addr := fmt.Sprintf("%s:%s", cfg.App.Host, cfg.App.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server.New(cfg, svc).Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
		ErrorLog:     log.New(os.Stderr, "[HTTP] ", log.LstdFlags),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Printf("Server listening on %s (strategy=%s, channel=%s)", addr, strategy.Name(), strategy.Channel())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- fmt.Errorf("server error: %w", err)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Printf("Server failed: %v", err)
		return
	case sig := <-shutdown:
		log.Printf("Received signal: %v. Starting graceful shutdown...", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("Error during graceful shutdown: %v", err)
		if errors.Is(err, context.DeadlineExceeded) {
			log.Println("Shutdown timeout exceeded, forcing close...")
			_ = httpServer.Close()
		}
	}

	log.Println("Server shutdown complete")
}
