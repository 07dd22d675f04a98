package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/khagerman/Nostalgia-Machine-backend/auth"
	"github.com/khagerman/Nostalgia-Machine-backend/db"
	"github.com/khagerman/Nostalgia-Machine-backend/postRepo"
	"github.com/khagerman/Nostalgia-Machine-backend/userRepo"
)

func main() {
	config, err := LoadConfig("config.yaml", ".env")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logFile, err := InitLogger(config.Server.LogFile)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := db.ApplyMigrations(config.DB); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}
	primaryDB, replicaDB, err := db.InitDBConnections(*config)
	if err != nil {
		log.Fatalf("Failed to connect to the database: %v", err)
	}

	clock := clockwork.NewRealClock()
	posts := postRepo.NewPostgresRepo(primaryDB, replicaDB, clock)
	defer posts.Close()

	users, err := userRepo.NewPostgresRepo(primaryDB, config.Auth.BcryptCost)
	if err != nil {
		log.Fatalf("Failed to create user store: %v", err)
	}
	tokens, err := auth.NewTokenCodec(config.Auth.Secret)
	if err != nil {
		log.Fatalf("Failed to create token codec: %v", err)
	}

	var rateLimiter *RateLimiter
	if config.RateLimiting.Enabled() {
		rateLimiter, err = NewRateLimiter(ctx, config.RateLimiting, clock)
		if err != nil {
			log.Fatalf("Failed to initialize rate limiter: %v", err)
		}
		defer rateLimiter.close()
		log.Println("Rate limiter initialized")
	}

	server := NewServer(NewHandler(users, posts, tokens), tokens, rateLimiter, config)
	go func() {
		if err := server.start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	var registry *Registry
	if config.Registry.Enabled() {
		host := config.Server.HostName
		if host == "" {
			host = config.Server.Host
		}
		registry, err = Register(ctx, config.Registry, net.JoinHostPort(host, config.Server.Port))
		if err != nil {
			log.Printf("Service registration failed, continuing unregistered: %v", err)
		}
	}

	<-ctx.Done()
	log.Println("Shutting down")
	if registry != nil {
		registry.Close()
	}
	server.Close()
}
