package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/honeynil/BankClientService/internal/api"
	"github.com/honeynil/BankClientService/internal/config"
	"github.com/honeynil/BankClientService/internal/handler"
	"github.com/honeynil/BankClientService/internal/infrastructure/kafka"
	"github.com/honeynil/BankClientService/internal/infrastructure/redis"
	"github.com/honeynil/BankClientService/internal/observability"
	core "github.com/honeynil/BankClientService/internal/repository/postgres"
	service "github.com/honeynil/BankClientService/internal/services"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.Load()

	// логи, метрики, трейсы
	shutdownTracing, metricsHandler := observability.Setup("bank-client-service", cfg.LogLevel, cfg.OTLPEndpoint)
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			slog.Error("tracer shutdown failed", "error", err)
		}
	}()

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		slog.Error("failed to open Postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo := core.NewPostgresClientRepository(db)
	if cfg.EnsureSchema {
		if err := repo.EnsureSchema(ctx); err != nil {
			slog.Error("failed to ensure schema", "error", err)
			os.Exit(1)
		}
	}

	var (
		opts      []service.Option
		routerCfg = api.RouterConfig{
			RateLimitRPS:   cfg.RateLimitRPS,
			RateLimitBurst: cfg.RateLimitBurst,
			Metrics:        metricsHandler,
		}
	)
	if cfg.RedisAddr != "" {
		redisClient, err := redis.NewClient(ctx, cfg.RedisAddr)
		if err != nil {
			slog.Error("failed to connect to Redis", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		opts = append(opts, service.WithRedis(redisClient))
		routerCfg.Redis = api.PingerFunc(redisClient.Ping)
	}
	if len(cfg.KafkaBrokers) > 0 {
		producer := kafka.NewProducer(cfg.KafkaBrokers)
		defer producer.Close()
		opts = append(opts, service.WithEvents(producer, cfg.KafkaEventsTopic))
	}

	clients := service.NewClientService(repo, repo, opts...)
	transfers := service.NewTransferService(core.NewTransactor(db, cfg.TxTimeout), opts...)

	router := api.SetupRouter(handler.NewHandler(clients, transfers), db, routerCfg)
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("starting server", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if len(cfg.KafkaBrokers) > 0 {
		consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTransferTopic, cfg.KafkaGroupID, transfers)
		defer consumer.Close()
		g.Go(func() error {
			consumer.Consume(gctx)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server stopped with error", "error", err)
		return
	}
	slog.Info("server stopped")
}
