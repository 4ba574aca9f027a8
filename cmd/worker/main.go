package main

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"

	"github.com/Kapakfin93/kasirgrafity-backend/internal/config"
	"github.com/Kapakfin93/kasirgrafity-backend/internal/draft"
	"github.com/Kapakfin93/kasirgrafity-backend/internal/events"
	"github.com/Kapakfin93/kasirgrafity-backend/internal/obs"
	"github.com/Kapakfin93/kasirgrafity-backend/internal/order"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := obs.NewLogger("json", cfg.LogLevel).With().Str("component", "worker").Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "kasirgrafity-worker"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisOpts.Addr, Password: redisOpts.Password, DB: redisOpts.DB},
		asynq.Config{
			Concurrency: cfg.WorkerConcurrency,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error().Str("task", task.Type()).Err(err).Msg("task failed")
			}),
		},
	)

	bus := &events.Bus{Store: &events.PGStore{Pool: pool}}
	release := &draft.ReleaseHandler{
		Store:  &draft.Store{Pool: pool},
		Events: bus,
		Logger: logger,
	}
	audit := &order.AuditHandler{
		Records: &order.Store{Pool: pool},
		Logger:  logger,
	}

	mux := asynq.NewServeMux()
	mux.Handle(draft.TypeRelease, release)
	mux.Handle(order.TypeAudit, audit)

	logger.Info().Int("concurrency", cfg.WorkerConcurrency).Msg("worker starting")
	if err := srv.Run(mux); err != nil {
		logger.Fatal().Err(err).Msg("worker exited unexpectedly")
	}
}
