package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"

	"github.com/Kapakfin93/kasirgrafity-backend/internal/auth"
	"github.com/Kapakfin93/kasirgrafity-backend/internal/catalog"
	"github.com/Kapakfin93/kasirgrafity-backend/internal/checkout"
	"github.com/Kapakfin93/kasirgrafity-backend/internal/common"
	"github.com/Kapakfin93/kasirgrafity-backend/internal/config"
	"github.com/Kapakfin93/kasirgrafity-backend/internal/draft"
	"github.com/Kapakfin93/kasirgrafity-backend/internal/events"
	"github.com/Kapakfin93/kasirgrafity-backend/internal/health"
	"github.com/Kapakfin93/kasirgrafity-backend/internal/lock"
	"github.com/Kapakfin93/kasirgrafity-backend/internal/obs"
	"github.com/Kapakfin93/kasirgrafity-backend/internal/order"
	"github.com/Kapakfin93/kasirgrafity-backend/internal/ratelimit"
	"github.com/Kapakfin93/kasirgrafity-backend/internal/security"
	"github.com/Kapakfin93/kasirgrafity-backend/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logger := obs.NewLogger(logFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	if cfg.TracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "kasirgrafity-api",
			Endpoint:      cfg.OTLPEndpoint,
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: 1.0,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := runMigrations(cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("run migrations")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "kasirgrafity-api"

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
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisotel.InstrumentMetrics(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis metrics")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	taskClient := asynq.NewClient(asynq.RedisClientOpt{Addr: redisOpts.Addr, Password: redisOpts.Password, DB: redisOpts.DB})
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()

	validate := validator.New()

	bus := &events.Bus{Store: &events.PGStore{Pool: pool}}

	catalogSvc := &catalog.Service{
		Queries: &catalog.Store{Pool: pool},
		Cache:   catalog.NewCache(redisClient, cfg.CatalogCacheTTL),
		Logger:  logger,
	}
	catalogHandlers := &catalog.Handlers{Service: catalogSvc, Validate: validate}

	orderStore := &order.Store{Pool: pool}
	orderSvc := &order.Service{
		Records:    orderStore,
		Events:     bus,
		Finishings: catalogSvc.FinishingLookup,
		Logger:     logger,
	}
	orderHandlers := &order.Handlers{Service: orderSvc}

	checkoutSvc := &checkout.Service{
		Catalog: catalogSvc,
		Orders:  orderStore,
		Events:  bus,
		Tasks:   taskClient,
		Logger:  logger,
	}
	checkoutHandlers := &checkout.Handlers{Service: checkoutSvc, Validate: validate}

	draftSvc := &draft.Service{
		Records:  &draft.Store{Pool: pool},
		Tasks:    taskClient,
		Checkout: checkoutSvc,
		Events:   bus,
		Locker:   lock.Locker{R: redisClient},
		ClaimTTL: cfg.DraftClaimTTL,
		Logger:   logger,
	}
	draftHandlers := &draft.Handlers{Service: draftSvc, Validate: validate}

	authSvc := &auth.Service{
		Accounts:  &auth.Store{Pool: pool},
		Secret:    []byte(cfg.JWTSecret),
		Issuer:    cfg.JWTIssuer,
		AccessTTL: cfg.AccessTokenTTL,
	}
	authHandlers := &auth.Handlers{Service: authSvc, Validate: validate}
	authMiddleware := auth.Middleware{Service: authSvc}

	idem := common.Idem{R: redisClient, TTL: 24 * time.Hour}

	limitHandler, err := ratelimit.New(redisClient, cfg.RateLimit)
	if err != nil {
		logger.Fatal().Err(err).Msg("configure rate limit")
	}

	httpMetrics := obs.NewHTTPMetrics("kasir", obs.ParseBucketsCSV(cfg.MetricsBucketsCSV), nil)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if cfg.TracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{Enable: true}.Middleware)
	r.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)
	r.Use(limitHandler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())
	if envBool("OBS_ENABLE_PPROF", false) {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}

	healthHandler := health.Handler{Checker: readinessChecker{db: pool, redis: redisClient}}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Route("/auth", func(a chi.Router) {
			authHandlers.Routes(a)
			a.Group(func(me chi.Router) {
				me.Use(authMiddleware.RequireAuth)
				authHandlers.MeRoutes(me)
			})
		})

		v.Group(func(pub chi.Router) {
			catalogHandlers.Routes(pub)
		})

		v.Route("/checkout", func(c chi.Router) {
			c.Use(authMiddleware.RequireAuth)
			c.Use(idem.Middleware)
			checkoutHandlers.Routes(c)
		})

		v.Route("/orders", func(o chi.Router) {
			o.Use(authMiddleware.RequireAuth)
			orderHandlers.Routes(o)
		})

		v.Route("/drafts", func(d chi.Router) {
			d.Use(authMiddleware.RequireAuth)
			draftHandlers.Routes(d)
		})

		v.Route("/admin", func(admin chi.Router) {
			admin.Use(authMiddleware.RequireRole(auth.RoleAdmin))
			catalogHandlers.AdminRoutes(admin)
		})
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info().Msg("shutdown signal received, draining")
	health.SetReady(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
	}
	logger.Info().Msg("server stopped")
}

func runMigrations(databaseURL string) error {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return err
	}
	// golang-migrate selects its driver from the URL scheme; the pgx v5
	// driver registers as pgx5.
	url := strings.Replace(databaseURL, "postgres://", "pgx5://", 1)
	url = strings.Replace(url, "postgresql://", "pgx5://", 1)
	m, err := migrate.NewWithSourceInstance("iofs", source, url)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = m.Close()
	}()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

type readinessChecker struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func (c readinessChecker) PingDB(ctx context.Context, timeout time.Duration) error {
	if c.db == nil {
		return errors.New("db not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.db.Ping(ctx)
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}
