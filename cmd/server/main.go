package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	availabilityhandler "plantpantry/internal/availability/handler"
	"plantpantry/internal/chains"
	chainshandler "plantpantry/internal/chains/handler"
	"plantpantry/internal/directory"
	directoryhandler "plantpantry/internal/directory/handler"
	"plantpantry/internal/directory/store"
	"plantpantry/internal/location"
	locationhandler "plantpantry/internal/location/handler"
	"plantpantry/internal/platform/config"
	"plantpantry/internal/platform/httpserver"
	"plantpantry/internal/platform/logger"
	"plantpantry/internal/platform/metrics"
	"plantpantry/internal/platform/redis"
	transport "plantpantry/internal/transport/http"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := map[string]transport.HealthChecker{}

	var (
		storeRepo directory.StoreStore
		chainRepo chains.ChainStore
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to open database", "error", err.Error())
			os.Exit(1)
		}
		defer db.Close()
		if err := store.EnsureSchema(ctx, db); err != nil {
			log.Error("failed to ensure schema", "error", err.Error())
			os.Exit(1)
		}
		storeRepo = store.NewPostgresStores(db)
		chainRepo = store.NewPostgresChains(db)
		checks["postgres"] = dbChecker{db}
		log.Info("using postgres store")
	} else {
		storeRepo = store.NewInMemoryStores()
		chainRepo = store.NewInMemoryChains()
		log.Warn("DATABASE_URL not set, using in-memory store")
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err.Error())
		os.Exit(1)
	}

	var sessions location.SessionStore = location.NewMemorySessions()
	if redisClient != nil {
		defer redisClient.Close()
		sessions = location.NewRedisSessions(redisClient, cfg.SessionChoiceTTL)
		checks["redis"] = redisClient
		log.Info("using redis session store")
	}

	var geocoder location.ReverseGeocoder
	var places location.PlaceClient
	if cfg.GeocoderBaseURL != "" {
		httpGeocoder := location.NewHTTPGeocoder(cfg.GeocoderBaseURL)
		geocoder = location.NewCachedGeocoder(httpGeocoder, cfg.GeocodeCacheTTL)
		places = httpGeocoder
	}

	directoryService := directory.New(storeRepo,
		directory.WithLogger(log),
		directory.WithMetrics(m),
		directory.WithDefaultRadius(cfg.DefaultRadiusMiles),
	)
	chainService := chains.New(chainRepo, chains.WithLogger(log))
	resolvers := location.NewManager(location.ContextLocator{}, geocoder, sessions, log, m)

	router := transport.NewRouter(transport.Config{
		Logger:         log,
		Metrics:        m,
		Stores:         directoryhandler.New(directoryService, log),
		Chains:         chainshandler.New(chainService, log),
		Location:       locationhandler.New(resolvers, places, log),
		Availability:   availabilityhandler.New(directoryService, chainService, resolvers, log),
		AdminToken:     cfg.AdminToken,
		RequestTimeout: cfg.GeolocationTimeout * 3,
		Checks:         checks,
	})

	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err.Error())
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err.Error())
	}
}

type dbChecker struct{ db *sql.DB }

func (c dbChecker) Health(ctx context.Context) error {
	return c.db.PingContext(ctx)
}
