package main

import (
	"context"
	"net/http"
	"time"

	"github.com/citaplus/citaplus/libs/cache"
	"github.com/citaplus/citaplus/libs/config"
	"github.com/citaplus/citaplus/libs/db"
	"github.com/citaplus/citaplus/libs/httpx"
	otelx "github.com/citaplus/citaplus/libs/otel"
	"github.com/citaplus/citaplus/libs/runtime"
	"github.com/citaplus/citaplus/services/search-service/internal/handlers"
	"github.com/citaplus/citaplus/services/search-service/internal/resolver"
	"github.com/citaplus/citaplus/services/search-service/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	_ = config.LoadDotEnv()
	service := config.String("SERVICE_NAME", "search-service")
	port, err := config.Port("PORT", "8085")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL, db.Options{
		MaxConns: int32(config.Int("DB_MAX_CONNS", 20)),
	})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	checks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}

	// Results are cached in process and, when Redis is configured, shared
	// across replicas.
	var resultCache cache.Cache
	mem, err := cache.NewMemory(int64(config.Int("SEARCH_CACHE_MAX_BYTES", 64<<20)))
	if err != nil {
		logger.Error("memory cache init failed; caching disabled", "err", err)
	} else {
		defer mem.Close()
		resultCache = mem
	}
	if addr := config.String("REDIS_ADDR", ""); addr != "" && resultCache != nil {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		defer func() { _ = rdb.Close() }()
		resultCache = cache.NewTiered(mem, cache.NewRedis(rdb, "search:"), config.Duration("SEARCH_CACHE_L1_TTL", 15*time.Second))
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
		logger.Info("search cache enabled (tiered)", "redis_addr", addr)
	}

	res := resolver.New(storage.NewRepository(pool), logger)
	searchHandler := handlers.NewSearchHandler(res,
		cache.NewLoader(resultCache, logger),
		config.Duration("SEARCH_CACHE_TTL", 60*time.Second),
		logger,
	)

	mux := runtime.NewBaseMuxWithReady(checks...)
	mux.HandleFunc("/api/v1/public/search", searchHandler.Search)

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithBodyLimit(64<<10),
	)
	handler = otelhttp.NewHandler(handler, "search")
	runtime.Serve(ctx, logger, &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	})
}
