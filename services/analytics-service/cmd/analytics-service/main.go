package main

import (
	"context"
	"net/http"
	"time"

	"github.com/citaplus/citaplus/libs/config"
	"github.com/citaplus/citaplus/libs/db"
	"github.com/citaplus/citaplus/libs/httpx"
	"github.com/citaplus/citaplus/libs/kafkax"
	otelx "github.com/citaplus/citaplus/libs/otel"
	"github.com/citaplus/citaplus/libs/runtime"
	"github.com/citaplus/citaplus/services/analytics-service/internal/consumer"
	"github.com/citaplus/citaplus/services/analytics-service/internal/events"
	"github.com/citaplus/citaplus/services/analytics-service/internal/inbox"
	"github.com/citaplus/citaplus/services/analytics-service/internal/ingest"
	"github.com/citaplus/citaplus/services/analytics-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	_ = config.LoadDotEnv()
	service := config.String("SERVICE_NAME", "analytics-service")
	port, err := config.Port("PORT", "8086")
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
	if config.Bool("DB_MIGRATE", true) {
		if err := db.Migrate(ctx, dbURL, storage.Migrations, storage.MigrationsDir, "analytics_goose_version"); err != nil {
			logger.Error("migrations failed", "err", err)
			panic(err)
		}
	}
	pool, err := db.Open(ctx, dbURL, db.Options{MaxConns: int32(config.Int("DB_MAX_CONNS", 5))})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	// Business days are reported in the platform's local offset.
	zone := time.FixedZone("local", -config.Int("METRICS_UTC_OFFSET_HOURS", 5)*60*60)
	metrics := storage.NewMetricsRepository(pool, inbox.NewRepository(), zone)
	handlers := ingest.New(metrics, logger)

	brokers := config.String("KAFKA_BROKERS", "")
	groupID := config.String("KAFKA_GROUP_ID", "analytics-service")
	subscriptions := []struct {
		topic  string
		handle consumer.Handler
	}{
		{config.String("FUNNEL_TOPIC", events.TopicFunnel), handlers.Funnel},
		{events.TopicBooked, handlers.Booked},
	}
	for _, sub := range subscriptions {
		c := consumer.New(logger, consumer.Config{
			Brokers:  brokers,
			GroupID:  groupID,
			Topic:    sub.topic,
			Attempts: config.Int("CONSUMER_MAX_ATTEMPTS", 5),
			Backoff:  config.Duration("CONSUMER_BACKOFF", time.Second),
		}, sub.handle)
		go c.Run(ctx)
	}

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "analytics")
	runtime.Serve(ctx, logger, &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	})
}
