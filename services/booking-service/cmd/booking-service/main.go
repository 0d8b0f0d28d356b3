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
	"github.com/citaplus/citaplus/services/booking-service/internal/analytics"
	"github.com/citaplus/citaplus/services/booking-service/internal/handlers"
	"github.com/citaplus/citaplus/services/booking-service/internal/messages"
	"github.com/citaplus/citaplus/services/booking-service/internal/outbox"
	"github.com/citaplus/citaplus/services/booking-service/internal/sessions"
	"github.com/citaplus/citaplus/services/booking-service/internal/storage"
	"github.com/citaplus/citaplus/services/booking-service/internal/writer"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	_ = config.LoadDotEnv()
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8083")
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
		if err := db.Migrate(ctx, dbURL, storage.Migrations, storage.MigrationsDir, "booking_goose_version"); err != nil {
			logger.Error("migrations failed", "err", err)
			panic(err)
		}
	}
	pool, err := db.Open(ctx, dbURL, db.Options{
		MaxConns: int32(config.Int("DB_MAX_CONNS", 10)),
	})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	brokers := config.String("KAFKA_BROKERS", "")
	var tracker analytics.Tracker = analytics.Nop{}
	if w := kafkax.NewAsyncWriter(kafkax.SplitBrokers(brokers), logger); w != nil {
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = kafkax.Close(closeCtx, w)
		}()
		tracker = analytics.NewKafkaTracker(w, config.String("FUNNEL_TOPIC", analytics.Topic), logger)
	} else {
		logger.Warn("funnel tracking disabled (no kafka brokers configured)")
	}

	outboxRepo := outbox.NewRepository(pool)
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: config.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go outboxPublisher.Run(ctx)

	appointments := storage.NewAppointmentRepository(pool, outboxRepo)
	sessionStore := sessions.NewStore(config.Duration("WIZARD_SESSION_TTL", 30*time.Minute), logger)
	go sessionStore.Run(ctx, time.Minute)

	wizardHandler := handlers.NewWizardHandler(handlers.WizardConfig{
		Sessions:     sessionStore,
		Catalog:      storage.NewCatalogRepository(pool),
		Booker:       writer.New(appointments, tracker, logger),
		Appointments: appointments,
		Tracker:      tracker,
		Messages:     messages.Bundled(),
		Logger:       logger,
	})
	appointmentHandler := handlers.NewAppointmentHandler(appointments, logger)

	router := chi.NewRouter()
	router.Route("/api/v1/wizard/sessions", wizardHandler.Routes)
	router.Get("/api/v1/appointments", appointmentHandler.List)

	checks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}
	if brokers != "" {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}
	mux := runtime.NewBaseMuxWithReady(checks...)
	mux.Handle("/api/", router)

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithBodyLimit(64<<10),
		httpx.WithTimeout(config.Duration("REQUEST_TIMEOUT", 15*time.Second)),
	)
	handler = otelhttp.NewHandler(handler, "booking")
	runtime.Serve(ctx, logger, &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	})
}
