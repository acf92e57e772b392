package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"session-lifecycle/internal/audit"
	auditrepo "session-lifecycle/internal/audit/repository"
	"session-lifecycle/internal/blacklist"
	blacklistpg "session-lifecycle/internal/blacklist/postgres"
	blacklistredis "session-lifecycle/internal/blacklist/redis"
	"session-lifecycle/internal/config"
	"session-lifecycle/internal/db"
	"session-lifecycle/internal/event"
	"session-lifecycle/internal/event/producer"
	"session-lifecycle/internal/handler"
	"session-lifecycle/internal/lifecycle"
	"session-lifecycle/internal/middleware"
	"session-lifecycle/internal/policy/engine"
	"session-lifecycle/internal/reaper"
	"session-lifecycle/internal/security"
	sessionrepo "session-lifecycle/internal/session/repository"
	"session-lifecycle/internal/telemetry"
	tokenrepo "session-lifecycle/internal/token/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("config: DATABASE_URL must be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: "session-lifecycle",
		Insecure:    cfg.OTLPInsecure,
	})
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer database.Close()

	sessions := sessionrepo.NewPostgresRepository(database)
	tokens := tokenrepo.NewPostgresRepository(database)
	auditLog := audit.NewLogger(auditrepo.NewPostgresRepository(database), middleware.ClientIP)

	var denylist blacklist.Store
	if cfg.RedisURL != "" {
		denylist, err = blacklistredis.NewStore(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis blacklist: %v", err)
		}
		log.Println("blacklist backend: redis")
	} else {
		denylist = blacklistpg.NewStore(database)
		log.Println("blacklist backend: postgres")
	}
	defer denylist.Close()

	signer, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		log.Fatalf("JWT_PRIVATE_KEY: %v", err)
	}
	pub, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		log.Fatalf("JWT_PUBLIC_KEY: %v", err)
	}
	provider := security.NewTokenProvider(signer, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())

	policy, err := engine.NewOPAEvaluator(cfg.ReplayPolicyPath)
	if err != nil {
		log.Fatalf("replay policy: %v", err)
	}
	if err := policy.HealthCheck(ctx); err != nil {
		log.Fatalf("replay policy health check: %v", err)
	}

	var events event.Emitter
	kafkaProducer, err := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.EventsKafkaTopic)
	if err != nil {
		log.Fatalf("kafka producer: %v", err)
	}
	switch {
	case kafkaProducer != nil:
		events = kafkaProducer
		log.Printf("security events: kafka topic %s", cfg.EventsKafkaTopic)
	case cfg.OTLPEndpoint != "":
		events = event.NewOTelEmitter(tel.Logs)
		log.Println("security events: otel logs")
	}

	manager := lifecycle.NewManager(
		sessions, tokens, denylist, provider,
		policy, auditLog, events,
		cfg.RefreshTTL(), cfg.SessionLifetime(),
		cfg.MaxSessionsPerUser, cfg.ReplayEscalateAccountWide,
	)
	admin := lifecycle.NewAdmin(sessions, manager)

	sweeper := reaper.New(sessions, tokens, denylist, cfg.ReaperTick())
	go sweeper.Run(ctx)

	router := handler.NewRouter(manager, admin, handler.RouterConfig{
		InternalSecret: cfg.InternalIssueSecret,
		Healthcheck:    database.PingContext,
		Audit:          auditLog,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}

	// Give in-flight async event emits time to land before closing the sink.
	if events != nil {
		time.Sleep(event.ShutdownDrainDuration)
		if err := events.Close(); err != nil {
			log.Printf("event emitter close: %v", err)
		}
	}
	if err := tel.Shutdown(shutdownCtx); err != nil {
		log.Printf("telemetry shutdown: %v", err)
	}
	log.Println("stopped")
}
