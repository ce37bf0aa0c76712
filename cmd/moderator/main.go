package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/chatguard/moderation/internal/audit"
	"github.com/chatguard/moderation/internal/config"
	"github.com/chatguard/moderation/internal/gate"
	"github.com/chatguard/moderation/internal/messaging"
	"github.com/chatguard/moderation/internal/metrics"
	"github.com/chatguard/moderation/internal/mutes"
	"github.com/chatguard/moderation/internal/punish"
)

func main() {
	log.Println("Starting chatguard moderation service...")

	cfg := config.Load()

	// --- Redis (mute persistence) ---
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		cancelPing()
		log.Fatalf("failed to connect to Redis: %v", err)
	}
	cancelPing()
	muteStore := mutes.NewRedisStore(rdb)

	// --- PostgreSQL (violation audit log, optional) ---
	var auditStore *audit.Store
	var db *sql.DB
	if cfg.PostgresDSN != "" {
		var err error
		db, err = sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("failed to open Postgres: %v", err)
		}
		pingCtx, cancelPing = context.WithTimeout(context.Background(), 5*time.Second)
		if err := db.PingContext(pingCtx); err != nil {
			cancelPing()
			log.Fatalf("failed to connect to Postgres: %v", err)
		}
		cancelPing()

		if err := runMigrations(cfg.PostgresDSN); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
		auditStore = audit.NewStore(db)
	} else {
		log.Println("POSTGRES_DSN not set, violation audit log disabled")
	}

	// --- NATS ---
	natsConfig := messaging.DefaultConfig()
	natsConfig.URL = cfg.NatsURL
	natsConfig.Name = "chatguard-moderator"
	natsClient, err := messaging.NewClient(natsConfig)
	if err != nil {
		log.Fatalf("failed to connect to NATS: %v", err)
	}

	// --- Engine wiring ---
	state := mutes.New()
	backend := messaging.NewPunishmentBackend(natsClient)
	engine := punish.NewEngine(state, muteStore, backend, cfg)
	moderationGate := gate.New(cfg, state, engine, auditStore)

	restoreCtx, cancelRestore := context.WithTimeout(context.Background(), 10*time.Second)
	if err := engine.RestoreState(restoreCtx); err != nil {
		log.Printf("[moderator] restoring persisted mutes failed, starting empty: %v", err)
	}
	cancelRestore()

	ctx, cancel := context.WithCancel(context.Background())
	go engine.Run(ctx)

	// --- Metrics ---
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
			log.Printf("[moderator] metrics server: %v", err)
		}
	}()

	// --- Message path ---
	err = natsClient.SubscribeModerationCheck(func(data []byte) {
		var req messaging.CheckRequest
		if err := json.Unmarshal(data, &req); err != nil {
			log.Printf("[moderator] failed to unmarshal request: %v", err)
			return
		}

		sender := &natsSender{req: &req}
		outcome := moderationGate.HandleMessage(sender, req.Text)

		result := messaging.CheckResult{
			SessionID: req.SessionID,
			UserID:    req.UserID,
			Outcome:   outcome.Kind.String(),
			Text:      outcome.Text,
			Notice:    outcome.Notice,
		}
		respData, err := json.Marshal(result)
		if err != nil {
			log.Printf("[moderator] failed to marshal result: %v", err)
			return
		}
		if err := natsClient.PublishModerationResult(req.SessionID, respData); err != nil {
			log.Printf("[moderator] failed to publish result: %v", err)
		}

		if outcome.Kind != gate.OutcomeAllow {
			log.Printf("[moderator] %s session=%s user=%s", outcome.Kind, req.SessionID, req.UserID)
		}
	})
	if err != nil {
		log.Fatalf("failed to subscribe to moderation checks: %v", err)
	}

	// --- Admin commands ---
	admin := newAdminHandler(moderationGate, engine, natsClient, cfg)
	if err := natsClient.SubscribeAdmin(admin.handle); err != nil {
		log.Fatalf("failed to subscribe to admin commands: %v", err)
	}

	log.Printf("chatguard moderation service running")
	log.Printf("  redis_addr:   %s", cfg.RedisAddr)
	log.Printf("  nats_url:     %s", cfg.NatsURL)
	log.Printf("  metrics_addr: %s", cfg.MetricsAddr)
	log.Printf("  audit_log:    %v", auditStore != nil)
	log.Printf("  sweep:        %s", cfg.SweepInterval)

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("received signal %v, shutting down...", sig)

	cancel() // stops the sweep

	persistCtx, cancelPersist := context.WithTimeout(context.Background(), 5*time.Second)
	engine.Persist(persistCtx)
	cancelPersist()

	natsClient.Close()
	rdb.Close()
	if db != nil {
		db.Close()
	}
}

// runMigrations applies pending SQL migrations for the audit schema.
func runMigrations(dsn string) error {
	m, err := migrate.New("file://migrations", dsn)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// natsSender adapts an incoming check request to the gate's Sender contract.
// Feedback is not delivered directly; it rides back to the edge server inside
// the check result's notice field.
type natsSender struct {
	req *messaging.CheckRequest
}

func (s *natsSender) ID() string { return s.req.UserID }

func (s *natsSender) HasCapability(name string) bool {
	for _, c := range s.req.Capabilities {
		if c == name {
			return true
		}
	}
	return false
}

func (s *natsSender) SendFeedback(string) {}
