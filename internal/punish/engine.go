// Package punish converts classification verdicts into communication
// restrictions. It owns the mapping from severity to duration, delegation to
// an optional external punishment backend, persistence of mute state, and the
// background sweep that lifts expired mutes.
package punish

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/chatguard/moderation/internal/config"
	"github.com/chatguard/moderation/internal/metrics"
	"github.com/chatguard/moderation/internal/mutes"
)

// Backend is an optional external punishment system. Calls are best-effort:
// a failure is logged and the internal mute state still enforces the
// restriction, so a broken backend costs only defense-in-depth.
type Backend interface {
	TempMute(ctx context.Context, userID string, duration time.Duration, reason string) error
	PermanentMute(ctx context.Context, userID string, reason string) error
}

// Engine applies punishments and runs the expiry sweep.
type Engine struct {
	state   *mutes.State
	store   mutes.Store // nil disables persistence
	backend Backend     // nil disables delegation

	severeDuration time.Duration
	sweepInterval  time.Duration
	backendTimeout time.Duration

	severeNotice   string // may contain %duration%
	criticalNotice string
}

// NewEngine builds an Engine. Both store and backend may be nil.
func NewEngine(state *mutes.State, store mutes.Store, backend Backend, cfg *config.Config) *Engine {
	severeDuration := cfg.SevereMuteDuration
	if severeDuration <= 0 {
		severeDuration = config.DefaultSevereMuteDuration
	}
	sweepInterval := cfg.SweepInterval
	if sweepInterval <= 0 {
		sweepInterval = config.DefaultSweepInterval
	}
	backendTimeout := cfg.BackendTimeout
	if backendTimeout <= 0 {
		backendTimeout = config.DefaultBackendTimeout
	}

	return &Engine{
		state:          state,
		store:          store,
		backend:        backend,
		severeDuration: severeDuration,
		sweepInterval:  sweepInterval,
		backendTimeout: backendTimeout,
		severeNotice:   cfg.Messages.SevereViolation,
		criticalNotice: cfg.Messages.CriticalViolation,
	}
}

// ApplySevere mutes userID for the configured severe duration and returns the
// feedback notice to present. The local record is written first so enforcement
// holds even if the backend silently fails; delegation then runs off the chat
// path with a bounded timeout.
func (e *Engine) ApplySevere(userID, reason string) string {
	e.state.Mute(userID, e.severeDuration)
	metrics.ActiveMutes.Set(float64(e.state.Len()))
	log.Printf("[punish] user=%s muted for %s: %s", userID, e.severeDuration, reason)

	if e.backend != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), e.backendTimeout)
			defer cancel()
			if err := e.backend.TempMute(ctx, userID, e.severeDuration, reason); err != nil {
				log.Printf("[punish] backend temp mute for %s failed (internal state still enforced): %v", userID, err)
			}
		}()
	}
	e.persistAsync()

	return strings.ReplaceAll(e.severeNotice, "%duration%", FormatDuration(e.severeDuration))
}

// ApplyCritical permanently mutes userID and returns the feedback notice.
func (e *Engine) ApplyCritical(userID, reason string) string {
	e.state.Mute(userID, 0)
	metrics.ActiveMutes.Set(float64(e.state.Len()))
	log.Printf("[punish] user=%s permanently muted: %s", userID, reason)

	if e.backend != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), e.backendTimeout)
			defer cancel()
			if err := e.backend.PermanentMute(ctx, userID, reason); err != nil {
				log.Printf("[punish] backend permanent mute for %s failed (internal state still enforced): %v", userID, err)
			}
		}()
	}
	e.persistAsync()

	return e.criticalNotice
}

// IsPunished reports whether userID is currently muted. Only internal state
// is consulted; backend state is write-only from this engine's perspective.
func (e *Engine) IsPunished(userID string) bool {
	return e.state.IsUserMuted(userID)
}

// Mute applies an administrative mute. A non-positive duration is permanent.
func (e *Engine) Mute(userID string, duration time.Duration) {
	e.state.Mute(userID, duration)
	metrics.ActiveMutes.Set(float64(e.state.Len()))
	if duration > 0 {
		log.Printf("[punish] user=%s muted for %s by administrator", userID, duration)
	} else {
		log.Printf("[punish] user=%s permanently muted by administrator", userID)
	}
	e.persistAsync()
}

// Unmute lifts any restriction on userID.
func (e *Engine) Unmute(userID string) {
	e.state.Unmute(userID)
	metrics.ActiveMutes.Set(float64(e.state.Len()))
	log.Printf("[punish] user=%s unmuted", userID)
	e.persistAsync()
}

// Run executes the expiry sweep until ctx is cancelled. It runs alongside the
// lazy expiry in mute checks so restrictions are lifted even for users who
// never attempt to chat.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.sweepInterval)
	defer ticker.Stop()

	log.Printf("[sweep] running every %s", e.sweepInterval)
	for {
		select {
		case <-ctx.Done():
			log.Println("[sweep] stopped")
			return
		case <-ticker.C:
			expired := e.state.Sweep()
			if len(expired) == 0 {
				continue
			}
			metrics.ActiveMutes.Set(float64(e.state.Len()))
			log.Printf("[sweep] lifted %d expired mute(s): %s", len(expired), strings.Join(expired, ", "))
			e.Persist(ctx)
		}
	}
}

// RestoreState loads persisted mute records into the in-memory table.
// Called once at startup, before the engine starts taking traffic.
func (e *Engine) RestoreState(ctx context.Context) error {
	if e.store == nil {
		return nil
	}
	records, global, err := e.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("punish: restore state: %w", err)
	}
	e.state.Restore(records, global)
	metrics.ActiveMutes.Set(float64(e.state.Len()))
	log.Printf("[punish] restored %d mute record(s), global mute=%v", e.state.Len(), global)
	return nil
}

// Persist writes the current mute snapshot to the store. Errors are logged,
// never propagated: the in-memory table stays authoritative.
func (e *Engine) Persist(ctx context.Context) {
	if e.store == nil {
		return
	}
	if err := e.store.SaveAll(ctx, e.state.Snapshot(), e.state.IsGloballyMuted()); err != nil {
		log.Printf("[punish] persist mute state: %v", err)
	}
}

// persistAsync persists off the caller's path so a slow store never delays
// message handling.
func (e *Engine) persistAsync() {
	if e.store == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.backendTimeout)
		defer cancel()
		e.Persist(ctx)
	}()
}

// FormatDuration renders a duration the way punishment notices expect:
// "N hour(s) and M minute(s)", or just minutes below one hour.
func FormatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	if hours > 0 {
		return fmt.Sprintf("%d hour(s) and %d minute(s)", hours, minutes)
	}
	return fmt.Sprintf("%d minute(s)", minutes)
}
