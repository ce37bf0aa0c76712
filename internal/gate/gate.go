// Package gate is the entry point of the moderation engine. It composes the
// mute checks, the classifier, and the punishment engine into a single
// accept/filter/block decision per message, and exposes the administrative
// operations (global mute, clear chat, rule reload) used by command surfaces.
package gate

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/chatguard/moderation/internal/audit"
	"github.com/chatguard/moderation/internal/classify"
	"github.com/chatguard/moderation/internal/config"
	"github.com/chatguard/moderation/internal/metrics"
	"github.com/chatguard/moderation/internal/mutes"
	"github.com/chatguard/moderation/internal/punish"
	"github.com/chatguard/moderation/internal/rules"
)

// CapabilityBypass exempts a sender from every moderation check.
const CapabilityBypass = "moderation.bypass"

// Sender is the identity and feedback channel of whoever sent a message.
type Sender interface {
	ID() string
	HasCapability(name string) bool
	SendFeedback(text string)
}

// OutcomeKind is the final decision for one message.
type OutcomeKind int

const (
	OutcomeAllow OutcomeKind = iota
	OutcomeFilter
	OutcomeBlock
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeAllow:
		return "allow"
	case OutcomeFilter:
		return "filter"
	case OutcomeBlock:
		return "block"
	default:
		return "unknown"
	}
}

// Outcome is the result of handling one message. Filtered and blocked
// outcomes always carry a non-empty notice explaining the decision.
type Outcome struct {
	Kind   OutcomeKind
	Text   string // text to deliver; empty for blocks
	Notice string // feedback shown to the sender, empty for plain allows
}

// generation is one atomically-swapped snapshot of rule data and tier flags,
// so an in-flight classification never mixes old and new rules.
type generation struct {
	set   *rules.Set
	flags classify.Flags
}

// Gate wires the moderation pipeline together.
type Gate struct {
	gen    atomic.Pointer[generation]
	state  *mutes.State
	engine *punish.Engine
	audit  *audit.Store // nil disables the violation log
	msgs   config.Messages

	auditTimeout time.Duration
}

// New builds a Gate. The audit store may be nil.
func New(cfg *config.Config, state *mutes.State, engine *punish.Engine, auditStore *audit.Store) *Gate {
	g := &Gate{
		state:        state,
		engine:       engine,
		audit:        auditStore,
		msgs:         cfg.Messages,
		auditTimeout: cfg.BackendTimeout,
	}
	if g.auditTimeout <= 0 {
		g.auditTimeout = config.DefaultBackendTimeout
	}
	g.gen.Store(&generation{
		set: rules.Load(cfg),
		flags: classify.Flags{
			Moderation: cfg.ModerationEnabled,
			Critical:   cfg.CriticalEnabled,
			Severe:     cfg.SevereEnabled,
			Profanity:  cfg.ProfanityEnabled,
		},
	})
	return g
}

// HandleMessage runs the full moderation pipeline for one message. Check
// order is fixed: bypass wins over everything, mute checks precede
// classification (a muted sender's text is never even filtered), and only
// then is the message classified and acted on.
func (g *Gate) HandleMessage(sender Sender, text string) Outcome {
	if sender.HasCapability(CapabilityBypass) {
		metrics.MessagesTotal.WithLabelValues("allow").Inc()
		return Outcome{Kind: OutcomeAllow, Text: text}
	}

	if g.state.IsGloballyMuted() {
		metrics.MessagesTotal.WithLabelValues("block").Inc()
		sender.SendFeedback(g.msgs.ChatMuted)
		return Outcome{Kind: OutcomeBlock, Notice: g.msgs.ChatMuted}
	}
	if g.state.IsUserMuted(sender.ID()) {
		metrics.MessagesTotal.WithLabelValues("block").Inc()
		sender.SendFeedback(g.msgs.UserMuted)
		return Outcome{Kind: OutcomeBlock, Notice: g.msgs.UserMuted}
	}

	verdict := g.Classify(text)

	switch verdict.Tier {
	case classify.TierCritical:
		notice := g.engine.ApplyCritical(sender.ID(), verdict.Reason)
		g.recordViolation(sender.ID(), verdict, text)
		metrics.MessagesTotal.WithLabelValues("block").Inc()
		metrics.ViolationsTotal.WithLabelValues("critical").Inc()
		sender.SendFeedback(notice)
		return Outcome{Kind: OutcomeBlock, Notice: notice}

	case classify.TierSevere:
		notice := g.engine.ApplySevere(sender.ID(), verdict.Reason)
		g.recordViolation(sender.ID(), verdict, text)
		metrics.MessagesTotal.WithLabelValues("block").Inc()
		metrics.ViolationsTotal.WithLabelValues("severe").Inc()
		sender.SendFeedback(notice)
		return Outcome{Kind: OutcomeBlock, Notice: notice}

	case classify.TierFiltered:
		g.recordViolation(sender.ID(), verdict, text)
		metrics.MessagesTotal.WithLabelValues("filter").Inc()
		metrics.ViolationsTotal.WithLabelValues("filtered").Inc()
		sender.SendFeedback(g.msgs.ProfanityFiltered)
		return Outcome{Kind: OutcomeFilter, Text: verdict.Text, Notice: g.msgs.ProfanityFiltered}

	default:
		metrics.MessagesTotal.WithLabelValues("allow").Inc()
		return Outcome{Kind: OutcomeAllow, Text: verdict.Text}
	}
}

// Classify runs the classifier against the current rule generation without
// side effects. Command surfaces use it as a dry-run testing hook.
func (g *Gate) Classify(text string) classify.Verdict {
	gen := g.gen.Load()
	start := time.Now()
	verdict := classify.Classify(gen.set, text, gen.flags)
	metrics.ClassifyLatency.Observe(time.Since(start).Seconds())
	return verdict
}

// SetGlobalMute toggles the global chat mute and returns the broadcast text
// to announce the change.
func (g *Gate) SetGlobalMute(ctx context.Context, muted bool) string {
	g.state.SetGlobalMute(muted)
	if muted {
		metrics.GlobalMute.Set(1)
	} else {
		metrics.GlobalMute.Set(0)
	}
	g.engine.Persist(ctx)
	log.Printf("[gate] global mute set to %v", muted)

	if muted {
		return g.msgs.MuteBroadcast
	}
	return g.msgs.UnmuteBroadcast
}

// IsGlobalMuted reports whether chat is globally muted.
func (g *Gate) IsGlobalMuted() bool {
	return g.state.IsGloballyMuted()
}

// ClearChat returns the broadcast text announcing an administrative chat
// clear. The transport layer is responsible for the actual screen-clearing
// delivery.
func (g *Gate) ClearChat() string {
	log.Println("[gate] chat cleared by administrator")
	return g.msgs.ClearBroadcast
}

// ReloadRules rebuilds the rule set and tier flags from cfg and swaps them in
// atomically. In-flight classifications finish against the old generation.
func (g *Gate) ReloadRules(cfg *config.Config) {
	g.gen.Store(&generation{
		set: rules.Load(cfg),
		flags: classify.Flags{
			Moderation: cfg.ModerationEnabled,
			Critical:   cfg.CriticalEnabled,
			Severe:     cfg.SevereEnabled,
			Profanity:  cfg.ProfanityEnabled,
		},
	})
	log.Println("[gate] rules reloaded")
}

// SetModerationEnabled toggles the master moderation flag at runtime, keeping
// the current rule set and per-tier flags.
func (g *Gate) SetModerationEnabled(enabled bool) {
	old := g.gen.Load()
	flags := old.flags
	flags.Moderation = enabled
	g.gen.Store(&generation{set: old.set, flags: flags})
	log.Printf("[gate] moderation enabled set to %v", enabled)
}

// ModerationEnabled reports whether the master moderation flag is on.
func (g *Gate) ModerationEnabled() bool {
	return g.gen.Load().flags.Moderation
}

// Flags returns the current tier flags, for status reporting.
func (g *Gate) Flags() classify.Flags {
	return g.gen.Load().flags
}

// recordViolation writes an audit row off the message path. Failures are
// logged only; auditing never affects the moderation decision.
func (g *Gate) recordViolation(userID string, verdict classify.Verdict, original string) {
	if g.audit == nil {
		return
	}
	v := audit.Violation{
		UserID:  userID,
		Tier:    verdict.Tier.String(),
		Term:    verdict.Term,
		Message: original,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), g.auditTimeout)
		defer cancel()
		if err := g.audit.Record(ctx, v); err != nil {
			log.Printf("[gate] audit record for %s failed: %v", userID, err)
		}
	}()
}
