// Package config holds the typed runtime configuration for the moderation
// service. All settings are read from environment variables exactly once at
// startup; a missing variable resolves to its documented default and is never
// an error.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Default values used when the corresponding environment variable is unset.
const (
	DefaultSevereMuteDuration = 24 * time.Hour
	DefaultSweepInterval      = 60 * time.Second
	DefaultBackendTimeout     = 2 * time.Second
	DefaultReplacementChar    = "*"
)

// Messages holds the user-facing notice and broadcast templates.
// The severe-violation template may contain a %duration% placeholder which is
// replaced with a human-readable duration when the notice is produced.
type Messages struct {
	ChatMuted         string // sender blocked because chat is globally muted
	UserMuted         string // sender blocked because of an individual mute
	ProfanityFiltered string // sent alongside a redacted message
	SevereViolation   string // sent when a temporary mute is applied
	CriticalViolation string // sent when a permanent mute is applied
	MuteBroadcast     string // broadcast when chat is muted
	UnmuteBroadcast   string // broadcast when chat is unmuted
	ClearBroadcast    string // broadcast after the chat is cleared
}

// Config is the complete service configuration.
type Config struct {
	// Feature flags, each independently toggleable.
	ModerationEnabled bool
	CriticalEnabled   bool
	SevereEnabled     bool
	ProfanityEnabled  bool

	// Rule data.
	ProfanityWords  []string
	SevereWords     []string
	DoxingKeywords  []string
	ReplacementChar string

	// Punishment behavior.
	SevereMuteDuration time.Duration
	SweepInterval      time.Duration
	BackendTimeout     time.Duration

	Messages Messages

	// Infrastructure.
	RedisAddr   string
	NatsURL     string
	PostgresDSN string // empty disables the violation audit log
	MetricsAddr string
}

// Load reads the configuration from the environment, applying defaults for
// anything unset.
func Load() *Config {
	return &Config{
		ModerationEnabled: envBool("MODERATION_ENABLED", true),
		CriticalEnabled:   envBool("CRITICAL_CHECKS_ENABLED", true),
		SevereEnabled:     envBool("SEVERE_CHECKS_ENABLED", true),
		ProfanityEnabled:  envBool("PROFANITY_FILTER_ENABLED", true),

		ProfanityWords:  envList("PROFANITY_WORDS"),
		SevereWords:     envList("SEVERE_WORDS"),
		DoxingKeywords:  envList("DOXING_KEYWORDS"),
		ReplacementChar: envString("REPLACEMENT_CHAR", DefaultReplacementChar),

		SevereMuteDuration: envDuration("SEVERE_MUTE_DURATION", DefaultSevereMuteDuration),
		SweepInterval:      envDuration("SWEEP_INTERVAL", DefaultSweepInterval),
		BackendTimeout:     envDuration("BACKEND_TIMEOUT", DefaultBackendTimeout),

		Messages: Messages{
			ChatMuted:         envString("MSG_CHAT_MUTED", "Chat is currently muted by an administrator."),
			UserMuted:         envString("MSG_USER_MUTED", "You are currently muted and cannot send messages."),
			ProfanityFiltered: envString("MSG_PROFANITY_FILTERED", "Your message contained inappropriate language and has been filtered."),
			SevereViolation:   envString("MSG_SEVERE_VIOLATION", "You have been muted for inappropriate language. Duration: %duration%"),
			CriticalViolation: envString("MSG_CRITICAL_VIOLATION", "You have been permanently muted for sharing personal information."),
			MuteBroadcast:     envString("MSG_MUTE_BROADCAST", "Chat has been muted by an administrator."),
			UnmuteBroadcast:   envString("MSG_UNMUTE_BROADCAST", "Chat has been unmuted."),
			ClearBroadcast:    envString("MSG_CLEAR_BROADCAST", "Chat has been cleared by an administrator."),
		},

		RedisAddr:   envString("REDIS_ADDR", "localhost:6379"),
		NatsURL:     envString("NATS_URL", "nats://localhost:4222"),
		PostgresDSN: envString("POSTGRES_DSN", ""),
		MetricsAddr: envString("METRICS_ADDR", ":9094"),
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	// Accept either a Go duration string ("24h") or a plain seconds count,
	// matching how the original deployment expressed durations.
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return def
}

// envList parses a comma-separated environment variable into a slice.
// Entries are trimmed; empty entries are dropped. An unset or empty variable
// yields a nil slice, which every consumer treats as an empty list.
func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
