package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if !cfg.ModerationEnabled {
		t.Error("ModerationEnabled default should be true")
	}
	if !cfg.CriticalEnabled || !cfg.SevereEnabled || !cfg.ProfanityEnabled {
		t.Error("all tier flags should default to true")
	}
	if cfg.ReplacementChar != "*" {
		t.Errorf("ReplacementChar = %q, want %q", cfg.ReplacementChar, "*")
	}
	if cfg.SevereMuteDuration != 24*time.Hour {
		t.Errorf("SevereMuteDuration = %v, want 24h", cfg.SevereMuteDuration)
	}
	if cfg.SweepInterval != 60*time.Second {
		t.Errorf("SweepInterval = %v, want 60s", cfg.SweepInterval)
	}
	if len(cfg.ProfanityWords) != 0 {
		t.Errorf("ProfanityWords should default empty, got %v", cfg.ProfanityWords)
	}
	if cfg.Messages.UserMuted == "" || cfg.Messages.ChatMuted == "" {
		t.Error("notice templates must have non-empty defaults")
	}
}

func TestEnvList(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  []string
	}{
		{"simple", "damn,crap", []string{"damn", "crap"}},
		{"trims whitespace", " damn , crap ", []string{"damn", "crap"}},
		{"drops empties", "damn,,crap,", []string{"damn", "crap"}},
		{"only separators", ",, ,", nil},
		{"unset", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Setenv("TEST_LIST", tt.value)
			}
			got := envList("TEST_LIST")
			if len(got) != len(tt.want) {
				t.Fatalf("envList = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("envList[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestEnvDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"go duration", "30m", 30 * time.Minute},
		{"plain seconds", "86400", 24 * time.Hour},
		{"garbage falls back", "soon", time.Minute},
		{"negative falls back", "-5s", time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DUR", tt.value)
			got := envDuration("TEST_DUR", time.Minute)
			if got != tt.want {
				t.Errorf("envDuration(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestEnvBool(t *testing.T) {
	t.Setenv("TEST_BOOL", "false")
	if envBool("TEST_BOOL", true) {
		t.Error(`envBool("false") = true`)
	}
	t.Setenv("TEST_BOOL", "notabool")
	if !envBool("TEST_BOOL", true) {
		t.Error("invalid value should fall back to default")
	}
}
