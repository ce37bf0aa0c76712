package main

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/chatguard/moderation/internal/config"
	"github.com/chatguard/moderation/internal/gate"
	"github.com/chatguard/moderation/internal/messaging"
	"github.com/chatguard/moderation/internal/punish"
)

const adminUsage = "usage: mutechat [on|off|status] | chatmoderation [on|off|status|reload] | clearchat | mute <user> [seconds] | unmute <user> | check <text>"

// adminHandler translates plain-text administrative commands from the admin
// subject into gate and engine operations. Command surfaces (console, bots)
// publish a request and read back the reply line.
type adminHandler struct {
	gate   *gate.Gate
	engine *punish.Engine
	nats   *messaging.Client
	cfg    *config.Config
}

func newAdminHandler(g *gate.Gate, engine *punish.Engine, nats *messaging.Client, cfg *config.Config) *adminHandler {
	return &adminHandler{gate: g, engine: engine, nats: nats, cfg: cfg}
}

func (h *adminHandler) handle(data []byte) []byte {
	input := strings.TrimSpace(string(data))
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return []byte(adminUsage)
	}

	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	switch cmd {
	case "mutechat":
		return []byte(h.muteChat(args))
	case "chatmoderation":
		return []byte(h.chatModeration(args))
	case "clearchat":
		return []byte(h.clearChat())
	case "mute":
		return []byte(h.mute(args))
	case "unmute":
		return []byte(h.unmute(args))
	case "check":
		return []byte(h.check(strings.TrimSpace(strings.TrimPrefix(input, fields[0]))))
	default:
		return []byte(adminUsage)
	}
}

func (h *adminHandler) muteChat(args []string) string {
	action := "toggle"
	if len(args) > 0 {
		action = strings.ToLower(args[0])
	}

	switch action {
	case "status":
		if h.gate.IsGlobalMuted() {
			return "chat is currently muted"
		}
		return "chat is currently unmuted"

	case "on", "mute":
		if h.gate.IsGlobalMuted() {
			return "chat is already muted"
		}
		return h.setGlobalMute(true)

	case "off", "unmute":
		if !h.gate.IsGlobalMuted() {
			return "chat is already unmuted"
		}
		return h.setGlobalMute(false)

	case "toggle":
		return h.setGlobalMute(!h.gate.IsGlobalMuted())

	default:
		return "usage: mutechat [on|off|status]"
	}
}

func (h *adminHandler) setGlobalMute(muted bool) string {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	broadcast := h.gate.SetGlobalMute(ctx, muted)
	if h.nats != nil {
		if err := h.nats.PublishBroadcast(broadcast); err != nil {
			log.Printf("[admin] broadcast failed: %v", err)
		}
	}
	if muted {
		return "chat has been muted"
	}
	return "chat has been unmuted"
}

func (h *adminHandler) chatModeration(args []string) string {
	action := "status"
	if len(args) > 0 {
		action = strings.ToLower(args[0])
	}

	switch action {
	case "on", "enable":
		h.gate.SetModerationEnabled(true)
		return "chat moderation enabled"

	case "off", "disable":
		h.gate.SetModerationEnabled(false)
		return "chat moderation disabled"

	case "reload":
		h.gate.ReloadRules(config.Load())
		return "moderation rules reloaded"

	case "status":
		flags := h.gate.Flags()
		return fmt.Sprintf(
			"moderation=%v critical=%v severe=%v profanity=%v global_mute=%v",
			flags.Moderation, flags.Critical, flags.Severe, flags.Profanity,
			h.gate.IsGlobalMuted(),
		)

	default:
		return "usage: chatmoderation [on|off|status|reload]"
	}
}

func (h *adminHandler) clearChat() string {
	broadcast := h.gate.ClearChat()
	// The clear itself is blank lines pushed by the edge servers; this
	// service only announces it.
	if h.nats != nil {
		if err := h.nats.PublishBroadcast(broadcast); err != nil {
			log.Printf("[admin] broadcast failed: %v", err)
		}
	}
	return "chat has been cleared"
}

func (h *adminHandler) mute(args []string) string {
	if len(args) == 0 {
		return "usage: mute <user> [seconds]"
	}
	userID := args[0]

	duration := time.Duration(0) // permanent
	if len(args) > 1 {
		secs, err := strconv.Atoi(args[1])
		if err != nil || secs <= 0 {
			return "usage: mute <user> [seconds]"
		}
		duration = time.Duration(secs) * time.Second
	}

	h.engine.Mute(userID, duration)
	if duration > 0 {
		return fmt.Sprintf("user %s muted for %s", userID, punish.FormatDuration(duration))
	}
	return fmt.Sprintf("user %s permanently muted", userID)
}

func (h *adminHandler) unmute(args []string) string {
	if len(args) == 0 {
		return "usage: unmute <user>"
	}
	h.engine.Unmute(args[0])
	return fmt.Sprintf("user %s unmuted", args[0])
}

// check classifies text without side effects, for testing rule changes.
func (h *adminHandler) check(text string) string {
	if text == "" {
		return "usage: check <text>"
	}
	v := h.gate.Classify(text)
	if v.Reason != "" {
		return fmt.Sprintf("tier=%s reason=%q", v.Tier, v.Reason)
	}
	return fmt.Sprintf("tier=%s text=%q", v.Tier, v.Text)
}
