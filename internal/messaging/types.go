package messaging

// CheckRequest is published to moderation.check by chat edge servers when a
// message needs moderation before delivery.
type CheckRequest struct {
	SessionID    string   `json:"session_id"`
	UserID       string   `json:"user_id"`
	Text         string   `json:"text"`
	Capabilities []string `json:"capabilities,omitempty"` // e.g. "moderation.bypass"
	Ts           int64    `json:"ts"`
}

// CheckResult is published back on moderation.result.<session_id> with the
// moderation decision.
type CheckResult struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Outcome   string `json:"outcome"` // "allow" | "filter" | "block"
	Text      string `json:"text"`    // text to deliver, empty for blocks
	Notice    string `json:"notice"`  // feedback for the sender
}

// PunishmentRequest is published to punishment.request when mute enforcement
// is delegated to an external punishment system. A zero DurationSeconds means
// permanent.
type PunishmentRequest struct {
	UserID          string `json:"user_id"`
	DurationSeconds int64  `json:"duration_seconds"`
	Reason          string `json:"reason"`
}
