package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// PunishmentBackend delegates mute enforcement to an external punishment
// system over NATS. It satisfies the punishment engine's Backend contract;
// calls are fire-and-forget publishes, so a missing consumer costs nothing
// but the defense-in-depth the external system would have provided.
type PunishmentBackend struct {
	client *Client
}

// NewPunishmentBackend wraps a NATS client as a punishment backend.
func NewPunishmentBackend(client *Client) *PunishmentBackend {
	return &PunishmentBackend{client: client}
}

// TempMute requests a time-bounded mute from the external system.
func (b *PunishmentBackend) TempMute(_ context.Context, userID string, duration time.Duration, reason string) error {
	return b.publish(PunishmentRequest{
		UserID:          userID,
		DurationSeconds: int64(duration.Seconds()),
		Reason:          reason,
	})
}

// PermanentMute requests a permanent mute from the external system.
func (b *PunishmentBackend) PermanentMute(_ context.Context, userID string, reason string) error {
	return b.publish(PunishmentRequest{
		UserID: userID,
		Reason: reason,
	})
}

func (b *PunishmentBackend) publish(req PunishmentRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("messaging: marshal punishment request: %w", err)
	}
	if err := b.client.PublishPunishment(data); err != nil {
		return fmt.Errorf("messaging: publish punishment request: %w", err)
	}
	return nil
}
