// Package apns provides the client adapter for the Apple Push
// Notification Service.
package apns

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/token"

	"github.com/homecall/push-relay/pkg/relay"
)

// APNSClient defines the subset of the apns2.Client methods we use.
// This allows mocking for unit tests.
type APNSClient interface {
	Push(n *apns2.Notification) (*apns2.Response, error)
}

// Sender forwards PendingPush envelopes to APNs. It satisfies
// relay.Sender.
type Sender struct {
	client APNSClient
	logger *slog.Logger
}

// Config holds the credentials required to sign APNs tokens.
type Config struct {
	KeyID  string
	TeamID string
	// P8KeyContent is the raw string content of the .p8 file
	P8KeyContent string
	// Development routes sends to the sandbox endpoint.
	Development bool
}

// NewSender creates a configured APNs sender. It parses the P8 key
// immediately to fail fast on startup if credentials are bad.
func NewSender(cfg Config, logger *slog.Logger) (*Sender, error) {
	authKey, err := token.AuthKeyFromBytes([]byte(cfg.P8KeyContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse APNs P8 key: %w", err)
	}

	tokenSource := &token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	}

	client := apns2.NewTokenClient(tokenSource)
	if cfg.Development {
		client = client.Development()
	} else {
		client = client.Production()
	}

	return &Sender{
		client: client,
		logger: logger.With("component", "APNSSender"),
	}, nil
}

// Send submits a single notification. Unlike a fan-out dispatcher each
// relay request targets exactly one device token, so there is no batch
// path here; a nil error means APNs accepted the push.
func (s *Sender) Send(ctx context.Context, push relay.PendingPush) error {
	n := &apns2.Notification{
		ApnsID:      push.ApnsID,
		DeviceToken: push.DeviceToken,
		Topic:       push.Topic,
		CollapseID:  push.CollapseID,
		Payload:     push.Payload,
		PushType:    pushType(push.PushType),
	}
	if !push.Expiration.IsZero() {
		n.Expiration = push.Expiration
	}
	if push.Priority > 0 {
		n.Priority = push.Priority
	}

	res, err := s.client.Push(n)
	if err != nil {
		// Network/Transport Failure
		s.logger.Error("APNs transport failed", "apns_id", push.ApnsID, "err", err)
		return fmt.Errorf("apns transport failed: %w", err)
	}

	if !res.Sent() {
		s.logger.Warn("APNs rejected notification",
			"apns_id", push.ApnsID,
			"reason", res.Reason,
			"status", res.StatusCode,
		)
		return fmt.Errorf("apns rejected notification: %s (status %d)", res.Reason, res.StatusCode)
	}

	s.logger.Debug("APNs accepted notification", "apns_id", push.ApnsID)
	return nil
}

func pushType(t relay.PushType) apns2.EPushType {
	if t == relay.PushTypeBackground {
		return apns2.PushTypeBackground
	}
	return apns2.PushTypeAlert
}
