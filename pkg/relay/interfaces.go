package relay

import "context"

// PayloadParser defines the contract for transforming a raw legacy
// webhook payload into APNs headers and payload dictionaries. The
// production parser is replaceable without touching the dispatcher.
type PayloadParser interface {
	Parse(raw map[string]any) (ParsedNotification, error)
}

// Sender defines the contract for a component that can deliver a
// PendingPush to Apple's push service. A nil error means APNs accepted
// the notification.
type Sender interface {
	Send(ctx context.Context, push PendingPush) error
}
