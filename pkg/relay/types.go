// Package relay contains the public contracts and wire types for the
// push relay service.
package relay

import "time"

// PushType selects the APNs delivery class for a notification.
type PushType string

const (
	PushTypeAlert      PushType = "alert"
	PushTypeBackground PushType = "background"
)

// RegistrationInfo identifies the mobile app installation a push is
// addressed to. All fields are required; AppID doubles as the APNs topic.
type RegistrationInfo struct {
	AppID      string `json:"app_id"`
	AppVersion string `json:"app_version"`
	OSVersion  string `json:"os_version"`
	WebhookID  string `json:"webhook_id"`
}

// ParsedNotification is the output of a payload parser: APNs header
// values (apns-push-type, apns-collapse-id, ...) and the payload body
// already containing the aps dictionary.
type ParsedNotification struct {
	Headers map[string]any
	Payload map[string]any
}

// PendingPush is the APNs request envelope built per send. It is never
// persisted.
type PendingPush struct {
	Payload     []byte
	PushType    PushType
	DeviceToken string
	Topic       string
	CollapseID  string
	Expiration  time.Time
	Priority    int
	ApnsID      string
}
