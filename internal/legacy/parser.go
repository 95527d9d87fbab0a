// Package legacy transforms the home-automation backend's flat webhook
// payload into APNs headers and payload dictionaries.
package legacy

import (
	"github.com/homecall/push-relay/pkg/relay"
)

// Parser is the production payload parser. It satisfies
// relay.PayloadParser and can be swapped out without touching the
// dispatcher.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse maps the legacy shape (message, push_token, registration_info,
// optional data block) onto an alert push:
//
//	headers["apns-push-type"] = "alert"
//	payload["aps"]["alert"]["body"] = message
//	payload["aps"]["sound"] = "default"
//
// The optional data block refines that baseline: data.push.* merges
// into aps, data.apns_headers.* merges into the headers, and data.tag
// becomes the collapse identifier.
func (p *Parser) Parse(raw map[string]any) (relay.ParsedNotification, error) {
	headers := map[string]any{
		"apns-push-type": string(relay.PushTypeAlert),
	}

	alert := map[string]any{}
	if message, ok := raw["message"].(string); ok {
		alert["body"] = message
	}
	if title, ok := raw["title"].(string); ok && title != "" {
		alert["title"] = title
	}

	aps := map[string]any{
		"alert": alert,
		"sound": "default",
	}

	payload := map[string]any{
		"aps": aps,
	}

	if reg, ok := raw["registration_info"].(map[string]any); ok {
		if webhookID, ok := reg["webhook_id"].(string); ok && webhookID != "" {
			payload["webhook_id"] = webhookID
		}
	}

	data, _ := raw["data"].(map[string]any)
	if data == nil {
		return relay.ParsedNotification{Headers: headers, Payload: payload}, nil
	}

	// data.push carries aps-level overrides (badge, sound, category, ...).
	if push, ok := data["push"].(map[string]any); ok {
		for k, v := range push {
			aps[k] = v
		}
	}

	if apnsHeaders, ok := data["apns_headers"].(map[string]any); ok {
		for k, v := range apnsHeaders {
			headers[k] = v
		}
	}

	// data.tag supersedes earlier undelivered pushes with the same tag.
	if tag, ok := data["tag"].(string); ok && tag != "" {
		if _, set := headers["apns-collapse-id"]; !set {
			headers["apns-collapse-id"] = tag
		}
	}

	return relay.ParsedNotification{Headers: headers, Payload: payload}, nil
}
