// Package api contains the HTTP controllers for the push relay.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/homecall/push-relay/internal/metrics"
	"github.com/homecall/push-relay/internal/ratelimit"
	"github.com/homecall/push-relay/pkg/relay"
)

// PushAPI is the push dispatcher: it validates incoming send requests,
// branches on encrypted vs. legacy payloads, applies the rate limit
// gate, forwards to APNs and records the outcome.
type PushAPI struct {
	limiter *ratelimit.Limiter
	parser  relay.PayloadParser
	sender  relay.Sender
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewPushAPI(
	limiter *ratelimit.Limiter,
	parser relay.PayloadParser,
	sender relay.Sender,
	m *metrics.Metrics,
	logger *slog.Logger,
) *PushAPI {
	return &PushAPI{
		limiter: limiter,
		parser:  parser,
		sender:  sender,
		metrics: m,
		logger:  logger.With("component", "PushAPI"),
	}
}

type rateLimitsBody struct {
	Successful int `json:"successful"`
	Errors     int `json:"errors"`
	Maximum    int `json:"maximum"`
	Remaining  int `json:"remaining"`
}

type rateLimitsResponse struct {
	Target     string         `json:"target"`
	RateLimits rateLimitsBody `json:"rate_limits"`
}

// SendPush handles POST /push/send.
func (api *PushAPI) SendPush(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		api.reject(w, http.StatusBadRequest, "invalid json body")
		return
	}

	// Validation order matters: token, registration info, content.
	pushToken, _ := raw["push_token"].(string)
	if pushToken == "" {
		api.reject(w, http.StatusBadRequest, "missing push_token")
		return
	}

	reg, err := registrationInfoFromRaw(raw)
	if err != nil {
		api.reject(w, http.StatusBadRequest, err.Error())
		return
	}

	encrypted, _ := raw["encrypted"].(bool)
	if _, hasMessage := raw["message"].(string); !hasMessage && !encrypted {
		api.reject(w, http.StatusNotAcceptable, "nothing to notify: request carries no message and is not encrypted")
		return
	}

	encryptedData, _ := raw["encrypted_data"].(string)
	if encrypted && encryptedData == "" {
		api.reject(w, http.StatusBadRequest, "missing encrypted_data for encrypted notification")
		return
	}

	// Admission gate. The read does not create a record, so rejected
	// requests leave the store untouched.
	current, err := api.limiter.RateLimits(ctx, pushToken)
	if err != nil {
		// Fail closed: without the counter store we cannot enforce the
		// quota, so we refuse the send rather than deliver uncounted.
		api.logger.Error("Rate limit store unavailable", "err", err)
		writeJSONError(w, http.StatusInternalServerError, "rate limit store unavailable")
		return
	}
	if !api.limiter.ShouldAllow(current) {
		api.metrics.RecordPush(metrics.OutcomeRateLimited)
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"message":     "Rate limit exceeded",
			"target":      pushToken,
			"rate_limits": api.rateLimitsBody(current),
		})
		return
	}

	push := relay.PendingPush{
		DeviceToken: pushToken,
		Topic:       reg.AppID,
		PushType:    relay.PushTypeAlert,
		ApnsID:      uuid.NewString(),
	}

	if encrypted {
		body, err := json.Marshal(encryptedPayload(encryptedData, reg.WebhookID))
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode payload")
			return
		}
		push.Payload = body
	} else {
		parsed, err := api.parser.Parse(raw)
		if err != nil {
			api.reject(w, http.StatusBadRequest, "unable to build notification from payload")
			return
		}
		applyHeaders(&push, parsed.Headers)
		body, err := json.Marshal(parsed.Payload)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode payload")
			return
		}
		push.Payload = body
	}

	if err := api.sender.Send(ctx, push); err != nil {
		api.logger.Error("APNs send failed", "apns_id", push.ApnsID, "err", err)
		if _, incErr := api.limiter.Increment(ctx, pushToken, ratelimit.KindErrors); incErr != nil {
			api.logger.Warn("Failed to record delivery error", "err", incErr)
		}
		api.metrics.RecordPush(metrics.OutcomeFailed)
		writeJSONError(w, http.StatusUnprocessableEntity, "Failed to send to APNS")
		return
	}

	updated, err := api.limiter.Increment(ctx, pushToken, ratelimit.KindSuccessful)
	if err != nil {
		// The push is already out; surface the send as successful and
		// log the accounting failure.
		api.logger.Warn("Failed to record successful delivery", "err", err)
		updated = current
		updated.Successful++
	}
	api.metrics.RecordPush(metrics.OutcomeDelivered)
	api.logger.Info("Push delivered", "apns_id", push.ApnsID, "successful", updated.Successful)

	writeJSON(w, http.StatusCreated, rateLimitsResponse{
		Target:     pushToken,
		RateLimits: api.rateLimitsBody(updated),
	})
}

type checkRateLimitsRequest struct {
	PushToken string `json:"push_token"`
}

// CheckRateLimits handles POST /rate_limits/check.
func (api *PushAPI) CheckRateLimits(w http.ResponseWriter, r *http.Request) {
	var req checkRateLimitsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.PushToken == "" {
		writeJSONError(w, http.StatusBadRequest, "missing push_token")
		return
	}

	values, err := api.limiter.RateLimits(r.Context(), req.PushToken)
	if err != nil {
		api.logger.Error("Rate limit store unavailable", "err", err)
		writeJSONError(w, http.StatusInternalServerError, "rate limit store unavailable")
		return
	}

	writeJSON(w, http.StatusOK, rateLimitsResponse{
		Target:     req.PushToken,
		RateLimits: api.rateLimitsBody(values),
	})
}

func (api *PushAPI) rateLimitsBody(values ratelimit.Values) rateLimitsBody {
	return rateLimitsBody{
		Successful: values.Successful,
		Errors:     values.Errors,
		Maximum:    api.limiter.Maximum(),
		Remaining:  api.limiter.Remaining(values),
	}
}

func (api *PushAPI) reject(w http.ResponseWriter, status int, message string) {
	api.metrics.RecordPush(metrics.OutcomeRejected)
	writeJSONError(w, status, message)
}

// registrationInfoFromRaw validates the registration_info object. Every
// field must be a non-empty string.
func registrationInfoFromRaw(raw map[string]any) (relay.RegistrationInfo, error) {
	obj, ok := raw["registration_info"].(map[string]any)
	if !ok {
		return relay.RegistrationInfo{}, errMissingRegistration
	}

	var reg relay.RegistrationInfo
	for _, field := range []struct {
		name string
		dest *string
	}{
		{"app_id", &reg.AppID},
		{"app_version", &reg.AppVersion},
		{"os_version", &reg.OSVersion},
		{"webhook_id", &reg.WebhookID},
	} {
		value, ok := obj[field.name].(string)
		if !ok || value == "" {
			return relay.RegistrationInfo{}, &registrationFieldError{field.name}
		}
		*field.dest = value
	}
	return reg, nil
}

var errMissingRegistration = &registrationFieldError{""}

type registrationFieldError struct {
	field string
}

func (e *registrationFieldError) Error() string {
	if e.field == "" {
		return "missing or invalid registration_info"
	}
	return "registration_info is missing " + e.field
}

// encryptedPayload is the fixed-shape body for encrypted pushes. The
// alert text is a placeholder the client replaces after local
// decryption; if the user ever sees it, decryption failed.
func encryptedPayload(encryptedData, webhookID string) map[string]any {
	return map[string]any{
		"aps": map[string]any{
			"alert": map[string]any{
				"title": "Encrypted notification",
				"body":  "If you're seeing this message, decryption failed.",
			},
			"mutable-content": 1,
		},
		"encrypted":      true,
		"encrypted_data": encryptedData,
		"webhook_id":     webhookID,
	}
}

func applyHeaders(push *relay.PendingPush, headers map[string]any) {
	if v, ok := headers["apns-push-type"].(string); ok && v == string(relay.PushTypeBackground) {
		push.PushType = relay.PushTypeBackground
	}
	if v, ok := headers["apns-collapse-id"].(string); ok {
		push.CollapseID = v
	}
	switch v := headers["apns-priority"].(type) {
	case float64:
		push.Priority = int(v)
	case int:
		push.Priority = v
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			push.Priority = n
		}
	}
	// apns-expiration carries epoch seconds on the wire.
	switch v := headers["apns-expiration"].(type) {
	case float64:
		push.Expiration = time.Unix(int64(v), 0)
	case int:
		push.Expiration = time.Unix(int64(v), 0)
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			push.Expiration = time.Unix(n, 0)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
