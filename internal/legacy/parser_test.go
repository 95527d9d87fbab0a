package legacy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homecall/push-relay/internal/legacy"
)

func TestParser_Defaults(t *testing.T) {
	parser := legacy.NewParser()

	parsed, err := parser.Parse(map[string]any{
		"message":    "Garage door left open",
		"push_token": "token-1",
		"registration_info": map[string]any{
			"app_id":     "io.robbie.HomeAssistant",
			"webhook_id": "webhook-abc",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "alert", parsed.Headers["apns-push-type"])
	_, hasCollapse := parsed.Headers["apns-collapse-id"]
	assert.False(t, hasCollapse)

	aps := parsed.Payload["aps"].(map[string]any)
	alert := aps["alert"].(map[string]any)
	assert.Equal(t, "Garage door left open", alert["body"])
	assert.Equal(t, "default", aps["sound"])
	assert.Equal(t, "webhook-abc", parsed.Payload["webhook_id"])
}

func TestParser_Title(t *testing.T) {
	parser := legacy.NewParser()

	parsed, err := parser.Parse(map[string]any{
		"message": "Motion detected",
		"title":   "Front door",
	})
	require.NoError(t, err)

	alert := parsed.Payload["aps"].(map[string]any)["alert"].(map[string]any)
	assert.Equal(t, "Front door", alert["title"])
	assert.Equal(t, "Motion detected", alert["body"])
}

func TestParser_DataBlock(t *testing.T) {
	parser := legacy.NewParser()

	t.Run("push overrides merge into aps", func(t *testing.T) {
		parsed, err := parser.Parse(map[string]any{
			"message": "Battery low",
			"data": map[string]any{
				"push": map[string]any{
					"badge":    float64(3),
					"sound":    "alarm.caf",
					"category": "BATTERY",
				},
			},
		})
		require.NoError(t, err)

		aps := parsed.Payload["aps"].(map[string]any)
		assert.Equal(t, float64(3), aps["badge"])
		assert.Equal(t, "alarm.caf", aps["sound"])
		assert.Equal(t, "BATTERY", aps["category"])
	})

	t.Run("apns_headers merge into headers", func(t *testing.T) {
		parsed, err := parser.Parse(map[string]any{
			"message": "Sensor update",
			"data": map[string]any{
				"apns_headers": map[string]any{
					"apns-push-type":   "background",
					"apns-collapse-id": "sensor-42",
				},
			},
		})
		require.NoError(t, err)

		assert.Equal(t, "background", parsed.Headers["apns-push-type"])
		assert.Equal(t, "sensor-42", parsed.Headers["apns-collapse-id"])
	})

	t.Run("tag becomes the collapse identifier", func(t *testing.T) {
		parsed, err := parser.Parse(map[string]any{
			"message": "Doorbell",
			"data": map[string]any{
				"tag": "doorbell-front",
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "doorbell-front", parsed.Headers["apns-collapse-id"])
	})

	t.Run("explicit collapse header wins over tag", func(t *testing.T) {
		parsed, err := parser.Parse(map[string]any{
			"message": "Doorbell",
			"data": map[string]any{
				"tag": "from-tag",
				"apns_headers": map[string]any{
					"apns-collapse-id": "from-header",
				},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "from-header", parsed.Headers["apns-collapse-id"])
	})
}
