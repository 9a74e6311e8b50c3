package mqtt

import (
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusMessage(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 5, 6, 7, 8, 9, 0, time.FixedZone("CET", 3600))

	cases := []struct {
		desc   string
		status string
	}{
		{desc: "online", status: StatusOnline},
		{desc: "offline", status: StatusOffline},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			t.Parallel()

			payload, err := statusMessage("gentle-otter", tc.status, at)
			require.NoError(t, err)

			var got Status
			require.NoError(t, json.Unmarshal(payload, &got))
			assert.Equal(t, tc.status, got.Status)
			assert.Equal(t, "gentle-otter", got.InstanceID)
			assert.True(t, at.Equal(got.Time))
			assert.Contains(t, string(payload), `"time":"2024-05-06T06:08:09Z"`)
		})
	}
}

func TestNewPubSubRequiresClientID(t *testing.T) {
	t.Parallel()

	_, err := NewPubSub(Config{Address: "tcp://localhost:1883", Timeout: time.Second}, slog.Default())
	assert.ErrorIs(t, err, errEmptyID)
}
