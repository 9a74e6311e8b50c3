package gateway

import (
	"context"

	"github.com/absmach/dexgate/pkg/mqtt"
)

// Round is the summary of a dispatched round sent to a Notifier.
type Round struct {
	SessionID string               `json:"session_id"`
	Timestamp float64              `json:"timestamp"`
	States    map[string][]float64 `json:"states"`
	Action    []float64            `json:"action"`
}

// Notifier receives every successfully dispatched round. Notification
// failures are logged and never affect the connection.
type Notifier interface {
	Notify(ctx context.Context, round Round) error
}

type pubsubNotifier struct {
	pubsub mqtt.PubSub
	topic  string
}

// NewPubSubNotifier publishes round summaries to an MQTT topic.
func NewPubSubNotifier(pubsub mqtt.PubSub, topic string) Notifier {
	return &pubsubNotifier{
		pubsub: pubsub,
		topic:  topic,
	}
}

func (n *pubsubNotifier) Notify(ctx context.Context, round Round) error {
	return n.pubsub.Publish(ctx, n.topic, round)
}
