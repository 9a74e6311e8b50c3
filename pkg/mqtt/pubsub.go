package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	connTimeout          = 10 * time.Second
	maxReconnectInterval = time.Minute
	disconnectQuiesce    = 250

	StatusOnline  = "online"
	StatusOffline = "offline"
)

var (
	errPublishTimeout = errors.New("failed to publish due to timeout reached")
	errConnectTimeout = errors.New("timeout reached while connecting to MQTT broker")
	errEmptyTopic     = errors.New("empty topic")
	errEmptyID        = errors.New("empty ID")
)

type PubSub interface {
	Publish(ctx context.Context, topic string, msg any) error
	Disconnect(ctx context.Context) error
}

type Config struct {
	Address  string
	ClientID string
	Username string
	Password string
	QoS      byte
	Timeout  time.Duration
	// StatusTopic receives the retained presence of the client. Empty
	// disables presence messages.
	StatusTopic string
}

// Status is the retained presence message of a gateway instance.
type Status struct {
	Status     string    `json:"status"`
	InstanceID string    `json:"instance_id"`
	Time       time.Time `json:"time"`
}

type pubsub struct {
	client mqtt.Client
	cfg    Config
	logger *slog.Logger
}

// NewPubSub connects to the broker. With a status topic, the client marks
// itself online on every (re)connect, offline on Disconnect, and leaves an
// offline will for the broker to publish if the connection drops.
func NewPubSub(cfg Config, logger *slog.Logger) (PubSub, error) {
	if cfg.ClientID == "" {
		return nil, errEmptyID
	}

	ps := &pubsub{cfg: cfg, logger: logger}
	will, err := statusMessage(cfg.ClientID, StatusOffline, time.Now())
	if err != nil {
		return nil, err
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Address).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectTimeout(connTimeout).
		SetMaxReconnectInterval(maxReconnectInterval).
		SetOnConnectHandler(ps.onConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn("MQTT connection lost", slog.Any("error", err))
		})
	if cfg.StatusTopic != "" {
		opts.SetBinaryWill(cfg.StatusTopic, will, cfg.QoS, true)
	}

	ps.client = mqtt.NewClient(opts)
	token := ps.client.Connect()
	if ok := token.WaitTimeout(cfg.Timeout); !ok {
		return nil, errConnectTimeout
	}
	if err := token.Error(); err != nil {
		return nil, errors.Join(errors.New("failed to connect to MQTT broker"), err)
	}

	return ps, nil
}

func (ps *pubsub) onConnect(_ mqtt.Client) {
	ps.logger.Info("MQTT connection established", slog.String("broker", ps.cfg.Address))
	if ps.cfg.StatusTopic == "" {
		return
	}

	// Runs on paho's connection goroutine, so the token is not awaited.
	if err := ps.publishStatus(StatusOnline); err != nil {
		ps.logger.Warn("failed to publish online status", slog.Any("error", err))
	}
}

func (ps *pubsub) publishStatus(status string) error {
	payload, err := statusMessage(ps.cfg.ClientID, status, time.Now())
	if err != nil {
		return err
	}

	return ps.client.Publish(ps.cfg.StatusTopic, ps.cfg.QoS, true, payload).Error()
}

func (ps *pubsub) Publish(ctx context.Context, topic string, msg any) error {
	if topic == "" {
		return errEmptyTopic
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return ps.wait(ctx, ps.client.Publish(topic, ps.cfg.QoS, false, data))
}

func (ps *pubsub) Disconnect(ctx context.Context) error {
	if ps.cfg.StatusTopic != "" {
		payload, err := statusMessage(ps.cfg.ClientID, StatusOffline, time.Now())
		if err == nil {
			err = ps.wait(ctx, ps.client.Publish(ps.cfg.StatusTopic, ps.cfg.QoS, true, payload))
		}
		if err != nil {
			ps.logger.Warn("failed to publish offline status", slog.Any("error", err))
		}
	}

	ps.client.Disconnect(disconnectQuiesce)

	return ctx.Err()
}

func (ps *pubsub) wait(ctx context.Context, token mqtt.Token) error {
	timer := time.NewTimer(ps.cfg.Timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return errPublishTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

func statusMessage(instanceID, status string, at time.Time) ([]byte, error) {
	return json.Marshal(Status{
		Status:     status,
		InstanceID: instanceID,
		Time:       at.UTC(),
	})
}
