package publish

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"github.com/google/uuid"
)

// connectWait bounds the initial broker connection attempt. A run that
// cannot reach the broker should fail fast, not hang; autopaho would
// otherwise retry forever in the background.
const connectWait = 15 * time.Second

// PahoTransport is the broker-backed Transport, built on Eclipse Paho
// v2's autopaho connection manager as a swappable adapter. TLS is
// enabled for mqtts:// and ssl:// broker schemes.
type PahoTransport struct {
	broker   string
	username string
	password string
	logger   *slog.Logger
	cm       *autopaho.ConnectionManager

	mu        sync.Mutex
	collector func(topic string)
}

// NewPahoTransport creates a transport for the given broker URL. Call
// [PahoTransport.Connect] before use and [PahoTransport.Close] when the
// run finishes.
func NewPahoTransport(broker, username, password string, logger *slog.Logger) *PahoTransport {
	return &PahoTransport{
		broker:   broker,
		username: username,
		password: password,
		logger:   logger,
	}
}

// Connect establishes the broker connection, waiting up to connectWait
// for the initial connect to succeed.
func (t *PahoTransport) Connect(ctx context.Context) error {
	brokerURL, err := url.Parse(t.broker)
	if err != nil {
		return fmt.Errorf("parse mqtt broker URL: %w", err)
	}

	pahoCfg := autopaho.ClientConfig{
		ServerUrls:      []*url.URL{brokerURL},
		KeepAlive:       30,
		ConnectUsername: t.username,
		ConnectPassword: []byte(t.password),
		OnConnectionUp: func(_ *autopaho.ConnectionManager, _ *paho.Connack) {
			t.logger.Debug("mqtt connected to broker", "broker", t.broker)
		},
		OnConnectError: func(err error) {
			t.logger.Warn("mqtt connection error", "error", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: "winsense-" + uuid.NewString(),
			OnPublishReceived: []func(paho.PublishReceived) (bool, error){
				func(pr paho.PublishReceived) (bool, error) {
					t.mu.Lock()
					collect := t.collector
					t.mu.Unlock()
					if collect != nil {
						collect(pr.Packet.Topic)
					}
					return true, nil
				},
			},
		},
	}

	if brokerURL.Scheme == "mqtts" || brokerURL.Scheme == "ssl" {
		pahoCfg.TlsCfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	cm, err := autopaho.NewConnection(ctx, pahoCfg)
	if err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}

	connCtx, cancel := context.WithTimeout(ctx, connectWait)
	defer cancel()
	if err := cm.AwaitConnection(connCtx); err != nil {
		_ = cm.Disconnect(ctx)
		return fmt.Errorf("mqtt initial connection: %w", err)
	}

	t.cm = cm
	return nil
}

// Close disconnects from the broker.
func (t *PahoTransport) Close(ctx context.Context) error {
	if t.cm == nil {
		return nil
	}
	return t.cm.Disconnect(ctx)
}

// Publish sends one message to the broker.
func (t *PahoTransport) Publish(ctx context.Context, topic string, payload []byte, retain bool, qos byte) error {
	if t.cm == nil {
		return fmt.Errorf("mqtt transport not connected")
	}
	if _, err := t.cm.Publish(ctx, &paho.Publish{
		Topic:   topic,
		Payload: payload,
		QoS:     qos,
		Retain:  retain,
	}); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// QueryRetained subscribes to filter and collects the topics of
// retained messages the broker delivers, stopping at the timeout or
// after maxMessages. Retained messages arrive immediately on subscribe,
// so the timeout is the upper bound, not the expected duration.
func (t *PahoTransport) QueryRetained(ctx context.Context, filter string, timeout time.Duration, maxMessages int) ([]string, error) {
	if t.cm == nil {
		return nil, fmt.Errorf("mqtt transport not connected")
	}

	found := make(chan string, maxMessages)
	t.mu.Lock()
	t.collector = func(topic string) {
		select {
		case found <- topic:
		default:
		}
	}
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		t.collector = nil
		t.mu.Unlock()
	}()

	if _, err := t.cm.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{{Topic: filter, QoS: 0}},
	}); err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", filter, err)
	}
	defer func() {
		unsubCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := t.cm.Unsubscribe(unsubCtx, &paho.Unsubscribe{Topics: []string{filter}}); err != nil {
			t.logger.Debug("mqtt unsubscribe failed", "filter", filter, "error", err)
		}
	}()

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	seen := make(map[string]struct{})
	var topicNames []string
	for len(topicNames) < maxMessages {
		select {
		case <-ctx.Done():
			return topicNames, nil
		case <-deadline.C:
			return topicNames, nil
		case topic := <-found:
			if _, dup := seen[topic]; dup {
				continue
			}
			seen[topic] = struct{}{}
			topicNames = append(topicNames, topic)
		}
	}
	return topicNames, nil
}
