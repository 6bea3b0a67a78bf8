package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/homelink/homelink-core/internal/session"
)

// Maximum payload size for MQTT messages (1MB).
// This prevents resource exhaustion and aligns with typical broker limits.
const maxPayloadSize = 1 << 20 // 1MB

// Client implements session.Transport over paho.mqtt.golang.
//
// A Client may be connected and disconnected repeatedly; each Connect builds
// a fresh paho client from the supplied configuration.
type Client struct {
	mu     sync.Mutex
	client pahomqtt.Client
	cfg    session.TransportConfig

	logger Logger
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets a logger for handler errors and recovered panics.
// If not set, errors in handlers are silently ignored.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a disconnected MQTT transport.
func New(opts ...Option) *Client {
	c := &Client{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ session.Transport = (*Client)(nil)

// Connect establishes a connection to the MQTT broker.
//
// It builds connection options from cfg (broker URL, auth, TLS, LWT),
// attempts the connection, and waits for the broker's acknowledgment within
// the context deadline.
func (c *Client) Connect(ctx context.Context, cfg session.TransportConfig) error {
	opts := buildClientOptions(cfg)

	opts.SetDefaultPublishHandler(c.wrapHandler(cfg.OnMessage))
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		if logger := c.getLogger(); logger != nil {
			logger.Warn("MQTT connection lost", "error", err)
		}
	})

	client := pahomqtt.NewClient(opts)

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	if err := waitToken(ctx, client.Connect(), timeout); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	c.mu.Lock()
	// Drop a previous session that was never torn down.
	if c.client != nil && c.client.IsConnectionOpen() {
		c.client.Disconnect(defaultDisconnectQuiesce)
	}
	c.client = client
	c.cfg = cfg
	c.mu.Unlock()

	return nil
}

// Disconnect tears the broker session down, allowing a quiesce period for
// in-flight operations. Disconnecting an already-closed client is not an
// error.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	client := c.client
	c.client = nil
	c.mu.Unlock()

	if client == nil {
		return nil
	}
	client.Disconnect(defaultDisconnectQuiesce)
	return nil
}

// Publish sends a message to the specified MQTT topic.
//
// QoS Levels:
//   - 0: At most once (fire and forget)
//   - 1: At least once (guaranteed delivery, may duplicate)
//   - 2: Exactly once (guaranteed, no duplicates, higher overhead)
func (c *Client) Publish(ctx context.Context, topic string, payload []byte, qos byte, retain bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes",
			ErrPublishFailed, len(payload), maxPayloadSize)
	}

	client := c.current()
	if client == nil || !client.IsConnectionOpen() {
		return ErrNotConnected
	}

	if err := waitToken(ctx, client.Publish(topic, qos, retain, payload), defaultOperationTimeout); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// Subscribe registers interest in topics at the configured QoS. Inbound
// payloads are delivered through the OnMessage callback supplied at Connect.
//
// Topics can include MQTT wildcards:
//   - + (single-level): "status/+" matches any device
//   - # (multi-level): "msg/#" matches all notification topics
func (c *Client) Subscribe(ctx context.Context, topics ...string) error {
	c.mu.Lock()
	client := c.client
	qos := c.cfg.QoS
	handler := c.wrapHandler(c.cfg.OnMessage)
	c.mu.Unlock()

	if client == nil || !client.IsConnectionOpen() {
		return ErrNotConnected
	}

	filters := make(map[string]byte, len(topics))
	for _, topic := range topics {
		if topic == "" {
			return ErrInvalidTopic
		}
		filters[topic] = qos
	}

	if err := waitToken(ctx, client.SubscribeMultiple(filters, handler), defaultOperationTimeout); err != nil {
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}
	return nil
}

// Unsubscribe removes interest in topics. Messages already in flight may
// still be delivered.
func (c *Client) Unsubscribe(ctx context.Context, topics ...string) error {
	for _, topic := range topics {
		if topic == "" {
			return ErrInvalidTopic
		}
	}

	client := c.current()
	if client == nil || !client.IsConnectionOpen() {
		return ErrNotConnected
	}

	if err := waitToken(ctx, client.Unsubscribe(topics...), defaultOperationTimeout); err != nil {
		return fmt.Errorf("%w: %w", ErrUnsubscribeFailed, err)
	}
	return nil
}

// CheckLiveness reports whether the broker session's network connection is
// still open. Paho's own keepalive PINGs mark the connection closed when the
// broker stops responding.
func (c *Client) CheckLiveness(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	default:
	}

	client := c.current()
	return client != nil && client.IsConnectionOpen()
}

// current returns the active paho client (may be nil).
func (c *Client) current() pahomqtt.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client
}

// getLogger returns the current logger (may be nil).
func (c *Client) getLogger() Logger {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.logger
}

// wrapHandler adapts the delivery callback to paho's handler signature with
// panic recovery. Handlers are invoked on paho's delivery goroutines.
func (c *Client) wrapHandler(deliver func(topic string, payload []byte)) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				if logger := c.getLogger(); logger != nil {
					logger.Error("MQTT handler panic recovered",
						"topic", msg.Topic(),
						"panic", r,
					)
				}
			}
		}()

		if deliver == nil {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("MQTT message dropped: no delivery callback",
					"topic", msg.Topic(),
				)
			}
			return
		}
		deliver(msg.Topic(), msg.Payload())
	}
}

// waitToken waits for a paho token to complete, bounded by the context
// deadline when one is set and by timeout otherwise.
func waitToken(ctx context.Context, token pahomqtt.Token, timeout time.Duration) error {
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ErrTimeout
		}
		timeout = remaining
	}
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("%w: no acknowledgment after %v", ErrTimeout, timeout)
	}
	return token.Error()
}
