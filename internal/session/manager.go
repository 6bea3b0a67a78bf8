package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/homelink/homelink-core/internal/comms"
	"github.com/homelink/homelink-core/internal/connection"
	"github.com/homelink/homelink-core/internal/dispatch"
)

// Session manager timing constants.
const (
	// persistTimeout bounds store calls so a slow disk never wedges the
	// session lifecycle.
	persistTimeout = 5 * time.Second

	// probeTimeout bounds each keep-alive liveness check.
	probeTimeout = 10 * time.Second

	// qualitySmoothing is the EMA factor for probe-derived quality
	// metrics (new sample weight).
	qualitySmoothing = 0.3
)

// Sentinel errors.
var (
	// ErrConnectInProgress is returned when Connect is called while
	// another Connect on the same session has not finished.
	ErrConnectInProgress = errors.New("session: connect already in progress")

	// ErrNoTopics is returned when Subscribe/Unsubscribe is called with
	// an empty topic list.
	ErrNoTopics = errors.New("session: at least one topic is required")
)

// Logger is the optional logging interface for the Manager.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// MetricsSink receives quality samples and session events for long-term
// storage. Implemented by the InfluxDB writer; optional.
type MetricsSink interface {
	RecordQuality(deviceID string, quality connection.Quality)
	RecordSessionEvent(deviceID, event string)
}

// Deps holds the collaborators the Manager is constructed with.
type Deps struct {
	// Transport is the wire adapter. Required.
	Transport Transport

	// Store persists the session record. Required.
	Store Store

	// Identity supplies user id and token for client-id construction.
	// Optional.
	Identity Identity

	// Logger receives structured log events. Optional.
	Logger Logger

	// Metrics receives quality samples and session events. Optional.
	Metrics MetricsSink

	// DeviceID identifies the peer this session talks to in the
	// connection aggregate. Required.
	DeviceID string
}

// Manager is the reconnecting session engine. It implements comms.Service.
//
// A single Manager owns one transport session. All mutable state (the
// connection aggregate, the live topic set, the probe/reconnect lifecycles)
// is guarded by one mutex; the state and message feeds fan events out to
// consumers without ever blocking the Manager.
type Manager struct {
	transport Transport
	store     Store
	identity  Identity
	logger    Logger
	metrics   MetricsSink
	deviceID  string

	states   *comms.StateFeed
	messages *comms.MessageFeed
	chain    *dispatch.Chain

	mu          sync.Mutex
	cfg         comms.Config
	info        *connection.Info
	topics      map[string]struct{}
	connecting  bool // re-entrancy guard for Connect
	connectedAt time.Time
	lastErr     error

	// Keep-alive probe lifecycle. Non-nil only while a probe is running.
	probeCancel context.CancelFunc

	// Reconnect lifecycle. Non-nil only while a reconnect loop is running.
	reconnectCancel context.CancelFunc
}

// Ensure the Manager satisfies the contract.
var _ comms.Service = (*Manager)(nil)

// NewManager creates a session manager from its collaborators.
// The session starts disconnected.
func NewManager(deps Deps) (*Manager, error) {
	if deps.Transport == nil {
		return nil, fmt.Errorf("session: transport is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("session: store is required")
	}
	if deps.DeviceID == "" {
		return nil, fmt.Errorf("session: device id is required")
	}

	m := &Manager{
		transport: deps.Transport,
		store:     deps.Store,
		identity:  deps.Identity,
		logger:    deps.Logger,
		metrics:   deps.Metrics,
		deviceID:  deps.DeviceID,
		states:    comms.NewStateFeed(),
		messages:  comms.NewMessageFeed(),
		info: connection.NewInfo(deps.DeviceID, connection.TypeMQTT,
			connection.DefaultParameters()),
		topics: make(map[string]struct{}),
	}

	m.chain = dispatch.NewDefaultChain(func(event comms.MessageEvent) {
		m.messages.Publish(event)
	})

	return m, nil
}

// =============================================================================
// Connect / Disconnect / Reconnect
// =============================================================================

// Connect establishes the session described by cfg.
//
// On success it starts the keep-alive probe and persists the session
// record. On failure the classified error is returned to the caller and no
// retry is scheduled. Concurrent calls do not race: the second caller gets
// ErrConnectInProgress.
func (m *Manager) Connect(ctx context.Context, cfg comms.Config) error {
	cfg = cfg.Normalize()
	if result := cfg.Parameters.Validate(); !result.Valid {
		return comms.Errorf(comms.KindInvalidConfiguration, "connect",
			"invalid parameters: %s", strings.Join(result.Errors, "; "))
	}
	if cfg.Host == "" {
		return comms.Errorf(comms.KindInvalidConfiguration, "connect", "host is required")
	}

	m.mu.Lock()
	if m.connecting {
		m.mu.Unlock()
		return ErrConnectInProgress
	}
	if m.info.State == connection.StateConnected {
		m.mu.Unlock()
		return nil
	}
	m.connecting = true
	// Supersede any in-flight reconnect loop: this Connect owns the
	// transport now, so the loop's dial must abort before its cleanup runs.
	if m.reconnectCancel != nil {
		m.reconnectCancel()
		m.reconnectCancel = nil
	}
	if cfg.ClientID == "" {
		cfg.ClientID = m.buildClientID()
	}
	m.cfg = cfg
	m.info.UpdateParameters(cfg.Parameters)
	m.setStateLocked(connection.StateConnecting, nil)
	m.mu.Unlock()

	started := time.Now()
	err := m.dial(ctx)

	m.mu.Lock()
	m.connecting = false
	if err != nil {
		kind := comms.KindConnectionFailed
		if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
			kind = comms.KindConnectionTimeout
		}
		cerr := comms.NewError(kind, "connect", err)
		m.info.UpdateStatistics(
			m.info.Statistics.RecordConnection(false, 0).RecordError())
		m.lastErr = cerr
		m.setStateLocked(connection.StateDisconnected, cerr)
		m.mu.Unlock()
		return cerr
	}

	m.info.UpdateStatistics(
		m.info.Statistics.RecordConnection(true, time.Since(started).Seconds()))
	m.connectedAt = time.Now()
	m.setStateLocked(connection.StateConnected, nil)
	m.startProbeLocked()
	m.mu.Unlock()

	m.announcePresence(ctx, "online")
	m.persist(ctx)

	if m.logger != nil {
		m.logger.Info("session connected",
			"broker", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			"client_id", cfg.ClientID,
		)
	}
	return nil
}

// dial performs one transport connect attempt with the configured timeout.
func (m *Manager) dial(ctx context.Context) error {
	m.mu.Lock()
	cfg := m.cfg
	m.mu.Unlock()

	dialCtx, cancel := context.WithTimeout(ctx, cfg.Parameters.ConnectTimeout)
	defer cancel()

	tcfg := TransportConfig{
		Host:           cfg.Host,
		Port:           cfg.Port,
		TLS:            cfg.TLS,
		ClientID:       cfg.ClientID,
		Username:       cfg.Username,
		Password:       cfg.Password,
		CleanSession:   cfg.CleanSession,
		KeepAlive:      cfg.Parameters.HeartbeatInterval,
		ConnectTimeout: cfg.Parameters.ConnectTimeout,
		WillTopic:      cfg.WillTopic,
		WillPayload:    cfg.WillPayload,
		QoS:            cfg.Parameters.QoS.Byte(),
		OnMessage:      m.handleInbound,
	}
	if tcfg.WillTopic == "" {
		tcfg.WillTopic = dispatch.TopicPrefixWill + cfg.ClientID
		tcfg.WillPayload = []byte("offline")
	}

	return m.transport.Connect(dialCtx, tcfg)
}

// buildClientID derives a stable client id from the identity provider,
// falling back to a random one. Caller holds m.mu.
func (m *Manager) buildClientID() string {
	if m.identity != nil {
		if userID := m.identity.UserID(); userID != "" {
			return fmt.Sprintf("homelink-%s-%s", userID, m.deviceID)
		}
	}
	return fmt.Sprintf("homelink-%s-%s", m.deviceID, uuid.New().String()[:8])
}

// Disconnect tears the session down. It is idempotent: it cancels the
// keep-alive probe and any in-flight reconnect, clears the live topic set,
// and persists the cleared record.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	m.stopProbeLocked()
	if m.reconnectCancel != nil {
		m.reconnectCancel()
		m.reconnectCancel = nil
	}
	wasConnected := m.info.State == connection.StateConnected
	m.topics = make(map[string]struct{})
	m.setStateLocked(connection.StateDisconnected, nil)
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if wasConnected {
		m.announcePresence(ctx, "offline")
		if err := m.transport.Disconnect(); err != nil && m.logger != nil {
			m.logger.Warn("transport disconnect failed", "error", err)
		}
	}

	m.persist(ctx)
	return nil
}

// Reconnect drops and re-establishes the current session.
func (m *Manager) Reconnect(ctx context.Context) error {
	m.mu.Lock()
	cfg := m.cfg
	topics := m.topicListLocked()
	m.mu.Unlock()

	if err := m.Disconnect(); err != nil {
		return err
	}
	if err := m.Connect(ctx, cfg); err != nil {
		return err
	}
	if len(topics) > 0 {
		return m.Subscribe(ctx, topics...)
	}
	return nil
}

// CheckConnection reports whether the session is currently usable.
func (m *Manager) CheckConnection() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.info.State.CanSend()
}

// =============================================================================
// Keep-alive probe and reconnect loop
// =============================================================================

// startProbeLocked launches the periodic keep-alive probe. Caller holds
// m.mu. No-op when the configuration disables the heartbeat.
func (m *Manager) startProbeLocked() {
	if !m.cfg.Parameters.EnableHeartbeat {
		return
	}
	m.stopProbeLocked()

	ctx, cancel := context.WithCancel(context.Background())
	m.probeCancel = cancel

	go m.probeLoop(ctx, m.cfg.Parameters.HeartbeatInterval)
}

// stopProbeLocked cancels the running probe, if any. Caller holds m.mu.
func (m *Manager) stopProbeLocked() {
	if m.probeCancel != nil {
		m.probeCancel()
		m.probeCancel = nil
	}
}

// probeLoop asks the transport for liveness on a fixed interval. A negative
// result hands control to the reconnect loop and exits; the next probe is
// started by the reconnect path on success.
func (m *Manager) probeLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			started := time.Now()
			probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
			alive := m.transport.CheckLiveness(probeCtx)
			cancel()

			m.recordProbe(alive, time.Since(started))

			if !alive {
				m.mu.Lock()
				autoReconnect := m.cfg.Parameters.AutoReconnect
				m.mu.Unlock()

				if !autoReconnect {
					if m.logger != nil {
						m.logger.Warn("keep-alive probe failed, auto-reconnect disabled")
					}
					_ = m.Disconnect()
					return
				}
				if m.logger != nil {
					m.logger.Warn("keep-alive probe failed, starting reconnect")
				}
				m.beginReconnect()
				return
			}
		}
	}
}

// recordProbe folds one probe result into the quality metrics via an
// exponential moving average.
func (m *Manager) recordProbe(alive bool, rtt time.Duration) {
	m.mu.Lock()

	success := 0.0
	if alive {
		success = 1.0
	}
	stability := m.info.Quality.Stability*(1-qualitySmoothing) + success*qualitySmoothing
	latency := m.info.Quality.Latency
	if alive {
		latency = latency*(1-qualitySmoothing) + float64(rtt.Milliseconds())*qualitySmoothing
	}
	m.info.UpdateQuality(connection.MetricsUpdate{
		Stability: &stability,
		Latency:   &latency,
	})
	if !alive {
		m.info.UpdateStatistics(m.info.Statistics.RecordError())
	}
	quality := m.info.Quality
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.RecordQuality(m.deviceID, quality)
	}
}

// beginReconnect transitions to reconnecting and runs the bounded retry
// loop. Attempts are abandoned as soon as the state leaves reconnecting
// (e.g. an intervening Disconnect).
func (m *Manager) beginReconnect() {
	m.mu.Lock()
	if m.info.State != connection.StateConnected {
		m.mu.Unlock()
		return
	}
	m.stopProbeLocked()
	m.setStateLocked(connection.StateReconnecting, nil)

	ctx, cancel := context.WithCancel(context.Background())
	m.reconnectCancel = cancel
	params := m.cfg.Parameters
	m.mu.Unlock()

	go m.reconnectLoop(ctx, params)
}

// reconnectLoop retries the connect path up to MaxReconnectAttempts times.
// Exhaustion transitions to failed and emits an error event on the state
// feed; success restores subscriptions and restarts the probe.
func (m *Manager) reconnectLoop(ctx context.Context, params connection.Parameters) {
	var lastErr error

	for attempt := 1; attempt <= params.MaxReconnectAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(params.ReconnectInterval):
		}

		m.mu.Lock()
		if m.info.State != connection.StateReconnecting {
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()

		if m.logger != nil {
			m.logger.Info("reconnect attempt",
				"attempt", attempt, "max", params.MaxReconnectAttempts)
		}

		if err := m.dial(ctx); err != nil {
			lastErr = err
			m.mu.Lock()
			m.info.UpdateStatistics(m.info.Statistics.RecordError())
			m.mu.Unlock()
			continue
		}

		// Restore the live subscription set on the fresh session.
		m.mu.Lock()
		topics := m.topicListLocked()
		m.mu.Unlock()
		if len(topics) > 0 {
			subCtx, cancel := context.WithTimeout(ctx, params.WriteTimeout)
			err := m.transport.Subscribe(subCtx, topics...)
			cancel()
			if err != nil {
				lastErr = err
				continue
			}
		}

		m.mu.Lock()
		if m.info.State != connection.StateReconnecting {
			// Someone else took over the lifecycle mid-attempt. Drop the
			// fresh session only when the manager is meant to be offline;
			// a superseding Connect owns the transport now.
			state := m.info.State
			m.mu.Unlock()
			if state == connection.StateDisconnected || state == connection.StateFailed {
				_ = m.transport.Disconnect()
			}
			return
		}
		m.info.UpdateStatistics(m.info.Statistics.RecordReconnection())
		m.connectedAt = time.Now()
		m.reconnectCancel = nil
		m.setStateLocked(connection.StateConnected, nil)
		m.startProbeLocked()
		m.mu.Unlock()

		m.persist(ctx)
		if m.logger != nil {
			m.logger.Info("session recovered", "attempts", attempt)
		}
		return
	}

	// Attempts exhausted. With zero configured attempts the loop body
	// never ran and there is no underlying cause to wrap.
	cause := fmt.Errorf("gave up after %d attempts", params.MaxReconnectAttempts)
	if lastErr != nil {
		cause = fmt.Errorf("gave up after %d attempts: %w", params.MaxReconnectAttempts, lastErr)
	}
	err := comms.NewError(comms.KindConnectionLost, "reconnect", cause)

	m.mu.Lock()
	if m.info.State == connection.StateReconnecting {
		m.lastErr = err
		m.reconnectCancel = nil
		m.setStateLocked(connection.StateFailed, err)
	}
	m.mu.Unlock()

	if m.logger != nil {
		m.logger.Error("reconnect exhausted", "error", err)
	}
}

// =============================================================================
// Messaging
// =============================================================================

// SendMessage publishes msg with the default timeout, discarding the
// response payload.
func (m *Manager) SendMessage(ctx context.Context, msg comms.Message) error {
	_, err := m.SendMessageWithResponse(ctx, msg, comms.DefaultSendTimeout)
	return err
}

// SendMessageWithResponse publishes msg and waits up to timeout for the
// transport to confirm delivery. The returned message is the delivery
// acknowledgment; for pub/sub transports it carries no payload.
func (m *Manager) SendMessageWithResponse(ctx context.Context, msg comms.Message, timeout time.Duration) (comms.Message, error) {
	if msg.Topic == "" {
		return comms.Message{}, comms.Errorf(comms.KindInvalidMessage, "send", "topic is required")
	}

	m.mu.Lock()
	canSend := m.info.State.CanSend()
	qos := msg.QoS
	if qos == "" {
		qos = m.cfg.Parameters.QoS
	}
	m.mu.Unlock()

	if !canSend {
		return comms.Message{}, comms.Errorf(comms.KindConnectionLost, "send",
			"session is not connected")
	}

	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := m.transport.Publish(sendCtx, msg.Topic, msg.Payload, qos.Byte(), msg.Retained)

	m.mu.Lock()
	m.info.UpdateStatistics(m.info.Statistics.RecordMessage(err == nil))
	if err == nil {
		m.info.UpdateStatistics(m.info.Statistics.RecordTraffic(int64(len(msg.Payload)), 0))
	} else {
		m.info.UpdateStatistics(m.info.Statistics.RecordError())
		m.lastErr = err
	}
	m.mu.Unlock()

	if err != nil {
		if sendCtx.Err() != nil {
			return comms.Message{}, comms.NewError(comms.KindTimeout, "send", err)
		}
		return comms.Message{}, comms.NewError(comms.KindMessageSendFailed, "send", err)
	}

	return comms.Message{ID: msg.ID, Topic: msg.Topic}, nil
}

// handleInbound routes every payload from the transport through the
// dispatch chain. Runs on the transport's delivery goroutine.
func (m *Manager) handleInbound(topic string, payload []byte) {
	m.mu.Lock()
	m.info.UpdateStatistics(m.info.Statistics.RecordTraffic(0, int64(len(payload))))
	m.mu.Unlock()

	m.chain.Dispatch(topic, payload)
}

// =============================================================================
// Subscriptions
// =============================================================================

// Subscribe adds topics to the live subscription set, connecting first if
// the session is down, and persists the updated record.
func (m *Manager) Subscribe(ctx context.Context, topics ...string) error {
	if len(topics) == 0 {
		return ErrNoTopics
	}

	if !m.CheckConnection() {
		m.mu.Lock()
		cfg := m.cfg
		m.mu.Unlock()
		if err := m.Connect(ctx, cfg); err != nil {
			return err
		}
	}

	if err := m.transport.Subscribe(ctx, topics...); err != nil {
		m.mu.Lock()
		m.info.UpdateStatistics(m.info.Statistics.RecordError())
		m.mu.Unlock()
		return comms.NewError(comms.KindSubscriptionFailed, "subscribe", err)
	}

	// Replace the set wholesale so observers never see a partial update.
	m.mu.Lock()
	next := make(map[string]struct{}, len(m.topics)+len(topics))
	for t := range m.topics {
		next[t] = struct{}{}
	}
	for _, t := range topics {
		next[t] = struct{}{}
	}
	m.topics = next
	m.mu.Unlock()

	m.persist(ctx)
	return nil
}

// Unsubscribe removes topics from the live subscription set and persists
// the updated record. Removing the last remaining topic collapses into a
// full Disconnect.
func (m *Manager) Unsubscribe(ctx context.Context, topics ...string) error {
	if len(topics) == 0 {
		return ErrNoTopics
	}

	if err := m.transport.Unsubscribe(ctx, topics...); err != nil {
		return comms.NewError(comms.KindSubscriptionFailed, "unsubscribe", err)
	}

	m.mu.Lock()
	next := make(map[string]struct{}, len(m.topics))
	for t := range m.topics {
		next[t] = struct{}{}
	}
	for _, t := range topics {
		delete(next, t)
	}
	m.topics = next
	empty := len(next) == 0
	m.mu.Unlock()

	if empty {
		// A session with nothing to listen to is torn down entirely.
		return m.Disconnect()
	}

	m.persist(ctx)
	return nil
}

// =============================================================================
// Persistence and restore
// =============================================================================

// Restore loads the persisted session record and re-subscribes to its
// topics, which implicitly drives a connect. Called once at startup; a
// missing record is not an error.
func (m *Manager) Restore(ctx context.Context) error {
	record, err := m.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("session: loading record: %w", err)
	}
	if record == nil || len(record.Topics) == 0 {
		return nil
	}

	m.mu.Lock()
	if m.cfg.Host == "" {
		m.cfg.Host = record.Host
		m.cfg.Port = record.Port
	}
	m.mu.Unlock()

	if m.logger != nil {
		m.logger.Info("restoring session",
			"broker", fmt.Sprintf("%s:%d", record.Host, record.Port),
			"topics", len(record.Topics),
		)
	}
	return m.Subscribe(ctx, record.Topics...)
}

// persist writes the current session record. Failures are logged, not
// surfaced: persistence is best-effort bookkeeping around the live session.
func (m *Manager) persist(ctx context.Context) {
	m.mu.Lock()
	record := Record{
		Host:          m.cfg.Host,
		Port:          m.cfg.Port,
		Topics:        m.topicListLocked(),
		LastConnected: m.connectedAt,
	}.normalized()
	m.mu.Unlock()

	saveCtx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()

	if err := m.store.Save(saveCtx, record); err != nil && m.logger != nil {
		m.logger.Warn("persisting session record failed", "error", err)
	}
}

// topicListLocked snapshots the live topic set. Caller holds m.mu.
func (m *Manager) topicListLocked() []string {
	topics := make([]string, 0, len(m.topics))
	for t := range m.topics {
		topics = append(topics, t)
	}
	return topics
}

// =============================================================================
// Configuration, diagnostics and feeds
// =============================================================================

// UpdateConfiguration replaces the session configuration. The new values
// apply from the next connect.
func (m *Manager) UpdateConfiguration(cfg comms.Config) error {
	cfg = cfg.Normalize()
	if result := cfg.Parameters.Validate(); !result.Valid {
		return comms.Errorf(comms.KindInvalidConfiguration, "update_configuration",
			"invalid parameters: %s", strings.Join(result.Errors, "; "))
	}

	m.mu.Lock()
	m.cfg = cfg
	m.info.UpdateParameters(cfg.Parameters)
	m.mu.Unlock()
	return nil
}

// Diagnostics returns an on-demand snapshot of the session.
func (m *Manager) Diagnostics() comms.Diagnostics {
	m.mu.Lock()
	defer m.mu.Unlock()

	var uptime time.Duration
	if m.info.State == connection.StateConnected && !m.connectedAt.IsZero() {
		uptime = time.Since(m.connectedAt)
	}
	lastError := ""
	if m.lastErr != nil {
		lastError = m.lastErr.Error()
	}

	topics := m.topicListLocked()
	info := m.info.Snapshot()

	broker := ""
	if m.cfg.Host != "" {
		broker = fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	}

	return comms.Diagnostics{
		State:         info.State,
		Broker:        broker,
		ClientID:      m.cfg.ClientID,
		Subscriptions: topics,
		Uptime:        uptime,
		LastError:     lastError,
		Quality:       info.Quality,
		Statistics:    info.Statistics,
		GeneratedAt:   time.Now().UTC(),
	}
}

// Statistics returns the current cumulative statistics.
func (m *Manager) Statistics() connection.Statistics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.info.Statistics
}

// ResetStatistics zeroes the cumulative statistics.
func (m *Manager) ResetStatistics() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.info.UpdateStatistics(m.info.Statistics.Reset(time.Now().UTC()))
}

// Info returns a snapshot of the connection aggregate.
func (m *Manager) Info() connection.Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.info.Snapshot()
}

// StateEvents subscribes to connection-state transitions, replaying the
// latest state first.
func (m *Manager) StateEvents() (<-chan comms.StateEvent, func()) {
	return m.states.Subscribe()
}

// MessageEvents subscribes to structured inbound message events.
func (m *Manager) MessageEvents() (<-chan comms.MessageEvent, func()) {
	return m.messages.Subscribe()
}

// DispatchEntries exposes the routing table for diagnostics.
func (m *Manager) DispatchEntries() []string {
	return m.chain.Entries()
}

// WatchNetwork reacts to reachability changes from the monitor until ctx
// is cancelled: a reachable signal triggers a connect when the session is
// down; an unreachable signal is deliberately ignored (the keep-alive probe
// detects actual session loss).
func (m *Manager) WatchNetwork(ctx context.Context, monitor NetworkMonitor) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case reachable, ok := <-monitor.Events():
				if !ok {
					return
				}
				if !reachable {
					continue
				}
				m.mu.Lock()
				cfg := m.cfg
				state := m.info.State
				m.mu.Unlock()

				if state == connection.StateConnected || state.IsTransitional() || cfg.Host == "" {
					continue
				}
				if err := m.Connect(ctx, cfg); err != nil && m.logger != nil {
					m.logger.Warn("network-triggered connect failed", "error", err)
				}
			}
		}
	}()
}

// Close shuts the session down and closes both feeds.
func (m *Manager) Close() error {
	err := m.Disconnect()
	m.states.Close()
	m.messages.Close()
	return err
}

// =============================================================================
// Internal helpers
// =============================================================================

// setStateLocked transitions the aggregate and publishes the event.
// Caller holds m.mu; the feed publish is non-blocking.
func (m *Manager) setStateLocked(s connection.State, cause error) {
	if m.info.State == s && cause == nil {
		return
	}
	m.info.SetState(s)
	m.states.Publish(comms.StateEvent{
		State:     s,
		Timestamp: time.Now().UTC(),
		Err:       cause,
	})
	if m.metrics != nil {
		m.metrics.RecordSessionEvent(m.deviceID, s.String())
	}
}

// announcePresence publishes a retained presence message on the session's
// will topic, mirroring what the broker would announce on ungraceful
// disconnect. Best-effort.
func (m *Manager) announcePresence(ctx context.Context, status string) {
	m.mu.Lock()
	clientID := m.cfg.ClientID
	qos := m.cfg.Parameters.QoS.Byte()
	m.mu.Unlock()

	if clientID == "" {
		return
	}
	topic := dispatch.TopicPrefixWill + clientID
	if err := m.transport.Publish(ctx, topic, []byte(status), qos, true); err != nil && m.logger != nil {
		m.logger.Debug("presence announce failed", "status", status, "error", err)
	}
}
