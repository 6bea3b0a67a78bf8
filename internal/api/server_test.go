package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/homelink/homelink-core/internal/comms"
	"github.com/homelink/homelink-core/internal/connection"
	"github.com/homelink/homelink-core/internal/infrastructure/config"
	"github.com/homelink/homelink-core/internal/infrastructure/logging"
	"github.com/homelink/homelink-core/internal/session"
)

// fakeTransport is an in-memory session.Transport for handler tests.
type fakeTransport struct {
	mu        sync.Mutex
	connected bool
	published []publishedMsg
}

type publishedMsg struct {
	topic   string
	payload []byte
	qos     byte
	retain  bool
}

func (f *fakeTransport) Connect(_ context.Context, _ session.TransportConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = true
	return nil
}

func (f *fakeTransport) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	return nil
}

func (f *fakeTransport) Publish(_ context.Context, topic string, payload []byte, qos byte, retain bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, publishedMsg{topic: topic, payload: payload, qos: qos, retain: retain})
	return nil
}

func (f *fakeTransport) Subscribe(_ context.Context, _ ...string) error   { return nil }
func (f *fakeTransport) Unsubscribe(_ context.Context, _ ...string) error { return nil }

func (f *fakeTransport) CheckLiveness(_ context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) publishedTopics() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	topics := make([]string, 0, len(f.published))
	for _, p := range f.published {
		topics = append(topics, p.topic)
	}
	return topics
}

// fakeStore is an in-memory session.Store.
type fakeStore struct {
	mu     sync.Mutex
	record *session.Record
}

func (f *fakeStore) Save(_ context.Context, record session.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record = &record
	return nil
}

func (f *fakeStore) Load(_ context.Context) (*session.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record, nil
}

// testServer creates a Server backed by a session manager on fake
// transport and store.
func testServer(t *testing.T) (*Server, *session.Manager, *fakeTransport) {
	t.Helper()

	transport := &fakeTransport{}
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	mgr, err := session.NewManager(session.Deps{
		Transport: transport,
		Store:     &fakeStore{},
		DeviceID:  "hub-1",
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { mgr.Close() }) //nolint:errcheck // test teardown

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		WS: config.WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logger:  log,
		Session: mgr,
		Version: "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	srv.started = time.Now()
	srv.hub = NewHub(srv.wsCfg, log)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.hub.Run(ctx)

	return srv, mgr, transport
}

// testConnConfig is a session configuration that keeps the keep-alive
// probe quiet during handler tests.
func testConnConfig() comms.Config {
	params := connection.DefaultParameters()
	params.EnableHeartbeat = false
	return comms.Config{
		Host:       "broker.local",
		Port:       1883,
		ClientID:   "homelink-test",
		Parameters: params,
	}
}

func TestHandleHealth(t *testing.T) {
	srv, _, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
	if body["version"] != "test" {
		t.Errorf("version = %v, want test", body["version"])
	}
}

func TestHandleDiagnostics(t *testing.T) {
	srv, mgr, _ := testServer(t)

	if err := mgr.Connect(context.Background(), testConnConfig()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/connection/diagnostics", nil)
	rec := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var diag comms.Diagnostics
	if err := json.Unmarshal(rec.Body.Bytes(), &diag); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if diag.State != connection.StateConnected {
		t.Errorf("state = %q, want %q", diag.State, connection.StateConnected)
	}
	if diag.Broker != "broker.local:1883" {
		t.Errorf("broker = %q, want broker.local:1883", diag.Broker)
	}
	if diag.ClientID != "homelink-test" {
		t.Errorf("client_id = %q, want homelink-test", diag.ClientID)
	}
}

func TestHandleConnection(t *testing.T) {
	srv, _, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/connection", nil)
	rec := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body struct {
		Connection connection.Info `json:"connection"`
		Summary    string          `json:"summary"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body.Connection.DeviceID != "hub-1" {
		t.Errorf("device_id = %q, want hub-1", body.Connection.DeviceID)
	}
	if body.Connection.State != connection.StateDisconnected {
		t.Errorf("state = %q, want %q", body.Connection.State, connection.StateDisconnected)
	}
	if body.Summary == "" {
		t.Error("summary is empty")
	}
}

func TestHandleStatisticsAndReset(t *testing.T) {
	srv, mgr, _ := testServer(t)
	router := srv.buildRouter()

	if err := mgr.Connect(context.Background(), testConnConfig()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/connection/statistics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body struct {
		Statistics connection.Statistics `json:"statistics"`
		Health     string                `json:"health"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body.Statistics.ConnectionCount != 1 {
		t.Errorf("connection_count = %d, want 1", body.Statistics.ConnectionCount)
	}
	if body.Health == "" {
		t.Error("health is empty")
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/connection/statistics/reset", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("reset status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := mgr.Statistics().ConnectionCount; got != 0 {
		t.Errorf("connection_count after reset = %d, want 0", got)
	}
}

func TestPublishMessage(t *testing.T) {
	srv, mgr, transport := testServer(t)

	if err := mgr.Connect(context.Background(), testConnConfig()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	body := `{"topic": "cmd/lamp-1", "payload": "{\"power\": true}", "qos": "at_least_once"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusAccepted, rec.Body.String())
	}

	found := false
	for _, topic := range transport.publishedTopics() {
		if topic == "cmd/lamp-1" {
			found = true
		}
	}
	if !found {
		t.Errorf("message not published, topics = %v", transport.publishedTopics())
	}
}

func TestPublishMessageNotConnected(t *testing.T) {
	srv, _, _ := testServer(t)

	body := `{"topic": "cmd/lamp-1", "payload": "on"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}

	var apiErr Error
	if err := json.Unmarshal(rec.Body.Bytes(), &apiErr); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if apiErr.Code != ErrCodeUnavailable {
		t.Errorf("code = %q, want %q", apiErr.Code, ErrCodeUnavailable)
	}
}

func TestPublishMessageValidation(t *testing.T) {
	srv, _, _ := testServer(t)
	router := srv.buildRouter()

	tests := []struct {
		name string
		body string
	}{
		{"invalid JSON", `{not json`},
		{"missing topic", `{"payload": "on"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestHandleMetrics(t *testing.T) {
	srv, _, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/metrics", nil)
	rec := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var metrics SystemMetrics
	if err := json.Unmarshal(rec.Body.Bytes(), &metrics); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if metrics.Version != "test" {
		t.Errorf("version = %q, want test", metrics.Version)
	}
	if metrics.Runtime.Goroutines == 0 {
		t.Error("goroutines = 0, want > 0")
	}
	if metrics.Connection.State != connection.StateDisconnected {
		t.Errorf("state = %q, want %q", metrics.Connection.State, connection.StateDisconnected)
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv, _, _ := testServer(t)
	router := srv.buildRouter()

	// Generated when absent
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID not set")
	}

	// Echoed when provided
	req = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "test-id-123")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "test-id-123" {
		t.Errorf("X-Request-ID = %q, want test-id-123", got)
	}
}

// TestLoggingMiddlewarePreservesHijack verifies the status-capturing writer
// still exposes http.Hijacker, which the WebSocket upgrade requires.
func TestLoggingMiddlewarePreservesHijack(t *testing.T) {
	srv, _, _ := testServer(t)

	handler := srv.loggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Error("response writer lost http.Hijacker")
			return
		}
		conn, buf, err := hj.Hijack()
		if err != nil {
			t.Errorf("Hijack: %v", err)
			return
		}
		//nolint:errcheck // Best-effort raw response on the hijacked connection
		buf.WriteString("HTTP/1.1 204 No Content\r\n\r\n")
		//nolint:errcheck // Best-effort flush before close
		buf.Flush()
		conn.Close()
	}))

	ts := httptest.NewServer(handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
}

func TestWebSocketSubscribeAndBroadcast(t *testing.T) {
	srv, _, _ := testServer(t)

	ts := httptest.NewServer(srv.buildRouter())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	defer resp.Body.Close()

	// Subscribe to connection state events
	sub := WSMessage{
		Type:    WSTypeSubscribe,
		ID:      "1",
		Payload: WSSubscribePayload{Channels: []string{ChannelConnectionState}},
	}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("write subscribe: %v", err)
	}

	var ack WSMessage
	if err := conn.ReadJSON(&ack); err != nil {
		t.Fatalf("read ack: %v", err)
	}
	if ack.Type != WSTypeResponse {
		t.Fatalf("ack type = %q, want %q", ack.Type, WSTypeResponse)
	}

	// Broadcast lands on the subscribed client
	srv.hub.Broadcast(ChannelConnectionState, map[string]any{"state": "connected"})

	//nolint:errcheck // Best-effort deadline for test read
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event WSMessage
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if event.Type != WSTypeEvent {
		t.Errorf("event type = %q, want %q", event.Type, WSTypeEvent)
	}
	if event.EventType != ChannelConnectionState {
		t.Errorf("event channel = %q, want %q", event.EventType, ChannelConnectionState)
	}
}

func TestWebSocketPing(t *testing.T) {
	srv, _, _ := testServer(t)

	ts := httptest.NewServer(srv.buildRouter())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	defer resp.Body.Close()

	if err := conn.WriteJSON(WSMessage{Type: WSTypePing, ID: "7"}); err != nil {
		t.Fatalf("write ping: %v", err)
	}

	//nolint:errcheck // Best-effort deadline for test read
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var pong WSMessage
	if err := conn.ReadJSON(&pong); err != nil {
		t.Fatalf("read pong: %v", err)
	}
	if pong.Type != WSTypePong {
		t.Errorf("type = %q, want %q", pong.Type, WSTypePong)
	}
	if pong.ID != "7" {
		t.Errorf("id = %q, want 7", pong.ID)
	}
}

func TestNewRequiresDeps(t *testing.T) {
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	if _, err := New(Deps{Session: nil, Logger: log}); err == nil {
		t.Error("expected error when session manager is missing")
	}
	if _, err := New(Deps{Logger: nil}); err == nil {
		t.Error("expected error when logger is missing")
	}
}
