package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/homelink/homelink-core/internal/comms"
	"github.com/homelink/homelink-core/internal/connection"
)

// handleConnection returns a snapshot of the connection aggregate.
func (s *Server) handleConnection(w http.ResponseWriter, _ *http.Request) {
	info := s.session.Info()
	writeJSON(w, http.StatusOK, map[string]any{
		"connection": info,
		"summary":    info.Summary(),
	})
}

// handleDiagnostics returns the full diagnostics report from the session
// manager: state, broker, subscriptions, uptime, quality, and statistics.
func (s *Server) handleDiagnostics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Diagnostics())
}

// handleStatistics returns the connection statistics counters.
func (s *Server) handleStatistics(w http.ResponseWriter, _ *http.Request) {
	stats := s.session.Statistics()
	writeJSON(w, http.StatusOK, map[string]any{
		"statistics": stats,
		"health":     stats.HealthStatus(),
	})
}

// handleResetStatistics zeroes the statistics counters.
func (s *Server) handleResetStatistics(w http.ResponseWriter, _ *http.Request) {
	s.session.ResetStatistics()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// PublishRequest is the body for POST /api/v1/messages.
type PublishRequest struct {
	Topic    string          `json:"topic"`
	Payload  string          `json:"payload"`
	QoS      *connection.QoS `json:"qos,omitempty"`
	Retained bool            `json:"retained"`
}

// handlePublishMessage publishes a message through the session manager.
func (s *Server) handlePublishMessage(w http.ResponseWriter, r *http.Request) {
	var req PublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Topic == "" {
		writeBadRequest(w, "topic is required")
		return
	}

	msg := comms.Message{
		Topic:    req.Topic,
		Payload:  []byte(req.Payload),
		Retained: req.Retained,
	}
	if req.QoS != nil {
		msg.QoS = *req.QoS
	}

	if err := s.session.SendMessage(r.Context(), msg); err != nil {
		writePublishError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "sent",
		"topic":  req.Topic,
	})
}

// writePublishError maps classified communication errors to HTTP statuses.
func writePublishError(w http.ResponseWriter, err error) {
	var commsErr *comms.Error
	if !errors.As(err, &commsErr) {
		writeInternalError(w, err.Error())
		return
	}

	switch commsErr.Kind {
	case comms.KindInvalidMessage:
		writeBadRequest(w, commsErr.Error())
	case comms.KindConnectionLost, comms.KindServiceUnavailable:
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, commsErr.Error())
	case comms.KindTimeout:
		writeError(w, http.StatusGatewayTimeout, ErrCodeTimeout, commsErr.Error())
	default:
		writeError(w, http.StatusBadGateway, ErrCodeUpstream, commsErr.Error())
	}
}
