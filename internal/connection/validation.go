package connection

import (
	"fmt"
	"time"
)

// Validation warning thresholds. Values beyond these are legal but
// almost always a configuration mistake.
const (
	warnConnectTimeoutAbove = 300 * time.Second
	warnMaxAttemptsAbove    = 20
	warnBufferSizeAbove     = 65536
)

// ValidationResult is the structured outcome of Validate.
// A result is invalid iff at least one error is present; warnings never
// affect validity.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// addError appends an error and marks the result invalid.
func (r *ValidationResult) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Valid = false
}

// addWarning appends a warning without affecting validity.
func (r *ValidationResult) addWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Validate checks the parameter values for errors and suspicious settings.
func (p Parameters) Validate() ValidationResult {
	result := ValidationResult{Valid: true}

	if p.ConnectTimeout <= 0 {
		result.addError("connect timeout must be positive, got %v", p.ConnectTimeout)
	}
	if p.ReadTimeout <= 0 {
		result.addError("read timeout must be positive, got %v", p.ReadTimeout)
	}
	if p.WriteTimeout <= 0 {
		result.addError("write timeout must be positive, got %v", p.WriteTimeout)
	}
	if p.HeartbeatInterval <= 0 {
		result.addError("heartbeat interval must be positive, got %v", p.HeartbeatInterval)
	}
	if p.ReconnectInterval <= 0 {
		result.addError("reconnect interval must be positive, got %v", p.ReconnectInterval)
	}
	if p.MaxReconnectAttempts < 0 {
		result.addError("max reconnect attempts cannot be negative, got %d", p.MaxReconnectAttempts)
	}
	if p.BufferSize <= 0 {
		result.addError("buffer size must be positive, got %d", p.BufferSize)
	}

	if p.ConnectTimeout > warnConnectTimeoutAbove {
		result.addWarning("connect timeout %v is unusually long (>%v)", p.ConnectTimeout, warnConnectTimeoutAbove)
	}
	if p.MaxReconnectAttempts > warnMaxAttemptsAbove {
		result.addWarning("max reconnect attempts %d is unusually high (>%d)", p.MaxReconnectAttempts, warnMaxAttemptsAbove)
	}
	if p.BufferSize > warnBufferSizeAbove {
		result.addWarning("buffer size %d is unusually large (>%d)", p.BufferSize, warnBufferSizeAbove)
	}

	return result
}

// Validate checks the quality metrics for out-of-range values.
// UpdateMetrics clamps on the way in, so errors here indicate a value
// constructed by hand.
func (q Quality) Validate() ValidationResult {
	result := ValidationResult{Valid: true}

	if q.Stability < 0 || q.Stability > 1 {
		result.addError("stability must be within [0,1], got %v", q.Stability)
	}
	if q.PacketLoss < 0 || q.PacketLoss > 1 {
		result.addError("packet loss must be within [0,1], got %v", q.PacketLoss)
	}
	if q.ErrorRate < 0 || q.ErrorRate > 1 {
		result.addError("error rate must be within [0,1], got %v", q.ErrorRate)
	}
	if q.Latency < 0 {
		result.addError("latency cannot be negative, got %v", q.Latency)
	}
	if q.Throughput < 0 {
		result.addError("throughput cannot be negative, got %v", q.Throughput)
	}

	return result
}

// Validate checks the aggregate: parameter and quality validity plus the
// timestamp invariants.
func (i *Info) Validate() ValidationResult {
	result := ValidationResult{Valid: true}

	params := i.Parameters.Validate()
	result.Errors = append(result.Errors, params.Errors...)
	result.Warnings = append(result.Warnings, params.Warnings...)

	quality := i.Quality.Validate()
	result.Errors = append(result.Errors, quality.Errors...)
	result.Warnings = append(result.Warnings, quality.Warnings...)

	now := time.Now().UTC()
	if i.CreatedAt.After(now) {
		result.addError("created_at %v is in the future", i.CreatedAt)
	}
	if i.LastUpdated.Before(i.CreatedAt) {
		result.addError("last_updated %v precedes created_at %v", i.LastUpdated, i.CreatedAt)
	}
	if i.DeviceID == "" {
		result.addError("device id is required")
	}
	if !i.State.IsValid() {
		result.addError("unknown connection state %q", i.State)
	}

	result.Valid = len(result.Errors) == 0
	return result
}
