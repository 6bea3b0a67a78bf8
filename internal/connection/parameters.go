package connection

import "time"

// Type identifies the transport technology behind a connection.
type Type string

// Connection types.
const (
	// TypeMQTT is a broker-backed pub/sub link.
	TypeMQTT Type = "mqtt"

	// TypeBLE is a short-range radio link to a nearby device.
	TypeBLE Type = "ble"

	// TypeCloud is a long-haul link to a vendor cloud service.
	TypeCloud Type = "cloud"
)

// Priority expresses how a connection should be scheduled relative to others.
type Priority string

// Connection priorities.
const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// QoS is the delivery guarantee requested for published messages.
type QoS string

// Quality-of-service levels, mirroring the MQTT levels 0/1/2.
const (
	// QoSAtMostOnce is fire-and-forget delivery (MQTT QoS 0).
	QoSAtMostOnce QoS = "at_most_once"

	// QoSAtLeastOnce guarantees delivery but may duplicate (MQTT QoS 1).
	QoSAtLeastOnce QoS = "at_least_once"

	// QoSExactlyOnce guarantees exactly-once delivery (MQTT QoS 2).
	QoSExactlyOnce QoS = "exactly_once"
)

// Byte returns the MQTT wire representation of the QoS level.
func (q QoS) Byte() byte {
	switch q {
	case QoSAtLeastOnce:
		return 1
	case QoSExactlyOnce:
		return 2
	default:
		return 0
	}
}

// Parameter clamp limits applied by OptimizeFor.
const (
	// bleMaxConnectTimeout caps connect timeouts on short-range radio links.
	bleMaxConnectTimeout = 30 * time.Second

	// bleMaxBufferSize caps buffers on short-range radio links (MTU-bound).
	bleMaxBufferSize = 4096
)

// Parameters is an immutable set of connection tuning values.
//
// Construct via NewParameters or one of the presets; OptimizeFor returns an
// adjusted copy rather than mutating in place.
type Parameters struct {
	ConnectTimeout       time.Duration `json:"connect_timeout"`
	ReadTimeout          time.Duration `json:"read_timeout"`
	WriteTimeout         time.Duration `json:"write_timeout"`
	HeartbeatInterval    time.Duration `json:"heartbeat_interval"`
	ReconnectInterval    time.Duration `json:"reconnect_interval"`
	MaxReconnectAttempts int           `json:"max_reconnect_attempts"`
	AutoReconnect        bool          `json:"auto_reconnect"`
	EnableHeartbeat      bool          `json:"enable_heartbeat"`
	BufferSize           int           `json:"buffer_size"`
	Priority             Priority      `json:"priority"`
	QoS                  QoS           `json:"qos"`
}

// ParameterFields holds named fields for constructing Parameters.
// Zero-valued fields fall back to the default preset.
type ParameterFields struct {
	ConnectTimeout       time.Duration
	ReadTimeout          time.Duration
	WriteTimeout         time.Duration
	HeartbeatInterval    time.Duration
	ReconnectInterval    time.Duration
	MaxReconnectAttempts *int
	AutoReconnect        *bool
	EnableHeartbeat      *bool
	BufferSize           int
	Priority             Priority
	QoS                  QoS
}

// DefaultParameters returns the baseline parameter set used when nothing
// more specific is requested.
func DefaultParameters() Parameters {
	return Parameters{
		ConnectTimeout:       10 * time.Second,
		ReadTimeout:          30 * time.Second,
		WriteTimeout:         30 * time.Second,
		HeartbeatInterval:    30 * time.Second,
		ReconnectInterval:    5 * time.Second,
		MaxReconnectAttempts: 3,
		AutoReconnect:        true,
		EnableHeartbeat:      true,
		BufferSize:           8192,
		Priority:             PriorityNormal,
		QoS:                  QoSAtLeastOnce,
	}
}

// NewParameters builds a Parameters value from named fields, filling any
// unset field from DefaultParameters.
func NewParameters(f ParameterFields) Parameters {
	p := DefaultParameters()

	if f.ConnectTimeout > 0 {
		p.ConnectTimeout = f.ConnectTimeout
	}
	if f.ReadTimeout > 0 {
		p.ReadTimeout = f.ReadTimeout
	}
	if f.WriteTimeout > 0 {
		p.WriteTimeout = f.WriteTimeout
	}
	if f.HeartbeatInterval > 0 {
		p.HeartbeatInterval = f.HeartbeatInterval
	}
	if f.ReconnectInterval > 0 {
		p.ReconnectInterval = f.ReconnectInterval
	}
	if f.MaxReconnectAttempts != nil {
		p.MaxReconnectAttempts = *f.MaxReconnectAttempts
	}
	if f.AutoReconnect != nil {
		p.AutoReconnect = *f.AutoReconnect
	}
	if f.EnableHeartbeat != nil {
		p.EnableHeartbeat = *f.EnableHeartbeat
	}
	if f.BufferSize > 0 {
		p.BufferSize = f.BufferSize
	}
	if f.Priority != "" {
		p.Priority = f.Priority
	}
	if f.QoS != "" {
		p.QoS = f.QoS
	}

	return p
}

// HighPerformanceParameters favours latency over power consumption:
// short timeouts, aggressive heartbeats, large buffers.
func HighPerformanceParameters() Parameters {
	return Parameters{
		ConnectTimeout:       5 * time.Second,
		ReadTimeout:          10 * time.Second,
		WriteTimeout:         10 * time.Second,
		HeartbeatInterval:    10 * time.Second,
		ReconnectInterval:    1 * time.Second,
		MaxReconnectAttempts: 5,
		AutoReconnect:        true,
		EnableHeartbeat:      true,
		BufferSize:           32768,
		Priority:             PriorityHigh,
		QoS:                  QoSAtLeastOnce,
	}
}

// LowPowerParameters favours battery life: long intervals, heartbeat off,
// small buffers.
func LowPowerParameters() Parameters {
	return Parameters{
		ConnectTimeout:       30 * time.Second,
		ReadTimeout:          120 * time.Second,
		WriteTimeout:         120 * time.Second,
		HeartbeatInterval:    300 * time.Second,
		ReconnectInterval:    60 * time.Second,
		MaxReconnectAttempts: 2,
		AutoReconnect:        false,
		EnableHeartbeat:      false,
		BufferSize:           1024,
		Priority:             PriorityLow,
		QoS:                  QoSAtMostOnce,
	}
}

// ReliableParameters favours delivery guarantees: generous timeouts,
// unbounded-feeling retry budget, exactly-once QoS.
func ReliableParameters() Parameters {
	return Parameters{
		ConnectTimeout:       20 * time.Second,
		ReadTimeout:          60 * time.Second,
		WriteTimeout:         60 * time.Second,
		HeartbeatInterval:    15 * time.Second,
		ReconnectInterval:    5 * time.Second,
		MaxReconnectAttempts: 10,
		AutoReconnect:        true,
		EnableHeartbeat:      true,
		BufferSize:           16384,
		Priority:             PriorityHigh,
		QoS:                  QoSExactlyOnce,
	}
}

// OptimizeFor returns a copy of p adjusted for the given transport type.
//
// Short-range radio links (BLE) cap the connect timeout at 30s and the
// buffer at 4096 bytes. Broker-backed links (MQTT) force the heartbeat on
// and require at-least-once delivery, since the session manager depends on
// keep-alive probes and acknowledged publishes for that transport.
// Unknown types are returned unchanged.
func (p Parameters) OptimizeFor(t Type) Parameters {
	out := p

	switch t {
	case TypeBLE:
		if out.ConnectTimeout > bleMaxConnectTimeout {
			out.ConnectTimeout = bleMaxConnectTimeout
		}
		if out.BufferSize > bleMaxBufferSize {
			out.BufferSize = bleMaxBufferSize
		}
	case TypeMQTT:
		out.EnableHeartbeat = true
		if out.QoS == QoSAtMostOnce {
			out.QoS = QoSAtLeastOnce
		}
	case TypeCloud:
		// Cloud links take the caller's values as-is.
	}

	return out
}
