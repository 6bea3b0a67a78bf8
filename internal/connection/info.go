package connection

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Info is the aggregate describing one device link: identity, current
// state, tuning parameters, quality metrics, cumulative statistics and
// free-form metadata.
//
// Invariants maintained by the mutators:
//   - CreatedAt never moves and is never in the future
//   - LastUpdated >= CreatedAt; every mutation refreshes it
//   - entering connected or connecting also refreshes LastActiveAt
//
// Info is not safe for concurrent mutation; the session manager is the
// single writer and hands out copies via Snapshot.
type Info struct {
	ConnectionID string         `json:"connection_id"`
	DeviceID     string         `json:"device_id"`
	Type         Type           `json:"type"`
	State        State          `json:"state"`
	Quality      Quality        `json:"quality"`
	Parameters   Parameters     `json:"parameters"`
	Statistics   Statistics     `json:"statistics"`
	CreatedAt    time.Time      `json:"created_at"`
	LastActiveAt *time.Time     `json:"last_active_at,omitempty"`
	LastUpdated  time.Time      `json:"last_updated"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// NewInfo creates the aggregate for a newly added device.
// The connection starts disconnected with the given parameters and a
// generated connection id.
func NewInfo(deviceID string, connType Type, params Parameters) *Info {
	now := time.Now().UTC()
	return &Info{
		ConnectionID: uuid.New().String(),
		DeviceID:     deviceID,
		Type:         connType,
		State:        StateDisconnected,
		Parameters:   params.OptimizeFor(connType),
		CreatedAt:    now,
		LastUpdated:  now,
		Metadata:     make(map[string]any),
	}
}

// SetState transitions the connection to a new state, refreshing
// LastUpdated and, for active states, LastActiveAt.
func (i *Info) SetState(s State) {
	i.State = s
	now := time.Now().UTC()
	i.LastUpdated = now
	if s.IsActive() {
		i.LastActiveAt = &now
	}
}

// UpdateQuality applies a partial metrics update and refreshes LastUpdated.
func (i *Info) UpdateQuality(u MetricsUpdate) {
	i.Quality = i.Quality.UpdateMetrics(u)
	i.LastUpdated = time.Now().UTC()
}

// UpdateParameters replaces the tuning parameters (re-optimized for the
// connection's transport type) and refreshes LastUpdated.
func (i *Info) UpdateParameters(p Parameters) {
	i.Parameters = p.OptimizeFor(i.Type)
	i.LastUpdated = time.Now().UTC()
}

// UpdateStatistics replaces the statistics value and refreshes LastUpdated.
func (i *Info) UpdateStatistics(s Statistics) {
	i.Statistics = s
	i.LastUpdated = time.Now().UTC()
}

// SetMetadata stores a metadata entry and refreshes LastUpdated.
func (i *Info) SetMetadata(key string, value any) {
	if i.Metadata == nil {
		i.Metadata = make(map[string]any)
	}
	i.Metadata[key] = value
	i.LastUpdated = time.Now().UTC()
}

// Snapshot returns an independent copy of the aggregate. The metadata map
// is cloned so callers cannot mutate the original through the copy.
func (i *Info) Snapshot() Info {
	cpy := *i

	if i.Metadata != nil {
		cpy.Metadata = make(map[string]any, len(i.Metadata))
		for k, v := range i.Metadata {
			cpy.Metadata[k] = v
		}
	}
	if i.LastActiveAt != nil {
		t := *i.LastActiveAt
		cpy.LastActiveAt = &t
	}
	if i.Quality.SignalStrength != nil {
		v := *i.Quality.SignalStrength
		cpy.Quality.SignalStrength = &v
	}

	return cpy
}

// Summary returns a one-line human-readable description of the link.
func (i *Info) Summary() string {
	return fmt.Sprintf("%s (%s): %s, quality %s (%.0f), health %s",
		i.DeviceID, i.Type, i.State,
		i.Quality.Level(), i.Quality.Score(),
		i.Statistics.HealthStatus())
}
