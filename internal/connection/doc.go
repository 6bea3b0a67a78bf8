// Package connection defines the connection data model for HomeLink Core.
//
// It contains pure value types with no I/O:
//   - State: the connection lifecycle state machine values
//   - Parameters: immutable tuning values with per-transport optimization
//   - Quality: link quality metrics with a derived 0-100 score
//   - Statistics: cumulative counters with derived health/performance levels
//   - Info: the aggregate combining all of the above for a single device link
//
// All derived computations (quality score, health status, performance level,
// improvement suggestions) are deterministic functions of the value fields,
// which keeps them trivially testable. Validation returns a structured
// ValidationResult rather than failing hard, so callers can distinguish
// errors (invalid) from warnings (suspicious but usable).
//
// # Usage
//
//	params := connection.ReliableParameters().OptimizeFor(connection.TypeMQTT)
//	info := connection.NewInfo("living-room-hub", connection.TypeMQTT, params)
//	info.SetState(connection.StateConnecting)
//
//	result := info.Validate()
//	if !result.Valid {
//	    // inspect result.Errors
//	}
package connection
