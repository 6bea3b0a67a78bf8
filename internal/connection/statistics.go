package connection

import "time"

// Health status thresholds (success rate and error frequency).
const (
	healthySuccessRate = 0.95
	healthyErrorFreq   = 0.05
	warningSuccessRate = 0.80
	warningErrorFreq   = 0.15
)

// Performance level score weights and bands.
const (
	perfWeightConnection = 40.0
	perfWeightMessage    = 30.0
	perfWeightSpeed      = 30.0

	perfExcellentMin = 80.0
	perfGoodMin      = 60.0
	perfAverageMin   = 40.0
	perfPoorMin      = 20.0
)

// HealthStatus is the coarse health grade derived from statistics.
type HealthStatus string

// Health statuses.
const (
	HealthHealthy  HealthStatus = "healthy"
	HealthWarning  HealthStatus = "warning"
	HealthCritical HealthStatus = "critical"
)

// PerformanceLevel is the coarse performance grade derived from statistics.
type PerformanceLevel string

// Performance levels.
const (
	PerformanceExcellent PerformanceLevel = "excellent"
	PerformanceGood      PerformanceLevel = "good"
	PerformanceAverage   PerformanceLevel = "average"
	PerformancePoor      PerformanceLevel = "poor"
	PerformanceBad       PerformanceLevel = "bad"
)

// Statistics holds cumulative counters for a single connection.
//
// Rates are ratios in [0,1]; AverageConnectionTime is in seconds.
type Statistics struct {
	ConnectionCount       int64         `json:"connection_count"`
	ErrorCount            int64         `json:"error_count"`
	ReconnectionCount     int64         `json:"reconnection_count"`
	MessageCount          int64         `json:"message_count"`
	BytesSent             int64         `json:"bytes_sent"`
	BytesReceived         int64         `json:"bytes_received"`
	ConnectionSuccessRate float64       `json:"connection_success_rate"`
	MessageSuccessRate    float64       `json:"message_success_rate"`
	AverageConnectionTime float64       `json:"average_connection_time_s"`
	LastReset             time.Time     `json:"last_reset,omitempty"`
	Uptime                time.Duration `json:"uptime,omitempty"`
}

// ErrorFrequency returns errors per connection attempt, guarding against
// division by zero for fresh connections.
func (s Statistics) ErrorFrequency() float64 {
	count := s.ConnectionCount
	if count < 1 {
		count = 1
	}
	return float64(s.ErrorCount) / float64(count)
}

// HealthStatus grades the connection health.
//
// healthy:  success rate >= 0.95 and error frequency <= 0.05
// warning:  success rate >= 0.80 and error frequency <= 0.15
// critical: everything else
func (s Statistics) HealthStatus() HealthStatus {
	freq := s.ErrorFrequency()
	switch {
	case s.ConnectionSuccessRate >= healthySuccessRate && freq <= healthyErrorFreq:
		return HealthHealthy
	case s.ConnectionSuccessRate >= warningSuccessRate && freq <= warningErrorFreq:
		return HealthWarning
	default:
		return HealthCritical
	}
}

// PerformanceScore computes the 0-100 performance score:
//
//	connectionSuccessRate*40 + messageSuccessRate*30 + min(30, 30/avgConnTime)
//
// The speed term is omitted when no average connection time is recorded.
func (s Statistics) PerformanceScore() float64 {
	score := s.ConnectionSuccessRate*perfWeightConnection +
		s.MessageSuccessRate*perfWeightMessage

	if s.AverageConnectionTime > 0 {
		speed := perfWeightSpeed / s.AverageConnectionTime
		if speed > perfWeightSpeed {
			speed = perfWeightSpeed
		}
		score += speed
	}

	return score
}

// PerformanceLevel buckets the performance score.
func (s Statistics) PerformanceLevel() PerformanceLevel {
	score := s.PerformanceScore()
	switch {
	case score >= perfExcellentMin:
		return PerformanceExcellent
	case score >= perfGoodMin:
		return PerformanceGood
	case score >= perfAverageMin:
		return PerformanceAverage
	case score >= perfPoorMin:
		return PerformancePoor
	default:
		return PerformanceBad
	}
}

// RecordConnection updates the counters for a finished connection attempt.
// durationSeconds is the time the attempt took; success updates the running
// success rate and average connection time.
func (s Statistics) RecordConnection(success bool, durationSeconds float64) Statistics {
	out := s
	prev := float64(out.ConnectionCount)
	out.ConnectionCount++

	succ := 0.0
	if success {
		succ = 1.0
	}
	// Running mean over all attempts.
	out.ConnectionSuccessRate = (out.ConnectionSuccessRate*prev + succ) / float64(out.ConnectionCount)

	if success && durationSeconds > 0 {
		out.AverageConnectionTime = (out.AverageConnectionTime*prev + durationSeconds) / float64(out.ConnectionCount)
	}

	return out
}

// RecordMessage updates the message counters for one send attempt.
func (s Statistics) RecordMessage(success bool) Statistics {
	out := s
	prev := float64(out.MessageCount)
	out.MessageCount++

	succ := 0.0
	if success {
		succ = 1.0
	}
	out.MessageSuccessRate = (out.MessageSuccessRate*prev + succ) / float64(out.MessageCount)

	return out
}

// RecordError increments the error counter.
func (s Statistics) RecordError() Statistics {
	out := s
	out.ErrorCount++
	return out
}

// RecordReconnection increments the reconnection counter.
func (s Statistics) RecordReconnection() Statistics {
	out := s
	out.ReconnectionCount++
	return out
}

// RecordTraffic adds sent/received byte counts.
func (s Statistics) RecordTraffic(sent, received int64) Statistics {
	out := s
	out.BytesSent += sent
	out.BytesReceived += received
	return out
}

// Reset returns zeroed statistics stamped with the reset time.
func (s Statistics) Reset(now time.Time) Statistics {
	return Statistics{LastReset: now}
}
