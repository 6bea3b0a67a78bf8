package connection

// Quality level thresholds and score weights.
const (
	// Score contribution weights. They sum to 100 for a perfect link.
	weightStability  = 30.0
	weightLatency    = 20.0
	weightThroughput = 20.0
	weightPacketLoss = 15.0
	weightErrorRate  = 15.0

	// latencyCeilingMS is the latency at which the latency contribution
	// reaches zero. Anything above contributes nothing.
	latencyCeilingMS = 500.0

	// throughputTargetBPS is the throughput at which the throughput
	// contribution saturates.
	throughputTargetBPS = 10000.0

	// lossErrCeiling is the loss/error ratio at which the corresponding
	// contribution reaches zero. 20% loss is a dead link in practice.
	lossErrCeiling = 0.2

	// Level bucket boundaries on the 0-100 score.
	levelExcellentMin = 80.0
	levelGoodMin      = 60.0
	levelFairMin      = 40.0

	// compareThreshold is the score delta beyond which two quality values
	// are considered meaningfully different.
	compareThreshold = 10.0
)

// Improvement suggestion thresholds.
const (
	suggestStabilityBelow  = 0.8
	suggestLatencyAboveMS  = 100.0
	suggestThroughputBelow = 1000.0
	suggestPacketLossAbove = 0.05
	suggestErrorRateAbove  = 0.05
	suggestSignalBelowDBM  = -80.0
)

// Level buckets the quality score into a coarse grade.
type Level string

// Quality levels.
const (
	LevelExcellent Level = "excellent"
	LevelGood      Level = "good"
	LevelFair      Level = "fair"
	LevelPoor      Level = "poor"
)

// Trend is the result of comparing two quality values.
type Trend string

// Quality trends.
const (
	TrendImproving Trend = "improving"
	TrendDegrading Trend = "degrading"
	TrendStable    Trend = "stable"
)

// Quality holds raw link-quality metrics for a single connection.
//
// Stability, PacketLoss and ErrorRate are ratios in [0,1]; Latency is in
// milliseconds; Throughput is in bytes per second. SignalStrength is in dBm
// and is absent (nil) for transports that do not report it.
type Quality struct {
	SignalStrength *float64 `json:"signal_strength,omitempty"`
	Stability      float64  `json:"stability"`
	Latency        float64  `json:"latency_ms"`
	Throughput     float64  `json:"throughput_bps"`
	PacketLoss     float64  `json:"packet_loss"`
	ErrorRate      float64  `json:"error_rate"`
}

// MetricsUpdate carries a partial set of metric values for UpdateMetrics.
// Nil fields leave the corresponding Quality field unchanged.
type MetricsUpdate struct {
	SignalStrength *float64
	Stability      *float64
	Latency        *float64
	Throughput     *float64
	PacketLoss     *float64
	ErrorRate      *float64
}

// ExcellentQuality returns a preset representing a near-perfect link.
func ExcellentQuality() Quality {
	signal := -40.0
	return Quality{
		SignalStrength: &signal,
		Stability:      0.99,
		Latency:        10,
		Throughput:     50000,
		PacketLoss:     0.001,
		ErrorRate:      0.001,
	}
}

// GoodQuality returns a preset representing a healthy everyday link.
func GoodQuality() Quality {
	signal := -60.0
	return Quality{
		SignalStrength: &signal,
		Stability:      0.8,
		Latency:        150,
		Throughput:     5000,
		PacketLoss:     0.02,
		ErrorRate:      0.02,
	}
}

// FairQuality returns a preset representing a usable but degraded link.
func FairQuality() Quality {
	signal := -75.0
	return Quality{
		SignalStrength: &signal,
		Stability:      0.6,
		Latency:        300,
		Throughput:     1500,
		PacketLoss:     0.08,
		ErrorRate:      0.08,
	}
}

// PoorQuality returns a preset representing a barely-working link.
func PoorQuality() Quality {
	signal := -90.0
	return Quality{
		SignalStrength: &signal,
		Stability:      0.3,
		Latency:        450,
		Throughput:     200,
		PacketLoss:     0.25,
		ErrorRate:      0.2,
	}
}

// UpdateMetrics applies a partial metrics update, clamping every supplied
// value into its valid range. Absent (nil) fields are left unchanged.
// It has no side effects beyond the returned value.
func (q Quality) UpdateMetrics(u MetricsUpdate) Quality {
	out := q

	if u.SignalStrength != nil {
		v := *u.SignalStrength
		out.SignalStrength = &v
	}
	if u.Stability != nil {
		out.Stability = clamp01(*u.Stability)
	}
	if u.Latency != nil {
		out.Latency = clampMin(*u.Latency, 0)
	}
	if u.Throughput != nil {
		out.Throughput = clampMin(*u.Throughput, 0)
	}
	if u.PacketLoss != nil {
		out.PacketLoss = clamp01(*u.PacketLoss)
	}
	if u.ErrorRate != nil {
		out.ErrorRate = clamp01(*u.ErrorRate)
	}

	return out
}

// Score derives a single 0-100 summary from the raw metrics.
//
// Higher stability and throughput raise the score; higher latency, packet
// loss and error rate lower it. The function is monotonic in each input.
func (q Quality) Score() float64 {
	score := 0.0

	// Stability contributes linearly.
	score += clamp01(q.Stability) * weightStability

	// Latency contributes inversely, hitting zero at the ceiling.
	latency := clampMin(q.Latency, 0)
	if latency < latencyCeilingMS {
		score += (1 - latency/latencyCeilingMS) * weightLatency
	}

	// Throughput contributes linearly up to the saturation target.
	throughput := clampMin(q.Throughput, 0)
	if throughput > throughputTargetBPS {
		throughput = throughputTargetBPS
	}
	score += throughput / throughputTargetBPS * weightThroughput

	// Loss and errors contribute inversely, hitting zero at the ceiling.
	loss := clamp01(q.PacketLoss)
	if loss < lossErrCeiling {
		score += (1 - loss/lossErrCeiling) * weightPacketLoss
	}
	errRate := clamp01(q.ErrorRate)
	if errRate < lossErrCeiling {
		score += (1 - errRate/lossErrCeiling) * weightErrorRate
	}

	return score
}

// Level buckets the score into a coarse grade.
func (q Quality) Level() Level {
	score := q.Score()
	switch {
	case score >= levelExcellentMin:
		return LevelExcellent
	case score >= levelGoodMin:
		return LevelGood
	case score >= levelFairMin:
		return LevelFair
	default:
		return LevelPoor
	}
}

// CompareTo reports whether q is improving, degrading or stable relative
// to other. Deltas within ±10 score points are treated as stable.
func (q Quality) CompareTo(other Quality) Trend {
	diff := q.Score() - other.Score()
	switch {
	case diff > compareThreshold:
		return TrendImproving
	case diff < -compareThreshold:
		return TrendDegrading
	default:
		return TrendStable
	}
}

// ImprovementSuggestions returns human-readable suggestions for metrics
// that cross their problem thresholds. Multiple suggestions may co-occur;
// a healthy link returns an empty slice.
func (q Quality) ImprovementSuggestions() []string {
	var suggestions []string

	if q.Stability < suggestStabilityBelow {
		suggestions = append(suggestions,
			"connection stability is low; check for interference or move the device closer to the gateway")
	}
	if q.Latency > suggestLatencyAboveMS {
		suggestions = append(suggestions,
			"latency is high; reduce network congestion or prefer a wired uplink")
	}
	if q.Throughput < suggestThroughputBelow {
		suggestions = append(suggestions,
			"throughput is low; verify link capacity and concurrent traffic")
	}
	if q.PacketLoss > suggestPacketLossAbove {
		suggestions = append(suggestions,
			"packet loss is elevated; inspect signal path and retry settings")
	}
	if q.ErrorRate > suggestErrorRateAbove {
		suggestions = append(suggestions,
			"error rate is elevated; check payload sizes and protocol compatibility")
	}
	if q.SignalStrength != nil && *q.SignalStrength < suggestSignalBelowDBM {
		suggestions = append(suggestions,
			"signal strength is weak; reposition the device or add a repeater")
	}

	return suggestions
}

// clamp01 clamps v into [0,1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// clampMin clamps v to at least min.
func clampMin(v, min float64) float64 {
	if v < min {
		return min
	}
	return v
}
