package planner

import (
	kalmanfilter "github.com/llm-inferno/kalman-filter"
)

// metricSmoother tracks a running estimate of "expected metric
// improvement per enumerated candidate" across the stripe-shape
// enumeration loop, so PlanMceAndPlePass can stop trying progressively smaller
// stripes once further shrinking stops paying off — rather than
// exhausting every candidate CandidateStripeShapes produces. A 1-D
// Kalman filter smooths the noisy per-candidate improvement signal
// (successive candidates can regress before improving again, e.g. when a
// stripe shape crosses a brick-group boundary) far more stably than a
// plain exponential moving average would.
type metricSmoother struct {
	kf       *kalmanfilter.KalmanFilter
	lastBest float64
	have     bool
}

// newMetricSmoother builds a smoother seeded with conservative
// process/measurement noise: the enumeration loop is short (rarely more
// than a handful of candidates), so the filter should converge within
// two or three updates rather than slowly.
func newMetricSmoother() *metricSmoother {
	return &metricSmoother{
		kf: kalmanfilter.NewKalmanFilter(1e-3, 2.5e-2, 0),
	}
}

// observe feeds the improvement (previous best metric minus this
// candidate's metric; positive means this candidate is better) into the
// filter and returns the smoothed improvement estimate.
func (m *metricSmoother) observe(currentMetric float64) float64 {
	improvement := 0.0
	if m.have {
		improvement = m.lastBest - currentMetric
	}
	m.have = true
	if currentMetric < m.lastBest || m.lastBest == 0 {
		m.lastBest = currentMetric
	}
	return m.kf.Estimate(improvement)
}

// shouldStop reports whether the smoothed improvement has fallen below a
// noise floor, meaning further, smaller candidates are unlikely to be
// worth the extra reload cycles they cost.
func (m *metricSmoother) shouldStop(smoothedImprovement float64) bool {
	const noiseFloor = 1e-4
	return m.have && smoothedImprovement < noiseFloor
}
