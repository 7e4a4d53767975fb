package backtest

import "math"

// RunningStats accumulates mean and variance in one pass (Welford).
type RunningStats struct {
	count int
	mean  float64
	m2    float64
}

// Add folds x into the statistics.
func (s *RunningStats) Add(x float64) {
	s.count++
	delta := x - s.mean
	s.mean += delta / float64(s.count)
	delta2 := x - s.mean
	s.m2 += delta * delta2
}

func (s *RunningStats) Count() int {
	return s.count
}

func (s *RunningStats) Mean() float64 {
	return s.mean
}

// StdDev is the sample standard deviation, zero below two observations.
func (s *RunningStats) StdDev() float64 {
	if s.count < 2 {
		return 0
	}
	return math.Sqrt(s.m2 / float64(s.count-1))
}
