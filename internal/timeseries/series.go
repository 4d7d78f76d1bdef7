// Package timeseries holds sampled measurement series and their summary
// statistics.
package timeseries

import (
	"math"

	"github.com/influxdata/tdigest"
)

// Point is one sampled measurement at a position in the media timeline.
type Point struct {
	Timestamp float64 `json:"timestamp"` // seconds from start of file
	Value     float64 `json:"value"`
}

// Series is an ordered sequence of sampled values. Not safe for concurrent
// mutation; each analyzer builds its own series.
type Series struct {
	points []Point
}

// New creates an empty series with room for n points.
func New(n int) *Series {
	return &Series{points: make([]Point, 0, n)}
}

// Add appends a sample.
func (s *Series) Add(timestamp, value float64) {
	s.points = append(s.points, Point{Timestamp: timestamp, Value: value})
}

// Len returns the number of samples.
func (s *Series) Len() int { return len(s.points) }

// Points returns the underlying samples. Callers must not mutate.
func (s *Series) Points() []Point { return s.points }

// Values returns just the sampled values, in order.
func (s *Series) Values() []float64 {
	vals := make([]float64, len(s.points))
	for i, p := range s.points {
		vals[i] = p.Value
	}
	return vals
}

// Stats summarizes a series. CV is the coefficient of variation
// (stddev/mean); zero when the mean is zero.
type Stats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"std_dev"`
	CV     float64 `json:"cv"`
	P50    float64 `json:"p50"`
	P95    float64 `json:"p95"`
	P99    float64 `json:"p99"`
}

// Stats computes summary statistics over the series. Percentiles come from a
// t-digest sketch. An empty series yields zero stats.
func (s *Series) Stats() Stats {
	if len(s.points) == 0 {
		return Stats{}
	}

	td := tdigest.NewWithCompression(100)

	var sum float64
	min := math.Inf(1)
	max := math.Inf(-1)
	for _, p := range s.points {
		sum += p.Value
		if p.Value < min {
			min = p.Value
		}
		if p.Value > max {
			max = p.Value
		}
		td.Add(p.Value, 1)
	}

	n := float64(len(s.points))
	mean := sum / n

	var sqDiff float64
	for _, p := range s.points {
		d := p.Value - mean
		sqDiff += d * d
	}
	stdDev := math.Sqrt(sqDiff / n)

	var cv float64
	if mean != 0 {
		cv = stdDev / mean
	}

	return Stats{
		Count:  len(s.points),
		Mean:   mean,
		Min:    min,
		Max:    max,
		StdDev: stdDev,
		CV:     cv,
		P50:    td.Quantile(0.50),
		P95:    td.Quantile(0.95),
		P99:    td.Quantile(0.99),
	}
}
