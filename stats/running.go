// Package stats has streaming statistics over a fixed window of recent
// values.
package stats

import (
	"fmt"
	"io"
)

// ring is a fixed size FIFO of float64 values.
type ring struct {
	vals []float64
	next int
}

func newRing(n int) *ring { return &ring{vals: make([]float64, n)} }

// push stores v and returns the evicted oldest value.
func (r *ring) push(v float64) float64 {
	old := r.vals[r.next]
	r.vals[r.next] = v
	r.next = (r.next + 1) % len(r.vals)
	return old
}

// RunningAverager tracks an incremental mean and variance over the last
// span values and, for every value, recomputes both directly from the raw
// window as a control.
//
// The incremental variance term uses the mean after it was updated with
// the new value. It is a biased approximation and drifts slightly from the
// control figure; that difference is what the control output is for.
type RunningAverager struct {
	span int

	avgHist *ring // value/span contributions to avg
	varHist *ring // contributions to variance
	rawHist *ring

	avg      float64
	variance float64

	out io.Writer
}

// NewRunningAverager creates an averager over span values, all windows
// starting at zero. If out is non-nil every AddValue writes the incremental
// and control variance to it as "<variance>\t<control>\n". span values
// below 1 are treated as 1.
func NewRunningAverager(span int, out io.Writer) *RunningAverager {
	span = max(span, 1)
	return &RunningAverager{
		span:    span,
		avgHist: newRing(span),
		varHist: newRing(span),
		rawHist: newRing(span),
		out:     out,
	}
}

// AddValue folds value into the window. It returns the incremental variance
// and the control variance recomputed from the raw window.
func (r *RunningAverager) AddValue(value float64) (variance, control float64) {
	n := float64(r.span)

	avgSummand := value / n
	r.avg += avgSummand
	r.avg -= r.avgHist.push(avgSummand)

	varSummand := (value - r.avg) * (value - r.avg) / n
	r.variance += varSummand
	r.variance -= r.varHist.push(varSummand)

	r.rawHist.push(value)
	_, control = r.Control()

	if r.out != nil {
		fmt.Fprintf(r.out, "%v\t%v\n", r.variance, control)
	}
	return r.variance, control
}

// Control computes the mean and population variance of the raw window
// directly.
func (r *RunningAverager) Control() (mean, variance float64) {
	n := float64(len(r.rawHist.vals))
	sum := 0.0
	for _, v := range r.rawHist.vals {
		sum += v
	}
	mean = sum / n
	for _, v := range r.rawHist.vals {
		d := v - mean
		variance += d * d
	}
	return mean, variance / n
}

// Mean is the incremental mean.
func (r *RunningAverager) Mean() float64 { return r.avg }

// Variance is the incremental variance.
func (r *RunningAverager) Variance() float64 { return r.variance }

// Span is the window size.
func (r *RunningAverager) Span() int { return r.span }

// RunningStats tracks a running mean and mean absolute deviation over the
// last capacity values in O(1) per value. The deviation of each new value
// is taken against the current running mean, which is robust when the
// mean is fairly stable.
type RunningStats struct {
	Mean    float64
	MeanDev float64

	hist    *ring
	devHist *ring
	n       float64
}

// NewRunningStats creates a tracker over capacity values, all starting at
// zero. capacity values below 1 are treated as 1.
func NewRunningStats(capacity int) *RunningStats {
	capacity = max(capacity, 1)
	return &RunningStats{
		hist:    newRing(capacity),
		devHist: newRing(capacity),
		n:       float64(capacity),
	}
}

// Push adds a value, evicting the oldest one.
func (s *RunningStats) Push(v float64) {
	old := s.hist.push(v)
	s.Mean += v / s.n
	s.Mean -= old / s.n

	dev := v - s.Mean
	if dev < 0 {
		dev = -dev
	}
	oldDev := s.devHist.push(dev)
	s.MeanDev += dev / s.n
	s.MeanDev -= oldDev / s.n
}
