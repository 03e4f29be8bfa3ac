package stats

import (
	"bytes"
	"math"
	"strings"
	"testing"
)

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// TestRunningAverager_Constant feeds a constant stream into a window of 3:
// the control variance is exactly zero once the window is full and the
// incremental variance decays to zero once the early terms are evicted.
func TestRunningAverager_Constant(t *testing.T) {
	r := NewRunningAverager(3, nil)

	var vars, controls []float64
	for i := 0; i < 6; i++ {
		v, c := r.AddValue(5)
		vars = append(vars, v)
		controls = append(controls, c)
	}

	for i := 2; i < len(controls); i++ {
		if controls[i] != 0 {
			t.Fatalf("control variance after %d values = %v, want exactly 0", i+1, controls[i])
		}
	}
	for i := 3; i < len(vars); i++ {
		if vars[i] > vars[i-1]+1e-12 {
			t.Fatalf("incremental variance grew from %v to %v", vars[i-1], vars[i])
		}
	}
	if !approxEqual(vars[len(vars)-1], 0, 1e-9) {
		t.Fatalf("incremental variance = %v, want ~0", vars[len(vars)-1])
	}
	if !approxEqual(r.Mean(), 5, 1e-9) {
		t.Fatalf("mean = %v, want 5", r.Mean())
	}
}

// TestRunningAverager_FirstSteps pins the first values of the incremental
// formula, which uses the mean after the update.
func TestRunningAverager_FirstSteps(t *testing.T) {
	r := NewRunningAverager(3, nil)

	v, c := r.AddValue(5)
	// avg = 5/3, var = (5 - 5/3)^2 / 3
	if !approxEqual(r.Mean(), 5.0/3, 1e-12) {
		t.Fatalf("mean = %v, want 5/3", r.Mean())
	}
	if !approxEqual(v, (10.0/3)*(10.0/3)/3, 1e-12) {
		t.Fatalf("variance = %v", v)
	}
	// raw window [0 0 5]: mean 5/3, variance (2*(5/3)^2 + (10/3)^2)/3
	wantControl := (2*(5.0/3)*(5.0/3) + (10.0/3)*(10.0/3)) / 3
	if !approxEqual(c, wantControl, 1e-12) {
		t.Fatalf("control = %v, want %v", c, wantControl)
	}
}

func TestRunningAverager_TracksControl(t *testing.T) {
	r := NewRunningAverager(50, nil)
	for i := 0; i < 500; i++ {
		r.AddValue(10 + math.Sin(float64(i)*0.3))
	}
	mean, control := r.Control()
	if !approxEqual(r.Mean(), mean, 1e-9) {
		t.Fatalf("incremental mean %v differs from direct mean %v", r.Mean(), mean)
	}
	// biased, but in the same ballpark as the population variance
	if r.Variance() <= 0 || math.Abs(r.Variance()-control) > control {
		t.Fatalf("incremental variance %v too far from control %v", r.Variance(), control)
	}
}

func TestRunningAverager_WritesOutput(t *testing.T) {
	var buf bytes.Buffer
	r := NewRunningAverager(2, &buf)
	r.AddValue(1)
	r.AddValue(1)
	r.AddValue(1)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 output lines, got %d: %q", len(lines), buf.String())
	}
	for _, l := range lines {
		if len(strings.Split(l, "\t")) != 2 {
			t.Fatalf("line %q is not two tab separated values", l)
		}
	}
	if !strings.HasSuffix(lines[2], "\t0") {
		t.Fatalf("last control value should be 0, got %q", lines[2])
	}
}

func TestRunningStats(t *testing.T) {
	s := NewRunningStats(4)
	for i := 0; i < 8; i++ {
		s.Push(2)
	}
	if !approxEqual(s.Mean, 2, 1e-12) {
		t.Fatalf("Mean = %v, want 2", s.Mean)
	}
	if !approxEqual(s.MeanDev, 0, 1e-12) {
		t.Fatalf("MeanDev = %v, want 0", s.MeanDev)
	}

	// alternating 1, 3 around a stable mean of 2 has mean deviation 1
	for i := 0; i < 40; i++ {
		s.Push(float64(1 + 2*(i%2)))
	}
	if !approxEqual(s.Mean, 2, 1e-9) {
		t.Fatalf("Mean = %v, want 2", s.Mean)
	}
	if !approxEqual(s.MeanDev, 1, 0.3) {
		t.Fatalf("MeanDev = %v, want about 1", s.MeanDev)
	}
}
