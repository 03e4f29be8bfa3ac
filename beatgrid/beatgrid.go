// Package beatgrid computes expected beat grids from a track's tempo and
// first beat offset, the same way the mixxx_data producer labels its
// histories, and compares beat positions.
package beatgrid

import "math"

// Targets returns the beat grid of n audio frames collapsed into chunks of
// subsampleSize frames. A frame is a beat when it lies less than one frame
// after a multiple of the beat length (60/bpm*sampleFreq frames) shifted by
// offset. A chunk is a beat when any of its frames is.
//
// The result has ceil(n/subsampleSize) entries, one per history row. Zero
// or negative tempo, sample frequency or chunk size yield nil.
func Targets(bpm float64, offset int, sampleFreq float64, subsampleSize, n int) []bool {
	if bpm <= 0 || sampleFreq <= 0 || subsampleSize < 1 || n <= 0 {
		return nil
	}
	step := 60 / bpm * sampleFreq
	off := remEuclid(float64(offset), step)

	chunks := (n + subsampleSize - 1) / subsampleSize
	grid := make([]bool, chunks)
	for i := 0; i < n; i++ {
		if remEuclid(float64(i)-off, step) < 1 {
			grid[i/subsampleSize] = true
		}
	}
	return grid
}

// Indices returns the positions of the set entries of grid, ascending.
func Indices(grid []bool) []int {
	var out []int
	for i, b := range grid {
		if b {
			out = append(out, i)
		}
	}
	return out
}

// Match summarizes a comparison of expected and found beat positions.
type Match struct {
	Matched int // found beats within tolerance of an expected beat
	Missed  int // expected beats with no match
	Extra   int // found beats with no match
}

// Compare pairs ascending beat positions want and got greedily. Two beats
// match when they are at most tolerance steps apart; each beat matches at
// most once.
func Compare(want, got []int, tolerance int) Match {
	var m Match
	i, j := 0, 0
	for i < len(want) && j < len(got) {
		d := got[j] - want[i]
		switch {
		case d < -tolerance:
			m.Extra++
			j++
		case d > tolerance:
			m.Missed++
			i++
		default:
			m.Matched++
			i++
			j++
		}
	}
	m.Missed += len(want) - i
	m.Extra += len(got) - j
	return m
}

// remEuclid is the non-negative remainder of a divided by b, b > 0.
func remEuclid(a, b float64) float64 {
	r := math.Mod(a, b)
	if r < 0 {
		r += b
	}
	return r
}
