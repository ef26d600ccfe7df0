package diff

import "math"

// Stats tallies diff operation types, typically across all images of a
// task.
type Stats struct {
	Correct int `json:"correct"`
	Wrong   int `json:"wrong"`
	Missing int `json:"missing"`
	Extra   int `json:"extra"`
}

// Tally counts each operation type in ops.
func Tally(ops []Op) Stats {
	var s Stats
	s.Observe(ops)
	return s
}

// Observe adds the operations in ops to the tally.
func (s *Stats) Observe(ops []Op) {
	for _, op := range ops {
		switch op.Type {
		case Correct:
			s.Correct++
		case Wrong:
			s.Wrong++
		case Missing:
			s.Missing++
		case Extra:
			s.Extra++
		}
	}
}

// Total returns the number of operations observed.
func (s Stats) Total() int {
	return s.Correct + s.Wrong + s.Missing + s.Extra
}

// AccuracyPct returns the correct share as a percentage rounded to one
// decimal place. Zero observations yield zero.
func (s Stats) AccuracyPct() float64 {
	total := s.Total()
	if total == 0 {
		return 0
	}
	return math.Round(float64(s.Correct)/float64(total)*1000) / 10
}
