// Package replay loads recorded reference trajectories from JSON and
// re-anchors them to a caller-chosen start time, acting as a pure producer
// of reference trajectories for the controller.
package replay

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/vignesh-tw/autoware.auto/motion"
)

// RecordMeta describes a recorded trajectory.
type RecordMeta struct {
	Name        string `json:"name"`
	Version     int    `json:"version"`
	Description string `json:"description"`
}

// RecordPoint is one recorded reference sample.
type RecordPoint struct {
	TimeFromStartMS float64 `json:"time_from_start_ms"`
	X               float64 `json:"x"`
	Y               float64 `json:"y"`
	HeadingRad      float64 `json:"heading_rad"`
	VelocityMPS     float64 `json:"velocity_mps"`
}

// Record is a complete recorded trajectory file.
type Record struct {
	Meta   RecordMeta    `json:"meta"`
	Points []RecordPoint `json:"points"`
}

// LoadRecord reads and validates a trajectory record from JSON.
func LoadRecord(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, fmt.Errorf("read file: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := rec.Validate(); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Validate checks that the record is non-empty, finite and in temporal
// order.
func (r Record) Validate() error {
	if len(r.Points) == 0 {
		return fmt.Errorf("record %q has no points", r.Meta.Name)
	}
	prev := math.Inf(-1)
	for i, pt := range r.Points {
		for field, v := range map[string]float64{
			"time_from_start_ms": pt.TimeFromStartMS,
			"x":                  pt.X,
			"y":                  pt.Y,
			"heading_rad":        pt.HeadingRad,
			"velocity_mps":       pt.VelocityMPS,
		} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("record %q point %d: %s is not finite", r.Meta.Name, i, field)
			}
		}
		if pt.TimeFromStartMS <= prev {
			return fmt.Errorf("record %q point %d: time_from_start_ms not increasing", r.Meta.Name, i)
		}
		prev = pt.TimeFromStartMS
	}
	return nil
}

// Source replays a record as a reference trajectory anchored to a start
// time.
type Source struct {
	rec   Record
	start time.Time
}

// NewSource anchors rec to the given start time.
func NewSource(rec Record, start time.Time) *Source {
	return &Source{rec: rec, start: start}
}

// Trajectory returns the full replayed reference trajectory.
func (s *Source) Trajectory() motion.Trajectory {
	out := motion.Trajectory{
		Stamp:  s.start,
		Points: make([]motion.TrajectoryPoint, len(s.rec.Points)),
	}
	for i, pt := range s.rec.Points {
		out.Points[i] = motion.TrajectoryPoint{
			TimeFromStart:           time.Duration(pt.TimeFromStartMS * float64(time.Millisecond)),
			X:                       pt.X,
			Y:                       pt.Y,
			Heading:                 motion.FromAngle(pt.HeadingRad),
			LongitudinalVelocityMPS: pt.VelocityMPS,
		}
	}
	return out
}

// Done reports whether now is past the end of the replayed trajectory.
func (s *Source) Done(now time.Time) bool {
	last := s.rec.Points[len(s.rec.Points)-1]
	end := s.start.Add(time.Duration(last.TimeFromStartMS * float64(time.Millisecond)))
	return now.After(end)
}
