// Package motion holds the boundary types exchanged between the trajectory
// source, the MPC core and the command output: vehicle states, reference
// trajectories and actuation commands.
package motion

import "time"

// TrajectoryPoint is a single timestamped reference sample.
type TrajectoryPoint struct {
	TimeFromStart           time.Duration `json:"time_from_start_ns"`
	X                       float64       `json:"x"`
	Y                       float64       `json:"y"`
	Heading                 Heading       `json:"heading"`
	LongitudinalVelocityMPS float64       `json:"longitudinal_velocity_mps"`
}

// Trajectory is an ordered reference path anchored to a base timestamp.
// Insertion order is temporal order; indices are meaningful.
type Trajectory struct {
	Stamp  time.Time         `json:"stamp"`
	Points []TrajectoryPoint `json:"points"`
}

// PointTime returns the absolute timestamp of point i.
func (t Trajectory) PointTime(i int) time.Time {
	return t.Stamp.Add(t.Points[i].TimeFromStart)
}

// State is a timestamped vehicle kinematic state.
type State struct {
	Stamp                   time.Time
	X                       float64
	Y                       float64
	Heading                 Heading
	LongitudinalVelocityMPS float64
}

// Command is the externally visible controller output. Every field must be
// finite before it is handed to an actuation consumer.
type Command struct {
	Stamp              time.Time
	LongAccelMPS2      float64
	FrontWheelAngleRad float64
	RearWheelAngleRad  float64
	VelocityMPS        float64
}
