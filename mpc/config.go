package mpc

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// MinMax is an actuation or state bound pair.
type MinMax struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (m MinMax) validate(name string) error {
	if m.Min > m.Max {
		return fmt.Errorf("%s: min %v > max %v", name, m.Min, m.Max)
	}
	return nil
}

// VehicleConfig is the vehicle geometry broadcast as online parameters.
type VehicleConfig struct {
	LengthCGFrontAxelM float64 `json:"length_cg_front_axel_m"`
	LengthCGRearAxelM  float64 `json:"length_cg_rear_axel_m"`
}

// LimitsConfig bounds the optimization: two control constraints and one
// affine state constraint per horizon step.
type LimitsConfig struct {
	Acceleration         MinMax `json:"acceleration_mps2"`
	SteerAngle           MinMax `json:"steer_angle_rad"`
	LongitudinalVelocity MinMax `json:"longitudinal_velocity_mps"`
}

// Weights is one diagonal cost row: state tracking terms plus control
// effort terms.
type Weights struct {
	Pose                 float64 `json:"pose"`
	Heading              float64 `json:"heading"`
	LongitudinalVelocity float64 `json:"longitudinal_velocity"`
	Jerk                 float64 `json:"jerk"`
	SteerAngleRate       float64 `json:"steer_angle_rate"`
}

// OptimizationConfig holds the nominal per-step weights and the terminal
// weights applied to the last meaningful reference row.
type OptimizationConfig struct {
	Nominal  Weights `json:"nominal"`
	Terminal Weights `json:"terminal"`
}

// Config is the complete controller configuration. Validation happens at
// load/set time; the projector that writes these values into the workspace
// does not re-check them.
type Config struct {
	Vehicle      VehicleConfig      `json:"vehicle"`
	Limits       LimitsConfig       `json:"limits"`
	Optimization OptimizationConfig `json:"optimization"`

	ControlLookaheadMS      float64 `json:"control_lookahead_ms"`
	SamplePeriodToleranceMS float64 `json:"sample_period_tolerance_ms"`
	Interpolate             bool    `json:"interpolate"`
}

// ControlLookahead is how far past "now" the emitted command is sampled.
func (c Config) ControlLookahead() time.Duration {
	return time.Duration(c.ControlLookaheadMS * float64(time.Millisecond))
}

// SamplePeriodTolerance is the allowed deviation of a reference point's
// timestamp from its expected grid position.
func (c Config) SamplePeriodTolerance() time.Duration {
	return time.Duration(c.SamplePeriodToleranceMS * float64(time.Millisecond))
}

// Validate checks configuration semantics.
func (c Config) Validate() error {
	if c.Vehicle.LengthCGFrontAxelM <= 0 || c.Vehicle.LengthCGRearAxelM <= 0 {
		return fmt.Errorf("invalid vehicle geometry: lf=%v lr=%v",
			c.Vehicle.LengthCGFrontAxelM, c.Vehicle.LengthCGRearAxelM)
	}
	if err := c.Limits.Acceleration.validate("acceleration_mps2"); err != nil {
		return err
	}
	if err := c.Limits.SteerAngle.validate("steer_angle_rad"); err != nil {
		return err
	}
	if err := c.Limits.LongitudinalVelocity.validate("longitudinal_velocity_mps"); err != nil {
		return err
	}
	for name, w := range map[string]Weights{"nominal": c.Optimization.Nominal, "terminal": c.Optimization.Terminal} {
		for field, v := range map[string]float64{
			"pose": w.Pose, "heading": w.Heading,
			"longitudinal_velocity": w.LongitudinalVelocity,
			"jerk":                  w.Jerk, "steer_angle_rate": w.SteerAngleRate,
		} {
			if v < 0 {
				return fmt.Errorf("%s weight %s is negative: %v", name, field, v)
			}
		}
	}
	if c.ControlLookaheadMS < 0 {
		return fmt.Errorf("invalid control_lookahead_ms: %v", c.ControlLookaheadMS)
	}
	if c.SamplePeriodToleranceMS < 0 {
		return fmt.Errorf("invalid sample_period_tolerance_ms: %v", c.SamplePeriodToleranceMS)
	}
	return nil
}

// LoadConfig reads and validates a controller configuration from JSON.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read file: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate: %w", err)
	}
	return cfg, nil
}
