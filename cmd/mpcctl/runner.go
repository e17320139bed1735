package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/vignesh-tw/autoware.auto/canbus"
	"github.com/vignesh-tw/autoware.auto/metrics"
	"github.com/vignesh-tw/autoware.auto/motion"
	"github.com/vignesh-tw/autoware.auto/mpc"
	"github.com/vignesh-tw/autoware.auto/replay"
	"github.com/vignesh-tw/autoware.auto/solver"
	"github.com/vignesh-tw/autoware.auto/utils"
)

type RunnerConfig struct {
	ConfigPath     string
	TrajectoryPath string
	Interface      string // empty: frames go to stdout instead of CAN
	MapPath        string
	FrameName      string
	MetricsAddr    string // empty: metrics endpoint disabled
}

// Runner drives the controller in a closed loop: it replays a recorded
// reference trajectory, feeds the controller a simulated vehicle state each
// solver step and publishes the resulting commands.
type Runner struct {
	cfg   RunnerConfig
	log   *utils.Logger
	ctrl  *mpc.Controller
	rec   replay.Record
	pub   *canbus.CommandPublisher
	runID string

	step      time.Duration
	wheelbase float64
	state     motion.State
}

func NewRunner(ctx context.Context, cfg RunnerConfig, log *utils.Logger) (*Runner, error) {
	ctrlCfg, err := mpc.LoadConfig(cfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load controller config: %w", err)
	}
	rec, err := replay.LoadRecord(cfg.TrajectoryPath)
	if err != nil {
		return nil, fmt.Errorf("load trajectory record: %w", err)
	}

	backend := solver.NewBicycle()
	ctrl, err := mpc.NewController(ctrlCfg, backend)
	if err != nil {
		return nil, fmt.Errorf("controller: %w", err)
	}

	r := &Runner{
		cfg:       cfg,
		log:       log,
		ctrl:      ctrl,
		rec:       rec,
		runID:     uuid.NewString(),
		step:      backend.Dims().Step,
		wheelbase: ctrlCfg.Vehicle.LengthCGFrontAxelM + ctrlCfg.Vehicle.LengthCGRearAxelM,
	}

	cmap, err := canbus.LoadMap(cfg.MapPath)
	if err != nil {
		return nil, fmt.Errorf("load signal map: %w", err)
	}
	var writer canbus.FrameWriter = canbus.NewStdoutWriter()
	if cfg.Interface != "" {
		writer, err = canbus.NewSocketCANWriter(ctx, cfg.Interface)
		if err != nil {
			return nil, err
		}
	}
	pub, err := canbus.NewCommandPublisher(cmap, cfg.FrameName, writer)
	if err != nil {
		_ = writer.Close()
		return nil, err
	}
	r.pub = pub
	return r, nil
}

func (r *Runner) Close() {
	if r.pub != nil {
		_ = r.pub.Close()
	}
}

func (r *Runner) Run(ctx context.Context) error {
	if r.cfg.MetricsAddr != "" {
		go r.serveMetrics(ctx)
	}

	start := time.Now()
	src := replay.NewSource(r.rec, start)

	traj := src.Trajectory()
	if err := r.ctrl.SetTrajectory(traj); err != nil {
		if errors.Is(err, mpc.ErrTrajectoryRejected) {
			metrics.TrajectoryRejectionsTotal.Inc()
		}
		return fmt.Errorf("set trajectory: %w", err)
	}

	// The simulated vehicle starts on the first reference point.
	first := traj.Points[0]
	r.state = motion.State{
		Stamp:                   start,
		X:                       first.X,
		Y:                       first.Y,
		Heading:                 first.Heading,
		LongitudinalVelocityMPS: first.LongitudinalVelocityMPS,
	}

	r.log.Info("run %s: controller=%q trajectory=%q points=%d step=%v iface=%q",
		r.runID, r.ctrl.Name(), r.rec.Meta.Name, len(r.rec.Points), r.step, r.cfg.Interface)

	ticker := time.NewTicker(r.step)
	defer ticker.Stop()

	var cycles uint64
	for {
		select {
		case <-ctx.Done():
			r.log.Warn("context canceled; stopping after %d cycles", cycles)
			return ctx.Err()

		case now := <-ticker.C:
			if src.Done(now) {
				r.log.Info("trajectory complete. cycles=%d", cycles)
				return nil
			}
			if err := r.cycle(ctx, now); err != nil {
				r.log.Critical("cycle %d failed: %v", cycles, err)
				return err
			}
			cycles++
		}
	}
}

// cycle computes and publishes one command, then advances the simulated
// plant by one step under it.
func (r *Runner) cycle(ctx context.Context, now time.Time) error {
	r.state.Stamp = now

	begin := time.Now()
	cmd, err := r.ctrl.ComputeCommand(r.state)
	metrics.CycleDuration.Observe(time.Since(begin).Seconds())
	if err != nil {
		var sf *mpc.SolverFailure
		var nf *mpc.NonFiniteResult
		switch {
		case errors.As(err, &sf):
			metrics.CyclesTotal.WithLabelValues("solver_failure").Inc()
			metrics.SolverFailuresTotal.WithLabelValues(sf.Phase).Inc()
		case errors.As(err, &nf):
			metrics.CyclesTotal.WithLabelValues("non_finite").Inc()
		default:
			metrics.CyclesTotal.WithLabelValues("error").Inc()
		}
		return err
	}
	metrics.CyclesTotal.WithLabelValues("ok").Inc()
	metrics.SolveIterations.Observe(float64(r.ctrl.ComputeIterations()))

	if err := r.pub.Publish(ctx, cmd); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	r.log.Debug("cmd accel=%.3f wheel=%.4f vel=%.2f pos=(%.2f, %.2f)",
		cmd.LongAccelMPS2, cmd.FrontWheelAngleRad, cmd.VelocityMPS, r.state.X, r.state.Y)

	r.advancePlant(cmd, r.step.Seconds())
	return nil
}

// advancePlant integrates the same kinematic bicycle model the solver
// predicts with, closing the loop without real hardware.
func (r *Runner) advancePlant(cmd motion.Command, dt float64) {
	angle := r.state.Heading.Angle()
	vel := r.state.LongitudinalVelocityMPS

	r.state.X += vel * math.Cos(angle) * dt
	r.state.Y += vel * math.Sin(angle) * dt
	angle += vel * math.Tan(cmd.FrontWheelAngleRad) / r.wheelbase * dt
	r.state.Heading = motion.FromAngle(angle)
	r.state.LongitudinalVelocityMPS = vel + cmd.LongAccelMPS2*dt
}

func (r *Runner) serveMetrics(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: r.cfg.MetricsAddr, Handler: mux}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	r.log.Info("metrics on %s/metrics", r.cfg.MetricsAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		r.log.Error("metrics server: %v", err)
	}
}
