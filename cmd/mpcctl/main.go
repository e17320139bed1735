package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/vignesh-tw/autoware.auto/utils"
)

func main() {
	var (
		cfgPath   = flag.String("config", "config/mpc.json", "Controller config JSON file")
		trajPath  = flag.String("trajectory", "config/trajectories/straight_60s.json", "Trajectory record JSON file")
		iface     = flag.String("iface", "", "SocketCAN interface name (empty disables transmission)")
		mapPath   = flag.String("map", "config/can/can_map.csv", "Path to can_map.csv")
		frameName = flag.String("frame", "MPC_CMD", "Frame name to transmit")
		metrics   = flag.String("metrics", "", "Prometheus listen address, e.g. :9100 (empty disables)")
		logLevel  = flag.String("log", "info", "trace|debug|info|warn|error|critical")
	)
	flag.Parse()

	log, err := utils.NewFileLogger("mpcctl.log", utils.ParseLevel(*logLevel), true)
	if err != nil {
		_, _ = os.Stderr.WriteString("ERROR: cannot open mpcctl.log: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Close()

	cfg := RunnerConfig{
		ConfigPath:     *cfgPath,
		TrajectoryPath: *trajPath,
		Interface:      *iface,
		MapPath:        *mapPath,
		FrameName:      *frameName,
		MetricsAddr:    *metrics,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner, err := NewRunner(ctx, cfg, log)
	if err != nil {
		log.Critical("Startup failed: %v", err)
		os.Exit(1)
	}
	defer runner.Close()

	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Critical("Run failed: %v", err)
		os.Exit(1)
	}
}
