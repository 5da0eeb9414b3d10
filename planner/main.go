package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"longplan-core/utils"
)

func main() {
	var (
		iface     = flag.String("iface", "vcan0", "SocketCAN interface name")
		mapPath   = flag.String("map", "config/can_map.csv", "Path to bus map CSV")
		scenPath  = flag.String("scenario", "config/drive_scenario.json", "Drive scenario JSON for model synthesis")
		paramsDir = flag.String("params", "params", "Directory of policy parameter files")
		frameName = flag.String("frame", "LONG_PLAN", "Plan frame name to transmit")
		ownsLong  = flag.Bool("own-long", true, "This process owns longitudinal control")
		logLevel  = flag.String("log", "info", "trace|debug|info|warn|error|critical")
	)
	flag.Parse()

	log, err := utils.NewFileLogger("longplan.log", utils.ParseLevel(*logLevel), true)
	if err != nil {
		_, _ = os.Stderr.WriteString("ERROR: cannot open longplan.log: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Close()

	cfg := RunnerConfig{
		Interface:       *iface,
		MapPath:         *mapPath,
		ScenarioPath:    *scenPath,
		ParamsDir:       *paramsDir,
		PlanFrameName:   *frameName,
		OwnsLongControl: *ownsLong,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner, err := NewRunner(ctx, cfg, log)
	if err != nil {
		log.Critical("Startup failed: %v", err)
		os.Exit(1)
	}
	defer runner.Close()

	if err := runner.Run(ctx); err != nil && err != context.Canceled {
		log.Critical("Run failed: %v", err)
		os.Exit(1)
	}
}
