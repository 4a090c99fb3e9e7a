package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/sandbox/internal/bridge"
	"github.com/GriffinCanCode/sandbox/internal/engine/pattern"
	"github.com/GriffinCanCode/sandbox/internal/infrastructure/logging"
	"github.com/GriffinCanCode/sandbox/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/sandbox/internal/manifest"
	mathprovider "github.com/GriffinCanCode/sandbox/internal/providers/math"
	"github.com/GriffinCanCode/sandbox/internal/providers/system"
	"github.com/GriffinCanCode/sandbox/internal/runner"
	"github.com/GriffinCanCode/sandbox/internal/service"
)

func main() {
	os.Exit(run())
}

func run() int {
	asJSON := flag.Bool("json", false, "Print the full report as JSON")
	codec := flag.String("codec", "", "Encode bridge traffic with this codec (json or proto)")
	mode := flag.String("patterns", "worker", "Pattern mode: disallowed, direct or worker")
	maxSteps := flag.Uint64("max-steps", 0, "Step ceiling; 0 keeps the manifest's")
	timeout := flag.Duration("timeout", 5*time.Second, "Wall clock limit for the whole run")
	verbose := flag.Bool("v", false, "Debug logging to stderr")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: sandbox [flags] manifest")
		flag.PrintDefaults()
		return 2
	}

	logger := logging.Nop()
	if *verbose {
		l, err := logging.New(logging.Config{Level: "debug", Development: true, OutputPaths: []string{"stderr"}})
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		logger = l
	}
	defer func() { _ = logger.Sync() }()

	m, err := manifest.Load(flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	cfg := runner.DefaultConfig()
	cfg.Timeout = *timeout
	cfg.Options.MaxSteps = *maxSteps
	pm, err := pattern.ParseMode(*mode)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	cfg.Options.Patterns.Mode = pm
	if *codec != "" {
		if cfg.Codec, err = bridge.CodecFor(*codec); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
	}

	registry := service.NewRegistry()
	for _, p := range []service.Provider{mathprovider.NewProvider(), system.NewProvider(100, logger.Logger)} {
		if err := registry.Register(p); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	report, err := runner.New(cfg, registry, logger).Run(ctx, m)
	if err != nil {
		logger.Error("run setup failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	if *asJSON {
		out, err := sonic.ConfigStd.MarshalIndent(report, "", "  ")
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		fmt.Println(string(out))
	} else {
		for _, line := range report.Console {
			fmt.Fprintf(os.Stderr, "[%s] %s\n", line.Level, line.Message)
		}
		fmt.Println(report.String())
	}
	if report.Outcome != monitoring.OutcomeOK {
		return 1
	}
	return 0
}
