package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/virtmem/memctl/internal/collector"
	"github.com/virtmem/memctl/internal/config"
	"github.com/virtmem/memctl/internal/controller"
	"github.com/virtmem/memctl/internal/hypervisor"
	"github.com/virtmem/memctl/internal/logger"
	"github.com/virtmem/memctl/internal/monitor"
	"github.com/virtmem/memctl/internal/pid"
	"github.com/virtmem/memctl/internal/plotter"
	"github.com/virtmem/memctl/internal/telemetry"
)

var cfg *config.Config

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	level := config.LogLevel(cfg.LogLevel)
	logger.Init(level == config.LogLevelDebug, level == config.LogLevelInfo, logger.IsService())
	logger.Debug().Msg("Config loaded")
}

func main() {
	if err := pid.Write(); err != nil {
		logger.Fatal().Err(err).Msg("failed to write PID file")
	}
	defer pid.Remove()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	running := &atomic.Bool{}
	running.Store(cfg.Running)
	go handleSignals(cancel, running)

	recorder, err := telemetry.NewService(telemetry.Config{
		DBPath:  cfg.TelemetryDB,
		Enabled: cfg.Telemetry,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer recorder.Close()

	hostMon, plot, err := buildHostMonitor(ctx, running, recorder)
	if err != nil {
		logger.Fatal().Err(err).Msg("host monitor has no usable collectors")
	}
	if plot != nil {
		defer plot.Close()
	}

	var controllers []controller.Controller
	if cfg.KSM {
		ksm, err := controller.NewKSM(hypervisor.NewSysfsTuner(""))
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize KSM controller")
		}
		controllers = append(controllers, ksm)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		monitorLoop(ctx, hostMon)
	}()
	go func() {
		defer wg.Done()
		controllerLoop(ctx, hostMon, controllers)
	}()
	wg.Wait()

	hostMon.Terminate()
	logger.Info().Msg("Exiting...")
}

func handleSignals(cancel context.CancelFunc, running *atomic.Bool) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	running.Store(false)
	cancel()
}

func buildHostMonitor(
	ctx context.Context, running *atomic.Bool, recorder telemetry.Recorder,
) (*monitor.Monitor, *plotter.Plotter, error) {
	hostname, _ := os.Hostname()

	cctx := &collector.Context{
		MonitorName: "host",
		Properties:  map[string]any{"name": hostname},
	}
	collectors, err := collector.New(cfg.HostCollectors, cctx, cfg.CollectorConfig)
	if err != nil {
		return nil, nil, err
	}

	var sinks []monitor.Sink
	var plot *plotter.Plotter
	if cfg.PlotDir != "" {
		plot, err = plotter.New(cfg.PlotDir, "host")
		if err != nil {
			logger.Warn().Err(err).Msg("Plotting disabled")
		} else {
			sinks = append(sinks, func(_ string, fields []string, s monitor.Sample) {
				if err := plot.Plot(fields, s); err != nil {
					logger.Warn().Err(err).Msg("Failed to plot sample")
				}
			})
		}
	}
	sinks = append(sinks, func(name string, _ []string, s monitor.Sample) {
		if err := recorder.Record(ctx, name, s); err != nil {
			logger.Warn().Err(err).Msg("Failed to record sample")
		}
	})

	mon := monitor.New(monitor.Config{
		Name:          "host",
		Properties:    cctx.Properties,
		Collectors:    collectors,
		HistoryLength: cfg.HistoryLength,
		Running:       running,
		Sinks:         sinks,
	})

	return mon, plot, nil
}

func monitorLoop(ctx context.Context, mon *monitor.Monitor) {
	ticker := time.NewTicker(time.Duration(cfg.Interval) * time.Second)
	defer ticker.Stop()

	for mon.ShouldRun() {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mon.Collect()
		}
	}
}

// controllerLoop drives one policy cycle per tick: snapshot the host,
// hand the entity to the policy layer to attach control directives, then
// let each controller reconcile its knob domain. The policy evaluator is
// an external collaborator; until one is wired in, entities carry no
// directives and the controllers correctly issue zero writes.
func controllerLoop(ctx context.Context, mon *monitor.Monitor, controllers []controller.Controller) {
	ticker := time.NewTicker(time.Duration(cfg.Interval) * time.Second)
	defer ticker.Stop()

	for mon.ShouldRun() {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			host := mon.Interrogate()
			if host == nil {
				logger.Debug().Msg("Host monitor not ready, skipping policy cycle")
				continue
			}

			for _, c := range controllers {
				c.Process(ctx, host, nil)
			}

			mon.UpdateVariables(host.Variables())
		}
	}
}
