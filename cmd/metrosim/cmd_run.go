package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/signalsfoundry/metroline-simulator/core"
	"github.com/signalsfoundry/metroline-simulator/internal/logging"
	"github.com/signalsfoundry/metroline-simulator/internal/observability"
	"github.com/signalsfoundry/metroline-simulator/timectrl"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation and export the final state as JSON",
		Long: `Run a simulation: load the topology scenario, start a mission,
advance one step per tick until the configured duration elapses, and
write the full state export (model, entities, event log, mission) to
the output file or stdout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			accelerated, _ := cmd.Flags().GetBool("accelerated")
			out, _ := cmd.Flags().GetString("out")

			cfg, err := LoadConfig(cfgPath)
			if err != nil {
				return err
			}

			log := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
			log, runID := logging.WithRunLogger(log, "")
			ctx := cmd.Context()

			shutdown, err := observability.InitTracing(ctx, cfg.TracingConfig(), log)
			if err != nil {
				return fmt.Errorf("init tracing: %w", err)
			}
			defer observability.ShutdownWithTimeout(context.Background(), shutdown, log)

			topo, summary, err := loadScenario(cfg.Scenario)
			if err != nil {
				return err
			}
			log.Info(ctx, "scenario loaded",
				logging.String("path", cfg.Scenario),
				logging.Int("stations", len(summary.StationIDs)),
				logging.Int("lines", len(summary.LineIDs)))
			for _, problem := range summary.Problems {
				log.Warn(ctx, "topology problem", logging.String("error", problem.Error()))
			}

			collector, err := observability.NewSimCollector(nil)
			if err != nil {
				return fmt.Errorf("register metrics: %w", err)
			}
			if cfg.Metrics.Addr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", collector.Handler())
				go func() {
					if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
						log.Error(ctx, "metrics listener failed", logging.String("error", err.Error()))
					}
				}()
				log.Info(ctx, "metrics listening", logging.String("addr", cfg.Metrics.Addr))
			}

			mode := timectrl.RealTime
			if accelerated {
				mode = timectrl.Accelerated
			}
			clock := timectrl.NewTimeController(time.Now().UTC(), cfg.Tick, mode)

			ctrl := core.NewController(topo,
				core.WithPhysics(cfg.PhysicsConfig()),
				core.WithFeatures(cfg.FeatureFlags()),
				core.WithIDGenerator(core.NewSequentialIDGenerator(runID[:4]+"-")),
				core.WithClock(clock.Now),
				core.WithLogger(log),
				core.WithMetrics(collector),
			)

			missionStart := cfg.Mission.Start
			if missionStart == "" && len(summary.StationIDs) > 0 {
				missionStart = summary.StationIDs[0]
			}
			missionName := cfg.Mission.Name
			if missionName == "" {
				missionName = "metrosim run"
			}
			mission := ctrl.StartMission(uuid.NewString(), missionName, missionStart, cfg.Mission.End)
			if mission == nil {
				return fmt.Errorf("start mission: station %q unusable", missionStart)
			}

			tracer := otel.Tracer("metrosim")
			runCtx, span := tracer.Start(ctx, "simulation.run")
			clock.AddListener(func(time.Time) { ctrl.Step() })

			<-clock.Start(cfg.Duration)
			ctrl.EndMission()
			span.End()

			logFinalState(runCtx, log, ctrl)
			return writeExport(ctrl, out)
		},
	}

	cmd.Flags().Bool("accelerated", false, "run ticks back to back instead of in real time")
	cmd.Flags().String("out", "-", "output path for the state export (- for stdout)")
	return cmd
}

func loadScenario(path string) (*core.Topology, *core.MetroScenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open scenario %q: %w", path, err)
	}
	defer f.Close()
	return core.LoadMetroScenario(f)
}

func logFinalState(ctx context.Context, log logging.Logger, ctrl *core.SimulationController) {
	entities := ctrl.Entities()
	critical := 0
	var loops []string
	for _, e := range entities {
		if e.IsCritical {
			critical++
		}
		if ok, loop := ctrl.StableLoop(e.ID); ok {
			loops = append(loops, e.ID+": "+strings.Join(loop, "->"))
		}
	}
	log.Info(ctx, "simulation finished",
		logging.Int("entities", len(entities)),
		logging.Int("critical", critical),
		logging.Int("events", len(ctrl.Events())))
	for _, l := range loops {
		log.Info(ctx, "stable loop detected", logging.String("loop", l))
	}
}

func writeExport(ctrl *core.SimulationController, out string) error {
	snap := ctrl.Export()
	if out == "" || out == "-" {
		return core.WriteSnapshot(os.Stdout, snap)
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create export %q: %w", out, err)
	}
	defer f.Close()
	return core.WriteSnapshot(f, snap)
}
