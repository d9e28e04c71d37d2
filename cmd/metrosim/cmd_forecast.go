package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/metroline-simulator/core"
	"github.com/signalsfoundry/metroline-simulator/model"
)

func newForecastCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forecast <from> <to>",
		Short: "Preview the physics of riding a path, without running a simulation",
		Long: `Preview the physics of riding the shortest path between two
stations. A hypothetical fresh entity is folded through the movement
deltas of each hop and the resulting state sequence is printed as JSON.
Nothing is simulated and no events are emitted; this is the pure
forecasting query exposed for tooling.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			cfg, err := LoadConfig(cfgPath)
			if err != nil {
				return err
			}

			topo, _, err := loadScenario(cfg.Scenario)
			if err != nil {
				return err
			}

			path := core.ShortestPath(topo, args[0], args[1])
			if len(path) == 0 {
				return fmt.Errorf("no path from %q to %q", args[0], args[1])
			}

			physics := cfg.PhysicsConfig()
			start := model.EntityState{
				ID:        "forecast",
				Energy:    1.0,
				StationID: args[0],
			}

			// Fold a movement delta per hop; entropy feeds forward into
			// each hop's time step exactly as the live engine would.
			deltas := make([]model.PhysicsDelta, 0, len(path)-1)
			probe := start
			for i := 1; i < len(path); i++ {
				d := physics.MovementDelta(topo.Distance(path[i-1], path[i]), probe.Entropy)
				deltas = append(deltas, d)
				probe = physics.ApplyDelta(probe, d)
			}

			states := physics.Forecast(start, deltas)
			outcome := struct {
				Path   []string            `json:"path"`
				States []model.EntityState `json:"states"`
			}{Path: path, States: states}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(outcome)
		},
	}
	return cmd
}
