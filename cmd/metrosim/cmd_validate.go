package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [scenario.json]",
		Short: "Validate a topology document for dangling references",
		Long: `Validate a topology document for dangling references.

This command checks for:
  - Lines referencing stations that do not exist
  - Transfers at unknown stations or offering unknown lines
  - Stations listing unknown transfer lines
  - Stations forcing an unknown event category

The simulation tolerates all of these at runtime (they degrade to
no-ops), but they are configuration mistakes and should be fixed in the
scenario file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else {
				cfgPath, _ := cmd.Flags().GetString("config")
				cfg, err := LoadConfig(cfgPath)
				if err != nil {
					return err
				}
				path = cfg.Scenario
			}

			_, summary, err := loadScenario(path)
			if err != nil {
				return err
			}

			fmt.Printf("scenario %s: %d stations, %d lines, %d transfers\n",
				path, len(summary.StationIDs), len(summary.LineIDs), len(summary.TransferIDs))

			if len(summary.Problems) == 0 {
				fmt.Println("no problems found")
				return nil
			}
			for _, p := range summary.Problems {
				fmt.Fprintf(os.Stderr, "problem: %v\n", p)
			}
			return fmt.Errorf("%d topology problem(s)", len(summary.Problems))
		},
	}
	return cmd
}
