// metrosim is the command-line front end of the metro simulation engine:
// it loads a topology document, drives the simulation loop, and exposes
// the engine's control surface (validate, run, forecast) without the
// engine itself ever touching the network or the filesystem.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "metrosim",
		Short:         "Deterministic metro-graph simulation engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "metrosim.yaml", "path to the YAML config file")

	root.AddCommand(newRunCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newForecastCmd())
	return root
}
