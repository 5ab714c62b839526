// Package main provides the churn forecast CLI.
//
// Usage:
//
//	forecast horizons --price 16.67
//	forecast segments --file scenario.yaml --format csv
//	forecast sweep --prices 0,5,10,25
//	forecast report --file scenario.yaml --output report.md --xlsx report.xlsx
//	forecast stream --url ws://localhost:8080/v1/churn/stream --file scenario.yaml
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
	rootCmd := &cobra.Command{
		Use:           "forecast",
		Short:         "Churn forecasts by horizon and customer segment",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newHorizonsCmd(),
		newSegmentsCmd(),
		newSweepCmd(),
		newReportCmd(),
		newStreamCmd(),
	)

	return rootCmd
}
