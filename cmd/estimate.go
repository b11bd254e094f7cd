package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/npucc/npucc/compiler"
)

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Estimate performance for a network without requiring a feasible compile",
	Run: func(cmd *cobra.Command, args []string) {
		g, err := loadGraph(networkPath)
		if err != nil {
			exitOnError(err)
		}
		capsRec, err := loadCaps(capsPath)
		if err != nil {
			exitOnError(err)
		}
		opts := loadOptions(optionsPath)

		report, err := compiler.EstimatePerformance(g, capsRec, opts)
		if err != nil {
			exitOnError(err)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			exitOnError(fmt.Errorf("estimate: encoding report: %w", err))
		}
	},
}

func init() {
	estimateCmd.Flags().StringVar(&networkPath, "network", "", "Path to the input Network record")
	estimateCmd.Flags().StringVar(&capsPath, "caps", "", "Path to the capability blob")
	estimateCmd.Flags().StringVar(&optionsPath, "options", "", "Path to the compilation options YAML file")
	estimateCmd.MarkFlagRequired("network")
	estimateCmd.MarkFlagRequired("caps")
}
