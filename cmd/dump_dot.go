package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/npucc/npucc/ir"
)

var dumpDotCmd = &cobra.Command{
	Use:   "dump-dot",
	Short: "Load a network and write its IR graph as Graphviz dot",
	Run: func(cmd *cobra.Command, args []string) {
		g, err := loadGraph(networkPath)
		if err != nil {
			exitOnError(err)
		}

		out, err := os.Create(outPath)
		if err != nil {
			exitOnError(err)
		}
		defer out.Close()

		if err := ir.DumpDot(g, out); err != nil {
			exitOnError(err)
		}
	},
}

func init() {
	dumpDotCmd.Flags().StringVar(&networkPath, "network", "", "Path to the input Network record")
	dumpDotCmd.Flags().StringVar(&outPath, "out", "", "Path to write the dot file")
	dumpDotCmd.MarkFlagRequired("network")
	dumpDotCmd.MarkFlagRequired("out")
}
