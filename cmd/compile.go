package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/npucc/npucc/compiler"
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile a network into the ENCN blob format",
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

		blob, err := compiler.Compile(g, capsRec, opts)
		if err != nil {
			exitOnError(err)
		}

		if err := os.WriteFile(outPath, compiler.WriteBlob(blob), 0o644); err != nil {
			exitOnError(err)
		}
		logrus.WithField("out", outPath).Info("ncc: compile complete")
	},
}

func init() {
	compileCmd.Flags().StringVar(&networkPath, "network", "", "Path to the input Network record")
	compileCmd.Flags().StringVar(&capsPath, "caps", "", "Path to the capability blob")
	compileCmd.Flags().StringVar(&optionsPath, "options", "", "Path to the compilation options YAML file")
	compileCmd.Flags().StringVar(&outPath, "out", "", "Path to write the compiled ENCN blob")
	compileCmd.MarkFlagRequired("network")
	compileCmd.MarkFlagRequired("caps")
	compileCmd.MarkFlagRequired("out")
}
