// cmd/root.go
package cmd

import (
	"errors"
	"fmt"
	"os"

	mmap "github.com/edsrzf/mmap-go"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/npucc/npucc/caps"
	"github.com/npucc/npucc/errs"
	"github.com/npucc/npucc/ir"
	"github.com/npucc/npucc/options"
)

var (
	networkPath string
	capsPath    string
	optionsPath string
	outPath     string
	logLevel    string
)

var rootCmd = &cobra.Command{
	Use:   "ncc",
	Short: "Ethos-style NPU compiler",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// Execute runs the root command, exiting non-zero when cobra reports an
// error (e.g. an unknown or missing required flag). Subcommands exit on
// their own failures through exitOnError.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(estimateCmd)
	rootCmd.AddCommand(dumpDotCmd)
}

// mmapFile maps path read-only and returns its bytes, the way
// saferwall-pe maps PE binaries rather than copying them wholesale via
// os.ReadFile (DOMAIN STACK: github.com/edsrzf/mmap-go).
func mmapFile(path string) (mmap.MMap, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("mapping %s: %w", path, err)
	}
	return m, f, nil
}

func loadGraph(path string) (*ir.Graph, error) {
	data, f, err := mmapFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	defer data.Unmap()

	net, err := ParseNetwork(data)
	if err != nil {
		return nil, err
	}
	return BuildGraph(net)
}

func loadCaps(path string) (caps.Capabilities, error) {
	data, f, err := mmapFile(path)
	if err != nil {
		return caps.Capabilities{}, err
	}
	defer f.Close()
	defer data.Unmap()
	return caps.Parse(data)
}

// exitOnError prints err and exits 1, unwrapping a NotSupportedError
// into its bare reason the way the teacher's cmd/root.go reports a
// fatal simulator misconfiguration.
func exitOnError(err error) {
	var notSupported *errs.NotSupportedError
	if errors.As(err, &notSupported) {
		fmt.Fprintf(os.Stderr, "ncc: not supported: %s\n", notSupported.Reason)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "ncc: %s\n", err)
	os.Exit(1)
}

func loadOptions(path string) options.CompilationOptions {
	if path == "" {
		return options.DefaultCompilationOptions()
	}
	opts, err := options.LoadCompilationOptions(path)
	if err != nil {
		exitOnError(err)
	}
	return opts
}
