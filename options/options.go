// Package options holds compilation/estimation options, YAML-loadable
// with strict field checking (mirroring sim.LoadPolicyBundle's use of
// gopkg.in/yaml.v3 with decoder.KnownFields(true)).
package options

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CompilationOptions controls algorithm toggles, precision, and dump
// behaviour for a single compile (§6 Compilation and estimation options).
type CompilationOptions struct {
	// EnableWinograd toggles Winograd algorithm selection for eligible
	// MCE operations; when false, get_effective_algorithm always returns
	// Direct.
	EnableWinograd bool `yaml:"enable_winograd"`

	// StrictPrecision is parsed and carried with the options, but no
	// compiler stage reads it: setting it rejects no plan.
	StrictPrecision bool `yaml:"strict_precision"`

	// ActivationCompressionSavingsRatio is the multiplicative factor
	// applied to FCAF-compressed activation DRAM traffic in the
	// performance estimator (§4.J).
	ActivationCompressionSavingsRatio float64 `yaml:"activation_compression_savings_ratio"`

	// BlockConfigMask restricts the planner to a subset of the
	// capability record's supported block configs; empty means "all".
	BlockConfigMask []string `yaml:"block_config_mask"`

	// EnableIntermediateCompression is parsed and carried with the
	// options, but no compiler stage reads it, so it changes nothing.
	EnableIntermediateCompression bool `yaml:"enable_intermediate_compression"`

	// UseCascading selects the newer Part/Plan/OpGraph planner instead
	// of the legacy Pass-based planner (§5 Open Question decision 1).
	UseCascading bool `yaml:"use_cascading"`

	// ThreadCount sizes the weight encoder's worker pool; 0 means "use
	// the number of hardware threads" (§5 Concurrency & Resource Model).
	ThreadCount int `yaml:"thread_count"`

	Dump DumpOptions `yaml:"dump"`
}

// DumpOptions gates debug trace output (§4 SUPPLEMENTED FEATURES of
// SPEC_FULL.md, grounded on Compiler.cpp's m_DebugInfo).
type DumpOptions struct {
	DumpRam     bool `yaml:"dump_ram"`
	DumpReports bool `yaml:"dump_reports"`
}

// EstimationOptions controls the standalone performance-estimation path
// (ncc estimate), which must succeed even for graphs containing
// EstimateOnly nodes that Compile would reject.
type EstimationOptions struct {
	Compilation CompilationOptions `yaml:"compilation"`
}

// DefaultCompilationOptions returns the options used when no --options
// file is supplied.
func DefaultCompilationOptions() CompilationOptions {
	return CompilationOptions{
		EnableWinograd:                    true,
		StrictPrecision:                   false,
		ActivationCompressionSavingsRatio: 1.0,
		EnableIntermediateCompression:     true,
		UseCascading:                      false,
		ThreadCount:                       0,
	}
}

// LoadCompilationOptions reads and strictly parses a YAML compilation
// options file.
func LoadCompilationOptions(path string) (CompilationOptions, error) {
	opts := DefaultCompilationOptions()
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("reading compilation options: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&opts); err != nil {
		return opts, fmt.Errorf("parsing compilation options: %w", err)
	}
	return opts, nil
}
