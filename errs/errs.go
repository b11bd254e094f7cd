// Package errs defines the error kinds the compiler core surfaces (§7 of
// the specification). It follows the teacher repo's wrapped-error idiom
// (fmt.Errorf("...: %w", err)) rather than a panic-based hierarchy: every
// kind here is a plain struct implementing error, inspectable with
// errors.As at call sites that need to branch on kind (the CLI, the
// estimate path's tolerance of NotSupported, the fix-graph loop's
// escalation).
package errs

import "fmt"

// NotSupportedError signals an operator/shape/quant configuration outside
// the hardware envelope. It is surfaced to the caller, never recovered
// from internally.
type NotSupportedError struct {
	Reason string
}

func (e *NotSupportedError) Error() string { return fmt.Sprintf("not supported: %s", e.Reason) }

// NotSupported constructs a NotSupportedError.
func NotSupported(format string, args ...any) *NotSupportedError {
	return &NotSupportedError{Reason: fmt.Sprintf(format, args...)}
}

// WeightsTooLargeError signals the weight encoder could not fit the
// requested stripe within the SRAM budget. Nothing in the compiler
// catches it: encodeWeightsForPasses returns it and Compile passes it to
// its caller; the planner does not re-plan with a smaller stripe.
type WeightsTooLargeError struct {
	RequestedBytes int
	BudgetBytes    int
}

func (e *WeightsTooLargeError) Error() string {
	return fmt.Sprintf("weights too large: encoded stripe needs %d bytes, budget is %d", e.RequestedBytes, e.BudgetBytes)
}

// AllocationFailedError signals SRAM or DRAM allocation could not satisfy
// a request. The planner skips candidate stripe shapes that do not fit
// before raising it; once raised, Compile returns it to its caller and
// EstimatePerformance records it as an issue. No predecessor is moved
// into DRAM and it is not converted to NotSupported.
type AllocationFailedError struct {
	RequestedBytes int
	Tag            string
}

func (e *AllocationFailedError) Error() string {
	return fmt.Sprintf("allocation failed: could not place %d bytes (%s)", e.RequestedBytes, e.Tag)
}

// ParseException is raised only by collaborators parsing textual mapping
// inputs; the message is passed through verbatim.
type ParseException struct {
	Msg string
}

func (e *ParseException) Error() string { return e.Msg }

// InternalError signals an invariant violation not triggered by user
// input. Always fatal.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string { return fmt.Sprintf("internal error: %s", e.Msg) }

// Internal constructs an InternalError.
func Internal(format string, args ...any) *InternalError {
	return &InternalError{Msg: fmt.Sprintf(format, args...)}
}
