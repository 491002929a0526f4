// Package taintcoreerr implements the error taxonomy of spec.md §7:
// InvalidModel, AnalysisNoEntry, TransferUnknownNode, and
// ConfigurationMismatch. Plain wrapped stdlib errors, the way the
// teacher's config package and internal/levee.go report failures —
// no third-party error-handling library appears anywhere in the
// retrieval pack for this concern.
package taintcoreerr

import (
	"errors"
	"fmt"
)

// sentinel is the comparable error errors.Is matches against; the
// exported constructors wrap it with the offending callable/kind so the
// message stays human-readable while remaining distinguishable by kind.
var (
	sentinelInvalidModel          = errors.New("invalid model")
	sentinelAnalysisNoEntry       = errors.New("analysis produced no entry state")
	sentinelTransferUnknownNode   = errors.New("unhandled expression or statement shape")
	sentinelConfigurationMismatch = errors.New("model references a kind outside the configuration")
)

// InvalidModel reports a malformed or semantically illegal annotation at
// parse time (§4.5, §7). Parsing a model source aborts all-or-nothing on
// the first InvalidModel.
func InvalidModel(callable, reason string) error {
	return fmt.Errorf("%s: %w: %s", callable, sentinelInvalidModel, reason)
}

// IsInvalidModel reports whether err is (or wraps) an InvalidModel.
func IsInvalidModel(err error) bool { return errors.Is(err, sentinelInvalidModel) }

// ConfigurationMismatch reports a kind referenced outside the configured
// allow-lists; §7 specifies it is reported as InvalidModel.
func ConfigurationMismatch(callable, kind string) error {
	return fmt.Errorf("%s: %w: %w: %q is not in the configured allow-list", callable, sentinelInvalidModel, sentinelConfigurationMismatch, kind)
}

// IsConfigurationMismatch reports whether err is (or wraps) a
// ConfigurationMismatch.
func IsConfigurationMismatch(err error) bool { return errors.Is(err, sentinelConfigurationMismatch) }

// AnalysisNoEntry reports that the fixpoint produced no entry state for
// fn — never fatal; callers emit the empty model and log this as a
// diagnostic (§7).
func AnalysisNoEntry(fn string) error {
	return fmt.Errorf("%s: %w", fn, sentinelAnalysisNoEntry)
}

// IsAnalysisNoEntry reports whether err is (or wraps) AnalysisNoEntry.
func IsAnalysisNoEntry(err error) bool { return errors.Is(err, sentinelAnalysisNoEntry) }

// TransferUnknownNode reports an expression or statement shape not
// listed in §4.3 — never fatal. The transfer package does not build
// this error itself: it treats such a node as identity and passes the
// shape's kind to its Context.Diagnostics, when one is set.
func TransferUnknownNode(kind string) error {
	return fmt.Errorf("%s: %w", kind, sentinelTransferUnknownNode)
}

// IsTransferUnknownNode reports whether err is (or wraps) a
// TransferUnknownNode.
func IsTransferUnknownNode(err error) bool { return errors.Is(err, sentinelTransferUnknownNode) }
