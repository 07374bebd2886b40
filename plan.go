package smf

import (
	"strings"
	"time"
)

// Step is a single external action in a reconciliation plan
type Step int

const (
	// StepWriteManifest renders, validates and commits the manifest file
	StepWriteManifest Step = iota + 1
	// StepDeleteManifest removes the manifest file if present
	StepDeleteManifest
	// StepRefreshManifestImport synchronously disables then enables manifest-import
	StepRefreshManifestImport
)

// String returns the string representation of a Step
func (s Step) String() string {
	switch s {
	case StepWriteManifest:
		return "write-manifest"
	case StepDeleteManifest:
		return "delete-manifest"
	case StepRefreshManifestImport:
		return "refresh-manifest-import"
	default:
		return "unknown"
	}
}

// Plan is the ordered list of steps computed from desired and observed state
type Plan struct {
	// Service is the service name the plan applies to
	Service string
	// Action is the desired action the plan was computed for
	Action Action
	// ManifestPath is the manifest file the plan writes or deletes
	ManifestPath string
	// Observed is the SMF state seen while planning
	Observed ServiceState
	// Steps are executed in order, stopping at the first failure
	Steps []Step
}

// Has reports whether the plan contains step
func (p Plan) Has(step Step) bool {
	for _, s := range p.Steps {
		if s == step {
			return true
		}
	}
	return false
}

// String returns the steps joined by commas
func (p Plan) String() string {
	if len(p.Steps) == 0 {
		return "no-op"
	}
	parts := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		parts[i] = s.String()
	}
	return strings.Join(parts, ", ")
}

// Report describes the outcome of a reconciliation
type Report struct {
	// RunID identifies the reconciliation in logs
	RunID string
	// Plan is the plan that was executed
	Plan Plan
	// Completed lists the steps that finished successfully
	Completed []Step
	// ManifestChanged reports whether the manifest file was written or deleted
	ManifestChanged bool
	// Refreshed reports whether manifest-import was cycled
	Refreshed bool
	// Duration is the wall time of the reconciliation
	Duration time.Duration
}
