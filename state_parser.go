package smf

import (
	"fmt"
	"strconv"
	"strings"
)

// State is the SMF state of a service instance as reported by svcs
type State int

const (
	// StateUnknown is any state svcs reports that is not recognised
	StateUnknown State = iota
	// StateOnline means the instance is enabled and running
	StateOnline
	// StateOffline means the instance is enabled but waiting on dependencies
	StateOffline
	// StateDisabled means the instance is disabled
	StateDisabled
	// StateMaintenance means the restarter gave up on the instance
	StateMaintenance
	// StateDegraded means the instance is running with reduced capacity
	StateDegraded
	// StateUninitialized means the restarter has not yet evaluated the instance
	StateUninitialized
	// StateLegacy is a legacy rc script reported by svcs
	StateLegacy
)

// State string constants, as printed in the STATE column of svcs
const (
	stateUnknownStr       = "unknown"
	stateOnlineStr        = "online"
	stateOfflineStr       = "offline"
	stateDisabledStr      = "disabled"
	stateMaintenanceStr   = "maintenance"
	stateDegradedStr      = "degraded"
	stateUninitializedStr = "uninitialized"
	stateLegacyStr        = "legacy_run"
)

// String returns the svcs spelling of the state
func (s State) String() string {
	switch s {
	case StateOnline:
		return stateOnlineStr
	case StateOffline:
		return stateOfflineStr
	case StateDisabled:
		return stateDisabledStr
	case StateMaintenance:
		return stateMaintenanceStr
	case StateDegraded:
		return stateDegradedStr
	case StateUninitialized:
		return stateUninitializedStr
	case StateLegacy:
		return stateLegacyStr
	default:
		return stateUnknownStr
	}
}

// ServiceState is the observed SMF state of a service
type ServiceState struct {
	// Exists reports whether the service is registered with SMF
	Exists bool
	// State is the instance state; StateUnknown when the service does not exist
	State State
}

// String returns a human-readable state
func (s ServiceState) String() string {
	if !s.Exists {
		return "absent"
	}
	return s.State.String()
}

// ParseState parses the output of `svcs -H -o STATE <name>`. Transitioning
// instances are printed with a trailing '*' and report their current state.
// When the name matches several instances the first line wins.
func ParseState(output string) State {
	line := strings.TrimSpace(output)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	line = strings.TrimSuffix(line, "*")

	switch strings.ToLower(line) {
	case stateOnlineStr:
		return StateOnline
	case stateOfflineStr:
		return StateOffline
	case stateDisabledStr:
		return StateDisabled
	case stateMaintenanceStr:
		return StateMaintenance
	case stateDegradedStr:
		return StateDegraded
	case stateUninitializedStr:
		return StateUninitialized
	case stateLegacyStr:
		return StateLegacy
	default:
		return StateUnknown
	}
}

// ParsePid parses the pid from `svcs -p <name>` output: the last
// whitespace-delimited token, which must be a positive integer.
func ParsePid(output string) (int, error) {
	fields := strings.Fields(output)
	if len(fields) == 0 {
		return 0, fmt.Errorf("%w: empty svcs output", ErrPidUnavailable)
	}

	last := fields[len(fields)-1]
	pid, err := strconv.Atoi(last)
	if err != nil {
		return 0, fmt.Errorf("%w: last token %q is not a pid", ErrPidUnavailable, last)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("%w: invalid pid %d", ErrPidUnavailable, pid)
	}

	return pid, nil
}
