package smf

import "time"

// SMF paths and service identifiers
const (
	// DefaultManifestDir is the site manifest directory scanned by manifest-import
	DefaultManifestDir = "/lib/svc/manifest/site"

	// ManifestExt is the file extension of generated manifests
	ManifestExt = ".xml"

	// DefaultManifestImport is the service that registers manifests with the repository
	DefaultManifestImport = "manifest-import"

	// ServiceCategory is the FMRI category generated services live under (svc:/site/<name>)
	ServiceCategory = "site"

	// DTDPath is the service bundle DTD referenced by generated manifests
	DTDPath = "/usr/share/lib/xml/dtd/service_bundle.dtd.1"
)

// Binary paths with defaults that can be overridden
const (
	// DefaultSvcsPath is the default path to the svcs binary
	DefaultSvcsPath = "svcs"

	// DefaultSvcadmPath is the default path to the svcadm binary
	DefaultSvcadmPath = "svcadm"

	// DefaultSvccfgPath is the default path to the svccfg binary
	DefaultSvccfgPath = "svccfg"

	// DefaultPrivilegeCommand is the command prefixed to SMF commands when
	// running unprivileged
	DefaultPrivilegeCommand = "pfexec"
)

// Timing defaults
const (
	// DefaultCommandTimeout bounds a single external command. Synchronous
	// svcadm transitions can take a while on a busy host.
	DefaultCommandTimeout = 2 * time.Minute

	// DefaultWaitInterval is the polling interval used by WaitForState
	DefaultWaitInterval = 250 * time.Millisecond

	// DefaultWatchDebounce is the default debounce time for manifest directory events
	DefaultWatchDebounce = 25 * time.Millisecond

	// DefaultMethodTimeout is the timeout_seconds written to exec methods
	DefaultMethodTimeout = 60
)

// File modes
const (
	// DirMode is the default mode for created directories
	DirMode = 0o755

	// FileMode is the default mode for manifest files
	FileMode = 0o444
)

// Action is the desired lifecycle action for a service
type Action int

const (
	// ActionCreate writes the manifest and imports it
	ActionCreate Action = iota
	// ActionDestroy deletes the manifest and drops the service
	ActionDestroy
)

// Action string constants
const (
	actionCreateStr  = "create"
	actionDestroyStr = "destroy"
)

// String returns the string representation of an Action
func (a Action) String() string {
	switch a {
	case ActionCreate:
		return actionCreateStr
	case ActionDestroy:
		return actionDestroyStr
	default:
		return "unknown"
	}
}

// ParseAction converts "create" or "destroy" into an Action
func ParseAction(s string) (Action, error) {
	switch s {
	case actionCreateStr, "":
		return ActionCreate, nil
	case actionDestroyStr:
		return ActionDestroy, nil
	default:
		return ActionCreate, &InvalidSpecError{Field: "action", Reason: "unknown action " + s}
	}
}

// MarshalText implements encoding.TextMarshaler
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (a *Action) UnmarshalText(text []byte) error {
	parsed, err := ParseAction(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
