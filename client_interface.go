package smf

import (
	"context"
)

// SmfClient queries and drives the SMF subsystem. Implementations keep all
// parsing of svcs/svcadm output behind structured return values.
type SmfClient interface {
	// State returns the observed state of the named service. A service that
	// is not registered is reported with Exists=false and no error.
	State(ctx context.Context, name string) (ServiceState, error)

	// Exists reports whether the named service is registered with SMF
	Exists(ctx context.Context, name string) (bool, error)

	// Pid returns the pid of the named service's running process
	Pid(ctx context.Context, name string) (int, error)

	// RefreshManifestImport synchronously disables and then enables the
	// manifest-import service so that each transition has completed before
	// it returns.
	RefreshManifestImport(ctx context.Context) error
}

// ServiceReconciler converges a service to its desired definition. It is
// the interface registry providers hand back to the host framework.
type ServiceReconciler interface {
	// Reconcile applies spec and reports what was done
	Reconcile(ctx context.Context, spec *ServiceSpec) (Report, error)

	// Pid returns the pid of the named running service
	Pid(ctx context.Context, name string) (int, error)
}

// Planner computes a reconciliation plan without side effects
type Planner interface {
	Plan(ctx context.Context, spec *ServiceSpec) (Plan, error)
}
