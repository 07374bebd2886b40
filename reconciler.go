package smf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Reconciler converges SMF services to their ServiceSpec. It performs no
// locking and no retries: callers reconciling the same service name from
// several goroutines must serialize those calls (see Manager).
type Reconciler struct {
	// Client queries and drives SMF
	Client SmfClient

	// Store holds the manifest files
	Store ManifestStore

	// Validator checks staged manifests before they are committed
	Validator Validator

	// ManifestDir is the directory manifests are written to
	ManifestDir string

	// Logger receives structured progress logs
	Logger zerolog.Logger

	// Metrics records reconciliation counters; nil disables metrics
	Metrics *Metrics
}

// ReconcilerOption configures a Reconciler
type ReconcilerOption func(*Reconciler)

// WithStore sets the manifest store
func WithStore(s ManifestStore) ReconcilerOption {
	return func(r *Reconciler) {
		r.Store = s
	}
}

// WithValidator sets the manifest validator
func WithValidator(v Validator) ReconcilerOption {
	return func(r *Reconciler) {
		r.Validator = v
	}
}

// WithManifestDir sets the manifest directory
func WithManifestDir(dir string) ReconcilerOption {
	return func(r *Reconciler) {
		r.ManifestDir = dir
	}
}

// WithLogger sets the logger
func WithLogger(l zerolog.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		r.Logger = l
	}
}

// WithMetrics sets the metrics collector
func WithMetrics(m *Metrics) ReconcilerOption {
	return func(r *Reconciler) {
		r.Metrics = m
	}
}

// NewReconciler creates a Reconciler for client. Unless overridden, manifests
// go to DefaultManifestDir on disk and are validated with svccfg when client
// is a *ClientSMF, or structurally otherwise.
func NewReconciler(client SmfClient, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		Client:      client,
		Store:       NewDiskStore(),
		ManifestDir: DefaultManifestDir,
		Logger:      zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.Validator == nil {
		if c, ok := client.(*ClientSMF); ok {
			r.Validator = NewSvccfgValidator(c.Runner)
		} else {
			r.Validator = StructuralValidator
		}
	}

	return r
}

// Reconcile plans and executes the steps converging spec
func (r *Reconciler) Reconcile(ctx context.Context, spec *ServiceSpec) (Report, error) {
	start := time.Now()
	report := Report{RunID: uuid.NewString()}

	if err := spec.Validate(); err != nil {
		return report, err
	}

	log := r.Logger.With().
		Str("run_id", report.RunID).
		Str("service", spec.Name).
		Str("action", spec.Action.String()).
		Logger()

	switch spec.Action {
	case ActionCreate:
		log.Debug().Msg("creating solaris service")
	case ActionDestroy:
		log.Debug().Msg("destroying solaris service")
	}

	plan, err := r.plan(ctx, spec)
	if err != nil {
		r.Metrics.observeReconcile(spec.Action, err, time.Since(start))
		log.Error().Err(err).Msg("planning failed")
		return report, err
	}

	report, err = r.execute(ctx, spec, plan, report, log)
	report.Duration = time.Since(start)
	r.Metrics.observeReconcile(spec.Action, err, report.Duration)

	if err != nil {
		log.Error().Err(err).Str("plan", plan.String()).Msg("reconcile failed")
		return report, err
	}

	log.Info().
		Str("plan", plan.String()).
		Bool("manifest_changed", report.ManifestChanged).
		Bool("refreshed", report.Refreshed).
		Dur("duration", report.Duration).
		Msg("reconciled")

	return report, nil
}

// Plan observes SMF and computes the steps for spec without side effects.
// The refresh step is left out when SMF already matches: an online service
// for Create, an unregistered one for Destroy.
func (r *Reconciler) Plan(ctx context.Context, spec *ServiceSpec) (Plan, error) {
	if err := spec.Validate(); err != nil {
		return Plan{}, err
	}
	return r.plan(ctx, spec)
}

func (r *Reconciler) plan(ctx context.Context, spec *ServiceSpec) (Plan, error) {
	plan := Plan{
		Service:      spec.Name,
		Action:       spec.Action,
		ManifestPath: ManifestPath(r.ManifestDir, spec.Name),
	}

	switch spec.Action {
	case ActionCreate:
		observed, err := r.Client.State(ctx, spec.Name)
		if err != nil {
			return plan, err
		}
		plan.Observed = observed
		plan.Steps = append(plan.Steps, StepWriteManifest)
		if observed.State != StateOnline {
			plan.Steps = append(plan.Steps, StepRefreshManifestImport)
		}

	case ActionDestroy:
		exists, err := r.Client.Exists(ctx, spec.Name)
		if err != nil {
			return plan, err
		}
		plan.Observed = ServiceState{Exists: exists}
		plan.Steps = append(plan.Steps, StepDeleteManifest)
		if exists {
			plan.Steps = append(plan.Steps, StepRefreshManifestImport)
		}

	default:
		return plan, &InvalidSpecError{Field: "action", Reason: fmt.Sprintf("unknown action %d", spec.Action)}
	}

	return plan, nil
}

// Execute runs a plan previously computed by Plan for the same spec. The
// plan must target the manifest path of spec under ManifestDir.
func (r *Reconciler) Execute(ctx context.Context, spec *ServiceSpec, plan Plan) (Report, error) {
	start := time.Now()
	report := Report{RunID: uuid.NewString()}

	if err := spec.Validate(); err != nil {
		return report, err
	}
	if want := ManifestPath(r.ManifestDir, spec.Name); plan.ManifestPath != want {
		return report, &InvalidSpecError{
			Field:  "plan",
			Reason: fmt.Sprintf("manifest path %q does not match %q", plan.ManifestPath, want),
		}
	}

	log := r.Logger.With().Str("run_id", report.RunID).Str("service", spec.Name).Logger()

	report, err := r.execute(ctx, spec, plan, report, log)
	report.Duration = time.Since(start)
	return report, err
}

func (r *Reconciler) execute(ctx context.Context, spec *ServiceSpec, plan Plan, report Report, log zerolog.Logger) (Report, error) {
	report.Plan = plan

	for _, step := range plan.Steps {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		log.Debug().Stringer("step", step).Msg("executing step")

		switch step {
		case StepWriteManifest:
			changed, err := r.writeManifest(ctx, spec, plan.ManifestPath)
			if err != nil {
				return report, err
			}
			report.ManifestChanged = changed

		case StepDeleteManifest:
			removed, err := r.Store.Remove(plan.ManifestPath)
			if err != nil {
				return report, err
			}
			report.ManifestChanged = removed

		case StepRefreshManifestImport:
			if err := r.Client.RefreshManifestImport(ctx); err != nil {
				return report, err
			}
			report.Refreshed = true
			r.Metrics.observeRefresh()

		default:
			return report, fmt.Errorf("smf: unknown plan step %d", step)
		}

		report.Completed = append(report.Completed, step)
	}

	return report, nil
}

// writeManifest renders spec and replaces the manifest at path once the
// staged copy validates. An identical manifest on disk is left alone.
func (r *Reconciler) writeManifest(ctx context.Context, spec *ServiceSpec, path string) (bool, error) {
	content, err := RenderManifest(spec)
	if err != nil {
		return false, err
	}

	current, err := r.Store.Read(path)
	switch {
	case err == nil && bytes.Equal(current, content):
		return false, nil
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return false, err
	}

	staged, err := r.Store.Stage(path, content)
	if err != nil {
		return false, err
	}

	if err := r.Validator.Validate(ctx, staged.Path()); err != nil {
		_ = staged.Discard()
		return false, err
	}

	if err := staged.Commit(); err != nil {
		_ = staged.Discard()
		return false, err
	}

	return true, nil
}

// Pid returns the pid of the named running service
func (r *Reconciler) Pid(ctx context.Context, name string) (int, error) {
	if !serviceNameRe.MatchString(name) {
		return 0, &InvalidSpecError{Field: "name", Reason: fmt.Sprintf("invalid service name %q", name)}
	}
	return r.Client.Pid(ctx, name)
}

// Ensure Reconciler implements ServiceReconciler and Planner
var (
	_ ServiceReconciler = (*Reconciler)(nil)
	_ Planner           = (*Reconciler)(nil)
)
