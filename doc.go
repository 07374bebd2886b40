// Package smf manages Solaris SMF services declaratively: it writes a
// service manifest for a ServiceSpec, imports it, and removes it again.
//
// The core is the Reconciler, which compares a ServiceSpec with the state
// SMF reports and issues the minimal set of external actions:
//
//	runner := smf.NewExecRunner()
//	r := smf.NewReconciler(smf.NewClientSMF(runner))
//
//	spec := smf.NewServiceSpec("webapp").
//	    WithCommand("/usr/bin/webapp").
//	    WithUser("app").
//	    WithDirectory("/opt/webapp")
//
//	report, err := r.Reconcile(ctx, spec)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(report.Plan)
//
//	pid, err := r.Pid(ctx, "webapp")
//
// # Manifest import
//
// Manifests live under /lib/svc/manifest/site and are registered by the
// manifest-import service. Restarting manifest-import returns as soon as the
// restart is requested, so a caller reading state or pid right after would
// race the import. The reconciler instead runs `svcadm disable -s` and then
// `svcadm enable -s` on manifest-import; each blocks until the transition
// completes. The cycle is skipped when SMF already matches the ServiceSpec: an
// online service for create, an unregistered service for destroy.
//
// # Failure handling
//
// A rendered manifest is staged next to its final path, checked with
// `svccfg validate`, and only then atomically renamed into place, so an
// invalid manifest (ErrManifestInvalid) never replaces the live one.
// Failing commands surface as *CommandError and filesystem failures as
// *OpError. Nothing is retried internally and reconciling again is always
// safe.
//
// # Concurrency
//
// A Reconciler does no locking. Callers that may reconcile the same service
// from several goroutines serialize per name; Manager does this with a
// KeyedMutex while running distinct services in parallel.
package smf
