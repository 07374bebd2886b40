package smf

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// recordingReconciler tracks concurrent calls per service
type recordingReconciler struct {
	mu         sync.Mutex
	active     map[string]int
	overlapped map[string]bool
	running    int32
	peak       int32
	fail       map[string]error
	delay      time.Duration
}

func newRecordingReconciler() *recordingReconciler {
	return &recordingReconciler{
		active:     make(map[string]int),
		overlapped: make(map[string]bool),
		fail:       make(map[string]error),
		delay:      10 * time.Millisecond,
	}
}

func (r *recordingReconciler) enter(name string) {
	r.mu.Lock()
	r.active[name]++
	if r.active[name] > 1 {
		r.overlapped[name] = true
	}
	r.mu.Unlock()

	n := atomic.AddInt32(&r.running, 1)
	for {
		peak := atomic.LoadInt32(&r.peak)
		if n <= peak || atomic.CompareAndSwapInt32(&r.peak, peak, n) {
			break
		}
	}
}

func (r *recordingReconciler) leave(name string) {
	atomic.AddInt32(&r.running, -1)
	r.mu.Lock()
	r.active[name]--
	r.mu.Unlock()
}

func (r *recordingReconciler) Reconcile(ctx context.Context, spec *ServiceSpec) (Report, error) {
	r.enter(spec.Name)
	defer r.leave(spec.Name)

	select {
	case <-time.After(r.delay):
	case <-ctx.Done():
		return Report{}, ctx.Err()
	}

	if err := r.fail[spec.Name]; err != nil {
		return Report{}, err
	}
	return Report{Plan: Plan{Service: spec.Name, Action: spec.Action}}, nil
}

func (r *recordingReconciler) Pid(_ context.Context, name string) (int, error) {
	if err := r.fail[name]; err != nil {
		return 0, err
	}
	return len(name) * 100, nil
}

func TestManagerReconcile(t *testing.T) {
	rec := newRecordingReconciler()
	mgr := NewManager(rec, WithConcurrency(2), WithTimeout(time.Second))

	var specs []*ServiceSpec
	for i := 0; i < 6; i++ {
		specs = append(specs, NewServiceSpec(fmt.Sprintf("svc%d", i)).WithCommand("/bin/true"))
	}

	reports, err := mgr.Reconcile(context.Background(), specs...)
	if err != nil {
		t.Fatal(err)
	}
	if len(reports) != 6 {
		t.Fatalf("got %d reports, want 6", len(reports))
	}
	for _, spec := range specs {
		if reports[spec.Name].Plan.Service != spec.Name {
			t.Errorf("missing report for %s", spec.Name)
		}
	}
	if peak := atomic.LoadInt32(&rec.peak); peak > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak)
	}
}

func TestManagerSerializesSameService(t *testing.T) {
	rec := newRecordingReconciler()
	mgr := NewManager(rec, WithConcurrency(8))

	specs := []*ServiceSpec{
		NewServiceSpec("webapp").WithCommand("/bin/true"),
		NewServiceSpec("webapp").WithCommand("/bin/false"),
		NewServiceSpec("webapp").WithAction(ActionDestroy),
		NewServiceSpec("worker").WithCommand("/bin/true"),
	}

	if _, err := mgr.Reconcile(context.Background(), specs...); err != nil {
		t.Fatal(err)
	}

	if rec.overlapped["webapp"] {
		t.Error("reconciles of webapp overlapped")
	}
	if mgr.locks.Len() != 0 {
		t.Errorf("lock table not drained: %d entries", mgr.locks.Len())
	}
}

func TestManagerAggregatesErrors(t *testing.T) {
	rec := newRecordingReconciler()
	rec.fail["bad1"] = ErrManifestInvalid
	rec.fail["bad2"] = &CommandError{Command: NewCommand("svcadm"), ExitCode: 1}
	mgr := NewManager(rec)

	reports, err := mgr.Reconcile(context.Background(),
		NewServiceSpec("good").WithCommand("/bin/true"),
		NewServiceSpec("bad1").WithCommand("/bin/true"),
		NewServiceSpec("bad2").WithCommand("/bin/true"),
	)

	var merr *MultiError
	if !errors.As(err, &merr) {
		t.Fatalf("error = %v, want *MultiError", err)
	}
	if len(merr.Errors) != 2 {
		t.Errorf("got %d errors, want 2", len(merr.Errors))
	}
	if !errors.Is(err, ErrManifestInvalid) {
		t.Error("MultiError should unwrap to ErrManifestInvalid")
	}
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Error("MultiError should unwrap to *CommandError")
	}
	if reports["good"].Plan.Service != "good" {
		t.Error("successful service should still report")
	}
}

func TestManagerTimeout(t *testing.T) {
	rec := newRecordingReconciler()
	rec.delay = time.Second
	mgr := NewManager(rec, WithTimeout(20*time.Millisecond))

	_, err := mgr.Reconcile(context.Background(), NewServiceSpec("slow").WithCommand("/bin/true"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want deadline exceeded", err)
	}
}

func TestManagerLockWaitHonorsContext(t *testing.T) {
	rec := newRecordingReconciler()
	mgr := NewManager(rec, WithConcurrency(1))

	unlock := mgr.locks.Lock("webapp")
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := mgr.Reconcile(ctx, NewServiceSpec("webapp").WithCommand("/bin/true"))
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("error = %v, want deadline exceeded", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Reconcile kept waiting for the service lock after its context ended")
	}

	if atomic.LoadInt32(&rec.peak) != 0 {
		t.Error("reconciler ran without holding the service lock")
	}
}

func TestManagerRejectsNilSpec(t *testing.T) {
	rec := newRecordingReconciler()
	mgr := NewManager(rec)

	reports, err := mgr.Reconcile(context.Background(),
		NewServiceSpec("webapp").WithCommand("/bin/true"),
		nil,
	)
	if !errors.Is(err, ErrInvalidSpec) {
		t.Fatalf("error = %v, want ErrInvalidSpec", err)
	}
	var specErr *InvalidSpecError
	if !errors.As(err, &specErr) || specErr.Field != "specs[1]" {
		t.Errorf("error = %#v, want field specs[1]", err)
	}
	if len(reports) != 0 {
		t.Errorf("reports = %v, want none", reports)
	}
	if atomic.LoadInt32(&rec.peak) != 0 {
		t.Error("no service should run when a spec is nil")
	}
}

func TestManagerPid(t *testing.T) {
	rec := newRecordingReconciler()
	rec.fail["stopped"] = ErrPidUnavailable
	mgr := NewManager(rec)

	pids, err := mgr.Pid(context.Background(), "web", "stopped")
	if !errors.Is(err, ErrPidUnavailable) {
		t.Fatalf("error = %v, want ErrPidUnavailable", err)
	}
	if pids["web"] != 300 {
		t.Errorf("web pid = %d, want 300", pids["web"])
	}
	if _, ok := pids["stopped"]; ok {
		t.Error("stopped service should have no pid")
	}
}

func TestManagerEmpty(t *testing.T) {
	mgr := NewManager(newRecordingReconciler(), WithConcurrency(0))
	if mgr.Concurrency != 1 {
		t.Errorf("concurrency = %d, want 1", mgr.Concurrency)
	}

	reports, err := mgr.Reconcile(context.Background())
	if err != nil || len(reports) != 0 {
		t.Errorf("Reconcile() = %v, %v", reports, err)
	}
}
