package smf

import (
	"context"
	"strings"
	"sync"
	"testing"
)

// fakeRunner answers commands from canned results and records every call.
// Results are matched on the full command line first, then on the longest
// registered prefix; anything else exits zero with no output.
type fakeRunner struct {
	mu       sync.Mutex
	exact    map[string]CommandResult
	prefixes map[string]CommandResult
	errs     map[string]error
	calls    []string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		exact:    make(map[string]CommandResult),
		prefixes: make(map[string]CommandResult),
		errs:     make(map[string]error),
	}
}

func (f *fakeRunner) on(cmdline string, res CommandResult) *fakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exact[cmdline] = res
	return f
}

func (f *fakeRunner) onPrefix(prefix string, res CommandResult) *fakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefixes[prefix] = res
	return f
}

func (f *fakeRunner) fail(cmdline string, err error) *fakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[cmdline] = err
	return f
}

func (f *fakeRunner) Run(_ context.Context, cmd Command) (CommandResult, error) {
	line := cmd.String()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, line)

	if err, ok := f.errs[line]; ok {
		return CommandResult{}, err
	}
	if res, ok := f.exact[line]; ok {
		return res, nil
	}

	best := ""
	for prefix := range f.prefixes {
		if strings.HasPrefix(line, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best != "" {
		return f.prefixes[best], nil
	}
	return CommandResult{}, nil
}

func (f *fakeRunner) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeRunner) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// count returns how many recorded calls start with prefix
func (f *fakeRunner) count(prefix string) int {
	n := 0
	for _, c := range f.Calls() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// Canned svcs results
var (
	svcsOnline   = CommandResult{Stdout: "online\n"}
	svcsOffline  = CommandResult{Stdout: "offline\n"}
	svcsNotFound = CommandResult{
		Stderr:   "svcs: Pattern 'webapp' doesn't match any instances",
		ExitCode: 1,
	}
	svcsListed = CommandResult{Stdout: "STATE          STIME    FMRI\nonline         10:02:11 svc:/site/webapp:default\n"}
)

// newTestReconciler returns a Reconciler driving a fake runner with
// manifests in a temporary directory
func newTestReconciler(t *testing.T, opts ...ReconcilerOption) (*Reconciler, *fakeRunner, string) {
	t.Helper()

	dir := t.TempDir()
	runner := newFakeRunner()

	cfg := DefaultConfig()
	cfg.ManifestDir = dir

	r, err := NewReconcilerWithConfig(cfg, runner, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return r, runner, dir
}

func webappSpec() *ServiceSpec {
	return NewServiceSpec("webapp").
		WithCommand("/opt/webapp/bin/webapp --port 8080").
		WithUser("webapp").
		WithDirectory("/opt/webapp").
		WithEnv("PORT", "8080").
		WithEnv("GREETING", "a&b")
}
