package smf

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Manager reconciles many services concurrently. Specs naming the same
// service are serialized; distinct services run in parallel up to
// Concurrency.
type Manager struct {
	// Reconciler converges each service
	Reconciler ServiceReconciler
	// Concurrency is the maximum number of concurrent operations
	Concurrency int
	// Timeout is the per-operation timeout
	Timeout time.Duration

	locks *KeyedMutex
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithConcurrency sets the maximum number of concurrent operations
func WithConcurrency(n int) ManagerOption {
	return func(m *Manager) {
		m.Concurrency = n
	}
}

// WithTimeout sets the per-operation timeout
func WithTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.Timeout = d
	}
}

// NewManager creates a new Manager with default settings
func NewManager(r ServiceReconciler, opts ...ManagerOption) *Manager {
	m := &Manager{
		Reconciler:  r,
		Concurrency: 4,
		Timeout:     5 * time.Minute,
		locks:       NewKeyedMutex(),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.Concurrency < 1 {
		m.Concurrency = 1
	}

	return m
}

func (m *Manager) execute(ctx context.Context, names []string, op func(context.Context, int) error) error {
	if len(names) == 0 {
		return nil
	}

	// Semaphore for concurrency control
	sem := make(chan struct{}, m.Concurrency)

	var wg sync.WaitGroup
	var mu sync.Mutex
	merr := &MultiError{}

	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()

			// Acquire semaphore slot
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				mu.Lock()
				merr.Add(fmt.Errorf("%s: %w", name, ctx.Err()))
				mu.Unlock()
				return
			}

			unlock, err := m.locks.LockContext(ctx, name)
			if err != nil {
				mu.Lock()
				merr.Add(fmt.Errorf("%s: %w", name, err))
				mu.Unlock()
				return
			}
			defer unlock()

			// Create operation context with timeout if configured
			opCtx := ctx
			if m.Timeout > 0 {
				var cancel context.CancelFunc
				opCtx, cancel = context.WithTimeout(ctx, m.Timeout)
				defer cancel()
			}

			if err := op(opCtx, i); err != nil {
				mu.Lock()
				merr.Add(fmt.Errorf("%s: %w", name, err))
				mu.Unlock()
			}
		}(i, name)
	}

	wg.Wait()

	return merr.Err()
}

// Reconcile applies each spec and returns the reports keyed by service
// name. Specs sharing a name run one after another and the map keeps the
// report of whichever finished last. A nil spec fails the whole call before
// any service is touched.
func (m *Manager) Reconcile(ctx context.Context, specs ...*ServiceSpec) (map[string]Report, error) {
	names := make([]string, len(specs))
	for i, spec := range specs {
		if spec == nil {
			return nil, &InvalidSpecError{Field: fmt.Sprintf("specs[%d]", i), Reason: "nil service spec"}
		}
		names[i] = spec.Name
	}

	var mu sync.Mutex
	reports := make(map[string]Report, len(specs))

	err := m.execute(ctx, names, func(ctx context.Context, i int) error {
		report, err := m.Reconciler.Reconcile(ctx, specs[i])
		mu.Lock()
		reports[specs[i].Name] = report
		mu.Unlock()
		return err
	})

	return reports, err
}

// Pid retrieves the pid of each named service
func (m *Manager) Pid(ctx context.Context, names ...string) (map[string]int, error) {
	var mu sync.Mutex
	pids := make(map[string]int, len(names))

	err := m.execute(ctx, names, func(ctx context.Context, i int) error {
		pid, err := m.Reconciler.Pid(ctx, names[i])
		if err != nil {
			return err
		}
		mu.Lock()
		pids[names[i]] = pid
		mu.Unlock()
		return nil
	})

	return pids, err
}
