package smf

import (
	"context"
	"fmt"
	"slices"
	"time"
)

// WaitForState polls client until the named service reaches one of
// states or ctx ends. Query errors are retried; the last one is reported
// if the wait times out. A zero interval uses DefaultWaitInterval.
func WaitForState(ctx context.Context, client SmfClient, name string, states []State, interval time.Duration) (ServiceState, error) {
	if len(states) == 0 {
		return ServiceState{}, fmt.Errorf("smf: no target states for %s", name)
	}
	if interval <= 0 {
		interval = DefaultWaitInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var (
		last    ServiceState
		lastErr error
	)

	for {
		st, err := client.State(ctx, name)
		if err == nil {
			last = st
			if st.Exists && slices.Contains(states, st.State) {
				return st, nil
			}
		}
		lastErr = err

		select {
		case <-ctx.Done():
			if lastErr != nil {
				return last, fmt.Errorf("waiting for %s: %w (last error: %v)", name, ctx.Err(), lastErr)
			}
			return last, fmt.Errorf("waiting for %s (state %s): %w", name, last, ctx.Err())
		case <-ticker.C:
		}
	}
}
