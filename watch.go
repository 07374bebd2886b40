package smf

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"vawter.tech/stopper"
)

// ManifestOp describes what happened to a manifest file
type ManifestOp int

const (
	// ManifestWritten means the manifest was created or modified
	ManifestWritten ManifestOp = iota + 1
	// ManifestRemoved means the manifest no longer exists
	ManifestRemoved
)

// String returns the string representation of a ManifestOp
func (op ManifestOp) String() string {
	switch op {
	case ManifestWritten:
		return "written"
	case ManifestRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// ManifestEvent reports a change to a manifest in the watched directory
type ManifestEvent struct {
	// Service is the service name derived from the file name
	Service string
	// Path is the manifest file path
	Path string
	// Op is the settled state of the file after debouncing
	Op ManifestOp
	// Err is set for watcher errors; the other fields are then empty
	Err error
}

// WatchCleanupFunc stops a watch and waits for its goroutine to exit
type WatchCleanupFunc func() error

// WatchManifests watches dir for manifest changes. Manifests are owned by
// the reconciler, so events not caused by a reconcile indicate drift that a
// caller can correct by reconciling again. Bursts of events for the same
// file are coalesced over debounce (DefaultWatchDebounce if zero).
func WatchManifests(ctx context.Context, dir string, debounce time.Duration) (<-chan ManifestEvent, WatchCleanupFunc, error) {
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, &OpError{Op: "watch", Path: dir, Err: err}
	}

	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, nil, &OpError{Op: "watch", Path: dir, Err: err}
	}

	ch := make(chan ManifestEvent, 10)

	sctx := stopper.WithContext(ctx)

	sctx.Defer(func() {
		_ = watcher.Close()
		close(ch)
	})

	cleanup := func() error {
		sctx.Stop(100 * time.Millisecond)
		return sctx.Wait()
	}

	send := func(ev ManifestEvent) bool {
		select {
		case ch <- ev:
			return true
		case <-sctx.Stopping():
			return false
		case <-ctx.Done():
			return false
		}
	}

	sctx.Go(func(sctx *stopper.Context) error {
		pending := make(map[string]struct{})
		timer := time.NewTimer(debounce)
		if !timer.Stop() {
			<-timer.C
		}
		defer timer.Stop()

		for !sctx.IsStopping() {
			select {
			case <-sctx.Stopping():
				return nil

			case <-ctx.Done():
				return nil

			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if !isManifestFile(event.Name) || event.Op == fsnotify.Chmod {
					continue
				}
				pending[event.Name] = struct{}{}
				timer.Reset(debounce)

			case <-timer.C:
				for path := range pending {
					delete(pending, path)
					if !send(settle(path)) {
						return nil
					}
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				if err != nil && !send(ManifestEvent{Err: err}) {
					return nil
				}
			}
		}
		return nil
	})

	return ch, cleanup, nil
}

// settle reports the current state of path
func settle(path string) ManifestEvent {
	ev := ManifestEvent{
		Service: strings.TrimSuffix(filepath.Base(path), ManifestExt),
		Path:    path,
		Op:      ManifestWritten,
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		ev.Op = ManifestRemoved
	}
	return ev
}

// isManifestFile skips hidden files, which includes renameio's staging files
func isManifestFile(path string) bool {
	base := filepath.Base(path)
	return strings.HasSuffix(base, ManifestExt) && !strings.HasPrefix(base, ".")
}
