package smf

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// ManifestStore reads, stages and removes manifest files
type ManifestStore interface {
	// Read returns the current manifest content. A missing file is reported
	// with an error matching fs.ErrNotExist.
	Read(path string) ([]byte, error)

	// Stage writes data to a temporary file next to path without touching
	// path itself. The staged file is published with Commit.
	Stage(path string, data []byte) (StagedManifest, error)

	// Remove deletes path. A missing file is not an error; removed reports
	// whether a file was deleted.
	Remove(path string) (removed bool, err error)
}

// StagedManifest is a manifest written to a temporary location
type StagedManifest interface {
	// Path is the temporary file holding the staged content
	Path() string
	// Commit atomically replaces the target with the staged content
	Commit() error
	// Discard removes the staged file; it is a no-op after Commit
	Discard() error
}

// DiskStore is a ManifestStore on the local filesystem. Manifests are
// replaced atomically with renameio so manifest-import never reads a
// partially written file.
type DiskStore struct {
	// Perm is the mode of committed manifests
	Perm fs.FileMode
}

// NewDiskStore creates a DiskStore with the default file mode
func NewDiskStore() *DiskStore {
	return &DiskStore{Perm: FileMode}
}

// Read returns the manifest at path
func (s *DiskStore) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &OpError{Op: "read", Path: path, Err: err}
	}
	return data, nil
}

// Stage writes data into a hidden pending file in the target directory so
// validation sees the file exactly where manifest-import will
func (s *DiskStore) Stage(path string, data []byte) (StagedManifest, error) {
	if err := os.MkdirAll(filepath.Dir(path), DirMode); err != nil {
		return nil, &OpError{Op: "stage", Path: path, Err: err}
	}

	pf, err := renameio.NewPendingFile(path,
		renameio.WithTempDir(filepath.Dir(path)),
		renameio.WithPermissions(s.perm()),
	)
	if err != nil {
		return nil, &OpError{Op: "stage", Path: path, Err: err}
	}
	if _, err := pf.Write(data); err != nil {
		_ = pf.Cleanup()
		return nil, &OpError{Op: "stage", Path: path, Err: err}
	}

	return &pendingManifest{target: path, pf: pf}, nil
}

// Remove deletes the manifest at path
func (s *DiskStore) Remove(path string) (bool, error) {
	err := os.Remove(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, &OpError{Op: "remove", Path: path, Err: err}
	}
}

func (s *DiskStore) perm() fs.FileMode {
	if s.Perm == 0 {
		return FileMode
	}
	return s.Perm
}

type pendingManifest struct {
	target string
	pf     *renameio.PendingFile
}

func (p *pendingManifest) Path() string {
	return p.pf.Name()
}

func (p *pendingManifest) Commit() error {
	if err := p.pf.CloseAtomicallyReplace(); err != nil {
		return &OpError{Op: "commit", Path: p.target, Err: err}
	}
	return nil
}

func (p *pendingManifest) Discard() error {
	if err := p.pf.Cleanup(); err != nil {
		return &OpError{Op: "discard", Path: p.target, Err: err}
	}
	return nil
}

// Ensure DiskStore implements ManifestStore
var _ ManifestStore = (*DiskStore)(nil)
