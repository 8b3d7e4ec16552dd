package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cass-search/cass/internal/output"
)

// FileLock is a single-file advisory lock excluding concurrent indexers
// from the data directory, per §4.F's "single-file lock... excludes
// concurrent indexers".
type FileLock struct {
	path string
	file *os.File
}

// AcquireLock creates dataDir/indexer.lock exclusively. If the file
// already exists, the lock is held elsewhere and a busy error is
// returned.
func AcquireLock(dataDir string) (*FileLock, error) {
	path := filepath.Join(dataDir, "indexer.lock")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, output.New(output.KindBusy, "indexer lock held", "wait for the running index to finish, or remove a stale indexer.lock")
		}
		return nil, fmt.Errorf("acquire indexer lock: %w", err)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	return &FileLock{path: path, file: f}, nil
}

// Release removes the lock file.
func (l *FileLock) Release() error {
	l.file.Close()
	return os.Remove(l.path)
}
