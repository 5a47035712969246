package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/flotilla-run/flotilla/internal/batch"
	"github.com/flotilla-run/flotilla/internal/logger"
)

// File is the durable status recorder for one invocation: an append-only
// artifact under <root>/<batch id>/ that is renamed on close to advertise the
// outcome.
type File struct {
	mu      sync.Mutex
	dir     string
	path    string
	batchID string
	f       *os.File
	closed  bool
	log     *logger.Logger
}

// NewFile opens a fresh running artifact. The header line carries the run id
// for correlation; the directory stays keyed by batch id so later invocations
// can find it without knowing this run's id.
func NewFile(root, batchID, runID string, log *logger.Logger) (*File, error) {
	dir := filepath.Join(root, batchID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating artifact directory: %w", err)
	}

	now := time.Now()
	path := filepath.Join(dir, now.Format(stampFormat)+suffixRunning)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating artifact: %w", err)
	}

	header := fmt.Sprintf("# batch %s run %s started %s\n", batchID, runID, now.UTC().Format(time.RFC3339))
	if _, err := f.WriteString(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing artifact header: %w", err)
	}

	return &File{dir: dir, path: path, batchID: batchID, f: f, log: log}, nil
}

// Record appends one marker line and syncs it to disk before returning, so a
// later process can rebuild state even if this one is killed immediately
// after.
func (j *File) Record(orderID int, taskID string, status batch.Status) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return fmt.Errorf("artifact %s already closed", j.path)
	}
	if _, err := fmt.Fprintln(j.f, formatMarker(time.Now(), orderID, taskID, status)); err != nil {
		return err
	}
	return j.f.Sync()
}

// Close finishes the artifact and renames it for the outcome: the _running
// suffix is dropped when the run succeeded and becomes _failed otherwise.
func (j *File) Close(success bool) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true

	if err := j.f.Close(); err != nil {
		return err
	}

	final := strings.TrimSuffix(j.path, suffixRunning)
	if success {
		final += suffixClean
	} else {
		final += suffixFailed
	}
	if err := os.Rename(j.path, final); err != nil {
		return err
	}

	j.log.WithFields(map[string]any{"artifact": final}).Debug("run artifact sealed")
	j.path = final
	return nil
}

// Path returns the artifact's current location.
func (j *File) Path() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.path
}
