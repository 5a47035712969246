package task

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flotilla-run/flotilla/internal/config"
	"github.com/flotilla-run/flotilla/internal/logger"
	"github.com/flotilla-run/flotilla/internal/protocol"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(logger.Options{Level: "debug", Writer: io.Discard})
	require.NoError(t, err)
	return log
}

func writeConfigTree(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	for rel, contents := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	}
	return root
}

func newTestLoader(t *testing.T, files map[string]string) *config.Loader {
	t.Helper()

	loader, err := config.NewLoader(context.Background(), writeConfigTree(t, files), newTestLogger(t))
	require.NoError(t, err)
	return loader
}

// fakeSeq keeps registered fake protocol names unique for the life of the
// test binary, so tests never fight over the shared registry.
var fakeSeq atomic.Int64

// fakeFactory is an in-memory protocol handler that records what handlers
// did to it and fails on demand.
type fakeFactory struct {
	name string

	commanderErr error
	execErr      func(host string) error
	execDelay    time.Duration

	destinationErr error
	storeErr       error
	closeErr       error

	mu       sync.Mutex
	executed []string
	stored   []string
	closed   int
}

func registerFake(t *testing.T, f *fakeFactory) string {
	t.Helper()

	f.name = fmt.Sprintf("fake-%d", fakeSeq.Add(1))
	require.NoError(t, protocol.Register(f))
	return f.name
}

func (f *fakeFactory) Name() string { return f.name }

func (f *fakeFactory) Source(context.Context, config.SourceSpec, *logger.Logger) (protocol.Source, error) {
	return nil, errors.New("fake protocol has no source")
}

func (f *fakeFactory) Destination(context.Context, config.DestinationSpec, *logger.Logger) (protocol.Destination, error) {
	if f.destinationErr != nil {
		return nil, f.destinationErr
	}
	return &fakeDestination{f: f}, nil
}

func (f *fakeFactory) Commander(_ context.Context, host string, _ config.ProtocolSpec, _ *logger.Logger) (protocol.Commander, error) {
	if f.commanderErr != nil {
		return nil, f.commanderErr
	}
	return &fakeCommander{f: f, host: host}, nil
}

func (f *fakeFactory) executedHosts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.executed...)
}

func (f *fakeFactory) storedNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.stored...)
}

func (f *fakeFactory) closedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fakeCommander struct {
	f    *fakeFactory
	host string
}

func (c *fakeCommander) Exec(ctx context.Context, _, _ string) error {
	if c.f.execDelay > 0 {
		select {
		case <-time.After(c.f.execDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if c.f.execErr != nil {
		if err := c.f.execErr(c.host); err != nil {
			return err
		}
	}

	c.f.mu.Lock()
	c.f.executed = append(c.f.executed, c.host)
	c.f.mu.Unlock()
	return nil
}

func (c *fakeCommander) Close() error { return nil }

type fakeDestination struct {
	f *fakeFactory
}

func (d *fakeDestination) Store(_ context.Context, name string, contents io.Reader) error {
	if d.f.storeErr != nil {
		return d.f.storeErr
	}
	if _, err := io.Copy(io.Discard, contents); err != nil {
		return err
	}

	d.f.mu.Lock()
	d.f.stored = append(d.f.stored, name)
	d.f.mu.Unlock()
	return nil
}

func (d *fakeDestination) Close() error {
	d.f.mu.Lock()
	d.f.closed++
	d.f.mu.Unlock()
	return d.f.closeErr
}
