package protocol

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flotilla-run/flotilla/internal/config"
	"github.com/flotilla-run/flotilla/internal/logger"
	flotillaerrors "github.com/flotilla-run/flotilla/pkg/errors"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(logger.Options{Level: "debug", Writer: io.Discard})
	require.NoError(t, err)
	return log
}

func restoreBuiltins(t *testing.T) {
	t.Helper()

	t.Cleanup(func() {
		Reset()
		require.NoError(t, Register(localFactory{}))
		require.NoError(t, Register(sshFactory{}))
		require.NoError(t, Register(sftpFactory{}))
		require.NoError(t, Register(emailFactory{}))
	})
}

func TestRegistry_BuiltinsAreRegistered(t *testing.T) {
	for _, name := range []string{"local", "ssh", "sftp", "email"} {
		f, err := Get(name)
		require.NoError(t, err)
		require.Equal(t, name, f.Name())
	}
}

func TestRegistry_UnknownProtocolIsProtocolError(t *testing.T) {
	_, err := Get("carrier-pigeon")
	require.Error(t, err)

	var perr *flotillaerrors.ProtocolError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "carrier-pigeon", perr.Protocol)
}

func TestRegistry_RejectsDuplicatesAndNil(t *testing.T) {
	restoreBuiltins(t)
	Reset()

	require.Error(t, Register(nil))
	require.NoError(t, Register(localFactory{}))
	require.Error(t, Register(localFactory{}))
}

func TestEmailFactory_RejectsUnsupportedRoles(t *testing.T) {
	t.Parallel()

	f := emailFactory{}

	_, err := f.Source(context.Background(), config.SourceSpec{}, newTestLogger(t))
	require.Error(t, err)
	require.Contains(t, err.Error(), "cannot act as a source")

	_, err = f.Commander(context.Background(), "host", config.ProtocolSpec{}, newTestLogger(t))
	require.Error(t, err)
	require.Contains(t, err.Error(), "cannot run commands")
}

func TestSFTPFactory_RejectsCommanderRole(t *testing.T) {
	t.Parallel()

	_, err := sftpFactory{}.Commander(context.Background(), "host", config.ProtocolSpec{}, newTestLogger(t))
	require.Error(t, err)

	var perr *flotillaerrors.ProtocolError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "sftp", perr.Protocol)
}
