package protocol

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"

	"github.com/flotilla-run/flotilla/internal/config"
	"github.com/flotilla-run/flotilla/internal/logger"
	flotillaerrors "github.com/flotilla-run/flotilla/pkg/errors"
)

type sshFactory struct{}

func init() {
	if err := Register(sshFactory{}); err != nil {
		panic(err)
	}
}

func (sshFactory) Name() string { return "ssh" }

// Source and Destination ride the SFTP subsystem of the same connection, so
// an ssh transfer endpoint needs no separate configuration.
func (sshFactory) Source(ctx context.Context, spec config.SourceSpec, log *logger.Logger) (Source, error) {
	return newSFTPSource(ctx, "ssh", spec, log)
}

func (sshFactory) Destination(ctx context.Context, spec config.DestinationSpec, log *logger.Logger) (Destination, error) {
	return newSFTPDestination(ctx, "ssh", spec, log)
}

func (sshFactory) Commander(ctx context.Context, host string, spec config.ProtocolSpec, log *logger.Logger) (Commander, error) {
	if host == "" {
		return nil, flotillaerrors.NewProtocolError("ssh", fmt.Errorf("host is required"))
	}

	client, err := dialSSH(ctx, host, spec, log)
	if err != nil {
		return nil, err
	}

	return &sshCommander{client: client, host: host, log: log}, nil
}

type sshCommander struct {
	client *ssh.Client
	host   string
	log    *logger.Logger
}

func (c *sshCommander) Exec(ctx context.Context, dir, command string) error {
	session, err := c.client.NewSession()
	if err != nil {
		return flotillaerrors.NewProtocolError("ssh", fmt.Errorf("session on %s: %w", c.host, err))
	}
	defer session.Close()

	var output bytes.Buffer
	session.Stdout = &output
	session.Stderr = &output

	remote := command
	if dir != "" {
		remote = fmt.Sprintf("cd %q && %s", dir, command)
	}

	if err := session.Start(remote); err != nil {
		return flotillaerrors.NewProtocolError("ssh", fmt.Errorf("start on %s: %w", c.host, err))
	}

	done := make(chan error, 1)
	go func() { done <- session.Wait() }()

	select {
	case err := <-done:
		trimmed := strings.TrimSpace(output.String())
		if err != nil {
			if trimmed != "" {
				err = fmt.Errorf("%w: %s", err, trimmed)
			}
			return flotillaerrors.NewProtocolError("ssh", fmt.Errorf("command on %s: %w", c.host, err))
		}
		if trimmed != "" {
			c.log.WithFields(map[string]any{"host": c.host, "output": trimmed}).Debug("command output")
		}
		return nil
	case <-ctx.Done():
		// Kill the remote process before reporting; some servers ignore
		// signals, so the session is torn down either way.
		_ = session.Signal(ssh.SIGKILL)
		_ = session.Close()
		return flotillaerrors.NewProtocolError("ssh", fmt.Errorf("command on %s: %w", c.host, ctx.Err()))
	}
}

func (c *sshCommander) Close() error {
	return c.client.Close()
}
