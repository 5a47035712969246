package protocol

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/flotilla-run/flotilla/internal/config"
	"github.com/flotilla-run/flotilla/internal/logger"
	flotillaerrors "github.com/flotilla-run/flotilla/pkg/errors"
)

type localFactory struct{}

func init() {
	if err := Register(localFactory{}); err != nil {
		panic(err)
	}
}

func (localFactory) Name() string { return "local" }

func (localFactory) Source(_ context.Context, spec config.SourceSpec, _ *logger.Logger) (Source, error) {
	re, err := compilePattern("local", spec.FileRegex)
	if err != nil {
		return nil, err
	}
	return &localSource{dir: spec.Directory, re: re}, nil
}

func (localFactory) Destination(_ context.Context, spec config.DestinationSpec, _ *logger.Logger) (Destination, error) {
	if spec.Directory == "" {
		return nil, flotillaerrors.NewProtocolError("local", fmt.Errorf("destination directory is required"))
	}
	return &localDestination{dir: spec.Directory}, nil
}

func (localFactory) Commander(_ context.Context, _ string, _ config.ProtocolSpec, log *logger.Logger) (Commander, error) {
	return &localCommander{log: log}, nil
}

type localSource struct {
	dir string
	re  *regexp.Regexp
}

func (s *localSource) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, flotillaerrors.NewProtocolError("local", fmt.Errorf("list %s: %w", s.dir, err))
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}
	return matchNames(names, s.re), nil
}

func (s *localSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		return nil, flotillaerrors.NewProtocolError("local", err)
	}
	return f, nil
}

func (s *localSource) Close() error { return nil }

type localDestination struct {
	dir string
}

func (d *localDestination) Store(_ context.Context, name string, contents io.Reader) error {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return flotillaerrors.NewProtocolError("local", err)
	}

	f, err := os.OpenFile(filepath.Join(d.dir, name), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return flotillaerrors.NewProtocolError("local", err)
	}
	if _, err := io.Copy(f, contents); err != nil {
		f.Close()
		return flotillaerrors.NewProtocolError("local", err)
	}
	if err := f.Close(); err != nil {
		return flotillaerrors.NewProtocolError("local", err)
	}
	return nil
}

func (d *localDestination) Close() error { return nil }

type localCommander struct {
	log *logger.Logger
}

func (c *localCommander) Exec(ctx context.Context, dir, command string) error {
	shell, shellArgs, err := determineShell()
	if err != nil {
		return flotillaerrors.NewProtocolError("local", err)
	}

	args := append(shellArgs, command)
	cmd := exec.CommandContext(ctx, shell, args...)
	if dir != "" {
		cmd.Dir = dir
	}

	output, err := cmd.CombinedOutput()
	trimmed := strings.TrimSpace(string(output))
	if err != nil {
		if trimmed != "" {
			err = fmt.Errorf("%w: %s", err, trimmed)
		}
		return flotillaerrors.NewProtocolError("local", err)
	}

	if trimmed != "" {
		c.log.WithFields(map[string]any{"output": trimmed}).Debug("command output")
	}
	return nil
}

func (c *localCommander) Close() error { return nil }

func determineShell() (string, []string, error) {
	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C"}, nil
	}

	if path, err := exec.LookPath("bash"); err == nil {
		return path, []string{"-c"}, nil
	}

	if path, err := exec.LookPath("sh"); err == nil {
		return path, []string{"-c"}, nil
	}

	return "", nil, fmt.Errorf("no suitable shell found")
}
