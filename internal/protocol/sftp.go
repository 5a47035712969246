package protocol

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/flotilla-run/flotilla/internal/config"
	"github.com/flotilla-run/flotilla/internal/logger"
	flotillaerrors "github.com/flotilla-run/flotilla/pkg/errors"
)

type sftpFactory struct{}

func init() {
	if err := Register(sftpFactory{}); err != nil {
		panic(err)
	}
}

func (sftpFactory) Name() string { return "sftp" }

func (sftpFactory) Source(ctx context.Context, spec config.SourceSpec, log *logger.Logger) (Source, error) {
	return newSFTPSource(ctx, "sftp", spec, log)
}

func (sftpFactory) Destination(ctx context.Context, spec config.DestinationSpec, log *logger.Logger) (Destination, error) {
	return newSFTPDestination(ctx, "sftp", spec, log)
}

func (sftpFactory) Commander(_ context.Context, _ string, _ config.ProtocolSpec, _ *logger.Logger) (Commander, error) {
	return nil, flotillaerrors.NewProtocolError("sftp", fmt.Errorf("cannot run commands"))
}

func newSFTPSource(ctx context.Context, protocolName string, spec config.SourceSpec, log *logger.Logger) (Source, error) {
	re, err := compilePattern(protocolName, spec.FileRegex)
	if err != nil {
		return nil, err
	}
	if spec.Hostname == "" {
		return nil, flotillaerrors.NewProtocolError(protocolName, fmt.Errorf("source hostname is required"))
	}

	client, sshClient, err := openSFTP(ctx, protocolName, spec.Hostname, spec.Protocol, log)
	if err != nil {
		return nil, err
	}

	return &sftpSource{
		protocol: protocolName,
		ssh:      sshClient,
		client:   client,
		dir:      spec.Directory,
		re:       re,
	}, nil
}

func newSFTPDestination(ctx context.Context, protocolName string, spec config.DestinationSpec, log *logger.Logger) (Destination, error) {
	if spec.Hostname == "" {
		return nil, flotillaerrors.NewProtocolError(protocolName, fmt.Errorf("destination hostname is required"))
	}
	if spec.Directory == "" {
		return nil, flotillaerrors.NewProtocolError(protocolName, fmt.Errorf("destination directory is required"))
	}

	client, sshClient, err := openSFTP(ctx, protocolName, spec.Hostname, spec.Protocol, log)
	if err != nil {
		return nil, err
	}

	return &sftpDestination{
		protocol: protocolName,
		ssh:      sshClient,
		client:   client,
		dir:      spec.Directory,
	}, nil
}

func openSFTP(ctx context.Context, protocolName, host string, spec config.ProtocolSpec, log *logger.Logger) (*sftp.Client, *ssh.Client, error) {
	sshClient, err := dialSSH(ctx, host, spec, log)
	if err != nil {
		return nil, nil, err
	}

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, nil, flotillaerrors.NewProtocolError(protocolName, fmt.Errorf("sftp subsystem on %s: %w", host, err))
	}

	return client, sshClient, nil
}

type sftpSource struct {
	protocol string
	ssh      *ssh.Client
	client   *sftp.Client
	dir      string
	re       *regexp.Regexp
}

func (s *sftpSource) List(_ context.Context) ([]string, error) {
	infos, err := s.client.ReadDir(s.dir)
	if err != nil {
		return nil, flotillaerrors.NewProtocolError(s.protocol, fmt.Errorf("list %s: %w", s.dir, err))
	}

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.Mode().IsRegular() {
			names = append(names, info.Name())
		}
	}
	return matchNames(names, s.re), nil
}

func (s *sftpSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	f, err := s.client.Open(path.Join(s.dir, name))
	if err != nil {
		return nil, flotillaerrors.NewProtocolError(s.protocol, err)
	}
	return f, nil
}

func (s *sftpSource) Close() error {
	clientErr := s.client.Close()
	sshErr := s.ssh.Close()
	if clientErr != nil {
		return clientErr
	}
	return sshErr
}

type sftpDestination struct {
	protocol string
	ssh      *ssh.Client
	client   *sftp.Client
	dir      string
}

func (d *sftpDestination) Store(_ context.Context, name string, contents io.Reader) error {
	if err := d.client.MkdirAll(d.dir); err != nil {
		return flotillaerrors.NewProtocolError(d.protocol, fmt.Errorf("mkdir %s: %w", d.dir, err))
	}

	f, err := d.client.Create(path.Join(d.dir, name))
	if err != nil {
		return flotillaerrors.NewProtocolError(d.protocol, err)
	}
	if _, err := io.Copy(f, contents); err != nil {
		f.Close()
		return flotillaerrors.NewProtocolError(d.protocol, err)
	}
	if err := f.Close(); err != nil {
		return flotillaerrors.NewProtocolError(d.protocol, err)
	}
	return nil
}

func (d *sftpDestination) Close() error {
	clientErr := d.client.Close()
	sshErr := d.ssh.Close()
	if clientErr != nil {
		return clientErr
	}
	return sshErr
}
