// Package protocol provides the endpoint handlers tasks run against. Each
// protocol registers a Factory by name; a factory produces file sources,
// file destinations and command runners for configured endpoints. Not every
// protocol supports every role: asking for an unsupported one returns a
// ProtocolError.
package protocol

import (
	"context"
	"io"

	"github.com/flotilla-run/flotilla/internal/config"
	"github.com/flotilla-run/flotilla/internal/logger"
)

// Source lists and reads files on one endpoint. The directory and filename
// pattern come from the source definition the factory was given.
type Source interface {
	// List returns the file names in the source directory whose full name
	// matches the configured pattern, in lexical order.
	List(ctx context.Context) ([]string, error)
	// Open opens one listed file for reading. Callers close the reader.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Close() error
}

// Destination stores picked-up files on one endpoint.
type Destination interface {
	Store(ctx context.Context, name string, contents io.Reader) error
	Close() error
}

// Commander runs a command on one endpoint.
type Commander interface {
	// Exec runs the command, with dir as working directory when non-empty.
	// A non-zero exit is an error.
	Exec(ctx context.Context, dir, command string) error
	Close() error
}

// Factory builds protocol handlers for endpoints described by task specs.
type Factory interface {
	Name() string
	Source(ctx context.Context, spec config.SourceSpec, log *logger.Logger) (Source, error)
	Destination(ctx context.Context, spec config.DestinationSpec, log *logger.Logger) (Destination, error)
	Commander(ctx context.Context, host string, spec config.ProtocolSpec, log *logger.Logger) (Commander, error)
}
