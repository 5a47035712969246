// Package lookup resolves values referenced from task definition templates at
// load time. Lookups are registered by name so addons can contribute their
// own alongside the builtins.
package lookup

import (
	"context"
	"fmt"
	"sync"

	flotillaerrors "github.com/flotilla-run/flotilla/pkg/errors"
)

// Func resolves one lookup invocation from its named arguments.
type Func func(ctx context.Context, args map[string]string) (string, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Func)
)

// Register adds a lookup under the given name.
func Register(name string, fn Func) error {
	if fn == nil {
		return flotillaerrors.NewValidationError("lookup", fmt.Sprintf("lookup %q is nil", name), nil)
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[name]; exists {
		return flotillaerrors.NewValidationError("lookup", fmt.Sprintf("lookup %q already registered", name), nil)
	}

	registry[name] = fn
	return nil
}

// Get retrieves a lookup by name.
func Get(name string) (Func, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	fn, ok := registry[name]
	if !ok {
		return nil, flotillaerrors.NewValidationError("lookup", fmt.Sprintf("no lookup registered under %q", name), nil)
	}

	return fn, nil
}

// Reset clears lookup registrations (for tests).
func Reset() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]Func)
}
