package protocol

import (
	"fmt"
	"sync"

	flotillaerrors "github.com/flotilla-run/flotilla/pkg/errors"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds a factory under its reported name.
func Register(f Factory) error {
	if f == nil {
		return flotillaerrors.NewProtocolError("", fmt.Errorf("factory is nil"))
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	name := f.Name()
	if _, exists := registry[name]; exists {
		return flotillaerrors.NewProtocolError(name, fmt.Errorf("already registered"))
	}

	registry[name] = f
	return nil
}

// Get retrieves the factory registered under name.
func Get(name string) (Factory, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	f, ok := registry[name]
	if !ok {
		return nil, flotillaerrors.NewProtocolError(name, fmt.Errorf("no handler registered"))
	}

	return f, nil
}

// Reset clears protocol registrations (for tests).
func Reset() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]Factory)
}
