package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/flotilla-run/flotilla/internal/logger"
	flotillaerrors "github.com/flotilla-run/flotilla/pkg/errors"
)

// tasksDir is the subdirectory of the config root that holds task
// definitions, one document per task id.
const tasksDir = "tasks"

// Loader resolves task ids to validated definitions. Global variables from
// <root>/variables.yaml are rendered into every definition it loads.
type Loader struct {
	root string
	vars map[string]string
	log  *logger.Logger

	mu    sync.Mutex
	cache map[string]*Definition
}

// NewLoader builds a loader rooted at the given config directory and resolves
// the global variable file up front so later loads fail fast.
func NewLoader(ctx context.Context, root string, log *logger.Logger) (*Loader, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, flotillaerrors.NewValidationError("config-dir", fmt.Sprintf("config directory %q is not readable", root), err)
	}
	if !info.IsDir() {
		return nil, flotillaerrors.NewValidationError("config-dir", fmt.Sprintf("config path %q is not a directory", root), nil)
	}

	vars, err := loadGlobalVariables(ctx, root)
	if err != nil {
		return nil, err
	}

	log.WithFields(map[string]any{"root": root, "variables": len(vars)}).Debug("config loader ready")

	return &Loader{
		root:  root,
		vars:  vars,
		log:   log,
		cache: make(map[string]*Definition),
	}, nil
}

// Variables returns a copy of the resolved global variables.
func (l *Loader) Variables() map[string]string {
	out := make(map[string]string, len(l.vars))
	for k, v := range l.vars {
		out[k] = v
	}
	return out
}

// LoadTask finds, renders, parses and validates the definition for a task id.
// Loaded definitions are cached for the lifetime of the loader, so a batch
// referencing the same task twice sees one consistent document.
func (l *Loader) LoadTask(ctx context.Context, id string) (*Definition, error) {
	if !taskIDPattern.MatchString(id) {
		return nil, flotillaerrors.NewValidationError("task", fmt.Sprintf("invalid task id %q", id), nil)
	}

	l.mu.Lock()
	if def, ok := l.cache[id]; ok {
		l.mu.Unlock()
		return def, nil
	}
	l.mu.Unlock()

	path, err := l.findDefinition(id)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, flotillaerrors.NewParseError(path, 0, err)
	}

	rendered, err := l.render(ctx, path, raw)
	if err != nil {
		return nil, err
	}

	var def Definition
	if err := yaml.Unmarshal(rendered, &def); err != nil {
		return nil, flotillaerrors.NewParseError(path, extractLine(err), err)
	}
	def.ID = id

	if err := ValidateDefinition(&def); err != nil {
		return nil, err
	}

	l.log.WithFields(map[string]any{"task": id, "type": def.Type}).Debug("task definition loaded")

	l.mu.Lock()
	l.cache[id] = &def
	l.mu.Unlock()

	return &def, nil
}

func (l *Loader) findDefinition(id string) (string, error) {
	var found []string
	for _, ext := range []string{".yaml", ".yml"} {
		candidate := filepath.Join(l.root, tasksDir, id+ext)
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			found = append(found, candidate)
		}
	}

	switch len(found) {
	case 0:
		return "", flotillaerrors.NewValidationError("task", fmt.Sprintf("no definition found for task %q under %s/", id, tasksDir), nil)
	case 1:
		return found[0], nil
	default:
		return "", flotillaerrors.NewValidationError("task", fmt.Sprintf("task %q has both .yaml and .yml definitions", id), nil)
	}
}

var linePattern = regexp.MustCompile(`line (\d+)`)

func extractLine(err error) int {
	if err == nil {
		return 0
	}

	matches := linePattern.FindStringSubmatch(err.Error())
	if len(matches) == 2 {
		if line, convErr := strconv.Atoi(matches[1]); convErr == nil {
			return line
		}
	}

	return 0
}
