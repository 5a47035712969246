package config

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/flotilla-run/flotilla/internal/lookup"
	flotillaerrors "github.com/flotilla-run/flotilla/pkg/errors"
)

// maxResolveDepth caps how many passes variable resolution makes before a
// still-unresolved reference is treated as a definition error.
const maxResolveDepth = 5

// loadGlobalVariables reads <root>/variables.yaml (or .yml) as a flat
// name/value mapping and resolves references between the variables. A missing
// file yields an empty set.
func loadGlobalVariables(ctx context.Context, root string) (map[string]string, error) {
	var path string
	for _, name := range []string{"variables.yaml", "variables.yml"} {
		candidate := filepath.Join(root, name)
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			path = candidate
			break
		}
	}
	if path == "" {
		return map[string]string{}, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, flotillaerrors.NewParseError(path, 0, err)
	}

	vars := make(map[string]string)
	if err := yaml.Unmarshal(raw, &vars); err != nil {
		return nil, flotillaerrors.NewParseError(path, extractLine(err), err)
	}

	if err := resolveVariables(ctx, vars); err != nil {
		return nil, err
	}

	return vars, nil
}

// resolveVariables expands variables that reference other variables, making
// passes until the set is stable. References that never settle within
// maxResolveDepth passes are reported as validation errors.
func resolveVariables(ctx context.Context, vars map[string]string) error {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for pass := 0; pass < maxResolveDepth; pass++ {
		changed := false
		for _, k := range keys {
			expanded, err := expand(ctx, "variables."+k, vars[k], vars)
			if err != nil {
				return err
			}
			if expanded != vars[k] {
				vars[k] = expanded
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	for _, k := range keys {
		if strings.Contains(vars[k], "{{") {
			return flotillaerrors.NewValidationError("variables."+k, fmt.Sprintf("unresolved after %d passes", maxResolveDepth), nil)
		}
	}

	return nil
}

type variablesPeek struct {
	Variables map[string]string `yaml:"variables"`
}

// render expands template actions in a raw definition before YAML decoding.
// Task-local variables override globals and may reference them, so they are
// pulled out of the document first and resolved against the merged set.
// Template actions must sit inside quoted YAML scalars for the peek to parse.
func (l *Loader) render(ctx context.Context, path string, raw []byte) ([]byte, error) {
	var peek variablesPeek
	if err := yaml.Unmarshal(raw, &peek); err != nil {
		return nil, flotillaerrors.NewParseError(path, extractLine(err), err)
	}

	merged := make(map[string]string, len(l.vars)+len(peek.Variables))
	for k, v := range l.vars {
		merged[k] = v
	}
	for k, v := range peek.Variables {
		merged[k] = v
	}
	if err := resolveVariables(ctx, merged); err != nil {
		return nil, err
	}

	rendered, err := expand(ctx, filepath.Base(path), string(raw), merged)
	if err != nil {
		return nil, err
	}

	return []byte(rendered), nil
}

func expand(ctx context.Context, name, text string, vars map[string]string) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}

	tmpl, err := template.New(name).Option("missingkey=error").Funcs(lookupFuncs(ctx)).Parse(text)
	if err != nil {
		return "", flotillaerrors.NewValidationError(name, fmt.Sprintf("template parse failed: %v", err), err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", flotillaerrors.NewValidationError(name, fmt.Sprintf("template expansion failed: %v", err), err)
	}

	return buf.String(), nil
}

// lookupFuncs exposes the lookup registry to templates as
// {{ lookup "file" "path" "/run/seed" }} with alternating key/value
// arguments after the lookup name.
func lookupFuncs(ctx context.Context) template.FuncMap {
	return template.FuncMap{
		"lookup": func(name string, pairs ...string) (string, error) {
			if len(pairs)%2 != 0 {
				return "", fmt.Errorf("lookup %q needs key/value argument pairs", name)
			}
			fn, err := lookup.Get(name)
			if err != nil {
				return "", err
			}
			args := make(map[string]string, len(pairs)/2)
			for i := 0; i < len(pairs); i += 2 {
				args[pairs[i]] = pairs[i+1]
			}
			return fn(ctx, args)
		},
	}
}
