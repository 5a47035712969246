package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	flotillaerrors "github.com/flotilla-run/flotilla/pkg/errors"
)

func TestResolveVariables_LeavesPlainValuesUntouched(t *testing.T) {
	t.Parallel()

	vars := map[string]string{"ENV": "prod", "REGION": "eu-west-1"}
	require.NoError(t, resolveVariables(context.Background(), vars))
	require.Equal(t, map[string]string{"ENV": "prod", "REGION": "eu-west-1"}, vars)
}

func TestResolveVariables_ChainedReferencesSettle(t *testing.T) {
	t.Parallel()

	vars := map[string]string{
		"A": "{{.B}}/leaf",
		"B": "{{.C}}/mid",
		"C": "root",
	}
	require.NoError(t, resolveVariables(context.Background(), vars))
	require.Equal(t, "root/mid/leaf", vars["A"])
	require.Equal(t, "root/mid", vars["B"])
}

func TestResolveVariables_CycleReportsUnresolved(t *testing.T) {
	t.Parallel()

	vars := map[string]string{
		"A": "{{.B}}",
		"B": "{{.A}}",
	}

	err := resolveVariables(context.Background(), vars)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unresolved after 5 passes")
}

func TestLoadGlobalVariables_MissingFileYieldsEmptySet(t *testing.T) {
	t.Parallel()

	vars, err := loadGlobalVariables(context.Background(), t.TempDir())
	require.NoError(t, err)
	require.Empty(t, vars)
}

func TestLoadGlobalVariables_BadYAMLIsParseError(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "variables.yaml"), []byte("FOO: [\n"), 0o644))

	_, err := loadGlobalVariables(context.Background(), root)
	require.Error(t, err)

	var perr *flotillaerrors.ParseError
	require.ErrorAs(t, err, &perr)
}

func TestExpand_PassesThroughPlainText(t *testing.T) {
	t.Parallel()

	out, err := expand(context.Background(), "doc", "no templates here", nil)
	require.NoError(t, err)
	require.Equal(t, "no templates here", out)
}

func TestExpand_UnbalancedLookupArgumentsFail(t *testing.T) {
	t.Parallel()

	_, err := expand(context.Background(), "doc", `{{ lookup "env" "name" }}`, map[string]string{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "template expansion failed")
}
