package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

func initConfigRepo(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	wt, err := repo.Worktree()
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "tasks"), 0o755))
	task := "type: execution\nhosts: [alpha.example.com]\ncommand: uptime\nprotocol:\n  name: ssh\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tasks", "uptime.yaml"), []byte(task), 0o644))

	_, err = wt.Add("tasks/uptime.yaml")
	require.NoError(t, err)

	_, err = wt.Commit("add uptime task", &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Flotilla",
			Email: "flotilla@example.com",
			When:  time.Now(),
		},
	})
	require.NoError(t, err)

	return dir
}

func TestCloneConfig_FetchesRepositoryIntoTempDir(t *testing.T) {
	source := initConfigRepo(t)

	dir, cleanup, err := CloneConfig(context.Background(), source, "", newTestLogger(t))
	require.NoError(t, err)
	defer cleanup()

	contents, err := os.ReadFile(filepath.Join(dir, "tasks", "uptime.yaml"))
	require.NoError(t, err)
	require.Contains(t, string(contents), "command: uptime")

	loader, err := NewLoader(context.Background(), dir, newTestLogger(t))
	require.NoError(t, err)

	def, err := loader.LoadTask(context.Background(), "uptime")
	require.NoError(t, err)
	require.Equal(t, "uptime", def.Execution.Command)
}

func TestCloneConfig_CleanupRemovesCheckout(t *testing.T) {
	source := initConfigRepo(t)

	dir, cleanup, err := CloneConfig(context.Background(), source, "", newTestLogger(t))
	require.NoError(t, err)

	cleanup()

	_, err = os.Stat(dir)
	require.True(t, os.IsNotExist(err))
}

func TestCloneConfig_BadSourceFails(t *testing.T) {
	_, _, err := CloneConfig(context.Background(), filepath.Join(t.TempDir(), "no-repo"), "", newTestLogger(t))
	require.Error(t, err)
}
