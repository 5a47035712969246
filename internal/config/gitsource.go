package config

import (
	"context"
	"fmt"
	"os"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/flotilla-run/flotilla/internal/logger"
)

// CloneConfig fetches a config directory from a git repository into a
// temporary checkout and returns its path plus a cleanup func. An empty ref
// clones the remote default branch.
func CloneConfig(ctx context.Context, url, ref string, log *logger.Logger) (string, func(), error) {
	dir, err := os.MkdirTemp("", "flotilla-config-*")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create checkout directory: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	opts := &git.CloneOptions{URL: url}
	if ref != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(ref)
		opts.SingleBranch = true
	}

	if _, err := git.PlainCloneContext(ctx, dir, false, opts); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to clone config repository %s: %w", url, err)
	}

	log.WithFields(map[string]any{"url": url, "ref": ref, "dir": dir}).Debug("config repository cloned")

	return dir, cleanup, nil
}
