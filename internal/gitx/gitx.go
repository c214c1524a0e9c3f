// Package gitx wraps the go-git operations pyforge needs to maintain local
// clones of upstream repositories.
package gitx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	gogit "github.com/go-git/go-git/v5"
)

// Mirror maintains a local clone of an upstream repository.
type Mirror interface {
	IsCloned(dest string) (bool, error)
	Clone(ctx context.Context, url, dest string) error
	Update(ctx context.Context, dest string) error
}

// Client implements Mirror using go-git.
type Client struct{}

func NewClient() *Client {
	return &Client{}
}

// IsCloned reports whether dest already holds a git repository.
func (*Client) IsCloned(dest string) (bool, error) {
	_, err := gogit.PlainOpen(dest)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gogit.ErrRepositoryNotExists) {
		return false, nil
	}
	return false, fmt.Errorf("open repository %s: %w", dest, err)
}

// Clone creates a fresh clone of url at dest.
func (*Client) Clone(ctx context.Context, url, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("prepare clone parent: %w", err)
	}
	if _, err := gogit.PlainCloneContext(ctx, dest, false, &gogit.CloneOptions{URL: url}); err != nil {
		return fmt.Errorf("clone %s: %w", url, err)
	}
	return nil
}

// Update pulls the default branch of an existing clone. An already-up-to-date
// worktree is not an error.
func (*Client) Update(ctx context.Context, dest string) error {
	repo, err := gogit.PlainOpen(dest)
	if err != nil {
		return fmt.Errorf("open repository %s: %w", dest, err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("get worktree: %w", err)
	}
	err = worktree.PullContext(ctx, &gogit.PullOptions{RemoteName: "origin"})
	if errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("pull %s: %w", dest, err)
	}
	return nil
}

var _ Mirror = (*Client)(nil)
