package gitx

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// newSourceRepo builds a local repository with a single commit to clone from.
func newSourceRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("init repo: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README"), []byte("upstream\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}
	if _, err := worktree.Add("README"); err != nil {
		t.Fatalf("add: %v", err)
	}
	_, err = worktree.Commit("initial", &gogit.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	return dir
}

func TestCloneAndUpdate(t *testing.T) {
	src := newSourceRepo(t)
	dest := filepath.Join(t.TempDir(), "mirror")
	client := NewClient()

	cloned, err := client.IsCloned(dest)
	if err != nil {
		t.Fatalf("is cloned: %v", err)
	}
	if cloned {
		t.Fatalf("expected not cloned yet")
	}

	if err := client.Clone(context.Background(), src, dest); err != nil {
		t.Fatalf("clone: %v", err)
	}

	cloned, err = client.IsCloned(dest)
	if err != nil {
		t.Fatalf("is cloned after clone: %v", err)
	}
	if !cloned {
		t.Fatalf("expected clone to be detected")
	}
	if _, err := os.Stat(filepath.Join(dest, "README")); err != nil {
		t.Fatalf("cloned file missing: %v", err)
	}

	// Pulling an up-to-date clone must not report an error.
	if err := client.Update(context.Background(), dest); err != nil {
		t.Fatalf("update: %v", err)
	}
}

func TestUpdateMissingRepo(t *testing.T) {
	err := NewClient().Update(context.Background(), filepath.Join(t.TempDir(), "absent"))
	if err == nil {
		t.Fatalf("expected error for missing repository")
	}
}
