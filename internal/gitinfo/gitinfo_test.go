package gitinfo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

func TestResolveNonRepository(t *testing.T) {
	info, err := Resolve(t.TempDir())
	if err != nil {
		t.Fatalf("non-repo directory should not error: %v", err)
	}
	if info.Revision != "" || info.Branch != "" {
		t.Fatalf("expected zero info got %+v", info)
	}
}

func TestResolveEmptyRepository(t *testing.T) {
	dir := t.TempDir()
	if _, err := git.PlainInit(dir, false); err != nil {
		t.Fatalf("init repo: %v", err)
	}

	info, err := Resolve(dir)
	if err != nil {
		t.Fatalf("empty repo should not error: %v", err)
	}
	if info.Revision != "" {
		t.Fatalf("expected no revision for empty repo got %q", info.Revision)
	}
}

func TestResolveCommittedRepository(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("init repo: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("check\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}
	if _, err := wt.Add("README.md"); err != nil {
		t.Fatalf("add: %v", err)
	}
	hash, err := wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	info, err := Resolve(dir)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if info.Revision != hash.String() {
		t.Fatalf("expected revision %s got %s", hash, info.Revision)
	}
	if info.Branch == "" {
		t.Fatal("expected a branch name for HEAD on a branch")
	}

	// Detection should also work from a subdirectory.
	sub := filepath.Join(dir, "src")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	subInfo, err := Resolve(sub)
	if err != nil {
		t.Fatalf("resolve from subdir: %v", err)
	}
	if subInfo.Revision != hash.String() {
		t.Fatalf("subdir detection failed: got %q", subInfo.Revision)
	}
}
