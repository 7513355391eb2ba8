// Package gitinfo resolves the current revision of the checked project so
// run records can be tied back to a commit.
package gitinfo

import (
	"errors"

	git "github.com/go-git/go-git/v5"
)

// Info identifies the working tree state of the project directory.
type Info struct {
	Revision string
	Branch   string
}

// Resolve inspects dir for a git repository and returns its HEAD commit
// and branch. A directory that is not part of a repository yields a zero
// Info and no error: revision stamping is best effort.
func Resolve(dir string) (Info, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return Info{}, nil
		}
		return Info{}, err
	}

	ref, err := repo.Head()
	if err != nil {
		// Empty repository with no commits yet.
		return Info{}, nil
	}

	info := Info{Revision: ref.Hash().String()}
	if ref.Name().IsBranch() {
		info.Branch = ref.Name().Short()
	}
	return info, nil
}
