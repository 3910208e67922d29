package gitio

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// GoGit inspects repositories in-process with go-git.
type GoGit struct{}

// CommitLog walks history from HEAD in committer-time order and returns it
// oldest first.
func (g *GoGit) CommitLog(ctx context.Context, repoPath string) Result[[]string] {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return Failed[[]string](fmt.Errorf("opening repository: %w", err))
	}

	head, err := repo.Head()
	if err != nil {
		return Failed[[]string](fmt.Errorf("resolving HEAD: %w", err))
	}

	iter, err := repo.Log(&git.LogOptions{From: head.Hash(), Order: git.LogOrderCommitterTime})
	if err != nil {
		return Failed[[]string](fmt.Errorf("reading log: %w", err))
	}
	defer iter.Close()

	var lines []string
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		lines = append(lines, FormatLogLine(c.Hash.String(), c.Author.When.Unix(), c.Author.Name, Subject(c.Message)))
		return nil
	})
	if err != nil {
		return Failed[[]string](fmt.Errorf("walking commits: %w", err))
	}

	// newest first -> oldest first
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	return Ok(lines)
}

// RemoteURL returns the first URL configured for origin.
func (g *GoGit) RemoteURL(ctx context.Context, repoPath string) Result[string] {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return Failed[string](fmt.Errorf("opening repository: %w", err))
	}

	remote, err := repo.Remote("origin")
	if err != nil {
		return Failed[string](fmt.Errorf("getting origin: %w", err))
	}

	urls := remote.Config().URLs
	if len(urls) == 0 {
		return Failed[string](errors.New("origin has no url"))
	}
	return Ok(urls[0])
}

// Reset performs the equivalent of `git reset --hard` followed by
// `git clean -fd`. go-git's clean does not remove ignored files.
func (g *GoGit) Reset(ctx context.Context, repoPath string) error {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return fmt.Errorf("opening repository: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("getting worktree: %w", err)
	}

	if err := wt.Reset(&git.ResetOptions{Mode: git.HardReset}); err != nil {
		return fmt.Errorf("reset --hard: %w", err)
	}
	if err := wt.Clean(&git.CleanOptions{Dir: true}); err != nil {
		return fmt.Errorf("clean: %w", err)
	}
	return nil
}
