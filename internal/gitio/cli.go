package gitio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// logFormat produces lines in the inspector format.
const logFormat = "--pretty=format:%H|%at|%an|%s"

// CLI inspects repositories by running the git binary.
type CLI struct {
	// Binary is the git executable; defaults to "git".
	Binary string
}

func (c *CLI) run(ctx context.Context, repoPath string, args ...string) (string, error) {
	bin := c.Binary
	if bin == "" {
		bin = "git"
	}

	cmd := exec.CommandContext(ctx, bin, append([]string{"-C", repoPath}, args...)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("git %s: %w: %s", args[0], err, msg)
		}
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	return stdout.String(), nil
}

// CommitLog runs `git log --reverse` with the inspector line format.
func (c *CLI) CommitLog(ctx context.Context, repoPath string) Result[[]string] {
	out, err := c.run(ctx, repoPath, "log", logFormat, "--reverse")
	if err != nil {
		return Failed[[]string](err)
	}
	if out == "" {
		return Ok([]string{})
	}
	return Ok(strings.Split(strings.TrimRight(out, "\n"), "\n"))
}

// RemoteURL runs `git remote get-url origin`.
func (c *CLI) RemoteURL(ctx context.Context, repoPath string) Result[string] {
	out, err := c.run(ctx, repoPath, "remote", "get-url", "origin")
	if err != nil {
		return Failed[string](err)
	}
	return Ok(strings.TrimSpace(out))
}

// Reset runs `git reset --hard` then `git clean -fdx`.
func (c *CLI) Reset(ctx context.Context, repoPath string) error {
	if _, err := c.run(ctx, repoPath, "reset", "--hard"); err != nil {
		return err
	}
	if _, err := c.run(ctx, repoPath, "clean", "-fdx"); err != nil {
		return err
	}
	return nil
}
