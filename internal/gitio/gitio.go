// Package gitio provides the version-control inspector used to read commit
// history and remotes, backed by go-git or by the git command line.
package gitio

import (
	"context"
	"fmt"
	"strings"
)

// LogSeparator separates the fields of a commit log line.
const LogSeparator = "|"

// Result is the outcome of a best-effort inspector call: either a value or
// the reason the call failed.
type Result[T any] struct {
	value  T
	reason error
}

// Ok wraps a successful value.
func Ok[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Failed wraps a failure reason.
func Failed[T any](reason error) Result[T] {
	if reason == nil {
		reason = fmt.Errorf("unspecified failure")
	}
	return Result[T]{reason: reason}
}

// Get returns the value and whether the call succeeded.
func (r Result[T]) Get() (T, bool) {
	return r.value, r.reason == nil
}

// Reason returns the failure reason, or nil on success.
func (r Result[T]) Reason() error {
	return r.reason
}

// Inspector reads repository metadata.
type Inspector interface {
	// CommitLog returns "hash|epoch_seconds|author|subject" lines, oldest first.
	CommitLog(ctx context.Context, repoPath string) Result[[]string]
	// RemoteURL returns the URL of the origin remote.
	RemoteURL(ctx context.Context, repoPath string) Result[string]
}

// Resetter restores a repository's working tree to a clean state.
type Resetter interface {
	Reset(ctx context.Context, repoPath string) error
}

// New returns the inspector registered under name ("gogit" or "cli").
func New(name string) (interface {
	Inspector
	Resetter
}, error) {
	switch strings.ToLower(name) {
	case "", "gogit", "go-git":
		return &GoGit{}, nil
	case "cli", "git":
		return &CLI{Binary: "git"}, nil
	default:
		return nil, fmt.Errorf("unknown inspector %q", name)
	}
}

// FormatLogLine renders one commit in the inspector line format.
func FormatLogLine(hash string, epoch int64, author, subject string) string {
	return strings.Join([]string{hash, fmt.Sprint(epoch), author, subject}, LogSeparator)
}

// Subject returns the first paragraph of a commit message joined into one
// line, matching git's %s placeholder.
func Subject(message string) string {
	message = strings.TrimLeft(message, "\n")
	if i := strings.Index(message, "\n\n"); i >= 0 {
		message = message[:i]
	}
	lines := strings.Split(strings.TrimRight(message, "\n"), "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return strings.Join(lines, " ")
}
