// Package identity derives stable repository identifiers.
package identity

import (
	"context"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Sposito/zig-repos-data-miner/internal/gitio"
)

var (
	// user@host:path/name[.git]
	sshRemote = regexp.MustCompile(`^[^@\s/]+@[^:\s/]+:(.+)$`)
	// https://host/path/name[.git]
	httpsRemote = regexp.MustCompile(`^https://[^/\s]+/(.+)$`)
)

// FromRemote extracts "owner/name" from an SSH or HTTPS remote URL.
// The second result is false when the URL has neither shape or fewer than
// two path segments.
func FromRemote(url string) (string, bool) {
	url = strings.TrimSpace(url)

	var path string
	if m := sshRemote.FindStringSubmatch(url); m != nil {
		path = m[1]
	} else if m := httpsRemote.FindStringSubmatch(url); m != nil {
		path = m[1]
	} else {
		return "", false
	}

	path = strings.TrimSuffix(strings.TrimRight(path, "/"), ".git")

	var segments []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	if len(segments) < 2 {
		return "", false
	}
	return segments[len(segments)-2] + "/" + segments[len(segments)-1], true
}

// FromPath returns the final component of the repository's location.
func FromPath(repoPath string) string {
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		abs = filepath.Clean(repoPath)
	}
	base := filepath.Base(abs)
	if base == string(filepath.Separator) || base == "." || base == "" {
		return abs
	}
	return base
}

// Resolve returns the repository id: "owner/name" from the origin remote
// when it can be read and parsed, otherwise the folder name.
func Resolve(ctx context.Context, insp gitio.Inspector, repoPath string) string {
	res := insp.RemoteURL(ctx, repoPath)
	url, ok := res.Get()
	if !ok {
		slog.Debug("remote lookup failed, using folder name", "repo", repoPath, "error", res.Reason())
		return FromPath(repoPath)
	}

	if id, ok := FromRemote(url); ok {
		return id
	}
	slog.Debug("unrecognized remote url, using folder name", "repo", repoPath, "url", url)
	return FromPath(repoPath)
}
