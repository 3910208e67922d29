// Package history turns commit log output into commit nodes attached to a
// repository.
package history

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Sposito/zig-repos-data-miner/internal/gitio"
	"github.com/Sposito/zig-repos-data-miner/internal/graph"
)

// Commit is one entry of a repository's history.
type Commit struct {
	Hash      string
	Timestamp string
	Author    string
	Message   string
}

// ParseLog converts inspector lines into commits, preserving order. Lines
// that do not have exactly four fields are dropped.
func ParseLog(lines []string) []Commit {
	commits := make([]Commit, 0, len(lines))
	for _, line := range lines {
		fields := strings.Split(strings.TrimSuffix(line, "\r"), gitio.LogSeparator)
		if len(fields) != 4 {
			continue
		}
		commits = append(commits, Commit{
			Hash:      fields[0],
			Timestamp: fields[1],
			Author:    fields[2],
			Message:   fields[3],
		})
	}
	return commits
}

// Extract reads a repository's history oldest first. Inspector failures
// produce an empty history.
func Extract(ctx context.Context, insp gitio.Inspector, repoPath string) []Commit {
	res := insp.CommitLog(ctx, repoPath)
	lines, ok := res.Get()
	if !ok {
		slog.Debug("no commit history", "repo", repoPath, "error", res.Reason())
		return []Commit{}
	}
	return ParseLog(lines)
}

// Attach adds the repository node, then each commit and its has_commit edge
// in order, and returns how many commits were linked. Ids already held by a
// node of another kind are kept as they are: a repository id that clashes
// still gets its has_commit edges, a clashing commit hash is skipped.
// Re-attaching the same commits changes nothing.
func Attach(g *graph.Graph, repoID string, commits []Commit, log *slog.Logger) int {
	if log == nil {
		log = slog.Default()
	}
	if err := g.AddRepository(repoID); err != nil {
		log.Warn("repository id already used by another kind", "repo", repoID, "error", err)
	}

	linked := 0
	for _, c := range commits {
		info := graph.CommitInfo{Timestamp: c.Timestamp, Author: c.Author, Message: c.Message}
		if err := g.AddCommit(c.Hash, info); err != nil {
			log.Warn("commit hash already used by another kind", "repo", repoID, "commit", c.Hash, "error", err)
			continue
		}
		g.AddEdge(repoID, c.Hash, graph.RelHasCommit)
		linked++
	}
	return linked
}
