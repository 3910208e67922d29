package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"

	"github.com/Sposito/zig-repos-data-miner/internal/graph"
)

// ShortHashLen is the length commit hashes are truncated to in query results.
const ShortHashLen = 7

// CommitRecord is one commit as returned by the query surface.
type CommitRecord struct {
	Commit    string `json:"commit"`
	Timestamp string `json:"timestamp"`
	Author    string `json:"author"`
	Message   string `json:"message"`
}

// CommitsForRepository returns the commits linked to repoID by has_commit
// edges, oldest first. Ties and non-numeric timestamps are ordered by hash.
// An unknown repository yields an empty slice.
func (s *Store) CommitsForRepository(ctx context.Context, repoID string) ([]CommitRecord, error) {
	db, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, s.rebind(`
		SELECT n.id, n.timestamp, n.author, n.message
		FROM edges e
		JOIN nodes n ON n.id = e.dest
		WHERE e.src = ? AND e.relation = ? AND n.type = ?
	`), repoID, string(graph.RelHasCommit), string(graph.KindCommit))
	if err != nil {
		return nil, fmt.Errorf("querying commits: %w", err)
	}
	defer rows.Close()

	records := []CommitRecord{}
	for rows.Next() {
		var r CommitRecord
		var ts, author, message sql.NullString
		if err := rows.Scan(&r.Commit, &ts, &author, &message); err != nil {
			return nil, fmt.Errorf("scanning commit: %w", err)
		}
		r.Timestamp, r.Author, r.Message = ts.String, author.String, message.String
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating commits: %w", err)
	}

	sortCommits(records)
	for i := range records {
		if len(records[i].Commit) > ShortHashLen {
			records[i].Commit = records[i].Commit[:ShortHashLen]
		}
	}
	return records, nil
}

// sortCommits orders by numeric timestamp, then full hash. Records whose
// timestamp is not an integer sort after all numeric ones.
func sortCommits(records []CommitRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		ti, errI := strconv.ParseInt(records[i].Timestamp, 10, 64)
		tj, errJ := strconv.ParseInt(records[j].Timestamp, 10, 64)
		switch {
		case errI == nil && errJ == nil && ti != tj:
			return ti < tj
		case errI == nil && errJ != nil:
			return true
		case errI != nil && errJ == nil:
			return false
		}
		return records[i].Commit < records[j].Commit
	})
}

// Repositories lists repository ids in sorted order.
func (s *Store) Repositories(ctx context.Context) ([]string, error) {
	db, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, s.rebind(`SELECT id FROM nodes WHERE type = ? ORDER BY id`), string(graph.KindRepository))
	if err != nil {
		return nil, fmt.Errorf("querying repositories: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning repository: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating repositories: %w", err)
	}
	return ids, nil
}
