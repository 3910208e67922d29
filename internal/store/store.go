// Package store persists the graph in a relational database. Every call
// opens its own connection and closes it before returning.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/Sposito/zig-repos-data-miner/internal/graph"
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

func (d dialect) driver() string {
	if d == dialectPostgres {
		return "pgx"
	}
	return "sqlite"
}

func (d dialect) String() string {
	if d == dialectPostgres {
		return "postgres"
	}
	return "sqlite"
}

// Store synchronizes a graph with the nodes and edges tables.
type Store struct {
	dsn     string
	dialect dialect
	log     *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.log = l
	}
}

// New returns a store for dsn. A postgres:// or postgresql:// URL selects
// Postgres; anything else is a SQLite file path. No connection is made.
func New(dsn string, opts ...Option) *Store {
	dsn = strings.TrimSpace(dsn)
	s := &Store{dsn: dsn, dialect: dialectSQLite, log: slog.Default()}
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		s.dialect = dialectPostgres
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dialect returns "sqlite" or "postgres".
func (s *Store) Dialect() string {
	return s.dialect.String()
}

func (s *Store) open(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open(s.dialect.driver(), s.dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", s.dialect, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to %s: %w", s.dialect, err)
	}
	if s.dialect == dialectSQLite {
		for _, pragma := range allPragmas() {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				db.Close()
				return nil, fmt.Errorf("setting pragma: %w", err)
			}
		}
	}
	return db, nil
}

// rebind converts ? placeholders to the dialect's style.
func (s *Store) rebind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) insertNodeSQL() string {
	if s.dialect == dialectPostgres {
		return s.rebind(`INSERT INTO nodes (id, type, timestamp, author, message) VALUES (?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`)
	}
	return `INSERT OR IGNORE INTO nodes (id, type, timestamp, author, message) VALUES (?, ?, ?, ?, ?)`
}

func (s *Store) insertEdgeSQL() string {
	if s.dialect == dialectPostgres {
		return s.rebind(`INSERT INTO edges (src, dest, relation) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`)
	}
	return `INSERT OR IGNORE INTO edges (src, dest, relation) VALUES (?, ?, ?)`
}

// Init creates the tables and indexes if they do not exist.
func (s *Store) Init(ctx context.Context) error {
	db, err := s.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	for _, stmt := range allSchemaStatements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}

// Load reconstructs the persisted graph. Nodes keep their stored kind and
// commit attributes. An empty store yields an empty graph.
func (s *Store) Load(ctx context.Context) (*graph.Graph, error) {
	db, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	g := graph.New()

	rows, err := db.QueryContext(ctx, `SELECT id, type, timestamp, author, message FROM nodes`)
	if err != nil {
		return nil, fmt.Errorf("querying nodes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var typ, ts, author, message sql.NullString
		if err := rows.Scan(&id, &typ, &ts, &author, &message); err != nil {
			return nil, fmt.Errorf("scanning node: %w", err)
		}
		if !typ.Valid {
			return nil, fmt.Errorf("node %s: %w: type is NULL", id, graph.ErrUnknownKind)
		}
		kind, err := graph.ParseKind(typ.String)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", id, err)
		}
		var info *graph.CommitInfo
		if kind == graph.KindCommit {
			info = &graph.CommitInfo{Timestamp: ts.String, Author: author.String, Message: message.String}
		}
		if _, err := g.AddNode(id, kind, info); err != nil {
			return nil, fmt.Errorf("node %s: %w", id, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating nodes: %w", err)
	}

	edgeRows, err := db.QueryContext(ctx, `SELECT src, dest, relation FROM edges`)
	if err != nil {
		return nil, fmt.Errorf("querying edges: %w", err)
	}
	defer edgeRows.Close()

	for edgeRows.Next() {
		var src, dst string
		var rel sql.NullString
		if err := edgeRows.Scan(&src, &dst, &rel); err != nil {
			return nil, fmt.Errorf("scanning edge: %w", err)
		}
		if !rel.Valid {
			return nil, fmt.Errorf("edge %s -> %s: %w: relation is NULL", src, dst, graph.ErrUnknownRelation)
		}
		relation, err := graph.ParseRelation(rel.String)
		if err != nil {
			return nil, fmt.Errorf("edge %s -> %s: %w", src, dst, err)
		}
		if err := g.AddEdge(src, dst, relation); err != nil {
			return nil, fmt.Errorf("edge %s -> %s: %w", src, dst, err)
		}
	}
	if err := edgeRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating edges: %w", err)
	}

	s.log.Debug("graph loaded", "nodes", g.NodeCount(), "edges", g.EdgeCount())
	return g, nil
}

// Save writes every node and edge of g in one transaction. Rows that already
// exist are left untouched.
func (s *Store) Save(ctx context.Context, g *graph.Graph) error {
	db, err := s.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	nodeStmt, err := tx.PrepareContext(ctx, s.insertNodeSQL())
	if err != nil {
		return fmt.Errorf("preparing node insert: %w", err)
	}
	defer nodeStmt.Close()

	for _, n := range g.Nodes() {
		var ts, author, message any
		if n.Commit != nil {
			ts, author, message = n.Commit.Timestamp, n.Commit.Author, n.Commit.Message
		}
		if _, err := nodeStmt.ExecContext(ctx, n.ID, string(n.Kind), ts, author, message); err != nil {
			return fmt.Errorf("inserting node %s: %w", n.ID, err)
		}
	}

	edgeStmt, err := tx.PrepareContext(ctx, s.insertEdgeSQL())
	if err != nil {
		return fmt.Errorf("preparing edge insert: %w", err)
	}
	defer edgeStmt.Close()

	for _, e := range g.Edges() {
		if _, err := edgeStmt.ExecContext(ctx, e.Src, e.Dst, string(e.Relation)); err != nil {
			return fmt.Errorf("inserting edge %s -> %s: %w", e.Src, e.Dst, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	s.log.Debug("graph saved", "nodes", g.NodeCount(), "edges", g.EdgeCount())
	return nil
}

// Stats holds row counts.
type Stats struct {
	Nodes  int                `json:"nodes"`
	Edges  int                `json:"edges"`
	ByKind map[graph.Kind]int `json:"by_kind"`
}

// Stats counts persisted nodes per kind and edges.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	db, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	stats := &Stats{ByKind: make(map[graph.Kind]int)}
	rows, err := db.QueryContext(ctx, `SELECT type, COUNT(*) FROM nodes GROUP BY type`)
	if err != nil {
		return nil, fmt.Errorf("counting nodes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var typ sql.NullString
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		stats.ByKind[graph.Kind(typ.String)] = n
		stats.Nodes += n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating counts: %w", err)
	}

	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM edges`).Scan(&stats.Edges); err != nil {
		return nil, fmt.Errorf("counting edges: %w", err)
	}
	return stats, nil
}
