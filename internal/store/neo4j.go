package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Sposito/zig-repos-data-miner/internal/graph"
)

// Neo4jConfig holds Neo4j connection settings.
type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string
}

// Neo4jMirror copies a graph into Neo4j. Like Save, it only creates what is
// missing: properties are set on create and never updated.
type Neo4jMirror struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewNeo4jMirror connects to Neo4j and verifies connectivity.
func NewNeo4jMirror(ctx context.Context, cfg Neo4jConfig) (*Neo4jMirror, error) {
	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("connecting to neo4j: %w", err)
	}

	db := cfg.Database
	if db == "" {
		db = "neo4j"
	}
	return &Neo4jMirror{driver: driver, database: db}, nil
}

// Close closes the driver.
func (m *Neo4jMirror) Close(ctx context.Context) error {
	return m.driver.Close(ctx)
}

const mergeNodesCypher = `
UNWIND $rows AS row
MERGE (n:Entity {id: row.id})
ON CREATE SET n.kind = row.kind, n.timestamp = row.timestamp, n.author = row.author, n.message = row.message
`

// mergeEdgesCypher is formatted with the relationship type, which Cypher
// cannot take as a parameter.
const mergeEdgesCypher = `
UNWIND $rows AS row
MATCH (a:Entity {id: row.src})
MATCH (b:Entity {id: row.dst})
MERGE (a)-[:%s]->(b)
`

// Save merges every node and edge of g in one write transaction.
func (m *Neo4jMirror) Save(ctx context.Context, g *graph.Graph) error {
	session := m.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: m.database})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, mergeNodesCypher, map[string]any{"rows": nodeRows(g)}); err != nil {
			return nil, fmt.Errorf("merging nodes: %w", err)
		}
		for rel, rows := range edgeRows(g) {
			query := fmt.Sprintf(mergeEdgesCypher, relType(rel))
			if _, err := tx.Run(ctx, query, map[string]any{"rows": rows}); err != nil {
				return nil, fmt.Errorf("merging %s edges: %w", rel, err)
			}
		}
		return nil, nil
	})
	return err
}

// nodeRows flattens nodes into Cypher parameters. Non-commit nodes carry
// nil attributes.
func nodeRows(g *graph.Graph) []map[string]any {
	rows := make([]map[string]any, 0, g.NodeCount())
	for _, n := range g.Nodes() {
		row := map[string]any{"id": n.ID, "kind": string(n.Kind), "timestamp": nil, "author": nil, "message": nil}
		if n.Commit != nil {
			row["timestamp"] = n.Commit.Timestamp
			row["author"] = n.Commit.Author
			row["message"] = n.Commit.Message
		}
		rows = append(rows, row)
	}
	return rows
}

// edgeRows groups edges by relation.
func edgeRows(g *graph.Graph) map[graph.Relation][]map[string]any {
	out := make(map[graph.Relation][]map[string]any)
	for _, e := range g.Edges() {
		out[e.Relation] = append(out[e.Relation], map[string]any{"src": e.Src, "dst": e.Dst})
	}
	return out
}

// relType maps a relation to a Neo4j relationship type, e.g. HAS_COMMIT.
func relType(rel graph.Relation) string {
	return strings.ToUpper(string(rel))
}
