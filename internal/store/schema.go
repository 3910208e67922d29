package store

// Schema DDL. Both dialects accept the same statements.

const schemaNodes = `
CREATE TABLE IF NOT EXISTS nodes (
    id TEXT PRIMARY KEY,
    type TEXT,
    timestamp TEXT,
    author TEXT,
    message TEXT
)`

const schemaEdges = `
CREATE TABLE IF NOT EXISTS edges (
    src TEXT,
    dest TEXT,
    relation TEXT,
    PRIMARY KEY (src, dest, relation)
)`

const indexNodesType = `CREATE INDEX IF NOT EXISTS idx_nodes_type ON nodes(type)`
const indexEdgesRelation = `CREATE INDEX IF NOT EXISTS idx_edges_src_relation ON edges(src, relation)`

const pragmaWAL = `PRAGMA journal_mode=WAL`
const pragmaBusyTimeout = `PRAGMA busy_timeout=5000`

func allSchemaStatements() []string {
	return []string{
		schemaNodes,
		schemaEdges,
		indexNodesType,
		indexEdgesRelation,
	}
}

func allPragmas() []string {
	return []string{
		pragmaWAL,
		pragmaBusyTimeout,
	}
}
