// Package graph provides the in-memory node/edge graph built from repositories.
package graph

import (
	"errors"
	"fmt"
)

// Kind represents the type of a node.
type Kind string

const (
	KindRepository Kind = "repository"
	KindCommit     Kind = "commit"
	KindFolder     Kind = "folder"
	KindFile       Kind = "file"
)

// Relation represents the type of relationship between nodes.
type Relation string

const (
	RelHasCommit  Relation = "has_commit" // Repository -> Commit
	RelContains   Relation = "contains"   // Folder -> File, Folder -> Folder
	RelModifies   Relation = "modifies"   // Commit -> File (reserved)
	RelReferences Relation = "references" // File -> File
)

var (
	// ErrKindConflict is returned when an id is reused for a node of another kind.
	ErrKindConflict = errors.New("node kind conflict")
	// ErrUnknownKind is returned when parsing a kind outside the closed set.
	ErrUnknownKind = errors.New("unknown node kind")
	// ErrUnknownRelation is returned when parsing a relation outside the closed set.
	ErrUnknownRelation = errors.New("unknown relation")
)

// ParseKind converts a stored type label into a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindRepository, KindCommit, KindFolder, KindFile:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// ParseRelation converts a stored relation label into a Relation.
func ParseRelation(s string) (Relation, error) {
	switch r := Relation(s); r {
	case RelHasCommit, RelContains, RelModifies, RelReferences:
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRelation, s)
}

// Endpoints returns the kinds assumed for a relation's source and destination
// when an edge is added before its endpoints exist.
func (r Relation) Endpoints() (src, dst Kind) {
	switch r {
	case RelHasCommit:
		return KindRepository, KindCommit
	case RelContains:
		return KindFolder, KindFile
	case RelModifies:
		return KindCommit, KindFile
	default:
		return KindFile, KindFile
	}
}

// CommitInfo holds the write-once attributes of a commit node.
type CommitInfo struct {
	Timestamp string // epoch seconds, as text
	Author    string
	Message   string
}

// Node represents a node in the graph. Commit is set only for KindCommit.
type Node struct {
	ID     string
	Kind   Kind
	Commit *CommitInfo
}

// Edge represents an edge in the graph. Edges compare equal by value.
type Edge struct {
	Src      string
	Dst      string
	Relation Relation
}
