package api

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Sposito/zig-repos-data-miner/internal/store"
)

// Source is the read side the API serves from. *store.Store implements it.
type Source interface {
	CommitsForRepository(ctx context.Context, repoID string) ([]store.CommitRecord, error)
	Repositories(ctx context.Context) ([]string, error)
	Stats(ctx context.Context) (*store.Stats, error)
}

const reposKey = "\x00repos"

// CachedSource keeps recent query results in an LRU. Purge must be called
// whenever the underlying store changes. A result read before a Purge is
// never cached after it.
type CachedSource struct {
	src     Source
	commits *lru.Cache[string, []store.CommitRecord]
	repos   *lru.Cache[string, []string]

	mu         sync.Mutex
	generation uint64
}

// NewCachedSource wraps src with a cache holding up to size commit lists.
func NewCachedSource(src Source, size int) (*CachedSource, error) {
	commits, err := lru.New[string, []store.CommitRecord](size)
	if err != nil {
		return nil, fmt.Errorf("creating commit cache: %w", err)
	}
	repos, err := lru.New[string, []string](1)
	if err != nil {
		return nil, fmt.Errorf("creating repository cache: %w", err)
	}
	return &CachedSource{src: src, commits: commits, repos: repos}, nil
}

// CommitsForRepository implements Source.
func (c *CachedSource) CommitsForRepository(ctx context.Context, repoID string) ([]store.CommitRecord, error) {
	if records, ok := c.commits.Get(repoID); ok {
		return records, nil
	}
	gen := c.currentGeneration()
	records, err := c.src.CommitsForRepository(ctx, repoID)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	if c.generation == gen {
		c.commits.Add(repoID, records)
	}
	c.mu.Unlock()
	return records, nil
}

// Repositories implements Source.
func (c *CachedSource) Repositories(ctx context.Context) ([]string, error) {
	if ids, ok := c.repos.Get(reposKey); ok {
		return ids, nil
	}
	gen := c.currentGeneration()
	ids, err := c.src.Repositories(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	if c.generation == gen {
		c.repos.Add(reposKey, ids)
	}
	c.mu.Unlock()
	return ids, nil
}

// Stats implements Source. Counts are never cached.
func (c *CachedSource) Stats(ctx context.Context) (*store.Stats, error) {
	return c.src.Stats(ctx)
}

// Purge drops every cached result and invalidates reads still in flight.
func (c *CachedSource) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.commits.Purge()
	c.repos.Purge()
}

func (c *CachedSource) currentGeneration() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}
