// Package cache layers positional replay caches over a sample.Sampler.
//
// A cache owns an append-only sequence of completions per prompt
// fingerprint. Cursors replay stored entries positionally; past the end they
// either fetch exactly one fresh value from the wrapped sampler and persist
// it, or fail when the cache is in replication (read-only) mode.
package cache

import (
	"context"
	"fmt"
	"sync/atomic"

	"sampled/pkg/sample"
)

// Store persists one ordered, append-only sequence of completions per
// prompt fingerprint. Load returns the full stored sequence; Store appends
// text at the next free position. Implementations are owned exclusively by
// one cache instance.
type Store interface {
	Load(fingerprint string) ([]string, error)
	Store(fingerprint, text string) error
}

// missError signals that replication mode could not satisfy a requested
// position. It is an expected control signal, not a bug.
type missError struct {
	fingerprint string
	index       int
}

func (e missError) Error() string {
	return fmt.Sprintf("cache miss: %s position %d", e.fingerprint, e.index)
}

// IsMiss reports whether err is a replication-mode cache miss.
func IsMiss(err error) bool {
	_, ok := err.(missError)
	return ok
}

// Stats carries hit/miss counts for one cache instance. A hit is a pull
// served from the store; a miss is a pull past the stored sequence.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// Cache implements sample.Sampler over a Store. The wrapped sampler is
// isolated so fresh fetches advance one shared inner sequence even when the
// inner sampler is itself a cache.
type Cache struct {
	spec       sample.Spec
	inner      sample.Sampler
	store      Store
	failOnMiss bool

	hits   atomic.Int64
	misses atomic.Int64
}

// New wraps inner with the shared replay-or-extend policy over store.
// failOnMiss puts the cache in replication mode: positions beyond the
// stored sequence fail instead of issuing fresh queries.
func New(inner sample.Sampler, store Store, failOnMiss bool) *Cache {
	return &Cache{
		spec:       inner.Spec().Normalize(),
		inner:      sample.Isolate(inner),
		store:      store,
		failOnMiss: failOnMiss,
	}
}

func (c *Cache) Spec() sample.Spec { return c.spec }

// Replays is true: every Sample call restarts at position zero of the
// shared stored sequence.
func (c *Cache) Replays() bool { return true }

// Replication reports whether the cache refuses fresh queries.
func (c *Cache) Replication() bool { return c.failOnMiss }

// Stats returns hit/miss counters accumulated since construction.
func (c *Cache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

func (c *Cache) Sample(prompt string, batch int) sample.Stream {
	cur := &cursor{c: c, prompt: prompt, fp: sample.Fingerprint(prompt)}
	cur.SetBatch(batch)
	return cur
}

// cursor is an independent position into the shared stored sequence.
// Cursors re-read the store on every pull, so two cursors advancing in
// lockstep observe each other's appended entries.
type cursor struct {
	c      *Cache
	prompt string
	fp     string
	batch  int
	pos    int
	// src is the inner stream fresh values are pulled from. Created on
	// the first miss and held for the cursor's lifetime so the inner
	// amortizer can batch consecutive fetches.
	src sample.Stream
}

func (cu *cursor) SetBatch(n int) {
	if n < 1 {
		n = 1
	}
	cu.batch = n
	if cu.src != nil {
		cu.src.SetBatch(n)
	}
}

func (cu *cursor) Next(ctx context.Context) (string, error) {
	stored, err := cu.c.store.Load(cu.fp)
	if err != nil {
		return "", err
	}
	if cu.pos < len(stored) {
		v := stored[cu.pos]
		cu.pos++
		cu.c.hits.Add(1)
		return v, nil
	}
	cu.c.misses.Add(1)
	if cu.c.failOnMiss {
		return "", missError{fingerprint: cu.fp, index: cu.pos}
	}
	// Exactly one fresh value per pull; the batch hint only tunes the
	// inner amortizer's buffering.
	if cu.src == nil {
		cu.src = cu.c.inner.Sample(cu.prompt, cu.batch)
	}
	fresh, err := cu.src.Next(ctx)
	if err != nil {
		return "", err
	}
	if err := cu.c.store.Store(cu.fp, fresh); err != nil {
		return "", err
	}
	cu.pos++
	return fresh, nil
}
