// Package cache is the in-memory mirror of the record store and the fast path
// for every gate check. It has no eviction: the dataset is bounded by guild
// membership and a missing record would wrongly deny a verified user.
package cache

import (
	"hash/fnv"
	"sync"

	"verigate/internal/verification/metrics"
	"verigate/internal/verification/models"
)

const shardCount = 32

type shard struct {
	mu      sync.RWMutex
	records map[string]models.UserRecord
}

// Cache maps user ids to records. Keys are spread across independently
// locked shards so unrelated users never contend.
type Cache struct {
	shards  [shardCount]*shard
	metrics *metrics.Metrics
}

// Option configures a Cache.
type Option func(*Cache)

// WithMetrics publishes the record count on every write.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{}
	for i := range c.shards {
		c.shards[i] = &shard{records: make(map[string]models.UserRecord)}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) shardFor(userID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return c.shards[h.Sum32()%shardCount]
}

// Get returns a copy of the user's record.
func (c *Cache) Get(userID string) (models.UserRecord, bool) {
	s := c.shardFor(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[userID]
	return rec, ok
}

// Has reports whether a record exists for userID.
func (c *Cache) Has(userID string) bool {
	_, ok := c.Get(userID)
	return ok
}

// Set stores rec under rec.UserID.
func (c *Cache) Set(rec models.UserRecord) {
	s := c.shardFor(rec.UserID)
	s.mu.Lock()
	s.records[rec.UserID] = rec
	s.mu.Unlock()
	c.publish()
}

// Delete drops the user's record.
func (c *Cache) Delete(userID string) {
	s := c.shardFor(userID)
	s.mu.Lock()
	delete(s.records, userID)
	s.mu.Unlock()
	c.publish()
}

// Clear drops every record.
func (c *Cache) Clear() {
	for _, s := range c.shards {
		s.mu.Lock()
		s.records = make(map[string]models.UserRecord)
		s.mu.Unlock()
	}
	c.publish()
}

// Replace swaps the whole content for records, as done at startup.
func (c *Cache) Replace(records map[string]models.UserRecord) {
	var next [shardCount]map[string]models.UserRecord
	for i := range next {
		next[i] = make(map[string]models.UserRecord)
	}
	for id, rec := range records {
		h := fnv.New32a()
		_, _ = h.Write([]byte(id))
		next[h.Sum32()%shardCount][id] = rec
	}
	for i, s := range c.shards {
		s.mu.Lock()
		s.records = next[i]
		s.mu.Unlock()
	}
	c.publish()
}

// Len returns the number of records.
func (c *Cache) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.RLock()
		n += len(s.records)
		s.mu.RUnlock()
	}
	return n
}

// Snapshot returns a copy of every record.
func (c *Cache) Snapshot() map[string]models.UserRecord {
	out := make(map[string]models.UserRecord)
	for _, s := range c.shards {
		s.mu.RLock()
		for id, rec := range s.records {
			out[id] = rec
		}
		s.mu.RUnlock()
	}
	return out
}

func (c *Cache) publish() {
	if c.metrics != nil {
		c.metrics.SetCachedRecords(c.Len())
	}
}
