package storage

import (
	"sort"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
)

// CacheDB buffers writes on top of a parent database. Reads fall through to
// the parent for keys the overlay has not touched. Commit flushes the overlay
// as a single leveldb batch; Discard drops it.
type CacheDB struct {
	parent Database

	mu      sync.RWMutex
	writes  map[string][]byte
	deleted map[string]struct{}
}

func NewCacheDB(parent Database) *CacheDB {
	return &CacheDB{
		parent:  parent,
		writes:  make(map[string][]byte),
		deleted: make(map[string]struct{}),
	}
}

func (c *CacheDB) Get(key []byte) ([]byte, error) {
	c.mu.RLock()
	k := string(key)
	if _, gone := c.deleted[k]; gone {
		c.mu.RUnlock()
		return nil, ErrNotFound
	}
	if value, ok := c.writes[k]; ok {
		c.mu.RUnlock()
		return append([]byte(nil), value...), nil
	}
	c.mu.RUnlock()
	return c.parent.Get(key)
}

func (c *CacheDB) Put(key []byte, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := string(key)
	delete(c.deleted, k)
	c.writes[k] = append([]byte(nil), value...)
	return nil
}

func (c *CacheDB) Delete(key []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := string(key)
	delete(c.writes, k)
	c.deleted[k] = struct{}{}
	return nil
}

// Dirty reports the number of pending operations.
func (c *CacheDB) Dirty() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.writes) + len(c.deleted)
}

// Batch renders the pending operations in key order.
func (c *CacheDB) Batch() *leveldb.Batch {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.writes)+len(c.deleted))
	for k := range c.writes {
		keys = append(keys, k)
	}
	for k := range c.deleted {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	batch := new(leveldb.Batch)
	for _, k := range keys {
		if value, ok := c.writes[k]; ok {
			batch.Put([]byte(k), value)
			continue
		}
		batch.Delete([]byte(k))
	}
	return batch
}

// Commit writes the overlay into the parent and resets it.
func (c *CacheDB) Commit() error {
	batch := c.Batch()
	if batch.Len() > 0 {
		if writer, ok := c.parent.(BatchWriter); ok {
			if err := writer.Write(batch); err != nil {
				return err
			}
		} else {
			replay := &replayer{put: c.parent.Put, del: c.parent.Delete}
			if err := batch.Replay(replay); err != nil {
				return err
			}
			if replay.err != nil {
				return replay.err
			}
		}
	}
	c.Discard()
	return nil
}

// Discard drops every pending operation.
func (c *CacheDB) Discard() {
	c.mu.Lock()
	c.writes = make(map[string][]byte)
	c.deleted = make(map[string]struct{})
	c.mu.Unlock()
}

// Close is a no-op; the parent owns the underlying handle.
func (c *CacheDB) Close() {}
