package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// CachedProvider decorates a Provider with a persistent BadgerDB cache keyed
// by model name and text content. Re-ingesting unchanged documents then skips
// the embedding backend entirely.
//
// Determinism makes this safe: the same text and model configuration always
// produce the same vector, so a cache hit is indistinguishable from a fresh
// call.
type CachedProvider struct {
	inner Provider
	db    *badger.DB
}

// NewCached opens (or creates) a Badger cache at path wrapping the given
// provider. Close must be called to release the database.
func NewCached(inner Provider, path string) (*CachedProvider, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open embedding cache at %s: %w", path, err)
	}
	return &CachedProvider{inner: inner, db: db}, nil
}

// Close releases the underlying Badger database.
func (c *CachedProvider) Close() error {
	return c.db.Close()
}

// Embed returns cached vectors where available and delegates the misses to
// the wrapped provider in one batch. The batch contract is preserved: if the
// backend call fails, no partial result is returned.
func (c *CachedProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	for i, text := range texts {
		vec, ok := c.get(c.key(text))
		if ok {
			vectors[i] = vec
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) > 0 {
		fresh, err := c.inner.Embed(ctx, missing)
		if err != nil {
			return nil, err
		}
		for j, vec := range fresh {
			vectors[missingIdx[j]] = vec
			c.put(c.key(missing[j]), vec)
		}
	}
	return vectors, nil
}

// EmbedQuery encodes a single query string through the cache.
func (c *CachedProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return embedQuery(ctx, c, text)
}

// Model returns the wrapped provider's model name.
func (c *CachedProvider) Model() string { return c.inner.Model() }

// Dimension returns the wrapped provider's vector width.
func (c *CachedProvider) Dimension() int { return c.inner.Dimension() }

func (c *CachedProvider) key(text string) []byte {
	sum := sha256.Sum256([]byte(c.inner.Model() + "\x00" + text))
	return []byte("emb:" + hex.EncodeToString(sum[:]))
}

func (c *CachedProvider) get(key []byte) ([]float32, bool) {
	var vec []float32
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &vec)
		})
	})
	if err != nil {
		return nil, false
	}
	return vec, true
}

// put stores a vector best-effort; a failed write only costs a future
// recomputation.
func (c *CachedProvider) put(key []byte, vec []float32) {
	data, err := json.Marshal(vec)
	if err != nil {
		return
	}
	_ = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}
