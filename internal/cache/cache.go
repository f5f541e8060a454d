// Package cache keeps lemmatizer and LLM answers between runs. Entries live
// in namespaces ("lemma", "llm") that can be inspected and purged on their
// own.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/ppiankov/charta/internal/model"
)

// Cache stores opaque values under keys built with Key
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	// Purge drops every entry of namespace, or all entries when namespace
	// is empty
	Purge(namespace string) error
}

const keyPrefix = "charta:v1:"

// Key builds a namespaced cache key. The parts are hashed so keys are safe
// to use as file names.
func Key(namespace string, parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return keyPrefix + namespace + ":" + hex.EncodeToString(hash[:])
}

// splitKey returns the namespace and hash of a key built with Key. Foreign
// keys have no namespace.
func splitKey(key string) (namespace, name string) {
	rest := strings.TrimPrefix(key, keyPrefix)
	if i := strings.LastIndex(rest, ":"); i >= 0 {
		return rest[:i], rest[i+1:]
	}
	return "", rest
}

// New builds the cache described by cfg; a disabled cache stores nothing
func New(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return Nop{}
	}
	return NewLayeredCache(cfg.MemoryTTL, cfg.Dir, cfg.DiskTTL)
}

// GetJSON decodes a cached JSON value into v
func GetJSON(c Cache, key string, v interface{}) bool {
	data, ok := c.Get(key)
	if !ok {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

// SetJSON stores v as JSON
func SetJSON(c Cache, key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(key, data, ttl)
}

// Nop never stores anything
type Nop struct{}

func (Nop) Get(string) ([]byte, bool)               { return nil, false }
func (Nop) Set(string, []byte, time.Duration) error { return nil }
func (Nop) Purge(string) error                      { return nil }
