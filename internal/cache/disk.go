package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const entryExt = ".cache"

// DiskCache stores one JSON file per entry under dir/<namespace>/
type DiskCache struct {
	dir string
	ttl time.Duration
}

// NewDiskCache creates a disk cache; ttl applies when Set gets zero
func NewDiskCache(dir string, ttl time.Duration) *DiskCache {
	return &DiskCache{dir: dir, ttl: ttl}
}

type diskEntry struct {
	Data      []byte    `json:"data"`
	StoredAt  time.Time `json:"stored_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (e diskEntry) expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

func readEntry(path string) (diskEntry, error) {
	var e diskEntry
	data, err := os.ReadFile(path)
	if err != nil {
		return e, err
	}
	err = json.Unmarshal(data, &e)
	return e, err
}

// Get drops expired or unreadable entries it comes across
func (c *DiskCache) Get(key string) ([]byte, bool) {
	path := c.path(key)
	e, err := readEntry(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			_ = os.Remove(path)
		}
		return nil, false
	}
	if e.expired(time.Now()) {
		_ = os.Remove(path)
		return nil, false
	}
	return e.Data, true
}

func (c *DiskCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.ttl
	}
	now := time.Now()
	data, err := json.Marshal(diskEntry{Data: value, StoredAt: now, ExpiresAt: now.Add(ttl)})
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	// Readers only ever see complete entries; concurrent writers each get
	// their own temp file and the last rename wins
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write cache file: %w", err)
	}
	return nil
}

// Purge removes a namespace directory, or the whole cache directory
func (c *DiskCache) Purge(namespace string) error {
	target := c.dir
	if namespace != "" {
		target = filepath.Join(c.dir, namespace)
	}
	if err := os.RemoveAll(target); err != nil {
		return fmt.Errorf("purge cache: %w", err)
	}
	return nil
}

// NamespaceStats describes the stored entries of one namespace
type NamespaceStats struct {
	Namespace string
	Entries   int
	Expired   int
	Bytes     int64
	Oldest    time.Time
}

// Stats counts the entries of every namespace, sorted by name. A missing
// cache directory has no namespaces.
func (c *DiskCache) Stats() ([]NamespaceStats, error) {
	now := time.Now()
	byNamespace := make(map[string]*NamespaceStats)

	err := c.walk(func(namespace, path string, info fs.FileInfo) error {
		st, ok := byNamespace[namespace]
		if !ok {
			st = &NamespaceStats{Namespace: namespace}
			byNamespace[namespace] = st
		}
		st.Entries++
		st.Bytes += info.Size()

		e, err := readEntry(path)
		if err != nil || e.expired(now) {
			st.Expired++
			return nil
		}
		if st.Oldest.IsZero() || e.StoredAt.Before(st.Oldest) {
			st.Oldest = e.StoredAt
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]NamespaceStats, 0, len(byNamespace))
	for _, st := range byNamespace {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Namespace < out[j].Namespace })
	return out, nil
}

// Prune deletes expired and unreadable entries and reports how many were
// removed
func (c *DiskCache) Prune() (int, error) {
	now := time.Now()
	removed := 0
	err := c.walk(func(_, path string, _ fs.FileInfo) error {
		e, err := readEntry(path)
		if err == nil && !e.expired(now) {
			return nil
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		removed++
		return nil
	})
	return removed, err
}

// walk visits every entry file with its namespace
func (c *DiskCache) walk(visit func(namespace, path string, info fs.FileInfo) error) error {
	err := filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != entryExt {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		namespace := ""
		if rel, err := filepath.Rel(c.dir, filepath.Dir(path)); err == nil && rel != "." {
			namespace = filepath.ToSlash(rel)
		}
		return visit(namespace, path, info)
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// path spreads keys over one subdirectory per namespace
func (c *DiskCache) path(key string) string {
	namespace, name := splitKey(key)
	if namespace == "" {
		return filepath.Join(c.dir, name+entryExt)
	}
	return filepath.Join(c.dir, namespace, name+entryExt)
}
