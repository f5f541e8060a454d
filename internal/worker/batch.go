package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/charta/internal/model"
)

// Loader reads one diploma from a file path or URL
type Loader interface {
	Load(ctx context.Context, path string) (*model.Document, error)
}

// LoadResult is the outcome of loading one path
type LoadResult struct {
	Index    int
	Path     string
	Document *model.Document
	Error    error
}

// BatchLoader loads many documents concurrently
type BatchLoader struct {
	loader      Loader
	concurrency int
}

// NewBatchLoader creates a loader running at most concurrency loads at once
func NewBatchLoader(loader Loader, concurrency int) *BatchLoader {
	return &BatchLoader{
		loader:      loader,
		concurrency: concurrency,
	}
}

// LoadPaths loads every path and returns the results in input order.
// Failed loads carry their error; the batch itself never fails.
func (b *BatchLoader) LoadPaths(ctx context.Context, paths []string) []*LoadResult {
	pool := NewPool(b.concurrency, func(ctx context.Context, path string) *LoadResult {
		doc, err := b.loader.Load(ctx, path)
		return &LoadResult{Path: path, Document: doc, Error: err}
	})
	results, started := pool.Run(ctx, paths)

	loaded := make([]*LoadResult, len(paths))
	for i, path := range paths {
		if started[i] {
			loaded[i] = results[i]
		} else {
			// Paths dropped by cancellation still get a result
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			loaded[i] = &LoadResult{Path: path, Error: err}
		}
		loaded[i].Index = i
	}
	return loaded
}

// ReadPathsFromFile reads document paths or URLs from a manifest (one per
// line, # comments, duplicates dropped). Relative file paths are resolved
// against the manifest directory.
func ReadPathsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	base := filepath.Dir(filePath)

	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !IsURL(line) && !filepath.IsAbs(line) {
			line = filepath.Join(base, line)
		}

		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return paths, nil
}

// IsURL reports whether path names an http(s) resource
func IsURL(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}
