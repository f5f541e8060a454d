package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/charta/internal/extract/adapters"
	"github.com/ppiankov/charta/internal/model"
	"github.com/ppiankov/charta/internal/worker"
)

// corpusExtensions are the file types picked up when walking a directory
var corpusExtensions = map[string]bool{
	".yaml": true,
	".yml":  true,
	".json": true,
	".xml":  true,
	".cei":  true,
	".html": true,
	".htm":  true,
	".txt":  true,
}

// IsCorpusFile reports whether path has a corpus file extension
func IsCorpusFile(path string) bool {
	return corpusExtensions[strings.ToLower(filepath.Ext(path))]
}

// CorpusLoader decodes one corpus file, local or remote, into a document
type CorpusLoader struct {
	registry *adapters.Registry
	fetcher  *Fetcher
}

// NewCorpusLoader creates a loader. A nil fetcher rejects URLs.
func NewCorpusLoader(registry *adapters.Registry, fetcher *Fetcher) *CorpusLoader {
	if registry == nil {
		registry = adapters.NewRegistry()
	}
	return &CorpusLoader{registry: registry, fetcher: fetcher}
}

// Load implements worker.Loader
func (l *CorpusLoader) Load(ctx context.Context, path string) (*model.Document, error) {
	var (
		data        []byte
		contentType string
		name        = path
	)

	if worker.IsURL(path) {
		if l.fetcher == nil {
			return nil, fmt.Errorf("fetch %s: remote corpora are disabled", path)
		}
		result, err := l.fetcher.FetchWithRetry(ctx, path)
		if err != nil {
			return nil, err
		}
		data, contentType, name = result.Body, result.ContentType, result.FinalURL
	} else {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read corpus file: %w", err)
		}
		data = b
	}

	adapter := l.registry.FindAdapter(name, contentType)
	doc, err := adapter.Decode(name, data)
	if err != nil {
		return nil, fmt.Errorf("decode %s with %s adapter: %w", path, adapter.Name(), err)
	}
	doc.Path = path
	return doc, nil
}

// ExpandPaths resolves command line arguments into corpus file paths.
// Directories are walked recursively, arguments of the form @file are read
// as manifests and URLs are kept as they are. Duplicates are removed.
func ExpandPaths(args []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, arg := range args {
		switch {
		case worker.IsURL(arg):
			add(arg)
		case strings.HasPrefix(arg, "@"):
			paths, err := worker.ReadPathsFromFile(strings.TrimPrefix(arg, "@"))
			if err != nil {
				return nil, err
			}
			for _, p := range paths {
				add(p)
			}
		default:
			info, err := os.Stat(arg)
			if err != nil {
				return nil, fmt.Errorf("corpus path: %w", err)
			}
			if !info.IsDir() {
				add(arg)
				continue
			}
			files, err := walkCorpus(arg)
			if err != nil {
				return nil, err
			}
			for _, p := range files {
				add(p)
			}
		}
	}
	return out, nil
}

func walkCorpus(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if IsCorpusFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}
