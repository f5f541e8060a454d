package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/charta/internal/pipeline"
)

var (
	watchDebounce time.Duration
	watchExisting bool
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Classify corpus files as they arrive in a directory",
	Long: `Watch trains once on the annotated corpus, then classifies every corpus
file created or rewritten in the inbox directory. Files arriving close
together are classified as one run. Each run is rendered and persisted like
a classify run. Stop with Ctrl-C.

Example:
  charta watch inbox --training corpus/annotated
  charta watch inbox --training corpus/annotated --existing --md latest.md`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringSliceVar(&trainingArgs, "training", nil, "annotated training corpus (files, directories or @manifest)")
	_ = watchCmd.MarkFlagRequired("training")
	addRunFlags(watchCmd.Flags())
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 2*time.Second, "quiet period before a batch of new files is classified")
	watchCmd.Flags().BoolVar(&watchExisting, "existing", false, "classify the files already in the directory first")
}

// inbox collects changed corpus files until they are drained
type inbox struct {
	mu    sync.Mutex
	paths map[string]bool
}

func newInbox() *inbox {
	return &inbox{paths: make(map[string]bool)}
}

// Offer queues path if it looks like a corpus file and reports whether it
// was accepted
func (b *inbox) Offer(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") || !pipeline.IsCorpusFile(name) {
		return false
	}
	b.mu.Lock()
	b.paths[path] = true
	b.mu.Unlock()
	return true
}

// Drain returns the queued paths in sorted order and empties the inbox
func (b *inbox) Drain() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.paths))
	for p := range b.paths {
		out = append(out, p)
	}
	b.paths = make(map[string]bool)
	sort.Strings(out)
	return out
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir := args[0]
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	training, err := pipeline.ExpandPaths(trainingArgs)
	if err != nil {
		return fmt.Errorf("training corpus: %w", err)
	}

	s, err := openSession(cfg, !noStore)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Fprintf(os.Stderr, "⚙️  Training on %d files...\n", len(training))
	classifier, err := s.pipeline.TrainFrom(ctx, training)
	if err != nil {
		return fmt.Errorf("train failed: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ Trained (%s)\n", classifier.Settings)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	pending := newInbox()
	classify := func() {
		paths := pending.Drain()
		if len(paths) == 0 {
			return
		}
		fmt.Fprintf(os.Stderr, "⚙️  Classifying %d new files...\n", len(paths))
		report, err := s.pipeline.ClassifyWith(ctx, classifier, paths)
		if err != nil {
			// A batch of unusable files must not stop the watcher
			fmt.Fprintf(os.Stderr, "✗ %v\n", err)
			return
		}
		if err := s.pipeline.RenderReport(report); err != nil {
			fmt.Fprintf(os.Stderr, "✗ render failed: %v\n", err)
		}
	}

	if watchExisting {
		existing, err := pipeline.ExpandPaths([]string{dir})
		if err != nil {
			return err
		}
		for _, p := range existing {
			pending.Offer(p)
		}
		classify()
	}

	fmt.Fprintf(os.Stderr, "✓ Watching %s (Ctrl-C to stop)\n", dir)

	timer := time.NewTimer(watchDebounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if pending.Offer(event.Name) {
				s.logger.Debug("corpus file changed", zap.String("path", event.Name), zap.String("op", event.Op.String()))
				timer.Reset(watchDebounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("watcher error", zap.Error(err))
		case <-timer.C:
			classify()
		}
	}
}
