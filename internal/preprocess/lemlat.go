package preprocess

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	lemlatWordform = "Input    wordform :"
	lemlatLemma    = "\t============================LEMMA "

	defaultBatchSize = 500
)

// Lemlat runs the LEMLAT 3 command line analyser. Word forms are written to
// its stdin in batches; a batch that fails is mapped to identity lemmas so
// classification can continue with degraded features.
type Lemlat struct {
	command   string
	workDir   string
	batchSize int
	timeout   time.Duration
	logger    *zap.Logger
}

// NewLemlat creates a LEMLAT lemmatizer
func NewLemlat(command, workDir string, batchSize int, timeout time.Duration, logger *zap.Logger) *Lemlat {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lemlat{
		command:   command,
		workDir:   workDir,
		batchSize: batchSize,
		timeout:   timeout,
		logger:    logger.Named("lemlat"),
	}
}

func (l *Lemlat) Name() string { return "lemlat" }

// Lemmatize never fails on analyser errors; only context cancellation is
// returned
func (l *Lemlat) Lemmatize(ctx context.Context, forms []string) (map[string][]string, error) {
	out := make(map[string][]string, len(forms))
	done := 0

	for _, batch := range batches(forms, l.batchSize) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		lemmas, err := l.run(ctx, batch)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			l.logger.Warn("lemmatizer failed, using word forms as lemmas",
				zap.Int("forms", len(batch)),
				zap.Error(err))
		}
		for _, f := range batch {
			if c, ok := lemmas[f]; ok && len(c) > 0 {
				out[f] = c
			} else {
				out[f] = []string{f}
			}
		}

		done += len(batch)
		l.logger.Debug("lemmatized batch", zap.Int("done", done), zap.Int("total", len(forms)))
	}
	return out, nil
}

func (l *Lemlat) run(ctx context.Context, forms []string) (map[string][]string, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, l.command)
	cmd.Dir = l.workDir
	cmd.Stdin = strings.NewReader(strings.Join(forms, "\n") + "\n")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("run %s: %w (stderr: %s)", l.command, err, strings.TrimSpace(stderr.String()))
	}
	return ParseLemlatOutput(&stdout)
}

// ParseLemlatOutput reads analyser output. A word form line opens a new
// entry; the first field of the line following each lemma marker is a
// candidate lemma. Forms without candidates map to themselves.
func ParseLemlatOutput(r io.Reader) (map[string][]string, error) {
	out := make(map[string][]string)

	var form string
	var candidates []string
	expectLemma := false

	flush := func() {
		if form == "" {
			return
		}
		if len(candidates) == 0 {
			candidates = []string{form}
		}
		out[form] = candidates
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case expectLemma:
			if fields := strings.Fields(line); len(fields) > 0 {
				candidates = append(candidates, fields[0])
			}
			expectLemma = false
		case strings.HasPrefix(line, lemlatWordform):
			flush()
			form = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(line, lemlatWordform)))
			candidates = nil
		case strings.HasPrefix(line, lemlatLemma):
			expectLemma = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read lemlat output: %w", err)
	}
	flush()
	return out, nil
}
