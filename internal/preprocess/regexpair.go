package preprocess

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// RegexPair rewrites every match of Pattern with Replacement
type RegexPair struct {
	Pattern     *regexp.Regexp
	Replacement string
}

var groupRefRe = regexp.MustCompile(`\$(\d+)`)

// convertReplacement rewrites "$1" group references to "${1}" so a following
// letter is not read as part of the group name, and "\$" escapes to "$$"
func convertReplacement(repl string) string {
	repl = strings.ReplaceAll(repl, `\$`, "\x00")
	repl = groupRefRe.ReplaceAllString(repl, "$${$1}")
	return strings.ReplaceAll(repl, "\x00", "$$")
}

// ApplyPairs applies the pairs in order
func ApplyPairs(text string, pairs []RegexPair) string {
	for _, p := range pairs {
		text = p.Pattern.ReplaceAllString(text, p.Replacement)
	}
	return text
}

// LoadPairs reads a pair file. An empty path yields no pairs.
func LoadPairs(path string, logger *zap.Logger) ([]RegexPair, error) {
	if path == "" {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open regex pairs: %w", err)
	}
	defer func() { _ = f.Close() }()

	pairs, err := ParsePairs(f, logger)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return pairs, nil
}

// ParsePairs reads "pattern,replacement" rows. Rows with fewer than two
// fields are skipped, extra fields ignored. Patterns the regexp engine
// cannot compile (lookaround, backreferences) are dropped with a warning.
func ParsePairs(r io.Reader, logger *zap.Logger) ([]RegexPair, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var pairs []RegexPair
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := reader.FieldPos(0)

		if len(record) < 2 {
			continue
		}
		pattern := strings.TrimSpace(record[0])
		if pattern == "" {
			continue
		}

		re, err := regexp.Compile(pattern)
		if err != nil {
			logger.Warn("regex pair not used",
				zap.Int("line", line),
				zap.String("pattern", pattern),
				zap.Error(err))
			continue
		}
		pairs = append(pairs, RegexPair{
			Pattern:     re,
			Replacement: convertReplacement(strings.TrimSpace(record[1])),
		})
	}
	return pairs, nil
}
