// Package indicator loads hand-written indicator rules and matches them
// against normalized sentences.
package indicator

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/charta/internal/label"
)

// Strength selects how closely a sentence must contain the rule phrase
type Strength int

const (
	StrengthSubstring Strength = 1 // Phrase tokens in order
	StrengthSubset    Strength = 2 // Phrase tokens in any order
	StrengthSimilar   Strength = 3 // Windowed Jaccard above the threshold
)

func (s Strength) String() string {
	switch s {
	case StrengthSubstring:
		return "substring"
	case StrengthSubset:
		return "subset"
	default:
		return "similar"
	}
}

// Position restricts a rule to sentences in one paragraph of a document
type Position int

const (
	PositionNone Position = iota
	PositionProtocol
	PositionContext
	PositionEschatocol
)

func (p Position) String() string {
	switch p {
	case PositionProtocol:
		return "protocol"
	case PositionContext:
		return "context"
	case PositionEschatocol:
		return "eschatocol"
	default:
		return "none"
	}
}

// Rule is one row of the indicator file
type Rule struct {
	Line     int         `json:"line"`
	Raw      string      `json:"raw"`
	Phrase   string      `json:"phrase"` // Normalized the same way as sentence text
	Label    label.Label `json:"label"`
	Strength Strength    `json:"strength"`
	Position Position    `json:"position"`
}

// Rejected describes a dropped indicator row
type Rejected struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// NormalizeFunc rewrites a phrase into the form sentence text has after
// preprocessing
type NormalizeFunc func(string) string

const fieldsPerRule = 4

// Load reads indicator rules from a CSV file
func Load(path string, normalize NormalizeFunc, logger *zap.Logger) ([]Rule, []Rejected, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open indicator file: %w", err)
	}
	defer f.Close()

	rules, rejected, err := Parse(f, normalize, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return rules, rejected, nil
}

// Parse reads indicator rules from r, one rule per line. Malformed rows are
// dropped and reported; the remaining rules stay usable. Extra fields are
// ignored. A header row in the first line is skipped.
func Parse(r io.Reader, normalize NormalizeFunc, logger *zap.Logger) ([]Rule, []Rejected, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if normalize == nil {
		normalize = strings.TrimSpace
	}

	var rules []Rule
	var rejected []Rejected
	reject := func(line int, reason string) {
		logger.Warn("dropping indicator row", zap.Int("line", line), zap.String("reason", reason))
		rejected = append(rejected, Rejected{Line: line, Reason: reason})
	}

	scanner := bufio.NewScanner(r)
	line := 0
	first := true
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		// A quoting error stays inside its own row
		record, err := splitRow(text)
		if err != nil {
			reject(line, err.Error())
			continue
		}

		if first {
			first = false
			if isHeader(record) {
				continue
			}
		}

		rule, reason := parseRule(record, normalize)
		if reason != "" {
			reject(line, reason)
			continue
		}
		rule.Line = line
		rules = append(rules, rule)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("read indicator rules: %w", err)
	}

	logger.Debug("indicator rules loaded", zap.Int("rules", len(rules)), zap.Int("rejected", len(rejected)))
	return rules, rejected, nil
}

func splitRow(text string) ([]string, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	record, err := reader.Read()
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return nil, fmt.Errorf("malformed row: %w", parseErr.Err)
		}
		return nil, err
	}
	return record, nil
}

func isHeader(record []string) bool {
	if len(record) < fieldsPerRule {
		return false
	}
	_, labelErr := label.Parse(record[1])
	_, strengthErr := strconv.Atoi(strings.TrimSpace(record[2]))
	return labelErr != nil && strengthErr != nil
}

func parseRule(record []string, normalize NormalizeFunc) (Rule, string) {
	if len(record) < fieldsPerRule {
		return Rule{}, fmt.Sprintf("expected %d fields, got %d", fieldsPerRule, len(record))
	}
	record = record[:fieldsPerRule]

	l, err := label.Parse(record[1])
	if err != nil {
		return Rule{}, err.Error()
	}
	strength, err := strconv.Atoi(strings.TrimSpace(record[2]))
	if err != nil {
		return Rule{}, fmt.Sprintf("strength %q is not an integer", record[2])
	}
	position, err := strconv.Atoi(strings.TrimSpace(record[3]))
	if err != nil {
		return Rule{}, fmt.Sprintf("position %q is not an integer", record[3])
	}

	phrase := normalize(record[0])
	if phrase == "" {
		return Rule{}, "empty phrase"
	}

	return Rule{
		Raw:      strings.TrimSpace(record[0]),
		Phrase:   phrase,
		Label:    l,
		Strength: Strength(strength),
		Position: Position(position),
	}, ""
}
