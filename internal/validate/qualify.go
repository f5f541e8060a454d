// Package validate decides which documents of a batch can be classified and
// prepares the ones that can.
package validate

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ppiankov/charta/internal/model"
)

// MinTenorLength is the shortest tenor, in characters, worth classifying
const MinTenorLength = 500

var (
	// ErrLanguage marks a document that is not written in Latin
	ErrLanguage = errors.New("language not supported")
	// ErrShortTenor marks a document whose tenor is too short
	ErrShortTenor = errors.New("tenor too short")
	// ErrUnusable marks a document left without sentences after pruning
	ErrUnusable = errors.New("no usable sentences")
)

var latinNames = map[string]bool{
	"latein": true,
	"lat.":   true,
	"lat":    true,
	"latin":  true,
}

// IsLatin reports whether a language name denotes Latin
func IsLatin(language string) bool {
	return latinNames[strings.ToLower(strings.TrimSpace(language))]
}

// Qualify checks the language and tenor length of a raw document
func Qualify(d *model.Document) error {
	if !IsLatin(d.Language) {
		return fmt.Errorf("%w: %q", ErrLanguage, d.Language)
	}
	if n := tenorLength(d); n < MinTenorLength {
		return fmt.Errorf("%w: %d characters", ErrShortTenor, n)
	}
	return nil
}

func tenorLength(d *model.Document) int {
	if d.Tenor != "" {
		return utf8.RuneCountInString(d.Tenor)
	}
	parts := make([]string, len(d.Sentences))
	for i, s := range d.Sentences {
		parts[i] = s.Raw
	}
	return utf8.RuneCountInString(strings.Join(parts, " "))
}

// Prune drops sentences whose normalized text has no letters and assigns
// word positions to the rest. The sentences must be prepared.
func Prune(d *model.Document) error {
	kept := d.Sentences[:0]
	for _, s := range d.Sentences {
		if hasLetter(s.Text) {
			kept = append(kept, s)
		}
	}
	for i := len(kept); i < len(d.Sentences); i++ {
		d.Sentences[i] = nil
	}
	d.Sentences = kept
	if len(d.Sentences) == 0 {
		return ErrUnusable
	}
	d.AssignPositions()
	return nil
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// Reason maps a qualification error to the short reason stored in reports
// and metrics
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrLanguage):
		return "language"
	case errors.Is(err, ErrShortTenor):
		return "tenor_length"
	case errors.Is(err, ErrUnusable):
		return "no_sentences"
	default:
		return "load_error"
	}
}
