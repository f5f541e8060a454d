// Package preprocess turns raw diploma sentences into normalized text,
// tokens, lemmas and bigrams.
package preprocess

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	numeralPlaceholder = " 123 "
	entityPlaceholder  = " namedEntity "
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	disallowedRe = regexp.MustCompile(`[^a-z0-9\s]`)
	finalAeRe    = regexp.MustCompile(`(\w)ae\b`)

	// L only counts in well-formed numerals so "illi" stays a word
	canonicalRomanRe = regexp.MustCompile(`(?i)^m{0,4}(cm|cd|d?c{0,3})(xc|xl|l?x{0,3})(ix|iv|v?i{0,3})$`)
)

// Normalizer normalizes Latin text with a set of capital-letter resolvers.
// Resolvers lowercase words that are usually capitalized but are not names,
// so they survive named-entity replacement.
type Normalizer struct {
	capitals []RegexPair
}

// NewNormalizer creates a normalizer; capitals may be nil
func NewNormalizer(capitals []RegexPair) *Normalizer {
	return &Normalizer{capitals: capitals}
}

// Normalize normalizes text for matching and tokenization: roman numerals
// become "123", diacritics are stripped, capitalized words inside the text
// become "namedentity", everything is lowercased and reduced to a-z, digits
// and single spaces, and the spelling is unified (v→u, j→i, word-final
// ae→e). A nil normalizer applies no resolvers.
func (n *Normalizer) Normalize(text string) string {
	var capitals []RegexPair
	if n != nil {
		capitals = n.capitals
	}
	return normalizeLatin(text, capitals)
}

func normalizeLatin(text string, capitals []RegexPair) string {
	text = strings.TrimSpace(text)
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = replaceRomanNumerals(text)
	text = stripDiacritics(text)
	text = ApplyPairs(text, capitals)
	text = replaceNamedEntities(text)
	text = strings.ToLower(text)
	text = disallowedRe.ReplaceAllString(text, "")
	text = strings.NewReplacer("v", "u", "j", "i").Replace(text)
	text = finalAeRe.ReplaceAllString(text, "${1}e")
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// stripDiacritics decomposes text and drops every non-ASCII rune
func stripDiacritics(text string) string {
	decomposed := norm.NFD.String(text)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if r < utf8.RuneSelf {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isWordByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isRomanRune(r rune) bool {
	switch r {
	case 'M', 'm', 'D', 'd', 'C', 'c', 'L', 'l', 'X', 'x', 'V', 'v', 'I', 'i', '°':
		return true
	}
	return false
}

// wordAt reports whether the rune starting at byte i is an ASCII word
// character. Positions outside the text are not word characters.
func wordAt(text string, i int) bool {
	return i >= 0 && i < len(text) && isWordByte(text[i])
}

// replaceRomanNumerals replaces standalone runs of roman numeral letters and
// their trailing abbreviation dots. Runs with L must be well-formed numerals. A run is standalone when it is neither
// preceded nor followed by a word character; when the dots run into a word
// ("IV.Kal") the last dot is left as the separator.
func replaceRomanNumerals(text string) string {
	var b strings.Builder
	i := 0
	last := 0
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !isRomanRune(r) || wordBefore(text, i) {
			i += size
			continue
		}

		// Collect rune boundaries of the numeral run
		ends := []int{}
		j := i
		for j < len(text) {
			rr, sz := utf8.DecodeRuneInString(text[j:])
			if !isRomanRune(rr) {
				break
			}
			j += sz
			ends = append(ends, j)
		}
		if run := text[i:j]; strings.ContainsAny(run, "Ll") &&
			!canonicalRomanRe.MatchString(strings.ReplaceAll(run, "°", "")) {
			i = j
			continue
		}
		dots := 0
		for j+dots < len(text) && text[j+dots] == '.' {
			dots++
		}

		end := -1
		for d := dots; d >= 0; d-- {
			if !wordAt(text, j+d) {
				end = j + d
				break
			}
		}
		if end < 0 {
			// Shorter runs end before another numeral letter; only '°' is
			// not a word character
			for k := len(ends) - 2; k >= 0; k-- {
				if !wordAt(text, ends[k]) {
					end = ends[k]
					break
				}
			}
		}
		if end < 0 {
			i += size
			continue
		}

		b.WriteString(text[last:i])
		b.WriteString(numeralPlaceholder)
		last = end
		i = end
	}
	if last == 0 {
		return text
	}
	b.WriteString(text[last:])
	return b.String()
}

// wordBefore reports whether the rune preceding byte offset i is an ASCII
// word character
func wordBefore(text string, i int) bool {
	if i == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return r < utf8.RuneSelf && isWordByte(byte(r))
}

// replaceNamedEntities replaces capitalized words with the entity
// placeholder unless they open the text or follow a full stop directly or
// after one separating character. Runs on ASCII text.
func replaceNamedEntities(text string) string {
	var b strings.Builder
	i := 0
	last := 0
	for i < len(text) {
		c := text[i]
		if c < 'A' || c > 'Z' || !wordAt(text, i+1) || sentenceStart(text, i) {
			i++
			continue
		}
		j := i + 1
		for j < len(text) && isWordByte(text[j]) {
			j++
		}
		b.WriteString(text[last:i])
		b.WriteString(entityPlaceholder)
		last = j
		i = j
	}
	if last == 0 {
		return text
	}
	b.WriteString(text[last:])
	return b.String()
}

func sentenceStart(text string, i int) bool {
	if i == 0 {
		return true
	}
	if text[i-1] == '.' {
		return true
	}
	if i >= 2 && text[i-2] == '.' && (isWordByte(text[i-1]) || isSpaceByte(text[i-1])) {
		return true
	}
	return false
}

func isSpaceByte(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}
