package label

import (
	"fmt"
	"strings"
)

// Paragraph is one of the three coarse groups of a diploma
type Paragraph int

const (
	Protocol Paragraph = iota
	Context
	Eschatocol
)

// NoParagraph marks a sentence without a paragraph label
const NoParagraph Paragraph = -1

var paragraphNames = [...]string{"protocol", "context", "eschatocol"}

// Paragraphs returns the three groups in document order
func Paragraphs() []Paragraph {
	return []Paragraph{Protocol, Context, Eschatocol}
}

func (p Paragraph) String() string {
	if p < Protocol || p > Eschatocol {
		return "none"
	}
	return paragraphNames[p]
}

// Range returns the first and last label of the group
func (p Paragraph) Range() (Label, Label) {
	switch p {
	case Protocol:
		return Invocatio, Inscriptio
	case Context:
		return Arenga, Corroboratio
	case Eschatocol:
		return Subscriptio, Apprecatio
	default:
		return First, Last
	}
}

// ParseParagraph resolves a paragraph name, case-insensitive
func ParseParagraph(name string) (Paragraph, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, candidate := range paragraphNames {
		if candidate == n {
			return Paragraph(i), nil
		}
	}
	return NoParagraph, fmt.Errorf("unknown paragraph: %q", name)
}

// MarshalText encodes the paragraph as its name
func (p Paragraph) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a paragraph name
func (p *Paragraph) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" || strings.EqualFold(s, "none") {
		*p = NoParagraph
		return nil
	}
	parsed, err := ParseParagraph(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
