package label

import (
	"fmt"
	"strings"
)

// Label is a diplomatic part. The numeric value is the position in the
// canonical order of a diploma; labels never regress along a document.
type Label int

const (
	Invocatio Label = iota
	Intitulatio
	Inscriptio
	Arenga
	Publicatio
	Narratio
	Dispositio
	Sanctio
	Corroboratio
	Subscriptio
	Datatio
	Apprecatio
)

// None marks a sentence that has not been labeled yet
const None Label = -1

// Count is the number of labels
const Count = int(Apprecatio) + 1

// First and Last bound the label order
const (
	First = Invocatio
	Last  = Apprecatio
)

var names = [Count]string{
	"invocatio",
	"intitulatio",
	"inscriptio",
	"arenga",
	"publicatio",
	"narratio",
	"dispositio",
	"sanctio",
	"corroboratio",
	"subscriptio",
	"datatio",
	"apprecatio",
}

// All returns every label in order
func All() []Label {
	labels := make([]Label, Count)
	for i := range labels {
		labels[i] = Label(i)
	}
	return labels
}

// Valid reports whether l is one of the 12 labels
func (l Label) Valid() bool {
	return l >= First && l <= Last
}

// Index returns the position of the label in the order
func (l Label) Index() int {
	return int(l)
}

func (l Label) String() string {
	if !l.Valid() {
		return "none"
	}
	return names[l]
}

// Paragraph returns the paragraph group the label belongs to
func (l Label) Paragraph() Paragraph {
	switch {
	case !l.Valid():
		return NoParagraph
	case l < Arenga:
		return Protocol
	case l > Corroboratio:
		return Eschatocol
	default:
		return Context
	}
}

// Parse resolves a label name, case-insensitive
func Parse(name string) (Label, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, candidate := range names {
		if candidate == n {
			return Label(i), nil
		}
	}
	return None, fmt.Errorf("unknown label: %q", name)
}

// MarshalText encodes the label as its name
func (l Label) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText decodes a label name; empty text and "none" decode to None
func (l *Label) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" || strings.EqualFold(s, "none") {
		*l = None
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
