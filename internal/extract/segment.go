package extract

import "strings"

// maxListWords is the length up to which a comma or dash fragment counts as
// part of an enumeration rather than a sentence of its own
const maxListWords = 3

func isTerminal(r byte) bool {
	switch r {
	case '.', '!', '?', ';', ':':
		return true
	}
	return false
}

func isInner(r byte) bool {
	return r == ',' || r == '-'
}

// splitPieces cuts text after every punctuation mark and after closing
// parentheses. A mark directly followed by ')' stays with the parenthesis.
func splitPieces(text string) []string {
	var pieces []string
	start := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		cut := c == ')'
		if isTerminal(c) || isInner(c) {
			cut = true
			// Keep runs of marks together
			if i+1 < len(text) && (isTerminal(text[i+1]) || isInner(text[i+1]) || text[i+1] == ')') {
				cut = false
			}
		}
		if cut {
			pieces = append(pieces, text[start:i+1])
			start = i + 1
		}
	}
	if start < len(text) {
		pieces = append(pieces, text[start:])
	}
	return pieces
}

// segmenter accumulates pieces into sentences. A sentence is open while
// later pieces may still be appended to it.
type segmenter struct {
	sentences []string
	open      bool
	// terminated is true when the last closed sentence ended at a full stop
	terminated bool
}

func (s *segmenter) appendLast(piece string) {
	if len(s.sentences) == 0 {
		s.sentences = append(s.sentences, piece)
		return
	}
	s.sentences[len(s.sentences)-1] += " " + piece
}

func (s *segmenter) start(piece string) {
	s.sentences = append(s.sentences, piece)
}

// Segment splits tenor text into sentences. Pieces ending in . ! ? ; : close
// a sentence. Comma and dash pieces longer than three words close one too;
// shorter ones are enumerations and stay with their neighbours. Editorial
// notes in parentheses after a full stop are attached to that sentence.
func Segment(text string) []string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil
	}

	s := &segmenter{open: true, terminated: true}
	for _, raw := range splitPieces(text) {
		piece := strings.TrimSpace(raw)
		if piece == "" {
			continue
		}
		last := piece[len(piece)-1]

		switch {
		case isTerminal(last):
			s.add(piece)
			s.open = false
			s.terminated = true

		case isInner(last):
			switch {
			case s.open:
				s.appendLast(piece)
				s.open = false
			case len(strings.Fields(piece)) > maxListWords:
				s.start(piece)
			case s.terminated:
				s.start(piece)
				s.open = true
			default:
				s.appendLast(piece)
			}
			s.terminated = false

		case last == ')' && s.terminated:
			s.appendLast(piece)
			s.open = false

		default:
			s.add(piece)
			s.open = true
			s.terminated = false
		}
	}
	return s.sentences
}

// add appends to an open sentence or starts a new one
func (s *segmenter) add(piece string) {
	if s.open {
		s.appendLast(piece)
	} else {
		s.start(piece)
	}
}
