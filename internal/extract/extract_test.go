package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripMarkup(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Hein<sup>r</sup>icus rex", "Heinricus rex"},
		{"in <i>nomine</i> domini<!-- note -->", "in nomine domini"},
		{"plain text", "plain text"},
		{"dei &amp; gratia", "dei & gratia"},
		{"<script>x()</script>datum <b>anno</b>", "datum anno"},
	}
	for _, tc := range cases {
		got, err := StripMarkup(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestSplitPieces(t *testing.T) {
	assert.Equal(t, []string{"a,", " b.", " (C.)", " c"}, splitPieces("a, b. (C.) c"))
	assert.Equal(t, []string{"amen...", " x"}, splitPieces("amen... x"))
}

func TestSegment(t *testing.T) {
	text := `In nomine sancte et individue trinitatis. Otto divina favente clementia
		Romanorum imperator augustus. Notum sit omnibus, quod nos ecclesiam, monasterium,
		villam et predia confirmamus. Datum anno domini MCLXXXIX.`

	want := []string{
		"In nomine sancte et individue trinitatis.",
		"Otto divina favente clementia Romanorum imperator augustus.",
		"Notum sit omnibus, quod nos ecclesiam, monasterium,",
		"villam et predia confirmamus.",
		"Datum anno domini MCLXXXIX.",
	}
	assert.Equal(t, want, Segment(text))
}

func TestSegment_LongCommaPieceStartsSentence(t *testing.T) {
	got := Segment("Ego Otto rex confirmo. Statuimus igitur et firmiter precipimus, ut nullus dux audeat.")
	assert.Equal(t, []string{
		"Ego Otto rex confirmo.",
		"Statuimus igitur et firmiter precipimus,",
		"ut nullus dux audeat.",
	}, got)
}

func TestSegment_AnnotationAfterFullStop(t *testing.T) {
	got := Segment("Amen. (C.) Ego Otto rex")
	assert.Equal(t, []string{"Amen. (C.)", "Ego Otto rex"}, got)
}

func TestSegment_UnterminatedText(t *testing.T) {
	assert.Equal(t, []string{"in nomine domini amen"}, Segment("in nomine domini amen"))
	assert.Nil(t, Segment("  \n\t "))
}
