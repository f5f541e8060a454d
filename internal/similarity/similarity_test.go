package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenSimilar(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"nomine", "nomine", true},
		{"latine", "latinae", true},
		{"domini", "dominus", true},
		{" sancte", "sancte ", true},
		{"et", "in", false},
		{"deus", "dei", false},
		{"amen", "nomine", false},
		{"", "", true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, TokenSimilar(tc.a, tc.b), "%q vs %q", tc.a, tc.b)
		assert.Equal(t, tc.want, TokenSimilar(tc.b, tc.a), "%q vs %q", tc.b, tc.a)
	}
}

func TestAlignmentScore_FlooredAtZero(t *testing.T) {
	assert.Equal(t, 0, alignmentScore([]rune("ab"), []rune("cd")))
	assert.Equal(t, 9, alignmentScore([]rune("abc"), []rune("abc")))
	assert.Equal(t, -3, alignmentScore([]rune(""), []rune("abc")))
}

func TestContainsOrderedSubstring(t *testing.T) {
	assert.True(t, ContainsOrderedSubstring("in nomine sancte", "in nomine sancte trinitatis"))
	assert.True(t, ContainsOrderedSubstring("in nomine trinitatis", "in dei nomine et sancte trinitatis"))
	assert.True(t, ContainsOrderedSubstring("sancte trinitatis", "ego in sancti trinitatis"))
	assert.False(t, ContainsOrderedSubstring("trinitatis sancte", "in nomine sancte trinitatis"))
	assert.False(t, ContainsOrderedSubstring("in nomine sancte amen", "in nomine sancte"))
	assert.True(t, ContainsOrderedSubstring("", "anything"))
}

func TestContainsAllTokensUnordered(t *testing.T) {
	assert.True(t, ContainsAllTokensUnordered("trinitatis sancte", "in nomine sancte trinitatis"))
	assert.False(t, ContainsAllTokensUnordered("nomine amen", "in nomine sancte"))

	for _, x := range []string{"in nomine domini", "datum", "", "et et et"} {
		assert.True(t, ContainsAllTokensUnordered(x, x), x)
	}
}

func TestWindowedJaccard_Identity(t *testing.T) {
	for _, x := range []string{"in nomine sancte trinitatis", "datum per manum", "amen", "ego otto rex"} {
		assert.InDelta(t, 1.0, WindowedJaccard(x, x), 1e-9, x)
	}
}

func TestWindowedJaccard_Window(t *testing.T) {
	assert.InDelta(t, 1.0, WindowedJaccard("sancte trinitatis", "in nomine sancte trinitatis amen"), 1e-9)

	// One of four needle tokens missing: exactly at the tolerated ratio
	got := WindowedJaccard("in nomine sancte trinitatis", "in nomine sancte et individue")
	assert.InDelta(t, 0.75, got, 1e-9)

	// Half of the needle missing
	assert.Equal(t, 0.0, WindowedJaccard("in nomine sancte trinitatis", "in nomine domini"))

	assert.Equal(t, 0.0, WindowedJaccard("", "in nomine"))
	assert.Equal(t, 0.0, WindowedJaccard("in nomine", ""))
}

func TestWindowedJaccard_FirstNeedleMatchWins(t *testing.T) {
	// "domini" aligns with "nomine" well enough to be absorbed by it, so the
	// needle token "domini" stays unmatched
	assert.Equal(t, 0.0, WindowedJaccard("in nomine domini", "in nomine domini"))
}

func TestWindowedJaccard_NormalizesVariants(t *testing.T) {
	// "latinae" matches needle token "latine" and is replaced before comparing
	assert.InDelta(t, 1.0, WindowedJaccard("lingua latine", "lingua latinae"), 1e-9)
}
