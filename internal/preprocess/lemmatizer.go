package preprocess

import "context"

// Lemmatizer returns the candidate lemmas of each word form. A form missing
// from the result, or mapped to no candidates, is its own lemma.
type Lemmatizer interface {
	Name() string
	Lemmatize(ctx context.Context, forms []string) (map[string][]string, error)
}

// Identity maps every word form to itself
type Identity struct{}

func (Identity) Name() string { return "identity" }

func (Identity) Lemmatize(_ context.Context, forms []string) (map[string][]string, error) {
	out := make(map[string][]string, len(forms))
	for _, f := range forms {
		out[f] = []string{f}
	}
	return out, nil
}

// BestLemma picks the most frequent candidate; ties go to the candidate
// reaching the count first. Without candidates the form is its own lemma.
func BestLemma(form string, candidates []string) string {
	best := ""
	bestCount := 0
	counts := make(map[string]int, len(candidates))
	for _, c := range candidates {
		counts[c]++
		if counts[c] > bestCount {
			bestCount = counts[c]
			best = c
		}
	}
	if best == "" {
		return form
	}
	return best
}

// batches splits forms into chunks of at most size
func batches(forms []string, size int) [][]string {
	if size <= 0 {
		size = len(forms)
	}
	var out [][]string
	for len(forms) > 0 {
		n := size
		if n > len(forms) {
			n = len(forms)
		}
		out = append(out, forms[:n])
		forms = forms[n:]
	}
	return out
}
