package evaluate

import (
	"math/rand"

	"github.com/ppiankov/charta/internal/model"
)

// DefaultGroups is the number of cross-validation folds
const DefaultGroups = 3

// Fold is one train/test split
type Fold struct {
	Train []*model.Document
	Test  []*model.Document
}

// Folds shuffles the documents with seed and splits them into groups test
// sets of near-equal size. Each fold trains on the remaining documents.
// With fewer than two documents per group there is a single fold that
// trains and tests on everything.
func Folds(docs []*model.Document, groups int, seed int64) []Fold {
	if groups <= 0 {
		groups = DefaultGroups
	}
	if len(docs) < 2*groups {
		return []Fold{{Train: docs, Test: docs}}
	}

	shuffled := append([]*model.Document(nil), docs...)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	folds := make([]Fold, groups)
	start := 0
	for g := 0; g < groups; g++ {
		size := len(shuffled) / groups
		if g < len(shuffled)%groups {
			size++
		}
		end := start + size

		test := shuffled[start:end:end]
		train := make([]*model.Document, 0, len(shuffled)-size)
		train = append(train, shuffled[:start]...)
		train = append(train, shuffled[end:]...)

		folds[g] = Fold{Train: train, Test: test}
		start = end
	}
	return folds
}
