package quizgen

import (
	"errors"
	"fmt"
	"math"

	"github.com/pavelanni/pdfquiz/internal/model"
)

// ErrEmptyInput is returned when there is nothing to generate from: no
// documents or zero pages in total.
var ErrEmptyInput = errors.New("no document pages to generate questions from")

// Allocation is the number of questions requested from one document.
type Allocation struct {
	Filename string
	Pages    int
	MCQ      int
	Short    int
}

// Allocate splits the requested counts across documents in proportion to
// their page counts. Each document gets at least one question of each kind,
// and shares are rounded half to even, so the sum may exceed the target.
func Allocate(docs []model.SourceDocument, targetMCQ, targetShort int) ([]Allocation, error) {
	if targetMCQ < 1 || targetShort < 1 {
		return nil, fmt.Errorf("question counts must be at least 1 (mcq=%d, short=%d)", targetMCQ, targetShort)
	}

	total := 0
	for _, d := range docs {
		if d.PageCount < 0 {
			return nil, fmt.Errorf("document %s has a negative page count", d.Filename)
		}
		total += d.PageCount
	}
	if len(docs) == 0 || total == 0 {
		return nil, ErrEmptyInput
	}

	out := make([]Allocation, len(docs))
	for i, d := range docs {
		ratio := float64(d.PageCount) / float64(total)
		out[i] = Allocation{
			Filename: d.Filename,
			Pages:    d.PageCount,
			MCQ:      share(targetMCQ, ratio),
			Short:    share(targetShort, ratio),
		}
	}
	return out, nil
}

func share(target int, ratio float64) int {
	return max(1, int(math.RoundToEven(float64(target)*ratio)))
}
