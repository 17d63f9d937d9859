package detector

import (
	"slices"

	"github.com/MeKo-Tech/barscan/internal/utils"
)

// Candidate is a scored region before suppression.
type Candidate struct {
	Region utils.Region
	Score  float64
}

// NonMaxSuppression keeps the highest scoring candidates, dropping any that
// overlap an already kept one by more than iouThreshold. The result is
// ordered by descending score; ties keep input order.
func NonMaxSuppression(cands []Candidate, iouThreshold float64) []Candidate {
	if len(cands) <= 1 {
		return cands
	}

	sorted := slices.Clone(cands)
	slices.SortStableFunc(sorted, func(a, b Candidate) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})

	kept := make([]Candidate, 0, len(sorted))
	for _, c := range sorted {
		overlaps := false
		for _, k := range kept {
			if c.Region.IoU(k.Region) > iouThreshold {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, c)
		}
	}
	return kept
}

func regionsOf(cands []Candidate) []utils.Region {
	out := make([]utils.Region, len(cands))
	for i, c := range cands {
		out[i] = c.Region
	}
	return out
}
