package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MeKo-Tech/barscan/internal/utils"
)

func TestNonMaxSuppression(t *testing.T) {
	a := Candidate{Region: utils.NewRegion(0, 0, 100, 100), Score: 0.9}
	aShift := Candidate{Region: utils.NewRegion(5, 5, 105, 105), Score: 0.8}
	b := Candidate{Region: utils.NewRegion(200, 200, 260, 260), Score: 0.7}

	tests := []struct {
		name      string
		in        []Candidate
		threshold float64
		want      []Candidate
	}{
		{"empty", nil, 0.5, nil},
		{"single", []Candidate{b}, 0.5, []Candidate{b}},
		{"overlap suppressed", []Candidate{aShift, a, b}, 0.5, []Candidate{a, b}},
		{"threshold above overlap keeps both", []Candidate{aShift, a}, 0.95, []Candidate{a, aShift}},
		{"disjoint sorted by score", []Candidate{b, a}, 0.5, []Candidate{a, b}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NonMaxSuppression(tt.in, tt.threshold))
		})
	}
}

func TestNonMaxSuppression_DoesNotMutateInput(t *testing.T) {
	in := []Candidate{
		{Region: utils.NewRegion(0, 0, 10, 10), Score: 0.1},
		{Region: utils.NewRegion(50, 50, 60, 60), Score: 0.9},
	}
	NonMaxSuppression(in, 0.5)
	assert.InDelta(t, 0.1, in[0].Score, 1e-9)
}
