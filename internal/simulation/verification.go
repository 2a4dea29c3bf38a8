package simulation

import (
	"fmt"
	"math"
	"sort"

	"github.com/okian/elorank/internal/domain/types"
)

// evaluate fills the quality figures of report from the final standings.
func evaluate(report *Report, entries []types.Entry, strengths map[string]float64, topN int) error {
	if len(entries) == 0 {
		return fmt.Errorf("no standings to evaluate")
	}

	ratings := make([]float64, len(entries))
	hidden := make([]float64, len(entries))
	total := 0
	report.MinMatchups = math.MaxInt
	for i, e := range entries {
		s, ok := strengths[e.Reference]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownItem, e.Reference)
		}
		ratings[i] = e.Rating
		hidden[i] = s
		total += e.Matchups
		report.MinMatchups = min(report.MinMatchups, e.Matchups)
		report.MaxMatchups = max(report.MaxMatchups, e.Matchups)
		if i < topN {
			report.Top = append(report.Top, Standing{
				Rank:      e.Rank,
				ID:        e.ID,
				Reference: e.Reference,
				Rating:    e.Rating,
				Matchups:  e.Matchups,
				Strength:  s,
			})
		}
	}
	report.MeanMatchups = float64(total) / float64(len(entries))
	report.Spearman = Spearman(hidden, ratings)
	return nil
}

// Spearman returns the rank correlation of xs and ys, with tied values given
// their average rank. It is 0 when either side is constant or the lengths
// differ.
func Spearman(xs, ys []float64) float64 {
	if len(xs) != len(ys) || len(xs) < 2 {
		return 0
	}
	return pearson(ranks(xs), ranks(ys))
}

// ranks assigns 1-based ranks in ascending order of value.
func ranks(vs []float64) []float64 {
	idx := make([]int, len(vs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return vs[idx[a]] < vs[idx[b]] })

	out := make([]float64, len(vs))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && vs[idx[j+1]] == vs[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			out[idx[k]] = avg
		}
		i = j + 1
	}
	return out
}

func pearson(xs, ys []float64) float64 {
	n := float64(len(xs))
	var mx, my float64
	for i := range xs {
		mx += xs[i]
		my += ys[i]
	}
	mx /= n
	my /= n

	var cov, vx, vy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return 0
	}
	return cov / math.Sqrt(vx*vy)
}
