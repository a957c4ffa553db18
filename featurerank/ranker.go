// Package featurerank scores features by importance and returns the top-N
// feature identifiers for a layer. The pipeline consumes it through the
// Ranker interface, so the scoring function is pluggable.
package featurerank

import (
	"math"
	"sort"

	"github.com/omicsfuse/omicsfuse/core/parallel"
	"github.com/omicsfuse/omicsfuse/omics"
	"github.com/omicsfuse/omicsfuse/pkg/errors"
)

// Ranker returns the topN most important feature ids of a layer, best first.
type Ranker interface {
	Rank(t *omics.Table, topN int) ([]string, error)
}

// LaplacianScore ranks features by their Laplacian score over the sample
// similarity graph (He et al., 2005): features that respect the local
// geometry of the samples score lower, and lower is better.
type LaplacianScore struct {
	// K is the number of nearest neighbours in the similarity graph.
	// Zero means min(5, samples-1).
	K int
}

// Rank scores every feature and returns the topN ids, best first. topN is
// capped at the layer's feature count. The scoring is deterministic.
func (l LaplacianScore) Rank(t *omics.Table, topN int) ([]string, error) {
	if topN <= 0 {
		return nil, errors.NewValueError("LaplacianScore.Rank", "topN must be positive")
	}
	nf, ns := t.Dims()
	if ns < 2 {
		return nil, errors.NewDataConsistencyError("LaplacianScore.Rank",
			"layer "+t.Name+" has fewer than two samples")
	}
	if topN > nf {
		topN = nf
	}

	k := l.K
	if k <= 0 {
		k = 5
	}
	if k > ns-1 {
		k = ns - 1
	}

	// Pairwise squared distances between samples over all features.
	d2 := make([][]float64, ns)
	var sum float64
	for i := range d2 {
		d2[i] = make([]float64, ns)
	}
	for i := 0; i < ns; i++ {
		ci := t.Col(i)
		for j := i + 1; j < ns; j++ {
			cj := t.Col(j)
			var d float64
			for f := range ci {
				diff := ci[f] - cj[f]
				d += diff * diff
			}
			d2[i][j] = d
			d2[j][i] = d
			sum += d
		}
	}
	// Heat kernel width: mean pairwise squared distance.
	width := sum / float64(ns*(ns-1)/2)
	if width == 0 {
		width = 1
	}

	// Symmetric k-nearest-neighbour affinity graph.
	W := make([][]float64, ns)
	for i := range W {
		W[i] = make([]float64, ns)
	}
	order := make([]int, ns)
	for i := 0; i < ns; i++ {
		for j := range order {
			order[j] = j
		}
		row := d2[i]
		sort.Slice(order, func(a, b int) bool { return row[order[a]] < row[order[b]] })
		picked := 0
		for _, j := range order {
			if j == i {
				continue
			}
			w := math.Exp(-row[j] / width)
			W[i][j] = w
			W[j][i] = w
			picked++
			if picked == k {
				break
			}
		}
	}

	// Degree vector.
	deg := make([]float64, ns)
	var degSum float64
	for i := 0; i < ns; i++ {
		for j := 0; j < ns; j++ {
			deg[i] += W[i][j]
		}
		degSum += deg[i]
	}

	// Features are scored independently, so the loop splits across cores.
	scores := make([]float64, nf)
	parallel.ParallelizeWithThreshold(nf, 256, func(start, end int) {
		for f := start; f < end; f++ {
			r := t.Row(f)

			// Degree-weighted centering.
			var wMean float64
			for i := range r {
				wMean += r[i] * deg[i]
			}
			wMean /= degSum

			// Numerator r'Lr and denominator r'Dr over the centered feature.
			var num, den float64
			for i := 0; i < ns; i++ {
				ri := r[i] - wMean
				den += ri * ri * deg[i]
				for j := 0; j < ns; j++ {
					rj := r[j] - wMean
					num += W[i][j] * (ri - rj) * ri
				}
			}
			if den == 0 {
				scores[f] = math.Inf(1)
				continue
			}
			scores[f] = num / den
		}
	})

	idx := make([]int, nf)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] < scores[idx[b]] })

	out := make([]string, topN)
	for i := 0; i < topN; i++ {
		out[i] = t.Features[idx[i]]
	}
	return out, nil
}

var _ Ranker = LaplacianScore{}
