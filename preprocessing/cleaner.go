// Package preprocessing implements the feature/sample cleanup, scaling, and
// label-encoding transforms of the pipeline. Every transform follows the
// fit-once/apply-many contract: parameters are learned on the training
// cohort and reused unchanged for the test cohort.
package preprocessing

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/omicsfuse/omicsfuse/omics"
	"github.com/omicsfuse/omicsfuse/pkg/errors"
	"github.com/omicsfuse/omicsfuse/pkg/log"
)

// Cleaner removes near-constant and high-missingness features per layer,
// imputes remaining missing cells with the feature median, and drops samples
// that are uninformative in any layer. Cleaning is parameter-free per cohort
// (no fitted state), so train and test are cleaned independently.
type Cleaner struct {
	// VarianceThreshold drops features whose NaN-aware variance is <= this.
	VarianceThreshold float64
	// NAThreshold drops features whose missing fraction is >= this.
	NAThreshold float64
}

// CleanTable applies the per-layer feature steps: variance filter,
// missingness filter, then median imputation of surviving features.
func (c Cleaner) CleanTable(t *omics.Table) (*omics.Table, error) {
	nf, ns := t.Dims()
	if nf == 0 || ns == 0 {
		return nil, errors.NewDataConsistencyError("Cleaner.CleanTable", "layer "+t.Name+" is empty")
	}

	var keep []string
	for i := 0; i < nf; i++ {
		row := t.Row(i)
		present := nonMissing(row)
		naFrac := 1 - float64(len(present))/float64(ns)
		if naFrac >= c.NAThreshold {
			continue
		}
		if nanVariance(present) <= c.VarianceThreshold {
			continue
		}
		keep = append(keep, t.Features[i])
	}
	if len(keep) == 0 {
		return nil, errors.NewDataConsistencyError("Cleaner.CleanTable",
			"no features in layer "+t.Name+" survive variance/missingness filtering")
	}

	out, err := t.SelectFeatures(keep)
	if err != nil {
		return nil, err
	}
	imputeMedians(out)

	slog.Debug("cleaned layer",
		log.LayerKey, t.Name,
		log.FeaturesKey, len(keep),
		log.SamplesKey, ns,
	)
	return out, nil
}

// CleanCohort cleans every layer, then removes samples that are
// uninformative (zero or undefined standard deviation) in any layer. All
// layers end up with the identical ordered sample set.
func (c Cleaner) CleanCohort(cohort *omics.Cohort) error {
	for _, name := range cohort.LayerNames() {
		cleaned, err := c.CleanTable(cohort.Tables[name])
		if err != nil {
			return err
		}
		cohort.Tables[name] = cleaned
	}

	layers := cohort.LayerNames()
	if len(layers) == 0 {
		return errors.NewDataConsistencyError("Cleaner.CleanCohort", "cohort has no layers")
	}

	// Samples present in every layer, ordered by the first layer's columns.
	common := cohort.Tables[layers[0]].Samples
	for _, name := range layers[1:] {
		tbl := cohort.Tables[name]
		filtered := common[:0:0]
		for _, id := range common {
			if tbl.SampleIndex(id) >= 0 {
				filtered = append(filtered, id)
			}
		}
		common = filtered
	}

	// A sample is informative in a layer iff its std over the cleaned
	// features is nonzero and not NaN. The common mask is the AND across
	// layers and is applied identically everywhere.
	var keep []string
	for _, id := range common {
		informative := true
		for _, name := range layers {
			tbl := cohort.Tables[name]
			col := tbl.Col(tbl.SampleIndex(id))
			sd := stat.PopStdDev(col, nil)
			if sd == 0 || math.IsNaN(sd) {
				informative = false
				break
			}
		}
		if informative {
			keep = append(keep, id)
		}
	}
	if len(keep) == 0 {
		return errors.NewDataConsistencyError("Cleaner.CleanCohort",
			"no informative samples shared by all layers")
	}

	for _, name := range layers {
		sub, err := cohort.Tables[name].SelectSamples(keep)
		if err != nil {
			return err
		}
		cohort.Tables[name] = sub
	}
	return nil
}

// nonMissing returns the non-NaN values of a row.
func nonMissing(row []float64) []float64 {
	out := make([]float64, 0, len(row))
	for _, v := range row {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// nanVariance is the variance over the present values; zero when fewer than
// two values are present.
func nanVariance(present []float64) float64 {
	if len(present) < 2 {
		return 0
	}
	return stat.Variance(present, nil)
}

// median of the present values. Callers guarantee present is non-empty.
func median(present []float64) float64 {
	s := append([]float64(nil), present...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// imputeMedians replaces every NaN cell with its feature's median over the
// non-missing samples, in place.
func imputeMedians(t *omics.Table) {
	nf, ns := t.Dims()
	for i := 0; i < nf; i++ {
		row := t.Row(i)
		present := nonMissing(row)
		if len(present) == ns || len(present) == 0 {
			continue
		}
		m := median(present)
		for j, v := range row {
			if math.IsNaN(v) {
				t.M.Set(i, j, m)
			}
		}
	}
}
