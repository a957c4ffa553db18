package importer

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/omicsfuse/omicsfuse/core/model"
	"github.com/omicsfuse/omicsfuse/omics"
	"github.com/omicsfuse/omicsfuse/pkg/errors"
	"github.com/omicsfuse/omicsfuse/preprocessing"
)

// ScalerKind selects the per-layer normalization transform.
type ScalerKind int

const (
	// ScalerStandard centers each feature to mean zero, unit variance.
	ScalerStandard ScalerKind = iota
	// ScalerMinMax rescales each feature to [0, 1].
	ScalerMinMax
)

// String returns the configuration name of the kind.
func (k ScalerKind) String() string {
	switch k {
	case ScalerStandard:
		return "standard"
	case ScalerMinMax:
		return "min-max"
	default:
		return fmt.Sprintf("ScalerKind(%d)", int(k))
	}
}

// ParseScalerKind converts a configuration string to a ScalerKind.
func ParseScalerKind(s string) (ScalerKind, error) {
	switch s {
	case "standard":
		return ScalerStandard, nil
	case "min-max":
		return ScalerMinMax, nil
	default:
		return 0, errors.NewConfigError("ParseScalerKind",
			fmt.Sprintf("unknown scaler kind %q (want standard or min-max)", s))
	}
}

func (k ScalerKind) newScaler() (model.Transformer, error) {
	switch k {
	case ScalerStandard:
		return preprocessing.NewStandardScaler(), nil
	case ScalerMinMax:
		return preprocessing.NewMinMaxScaler(), nil
	default:
		return nil, errors.NewConfigError("ScalerKind", fmt.Sprintf("invalid scaler kind %d", int(k)))
	}
}

// FittedScalers holds one fitted scaler per layer, learned on the training
// cohort and applied unchanged to the test cohort. There is no refit path
// on the apply side.
type FittedScalers struct {
	Kind    ScalerKind
	scalers map[string]model.Transformer
}

// Scaler returns the fitted transform for a layer, or nil.
func (fs *FittedScalers) Scaler(layer string) model.Transformer {
	return fs.scalers[layer]
}

// FitScalers fits one scaler per layer on the sample-major view of the
// training cohort and transforms the cohort in place.
func FitScalers(cohort *omics.Cohort, kind ScalerKind) (*FittedScalers, error) {
	fs := &FittedScalers{Kind: kind, scalers: make(map[string]model.Transformer, len(cohort.Tables))}
	for _, name := range cohort.LayerNames() {
		sc, err := kind.newScaler()
		if err != nil {
			return nil, err
		}
		if err := normalizeTable(cohort.Tables[name], sc, true); err != nil {
			return nil, err
		}
		fs.scalers[name] = sc
	}
	return fs, nil
}

// Apply transforms every layer of a cohort with the scalers fitted on the
// training cohort.
func (fs *FittedScalers) Apply(cohort *omics.Cohort) error {
	for _, name := range cohort.LayerNames() {
		sc, ok := fs.scalers[name]
		if !ok {
			return errors.NewDataConsistencyError("FittedScalers.Apply",
				"no fitted scaler for layer "+name)
		}
		if err := normalizeTable(cohort.Tables[name], sc, false); err != nil {
			return err
		}
	}
	return nil
}

// normalizeTable scales a feature-major table through the sample-major view
// the scalers expect, writing the result back feature-major.
func normalizeTable(t *omics.Table, sc model.Transformer, fit bool) error {
	sampleMajor := mat.DenseCopyOf(t.M.T())
	var (
		out mat.Matrix
		err error
	)
	if fit {
		out, err = sc.FitTransform(sampleMajor)
	} else {
		out, err = sc.Transform(sampleMajor)
	}
	if err != nil {
		return errors.Wrap(err, "normalize layer "+t.Name)
	}
	t.M.Copy(out.T())
	return nil
}

// Log1pCohort applies log(1+x) to every cell of every layer. The transform
// is parameter-free, so train and test are handled identically. Values at
// or below -1 have no finite log1p and fail fast.
func Log1pCohort(cohort *omics.Cohort) error {
	for _, name := range cohort.LayerNames() {
		t := cohort.Tables[name]
		nf, ns := t.Dims()
		for i := 0; i < nf; i++ {
			for j := 0; j < ns; j++ {
				v := t.M.At(i, j)
				if v <= -1 {
					return errors.NewDataConsistencyError("Log1pCohort",
						fmt.Sprintf("layer %s has value %v at (%s, %s); log1p undefined",
							name, v, t.Features[i], t.Samples[j]))
				}
				t.M.Set(i, j, math.Log1p(v))
			}
		}
	}
	return nil
}
