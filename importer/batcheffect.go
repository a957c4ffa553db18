package importer

import (
	"fmt"
	"math"
	"sort"

	"github.com/omicsfuse/omicsfuse/pkg/errors"
	"github.com/omicsfuse/omicsfuse/preprocessing"
)

// miBins is the number of quantile bins used when discretizing a variable
// for mutual information estimation.
const miBins = 10

// RemoveBatchVariables drops annotation variables whose mutual information
// with the batch variable exceeds miThreshold. Such variables mostly restate
// which batch a sample came from and would let a model shortcut through the
// batch effect. A candidate is retained anyway when it carries at least as
// much information about one of the target variables as about the batch.
// Target variables and the batch variable itself are never dropped.
// Variables with no usable values are skipped with a warning instead of
// being scored. Returns the dropped variable names, sorted.
func RemoveBatchVariables(enc *preprocessing.EncodedAnnotation, batchVar string, targetVars []string, miThreshold float64) ([]string, error) {
	batch, ok := enc.Values[batchVar]
	if !ok {
		return nil, errors.NewValueError("RemoveBatchVariables", "unknown batch variable "+batchVar)
	}
	batchBins, ok := quantileBins(batch, miBins)
	if !ok {
		return nil, errors.NewDataConsistencyError("RemoveBatchVariables",
			"batch variable "+batchVar+" has no usable values")
	}

	protected := map[string]bool{batchVar: true}
	targetBins := make(map[string][]int, len(targetVars))
	for _, name := range targetVars {
		values, ok := enc.Values[name]
		if !ok {
			return nil, errors.NewValueError("RemoveBatchVariables", "unknown target variable "+name)
		}
		protected[name] = true
		if bins, ok := quantileBins(values, miBins); ok {
			targetBins[name] = bins
		}
	}

	names := make([]string, 0, len(enc.Values))
	for name := range enc.Values {
		if !protected[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var dropped []string
	for _, name := range names {
		bins, ok := quantileBins(enc.Values[name], miBins)
		if !ok {
			errors.Warn(errors.NewDegenerateDataWarning("RemoveBatchVariables", name,
				"no usable values; association with batch not assessed"))
			continue
		}
		batchMI := mutualInformation(bins, batchBins)
		if batchMI <= miThreshold {
			continue
		}
		informative := false
		for _, tb := range targetBins {
			if mutualInformation(bins, tb) >= batchMI {
				informative = true
				break
			}
		}
		if !informative {
			dropped = append(dropped, name)
		}
	}

	DropVariables(enc, dropped)
	return dropped, nil
}

// DropVariables removes the named variables from an annotation. Used to
// replay a drop decision made on the training cohort onto the test cohort,
// keeping the two annotation schemas identical.
func DropVariables(enc *preprocessing.EncodedAnnotation, names []string) {
	for _, name := range names {
		delete(enc.Values, name)
		delete(enc.VariableTypes, name)
		delete(enc.LabelMappings, name)
	}
}

// quantileBins discretizes values into at most nbins rank-based bins. NaN
// values map to bin -1 and are excluded from MI later. The second return is
// false when no finite values exist.
func quantileBins(values []float64, nbins int) ([]int, bool) {
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return nil, false
	}
	sort.Float64s(finite)

	// Bin edges at the nbins-quantiles of the finite values. Ties collapse
	// edges, so low-cardinality codes get one bin per distinct value.
	edges := make([]float64, 0, nbins-1)
	for i := 1; i < nbins; i++ {
		q := finite[i*len(finite)/nbins]
		if len(edges) == 0 || q > edges[len(edges)-1] {
			edges = append(edges, q)
		}
	}

	bins := make([]int, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			bins[i] = -1
			continue
		}
		bins[i] = sort.SearchFloat64s(edges, v)
		if bins[i] < len(edges) && v == edges[bins[i]] {
			bins[i]++
		}
	}
	return bins, true
}

// mutualInformation estimates MI in nats between two discretized vectors
// over their pairwise-complete observations.
func mutualInformation(x, y []int) float64 {
	joint := make(map[[2]int]float64)
	px := make(map[int]float64)
	py := make(map[int]float64)
	var n float64
	for i := range x {
		if x[i] < 0 || y[i] < 0 {
			continue
		}
		joint[[2]int{x[i], y[i]}]++
		px[x[i]]++
		py[y[i]]++
		n++
	}
	if n == 0 {
		return 0
	}

	var mi float64
	for key, c := range joint {
		pxy := c / n
		mi += pxy * math.Log(pxy/(px[key[0]]/n*py[key[1]]/n))
	}
	if mi < 0 {
		// Floating point noise; MI is nonnegative.
		mi = 0
	}
	return mi
}

// AssessVariableAssociation reports the MI between one annotation variable
// and another, for diagnostics.
func AssessVariableAssociation(enc *preprocessing.EncodedAnnotation, a, b string) (float64, error) {
	va, ok := enc.Values[a]
	if !ok {
		return 0, errors.NewValueError("AssessVariableAssociation", "unknown variable "+a)
	}
	vb, ok := enc.Values[b]
	if !ok {
		return 0, errors.NewValueError("AssessVariableAssociation", "unknown variable "+b)
	}
	if len(va) != len(vb) {
		return 0, errors.NewDimensionError("AssessVariableAssociation", len(va), len(vb), 0)
	}
	ba, ok := quantileBins(va, miBins)
	if !ok {
		return 0, errors.NewDataConsistencyError("AssessVariableAssociation",
			fmt.Sprintf("variable %s has no usable values", a))
	}
	bb, ok := quantileBins(vb, miBins)
	if !ok {
		return 0, errors.NewDataConsistencyError("AssessVariableAssociation",
			fmt.Sprintf("variable %s has no usable values", b))
	}
	return mutualInformation(ba, bb), nil
}
