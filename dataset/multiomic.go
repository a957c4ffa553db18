// Package dataset holds the ML-ready output of the pipeline: the MultiOmic
// container of harmonized sample-major tensors, and the triplet dataset used
// for contrastive-style training.
package dataset

import (
	"fmt"
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/omicsfuse/omicsfuse/omics"
	"github.com/omicsfuse/omicsfuse/pkg/errors"
)

// FusedLayer is the layer name holding the early-fusion concatenation.
const FusedLayer = "all"

// MultiOmic is the durable output of an import: harmonized sample-major
// tensors per layer, encoded annotations, and identifier/type metadata.
// Instances are immutable after construction except for Concatenate.
type MultiOmic struct {
	// Dat maps layer name to a samples x features tensor.
	Dat map[string]*mat.Dense
	// Ann maps variable name to one encoded value per sample.
	Ann map[string][]float64
	// VariableTypes records the kind of each annotation variable.
	VariableTypes map[string]omics.VarType
	// Features maps layer name to the ordered feature ids (column order).
	Features map[string][]string
	// Samples is the ordered sample id list shared by all layers.
	Samples []string
	// LabelMappings maps categorical variable name to its code -> label table.
	LabelMappings map[string]map[int]string
}

// New validates the container invariants: every layer has one row per
// sample and one feature id per column, and every variable has one value
// per sample.
func New(dat map[string]*mat.Dense, ann map[string][]float64, varTypes map[string]omics.VarType,
	features map[string][]string, samples []string, labelMappings map[string]map[int]string) (*MultiOmic, error) {

	for name, m := range dat {
		r, c := m.Dims()
		if r != len(samples) {
			return nil, errors.NewDimensionError("dataset.New("+name+")", len(samples), r, 0)
		}
		if c != len(features[name]) {
			return nil, errors.NewDimensionError("dataset.New("+name+")", len(features[name]), c, 1)
		}
	}
	for name, v := range ann {
		if len(v) != len(samples) {
			return nil, errors.NewDimensionError("dataset.New(ann:"+name+")", len(samples), len(v), 0)
		}
	}
	return &MultiOmic{
		Dat:           dat,
		Ann:           ann,
		VariableTypes: varTypes,
		Features:      features,
		Samples:       samples,
		LabelMappings: labelMappings,
	}, nil
}

// Len returns the sample count.
func (ds *MultiOmic) Len() int {
	return len(ds.Samples)
}

// LayerNames returns the layer names in sorted order.
func (ds *MultiOmic) LayerNames() []string {
	names := make([]string, 0, len(ds.Dat))
	for name := range ds.Dat {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sample returns one sample's per-layer feature vectors and per-variable
// annotation values. Safe for concurrent calls: the container is read-only.
func (ds *MultiOmic) Sample(i int) (map[string][]float64, map[string]float64, error) {
	if i < 0 || i >= ds.Len() {
		return nil, nil, errors.NewValueError("MultiOmic.Sample",
			fmt.Sprintf("index %d out of range [0, %d)", i, ds.Len()))
	}
	feats := make(map[string][]float64, len(ds.Dat))
	for name, m := range ds.Dat {
		_, c := m.Dims()
		row := make([]float64, c)
		mat.Row(row, i, m)
		feats[name] = row
	}
	labels := make(map[string]float64, len(ds.Ann))
	for name, v := range ds.Ann {
		labels[name] = v[i]
	}
	return feats, labels, nil
}

// Subset returns a new MultiOmic holding exactly the given sample indices,
// in the given order. Feature metadata is shared, not copied.
func (ds *MultiOmic) Subset(indices []int) (*MultiOmic, error) {
	for _, i := range indices {
		if i < 0 || i >= ds.Len() {
			return nil, errors.NewValueError("MultiOmic.Subset",
				fmt.Sprintf("index %d out of range [0, %d)", i, ds.Len()))
		}
	}
	dat := make(map[string]*mat.Dense, len(ds.Dat))
	for name, m := range ds.Dat {
		_, c := m.Dims()
		sub := mat.NewDense(len(indices), c, nil)
		for row, i := range indices {
			for j := 0; j < c; j++ {
				sub.Set(row, j, m.At(i, j))
			}
		}
		dat[name] = sub
	}
	ann := make(map[string][]float64, len(ds.Ann))
	for name, v := range ds.Ann {
		sub := make([]float64, len(indices))
		for row, i := range indices {
			sub[row] = v[i]
		}
		ann[name] = sub
	}
	samples := make([]string, len(indices))
	for row, i := range indices {
		samples[row] = ds.Samples[i]
	}
	return New(dat, ann, ds.VariableTypes, ds.Features, samples, ds.LabelMappings)
}

// FeatureSpec names one (layer, feature) column to extract.
type FeatureSpec struct {
	Layer   string
	Feature string
}

// WideTable is a samples x columns matrix with named columns, the query
// result of ExtractFeatures. M is nil when Columns is empty.
type WideTable struct {
	Samples []string
	Columns []string
	M       *mat.Dense
}

// ExtractFeatures builds a wide table with one column per requested
// (layer, feature) pair, named "<layer>_<feature>". Requests naming a layer
// absent from the dataset, or a feature absent from a present layer, are
// skipped with a logged warning rather than failing; when nothing matches
// the result simply has no columns.
func (ds *MultiOmic) ExtractFeatures(specs []FeatureSpec) (*WideTable, error) {
	type col struct {
		name  string
		layer *mat.Dense
		j     int
	}
	var cols []col
	featureIdx := make(map[string]map[string]int, len(ds.Features))
	for layer, ids := range ds.Features {
		idx := make(map[string]int, len(ids))
		for j, id := range ids {
			idx[id] = j
		}
		featureIdx[layer] = idx
	}

	for _, spec := range specs {
		m, ok := ds.Dat[spec.Layer]
		if !ok {
			slog.Warn("requested layer not in dataset", "layer", spec.Layer)
			continue
		}
		j, ok := featureIdx[spec.Layer][spec.Feature]
		if !ok {
			slog.Warn("requested feature not in layer", "layer", spec.Layer, "feature", spec.Feature)
			continue
		}
		cols = append(cols, col{name: spec.Layer + "_" + spec.Feature, layer: m, j: j})
	}
	if len(cols) == 0 {
		return &WideTable{Samples: append([]string(nil), ds.Samples...)}, nil
	}

	n := ds.Len()
	out := mat.NewDense(n, len(cols), nil)
	names := make([]string, len(cols))
	for c, col := range cols {
		names[c] = col.name
		for i := 0; i < n; i++ {
			out.Set(i, c, col.layer.At(i, col.j))
		}
	}
	return &WideTable{
		Samples: append([]string(nil), ds.Samples...),
		Columns: names,
		M:       out,
	}, nil
}

// Concatenate collapses all layers into a single fused layer along the
// feature axis, iterating layers in sorted order so train and test collapse
// identically. Feature ids are prefixed with their source layer. This is a
// one-way, destructive transform.
func (ds *MultiOmic) Concatenate() {
	names := ds.LayerNames()
	if len(names) == 1 && names[0] == FusedLayer {
		return
	}

	n := ds.Len()
	total := 0
	for _, name := range names {
		total += len(ds.Features[name])
	}
	fused := mat.NewDense(n, total, nil)
	ids := make([]string, 0, total)
	offset := 0
	for _, name := range names {
		m := ds.Dat[name]
		_, c := m.Dims()
		for i := 0; i < n; i++ {
			for j := 0; j < c; j++ {
				fused.Set(i, offset+j, m.At(i, j))
			}
		}
		for _, f := range ds.Features[name] {
			ids = append(ids, name+"_"+f)
		}
		offset += c
	}

	ds.Dat = map[string]*mat.Dense{FusedLayer: fused}
	ds.Features = map[string][]string{FusedLayer: ids}
}

// Summary reports per-layer feature counts and the sample count.
type Summary struct {
	FeatureCounts map[string]int
	Samples       int
}

// Summary returns the dataset's shape summary.
func (ds *MultiOmic) Summary() Summary {
	counts := make(map[string]int, len(ds.Features))
	for name, ids := range ds.Features {
		counts[name] = len(ids)
	}
	return Summary{FeatureCounts: counts, Samples: ds.Len()}
}
