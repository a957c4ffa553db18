// Package omics holds the tabular data model of the pipeline: named
// feature-by-sample matrices (layers), the clinical annotation table, and
// the cohort that groups them for one train/test split.
package omics

import (
	"gonum.org/v1/gonum/mat"

	"github.com/omicsfuse/omicsfuse/pkg/errors"
)

// Table is one omics layer: a named numeric matrix with features on rows
// and samples on columns. Missing measurements are NaN.
type Table struct {
	Name     string
	Features []string
	Samples  []string
	M        *mat.Dense

	featureIdx map[string]int
	sampleIdx  map[string]int
}

// NewTable creates a Table and validates that the identifier lists match the
// matrix shape.
func NewTable(name string, features, samples []string, m *mat.Dense) (*Table, error) {
	r, c := m.Dims()
	if r != len(features) {
		return nil, errors.NewDimensionError("NewTable("+name+")", len(features), r, 0)
	}
	if c != len(samples) {
		return nil, errors.NewDimensionError("NewTable("+name+")", len(samples), c, 1)
	}
	t := &Table{Name: name, Features: features, Samples: samples, M: m}
	t.reindex()
	return t, nil
}

func (t *Table) reindex() {
	t.featureIdx = make(map[string]int, len(t.Features))
	for i, f := range t.Features {
		t.featureIdx[f] = i
	}
	t.sampleIdx = make(map[string]int, len(t.Samples))
	for j, s := range t.Samples {
		t.sampleIdx[s] = j
	}
}

// Dims returns (features, samples).
func (t *Table) Dims() (int, int) {
	return t.M.Dims()
}

// FeatureIndex returns the row index of a feature id, or -1.
func (t *Table) FeatureIndex(id string) int {
	if i, ok := t.featureIdx[id]; ok {
		return i
	}
	return -1
}

// SampleIndex returns the column index of a sample id, or -1.
func (t *Table) SampleIndex(id string) int {
	if j, ok := t.sampleIdx[id]; ok {
		return j
	}
	return -1
}

// SelectSamples returns a new Table holding exactly the given samples, in
// the given order. Unknown sample ids are an error.
func (t *Table) SelectSamples(ids []string) (*Table, error) {
	nf := len(t.Features)
	out := mat.NewDense(nf, len(ids), nil)
	for j, id := range ids {
		src := t.SampleIndex(id)
		if src < 0 {
			return nil, errors.NewValueError("Table.SelectSamples", "unknown sample "+id+" in layer "+t.Name)
		}
		for i := 0; i < nf; i++ {
			out.Set(i, j, t.M.At(i, src))
		}
	}
	features := make([]string, nf)
	copy(features, t.Features)
	return NewTable(t.Name, features, append([]string(nil), ids...), out)
}

// SelectFeatures returns a new Table holding exactly the given features, in
// the given order. Unknown feature ids are an error.
func (t *Table) SelectFeatures(ids []string) (*Table, error) {
	ns := len(t.Samples)
	out := mat.NewDense(len(ids), ns, nil)
	for i, id := range ids {
		src := t.FeatureIndex(id)
		if src < 0 {
			return nil, errors.NewValueError("Table.SelectFeatures", "unknown feature "+id+" in layer "+t.Name)
		}
		for j := 0; j < ns; j++ {
			out.Set(i, j, t.M.At(src, j))
		}
	}
	samples := make([]string, ns)
	copy(samples, t.Samples)
	return NewTable(t.Name, append([]string(nil), ids...), samples, out)
}

// Row returns a copy of one feature's values across samples.
func (t *Table) Row(i int) []float64 {
	_, c := t.M.Dims()
	out := make([]float64, c)
	mat.Row(out, i, t.M)
	return out
}

// Col returns a copy of one sample's values across features.
func (t *Table) Col(j int) []float64 {
	r, _ := t.M.Dims()
	out := make([]float64, r)
	mat.Col(out, j, t.M)
	return out
}
