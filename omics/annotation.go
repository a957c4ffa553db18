package omics

import (
	"strconv"

	"github.com/omicsfuse/omicsfuse/pkg/errors"
)

// VarType classifies an annotation variable.
type VarType string

const (
	// Categorical variables are ordinally encoded before model consumption.
	Categorical VarType = "categorical"
	// Numerical variables pass through as parsed floats.
	Numerical VarType = "numerical"
)

// Missing cell markers recognized in annotation and layer files.
var missingMarkers = map[string]bool{
	"":     true,
	"NA":   true,
	"NaN":  true,
	"nan":  true,
	"None": true,
	"null": true,
}

// IsMissing reports whether a raw cell denotes a missing value.
func IsMissing(cell string) bool {
	return missingMarkers[cell]
}

// ParseValue parses a raw cell as float64. The second return is false when
// the cell is a missing marker or does not parse.
func ParseValue(cell string) (float64, bool) {
	if IsMissing(cell) {
		return 0, false
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Annotation is the clinical table: one row per sample, one column per
// variable. Cells stay raw strings until label encoding decides how to
// interpret each column.
type Annotation struct {
	Samples []string
	Columns []string
	cells   [][]string // [sample][column]

	sampleIdx map[string]int
	colIdx    map[string]int
}

// NewAnnotation creates an Annotation and validates shape and sample-id
// uniqueness.
func NewAnnotation(samples, columns []string, cells [][]string) (*Annotation, error) {
	if len(cells) != len(samples) {
		return nil, errors.NewDimensionError("NewAnnotation", len(samples), len(cells), 0)
	}
	sampleIdx := make(map[string]int, len(samples))
	for i, s := range samples {
		if _, dup := sampleIdx[s]; dup {
			return nil, errors.NewDataConsistencyError("NewAnnotation", "duplicate sample id "+s)
		}
		sampleIdx[s] = i
		if len(cells[i]) != len(columns) {
			return nil, errors.NewDimensionError("NewAnnotation", len(columns), len(cells[i]), 1)
		}
	}
	colIdx := make(map[string]int, len(columns))
	for j, c := range columns {
		colIdx[c] = j
	}
	return &Annotation{
		Samples:   samples,
		Columns:   columns,
		cells:     cells,
		sampleIdx: sampleIdx,
		colIdx:    colIdx,
	}, nil
}

// NumSamples returns the number of annotated samples.
func (a *Annotation) NumSamples() int {
	return len(a.Samples)
}

// Has reports whether a sample id is annotated.
func (a *Annotation) Has(sample string) bool {
	_, ok := a.sampleIdx[sample]
	return ok
}

// Column returns the raw cells of one variable, in sample order.
func (a *Annotation) Column(name string) ([]string, error) {
	j, ok := a.colIdx[name]
	if !ok {
		return nil, errors.NewValueError("Annotation.Column", "unknown variable "+name)
	}
	out := make([]string, len(a.Samples))
	for i := range a.cells {
		out[i] = a.cells[i][j]
	}
	return out, nil
}

// ColumnType classifies a variable: numerical iff every non-missing cell
// parses as a float. An all-missing column is numerical, matching the
// float-typed column such data loads as in tabular toolkits.
func (a *Annotation) ColumnType(name string) (VarType, error) {
	col, err := a.Column(name)
	if err != nil {
		return "", err
	}
	for _, cell := range col {
		if IsMissing(cell) {
			continue
		}
		if _, err := strconv.ParseFloat(cell, 64); err != nil {
			return Categorical, nil
		}
	}
	return Numerical, nil
}

// SelectSamples returns a new Annotation reindexed to exactly the given
// sample list. Unknown sample ids are an error.
func (a *Annotation) SelectSamples(ids []string) (*Annotation, error) {
	cells := make([][]string, len(ids))
	for i, id := range ids {
		src, ok := a.sampleIdx[id]
		if !ok {
			return nil, errors.NewValueError("Annotation.SelectSamples", "unknown sample "+id)
		}
		row := make([]string, len(a.Columns))
		copy(row, a.cells[src])
		cells[i] = row
	}
	return NewAnnotation(append([]string(nil), ids...), append([]string(nil), a.Columns...), cells)
}
