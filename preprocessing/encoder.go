package preprocessing

import (
	"math"
	"sort"

	"github.com/omicsfuse/omicsfuse/core/model"
	"github.com/omicsfuse/omicsfuse/omics"
	"github.com/omicsfuse/omicsfuse/pkg/errors"
)

// UnknownCode is the sentinel code assigned to categories not seen at fit
// time. Unseen categories never fail the transform.
const UnknownCode = -1

// OrdinalEncoder maps string categories to integer codes 0..k-1, assigned in
// sorted category order so the mapping is deterministic. Missing cells
// encode to NaN; unseen categories encode to UnknownCode.
type OrdinalEncoder struct {
	model.BaseEstimator

	codes      map[string]int
	categories []string
}

// NewOrdinalEncoder creates an unfitted OrdinalEncoder.
func NewOrdinalEncoder() *OrdinalEncoder {
	return &OrdinalEncoder{}
}

// Fit learns the category set from the given raw cells. Missing cells are
// ignored. Fitting twice is an error: the pipeline fits each variable's
// encoder exactly once, on the training cohort.
func (e *OrdinalEncoder) Fit(values []string) error {
	if e.IsFitted() {
		return errors.NewValueError("OrdinalEncoder.Fit", "encoder is already fitted; transform only")
	}
	seen := make(map[string]bool)
	for _, v := range values {
		if omics.IsMissing(v) {
			continue
		}
		seen[v] = true
	}
	if len(seen) == 0 {
		return errors.NewDataConsistencyError("OrdinalEncoder.Fit", "no non-missing categories to fit")
	}
	e.categories = make([]string, 0, len(seen))
	for v := range seen {
		e.categories = append(e.categories, v)
	}
	sort.Strings(e.categories)
	e.codes = make(map[string]int, len(e.categories))
	for i, v := range e.categories {
		e.codes[v] = i
	}
	e.SetFitted()
	return nil
}

// Transform encodes raw cells with the fitted mapping.
func (e *OrdinalEncoder) Transform(values []string) ([]float64, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("OrdinalEncoder", "Transform")
	}
	out := make([]float64, len(values))
	for i, v := range values {
		switch {
		case omics.IsMissing(v):
			out[i] = math.NaN()
		default:
			code, ok := e.codes[v]
			if !ok {
				code = UnknownCode
			}
			out[i] = float64(code)
		}
	}
	return out, nil
}

// Mapping returns the code -> original label table.
func (e *OrdinalEncoder) Mapping() map[int]string {
	m := make(map[int]string, len(e.categories))
	for i, v := range e.categories {
		m[i] = v
	}
	return m
}

// EncodedAnnotation is the numeric form of a clinical table: one encoded
// vector per variable, the variable kind, and the code -> label tables for
// categorical variables.
type EncodedAnnotation struct {
	Values        map[string][]float64
	VariableTypes map[string]omics.VarType
	LabelMappings map[string]map[int]string
}

// FittedEncoders holds the kind decided for each annotation variable and one
// ordinal encoder per categorical variable. Both are recorded on the first
// EncodeAnnotation call that sees a variable and are frozen afterwards:
// later cohorts reuse the recorded kind and mapping even when their raw
// cells would classify differently, so train and test share the identical
// category -> code assignment and numeric scale.
type FittedEncoders struct {
	kinds    map[string]omics.VarType
	encoders map[string]*OrdinalEncoder
}

// NewFittedEncoders creates an empty encoder registry.
func NewFittedEncoders() *FittedEncoders {
	return &FittedEncoders{
		kinds:    make(map[string]omics.VarType),
		encoders: make(map[string]*OrdinalEncoder),
	}
}

// Encoder returns the fitted encoder for a variable, or nil.
func (fe *FittedEncoders) Encoder(variable string) *OrdinalEncoder {
	return fe.encoders[variable]
}

// EncodeAnnotation encodes every annotation column. Categorical columns go
// through the variable's ordinal encoder; numerical columns are parsed as
// floats with missing cells becoming NaN.
func (fe *FittedEncoders) EncodeAnnotation(ann *omics.Annotation) (*EncodedAnnotation, error) {
	out := &EncodedAnnotation{
		Values:        make(map[string][]float64, len(ann.Columns)),
		VariableTypes: make(map[string]omics.VarType, len(ann.Columns)),
		LabelMappings: make(map[string]map[int]string),
	}
	for _, name := range ann.Columns {
		col, err := ann.Column(name)
		if err != nil {
			return nil, err
		}
		// The kind is decided once, on the first cohort that carries the
		// variable. Later cohorts keep it even when their own cells would
		// classify differently, e.g. a train-numerical stage column whose
		// test cohort contains "3B".
		kind, seen := fe.kinds[name]
		if !seen {
			if kind, err = ann.ColumnType(name); err != nil {
				return nil, err
			}
			fe.kinds[name] = kind
		}

		if kind == omics.Numerical {
			vals := make([]float64, len(col))
			for i, cell := range col {
				if v, ok := omics.ParseValue(cell); ok {
					vals[i] = v
				} else {
					vals[i] = math.NaN()
				}
			}
			out.Values[name] = vals
			out.VariableTypes[name] = omics.Numerical
			continue
		}

		enc, ok := fe.encoders[name]
		if !ok {
			enc = NewOrdinalEncoder()
			if err := enc.Fit(col); err != nil {
				return nil, errors.Wrap(err, "encode variable "+name)
			}
			fe.encoders[name] = enc
		}
		encoded, err := enc.Transform(col)
		if err != nil {
			return nil, err
		}
		out.Values[name] = encoded
		out.VariableTypes[name] = omics.Categorical
		out.LabelMappings[name] = enc.Mapping()
	}
	return out, nil
}
