package preprocessing

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/omicsfuse/omicsfuse/core/model"
	"github.com/omicsfuse/omicsfuse/pkg/errors"
)

// StandardScaler scales each feature to zero mean and unit variance.
// Zero-variance features keep scale 1 so transformed values stay finite.
type StandardScaler struct {
	model.BaseEstimator

	// Mean holds the per-feature mean learned on the training data.
	Mean []float64
	// Scale holds the per-feature standard deviation learned on the
	// training data.
	Scale []float64
	// NFeatures is the fitted feature count.
	NFeatures int
}

// NewStandardScaler creates an unfitted StandardScaler.
func NewStandardScaler() *StandardScaler {
	return &StandardScaler{}
}

// Fit learns per-feature mean and standard deviation from X
// (samples x features).
func (s *StandardScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.Wrap(errors.ErrEmptyData, "StandardScaler.Fit")
	}

	s.NFeatures = c
	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)

	for j := 0; j < c; j++ {
		sum := 0.0
		for i := 0; i < r; i++ {
			sum += X.At(i, j)
		}
		mean := sum / float64(r)

		sumSq := 0.0
		for i := 0; i < r; i++ {
			d := X.At(i, j) - mean
			sumSq += d * d
		}
		sd := math.Sqrt(sumSq / float64(r))
		if sd < 1e-8 {
			sd = 1.0
		}

		s.Mean[j] = mean
		s.Scale[j] = sd
	}

	s.SetFitted()
	return nil
}

// Transform standardizes X using the fitted parameters.
func (s *StandardScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("StandardScaler", "Transform")
	}
	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, errors.NewDimensionError("StandardScaler.Transform", s.NFeatures, c, 1)
	}

	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, (X.At(i, j)-s.Mean[j])/s.Scale[j])
		}
	}
	return out, nil
}

// FitTransform fits on X and transforms it.
func (s *StandardScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// MinMaxScaler rescales each feature to [0, 1] based on the training
// minimum and maximum. Constant features keep scale 1.
type MinMaxScaler struct {
	model.BaseEstimator

	// DataMin holds the per-feature minimum learned on the training data.
	DataMin []float64
	// Scale holds the per-feature range (max - min) learned on the
	// training data.
	Scale []float64
	// NFeatures is the fitted feature count.
	NFeatures int
}

// NewMinMaxScaler creates an unfitted MinMaxScaler.
func NewMinMaxScaler() *MinMaxScaler {
	return &MinMaxScaler{}
}

// Fit learns per-feature minimum and range from X (samples x features).
func (m *MinMaxScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.Wrap(errors.ErrEmptyData, "MinMaxScaler.Fit")
	}

	m.NFeatures = c
	m.DataMin = make([]float64, c)
	m.Scale = make([]float64, c)

	for j := 0; j < c; j++ {
		lo, hi := X.At(0, j), X.At(0, j)
		for i := 1; i < r; i++ {
			v := X.At(i, j)
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		m.DataMin[j] = lo
		rng := hi - lo
		if math.Abs(rng) < 1e-8 {
			rng = 1.0
		}
		m.Scale[j] = rng
	}

	m.SetFitted()
	return nil
}

// Transform rescales X using the fitted parameters.
func (m *MinMaxScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !m.IsFitted() {
		return nil, errors.NewNotFittedError("MinMaxScaler", "Transform")
	}
	r, c := X.Dims()
	if c != m.NFeatures {
		return nil, errors.NewDimensionError("MinMaxScaler.Transform", m.NFeatures, c, 1)
	}

	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, (X.At(i, j)-m.DataMin[j])/m.Scale[j])
		}
	}
	return out, nil
}

// FitTransform fits on X and transforms it.
func (m *MinMaxScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := m.Fit(X); err != nil {
		return nil, err
	}
	return m.Transform(X)
}

var (
	_ model.Transformer = (*StandardScaler)(nil)
	_ model.Transformer = (*MinMaxScaler)(nil)
)
