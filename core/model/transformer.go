package model

import "gonum.org/v1/gonum/mat"

// Transformer is the interface shared by all fitted matrix transforms.
// Fit learns parameters from training data; Transform applies the frozen
// parameters without refitting.
type Transformer interface {
	// Fit learns the transform parameters from X (samples x features).
	Fit(X mat.Matrix) error

	// Transform applies the fitted parameters to X.
	Transform(X mat.Matrix) (mat.Matrix, error)

	// FitTransform fits on X and transforms it in one call.
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}
