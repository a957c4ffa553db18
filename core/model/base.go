package model

// EstimatorState represents the fitted state of a statistical transform.
type EstimatorState int

const (
	// NotFitted means the transform has not seen training data yet.
	NotFitted EstimatorState = iota
	// Fitted means the transform parameters are frozen and reusable.
	Fitted
)

// BaseEstimator is embedded by every fit-once/apply-many transform in the
// pipeline. Fitting happens exactly once, on the training cohort; the state
// is read-only afterwards.
type BaseEstimator struct {
	state EstimatorState
}

// IsFitted reports whether the transform has been fitted.
func (e *BaseEstimator) IsFitted() bool {
	return e.state == Fitted
}

// SetFitted marks the transform as fitted.
func (e *BaseEstimator) SetFitted() {
	e.state = Fitted
}

// Reset returns the transform to the unfitted state.
func (e *BaseEstimator) Reset() {
	e.state = NotFitted
}
