package errors

import (
	"strings"
	"testing"
)

func TestNotFittedError(t *testing.T) {
	err := NewNotFittedError("StandardScaler", "Transform")

	var nfe *NotFittedError
	if !As(err, &nfe) {
		t.Fatalf("expected NotFittedError, got %T", err)
	}
	if nfe.ModelName != "StandardScaler" || nfe.Method != "Transform" {
		t.Errorf("unexpected fields: %+v", nfe)
	}
	if !strings.Contains(err.Error(), "not fitted") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestDimensionError(t *testing.T) {
	err := NewDimensionError("Apply", 10, 7, 1)

	var de *DimensionError
	if !As(err, &de) {
		t.Fatalf("expected DimensionError, got %T", err)
	}
	if de.Expected != 10 || de.Got != 7 {
		t.Errorf("unexpected fields: %+v", de)
	}
	if !strings.Contains(err.Error(), "features") {
		t.Errorf("axis 1 should report features: %v", err)
	}
}

func TestMissingFilesErrorEnumeratesFiles(t *testing.T) {
	err := NewMissingFilesError("ValidateFolders", []string{"clin.csv", "mut.csv"})

	var ce *ConfigError
	if !As(err, &ce) {
		t.Fatalf("expected ConfigError, got %T", err)
	}
	msg := err.Error()
	for _, f := range []string{"clin.csv", "mut.csv"} {
		if !strings.Contains(msg, f) {
			t.Errorf("message %q does not name missing file %s", msg, f)
		}
	}
}

func TestDataConsistencyError(t *testing.T) {
	err := NewDataConsistencyError("NewTripletDataset", "label 3 has a single sample")

	var dce *DataConsistencyError
	if !As(err, &dce) {
		t.Fatalf("expected DataConsistencyError, got %T", err)
	}
	if dce.Op != "NewTripletDataset" {
		t.Errorf("unexpected op: %s", dce.Op)
	}
}

func TestWrapPreservesType(t *testing.T) {
	inner := NewValueError("Sample", "index out of range")
	wrapped := Wrap(inner, "loading batch")

	var ve *ValueError
	if !As(wrapped, &ve) {
		t.Fatalf("wrapping lost the ValueError type")
	}
}

func TestWarnUsesHandler(t *testing.T) {
	var got error
	SetWarningHandler(func(w error) { got = w })
	defer SetWarningHandler(nil)

	w := NewDegenerateDataWarning("RemoveBatchVariables", "batch_id", "all values missing")
	Warn(w)

	if got == nil || !strings.Contains(got.Error(), "batch_id") {
		t.Errorf("handler did not receive warning: %v", got)
	}
}
