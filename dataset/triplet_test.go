package dataset

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/omicsfuse/omicsfuse/omics"
)

func tripletTestDataset(t *testing.T, labels []float64) *MultiOmic {
	t.Helper()
	n := len(labels)
	data := make([]float64, n)
	for i := range data {
		// Unique value per sample so triplet members can be identified.
		data[i] = float64(i)
	}
	ds, err := New(
		map[string]*mat.Dense{"gex": mat.NewDense(n, 1, data)},
		map[string][]float64{"response": labels},
		map[string]omics.VarType{"response": omics.Categorical},
		map[string][]string{"gex": {"g1"}},
		sampleNames(n),
		map[string]map[int]string{"response": {0: "CR", 1: "PD"}},
	)
	if err != nil {
		t.Fatal(err)
	}
	return ds
}

func sampleNames(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "s" + string(rune('a'+i))
	}
	return out
}

func TestTripletInvariants(t *testing.T) {
	labels := []float64{0, 0, 0, 1, 1, 2, 2, 2}
	ds := tripletTestDataset(t, labels)

	td, err := NewTripletDataset(ds, "response")
	if err != nil {
		t.Fatalf("NewTripletDataset: %v", err)
	}
	if td.Len() != len(labels) {
		t.Fatalf("Len = %d", td.Len())
	}

	for trial := 0; trial < 50; trial++ {
		for i := range labels {
			tr, err := td.Get(i)
			if err != nil {
				t.Fatalf("Get(%d): %v", i, err)
			}
			anchorID := int(tr.Anchor["gex"][0])
			posID := int(tr.Positive["gex"][0])
			negID := int(tr.Negative["gex"][0])

			if anchorID != i {
				t.Fatalf("anchor is sample %d, want %d", anchorID, i)
			}
			if posID == i {
				t.Fatal("positive equals anchor")
			}
			if labels[posID] != labels[i] {
				t.Fatalf("positive label %v != anchor label %v", labels[posID], labels[i])
			}
			if labels[negID] == labels[i] {
				t.Fatalf("negative shares anchor label %v", labels[i])
			}
			if tr.Label["response"] != labels[i] {
				t.Fatalf("annotation row label = %v, want %v", tr.Label["response"], labels[i])
			}
		}
	}
}

func TestTripletSingletonLabelFails(t *testing.T) {
	ds := tripletTestDataset(t, []float64{0, 0, 1, 1, 2})
	if _, err := NewTripletDataset(ds, "response"); err == nil {
		t.Error("singleton label must fail construction")
	}
}

func TestTripletSingleLabelFails(t *testing.T) {
	ds := tripletTestDataset(t, []float64{0, 0, 0, 0})
	if _, err := NewTripletDataset(ds, "response"); err == nil {
		t.Error("single distinct label must fail construction")
	}
}

func TestTripletUnknownOrNumericVariableFails(t *testing.T) {
	ds := tripletTestDataset(t, []float64{0, 0, 1, 1})
	if _, err := NewTripletDataset(ds, "nope"); err == nil {
		t.Error("unknown variable must fail")
	}

	ds.VariableTypes["response"] = omics.Numerical
	if _, err := NewTripletDataset(ds, "response"); err == nil {
		t.Error("numerical main variable must fail")
	}
}

func TestTripletMissingAnchorLabel(t *testing.T) {
	labels := []float64{0, 0, 1, 1, math.NaN()}
	ds := tripletTestDataset(t, labels)

	td, err := NewTripletDataset(ds, "response")
	if err != nil {
		t.Fatalf("NewTripletDataset: %v", err)
	}
	if _, err := td.Get(4); err == nil {
		t.Error("anchor with missing label must fail")
	}
}

func TestFixedTripletsReplay(t *testing.T) {
	labels := []float64{0, 0, 1, 1, 1, 0}
	ds := tripletTestDataset(t, labels)

	a, err := NewFixedTripletDataset(ds, "response", 42)
	if err != nil {
		t.Fatalf("NewFixedTripletDataset: %v", err)
	}
	b, err := NewFixedTripletDataset(ds, "response", 42)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < len(labels); i++ {
		ta, err := a.Get(i)
		if err != nil {
			t.Fatal(err)
		}
		// Replaying the same index yields the same triplet.
		ta2, err := a.Get(i)
		if err != nil {
			t.Fatal(err)
		}
		tb, err := b.Get(i)
		if err != nil {
			t.Fatal(err)
		}
		if ta.Positive["gex"][0] != ta2.Positive["gex"][0] || ta.Negative["gex"][0] != ta2.Negative["gex"][0] {
			t.Fatalf("index %d not stable within one dataset", i)
		}
		if ta.Positive["gex"][0] != tb.Positive["gex"][0] || ta.Negative["gex"][0] != tb.Negative["gex"][0] {
			t.Fatalf("index %d differs across same-seed datasets", i)
		}
		// Invariants hold in eval mode too.
		if int(ta.Positive["gex"][0]) == i {
			t.Fatalf("index %d: positive equals anchor", i)
		}
		if labels[int(ta.Negative["gex"][0])] == labels[i] {
			t.Fatalf("index %d: negative shares anchor label", i)
		}
	}
}

func TestFixedTripletsRejectMissingLabels(t *testing.T) {
	ds := tripletTestDataset(t, []float64{0, 0, 1, 1, math.NaN()})
	if _, err := NewFixedTripletDataset(ds, "response", 7); err == nil {
		t.Error("missing label must fail eval-mode construction")
	}
}
