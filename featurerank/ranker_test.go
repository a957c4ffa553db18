package featurerank

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/omicsfuse/omicsfuse/omics"
)

func clusterTable(t *testing.T) *omics.Table {
	t.Helper()
	// Six samples in two tight clusters. "smooth" separates the clusters;
	// "noisy" fluctuates within them.
	data := []float64{
		0, 0.1, 0.2, 10, 10.1, 10.2, // smooth
		0, 0.5, 0.0, 0.5, 0.0, 0.5, // noisy
		0.1, 0, 0.2, 9.9, 10.2, 10, // smooth2
	}
	tbl, err := omics.NewTable("gex",
		[]string{"smooth", "noisy", "smooth2"},
		[]string{"s1", "s2", "s3", "s4", "s5", "s6"},
		mat.NewDense(3, 6, data))
	if err != nil {
		t.Fatal(err)
	}
	return tbl
}

func TestLaplacianScoreTopN(t *testing.T) {
	tbl := clusterTable(t)

	got, err := LaplacianScore{}.Rank(tbl, 2)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	for _, id := range got {
		if tbl.FeatureIndex(id) < 0 {
			t.Errorf("ranked id %q not in table", id)
		}
	}
	for _, id := range got {
		if id == "noisy" {
			t.Errorf("noisy feature ranked in top 2: %v", got)
		}
	}
}

func TestLaplacianScoreDeterministic(t *testing.T) {
	tbl := clusterTable(t)

	first, err := LaplacianScore{}.Rank(tbl, 3)
	if err != nil {
		t.Fatal(err)
	}
	second, err := LaplacianScore{}.Rank(tbl, 3)
	if err != nil {
		t.Fatal(err)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("rankings differ: %v vs %v", first, second)
		}
	}
}

func TestLaplacianScoreCapsTopN(t *testing.T) {
	tbl := clusterTable(t)

	got, err := LaplacianScore{}.Rank(tbl, 100)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("len = %d, want all 3 features", len(got))
	}
}

func TestLaplacianScoreRejectsBadInput(t *testing.T) {
	tbl := clusterTable(t)
	if _, err := (LaplacianScore{}).Rank(tbl, 0); err == nil {
		t.Error("topN=0 must error")
	}

	single, err := omics.NewTable("gex", []string{"f"}, []string{"s1"}, mat.NewDense(1, 1, []float64{1}))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := (LaplacianScore{}).Rank(single, 1); err == nil {
		t.Error("single-sample layer must error")
	}
}
