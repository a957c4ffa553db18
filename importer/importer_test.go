package importer

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/omicsfuse/omicsfuse/dataset"
	"github.com/omicsfuse/omicsfuse/omics"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0777); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0666); err != nil {
		t.Fatal(err)
	}
}

// writeStudy lays out a two-layer study. The train gex layer carries a
// constant feature (dropped by cleaning), a missing cell (imputed), and a
// sample absent from the clinical table (dropped by alignment). The test gex
// layer shares only g1 and g2 with train, so harmonization must shrink both
// cohorts to those.
func writeStudy(t *testing.T, dir string) {
	t.Helper()
	writeFile(t, filepath.Join(dir, "train", "gex.csv"),
		",s1,s2,s3,s4,s5\n"+
			"g0,5,5,5,5,5\n"+
			"g1,1,2,3,4,2\n"+
			"g2,5,NA,2,9,4\n"+
			"g3,2,8,7,1,6\n"+
			"g4,6,4,9,2,3\n")
	writeFile(t, filepath.Join(dir, "train", "mut.csv"),
		",s1,s2,s3,s4,s5\n"+
			"m1,0,1,0,1,1\n"+
			"m2,1,0,1,1,0\n"+
			"m3,0,0,1,0,1\n")
	writeFile(t, filepath.Join(dir, "train", "clin.csv"),
		",response,age\n"+
			"s1,CR,61\n"+
			"s2,PD,59\n"+
			"s3,CR,70\n"+
			"s4,PD,44\n")

	writeFile(t, filepath.Join(dir, "test", "gex.csv"),
		",t1,t2,t3\n"+
			"g1,2,4,6\n"+
			"g2,1,3,8\n"+
			"g5,7,7,2\n")
	writeFile(t, filepath.Join(dir, "test", "mut.csv"),
		",t1,t2,t3\n"+
			"m1,1,0,1\n"+
			"m2,0,1,1\n"+
			"m3,1,1,0\n")
	writeFile(t, filepath.Join(dir, "test", "clin.csv"),
		",response,age\n"+
			"t1,PD,50\n"+
			"t2,SD,66\n"+
			"t3,CR,39\n")
}

func studyConfig() Config {
	return Config{
		DataTypes:     []string{"gex", "mut"},
		MinFeatures:   1,
		TopPercentile: 100,
		NAThreshold:   0.5,
	}
}

func TestImportEndToEnd(t *testing.T) {
	dir := t.TempDir()
	writeStudy(t, dir)

	di, err := New(dir, studyConfig())
	if err != nil {
		t.Fatal(err)
	}
	train, test, err := di.Import()
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	// s5 has no clinical row and must be gone.
	wantSamples := []string{"s1", "s2", "s3", "s4"}
	if len(train.Samples) != len(wantSamples) {
		t.Fatalf("train samples = %v", train.Samples)
	}
	for i, id := range wantSamples {
		if train.Samples[i] != id {
			t.Fatalf("train samples = %v, want %v", train.Samples, wantSamples)
		}
	}

	// Harmonized gex features: constant g0 cleaned away, g3/g4 absent from
	// test, g5 absent from train. Order follows the training cohort.
	wantGex := []string{"g1", "g2"}
	for _, ds := range []*dataset.MultiOmic{train, test} {
		if len(ds.Features["gex"]) != 2 || ds.Features["gex"][0] != "g1" || ds.Features["gex"][1] != "g2" {
			t.Fatalf("gex features = %v, want %v", ds.Features["gex"], wantGex)
		}
		if len(ds.Features["mut"]) != 3 {
			t.Fatalf("mut features = %v", ds.Features["mut"])
		}
	}

	// Train columns are standard scaled: mean zero, no NaN left after
	// imputation.
	gex := train.Dat["gex"]
	r, c := gex.Dims()
	for j := 0; j < c; j++ {
		var sum float64
		for i := 0; i < r; i++ {
			v := gex.At(i, j)
			if math.IsNaN(v) {
				t.Fatalf("NaN in train gex column %d", j)
			}
			sum += v
		}
		if math.Abs(sum/float64(r)) > 1e-9 {
			t.Errorf("train gex column %d mean = %v, want 0", j, sum/float64(r))
		}
	}

	// Test is scaled with the training parameters, not refit: g1 raw values
	// (2,4,6) against train mean 2.5 and population std sqrt(1.25).
	sd := math.Sqrt(1.25)
	if got, want := test.Dat["gex"].At(0, 0), (2-2.5)/sd; math.Abs(got-want) > 1e-9 {
		t.Errorf("test gex[0,0] = %v, want %v", got, want)
	}
	var testMean float64
	for i := 0; i < 3; i++ {
		testMean += test.Dat["gex"].At(i, 0) / 3
	}
	if math.Abs(testMean) < 0.1 {
		t.Error("test column mean is zero; scaler was refit on the test cohort")
	}

	// Label codes are fitted on train (CR=0, PD=1) and reused on test, with
	// the unseen SD mapping to the unknown sentinel.
	wantTrainResp := []float64{0, 1, 0, 1}
	for i, want := range wantTrainResp {
		if got := train.Ann["response"][i]; got != want {
			t.Fatalf("train response = %v, want %v", train.Ann["response"], wantTrainResp)
		}
	}
	wantTestResp := []float64{1, -1, 0}
	for i, want := range wantTestResp {
		if got := test.Ann["response"][i]; got != want {
			t.Fatalf("test response = %v, want %v", test.Ann["response"], wantTestResp)
		}
	}
	if train.VariableTypes["age"] != omics.Numerical {
		t.Errorf("age type = %v", train.VariableTypes["age"])
	}
	if train.LabelMappings["response"][1] != "PD" {
		t.Errorf("label mapping = %v", train.LabelMappings["response"])
	}

	// Fitted state stays on the importer after the run.
	if di.Scalers() == nil || di.Scalers().Scaler("gex") == nil {
		t.Error("fitted gex scaler not retained")
	}
	if di.Encoders() == nil || di.Encoders().Encoder("response") == nil {
		t.Error("fitted response encoder not retained")
	}
}

func TestImportConcatenate(t *testing.T) {
	dir := t.TempDir()
	writeStudy(t, dir)

	cfg := studyConfig()
	cfg.Concatenate = true
	di, err := New(dir, cfg)
	if err != nil {
		t.Fatal(err)
	}
	train, test, err := di.Import()
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	for _, ds := range []*dataset.MultiOmic{train, test} {
		if len(ds.Dat) != 1 {
			t.Fatalf("layers = %v, want fused only", ds.LayerNames())
		}
		// 2 gex + 3 mut features.
		if _, cols := ds.Dat[dataset.FusedLayer].Dims(); cols != 5 {
			t.Fatalf("fused width = %d, want 5", cols)
		}
		if ds.Features[dataset.FusedLayer][0] != "gex_g1" {
			t.Errorf("fused features = %v", ds.Features[dataset.FusedLayer])
		}
	}
}

func TestImportMissingFilesFailsEarly(t *testing.T) {
	dir := t.TempDir()
	writeStudy(t, dir)
	if err := os.Remove(filepath.Join(dir, "test", "mut.csv")); err != nil {
		t.Fatal(err)
	}

	di, err := New(dir, studyConfig())
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := di.Import(); err == nil {
		t.Error("missing layer file must fail validation")
	}
}

func TestImportFeatureSelectionFloor(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "train", "gex.csv"),
		",s1,s2,s3,s4\n"+
			"g1,1,2,3,4\n"+
			"g2,4,1,3,2\n"+
			"g3,2,3,1,5\n"+
			"g4,5,4,2,1\n"+
			"g5,1,5,2,3\n"+
			"g6,3,2,5,1\n")
	writeFile(t, filepath.Join(dir, "train", "clin.csv"),
		",response\ns1,A\ns2,B\ns3,A\ns4,B\n")
	writeFile(t, filepath.Join(dir, "test", "gex.csv"),
		",t1,t2\n"+
			"g1,1,3\n"+
			"g2,2,5\n"+
			"g3,6,1\n"+
			"g4,2,4\n"+
			"g5,5,2\n"+
			"g6,1,6\n")
	writeFile(t, filepath.Join(dir, "test", "clin.csv"),
		",response\nt1,A\nt2,B\n")

	// floor(6 * 50%) = 3 is below the floor of 4, so 4 features survive.
	di, err := New(dir, Config{
		DataTypes:     []string{"gex"},
		MinFeatures:   4,
		TopPercentile: 50,
		NAThreshold:   0.5,
	})
	if err != nil {
		t.Fatal(err)
	}
	train, test, err := di.Import()
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if got := len(train.Features["gex"]); got != 4 {
		t.Fatalf("train gex features = %d, want 4", got)
	}
	if got := len(test.Features["gex"]); got != 4 {
		t.Fatalf("test gex features = %d, want 4", got)
	}
	for i := range train.Features["gex"] {
		if train.Features["gex"][i] != test.Features["gex"][i] {
			t.Fatal("train and test feature order diverged")
		}
	}
}

func TestImportReportsTrainCohortFirst(t *testing.T) {
	// Both cohorts fail cleaning (every feature is constant); the train
	// cohort's error must surface, on every run.
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "train", "gex.csv"),
		",s1,s2\ng1,5,5\ng2,3,3\n")
	writeFile(t, filepath.Join(dir, "train", "clin.csv"),
		",response\ns1,A\ns2,B\n")
	writeFile(t, filepath.Join(dir, "test", "gex.csv"),
		",t1,t2\ng1,7,7\ng2,4,4\n")
	writeFile(t, filepath.Join(dir, "test", "clin.csv"),
		",response\nt1,A\nt2,B\n")

	di, err := New(dir, Config{
		DataTypes:     []string{"gex"},
		TopPercentile: 100,
		NAThreshold:   0.5,
	})
	if err != nil {
		t.Fatal(err)
	}
	for trial := 0; trial < 5; trial++ {
		_, _, err := di.Import()
		if err == nil {
			t.Fatal("constant-only layers must fail cleaning")
		}
		if !strings.Contains(err.Error(), "train") {
			t.Fatalf("error blames %q, want the train cohort first", err)
		}
	}
}

func TestConfigValidation(t *testing.T) {
	bad := []Config{
		{DataTypes: nil, TopPercentile: 100, NAThreshold: 0.5},
		{DataTypes: []string{"gex"}, TopPercentile: 0, NAThreshold: 0.5},
		{DataTypes: []string{"gex"}, TopPercentile: 101, NAThreshold: 0.5},
		{DataTypes: []string{"gex"}, TopPercentile: 100, NAThreshold: 0},
		{DataTypes: []string{"gex"}, TopPercentile: 100, NAThreshold: 0.5, MinFeatures: -1},
	}
	for i, cfg := range bad {
		if _, err := New(t.TempDir(), cfg); err == nil {
			t.Errorf("config %d must fail validation", i)
		}
	}
}

func TestParseScalerKind(t *testing.T) {
	if k, err := ParseScalerKind("standard"); err != nil || k != ScalerStandard {
		t.Errorf("standard: %v, %v", k, err)
	}
	if k, err := ParseScalerKind("min-max"); err != nil || k != ScalerMinMax {
		t.Errorf("min-max: %v, %v", k, err)
	}
	if _, err := ParseScalerKind("robust"); err == nil {
		t.Error("unknown kind must fail")
	}
}

func TestHarmonizeNoOverlap(t *testing.T) {
	trainTbl, err := omics.NewTable("gex", []string{"g1"}, []string{"s1", "s2"},
		mat.NewDense(1, 2, []float64{1, 2}))
	if err != nil {
		t.Fatal(err)
	}
	testTbl, err := omics.NewTable("gex", []string{"g9"}, []string{"t1", "t2"},
		mat.NewDense(1, 2, []float64{3, 4}))
	if err != nil {
		t.Fatal(err)
	}
	train := &omics.Cohort{Tables: map[string]*omics.Table{"gex": trainTbl}}
	test := &omics.Cohort{Tables: map[string]*omics.Table{"gex": testTbl}}
	if err := Harmonize(train, test); err == nil {
		t.Error("empty feature intersection must fail")
	}
}

func TestLog1pRejectsOutOfDomain(t *testing.T) {
	tbl, err := omics.NewTable("gex", []string{"g1"}, []string{"s1", "s2"},
		mat.NewDense(1, 2, []float64{0.5, -2}))
	if err != nil {
		t.Fatal(err)
	}
	cohort := &omics.Cohort{Tables: map[string]*omics.Table{"gex": tbl}}
	if err := Log1pCohort(cohort); err == nil {
		t.Error("log1p of -2 must fail")
	}
}

func TestLog1pValues(t *testing.T) {
	tbl, err := omics.NewTable("gex", []string{"g1"}, []string{"s1", "s2"},
		mat.NewDense(1, 2, []float64{0, math.E - 1}))
	if err != nil {
		t.Fatal(err)
	}
	cohort := &omics.Cohort{Tables: map[string]*omics.Table{"gex": tbl}}
	if err := Log1pCohort(cohort); err != nil {
		t.Fatal(err)
	}
	if got := tbl.M.At(0, 0); got != 0 {
		t.Errorf("log1p(0) = %v", got)
	}
	if got := tbl.M.At(0, 1); math.Abs(got-1) > 1e-12 {
		t.Errorf("log1p(e-1) = %v, want 1", got)
	}
}
