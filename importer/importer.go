// Package importer orchestrates the end-to-end import of a multi-omic study:
// folder validation, cohort loading, cleanup, sample alignment, feature
// selection, cross-cohort harmonization, normalization, label encoding, and
// assembly into ML-ready datasets. All data-dependent parameters are learned
// on the training cohort and applied unchanged to the testing cohort.
package importer

import (
	"log/slog"
	"math"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/omicsfuse/omicsfuse/dataset"
	"github.com/omicsfuse/omicsfuse/featurerank"
	"github.com/omicsfuse/omicsfuse/omics"
	"github.com/omicsfuse/omicsfuse/pkg/errors"
	"github.com/omicsfuse/omicsfuse/pkg/log"
	"github.com/omicsfuse/omicsfuse/preprocessing"
)

// Default cohort folder names under the study path.
const (
	TrainFolder = "train"
	TestFolder  = "test"
)

// Config holds the import parameters.
type Config struct {
	// DataTypes names the omic layers to load, e.g. ["gex", "cnv"]. A file
	// <layer>.csv (or .csv.gz) must exist in both cohort folders.
	DataTypes []string

	// MinFeatures is the floor on features kept per layer during selection.
	MinFeatures int
	// TopPercentile keeps the best TopPercentile percent of features per
	// layer, subject to the MinFeatures floor. 100 disables selection.
	TopPercentile float64

	// VarianceThreshold drops features whose variance is at or below it.
	VarianceThreshold float64
	// NAThreshold drops features whose missing fraction is at or above it.
	NAThreshold float64

	// LogTransform applies log(1+x) to every layer of both cohorts.
	LogTransform bool
	// Concatenate fuses all layers into one wide layer after import.
	Concatenate bool

	// Scaler selects the normalization fitted on train and applied to both.
	Scaler ScalerKind
}

func (c *Config) validate() error {
	if len(c.DataTypes) == 0 {
		return errors.NewConfigError("Config", "at least one data type is required")
	}
	if c.TopPercentile <= 0 || c.TopPercentile > 100 {
		return errors.NewConfigError("Config", "top percentile must be in (0, 100]")
	}
	if c.MinFeatures < 0 {
		return errors.NewConfigError("Config", "min features must not be negative")
	}
	if c.NAThreshold <= 0 || c.NAThreshold > 1 {
		return errors.NewConfigError("Config", "NA threshold must be in (0, 1]")
	}
	return nil
}

// DataImporter runs the import pipeline for one study folder containing
// train/ and test/ cohort subfolders.
type DataImporter struct {
	path   string
	config Config
	ranker featurerank.Ranker

	// Fitted on the training cohort during Import, read-only afterwards.
	scalers  *FittedScalers
	encoders *preprocessing.FittedEncoders
}

// Scalers returns the per-layer scalers fitted by the last Import, or nil.
func (di *DataImporter) Scalers() *FittedScalers {
	return di.scalers
}

// Encoders returns the label encoders fitted by the last Import, or nil.
func (di *DataImporter) Encoders() *preprocessing.FittedEncoders {
	return di.encoders
}

// Option customizes a DataImporter.
type Option func(*DataImporter)

// WithRanker replaces the feature ranking strategy used during selection.
func WithRanker(r featurerank.Ranker) Option {
	return func(di *DataImporter) {
		di.ranker = r
	}
}

// New creates a DataImporter for the study at path.
func New(path string, config Config, opts ...Option) (*DataImporter, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	di := &DataImporter{
		path:   path,
		config: config,
		ranker: featurerank.LaplacianScore{},
	}
	for _, opt := range opts {
		opt(di)
	}
	return di, nil
}

// Import runs the full pipeline and returns the train and test datasets.
func (di *DataImporter) Import() (train, test *dataset.MultiOmic, err error) {
	start := time.Now()
	trainDir := filepath.Join(di.path, TrainFolder)
	testDir := filepath.Join(di.path, TestFolder)

	if err := omics.ValidateFolders(trainDir, testDir, di.config.DataTypes); err != nil {
		return nil, nil, err
	}

	trainCohort, err := omics.ReadCohort(trainDir, di.config.DataTypes)
	if err != nil {
		return nil, nil, err
	}
	testCohort, err := omics.ReadCohort(testDir, di.config.DataTypes)
	if err != nil {
		return nil, nil, err
	}

	cleaner := preprocessing.Cleaner{
		VarianceThreshold: di.config.VarianceThreshold,
		NAThreshold:       di.config.NAThreshold,
	}
	// Train first, then test, so failures surface in a fixed order.
	cohorts := []struct {
		name   string
		cohort *omics.Cohort
	}{
		{"train", trainCohort},
		{"test", testCohort},
	}
	for _, c := range cohorts {
		if err := cleaner.CleanCohort(c.cohort); err != nil {
			return nil, nil, errors.Wrap(err, "clean "+c.name+" cohort")
		}
		if err := alignSamples(c.cohort); err != nil {
			return nil, nil, errors.Wrap(err, "align "+c.name+" cohort")
		}
	}

	// Feature selection ranks on the training cohort only; harmonization then
	// propagates the surviving set to the testing cohort.
	if err := di.filterFeatures(trainCohort); err != nil {
		return nil, nil, err
	}
	if err := Harmonize(trainCohort, testCohort); err != nil {
		return nil, nil, err
	}

	if di.config.LogTransform {
		if err := Log1pCohort(trainCohort); err != nil {
			return nil, nil, err
		}
		if err := Log1pCohort(testCohort); err != nil {
			return nil, nil, err
		}
	}

	scalers, err := FitScalers(trainCohort, di.config.Scaler)
	if err != nil {
		return nil, nil, err
	}
	if err := scalers.Apply(testCohort); err != nil {
		return nil, nil, err
	}
	di.scalers = scalers

	// The first EncodeAnnotation call fits the per-variable encoders; the
	// second reuses them, so both cohorts share one category -> code mapping.
	encoders := preprocessing.NewFittedEncoders()
	di.encoders = encoders
	trainEnc, err := encoders.EncodeAnnotation(trainCohort.Ann)
	if err != nil {
		return nil, nil, err
	}
	testEnc, err := encoders.EncodeAnnotation(testCohort.Ann)
	if err != nil {
		return nil, nil, err
	}

	train, err = buildDataset(trainCohort, trainEnc)
	if err != nil {
		return nil, nil, err
	}
	test, err = buildDataset(testCohort, testEnc)
	if err != nil {
		return nil, nil, err
	}

	if di.config.Concatenate {
		train.Concatenate()
		test.Concatenate()
	}

	slog.Info("import finished",
		log.OperationKey, "import",
		log.SamplesKey, train.Len(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return train, test, nil
}

// alignSamples restricts a cohort to the samples present in every layer and
// in the clinical table, ordered by the first layer's column order.
func alignSamples(cohort *omics.Cohort) error {
	layers := cohort.LayerNames()
	if len(layers) == 0 {
		return errors.NewDataConsistencyError("alignSamples", "cohort has no layers")
	}

	var keep []string
	for _, id := range cohort.Tables[layers[0]].Samples {
		if !cohort.Ann.Has(id) {
			continue
		}
		inAll := true
		for _, name := range layers[1:] {
			if cohort.Tables[name].SampleIndex(id) < 0 {
				inAll = false
				break
			}
		}
		if inAll {
			keep = append(keep, id)
		}
	}
	if len(keep) == 0 {
		return errors.NewDataConsistencyError("alignSamples",
			"no samples shared by all layers and the clinical table")
	}

	for _, name := range layers {
		sub, err := cohort.Tables[name].SelectSamples(keep)
		if err != nil {
			return err
		}
		cohort.Tables[name] = sub
	}
	ann, err := cohort.Ann.SelectSamples(keep)
	if err != nil {
		return err
	}
	cohort.Ann = ann

	slog.Debug("aligned cohort samples", log.SamplesKey, len(keep))
	return nil
}

// filterFeatures keeps the top-ranked features of each training layer. The
// kept count is the larger of MinFeatures and TopPercentile percent of the
// layer's features, never more than the layer has.
func (di *DataImporter) filterFeatures(cohort *omics.Cohort) error {
	for _, name := range cohort.LayerNames() {
		tbl := cohort.Tables[name]
		nf, _ := tbl.Dims()

		topN := int(math.Floor(float64(nf) * di.config.TopPercentile / 100))
		if topN < di.config.MinFeatures {
			topN = di.config.MinFeatures
		}
		if topN >= nf {
			continue
		}

		keep, err := di.ranker.Rank(tbl, topN)
		if err != nil {
			return errors.Wrap(err, "rank layer "+name)
		}
		sub, err := tbl.SelectFeatures(keep)
		if err != nil {
			return err
		}
		cohort.Tables[name] = sub

		slog.Debug("selected features",
			log.LayerKey, name,
			log.FeaturesKey, topN,
		)
	}
	return nil
}

// buildDataset converts a processed cohort into the sample-major MultiOmic
// container.
func buildDataset(cohort *omics.Cohort, enc *preprocessing.EncodedAnnotation) (*dataset.MultiOmic, error) {
	layers := cohort.LayerNames()
	if len(layers) == 0 {
		return nil, errors.NewDataConsistencyError("buildDataset", "cohort has no layers")
	}
	samples := append([]string(nil), cohort.Tables[layers[0]].Samples...)

	dat := make(map[string]*mat.Dense, len(layers))
	features := make(map[string][]string, len(layers))
	for _, name := range layers {
		tbl := cohort.Tables[name]
		dat[name] = mat.DenseCopyOf(tbl.M.T())
		features[name] = append([]string(nil), tbl.Features...)
	}

	return dataset.New(dat, enc.Values, enc.VariableTypes, features, samples, enc.LabelMappings)
}
