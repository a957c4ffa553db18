// Package omicsfuse turns paired train/test folders of omics CSV matrices
// and clinical tables into harmonized, normalized, ML-ready datasets.
//
// The pipeline cleans features and samples per layer, ranks and selects
// features on the training cohort, restricts both cohorts to the shared
// feature set, normalizes with parameters fitted on the training cohort
// only, and encodes clinical labels with mappings shared across cohorts.
// The resulting datasets support indexed sample access, early-fusion
// concatenation, and anchor/positive/negative triplet sampling.
//
// Entry points: importer.DataImporter runs the pipeline, dataset.MultiOmic
// holds its output, and cmd/omicsfuse wraps both in a CLI.
package omicsfuse
