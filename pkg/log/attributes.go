package log

// Standard attribute keys for pipeline telemetry. Using fixed keys keeps the
// structured logs filterable across stages.
const (
	// LayerKey identifies the omics layer a record refers to.
	// Examples: "gex", "mut", "cnv"
	LayerKey = "omics.layer"

	// CohortKey identifies the cohort split being processed ("train", "test").
	CohortKey = "omics.cohort"

	// OperationKey specifies the pipeline stage being performed.
	// Standard values: "clean", "align", "rank", "harmonize", "normalize",
	// "encode", "concatenate", "export"
	OperationKey = "pipeline.operation"

	// ComponentKey identifies which package is performing the operation.
	// Examples: "preprocessing", "importer", "dataset"
	ComponentKey = "pipeline.component"

	// SamplesKey indicates the number of samples in the data being processed.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features in the data being processed.
	FeaturesKey = "data.features"

	// VariableKey identifies an annotation variable.
	VariableKey = "data.variable"

	// DurationMsKey records the execution time of a stage in milliseconds.
	DurationMsKey = "perf.duration_ms"
)
