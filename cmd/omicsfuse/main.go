// Command omicsfuse imports a multi-omic study (train/test cohort folders of
// CSV matrices plus clinical tables) and writes harmonized, normalized,
// ML-ready numpy exports.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/omicsfuse/omicsfuse/importer"
	"github.com/omicsfuse/omicsfuse/omics"
	pkgerrors "github.com/omicsfuse/omicsfuse/pkg/errors"
	"github.com/omicsfuse/omicsfuse/pkg/log"
	"github.com/omicsfuse/omicsfuse/preprocessing"
)

func ImportCommand() *cobra.Command {
	var dataPath string
	var outDir string
	var dataTypes []string
	var scalerName string
	var batchVariable string
	var targetVariables []string
	var miThreshold float64
	var config importer.Config

	var cmd = &cobra.Command{
		Use:   "import -d studyDir -o outputDir -t gex,cnv",
		Short: "Runs the import pipeline on a study folder and exports the harmonized datasets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scaler, err := importer.ParseScalerKind(scalerName)
			if err != nil {
				return err
			}
			config.DataTypes = dataTypes
			config.Scaler = scaler

			di, err := importer.New(dataPath, config)
			if err != nil {
				return err
			}
			train, test, err := di.Import()
			if err != nil {
				return err
			}

			if batchVariable != "" {
				// The drop decision is made on the training cohort only and
				// replayed on test, so both keep the same annotation schema.
				trainEnc := &preprocessing.EncodedAnnotation{
					Values:        train.Ann,
					VariableTypes: train.VariableTypes,
					LabelMappings: train.LabelMappings,
				}
				dropped, err := importer.RemoveBatchVariables(trainEnc, batchVariable, targetVariables, miThreshold)
				if err != nil {
					return err
				}
				testEnc := &preprocessing.EncodedAnnotation{
					Values:        test.Ann,
					VariableTypes: test.VariableTypes,
					LabelMappings: test.LabelMappings,
				}
				importer.DropVariables(testEnc, dropped)
				for _, name := range dropped {
					fmt.Fprintf(cmd.ErrOrStderr(), "dropped batch-associated variable %s\n", name)
				}
			}

			if err := importer.ExportNumpy(train, outDir+"/train"); err != nil {
				return err
			}
			return importer.ExportNumpy(test, outDir+"/test")
		},
	}

	cmd.Flags().StringVarP(&dataPath, "data", "d", "", "study folder holding train/ and test/ cohorts")
	cmd.Flags().StringVarP(&outDir, "output", "o", "", "folder to write the numpy exports to")
	cmd.Flags().StringSliceVarP(&dataTypes, "data-types", "t", nil, "omic layers to import, e.g. gex,cnv")
	cmd.Flags().IntVarP(&config.MinFeatures, "min-features", "", 500, "minimum features kept per layer")
	cmd.Flags().Float64VarP(&config.TopPercentile, "top-percentile", "", 20, "percent of top-ranked features kept per layer")
	cmd.Flags().Float64VarP(&config.VarianceThreshold, "variance-threshold", "", 0, "drop features with variance at or below this")
	cmd.Flags().Float64VarP(&config.NAThreshold, "na-threshold", "", 0.1, "drop features with a missing fraction at or above this")
	cmd.Flags().BoolVarP(&config.LogTransform, "log-transform", "", false, "apply log(1+x) to every layer")
	cmd.Flags().BoolVarP(&config.Concatenate, "concatenate", "", false, "fuse all layers into one wide layer")
	cmd.Flags().StringVarP(&scalerName, "scaler", "", "standard", "normalization: standard or min-max")
	cmd.Flags().StringVarP(&batchVariable, "batch-variable", "", "", "drop clinical variables associated with this batch variable")
	cmd.Flags().StringSliceVarP(&targetVariables, "target-variables", "", nil, "clinical variables to keep regardless of batch association")
	cmd.Flags().Float64VarP(&miThreshold, "mi-threshold", "", 0.1, "mutual information threshold for batch association")

	_ = cmd.MarkFlagRequired("data")
	_ = cmd.MarkFlagRequired("output")
	_ = cmd.MarkFlagRequired("data-types")

	return cmd
}

func ValidateCommand() *cobra.Command {
	var dataPath string
	var dataTypes []string

	var cmd = &cobra.Command{
		Use:   "validate -d studyDir -t gex,cnv",
		Short: "Checks that both cohort folders contain every required file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			trainDir := dataPath + "/" + importer.TrainFolder
			testDir := dataPath + "/" + importer.TestFolder
			if err := omics.ValidateFolders(trainDir, testDir, dataTypes); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}

	cmd.Flags().StringVarP(&dataPath, "data", "d", "", "study folder holding train/ and test/ cohorts")
	cmd.Flags().StringSliceVarP(&dataTypes, "data-types", "t", nil, "omic layers to check for")

	_ = cmd.MarkFlagRequired("data")
	_ = cmd.MarkFlagRequired("data-types")

	return cmd
}

var logLevel string

func main() {
	Main := &cobra.Command{Use: "omicsfuse", PersistentPreRun: setupLogging, SilenceUsage: true}

	Main.PersistentFlags().StringVarP(&logLevel, "log-level", "", "info", "Logging level: debug info warn or error")

	Main.AddCommand(ImportCommand())
	Main.AddCommand(ValidateCommand())

	if err := Main.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging(cmd *cobra.Command, args []string) {
	log.SetupLogger(logLevel)

	// Degenerate-data warnings go through zerolog's console writer so they
	// stand out from the JSON pipeline logs.
	warnLogger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	pkgerrors.SetZerologWarnFunc(func(w error) {
		if obj, ok := w.(zerolog.LogObjectMarshaler); ok {
			warnLogger.Warn().EmbedObject(obj).Msg(w.Error())
			return
		}
		warnLogger.Warn().Msg(w.Error())
	})
}
