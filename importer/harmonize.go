package importer

import (
	"log/slog"

	"github.com/omicsfuse/omicsfuse/omics"
	"github.com/omicsfuse/omicsfuse/pkg/errors"
	"github.com/omicsfuse/omicsfuse/pkg/log"
)

// Harmonize restricts every layer of both cohorts to the features present in
// both, ordered by the training cohort's feature order. The training order is
// authoritative so columns line up sample for sample between cohorts.
func Harmonize(train, test *omics.Cohort) error {
	for _, name := range train.LayerNames() {
		trainTbl := train.Tables[name]
		testTbl, ok := test.Tables[name]
		if !ok {
			return errors.NewDataConsistencyError("Harmonize",
				"layer "+name+" missing from testing cohort")
		}

		var common []string
		for _, id := range trainTbl.Features {
			if testTbl.FeatureIndex(id) >= 0 {
				common = append(common, id)
			}
		}
		if len(common) == 0 {
			return errors.NewDataConsistencyError("Harmonize",
				"layer "+name+" has no features shared by both cohorts")
		}

		harmTrain, err := trainTbl.SelectFeatures(common)
		if err != nil {
			return err
		}
		harmTest, err := testTbl.SelectFeatures(common)
		if err != nil {
			return err
		}
		train.Tables[name] = harmTrain
		test.Tables[name] = harmTest

		slog.Debug("harmonized layer",
			log.LayerKey, name,
			log.FeaturesKey, len(common),
		)
	}
	return nil
}
