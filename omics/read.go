package omics

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/pgzip"
	"gonum.org/v1/gonum/mat"

	"github.com/omicsfuse/omicsfuse/pkg/errors"
)

// ClinicalFile is the fixed name of the annotation file in a cohort folder.
const ClinicalFile = "clin.csv"

// open returns a reader for path, transparently decompressing .gz files.
func open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	gz, err := pgzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "open gzip "+path)
	}
	return &gzipReadCloser{gz: gz, f: f}, nil
}

type gzipReadCloser struct {
	gz *pgzip.Reader
	f  *os.File
}

func (g *gzipReadCloser) Read(p []byte) (int, error) { return g.gz.Read(p) }

func (g *gzipReadCloser) Close() error {
	gzErr := g.gz.Close()
	fErr := g.f.Close()
	if gzErr != nil {
		return gzErr
	}
	return fErr
}

func readCSV(path string) ([][]string, error) {
	rc, err := open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	r := csv.NewReader(rc)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read "+path)
	}
	return records, nil
}

// ReadTable loads one layer file: features on rows, samples on columns,
// first column holding feature ids and the header row holding sample ids.
// Cells that are missing markers or fail to parse become NaN.
func ReadTable(path, name string) (*Table, error) {
	records, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	if len(records) < 1 || len(records[0]) < 2 {
		return nil, errors.NewDataConsistencyError("ReadTable", "layer file "+path+" has no data")
	}
	samples := append([]string(nil), records[0][1:]...)
	nf := len(records) - 1
	features := make([]string, nf)
	m := mat.NewDense(nf, len(samples), nil)
	for i, rec := range records[1:] {
		if len(rec) != len(samples)+1 {
			return nil, errors.NewDimensionError("ReadTable("+name+")", len(samples)+1, len(rec), 1)
		}
		features[i] = rec[0]
		for j, cell := range rec[1:] {
			if v, ok := ParseValue(cell); ok {
				m.Set(i, j, v)
			} else {
				m.Set(i, j, math.NaN())
			}
		}
	}
	return NewTable(name, features, samples, m)
}

// ReadAnnotation loads the clinical table: samples on rows, variables on
// columns, first column holding sample ids.
func ReadAnnotation(path string) (*Annotation, error) {
	records, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	if len(records) < 1 || len(records[0]) < 1 {
		return nil, errors.NewDataConsistencyError("ReadAnnotation", "clinical file "+path+" has no data")
	}
	columns := append([]string(nil), records[0][1:]...)
	samples := make([]string, 0, len(records)-1)
	cells := make([][]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) != len(columns)+1 {
			return nil, errors.NewDimensionError("ReadAnnotation", len(columns)+1, len(rec), 1)
		}
		samples = append(samples, rec[0])
		cells = append(cells, append([]string(nil), rec[1:]...))
	}
	return NewAnnotation(samples, columns, cells)
}

// layerFile resolves the file for a layer inside dir, accepting either
// <layer>.csv or <layer>.csv.gz. Returns "" when neither exists.
func layerFile(dir, layer string) string {
	for _, name := range []string{layer + ".csv", layer + ".csv.gz"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// missingFiles lists the required files absent from a cohort folder.
func missingFiles(dir string, layers []string) []string {
	var missing []string
	if _, err := os.Stat(filepath.Join(dir, ClinicalFile)); err != nil {
		missing = append(missing, ClinicalFile)
	}
	for _, layer := range layers {
		if layerFile(dir, layer) == "" {
			missing = append(missing, layer+".csv")
		}
	}
	return missing
}

// ValidateFolders checks that both cohort folders contain the clinical file
// plus one file per configured layer. The returned ConfigError enumerates
// exactly the missing files. Validation runs before any data is read.
func ValidateFolders(trainDir, testDir string, layers []string) error {
	if missing := missingFiles(trainDir, layers); len(missing) > 0 {
		return errors.NewMissingFilesError("validate training folder "+trainDir, missing)
	}
	if missing := missingFiles(testDir, layers); len(missing) > 0 {
		return errors.NewMissingFilesError("validate testing folder "+testDir, missing)
	}
	return nil
}

// ReadCohort loads all configured layers plus the annotation table from one
// cohort folder.
func ReadCohort(dir string, layers []string) (*Cohort, error) {
	tables := make(map[string]*Table, len(layers))
	for _, layer := range layers {
		path := layerFile(dir, layer)
		if path == "" {
			return nil, errors.NewMissingFilesError("read cohort "+dir, []string{layer + ".csv"})
		}
		t, err := ReadTable(path, layer)
		if err != nil {
			return nil, err
		}
		tables[layer] = t
	}
	ann, err := ReadAnnotation(filepath.Join(dir, ClinicalFile))
	if err != nil {
		return nil, err
	}
	return &Cohort{Tables: tables, Ann: ann}, nil
}
