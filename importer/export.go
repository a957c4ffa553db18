package importer

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kshedden/gonpy"

	"github.com/omicsfuse/omicsfuse/dataset"
	"github.com/omicsfuse/omicsfuse/pkg/errors"
)

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// ExportNumpy writes a dataset to dir for downstream numeric tooling: one
// <layer>.npy sample-major float64 matrix and <layer>.features.txt per layer,
// one ann_<variable>.npy vector per annotation variable, and samples.txt with
// the shared sample order.
func ExportNumpy(ds *dataset.MultiOmic, dir string) error {
	if err := os.MkdirAll(dir, 0777); err != nil {
		return errors.WithStack(err)
	}

	for _, name := range ds.LayerNames() {
		m := ds.Dat[name]
		r, c := m.Dims()
		data := make([]float64, 0, r*c)
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				data = append(data, m.At(i, j))
			}
		}
		if err := writeNpy(filepath.Join(dir, name+".npy"), []int{r, c}, data); err != nil {
			return err
		}
		if err := writeLines(filepath.Join(dir, name+".features.txt"), ds.Features[name]); err != nil {
			return err
		}
	}

	for name, values := range ds.Ann {
		path := filepath.Join(dir, "ann_"+name+".npy")
		if err := writeNpy(path, []int{len(values)}, values); err != nil {
			return err
		}
	}

	return writeLines(filepath.Join(dir, "samples.txt"), ds.Samples)
}

func writeNpy(path string, shape []int, data []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()
	bufw := bufio.NewWriter(f)
	npw, err := gonpy.NewWriter(nopCloser{bufw})
	if err != nil {
		return errors.Wrap(err, "write "+path)
	}
	npw.Shape = shape
	if err := npw.WriteFloat64(data); err != nil {
		return errors.Wrap(err, "write "+path)
	}
	return errors.WithStack(bufw.Flush())
}

func writeLines(path string, lines []string) error {
	err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0666)
	return errors.WithStack(err)
}
