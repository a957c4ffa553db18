package omics

import "sort"

// Cohort groups all layers plus the annotation table for one split.
// After cleaning, every layer exposes the identical ordered sample set.
type Cohort struct {
	Tables map[string]*Table
	Ann    *Annotation
}

// LayerNames returns the layer names in sorted order. All layer iteration in
// the pipeline goes through this so results are deterministic.
func (c *Cohort) LayerNames() []string {
	names := make([]string, 0, len(c.Tables))
	for name := range c.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
