package dataset

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"golang.org/x/exp/rand"

	"github.com/omicsfuse/omicsfuse/omics"
	"github.com/omicsfuse/omicsfuse/pkg/errors"
)

// Triplet is one (anchor, positive, negative) draw: per-layer feature
// vectors for the three samples plus the anchor's full annotation row.
type Triplet struct {
	Anchor   map[string][]float64
	Positive map[string][]float64
	Negative map[string][]float64
	Label    map[string]float64
}

// TripletDataset wraps a MultiOmic and serves anchor/positive/negative
// sample triplets keyed by one designated categorical annotation variable.
//
// In train mode every Get re-samples with replacement from an unseeded
// random source, so pairs vary across epochs. In eval mode the triplet list
// is precomputed from a fixed seed and replayed.
//
// The label-to-indices map is built once at construction and never mutated,
// so concurrent Gets are safe; the train-mode random source is guarded by a
// mutex.
type TripletDataset struct {
	ds      *MultiOmic
	mainVar string

	labels   []float64
	labelSet []float64
	labelIdx map[float64][]int

	mu  sync.Mutex
	rng *rand.Rand

	fixed [][3]int // eval mode only
}

// NewTripletDataset creates a train-mode triplet dataset over mainVar.
// Construction fails with a DataConsistencyError when mainVar is not a
// categorical variable of the dataset, when any label value has a single
// member (no positive exists), or when fewer than two distinct label values
// exist (no negative exists).
func NewTripletDataset(ds *MultiOmic, mainVar string) (*TripletDataset, error) {
	t, err := newTripletDataset(ds, mainVar)
	if err != nil {
		return nil, err
	}
	t.rng = rand.New(rand.NewSource(rand.Uint64()))
	return t, nil
}

// NewFixedTripletDataset creates an eval-mode triplet dataset: one triplet
// per sample, precomputed from the given seed, replayable across runs.
// Every sample must carry a non-missing mainVar value.
func NewFixedTripletDataset(ds *MultiOmic, mainVar string, seed uint64) (*TripletDataset, error) {
	t, err := newTripletDataset(ds, mainVar)
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(seed))
	t.fixed = make([][3]int, ds.Len())
	for i := range t.fixed {
		label := t.labels[i]
		if math.IsNaN(label) {
			return nil, errors.NewDataConsistencyError("NewFixedTripletDataset",
				fmt.Sprintf("sample %s has no %s value", ds.Samples[i], mainVar))
		}
		pos := t.drawPositive(rng, i, label)
		negLabel := t.drawNegativeLabel(rng, label)
		neg := t.drawMember(rng, negLabel)
		t.fixed[i] = [3]int{i, pos, neg}
	}
	return t, nil
}

func newTripletDataset(ds *MultiOmic, mainVar string) (*TripletDataset, error) {
	values, ok := ds.Ann[mainVar]
	if !ok {
		return nil, errors.NewDataConsistencyError("NewTripletDataset",
			"unknown main variable "+mainVar)
	}
	if ds.VariableTypes[mainVar] != omics.Categorical {
		return nil, errors.NewDataConsistencyError("NewTripletDataset",
			"main variable "+mainVar+" is not categorical")
	}

	labelIdx := make(map[float64][]int)
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		labelIdx[v] = append(labelIdx[v], i)
	}
	if len(labelIdx) < 2 {
		return nil, errors.NewDataConsistencyError("NewTripletDataset",
			fmt.Sprintf("variable %s has %d distinct label(s); need at least 2 for negatives", mainVar, len(labelIdx)))
	}
	labelSet := make([]float64, 0, len(labelIdx))
	for label, members := range labelIdx {
		if len(members) < 2 {
			return nil, errors.NewDataConsistencyError("NewTripletDataset",
				fmt.Sprintf("label %v of variable %s has a single sample; no positive pair exists", label, mainVar))
		}
		labelSet = append(labelSet, label)
	}
	sort.Float64s(labelSet)

	return &TripletDataset{
		ds:       ds,
		mainVar:  mainVar,
		labels:   values,
		labelSet: labelSet,
		labelIdx: labelIdx,
	}, nil
}

// Len returns the number of anchor indices.
func (t *TripletDataset) Len() int {
	return t.ds.Len()
}

// MainVariable returns the designated annotation variable.
func (t *TripletDataset) MainVariable() string {
	return t.mainVar
}

// Get returns the triplet for anchor index i. Train mode re-samples
// positive and negative independently on every call.
func (t *TripletDataset) Get(i int) (*Triplet, error) {
	if i < 0 || i >= t.Len() {
		return nil, errors.NewValueError("TripletDataset.Get",
			fmt.Sprintf("index %d out of range [0, %d)", i, t.Len()))
	}

	var anchor, pos, neg int
	if t.fixed != nil {
		anchor, pos, neg = t.fixed[i][0], t.fixed[i][1], t.fixed[i][2]
	} else {
		label := t.labels[i]
		if math.IsNaN(label) {
			return nil, errors.NewDataConsistencyError("TripletDataset.Get",
				fmt.Sprintf("sample %s has no %s value; cannot anchor a triplet", t.ds.Samples[i], t.mainVar))
		}
		t.mu.Lock()
		anchor = i
		pos = t.drawPositive(t.rng, i, label)
		negLabel := t.drawNegativeLabel(t.rng, label)
		neg = t.drawMember(t.rng, negLabel)
		t.mu.Unlock()
	}

	anchorFeats, anchorAnn, err := t.ds.Sample(anchor)
	if err != nil {
		return nil, err
	}
	posFeats, _, err := t.ds.Sample(pos)
	if err != nil {
		return nil, err
	}
	negFeats, _, err := t.ds.Sample(neg)
	if err != nil {
		return nil, err
	}
	return &Triplet{
		Anchor:   anchorFeats,
		Positive: posFeats,
		Negative: negFeats,
		Label:    anchorAnn,
	}, nil
}

// drawPositive picks a member of the anchor's label set other than the
// anchor itself. Construction guarantees at least two members per label.
func (t *TripletDataset) drawPositive(rng *rand.Rand, i int, label float64) int {
	members := t.labelIdx[label]
	for {
		j := members[rng.Intn(len(members))]
		if j != i {
			return j
		}
	}
}

// drawNegativeLabel picks a label value other than the anchor's.
func (t *TripletDataset) drawNegativeLabel(rng *rand.Rand, label float64) float64 {
	for {
		l := t.labelSet[rng.Intn(len(t.labelSet))]
		if l != label {
			return l
		}
	}
}

func (t *TripletDataset) drawMember(rng *rand.Rand, label float64) int {
	members := t.labelIdx[label]
	return members[rng.Intn(len(members))]
}
