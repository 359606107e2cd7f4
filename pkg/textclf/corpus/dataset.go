// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package corpus

import (
	"io"
	"math/rand/v2"
	"sync"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/pkg/errors"
)

// Dataset implements train.Dataset over a slice of examples. It allows for concurrent Yield calls,
// so one can feed it to datasets.Parallel.
//
// Each batch yields one input, the int32 tokens shaped [BatchSize, MaxLen], and one label, the int32
// class shaped [BatchSize, 1]. Examples are truncated to their first MaxLen tokens and right-padded
// with PaddingID. Ids >= MaxVocab (if MaxVocab > 0) are replaced by UnknownID.
type Dataset struct {
	name             string
	MaxLen, MaxVocab int
	BatchSize        int
	Examples         []*Example

	// muIndices protects the indices, the mutable part of the Dataset, to allow
	// for concurrent calls to Yield.
	muIndices sync.Mutex
	pos       int
	order     []int
	infinite  bool
	shuffle   *rand.Rand
}

// Assert *Dataset implements train.Dataset.
var _ train.Dataset = &Dataset{}

// NewDataset creates a Dataset over examples. It returns an error if the examples don't fill one batch,
// or if maxLen or batchSize are not positive.
func NewDataset(name string, examples []*Example, maxLen, maxVocab, batchSize int) (*Dataset, error) {
	if maxLen <= 0 || batchSize <= 0 {
		return nil, errors.Errorf("dataset %q: maxLen (%d) and batchSize (%d) must be positive", name, maxLen, batchSize)
	}
	if len(examples) < batchSize {
		return nil, errors.Errorf("dataset %q: only %d examples, not enough for one batch of %d", name, len(examples), batchSize)
	}
	ds := &Dataset{
		name:      name,
		MaxLen:    maxLen,
		MaxVocab:  maxVocab,
		BatchSize: batchSize,
		Examples:  examples,
		order:     make([]int, len(examples)),
	}
	for ii := range ds.order {
		ds.order[ii] = ii
	}
	return ds, nil
}

// Infinite sets the dataset to loop forever, reshuffling (if shuffling) at every epoch.
// It returns the Dataset itself, so calls can be cascaded.
func (ds *Dataset) Infinite(infinite bool) *Dataset {
	ds.muIndices.Lock()
	defer ds.muIndices.Unlock()
	ds.infinite = infinite
	return ds
}

// Shuffle sets the dataset to shuffle the examples at every epoch, using a random source seeded with seed.
// It returns the Dataset itself, so calls can be cascaded.
func (ds *Dataset) Shuffle(seed uint64) *Dataset {
	ds.muIndices.Lock()
	defer ds.muIndices.Unlock()
	ds.shuffle = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	ds.resetLocked()
	return ds
}

// Name implements train.Dataset interface.
func (ds *Dataset) Name() string { return ds.name }

// Yield implements train.Dataset interface. If not infinite, it returns io.EOF when the remaining
// examples don't fill a batch.
//
// It returns `spec==nil` always, since `inputs` and `labels` have always the same type of content.
func (ds *Dataset) Yield() (spec any, inputs, labels []*tensors.Tensor, err error) {
	ds.muIndices.Lock()
	if ds.pos+ds.BatchSize > len(ds.order) {
		if !ds.infinite {
			ds.muIndices.Unlock()
			return nil, nil, nil, io.EOF
		}
		ds.resetLocked()
	}
	batchIdx := make([]int, ds.BatchSize)
	copy(batchIdx, ds.order[ds.pos:ds.pos+ds.BatchSize])
	ds.pos += ds.BatchSize
	ds.muIndices.Unlock()

	batch := make([][]int, ds.BatchSize)
	for ii, exampleIdx := range batchIdx {
		batch[ii] = ds.Examples[exampleIdx].Content
	}
	input := ds.Pad(batch)
	labelsData := make([]int32, ds.BatchSize)
	for ii, exampleIdx := range batchIdx {
		labelsData[ii] = int32(ds.Examples[exampleIdx].Label)
	}
	inputs = []*tensors.Tensor{tensors.FromFlatDataAndDimensions(input, ds.BatchSize, ds.MaxLen)}
	labels = []*tensors.Tensor{tensors.FromFlatDataAndDimensions(labelsData, ds.BatchSize, 1)}
	return
}

// Pad converts the contents of a batch to the flat int32 tokens of shape [len(batch), MaxLen].
func (ds *Dataset) Pad(batch [][]int) []int32 {
	flat := make([]int32, len(batch)*ds.MaxLen)
	for ii, content := range batch {
		padRow(flat[ii*ds.MaxLen:(ii+1)*ds.MaxLen], content, ds.MaxVocab)
	}
	return flat
}

// PadBatch truncates the contents to maxLen tokens and right-pads them with PaddingID to the length of
// the longest one, but never shorter than minLen. Ids >= maxVocab (if maxVocab > 0) are replaced by UnknownID.
func PadBatch(batch [][]int, minLen, maxLen, maxVocab int) [][]int32 {
	length := minLen
	for _, content := range batch {
		length = max(length, min(len(content), maxLen))
	}
	padded := make([][]int32, len(batch))
	for ii, content := range batch {
		padded[ii] = make([]int32, length)
		padRow(padded[ii], content, maxVocab)
	}
	return padded
}

func padRow(row []int32, content []int, maxVocab int) {
	if len(content) > len(row) {
		content = content[:len(row)]
	}
	for jj, id := range content {
		if maxVocab > 0 && id >= maxVocab {
			id = UnknownID
		}
		row[jj] = int32(id)
	}
}

// Reset restarts the dataset from the beginning. Can be called after io.EOF is reached,
// for instance when running another evaluation on a test dataset.
func (ds *Dataset) Reset() {
	ds.muIndices.Lock()
	defer ds.muIndices.Unlock()
	ds.resetLocked()
}

func (ds *Dataset) resetLocked() {
	ds.pos = 0
	if ds.shuffle != nil {
		ds.shuffle.Shuffle(len(ds.order), func(i, j int) {
			ds.order[i], ds.order[j] = ds.order[j], ds.order[i]
		})
	}
}

// InputToString renders one row of an input batch created by a Dataset, skipping padding.
func InputToString(vocab *Vocab, input *tensors.Tensor, batchIdx int) string {
	maxLen := input.Shape().Dimensions[1]
	var tokens []int
	tensors.ConstFlatData[int32](input, func(flat []int32) {
		for _, id := range flat[batchIdx*maxLen : (batchIdx+1)*maxLen] {
			if id != PaddingID {
				tokens = append(tokens, int(id))
			}
		}
	})
	return (&Example{Content: tokens}).String(vocab)
}
