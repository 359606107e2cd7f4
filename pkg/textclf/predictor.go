// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package textclf

import (
	"slices"
	"sync"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/backends"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Predictor runs a Model on batches of token ids held on the host, returning the errors of this package
// instead of panicking.
//
// A new graph is compiled for each different batch shape. It is safe for concurrent use.
type Predictor struct {
	model Model
	cfg   Config

	mu   sync.Mutex
	exec *context.Exec
}

// NewPredictor creates a Predictor for model, with the parameters stored in ctx.
//
// If ctx has no variables yet, they are created (and randomly initialized) on the first call to Predict.
// If they were loaded (e.g. from a checkpoint), pass ctx.Reuse() so it fails if they are missing.
func NewPredictor(backend backends.Backend, ctx *context.Context, model Model, cfg Config) (*Predictor, error) {
	if err := cfg.ValidateFor(model.Name()); err != nil {
		return nil, err
	}
	exec, err := context.NewExec(backend, ctx, func(ctx *context.Context, tokens *Node) *Node {
		return ConvertDType(model.Forward(ctx, tokens), dtypes.Float32)
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to create executor for model %q", model.Name())
	}
	return &Predictor{model: model, cfg: cfg, exec: exec}, nil
}

// Validate checks that batch can be fed to the model: it must be non-empty and rectangular, with token ids
// in [0, Vocab). LSTMModel also requires every example to have at least one non-padding token.
func (p *Predictor) Validate(batch [][]int32) error {
	if len(batch) == 0 || len(batch[0]) == 0 {
		return errors.Wrap(ErrInvalidBatch, "batch must have at least one example with one token")
	}
	maxLen := len(batch[0])
	for exampleIdx, row := range batch {
		if len(row) != maxLen {
			return errors.Wrapf(ErrInvalidBatch, "example #%d has %d tokens, expected %d (batch must be padded)",
				exampleIdx, len(row), maxLen)
		}
		for pos, id := range row {
			if id < 0 || int(id) >= p.cfg.Vocab {
				return errors.Wrapf(ErrTokenOutOfRange, "example #%d, position %d: token %d not in [0, %d)",
					exampleIdx, pos, id, p.cfg.Vocab)
			}
		}
	}
	if p.model.Name() == ModelLSTM {
		for exampleIdx, length := range LengthsOf(batch, p.cfg.PaddingID) {
			if length <= 0 {
				return errors.Wrapf(ErrEmptySequence, "example #%d", exampleIdx)
			}
		}
	}
	return nil
}

// Predict returns the tag scores (logits) for batch, shaped [len(batch)][TagDim].
func (p *Predictor) Predict(batch [][]int32) ([][]float32, error) {
	if err := p.Validate(batch); err != nil {
		return nil, err
	}
	var scores [][]float32
	err := exceptions.TryCatch[error](func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		output := p.exec.MustExec(tensors.FromValue(batch))[0]
		defer output.FinalizeAll()
		tensors.ConstFlatData[float32](output, func(flat []float32) {
			scores = reshapeScores(flat, p.cfg.TagDim)
		})
	})
	if err != nil {
		klog.V(1).Infof("model %q failed on batch of shape [%d, %d]: %+v", p.model.Name(), len(batch), len(batch[0]), err)
		return nil, err
	}
	return scores, nil
}

// Classes returns the index of the highest score of each example.
func Classes(scores [][]float32) []int {
	classes := make([]int, len(scores))
	for ii, row := range scores {
		best := 0
		for jj, value := range row {
			if value > row[best] {
				best = jj
			}
		}
		classes[ii] = best
	}
	return classes
}

// reshapeScores copies flat into a [len(flat)/tagDim][tagDim] matrix.
func reshapeScores(flat []float32, tagDim int) [][]float32 {
	scores := make([][]float32, len(flat)/tagDim)
	for ii := range scores {
		scores[ii] = slices.Clone(flat[ii*tagDim : (ii+1)*tagDim])
	}
	return scores
}
