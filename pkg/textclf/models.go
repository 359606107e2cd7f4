// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package textclf implements a family of text classification models (LSTM, CNN, TextCNN, DPCNN,
// BiLSTM+Attention, CNN+Attention and RCNN) sharing an embedding front-end and a linear classification head.
//
// Every model is a graph building function: given the token ids of a batch, shaped [batchSize, maxSeqLen]
// and right-padded with Config.PaddingID, it returns the tag scores (unnormalized logits) shaped
// [batchSize, Config.TagDim]. The learned parameters live in the context.Context passed to Model.Forward.
//
// Use NewModel to create a model by name, ModelFn to train it with train.Trainer, and Predictor to run it
// on host batches.
package textclf

import (
	"slices"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
)

// Model names accepted by NewModel.
const (
	ModelLSTM       = "lstm"
	ModelRCNN       = "rcnn"
	ModelBiLSTMAttn = "bilstm_attn"
	ModelCNN        = "cnn"
	ModelTextCNN    = "textcnn"
	ModelDPCNN      = "dpcnn"
	ModelCNNAttn    = "cnn_attn"
)

// Model is implemented by every text classification model.
type Model interface {
	// Name of the model, as registered in ValidModels.
	Name() string

	// Features returns the pooled representation of the batch, shaped [batchSize, featuresDim]:
	// the input of the classification head.
	Features(ctx *context.Context, tokens *Node) *Node

	// Forward returns the tag scores for tokens: shaped [batchSize, Config.TagDim].
	//
	// Token ids are not checked inside the graph. For LSTMModel, an example made only of padding yields
	// scores that don't depend on its content (its last position is clamped): use Predictor, which rejects
	// such batches with ErrEmptySequence, or make sure every example has at least one token.
	Forward(ctx *context.Context, tokens *Node) *Node
}

// ValidModels maps model names to their constructors. Constructors don't validate the configuration: use
// NewModel for that.
var ValidModels = map[string]func(cfg Config) Model{
	ModelLSTM:       func(cfg Config) Model { return NewLSTMModel(cfg) },
	ModelRCNN:       func(cfg Config) Model { return NewRCNNModel(cfg) },
	ModelBiLSTMAttn: func(cfg Config) Model { return NewBiLSTMAttnModel(cfg) },
	ModelCNN:        func(cfg Config) Model { return NewCNNModel(cfg) },
	ModelTextCNN:    func(cfg Config) Model { return NewTextCNNModel(cfg) },
	ModelDPCNN:      func(cfg Config) Model { return NewDPCNNModel(cfg) },
	ModelCNNAttn:    func(cfg Config) Model { return NewCNNAttnModel(cfg) },
}

// ModelNames returns the sorted names of the registered models.
func ModelNames() []string {
	names := maps.Keys(ValidModels)
	slices.Sort(names)
	return names
}

// NewModel validates cfg for the model named name and creates it.
func NewModel(name string, cfg Config) (Model, error) {
	newFn, found := ValidModels[name]
	if !found {
		return nil, errors.Wrapf(ErrUnknownModel, "model %q not in %v", name, ModelNames())
	}
	if err := cfg.ValidateFor(name); err != nil {
		return nil, err
	}
	return newFn(cfg), nil
}

// ModelFn adapts model to a train.ModelFn: it takes the tokens as the only input and returns the tag scores.
// Batches must not hold examples made only of padding (see Model.Forward): corpus.LoadDir skips empty examples.
func ModelFn(model Model) train.ModelFn {
	return func(ctx *context.Context, _ any, inputs []*Node) []*Node {
		return []*Node{model.Forward(ctx, inputs[0])}
	}
}
