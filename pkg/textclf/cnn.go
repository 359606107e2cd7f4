// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package textclf

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers/activations"
)

// CNNModel applies one "same" padded convolution (window Config.KernelSize) to the embeddings,
// max-pools over the sequence and applies a ReLU.
type CNNModel struct {
	Base
}

// NewCNNModel creates a CNNModel.
func NewCNNModel(cfg Config) *CNNModel {
	return &CNNModel{Base{cfg}}
}

// Name implements Model.
func (m *CNNModel) Name() string { return ModelCNN }

// Features implements Model: output is shaped [batchSize, HiddenDim].
func (m *CNNModel) Features(ctx *context.Context, tokens *Node) *Node {
	cfg := &m.Config
	embed, mask := m.Embed(ctx, tokens)
	x := Conv1D(ctx.In("cnn"), embed, cfg.HiddenDim, cfg.KernelSize, true)
	x = MaxOverTime(x, m.poolingMask(mask))
	return activations.Relu(x)
}

// Forward implements Model.
func (m *CNNModel) Forward(ctx *context.Context, tokens *Node) *Node {
	return m.Classify(ctx, m.Features(ctx, tokens))
}
