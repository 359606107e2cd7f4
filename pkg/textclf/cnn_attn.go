// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package textclf

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers/activations"
)

// CNNAttnModel applies one "same" padded convolution followed by a ReLU, and summarizes the positions
// with AttentionPooling.
type CNNAttnModel struct {
	Base
}

// NewCNNAttnModel creates a CNNAttnModel.
func NewCNNAttnModel(cfg Config) *CNNAttnModel {
	return &CNNAttnModel{Base{cfg}}
}

// Name implements Model.
func (m *CNNAttnModel) Name() string { return ModelCNNAttn }

// Features implements Model: output is shaped [batchSize, HiddenDim].
func (m *CNNAttnModel) Features(ctx *context.Context, tokens *Node) *Node {
	cfg := &m.Config
	embed, mask := m.Embed(ctx, tokens)
	x := Conv1D(ctx.In("cnn"), embed, cfg.HiddenDim, cfg.KernelSize, true)
	x = activations.Relu(x)
	return AttentionPooling(ctx, x, m.poolingMask(mask), cfg.AttnDim)
}

// Forward implements Model.
func (m *CNNAttnModel) Forward(ctx *context.Context, tokens *Node) *Node {
	return m.Classify(ctx, m.Features(ctx, tokens))
}
