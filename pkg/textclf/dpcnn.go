// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package textclf

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/tensors/images"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers/activations"
)

// DPCNNModel implements the "Deep Pyramid CNN": a region embedding convolution, two convolutions added
// residually to it, and Config.NumBlocks pyramid blocks, each halving the sequence length. The internal
// width is DPCNNWidth regardless of Config.HiddenDim.
type DPCNNModel struct {
	Base
}

// NewDPCNNModel creates a DPCNNModel.
func NewDPCNNModel(cfg Config) *DPCNNModel {
	return &DPCNNModel{Base{cfg}}
}

// Name implements Model.
func (m *DPCNNModel) Name() string { return ModelDPCNN }

// RegionFeatures returns the sum of the region embedding and its two convolutions, before any pyramid
// block, shaped [batchSize, maxSeqLen, DPCNNWidth], along with the sequence lengths ([batchSize]) to use
// for masking -- nil if Config.MaskPadding is false.
func (m *DPCNNModel) RegionFeatures(ctx *context.Context, tokens *Node) (x, lengths *Node) {
	cfg := &m.Config
	embed, _ := m.Embed(ctx, tokens)
	var mask *Node
	if cfg.MaskPadding {
		// Examples made only of padding keep one position, so the pooling stays finite.
		lengths = MaxScalar(SequenceLengths(tokens, cfg.PaddingID), 1)
		mask = LengthsMask(lengths, tokens.Shape().Dim(1))
	}
	region := Conv1D(ctx.In("region_embedding"), embed, DPCNNWidth, 3, true)
	x = zeroMasked(activations.Relu(region), mask)
	x = Conv1D(ctx.In("conv1"), x, DPCNNWidth, 3, true)
	x = zeroMasked(activations.Relu(x), mask)
	x = Conv1D(ctx.In("conv2"), x, DPCNNWidth, 3, true)
	x = Add(x, region)
	return
}

// Features implements Model: output is shaped [batchSize, DPCNNWidth].
func (m *DPCNNModel) Features(ctx *context.Context, tokens *Node) *Node {
	x, lengths := m.RegionFeatures(ctx, tokens)
	for blockIdx := range m.Config.NumBlocks {
		x, lengths = pyramidBlock(ctx.Inf("%03d_block", blockIdx), x, lengths)
	}
	var mask *Node
	if lengths != nil {
		mask = LengthsMask(lengths, x.Shape().Dim(1))
	}
	return MaxOverTime(x, mask)
}

// Forward implements Model.
func (m *DPCNNModel) Forward(ctx *context.Context, tokens *Node) *Node {
	return m.Classify(ctx, m.Features(ctx, tokens))
}

// pyramidBlock downsamples x ([batchSize, seqLen, DPCNNWidth]) with a max-pool of window 3 and stride 2,
// and adds to it two pre-activated convolutions. The output sequence length is ceil(seqLen/2).
//
// If seqLen is already 1 the pooling is skipped. If lengths is not nil, padded positions are excluded
// from the pooling and zeroed before each convolution; the returned lengths are the ones after pooling.
func pyramidBlock(ctx *context.Context, x, lengths *Node) (*Node, *Node) {
	seqLen := x.Shape().Dim(1)
	if seqLen > 1 {
		var mask *Node
		if lengths != nil {
			mask = LengthsMask(lengths, seqLen)
			lowest := BroadcastToDims(Infinity(x.Graph(), x.DType(), -1), x.Shape().Dimensions...)
			x = Where(BroadcastToDims(InsertAxes(mask, -1), x.Shape().Dimensions...), x, lowest)
		}
		// Windows always start at 2j, padding only at the end, so that the pooled values of an example
		// don't depend on how much padding follows it. Output length is ceil(seqLen/2).
		outLen := (seqLen + 1) / 2
		padHigh := max((outLen-1)*2+3-seqLen, 0)
		x = MaxPool(x).ChannelsAxis(images.ChannelsLast).Window(3).Strides(2).
			PaddingPerDim([][2]int{{0, padHigh}}).Done()
		if lengths != nil {
			// Window j holds a real token iff 2j < length.
			lengths = DivScalar(AddScalar(lengths, 1), 2)
			x = zeroMasked(x, LengthsMask(lengths, outLen))
		}
	}
	var mask *Node
	if lengths != nil {
		mask = LengthsMask(lengths, x.Shape().Dim(1))
	}
	shortcut := x
	x = Conv1D(ctx.In("conv1"), zeroMasked(activations.Relu(x), mask), DPCNNWidth, 3, true)
	x = Conv1D(ctx.In("conv2"), zeroMasked(activations.Relu(x), mask), DPCNNWidth, 3, true)
	return Add(x, shortcut), lengths
}
