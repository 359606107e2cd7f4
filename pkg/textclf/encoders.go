// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package textclf

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers"
	"github.com/gomlx/gomlx/pkg/ml/layers/lstm"
	"github.com/gomlx/gopjrt/dtypes"
)

// Conv1D applies a 1D convolution over the sequence axis of x shaped [batchSize, seqLen, features].
//
// If padSame is true the output keeps seqLen, otherwise it is shaped [batchSize, seqLen-window+1, channels].
// Variables are created under ctx (in its "conv" sub-scope), so each convolution needs its own scope.
func Conv1D(ctx *context.Context, x *Node, channels, window int, padSame bool) *Node {
	x.AssertRank(3)
	conv := layers.Convolution(ctx, x).KernelSize(window).Channels(channels).Strides(1)
	if padSame {
		conv = conv.PadSame()
	} else {
		conv = conv.NoPadding()
	}
	return conv.Done()
}

// RecurrentEncoder configures the LSTM encoders used by the models.
type RecurrentEncoder struct {
	HiddenDim     int     // Size of the state of each direction.
	NumLayers     int     // Number of stacked LSTM layers.
	Bidirectional bool    // Whether to concatenate a backward pass to the forward one.
	Dropout       float64 // Applied to the input of every layer but the first, during training.
}

// Encode runs the LSTM over x, shaped [batchSize, seqLen, features], and returns the hidden state at every
// position, shaped [batchSize, seqLen, numDirections*HiddenDim].
//
// The forward direction at a position only sees the tokens up to it. The backward direction runs over each
// example reversed within its length (lengths, shaped [batchSize]), so it starts at the last real token and
// never sees the padding. If lengths is nil, every example is taken as seqLen long.
func (enc RecurrentEncoder) Encode(ctx *context.Context, x, lengths *Node) *Node {
	x.AssertRank(3)
	g := x.Graph()
	if enc.Bidirectional && lengths == nil {
		fullLengths := make([]int32, x.Shape().Dim(0))
		for ii := range fullLengths {
			fullLengths[ii] = int32(x.Shape().Dim(1))
		}
		lengths = Const(g, fullLengths)
	}
	for layerIdx := range enc.NumLayers {
		ctx := ctx.Inf("%03d_lstm", layerIdx)
		if layerIdx > 0 && enc.Dropout > 0 {
			x = layers.Dropout(ctx, x, Scalar(g, x.DType(), enc.Dropout))
		}
		if !enc.Bidirectional {
			x = forwardLSTM(ctx, x, enc.HiddenDim)
			continue
		}
		forward := forwardLSTM(ctx.In("forward"), x, enc.HiddenDim)
		backward := forwardLSTM(ctx.In("backward"), ReverseSequences(x, lengths), enc.HiddenDim)
		backward = ReverseSequences(backward, lengths)
		x = Concatenate([]*Node{forward, backward}, -1)
	}
	return x
}

// forwardLSTM returns the hidden states of a forward LSTM over x, shaped [batchSize, seqLen, hiddenDim].
func forwardLSTM(ctx *context.Context, x *Node, hiddenDim int) *Node {
	batchSize, seqLen := x.Shape().Dim(0), x.Shape().Dim(1)
	// allHiddenStates: [seqLen, 1, batchSize, hiddenDim]
	allHiddenStates, _, _ := lstm.New(ctx, x, hiddenDim).Direction(lstm.DirForward).Done()
	allHiddenStates = Reshape(allHiddenStates, seqLen, batchSize, hiddenDim)
	return Transpose(allHiddenStates, 0, 1)
}

// ReverseSequences reverses the first lengths[b] positions of each example b of x, shaped
// [batchSize, seqLen, features]. Positions at or after the length stay in place. Applying it twice
// returns x.
func ReverseSequences(x, lengths *Node) *Node {
	x.AssertRank(3)
	g := x.Graph()
	batchSize, seqLen := x.Shape().Dim(0), x.Shape().Dim(1)
	positions := Iota(g, shapes.Make(dtypes.Int32, batchSize, seqLen), 1)
	lengths = InsertAxes(ConvertDType(lengths, dtypes.Int32), -1) // [batchSize, 1]
	lengths = BroadcastToDims(lengths, batchSize, seqLen)
	reversed := Sub(AddScalar(lengths, -1), positions)
	source := Where(LessThan(positions, lengths), reversed, positions)
	batchIndices := Iota(g, shapes.Make(dtypes.Int32, batchSize, seqLen), 0)
	indices := Stack([]*Node{batchIndices, source}, -1) // [batchSize, seqLen, 2]
	return Gather(x, indices)
}
