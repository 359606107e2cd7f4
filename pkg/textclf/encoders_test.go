// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package textclf

import (
	"testing"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/graph/graphtest"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReverseSequences(t *testing.T) {
	graphtest.RunTestGraphFn(t, "ReverseSequences", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, [][][]float32{{{1}, {2}, {3}, {0}}, {{4}, {5}, {6}, {7}}, {{8}, {0}, {0}, {0}}, {{0}, {0}, {0}, {0}}})
		lengths := Const(g, []int32{3, 4, 1, 0})
		inputs = []*Node{x, lengths}
		reversed := ReverseSequences(x, lengths)
		outputs = []*Node{reversed, ReverseSequences(reversed, lengths)}
		return
	}, []any{
		[][][]float32{{{3}, {2}, {1}, {0}}, {{7}, {6}, {5}, {4}}, {{8}, {0}, {0}, {0}}, {{0}, {0}, {0}, {0}}},
		[][][]float32{{{1}, {2}, {3}, {0}}, {{4}, {5}, {6}, {7}}, {{8}, {0}, {0}, {0}}, {{0}, {0}, {0}, {0}}},
	}, 0)
}

// TestRecurrentEncoderPadding checks that, given the lengths, the hidden states of the real tokens don't
// depend on the padding that follows them, in both directions and with stacked layers.
func TestRecurrentEncoderPadding(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	encoder := RecurrentEncoder{HiddenDim: 6, NumLayers: 2, Bidirectional: true}
	ctx := context.New()
	exec := context.MustNewExec(backend, ctx, func(ctx *context.Context, x, lengths *Node) *Node {
		return encoder.Encode(ctx, x, lengths)
	})
	short := [][][]float32{{{0.1, 0.2}, {0.3, -0.4}, {-0.5, 0.6}}}
	padded := [][][]float32{{{0.1, 0.2}, {0.3, -0.4}, {-0.5, 0.6}, {0, 0}, {0, 0}}}
	var outputs [2]*tensors.Tensor
	require.NotPanics(t, func() {
		outputs[0] = exec.MustExec(short, []int32{3})[0]
		outputs[1] = exec.MustExec(padded, []int32{3})[0]
	})
	assert.Equal(t, []int{1, 3, 12}, outputs[0].Shape().Dimensions)
	assert.Equal(t, []int{1, 5, 12}, outputs[1].Shape().Dimensions)
	want := outputs[0].Value().([][][]float32)[0]
	got := outputs[1].Value().([][][]float32)[0]
	for pos := range want {
		require.InDeltaSlice(t, want[pos], got[pos], 1e-5, "position %d changed with padding", pos)
	}
}
