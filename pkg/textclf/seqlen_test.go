// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package textclf

import (
	"testing"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/graph/graphtest"
	"github.com/stretchr/testify/assert"
)

func TestSequenceLengths(t *testing.T) {
	graphtest.RunTestGraphFn(t, "SequenceLengths", func(g *Graph) (inputs, outputs []*Node) {
		tokens := Const(g, [][]int32{{5, 6, 7, 0, 0}, {5, 6, 7, 8, 9}, {0, 0, 0, 0, 0}})
		inputs = []*Node{tokens}
		outputs = []*Node{
			SequenceLengths(tokens, 0),
			PaddingMask(tokens, 0),
			LengthsMask(SequenceLengths(tokens, 0), 5),
		}
		return
	}, []any{
		[]int32{3, 5, 0},
		[][]bool{{true, true, true, false, false}, {true, true, true, true, true}, {false, false, false, false, false}},
		[][]bool{{true, true, true, false, false}, {true, true, true, true, true}, {false, false, false, false, false}},
	}, 0)
}

func TestEnsureNonEmpty(t *testing.T) {
	graphtest.RunTestGraphFn(t, "ensureNonEmpty", func(g *Graph) (inputs, outputs []*Node) {
		mask := Const(g, [][]bool{{true, false}, {false, false}})
		inputs = []*Node{mask}
		outputs = []*Node{ensureNonEmpty(mask)}
		return
	}, []any{[][]bool{{true, false}, {true, true}}}, 0)
}

func TestWindowsMask(t *testing.T) {
	graphtest.RunTestGraphFn(t, "windowsMask", func(g *Graph) (inputs, outputs []*Node) {
		lengths := Const(g, []int32{5, 3, 1})
		inputs = []*Node{lengths}
		// 4 windows of size 2 over max_seq_len=5.
		outputs = []*Node{windowsMask(lengths, 2, 4)}
		return
	}, []any{[][]bool{{true, true, true, true}, {true, true, false, false}, {true, false, false, false}}}, 0)
}

func TestLengthsOf(t *testing.T) {
	assert.Equal(t, []int{5, 5, 0}, LengthsOf([][]int32{{5, 6, 7, 0, 0}, {5, 6, 7, 8, 9}, {1, 1}}, 1))
	assert.Equal(t, []int{3, 5}, LengthsOf([][]int32{{5, 6, 7, 0, 0}, {5, 6, 7, 8, 9}}, 0))
}
