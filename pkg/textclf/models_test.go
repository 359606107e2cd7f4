// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package textclf

import (
	"fmt"
	"math"
	"testing"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/graph/graphtest"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/gomlx/gomlx/backends/default"
)

// testConfig is the configuration of the end-to-end scenario: vocab=100, embed_dim=8, hidden_dim=16, tag_dim=3.
func testConfig() Config {
	return NewConfig(100, 8, 16, 3)
}

// scenarioBatch has one padded and one full example.
var scenarioBatch = [][]int32{{5, 6, 7, 0, 0}, {5, 6, 7, 8, 9}}

// featuresOf executes model.Features for each batch with the same parameters, and returns the results as
// [numBatches][batchSize][featuresDim].
func featuresOf(t *testing.T, model Model, batches ...[][]int32) [][][]float32 {
	backend := graphtest.BuildTestBackend()
	ctx := context.New()
	exec := context.MustNewExec(backend, ctx, func(ctx *context.Context, tokens *Node) *Node {
		return model.Features(ctx, tokens)
	})
	results := make([][][]float32, 0, len(batches))
	for _, batch := range batches {
		var output *tensors.Tensor
		require.NotPanics(t, func() { output = exec.MustExec(batch)[0] })
		results = append(results, output.Value().([][]float32))
	}
	return results
}

func TestForwardShapes(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	for _, name := range ModelNames() {
		t.Run(name, func(t *testing.T) {
			model, err := NewModel(name, testConfig())
			require.NoError(t, err)
			ctx := context.New()
			exec := context.MustNewExec(backend, ctx, func(ctx *context.Context, tokens *Node) *Node {
				return model.Forward(ctx, tokens)
			})
			scores := exec.MustExec(scenarioBatch)[0]
			assert.Equal(t, []int{2, 3}, scores.Shape().Dimensions)

			// Output shape doesn't depend on max_seq_len.
			longer := [][]int32{{5, 6, 7, 0, 0, 0, 0, 0, 0}, {5, 6, 7, 8, 9, 10, 11, 12, 13}}
			scores = exec.MustExec(longer)[0]
			assert.Equal(t, []int{2, 3}, scores.Shape().Dimensions)
		})
	}
}

func TestModelRegistry(t *testing.T) {
	assert.Equal(t, []string{"bilstm_attn", "cnn", "cnn_attn", "dpcnn", "lstm", "rcnn", "textcnn"}, ModelNames())
	for _, name := range ModelNames() {
		model, err := NewModel(name, testConfig())
		require.NoError(t, err)
		assert.Equal(t, name, model.Name())
	}

	_, err := NewModel("transformer", testConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownModel))

	cfg := testConfig()
	cfg.EmbedDim = 7
	_, err = NewModel(ModelRCNN, cfg)
	assert.True(t, errors.Is(err, ErrDimensionMismatch), "got %v", err)
}

// TestLSTMPaddingInvariance checks that the selected hidden state (pre-projection) of LSTMModel is the same
// no matter how much padding follows the sequence.
func TestLSTMPaddingInvariance(t *testing.T) {
	for _, numLayers := range []int{1, 2} {
		t.Run(fmt.Sprintf("n_layer=%d", numLayers), func(t *testing.T) {
			cfg := testConfig()
			cfg.NumLayers = numLayers
			model := NewLSTMModel(cfg)
			results := featuresOf(t, model,
				[][]int32{{5, 6, 7}},
				[][]int32{{5, 6, 7, 0}},
				[][]int32{{5, 6, 7, 0, 0, 0, 0, 0}})
			for ii := 1; ii < len(results); ii++ {
				require.InDeltaSlice(t, results[0][0], results[ii][0], 1e-5, "padding changed LSTM features")
			}
		})
	}
}

// TestMaskedPoolingInvariance checks that with masking enabled, models whose positions align with the
// tokens produce the same features regardless of trailing padding.
func TestMaskedPoolingInvariance(t *testing.T) {
	for _, name := range []string{ModelCNN, ModelCNNAttn, ModelBiLSTMAttn, ModelRCNN, ModelTextCNN, ModelDPCNN} {
		t.Run(name, func(t *testing.T) {
			model, err := NewModel(name, testConfig())
			require.NoError(t, err)
			results := featuresOf(t, model,
				[][]int32{{5, 6, 7, 8}},
				[][]int32{{5, 6, 7, 8, 0, 0, 0}})
			require.InDeltaSlice(t, results[0][0], results[1][0], 1e-4, "masked %s features changed with padding", name)
		})
	}
}

// TestUnmaskedPoolingSeesPadding checks that with masking disabled, the pooled features of the
// convolutional and RCNN models do change when trailing padding is added.
func TestUnmaskedPoolingSeesPadding(t *testing.T) {
	for _, name := range []string{ModelCNN, ModelRCNN, ModelTextCNN} {
		t.Run(name, func(t *testing.T) {
			cfg := NewConfig(100, 8, 64, 3)
			cfg.MaskPadding = false
			model, err := NewModel(name, cfg)
			require.NoError(t, err)
			results := featuresOf(t, model,
				[][]int32{{5, 6, 7, 8}},
				[][]int32{{5, 6, 7, 8, 0, 0, 0}})
			require.Len(t, results[1][0], len(results[0][0]))
			var maxDiff float64
			for ii, value := range results[0][0] {
				maxDiff = max(maxDiff, math.Abs(float64(value-results[1][0][ii])))
			}
			assert.Greater(t, maxDiff, 1e-4, "unmasked %s features should change with padding", name)
		})
	}
}

func TestBatchExamplesIndependent(t *testing.T) {
	// The features of an example don't depend on the other examples of the batch.
	for _, name := range ModelNames() {
		t.Run(name, func(t *testing.T) {
			model, err := NewModel(name, testConfig())
			require.NoError(t, err)
			results := featuresOf(t, model,
				scenarioBatch,
				[][]int32{scenarioBatch[1], scenarioBatch[0]})
			require.InDeltaSlice(t, results[0][0], results[1][1], 1e-5)
			require.InDeltaSlice(t, results[0][1], results[1][0], 1e-5)
		})
	}
}

func TestTextCNNWindowBoundary(t *testing.T) {
	model := NewTextCNNModel(testConfig())
	backend := graphtest.BuildTestBackend()
	predictor, err := NewPredictor(backend, context.New(), model, testConfig())
	require.NoError(t, err)

	scores, err := predictor.Predict([][]int32{{5, 6, 7, 8}})
	require.NoError(t, err)
	require.Len(t, scores, 1)
	require.Len(t, scores[0], 3)

	_, err = predictor.Predict([][]int32{{5, 6, 7}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSequenceTooShort), "got %v", err)
}

func TestTextCNNFeaturesWidth(t *testing.T) {
	model := NewTextCNNModel(testConfig())
	results := featuresOf(t, model, scenarioBatch)
	require.Len(t, results[0][0], 3*16)
}

func TestDPCNN(t *testing.T) {
	backend := graphtest.BuildTestBackend()

	t.Run("NoBlocks", func(t *testing.T) {
		// With n_block=0 the output is the classification of the max-pooled region features.
		cfg := testConfig()
		cfg.NumBlocks = 0
		model := NewDPCNNModel(cfg)
		ctx := context.New()
		exec := context.MustNewExec(backend, ctx, func(ctx *context.Context, tokens *Node) []*Node {
			scores := model.Forward(ctx, tokens)
			reuseCtx := ctx.Reuse()
			x, lengths := model.RegionFeatures(reuseCtx, tokens)
			direct := model.Classify(reuseCtx, MaxOverTime(x, LengthsMask(lengths, x.Shape().Dim(1))))
			return []*Node{scores, direct}
		})
		outputs := exec.MustExec(scenarioBatch)
		got, want := outputs[0].Value().([][]float32), outputs[1].Value().([][]float32)
		for ii := range want {
			require.InDeltaSlice(t, want[ii], got[ii], 1e-5)
		}
	})

	t.Run("ShrinksToOne", func(t *testing.T) {
		// 5 -> 3 -> 2 -> 1 -> 1: the last blocks don't pool further.
		cfg := testConfig()
		cfg.NumBlocks = 5
		model := NewDPCNNModel(cfg)
		ctx := context.New()
		exec := context.MustNewExec(backend, ctx, func(ctx *context.Context, tokens *Node) *Node {
			return model.Features(ctx, tokens)
		})
		features := exec.MustExec(scenarioBatch)[0]
		assert.Equal(t, []int{2, DPCNNWidth}, features.Shape().Dimensions)
	})
}

func TestPredictorValidation(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	cfg := testConfig()
	predictor, err := NewPredictor(backend, context.New(), NewLSTMModel(cfg), cfg)
	require.NoError(t, err)

	_, err = predictor.Predict([][]int32{{5, 6, 7}, {0, 0, 0}})
	assert.True(t, errors.Is(err, ErrEmptySequence), "got %v", err)

	_, err = predictor.Predict([][]int32{{5, 6, 100}})
	assert.True(t, errors.Is(err, ErrTokenOutOfRange), "got %v", err)

	_, err = predictor.Predict([][]int32{{5, 6, 7}, {5}})
	assert.True(t, errors.Is(err, ErrInvalidBatch), "got %v", err)

	_, err = predictor.Predict(nil)
	assert.True(t, errors.Is(err, ErrInvalidBatch), "got %v", err)

	scores, err := predictor.Predict(scenarioBatch)
	require.NoError(t, err)
	require.Len(t, scores, 2)
	classes := Classes(scores)
	require.Len(t, classes, 2)
	for _, class := range classes {
		assert.True(t, class >= 0 && class < cfg.TagDim)
	}

	// Examples made only of padding are fine for models that don't need the last position.
	cnn, err := NewPredictor(backend, context.New(), NewCNNModel(cfg), cfg)
	require.NoError(t, err)
	_, err = cnn.Predict([][]int32{{5, 6, 7}, {0, 0, 0}})
	require.NoError(t, err)
}

func TestClasses(t *testing.T) {
	assert.Equal(t, []int{1, 0, 2}, Classes([][]float32{{0, 1, -1}, {3, 2, 1}, {-5, -4, -3}}))
}
