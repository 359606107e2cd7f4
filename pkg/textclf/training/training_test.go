// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package training

import (
	"fmt"
	"os"
	"path"
	"testing"

	"github.com/gomlx/gomlx/backends"
	_ "github.com/gomlx/gomlx/backends/default"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/ui/gonb/plotly"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textclf/textclf/pkg/textclf"
)

// writeToyCorpus creates a corpus where the class is given by the presence of the words "good" or "bad".
func writeToyCorpus(t *testing.T) string {
	t.Helper()
	baseDir := t.TempDir()
	fillers := []string{"the movie", "this film was", "acting and plot", "a story that is", "overall it is"}
	for _, split := range []string{"train", "test"} {
		for _, class := range []string{"neg", "pos"} {
			dir := path.Join(baseDir, split, class)
			require.NoError(t, os.MkdirAll(dir, 0o755))
			word := "bad"
			if class == "pos" {
				word = "good"
			}
			for ii, filler := range fillers {
				text := fmt.Sprintf("%s %s %s", filler, word, word)
				require.NoError(t, os.WriteFile(path.Join(dir, fmt.Sprintf("%d.txt", ii)), []byte(text), 0o644))
			}
		}
	}
	return baseDir
}

func toyContext(corpusDir, model string) *context.Context {
	ctx := CreateDefaultContext()
	ctx.SetParams(map[string]any{
		ParamModel:             model,
		ParamCorpusDir:         corpusDir,
		ParamBatchSize:         4,
		ParamEvalBatchSize:     10,
		ParamContentMaxLen:     8,
		ParamTrainSteps:        10,
		textclf.ParamVocab:     100,
		textclf.ParamEmbedDim:  8,
		textclf.ParamHiddenDim: 8,
		textclf.ParamAttnDim:   4,
		plotly.ParamPlots:      false,
	})
	return ctx
}

func TestConfigFromContext(t *testing.T) {
	ctx := CreateDefaultContext()
	ctx.SetParam(textclf.ParamAttnDim, 0)
	ctx.SetParam(textclf.ParamHiddenDim, 12)
	cfg, err := ConfigFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.AttnDim)
	assert.Equal(t, 20_000, cfg.Vocab)
	require.NoError(t, cfg.ValidateFor(textclf.ModelDPCNN))

	ctx.SetParam(textclf.ParamDType, "int8")
	_, err = ConfigFromContext(ctx)
	require.ErrorIs(t, err, textclf.ErrInvalidConfig)
}

func TestNewModel(t *testing.T) {
	corpusDir := writeToyCorpus(t)
	ctx := toyContext(corpusDir, textclf.ModelTextCNN)
	c, tokenizer, err := LoadCorpus(ctx, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "words", tokenizer.Name())
	assert.Equal(t, []string{"neg", "pos"}, c.Classes)
	assert.LessOrEqual(t, c.Vocab.Size(), 100)

	limitedCtx := toyContext(corpusDir, textclf.ModelCNN)
	limitedCtx.SetParam(textclf.ParamVocab, 5)
	limited, _, err := LoadCorpus(limitedCtx, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 5, limited.Vocab.Size())
	for _, e := range limited.Train {
		for _, id := range e.Content {
			assert.Less(t, id, 5)
		}
	}

	model, cfg, err := NewModel(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, textclf.ModelTextCNN, model.Name())
	assert.Equal(t, 2, cfg.TagDim)

	ctx.SetParam(ParamContentMaxLen, 3)
	_, _, err = NewModel(ctx, c)
	require.ErrorIs(t, err, textclf.ErrSequenceTooShort)

	ctx.SetParam(ParamContentMaxLen, 8)
	ctx.SetParam(textclf.ParamTagDim, 3)
	_, _, err = NewModel(ctx, c)
	require.ErrorIs(t, err, textclf.ErrInvalidConfig)

	ctx.SetParam(textclf.ParamTagDim, 2)
	ctx.SetParam(ParamModel, "transformer")
	_, _, err = NewModel(ctx, c)
	require.ErrorIs(t, err, textclf.ErrUnknownModel)
}

func TestTrainAndClassify(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping training test in short mode")
	}
	corpusDir := writeToyCorpus(t)
	for _, modelName := range []string{textclf.ModelCNN, textclf.ModelLSTM} {
		t.Run(modelName, func(t *testing.T) {
			dataDir := t.TempDir()
			ctx := toyContext(corpusDir, modelName)
			require.NoError(t, TrainModel(ctx, dataDir, "toy", nil, true, -1))
			assert.DirExists(t, path.Join(dataDir, "toy"))

			backend := backends.MustNew()
			loadCtx := context.New()
			loadCtx.SetParams(map[string]any{ParamCorpusDir: corpusDir})
			cl, err := LoadClassifier(backend, loadCtx, dataDir, "toy")
			require.NoError(t, err)
			assert.Equal(t, []string{"neg", "pos"}, cl.Classes())

			labels, scores, err := cl.Classify([]string{"the movie good good", "bad", "never seen words"})
			require.NoError(t, err)
			require.Len(t, labels, 3)
			require.Len(t, scores, 3)
			for ii := range scores {
				assert.Len(t, scores[ii], 2)
				assert.Contains(t, cl.Classes(), labels[ii])
			}
		})
	}
}

func TestTrainModelErrors(t *testing.T) {
	ctx := toyContext(path.Join(t.TempDir(), "missing"), textclf.ModelCNN)
	require.Error(t, TrainModel(ctx, t.TempDir(), "", nil, false, -1))

	ctx = toyContext(writeToyCorpus(t), textclf.ModelCNN)
	ctx.SetParam(ParamBatchSize, 0)
	require.Error(t, TrainModel(ctx, t.TempDir(), "", nil, false, -1))
}

func TestPrintSample(t *testing.T) {
	ctx := toyContext(writeToyCorpus(t), textclf.ModelCNN)
	require.NoError(t, PrintSample(ctx, t.TempDir(), 2))
	require.Error(t, PrintSample(ctx, t.TempDir(), 100))
}
