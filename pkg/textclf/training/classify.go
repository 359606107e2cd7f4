// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package training

import (
	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/context/checkpoints"
	"github.com/gomlx/gomlx/pkg/support/fsutil"
	"github.com/pkg/errors"

	"github.com/textclf/textclf/pkg/textclf"
	"github.com/textclf/textclf/pkg/textclf/corpus"
)

// Classifier labels raw texts with a trained model.
type Classifier struct {
	tokenizer corpus.Tokenizer
	vocab     *corpus.Vocab
	classes   []string
	cfg       textclf.Config
	maxLen    int
	minLen    int
	predictor *textclf.Predictor
}

// LoadClassifier loads the checkpoint (relative to dataDir, if not absolute) into ctx, and the corpus it
// was trained on, to get its vocabulary and classes.
func LoadClassifier(backend backends.Backend, ctx *context.Context, dataDir, checkpointPath string) (*Classifier, error) {
	dataDir, err := fsutil.ReplaceTildeInDir(dataDir)
	if err != nil {
		return nil, err
	}
	_, err = checkpoints.Load(ctx).
		DirFromBase(checkpointPath, dataDir).
		ExcludeParams(ParamsExcludedFromLoading...).
		Done()
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to load checkpoint %q", checkpointPath)
	}
	c, tokenizer, err := LoadCorpus(ctx, dataDir)
	if err != nil {
		return nil, err
	}
	model, cfg, err := NewModel(ctx, c)
	if err != nil {
		return nil, err
	}
	predictor, err := textclf.NewPredictor(backend, ctx.In("model").Reuse(), model, cfg)
	if err != nil {
		return nil, err
	}
	cl := &Classifier{
		tokenizer: tokenizer,
		vocab:     c.Vocab,
		classes:   c.Classes,
		cfg:       cfg,
		maxLen:    context.GetParamOr(ctx, ParamContentMaxLen, 200),
		minLen:    1,
		predictor: predictor,
	}
	if model.Name() == textclf.ModelTextCNN {
		cl.minLen = cfg.MaxWindow()
	}
	return cl, nil
}

// Classes returns the names of the classes, indexed by label.
func (cl *Classifier) Classes() []string { return cl.classes }

// Classify returns the class name and the scores (logits) for each text.
func (cl *Classifier) Classify(texts []string) (labels []string, scores [][]float32, err error) {
	contents := make([][]int, len(texts))
	for ii, text := range texts {
		contents[ii] = corpus.Encode(cl.tokenizer, cl.vocab, text)
	}
	batch := corpus.PadBatch(contents, cl.minLen, cl.maxLen, cl.cfg.Vocab)
	scores, err = cl.predictor.Predict(batch)
	if err != nil {
		return nil, nil, err
	}
	labels = make([]string, len(texts))
	for ii, classIdx := range textclf.Classes(scores) {
		labels[ii] = cl.classes[classIdx]
	}
	return labels, scores, nil
}
