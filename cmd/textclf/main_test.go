// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"
	"testing"

	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/ui/commandline"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/require"
	"k8s.io/klog/v2"

	"github.com/textclf/textclf/pkg/textclf/training"
)

var flagSettings *string

func init() {
	ctx := training.CreateDefaultContext()
	flagSettings = commandline.CreateContextSettingsFlag(ctx, "")
	klog.InitFlags(nil)
	if _, found := os.LookupEnv(backends.ConfigEnvVar); !found {
		// For testing, we use the CPU backend (and avoid GPU if not explicitly requested).
		must.M(os.Setenv(backends.ConfigEnvVar, "xla:cpu"))
	}
}

func TestPredictFlags(t *testing.T) {
	ctx := training.CreateDefaultContext()
	*flagCheckpoint = ""
	require.Error(t, predict(ctx, []string{"some text"}))
	*flagCheckpoint = "model"
	defer func() { *flagCheckpoint = "" }()
	require.Error(t, predict(ctx, nil))
}

func TestDemo(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping testing in short mode")
		return
	}

	ctx := training.CreateDefaultContext()
	ctx.SetParam(training.ParamTrainSteps, 10)
	paramsSet := must.M1(commandline.ParseContextSettings(ctx, *flagSettings))
	require.NoError(t, training.TrainModel(ctx, *flagDataDir, *flagCheckpoint, paramsSet, *flagEval, *flagVerbosity))
}
