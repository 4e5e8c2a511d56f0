package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Subcommands(t *testing.T) {
	want := map[string]bool{"create": false, "list": false, "validate": false, "refine": false}
	for _, cmd := range rootCmd.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
			assert.NotEmpty(t, cmd.Short, "%s needs a short description", cmd.Name())
			assert.NotEmpty(t, cmd.Long, "%s needs a long description", cmd.Name())
		}
	}
	for name, found := range want {
		assert.True(t, found, "%s command not registered", name)
	}
}

func TestCreateCmd_RequiredFlags(t *testing.T) {
	for _, flag := range []string{"name", "examples"} {
		f := createCmd.Flags().Lookup(flag)
		require.NotNil(t, f, "create needs --%s", flag)
	}
	assert.NotNil(t, createCmd.Flags().Lookup("domain"))
	assert.NotNil(t, createCmd.Flags().Lookup("out"))
}

func TestBuildEvaluation(t *testing.T) {
	records := []evalRecord{
		{Input: "a", Expected: map[string]any{"total": 5.0}, Actual: map[string]any{"total": 5.0}},
		{Input: "b", Expected: map[string]any{"total": 5.0}, Actual: map[string]any{"total": 6.0}},
		{Input: "c", Expected: map[string]any{"total": 5.0}, Error: "parse failed"},
	}
	eval := buildEvaluation(records)
	assert.Equal(t, 3, eval.Total)
	assert.Equal(t, 1, eval.Passed)
	require.Len(t, eval.Failures, 2)
	assert.Equal(t, "parse failed", eval.Failures[1].Err)
	assert.InDelta(t, 1.0/3.0, eval.Accuracy(), 1e-9)
}

func TestBuildEvaluation_Empty(t *testing.T) {
	eval := buildEvaluation(nil)
	assert.Zero(t, eval.Total)
	assert.Zero(t, eval.Accuracy())
	assert.Empty(t, eval.Failures)
}
