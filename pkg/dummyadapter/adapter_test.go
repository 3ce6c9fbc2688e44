package dummyadapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webis-de/llmserve/pkg/adapter"
	"github.com/webis-de/llmserve/pkg/stopstring"
)

func TestCallEchoesInputWithinMaxNewTokens(t *testing.T) {
	a := New(stopstring.Rules{}, stopstring.Rules{})
	results, err := a.Call(context.Background(), []string{"hello"}, nil, map[string]interface{}{"max_new_tokens": float64(4)})
	require.NoError(t, err)
	require.Len(t, results, 1)

	gen := results[0].(adapter.GenerationResult)
	assert.Equal(t, "hello", gen.Generated)
	assert.Equal(t, 1, gen.Size.Input)
	assert.Equal(t, 1, gen.Size.Output)
	assert.Equal(t, 0, gen.Size.Overflow)
	assert.Nil(t, gen.StoppingReason)
}

func TestCallTruncatesAtMaxNewTokensAndReportsOverflow(t *testing.T) {
	a := New(stopstring.Rules{}, stopstring.Rules{})
	results, err := a.Call(context.Background(), []string{"one two three four"}, nil, map[string]interface{}{"max_new_tokens": float64(2)})
	require.NoError(t, err)

	gen := results[0].(adapter.GenerationResult)
	assert.Equal(t, "one two", gen.Generated)
	assert.Equal(t, 4, gen.Size.Input)
	assert.Equal(t, 2, gen.Size.Output)
	assert.Equal(t, 2, gen.Size.Overflow)
}

func TestCallStopsOnInclusiveWildcardStopString(t *testing.T) {
	rules := stopstring.Rules{Wildcard: []string{"two"}}
	a := New(rules, stopstring.Rules{})
	results, err := a.Call(context.Background(), []string{"one two three"}, nil, nil)
	require.NoError(t, err)

	gen := results[0].(adapter.GenerationResult)
	assert.Equal(t, "one two", gen.Generated)
	require.NotNil(t, gen.StoppingReason)
	assert.Equal(t, "two", *gen.StoppingReason)
}

func TestCallRejectsMalformedMaxNewTokens(t *testing.T) {
	a := New(stopstring.Rules{}, stopstring.Rules{})
	_, err := a.Call(context.Background(), []string{"hello"}, nil, map[string]interface{}{"max_new_tokens": "not-a-number"})
	require.Error(t, err)
	var userErr *adapter.UserError
	require.ErrorAs(t, err, &userErr)
}

func TestGetMetaReportsDummyModel(t *testing.T) {
	a := New(stopstring.Rules{}, stopstring.Rules{})
	assert.Equal(t, map[string]interface{}{"model": "dummy"}, a.GetMeta())
}

func TestPreferredSettingsAreNonZero(t *testing.T) {
	a := New(stopstring.Rules{}, stopstring.Rules{})
	settings := a.PreferredSettings()
	assert.Positive(t, settings.Threads)
	assert.Positive(t, settings.BatchSize)
	assert.Positive(t, settings.CacheSize)
}
