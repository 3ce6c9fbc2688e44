package mcpbridge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webis-de/llmserve/pkg/envelope"
)

type fakeSubmitter struct {
	env *envelope.Envelope
	err error
	got struct {
		text   string
		kwargs map[string]interface{}
	}
}

func (f *fakeSubmitter) Submit(_ context.Context, text string, kwargs map[string]interface{}) (*envelope.Envelope, error) {
	f.got.text = text
	f.got.kwargs = kwargs
	return f.env, f.err
}

func TestHandleGenerateSuccess(t *testing.T) {
	sub := &fakeSubmitter{env: envelope.Success("hello world", nil)}
	b := &Bridge{sub: sub}

	_, out, err := b.handleGenerate(context.Background(), nil, ToolInput{
		Text:   "hi",
		Kwargs: map[string]interface{}{"max_new_tokens": 16},
	})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, "hello world", out.Data)
	assert.Equal(t, "hi", sub.got.text)
	assert.Equal(t, 16, sub.got.kwargs["max_new_tokens"])
}

func TestHandleGenerateUserError(t *testing.T) {
	sub := &fakeSubmitter{env: envelope.User("bad kwargs", nil)}
	b := &Bridge{sub: sub}

	_, out, err := b.handleGenerate(context.Background(), nil, ToolInput{Text: "hi"})
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, "bad kwargs", out.Error)
}

func TestHandleGenerateSubmitError(t *testing.T) {
	sub := &fakeSubmitter{err: assertErr("boom")}
	b := &Bridge{sub: sub}

	_, _, err := b.handleGenerate(context.Background(), nil, ToolInput{Text: "hi"})
	require.Error(t, err)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
