package ollama

import (
	"testing"

	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gocode-grader/internal/models"
	"gocode-grader/internal/provider"
)

func chunkOf(text string, done bool) api.GenerateResponse {
	return api.GenerateResponse{Response: text, Done: done}
}

func TestBuildGeneratePayload(t *testing.T) {
	t.Parallel()

	req, err := BuildGeneratePayload("gemma2:9b", models.Prompt{System: "sys", User: "usr", MaxTokens: 1024}, false)
	require.NoError(t, err)
	assert.Equal(t, "gemma2:9b", req.Model)
	assert.Equal(t, "sys\n\nusr", req.Prompt)
	require.NotNil(t, req.Stream)
	assert.False(t, *req.Stream)
	assert.Equal(t, 40, req.Options["top_k"])
	assert.Equal(t, 1024, req.Options["num_predict"])

	streamed, err := BuildGeneratePayload("llama3", models.Prompt{User: "usr"}, true)
	require.NoError(t, err)
	assert.True(t, *streamed.Stream)

	_, err = BuildGeneratePayload("llama3", models.Prompt{}, false)
	assert.Error(t, err)
}

func TestStrategy_Headers(t *testing.T) {
	t.Parallel()

	h := Strategy().Headers("ignored", "")
	assert.Empty(t, h.Get("Authorization"))
	assert.Equal(t, "application/json", h.Get("Content-Type"))
}

func TestStrategy_Extract(t *testing.T) {
	t.Parallel()

	got, err := Strategy().Extract([]byte(`{"model":"qwen2.5-coder","response":"`+"```"+`js\nlet a","done":true}`), "llama3")
	require.NoError(t, err)
	assert.Equal(t, "```js\nlet a\n```", got)

	got, err = Strategy().Extract([]byte(`{"response":"plain *text","done":true}`), "mistral")
	require.NoError(t, err)
	assert.Equal(t, "plain *text", got)

	_, err = Strategy().Extract([]byte(`{"done":true}`), "llama3")
	assert.ErrorIs(t, err, provider.ErrMalformedResponse)
}

func TestTagsURL(t *testing.T) {
	t.Parallel()

	got, err := TagsURL("http://localhost:11434/api/generate")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:11434/api/tags", got)

	got, err = TagsURL("http://gpu:8080/api/generate?x=1")
	require.NoError(t, err)
	assert.Equal(t, "http://gpu:8080/api/tags", got)
}
