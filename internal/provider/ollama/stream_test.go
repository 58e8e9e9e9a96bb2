package ollama

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const streamBody = `{"model":"qwen2.5-coder","response":"Here is ","done":false}
{"model":"qwen2.5-coder","response":"the fix:\n` + "```" + `js\n","done":false}
{"model":"qwen2.5-coder","response":"let a = 1;","done":false}
{"model":"qwen2.5-coder","response":"","done":true,"done_reason":"length"}
`

func TestDecoder_ReassemblesSplitLines(t *testing.T) {
	t.Parallel()

	// OneByteReader splits every line across many reads.
	dec := NewDecoder(iotest.OneByteReader(strings.NewReader(streamBody)))

	var parts []string
	for {
		chunk, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		parts = append(parts, chunk.Response)
		if chunk.Done {
			assert.Equal(t, "length", chunk.DoneReason)
		}
	}
	assert.Equal(t, []string{"Here is ", "the fix:\n```js\n", "let a = 1;", ""}, parts)
}

func TestDecoder_LastLineWithoutNewline(t *testing.T) {
	t.Parallel()

	dec := NewDecoder(strings.NewReader(`{"response":"a","done":false}` + "\n\n" + `{"response":"b","done":true}`))

	first, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, "a", first.Response)

	second, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, "b", second.Response)
	assert.True(t, second.Done)

	_, err = dec.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecoder_Errors(t *testing.T) {
	t.Parallel()

	_, err := NewDecoder(strings.NewReader(`{"error":"model 'x' not found"}` + "\n")).Next()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model 'x' not found")

	_, err = NewDecoder(strings.NewReader("{not json}\n")).Next()
	assert.Error(t, err)
}

func TestCollect_RepairsOnceAtEnd(t *testing.T) {
	t.Parallel()

	var seen []string
	text, err := Collect(iotest.HalfReader(strings.NewReader(streamBody)), "qwen2.5-coder", func(s string) error {
		seen = append(seen, s)
		return nil
	})
	require.NoError(t, err)

	// Fragments are delivered raw; only the joined text is repaired.
	assert.Equal(t, []string{"Here is ", "the fix:\n```js\n", "let a = 1;"}, seen)
	assert.Equal(t, "Here is the fix:\n```js\nlet a = 1;\n```", text)
}

func TestCollect_StopsOnCallbackError(t *testing.T) {
	t.Parallel()

	stop := errors.New("client went away")
	_, err := Collect(strings.NewReader(streamBody), "llama3", func(string) error { return stop })
	assert.ErrorIs(t, err, stop)
}

func TestCollect_IgnoresDataAfterDone(t *testing.T) {
	t.Parallel()

	body := `{"response":"ok","done":true}` + "\n" + `garbage`
	text, err := Collect(strings.NewReader(body), "phi3", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
}

func TestAccumulator(t *testing.T) {
	t.Parallel()

	acc := NewAccumulator("gemma2")
	assert.False(t, acc.Done())
	acc.Add(chunkOf("**Verdict", false))
	acc.Add(chunkOf(": pass", true))
	assert.True(t, acc.Done())
	assert.Equal(t, "**Verdict: pass**", acc.Text())
}
