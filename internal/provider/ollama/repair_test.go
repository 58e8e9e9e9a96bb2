package ollama

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRepair(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		strategy RepairStrategy
		in       string
		want     string
	}{
		{name: "none leaves text", strategy: RepairNone, in: "```js\nlet a", want: "```js\nlet a"},
		{name: "code-aware closes fence", strategy: RepairCodeAware, in: "Fix:\n```js\nlet a = 1;", want: "Fix:\n```js\nlet a = 1;\n```"},
		{name: "code-aware keeps trailing newline", strategy: RepairCodeAware, in: "```go\nx := 1\n", want: "```go\nx := 1\n```"},
		{name: "code-aware balanced", strategy: RepairCodeAware, in: "```js\nok\n```", want: "```js\nok\n```"},
		{name: "code-aware ignores emphasis", strategy: RepairCodeAware, in: "**bold", want: "**bold"},
		{name: "tolerant closes fence", strategy: RepairTolerant, in: "```js\nlet a", want: "```js\nlet a\n```"},
		{name: "tolerant closes bold", strategy: RepairTolerant, in: "**Verdict: pass", want: "**Verdict: pass**"},
		{name: "tolerant closes italics", strategy: RepairTolerant, in: "this is *almost", want: "this is *almost*"},
		{name: "tolerant closes inline code", strategy: RepairTolerant, in: "use `map", want: "use `map`"},
		{name: "tolerant ignores bullets", strategy: RepairTolerant, in: "* one\n* two", want: "* one\n* two"},
		{name: "tolerant ignores closed code blocks", strategy: RepairTolerant, in: "```js\nconst a = `x\n```\ndone", want: "```js\nconst a = `x\n```\ndone"},
		{name: "tolerant balanced", strategy: RepairTolerant, in: "**ok** and *fine* and `x`", want: "**ok** and *fine* and `x`"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Repair(tt.strategy, tt.in))
		})
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "```js\nx\n```", Normalize("qwen2.5-coder", "```js\nx"))
	assert.Equal(t, "**bold**", Normalize("gemma2", "**bold"))
	assert.Equal(t, "```js\nx", Normalize("mistral", "```js\nx"))
	assert.Equal(t, "```js\nx", Normalize("phi3", "```js\nx"))

	// Stateless: the same fragment twice yields the same output.
	assert.Equal(t, Normalize("llama3", "*a"), Normalize("llama3", "*a"))
}
