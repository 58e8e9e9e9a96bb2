package ollama

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestProfileFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		model  string
		family FamilyKey
		repair RepairStrategy
	}{
		{"gemma2:9b", FamilyGemma, RepairTolerant},
		{"GEMMA:2b", FamilyGemma, RepairTolerant},
		{"qwen2.5-coder:7b", FamilyQwen, RepairCodeAware},
		{"deepseek-coder-v2", FamilyDeepSeek, RepairCodeAware},
		{"deepseek-r1:8b-llama-distill", FamilyDeepSeek, RepairCodeAware},
		{"deepseek-r1:7b-qwen-distill", FamilyDeepSeek, RepairCodeAware},
		{"llama3.1:8b", FamilyLlama, RepairTolerant},
		{"codellama", FamilyLlama, RepairTolerant},
		{"mistral:7b", FamilyMistral, RepairNone},
		{"mixtral:8x7b", FamilyMistral, RepairNone},
		{"phi3", FamilyDefault, RepairNone},
		{"", FamilyDefault, RepairNone},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			t.Parallel()
			p := ProfileFor(tt.model)
			assert.Equal(t, tt.family, p.Family)
			assert.Equal(t, tt.repair, p.Repair)
			assert.Equal(t, tt.repair != RepairNone, p.RequiresRepair)
			assert.Equal(t, "response", p.ResponseField)
		})
	}
}

func TestProfile_Options(t *testing.T) {
	t.Parallel()

	gemma := ProfileFor("gemma2").Options(1024)
	assert.Equal(t, 0.1, gemma["temperature"])
	assert.Equal(t, 0.9, gemma["top_p"])
	assert.Equal(t, 40, gemma["top_k"])
	assert.Equal(t, 1024, gemma["num_predict"])

	qwen := ProfileFor("qwen2.5").Options(0)
	assert.Equal(t, 8192, qwen["num_ctx"])
	assert.NotContains(t, qwen, "num_predict")

	llama := ProfileFor("llama3").Options(10)
	assert.Equal(t, 1.1, llama["repeat_penalty"])

	def := ProfileFor("phi3").Options(10)
	assert.Equal(t, 0.2, def["temperature"])
	assert.Equal(t, 0.95, def["top_p"])
	assert.Len(t, def, 3)
}

func TestProfile_OptionsDoNotLeak(t *testing.T) {
	t.Parallel()

	first := ProfileFor("mistral").Options(5)
	first["temperature"] = 9.0

	again := ProfileFor("mistral").Options(5)
	assert.Equal(t, 0.3, again["temperature"])
	assert.Equal(t, 0.95, ProfileFor("phi3").Options(5)["top_p"])
}
