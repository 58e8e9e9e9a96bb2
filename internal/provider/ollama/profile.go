package ollama

import (
	"maps"
	"strings"
)

// FamilyKey names a local model family.
type FamilyKey string

const (
	FamilyGemma    FamilyKey = "gemma"
	FamilyQwen     FamilyKey = "qwen"
	FamilyDeepSeek FamilyKey = "deepseek"
	FamilyLlama    FamilyKey = "llama"
	FamilyMistral  FamilyKey = "mistral"
	FamilyDefault  FamilyKey = "default"
)

// RepairStrategy selects how truncated Markdown is closed.
type RepairStrategy string

const (
	RepairNone      RepairStrategy = "none"
	RepairTolerant  RepairStrategy = "tolerant"
	RepairCodeAware RepairStrategy = "code-aware"
)

const responseField = "response"

// Profile holds the generation parameters and text repair behaviour of a model family.
type Profile struct {
	Family         FamilyKey
	ResponseField  string
	RequiresRepair bool
	Repair         RepairStrategy
	options        map[string]any
}

type matcher struct {
	needles []string
	profile Profile
}

// Checked in order; deepseek distills carry "llama" or "qwen" in their tags.
var matchers = []matcher{
	{needles: []string{"deepseek"}, profile: Profile{
		Family: FamilyDeepSeek, ResponseField: responseField, RequiresRepair: true, Repair: RepairCodeAware,
		options: map[string]any{"temperature": 0.1, "top_p": 0.95, "num_ctx": 8192},
	}},
	{needles: []string{"gemma"}, profile: Profile{
		Family: FamilyGemma, ResponseField: responseField, RequiresRepair: true, Repair: RepairTolerant,
		options: map[string]any{"temperature": 0.1, "top_p": 0.9, "top_k": 40},
	}},
	{needles: []string{"qwen"}, profile: Profile{
		Family: FamilyQwen, ResponseField: responseField, RequiresRepair: true, Repair: RepairCodeAware,
		options: map[string]any{"temperature": 0.2, "top_p": 0.95, "num_ctx": 8192},
	}},
	{needles: []string{"mistral", "mixtral"}, profile: Profile{
		Family: FamilyMistral, ResponseField: responseField, Repair: RepairNone,
		options: map[string]any{"temperature": 0.3, "top_p": 0.9},
	}},
	{needles: []string{"llama"}, profile: Profile{
		Family: FamilyLlama, ResponseField: responseField, RequiresRepair: true, Repair: RepairTolerant,
		options: map[string]any{"temperature": 0.2, "top_p": 0.9, "repeat_penalty": 1.1},
	}},
}

var defaultProfile = Profile{
	Family:        FamilyDefault,
	ResponseField: responseField,
	Repair:        RepairNone,
}

var baselineOptions = map[string]any{
	"temperature": 0.2,
	"top_p":       0.95,
}

// ProfileFor classifies a model name by case-insensitive substring match.
func ProfileFor(model string) Profile {
	name := strings.ToLower(model)
	for _, m := range matchers {
		for _, needle := range m.needles {
			if strings.Contains(name, needle) {
				return m.profile
			}
		}
	}
	return defaultProfile
}

// Options returns the generation options: baseline values overridden by the family, plus num_predict.
func (p Profile) Options(maxTokens int) map[string]any {
	opts := maps.Clone(baselineOptions)
	maps.Copy(opts, p.options)
	if maxTokens > 0 {
		opts["num_predict"] = maxTokens
	}
	return opts
}
