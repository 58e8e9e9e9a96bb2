package provider

import (
	"strings"

	"gocode-grader/internal/models"
)

const (
	anthropicKeyPrefix = "sk-ant-"
	openAIKeyPrefix    = "sk-"
	minPrefixedKeyLen  = 20
	minGoogleKeyLen    = 30
	minGenericKeyLen   = 16
)

// ValidateAPIKey runs a superficial format check on a key. Only a network round trip is authoritative.
func ValidateAPIKey(key, apiKey string) bool {
	if key == OllamaKey {
		return true
	}
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return false
	}

	switch Classify(key) {
	case models.FamilyCustom:
		return true
	case models.FamilyClaude:
		return strings.HasPrefix(apiKey, anthropicKeyPrefix) && len(apiKey) >= minPrefixedKeyLen
	case models.FamilyOpenAI:
		return strings.HasPrefix(apiKey, openAIKeyPrefix) && len(apiKey) >= minPrefixedKeyLen
	case models.FamilyGemini:
		return len(apiKey) >= minGoogleKeyLen && isURLSafeToken(apiKey)
	default:
		return len(apiKey) >= minGenericKeyLen
	}
}

func isURLSafeToken(s string) bool {
	for _, r := range s {
		if !(r == '-' || r == '_' || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}
