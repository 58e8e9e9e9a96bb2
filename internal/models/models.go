package models

import "encoding/json"

// Family identifies the request/response dialect a provider speaks.
type Family string

const (
	FamilyClaude  Family = "claude"
	FamilyOpenAI  Family = "openai"
	FamilyGemini  Family = "gemini"
	FamilyOllama  Family = "ollama"
	FamilyCustom  Family = "custom"
	FamilyGeneric Family = "generic"
)

// Descriptor is a statically registered provider.
type Descriptor struct {
	Key          string
	Endpoint     string
	DefaultModel string
	Family       Family
}

// GradeRequest carries everything needed to grade one code submission.
type GradeRequest struct {
	Provider             string
	APIKey               string
	ChallengeDescription string
	SectionTitle         string
	Code                 string
	Version              string
	CustomModel          string
	CustomEndpoint       string
	CustomHeaders        string
}

// ConnectionRequest is the subset of GradeRequest used to check credentials.
type ConnectionRequest struct {
	Provider       string
	APIKey         string
	CustomModel    string
	CustomEndpoint string
	CustomHeaders  string
	Version        string
}

// AsGradeRequest lifts a connection request into a grade request without challenge content.
func (r ConnectionRequest) AsGradeRequest() GradeRequest {
	return GradeRequest{
		Provider:       r.Provider,
		APIKey:         r.APIKey,
		Version:        r.Version,
		CustomModel:    r.CustomModel,
		CustomEndpoint: r.CustomEndpoint,
		CustomHeaders:  r.CustomHeaders,
	}
}

// Prompt is the rendered instruction pair sent to a model.
type Prompt struct {
	System    string
	User      string
	MaxTokens int
}

// Combined joins system and user text for vendors that take a single prompt.
func (p Prompt) Combined() string {
	if p.System == "" {
		return p.User
	}
	return p.System + "\n\n" + p.User
}

// ProxyEnvelope is the payload posted to the same-origin proxy.
type ProxyEnvelope struct {
	Target  string            `json:"target" validate:"required,url"`
	Data    json.RawMessage   `json:"data" validate:"required"`
	Headers map[string]string `json:"headers"`
}
