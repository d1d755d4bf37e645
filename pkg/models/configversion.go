package models

import "time"

// ConfigPayload holds the prompt and model parameters used to evaluate a
// dimension. Payloads are opaque to the orchestrator; it only passes them to
// analysis units.
type ConfigPayload struct {
	// SystemPrompt frames the analysis unit's role
	SystemPrompt string `json:"system_prompt" yaml:"system_prompt"`

	// PromptTemplate is rendered with the document and reviewer instructions
	PromptTemplate string `json:"prompt_template" yaml:"prompt_template"`

	// Model is the model identifier to use
	Model string `json:"model" yaml:"model"`

	// Temperature for the model call
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// MaxTokens caps the model response
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`
}

// ConfigVersion is one historical snapshot of the configuration for a key.
// Versions are append-only; at most one version per key is active at any time.
type ConfigVersion struct {
	// ID of this version
	ID string `json:"id"`

	// Key is the dimension id or global setting name this version configures
	Key string `json:"key"`

	// Payload is the configuration content
	Payload ConfigPayload `json:"payload"`

	// CreatedBy is the actor who appended this version
	CreatedBy string `json:"created_by"`

	// CreatedAt is when this version was appended
	CreatedAt time.Time `json:"created_at"`

	// Active marks the single version currently in effect for the key
	Active bool `json:"active"`
}
