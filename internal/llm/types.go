package llm

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged entry in a chat history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Provider identifies which backend serves a model.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderGoogle    Provider = "google"
)

// ModelSpec identifies a provider, model, and generation parameters.
// Immutable once constructed.
type ModelSpec struct {
	Name        string   `json:"name,omitempty"` // registry alias, informational
	Provider    Provider `json:"provider"`
	Model       string   `json:"model"`
	Temperature float64  `json:"temperature"`
	MaxTokens   int      `json:"max_tokens"`
}

// ID returns the provider-qualified model identifier.
func (s ModelSpec) ID() string {
	return string(s.Provider) + "/" + s.Model
}

// Usage holds token accounting reported by a provider, when available.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Response is a normalized successful generation.
type Response struct {
	Text  string `json:"text"`
	Model string `json:"model"`
	Usage *Usage `json:"usage,omitempty"`
}
