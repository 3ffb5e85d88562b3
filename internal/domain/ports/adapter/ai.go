package adapter

import "context"

// Message is the transport-neutral chat message shared by AI adapters.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AIServiceAdapter generates the end-of-conversation summary. Providers are
// interchangeable; selection happens in the composition root.
type AIServiceAdapter interface {
	Chat(ctx context.Context, model string, messages []Message) (string, error)
	// CountTokens estimates prompt size so callers can trim history before
	// sending it to the provider.
	CountTokens(ctx context.Context, model string, messages []Message) (int, error)
}
