package domain

// ChatMessage is the provider-agnostic chat message shape used by the LLM
// integrations.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is one outbound call to the hosted language model. Message
// is the latest user turn; History carries only the bounded window of prior
// turns the caller chose to forward.
type CompletionRequest struct {
	SystemInstruction string
	Message           string
	History           []Message
}

// CompletionResponse is the model's reply to a CompletionRequest.
type CompletionResponse struct {
	Text string
}
