package domain

import "time"

// AdviceRequest is the POST body for /v1/advice.
type AdviceRequest struct {
	Query          string `json:"query"`
	ConversationID string `json:"conversationId,omitempty"`
}

// AdviceResponse is what the BFF returns to the chat UI.
type AdviceResponse struct {
	ConversationID string `json:"conversationId"`
	Answer         string `json:"answer"`
	Fallback       bool   `json:"fallback"`
	Timestamp      string `json:"timestamp"`
}

// AgentRequest is the payload sent to the advice-generation API.
// Records are trimmed to the most recent entries before sending.
type AgentRequest struct {
	Query   string    `json:"query"`
	Prompt  string    `json:"prompt"`
	Records []Expense `json:"records,omitempty"`
}

// AgentResponse holds the advice API's structured response.
type AgentResponse struct {
	Answer     string    `json:"answer"`
	TokensUsed int       `json:"tokens_used,omitempty"`
	Timestamp  time.Time `json:"timestamp,omitempty"`
}
