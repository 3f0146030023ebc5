package domain

import "context"

// GenerateRequest is the payload sent to the external inference collaborator.
type GenerateRequest struct {
	SystemPrompt string `json:"system_prompt"`
	UserText     string `json:"user_text"`
	ModelHint    string `json:"model_hint,omitempty"`
}

// GenerateResult is what the inference collaborator returns.
type GenerateResult struct {
	Content    string  `json:"content"`
	TokensUsed int     `json:"tokens_used"`
	Cost       float64 `json:"cost"`
	ModelUsed  string  `json:"model_used"`
}

// InferenceService is the external large-language-model collaborator.
// It may fail or time out; callers must handle both.
type InferenceService interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
	Name() string
}

// NotificationSink receives alerts for out-of-band delivery.
// Publishing is fire-and-forget from the caller's perspective: failures
// are logged and must never block the response path.
type NotificationSink interface {
	Publish(ctx context.Context, alert Alert) error
	Name() string
}
