package models

// GenerateCardsRequest is the caller-facing contract for card generation.
type GenerateCardsRequest struct {
	Content    string          `json:"content"`
	Highlights []string        `json:"highlights"`
	Types      []string        `json:"types"`
	Difficulty string          `json:"difficulty"`
	NoCache    bool            `json:"no_cache"`
	FocusMode  string          `json:"focus_mode"`
	Timeline   []TimelineEvent `json:"timeline,omitempty"`
}

type GenerateCardsResponse struct {
	Cards []Card         `json:"cards"`
	Facts FactSet        `json:"facts"`
	Meta  GenerationMeta `json:"meta"`
}

type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Errors    []ValidationError `json:"errors,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
