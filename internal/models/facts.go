package models

// Fact is a single extracted statement about the source content.
type Fact struct {
	Type      string `json:"type"`
	Statement string `json:"statement"`
}

// TimelineEvent keeps its entry even without a numeric year; only entries
// with Year set participate in chronological ordering.
type TimelineEvent struct {
	Year  *int   `json:"year,omitempty"`
	Label string `json:"label"`
}

type Triple struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
}

// FactSet is the canonical intermediate representation produced by fact
// normalization and consumed by card generation.
type FactSet struct {
	Entities []string        `json:"entities"`
	Facts    []Fact          `json:"facts"`
	Timeline []TimelineEvent `json:"timeline"`
	Triples  []Triple        `json:"triples"`
}

// ValidationError is one structured finding from the validation engine.
// CardIndex is -1 for payload-level errors that are not tied to a card.
type ValidationError struct {
	Code      string                 `json:"code"`
	CardIndex int                    `json:"card_index"`
	Message   string                 `json:"message"`
	Stage     string                 `json:"stage,omitempty"`
	Meta      map[string]interface{} `json:"meta,omitempty"`
}

// GenerationMeta reports accounting for one pipeline run.
type GenerationMeta struct {
	Cached    bool  `json:"cached"`
	TokensIn  int   `json:"tokens_in"`
	TokensOut int   `json:"tokens_out"`
	LatencyMs int64 `json:"latency_ms"`
}
