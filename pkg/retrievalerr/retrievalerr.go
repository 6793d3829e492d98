// Package retrievalerr defines the terminal error taxonomy the Orchestrator
// returns across its public boundary. Recoverable failures (reranker down,
// chunk fetch failed, theme LLM routing failed) never reach this package:
// their owning component logs and falls back locally.
package retrievalerr

import "fmt"

// Outcome is a terminal, user-visible failure kind.
type Outcome string

const (
	// QueryProcessingFailed — query normalization raised.
	QueryProcessingFailed Outcome = "query_processing_failed"
	// EmbeddingUnavailable — the embedder errored or timed out.
	EmbeddingUnavailable Outcome = "embedding_unavailable"
	// SearchFailed — both index legs failed.
	SearchFailed Outcome = "search_failed"
	// NoResults — fusion produced an empty list, with and without filter.
	NoResults Outcome = "no_results"
	// LLMUnavailable — a required downstream LLM call failed terminally.
	LLMUnavailable Outcome = "llm_unavailable"
	// Cancelled — the request's context was cancelled or its deadline passed.
	Cancelled Outcome = "cancelled"
	// InternalError — anything uncategorized.
	InternalError Outcome = "internal_error"
)

// userMessages holds the fixed, short user-facing message per outcome.
var userMessages = map[Outcome]string{
	QueryProcessingFailed: "We couldn't process that query. Try rephrasing it.",
	EmbeddingUnavailable:  "Search is temporarily unavailable. Please try again shortly.",
	SearchFailed:          "Search is temporarily unavailable. Please try again shortly.",
	NoResults:             "No results were found for that query.",
	LLMUnavailable:        "This feature is temporarily unavailable. Please try again shortly.",
	Cancelled:             "The request was cancelled.",
	InternalError:         "Something went wrong. Please try again.",
}

// Error is the single error type the Orchestrator returns. Component
// constructors never return this type for recoverable kinds.
type Error struct {
	Kind      Outcome
	Component string
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s: %s", e.Component, e.Operation, e.Message)
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage returns the fixed, localized-ready user-facing string for this
// outcome.
func (e *Error) UserMessage() string {
	if msg, ok := userMessages[e.Kind]; ok {
		return msg
	}
	return userMessages[InternalError]
}

// New constructs a terminal Error.
func New(kind Outcome, component, operation, message string, err error) *Error {
	return &Error{Kind: kind, Component: component, Operation: operation, Message: message, Err: err}
}
