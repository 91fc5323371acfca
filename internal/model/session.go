package model

import "time"

// Outcome is the terminal state of one discovery.
type Outcome int

const (
	// OutcomeNone means no discovery has finished yet.
	OutcomeNone Outcome = iota

	// OutcomeCompleted means a success response replaced the result.
	OutcomeCompleted

	// OutcomeCancelled means the discovery was cancelled before mutating
	// the result.
	OutcomeCancelled

	// OutcomeFailed means the discovery ended without mutating the result
	// because of a transport, framing or parse problem, or success:false.
	OutcomeFailed
)

// String returns a lowercase name for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFailed:
		return "failed"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Outcome) UnmarshalText(text []byte) error {
	*o = ParseOutcome(string(text))
	return nil
}

// ParseOutcome converts a stored outcome name back to an Outcome.
// Unknown names map to OutcomeNone.
func ParseOutcome(s string) Outcome {
	switch s {
	case "completed":
		return OutcomeCompleted
	case "cancelled":
		return OutcomeCancelled
	case "failed":
		return OutcomeFailed
	default:
		return OutcomeNone
	}
}

// Session carries one discovery and its follow-up state through the
// post-discovery pipeline.
type Session struct {
	// ID identifies the discovery run.
	ID string `json:"id"`

	// URL is the page that was discovered.
	URL string `json:"url"`

	// StartedAt is when the request was sent.
	StartedAt time.Time `json:"started_at"`

	// Duration is the wall time of the round-trip.
	Duration time.Duration `json:"duration"`

	// Outcome is how the discovery ended.
	Outcome Outcome `json:"outcome"`

	// BytesReceived is the size of the raw response.
	BytesReceived int `json:"bytes_received"`

	// Error is the failure message, if any.
	Error string `json:"error,omitempty"`

	// Result is the discovered elements.
	Result Result `json:"result"`

	// ConfigName is the entry that supplied the link configuration.
	// Empty when no entry exists for the URL.
	ConfigName string `json:"config_name,omitempty"`

	// Config is the resolved link configuration for URL.
	Config LinkConfig `json:"config"`

	// SimilarConfig names an existing entry with the same normalized URL,
	// offered as a suggestion when URL has no entry of its own.
	SimilarConfig string `json:"similar_config,omitempty"`

	// Warnings collects non-fatal problems from pipeline steps.
	Warnings []string `json:"warnings,omitempty"`

	// Steps lists the pipeline steps that ran, in order.
	Steps []string `json:"steps,omitempty"`
}

// NewSession creates a session for url.
func NewSession(id, url string) *Session {
	return &Session{
		ID:     id,
		URL:    url,
		Config: EmptyConfig(),
	}
}

// Succeeded reports whether the discovery completed.
func (s *Session) Succeeded() bool {
	return s.Outcome == OutcomeCompleted
}

// AddWarning records a non-fatal problem.
func (s *Session) AddWarning(msg string) {
	s.Warnings = append(s.Warnings, msg)
}
