package models

import "fmt"

// ErrorKind classifies why a client-layer operation failed.
type ErrorKind string

const (
	ErrTransport  ErrorKind = "transport_error"
	ErrJSON       ErrorKind = "json_error"
	ErrValidation ErrorKind = "validation_error"
	ErrNoAPIKey   ErrorKind = "no_api_key"
	ErrUnknown    ErrorKind = "unknown"
)

// Source is the provenance tag attached to every Result.
type Source string

const (
	SourceGenerated Source = "generated"
	SourcePartial   Source = "partial"
	SourceCached    Source = "cached"
	SourceNewsAPI   Source = "newsapi"
	SourceDatabase  Source = "database"
	SourceNoAPIKey  Source = "no_api_key"
	SourceJSONError Source = "json_error"
	SourceFailed    Source = "failed"
	SourceError     Source = "error"
)

// Failure is the diagnostic half of a Result. Debug is meant to be shown to
// the end user; RawResponse and AttemptedParse are bounded excerpts.
type Failure struct {
	Kind              ErrorKind `json:"kind"`
	Debug             string    `json:"debug"`
	RawResponse       string    `json:"raw_response,omitempty"`
	AttemptedParse    string    `json:"attempted_parse,omitempty"`
	SetupInstructions string    `json:"setup_instructions,omitempty"`
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Debug)
}

// Source maps the failure kind to the provenance tag reported to callers.
func (f *Failure) Source() Source {
	switch f.Kind {
	case ErrNoAPIKey:
		return SourceNoAPIKey
	case ErrJSON:
		return SourceJSONError
	case ErrValidation:
		return SourceFailed
	default:
		return SourceError
	}
}

// Result is the tagged outcome of a structured operation. Debug is populated
// on success and failure alike.
type Result[T any] struct {
	Value      T        `json:"value"`
	Source     Source   `json:"source"`
	Debug      string   `json:"debug"`
	Categories []string `json:"categories,omitempty"`
	Failure    *Failure `json:"error,omitempty"`
}

// OK reports whether the result carries a usable value.
func (r Result[T]) OK() bool { return r.Failure == nil }

// Ok builds a successful result.
func Ok[T any](value T, source Source, debug string) Result[T] {
	return Result[T]{Value: value, Source: source, Debug: debug}
}

// Fail builds a failed result from f.
func Fail[T any](f *Failure) Result[T] {
	return Result[T]{Source: f.Source(), Debug: f.Debug, Failure: f}
}
