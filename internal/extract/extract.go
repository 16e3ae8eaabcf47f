// Package extract recovers structured JSON from free-form model output.
//
// Models wrap JSON in markdown fences, prepend chatty prose or append
// explanations. Extract strips the wrapping, locates the outermost array or
// object, parses it and validates it against a set of required fields. It is
// shared by every LLM provider so that the same quirks are handled the same
// way everywhere.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"langtutor/internal/models"
)

// Shape is the top-level JSON type the caller expects.
type Shape int

const (
	Array Shape = iota
	Object
)

func (s Shape) String() string {
	if s == Object {
		return "object"
	}
	return "array"
}

const (
	rawExcerptLimit     = 500
	attemptExcerptLimit = 200
	sampleSize          = 3
)

var (
	fenceRe     = regexp.MustCompile("(?s)```[A-Za-z0-9_+-]*[ \t]*\r?\n?(.*?)```")
	openFenceRe = regexp.MustCompile("^[A-Za-z0-9_+-]*[ \t]*\r?\n?")
)

// Options configures a single extraction.
type Options struct {
	Shape    Shape
	Required []string
	// MinCount is the number of valid array elements the caller needs.
	// Zero or less means any non-empty batch is acceptable.
	MinCount int
	// AllowPartial accepts 0 < valid < MinCount as a partial success.
	AllowPartial bool
	// Noun names the items in diagnostics ("words", "headlines").
	Noun string
	// SampleField is the field quoted in success diagnostics. Defaults to
	// the first required field.
	SampleField string
}

// Extraction is a validated payload.
type Extraction struct {
	Items  []map[string]any
	Object map[string]any
	// Produced counts the valid items in the response before trimming to
	// MinCount.
	Produced int
	Partial  bool
	Debug    string
}

// Extract parses raw model text according to opts. On failure the returned
// *models.Failure carries bounded excerpts of the raw text and of the
// substring that was handed to the JSON parser.
func Extract(raw string, opts Options) (Extraction, *models.Failure) {
	cleaned := StripFences(raw)
	candidate, _ := Locate(cleaned, opts.Shape)

	value, err := decode(candidate)
	if err != nil {
		return Extraction{}, &models.Failure{
			Kind:           models.ErrJSON,
			Debug:          fmt.Sprintf("JSON Parse Error: %v", err),
			RawResponse:    Truncate(raw, rawExcerptLimit),
			AttemptedParse: Truncate(candidate, attemptExcerptLimit),
		}
	}

	if opts.Shape == Object {
		return validateObject(raw, value, opts)
	}
	return validateArray(raw, value, opts)
}

// StripFences returns the body of the first fenced code block in text, or
// text itself when there is none. Both ```json and bare ``` fences are
// recognized. An unclosed fence keeps everything after the opening line.
func StripFences(text string) string {
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	i := strings.Index(text, "```")
	if i < 0 {
		return strings.TrimSpace(text)
	}
	rest := strings.TrimSpace(openFenceRe.ReplaceAllString(text[i+3:], ""))
	if rest == "" {
		// a lone trailing fence: the payload precedes it
		return strings.TrimSpace(text[:i])
	}
	return rest
}

// Locate returns the substring spanning the first opening and the last
// closing bracket for shape. When no such pair exists the text is returned
// unchanged and found is false.
func Locate(text string, shape Shape) (candidate string, found bool) {
	open, closing := "[", "]"
	if shape == Object {
		open, closing = "{", "}"
	}
	start := strings.Index(text, open)
	end := strings.LastIndex(text, closing)
	if start == -1 || end == -1 || end <= start {
		return text, false
	}
	return text[start : end+1], true
}

// Text renders field key of m as a string. Missing and null fields are empty.
func Text(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

func decode(s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("no JSON content found")
		}
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level JSON value")
	}
	return v, nil
}

func validateArray(raw string, value any, opts Options) (Extraction, *models.Failure) {
	noun := nounOf(opts)
	list, ok := value.([]any)
	if !ok {
		return Extraction{}, &models.Failure{
			Kind:        models.ErrValidation,
			Debug:       fmt.Sprintf("Expected a JSON array of %s, got %s", noun, kindOf(value)),
			RawResponse: Truncate(raw, rawExcerptLimit),
		}
	}

	valid := make([]map[string]any, 0, len(list))
	for _, el := range list {
		m, ok := el.(map[string]any)
		if !ok || !hasAll(m, opts.Required) {
			continue
		}
		valid = append(valid, m)
	}

	n := len(valid)
	want := opts.MinCount
	switch {
	case n == 0:
		return Extraction{}, &models.Failure{
			Kind:        models.ErrValidation,
			Debug:       "Generation failed - no valid JSON response",
			RawResponse: Truncate(raw, rawExcerptLimit),
		}
	case want <= 0 || n >= want:
		items := valid
		if want > 0 {
			items = valid[:want]
		}
		extra := ""
		if n > len(items) {
			extra = fmt.Sprintf(" Dropped %d extra.", n-len(items))
		}
		return Extraction{
			Items:    items,
			Produced: n,
			Debug: fmt.Sprintf("Successfully generated %d %s.%s Sample: %s...",
				len(items), noun, extra, sample(items, sampleField(opts))),
		}, nil
	case opts.AllowPartial:
		return Extraction{
			Items:    valid,
			Produced: n,
			Partial:  true,
			Debug: fmt.Sprintf("Generated only %d %s out of %d requested; returning partial batch. Sample: %s...",
				n, noun, want, sample(valid, sampleField(opts))),
		}, nil
	default:
		return Extraction{}, &models.Failure{
			Kind:        models.ErrValidation,
			Debug:       fmt.Sprintf("Generated only %d %s out of %d requested.", n, noun, want),
			RawResponse: Truncate(raw, rawExcerptLimit),
		}
	}
}

func validateObject(raw string, value any, opts Options) (Extraction, *models.Failure) {
	obj, ok := value.(map[string]any)
	if !ok {
		return Extraction{}, &models.Failure{
			Kind:        models.ErrValidation,
			Debug:       fmt.Sprintf("Expected a JSON object, got %s", kindOf(value)),
			RawResponse: Truncate(raw, rawExcerptLimit),
		}
	}
	for _, field := range opts.Required {
		if _, ok := obj[field]; !ok {
			return Extraction{}, &models.Failure{
				Kind:        models.ErrValidation,
				Debug:       fmt.Sprintf("Response is missing required field %q", field),
				RawResponse: Truncate(raw, rawExcerptLimit),
			}
		}
	}
	return Extraction{
		Object:   obj,
		Produced: 1,
		Debug:    fmt.Sprintf("Parsed %s with %d fields", nounOf(opts), len(obj)),
	}, nil
}

func hasAll(m map[string]any, fields []string) bool {
	for _, f := range fields {
		if _, ok := m[f]; !ok {
			return false
		}
	}
	return true
}

func sample(items []map[string]any, field string) string {
	n := min(sampleSize, len(items))
	out := make([]string, 0, n)
	for _, m := range items[:n] {
		out = append(out, Text(m, field))
	}
	return strings.Join(out, ", ")
}

func sampleField(opts Options) string {
	if opts.SampleField != "" {
		return opts.SampleField
	}
	if len(opts.Required) > 0 {
		return opts.Required[0]
	}
	return ""
}

func nounOf(opts Options) string {
	if opts.Noun != "" {
		return opts.Noun
	}
	if opts.Shape == Object {
		return "object"
	}
	return "items"
}

func kindOf(v any) string {
	switch v.(type) {
	case []any:
		return "an array"
	case map[string]any:
		return "an object"
	case string:
		return "a string"
	case json.Number:
		return "a number"
	case bool:
		return "a boolean"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}
