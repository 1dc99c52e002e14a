package normalizer

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNormalize matches every normalization failure via errors.Is.
var ErrNormalize = errors.New("failed to normalize model response")

// Kinds reported to clients in the "type" field of an error response.
const (
	KindMalformedResponse = "MalformedResponseError"
	KindJSONSyntax        = "JsonSyntaxError"
	KindSchemaMismatch    = "SchemaMismatchError"
)

// MalformedResponseError: в ответе модели не найдены границы JSON объекта.
type MalformedResponseError struct {
	Raw string
}

func (e *MalformedResponseError) Error() string {
	return "malformed model response: missing opening or closing braces"
}

func (e *MalformedResponseError) Is(target error) bool { return target == ErrNormalize }

// JSONSyntaxError: после починки текст всё ещё не парсится. Cleaned хранит
// текст, который отдавали парсеру.
type JSONSyntaxError struct {
	Cleaned string
	Err     error
}

func (e *JSONSyntaxError) Error() string {
	return fmt.Sprintf("model response is not valid JSON after repair: %v", e.Err)
}

func (e *JSONSyntaxError) Unwrap() error { return e.Err }

func (e *JSONSyntaxError) Is(target error) bool { return target == ErrNormalize }

// SchemaMismatchError: JSON валиден, но обязательные поля отсутствуют или
// имеют неверный тип. Имена полей те, что запрашивал вызывающий.
type SchemaMismatchError struct {
	Missing  []string
	Mistyped []string
}

func (e *SchemaMismatchError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Mistyped) > 0 {
		parts = append(parts, "mistyped "+strings.Join(e.Mistyped, ", "))
	}
	return "model response does not match story schema: " + strings.Join(parts, "; ")
}

func (e *SchemaMismatchError) Is(target error) bool { return target == ErrNormalize }

// Kind returns the client-facing error type name, or "" for foreign errors.
func Kind(err error) string {
	var malformed *MalformedResponseError
	var syntax *JSONSyntaxError
	var schema *SchemaMismatchError
	switch {
	case errors.As(err, &malformed):
		return KindMalformedResponse
	case errors.As(err, &syntax):
		return KindJSONSyntax
	case errors.As(err, &schema):
		return KindSchemaMismatch
	default:
		return ""
	}
}

// Diagnostic returns the text that was being parsed when err happened.
func Diagnostic(err error) string {
	var malformed *MalformedResponseError
	var syntax *JSONSyntaxError
	switch {
	case errors.As(err, &syntax):
		return syntax.Cleaned
	case errors.As(err, &malformed):
		return malformed.Raw
	default:
		return ""
	}
}
