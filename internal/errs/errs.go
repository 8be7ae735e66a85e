package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a run failure
type Kind string

const (
	KindUnknown            Kind = ""
	KindConfiguration      Kind = "configuration"
	KindSourceUnavailable  Kind = "source_unavailable"
	KindSourceData         Kind = "source_data"
	KindNormalization      Kind = "normalization"
	KindEmptyResult        Kind = "empty_result"
	KindSubmissionRejected Kind = "submission_rejected"
	KindTransport          Kind = "transport"
)

// BodyExcerptLimit caps the response body kept on transport errors
const BodyExcerptLimit = 500

// Error is a classified failure. StatusCode and Body are only set for
// transport errors that received a response.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(" error")
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if e.Body != "" {
		b.WriteString("\nresponse body: ")
		b.WriteString(e.Body)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an error of the given kind
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an error of the given kind wrapping err
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// Transport builds a transport error for an unexpected HTTP status
func Transport(statusCode int, body string) *Error {
	return &Error{
		Kind:       KindTransport,
		Message:    "unexpected response from webhook",
		StatusCode: statusCode,
		Body:       Excerpt(body, BodyExcerptLimit),
	}
}

// KindOf returns the kind of the first *Error in err's chain
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Excerpt returns the first max characters of s
func Excerpt(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	return string(r[:max])
}
