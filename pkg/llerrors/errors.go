package llerrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure of the search pipeline.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindAuthentication Kind = "authentication"
	KindTransport      Kind = "transport"
	KindBackend        Kind = "backend"
	KindParse          Kind = "parse"
	KindInternal       Kind = "internal"
)

// KindTitles provides human-readable headings for each error kind.
var KindTitles = map[Kind]string{
	KindValidation:     "Invalid search request",
	KindAuthentication: "Could not sign in to Livelink",
	KindTransport:      "Could not reach Livelink",
	KindBackend:        "Livelink reported an error",
	KindParse:          "Could not parse the Livelink response",
	KindInternal:       "Unexpected error",
}

// Error is a classified pipeline failure.
type Error struct {
	Kind    Kind
	Message string
	// Detail is diagnostic text for the HTML error page; never shown in hits.
	Detail string
	// StatusCode and URL are set for transport failures.
	StatusCode int
	URL        string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Title returns the heading used when presenting the error.
func (e *Error) Title() string {
	if title, ok := KindTitles[e.Kind]; ok {
		return title
	}
	return KindTitles[KindInternal]
}

// Validation reports a missing or invalid inbound parameter.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Authentication reports a failed login against the backend.
func Authentication(message string, err error) *Error {
	return &Error{Kind: KindAuthentication, Message: message, Err: err}
}

// Transport reports a non-200 backend response or a connection failure.
func Transport(statusCode int, targetURL string, err error) *Error {
	msg := fmt.Sprintf("request to %s failed", targetURL)
	if statusCode != 0 {
		msg = fmt.Sprintf("request to %s returned HTTP %d %s", targetURL, statusCode, http.StatusText(statusCode))
	}
	return &Error{Kind: KindTransport, Message: msg, StatusCode: statusCode, URL: targetURL, Err: err}
}

// Backend reports an application-level error embedded in a 200 OK response.
func Backend(message string) *Error {
	return &Error{Kind: KindBackend, Message: message}
}

// Parse reports a response body that is not the expected XML document.
func Parse(detail string, err error) *Error {
	return &Error{Kind: KindParse, Message: "could not parse backend response", Detail: detail, Err: err}
}

// As extracts a classified error, wrapping unknown errors as internal ones.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var llErr *Error
	if errors.As(err, &llErr) {
		return llErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTransport, Message: "backend request timed out", Err: err}
	}
	return &Error{Kind: KindInternal, Message: err.Error(), Err: err}
}

// KindOf returns the kind of err, or an empty kind for nil.
func KindOf(err error) Kind {
	if llErr := As(err); llErr != nil {
		return llErr.Kind
	}
	return ""
}

// PublicMessage is the message shown to clients: the error text without wrapped causes
// for backend errors, so that "Login failed" reaches the client verbatim.
func PublicMessage(err error) string {
	llErr := As(err)
	if llErr == nil {
		return ""
	}
	if llErr.Message != "" {
		return llErr.Message
	}
	return llErr.Error()
}
