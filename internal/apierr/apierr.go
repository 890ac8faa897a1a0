// Package apierr normalises every failure the backend can report into one
// typed error so callers branch on fields instead of message text.
package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies where a failure came from.
type Kind int

const (
	// KindValidation is a client-side schema failure; no request was sent.
	KindValidation Kind = iota + 1
	// KindRejected is a non-2xx backend answer with a readable body.
	KindRejected
	// KindUnauthorized is a 401: the session is missing or gone.
	KindUnauthorized
	// KindTransport covers network failures and non-JSON bodies.
	KindTransport
	// KindFormat is a 2xx answer whose body does not have the expected shape.
	KindFormat
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindRejected:
		return "rejected"
	case KindUnauthorized:
		return "unauthorized"
	case KindTransport:
		return "transport"
	case KindFormat:
		return "format"
	default:
		return "unknown"
	}
}

// CodeVerificationRequired is the machine code a backend may send when a
// login needs a second factor.
const CodeVerificationRequired = "verification_required"

// Error is the single error envelope used across the client.
type Error struct {
	Kind    Kind
	Status  int
	Code    string
	Message string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (%d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil && (e.Message == "" || e.Message != e.Err.Error()) {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage returns the text to show to a person, falling back to fallback.
func (e *Error) UserMessage(fallback string) string {
	if e.Message != "" {
		return e.Message
	}
	if len(e.Details) > 0 {
		return e.Details[0]
	}
	return fallback
}

// envelope covers every error shape the backend has been seen to send.
type envelope struct {
	Msg     json.RawMessage `json:"msg"`
	Message string          `json:"message"`
	Error   json.RawMessage `json:"error"`
	Code    json.RawMessage `json:"code"`
	Errors  []struct {
		Msg     string `json:"msg"`
		Message string `json:"message"`
	} `json:"errors"`
}

// Decode turns a non-2xx backend answer into an *Error.
func Decode(status int, body []byte) *Error {
	e := &Error{Kind: KindRejected, Status: status}
	if status == http.StatusUnauthorized {
		e.Kind = KindUnauthorized
	}

	var env envelope
	if len(strings.TrimSpace(string(body))) == 0 || json.Unmarshal(body, &env) != nil {
		if e.Kind != KindUnauthorized {
			e.Kind = KindTransport
		}
		e.Message = http.StatusText(status)
		return e
	}

	e.Message = firstNonEmpty(
		nestedMsg(env.Msg),
		env.Message,
		nestedMsg(env.Error),
	)
	e.Code = stringOrNumber(env.Code)
	for _, item := range env.Errors {
		if m := firstNonEmpty(item.Msg, item.Message); m != "" {
			e.Details = append(e.Details, m)
		}
	}
	if e.Message == "" && len(e.Details) > 0 {
		e.Message = e.Details[0]
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

// Transport wraps a network-level failure.
func Transport(err error) *Error {
	return &Error{Kind: KindTransport, Message: "request failed", Err: err}
}

// Format wraps a 2xx body that could not be read.
func Format(status int, err error) *Error {
	return &Error{Kind: KindFormat, Status: status, Message: "unexpected response format", Err: err}
}

// nestedMsg reads `"text"` or `{"msg":"text"}` or `{"message":"text"}`.
func nestedMsg(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var obj struct {
		Msg     string `json:"msg"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		return firstNonEmpty(obj.Msg, obj.Message)
	}
	return ""
}

func stringOrNumber(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var n json.Number
	if json.Unmarshal(raw, &n) == nil {
		return n.String()
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// As extracts an *Error from err.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the Kind of err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return 0
}

// IsUnauthorized reports a structured 401.
func IsUnauthorized(err error) bool {
	e, ok := As(err)
	return ok && (e.Kind == KindUnauthorized || e.Status == http.StatusUnauthorized)
}

// RequiresVerification reports whether a rejected login needs a second
// factor: the message carries the Spanish stem "verifica", or the backend
// sent CodeVerificationRequired. Any other code leaves the message check alone.
func RequiresVerification(err error) bool {
	e, ok := As(err)
	if !ok || e.Kind == KindTransport || e.Kind == KindValidation {
		return false
	}
	return e.Code == CodeVerificationRequired ||
		strings.Contains(strings.ToLower(e.Message), "verifica")
}

// IsExternalProvider reports a password change refused because the account
// was created through an OAuth provider.
func IsExternalProvider(err error) bool {
	e, ok := As(err)
	return ok && e.Status == http.StatusBadRequest &&
		strings.Contains(strings.ToLower(e.Message), "proveedor externo")
}
