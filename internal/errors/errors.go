// Package errors provides custom error types for the document chat client.
package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// FallbackDetail is shown when the remote gives no structured failure detail
const FallbackDetail = "Connection failed. Check your API limits."

// Sentinel errors for common cases
var (
	ErrTransport           = errors.New("transport error")
	ErrEmptyDocument       = errors.New("document is empty")
	ErrUnsupportedDocument = errors.New("unsupported document type")
	ErrDocumentTooLarge    = errors.New("document exceeds maximum size")
	ErrMissingAPIKey       = errors.New("no API key configured")
	ErrClientClosed        = errors.New("client is closed")
)

// Kind classifies where a transport failure happened
type Kind int

const (
	KindNetwork Kind = iota
	KindStatus
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindStatus:
		return "status"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// TransportError is the failure of a remote call: the request did not reach the
// server, the server answered with a non-2xx status, or the body could not be decoded.
type TransportError struct {
	Kind       Kind
	Op         string
	Endpoint   string
	StatusCode int
	Detail     string // human-readable message, empty when the remote gave none
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	detail := e.Detail
	if detail == "" && e.Err != nil {
		detail = e.Err.Error()
	}
	if detail == "" {
		detail = FallbackDetail
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s failed [%d]: %s", e.Op, e.StatusCode, detail)
	}
	return fmt.Sprintf("%s failed: %s", e.Op, detail)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is allows comparison with sentinel errors
func (e *TransportError) Is(target error) bool {
	if target == ErrTransport {
		return true
	}
	_, ok := target.(*TransportError)
	return ok
}

// NewNetworkError wraps a failure to reach the endpoint
func NewNetworkError(op, endpoint string, err error) *TransportError {
	return &TransportError{
		Kind:     KindNetwork,
		Op:       op,
		Endpoint: endpoint,
		Err:      err,
	}
}

// NewStatusError builds an error for a non-2xx response. The detail is taken from the
// JSON "message" field when the body has one.
func NewStatusError(op, endpoint string, statusCode int, body string) *TransportError {
	return &TransportError{
		Kind:       KindStatus,
		Op:         op,
		Endpoint:   endpoint,
		StatusCode: statusCode,
		Detail:     messageFromBody(body),
		Body:       body,
	}
}

// NewDecodeError builds an error for a 2xx response whose body is malformed
func NewDecodeError(op, endpoint, body, message string) *TransportError {
	return &TransportError{
		Kind:     KindDecode,
		Op:       op,
		Endpoint: endpoint,
		Body:     body,
		Err:      errors.New(message),
	}
}

func messageFromBody(body string) string {
	if !gjson.Valid(body) {
		return ""
	}
	msg := gjson.Get(body, "message")
	if msg.Type != gjson.String {
		return ""
	}
	return strings.TrimSpace(msg.String())
}

// Detail returns the human-readable detail of a failure, falling back to a generic
// connection message when the remote provided none.
func Detail(err error) string {
	if err == nil {
		return ""
	}
	var te *TransportError
	if errors.As(err, &te) {
		if te.Detail != "" {
			return te.Detail
		}
		return FallbackDetail
	}
	return err.Error()
}

// GetHTTPStatus returns the HTTP status carried by err, or 0
func GetHTTPStatus(err error) int {
	var te *TransportError
	if errors.As(err, &te) {
		return te.StatusCode
	}
	return 0
}

// GetEndpoint returns the endpoint carried by err, or ""
func GetEndpoint(err error) string {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Endpoint
	}
	return ""
}

// GetResponseBody returns the raw response body carried by err, or ""
func GetResponseBody(err error) string {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Body
	}
	return ""
}

// IsTransportError checks if err is a transport failure
func IsTransportError(err error) bool {
	return errors.Is(err, ErrTransport)
}

// IsNetworkError checks if err is a failure to reach the endpoint
func IsNetworkError(err error) bool {
	return isKind(err, KindNetwork)
}

// IsDecodeError checks if err is a malformed response
func IsDecodeError(err error) bool {
	return isKind(err, KindDecode)
}

// IsAuthError checks if the remote rejected the credential
func IsAuthError(err error) bool {
	status := GetHTTPStatus(err)
	return status == 401 || status == 403
}

// IsRateLimitError checks if the remote throttled the request
func IsRateLimitError(err error) bool {
	return GetHTTPStatus(err) == 429
}

func isKind(err error, kind Kind) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Kind == kind
	}
	return false
}
