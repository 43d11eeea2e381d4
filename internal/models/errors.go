package models

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the detector, normalizer, scraper and importer.
var (
	ErrAccessDenied        = errors.New("access denied")
	ErrNotFound            = errors.New("not found")
	ErrSchemaNotRecognized = errors.New("schema not recognized")
	ErrMalformedPayload    = errors.New("malformed payload")
	ErrMalformedItem       = errors.New("malformed item")
	ErrNetwork             = errors.New("network error")
)

// AccessDeniedError reports a password-protected set, a private set or a
// captcha challenge.
type AccessDeniedError struct {
	Captcha bool
	Status  int
}

func (e *AccessDeniedError) Error() string {
	if e.Captcha {
		return "access denied: blocked by a captcha challenge"
	}
	return "access denied: set is private or password protected"
}

func (e *AccessDeniedError) Unwrap() error { return ErrAccessDenied }

// NotFoundError reports an HTTP 404 for a set URL.
type NotFoundError struct {
	URL string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s", e.URL)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// MalformedPayloadError reports an embedded payload that could not be decoded.
type MalformedPayloadError struct {
	Detail string
	Err    error
}

func (e *MalformedPayloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed payload: %s: %v", e.Detail, e.Err)
	}
	return fmt.Sprintf("malformed payload: %s", e.Detail)
}

func (e *MalformedPayloadError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrMalformedPayload, e.Err}
	}
	return []error{ErrMalformedPayload}
}

// MalformedItemError names the item and the field that a recognized payload
// was missing.
type MalformedItemError struct {
	ItemID string
	Field  string
}

func (e *MalformedItemError) Error() string {
	return fmt.Sprintf("malformed item %q: missing %s", e.ItemID, e.Field)
}

func (e *MalformedItemError) Unwrap() error { return ErrMalformedItem }

// NetworkError reports a transport failure or an unexpected HTTP status.
type NetworkError struct {
	Detail string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("network error: %s: status %d", e.Detail, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("network error: %s: %v", e.Detail, e.Err)
	default:
		return fmt.Sprintf("network error: %s", e.Detail)
	}
}

func (e *NetworkError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrNetwork, e.Err}
	}
	return []error{ErrNetwork}
}

// SchemaError reports a rich-text node whose type is not Text or a known
// container.
type SchemaError struct {
	Path string
	Tag  string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error at %s: unrecognized node type %q", e.Path, e.Tag)
}

func (e *SchemaError) Unwrap() error { return ErrMalformedPayload }

// ErrorKind is the classification surfaced to the collaborator.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindAccessDenied
	KindNotFound
	KindSchemaNotRecognized
	KindMalformedPayload
	KindMalformedItem
	KindNetwork
)

func (k ErrorKind) String() string {
	switch k {
	case KindAccessDenied:
		return "access_denied"
	case KindNotFound:
		return "not_found"
	case KindSchemaNotRecognized:
		return "schema_not_recognized"
	case KindMalformedPayload:
		return "malformed_payload"
	case KindMalformedItem:
		return "malformed_item"
	case KindNetwork:
		return "network_error"
	default:
		return "unknown"
	}
}

// Classify maps err onto the collaborator error taxonomy.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrAccessDenied):
		return KindAccessDenied
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrSchemaNotRecognized):
		return KindSchemaNotRecognized
	case errors.Is(err, ErrMalformedItem):
		return KindMalformedItem
	case errors.Is(err, ErrMalformedPayload):
		return KindMalformedPayload
	case errors.Is(err, ErrNetwork):
		return KindNetwork
	default:
		return KindUnknown
	}
}

// IsCaptcha reports whether err is an access denial caused by a captcha.
func IsCaptcha(err error) bool {
	var denied *AccessDeniedError
	return errors.As(err, &denied) && denied.Captcha
}
