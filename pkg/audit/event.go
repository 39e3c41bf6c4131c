// Package audit records secure messaging operations in a tamper evident log.
//
// Events are appended as JSON lines. Every event carries the hash of its
// predecessor so that a removed or edited line breaks the chain:
//   - audit failure is operation failure
//   - key material and message content are never logged
//   - timestamps are UTC
package audit

import (
	"encoding/json"
	"errors"
	"os"
	"time"

	"github.com/google/uuid"
)

// EventType is the category of an audit event.
type EventType string

const (
	// Engine operations
	EventPKCS7Sign    EventType = "PKCS7_SIGN"
	EventPKCS7Verify  EventType = "PKCS7_VERIFY"
	EventPKCS7Encrypt EventType = "PKCS7_ENCRYPT"
	EventPKCS7Decrypt EventType = "PKCS7_DECRYPT"

	// MIME codec
	EventSMIMEWrite EventType = "SMIME_WRITE"
	EventSMIMERead  EventType = "SMIME_READ"

	// Private keys
	EventKeyLoaded EventType = "KEY_LOADED"
)

// Result is the outcome of an audited operation.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
)

// Actor is who performed the action.
type Actor struct {
	Type string `json:"type"` // "user" or "service"
	ID   string `json:"id"`
	Host string `json:"host,omitempty"`
}

// Object is what was acted upon.
type Object struct {
	Type        string `json:"type"`              // "pkcs7", "smime", "key"
	Subject     string `json:"subject,omitempty"` // signer or recipient DN
	Serial      string `json:"serial,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"` // SHA-256 of the certificate
}

// Context carries operation details.
type Context struct {
	Flags      string `json:"flags,omitempty"`
	Cipher     string `json:"cipher,omitempty"`
	Algorithm  string `json:"algorithm,omitempty"`
	Recipients int    `json:"recipients,omitempty"`
	Detached   bool   `json:"detached,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
	Reason     string `json:"reason,omitempty"` // failure reason
}

// Event is a single audit log entry.
type Event struct {
	ID        string    `json:"id"`
	EventType EventType `json:"event_type"`
	Timestamp string    `json:"timestamp"` // RFC3339 UTC
	Actor     Actor     `json:"actor"`
	Object    Object    `json:"object"`
	Context   Context   `json:"context,omitempty"`
	Result    Result    `json:"result"`
	HashPrev  string    `json:"hash_prev"`
	Hash      string    `json:"hash"`
}

// NewEvent creates an event stamped with a fresh ID, the current time and the
// local user.
func NewEvent(eventType EventType, result Result) *Event {
	hostname, _ := os.Hostname()
	username := os.Getenv("USER")
	if username == "" {
		username = os.Getenv("USERNAME")
	}
	if username == "" {
		username = "unknown"
	}

	return &Event{
		ID:        uuid.NewString(),
		EventType: eventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Actor:     Actor{Type: "user", ID: username, Host: hostname},
		Result:    result,
	}
}

// ResultOf maps an operation error to a result.
func ResultOf(err error) Result {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}

// WithObject sets the object field.
func (e *Event) WithObject(obj Object) *Event {
	e.Object = obj
	return e
}

// WithContext sets the context field.
func (e *Event) WithContext(ctx Context) *Event {
	e.Context = ctx
	return e
}

// WithActor overrides the default actor.
func (e *Event) WithActor(actor Actor) *Event {
	e.Actor = actor
	return e
}

// Validate checks that required fields are present.
func (e *Event) Validate() error {
	switch {
	case e.ID == "":
		return errors.New("id is required")
	case e.EventType == "":
		return errors.New("event_type is required")
	case e.Timestamp == "":
		return errors.New("timestamp is required")
	case e.Actor.Type == "" || e.Actor.ID == "":
		return errors.New("actor type and id are required")
	case e.Result == "":
		return errors.New("result is required")
	}
	return nil
}

// CanonicalJSON is the event without its own hash, the input to chaining.
func (e *Event) CanonicalJSON() ([]byte, error) {
	type eventForHash struct {
		ID        string    `json:"id"`
		EventType EventType `json:"event_type"`
		Timestamp string    `json:"timestamp"`
		Actor     Actor     `json:"actor"`
		Object    Object    `json:"object"`
		Context   Context   `json:"context,omitempty"`
		Result    Result    `json:"result"`
		HashPrev  string    `json:"hash_prev"`
	}
	return json.Marshal(eventForHash{
		ID:        e.ID,
		EventType: e.EventType,
		Timestamp: e.Timestamp,
		Actor:     e.Actor,
		Object:    e.Object,
		Context:   e.Context,
		Result:    e.Result,
		HashPrev:  e.HashPrev,
	})
}

// JSON returns the full event as JSON.
func (e *Event) JSON() ([]byte, error) {
	return json.Marshal(e)
}
