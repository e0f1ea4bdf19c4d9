package model

import (
	"fmt"
	"time"
)

// ResponseType classifies a response by the shape of its payload.
type ResponseType string

const (
	ResponseTypeComment ResponseType = "comment"
)

// Response status values.
const (
	StatusNew      = "new"
	StatusComplete = "complete"
	StatusError    = "error"
)

// Response is a reply, comment or other reaction discovered on a source.
type Response struct {
	// Key is the stable identity of the response (usually the upstream object id).
	Key string `json:"key"`

	// Type is derived from ResponseJSON when the response is first saved.
	Type ResponseType `json:"type"`

	// SourceKey points at the Source this response was found on.
	// The response does not own the source.
	SourceKey string `json:"source_key"`

	// ActivityJSON is the original post the response belongs to.
	ActivityJSON string `json:"activity_json,omitempty"`

	// ResponseJSON is the raw payload of the response itself.
	ResponseJSON string `json:"response_json"`

	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	saved bool
}

// IsSaved reports whether the response was read from or written to the store.
func (r Response) IsSaved() bool { return r.saved }

// MarkSaved returns a copy of r flagged as persisted. Store implementations
// call this on every response they return.
func (r Response) MarkSaved() Response {
	r.saved = true
	return r
}

// Source is an account on an external service that syndicate polls.
type Source struct {
	Key string `json:"key"`

	// Kind is the type name shown to users (e.g. "FakeSource").
	Kind string `json:"kind"`

	// ShortName prefixes DOM ids (e.g. "fake").
	ShortName string `json:"short_name"`

	// Name is the human-readable label.
	Name string `json:"name"`

	// LastPolled is the epoch until the source is polled for the first time.
	LastPolled time.Time `json:"last_polled"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DOMID returns the identifier used for this source in rendered pages.
func (s Source) DOMID() string {
	return fmt.Sprintf("%s-%s", s.ShortName, s.Key)
}

// Epoch is the LastPolled value of a source that has never been polled.
var Epoch = time.Unix(0, 0).UTC()
