// Package cloudevents wraps published notifications in CloudEvents v1.0 structured-mode JSON.
package cloudevents

import (
	"fmt"
	"time"

	"github.com/drblury/notiflow/internal/runtime/ids"
	"github.com/drblury/notiflow/internal/runtime/jsoncodec"
)

// SpecVersion is the CloudEvents specification version implemented.
const SpecVersion = "1.0"

// NotificationType is the event type of every notification envelope.
const NotificationType = "io.notiflow.notification"

// Extension attributes carried by notification envelopes. CloudEvents restricts extension names
// to lowercase alphanumerics.
const (
	ExtLevel       = "notiflowlevel"
	ExtDestination = "notiflowdestination"
)

// Event is a CloudEvents v1.0 event.
// See https://github.com/cloudevents/spec/blob/v1.0/spec.md for specification details.
type Event struct {
	SpecVersion string
	Type        string
	Source      string
	// ID uniquely identifies the event. New fills it with a ULID.
	ID string

	Time            time.Time
	DataContentType *string
	Subject         *string
	Data            any

	// Extensions are flattened into the top-level JSON object.
	Extensions map[string]any
}

// New creates an event with the required attributes populated and the current UTC time.
func New(eventType, source string, data any) Event {
	return Event{
		SpecVersion: SpecVersion,
		Type:        eventType,
		Source:      source,
		ID:          ids.New(),
		Time:        time.Now().UTC(),
		Data:        data,
		Extensions:  make(map[string]any),
	}
}

// WithSubject sets the subject field and returns the event.
func (e Event) WithSubject(subject string) Event {
	e.Subject = &subject
	return e
}

// WithDataContentType sets the data content type and returns the event.
func (e Event) WithDataContentType(contentType string) Event {
	e.DataContentType = &contentType
	return e
}

// WithExtension sets an extension attribute and returns the event.
func (e Event) WithExtension(key string, value any) Event {
	ext := make(map[string]any, len(e.Extensions)+1)
	for k, v := range e.Extensions {
		ext[k] = v
	}
	ext[key] = value
	e.Extensions = ext
	return e
}

// Validate checks that the event has all required CloudEvents attributes.
func (e Event) Validate() error {
	if e.SpecVersion != SpecVersion {
		return fmt.Errorf("specversion must be %q, got %q", SpecVersion, e.SpecVersion)
	}
	if e.Type == "" {
		return fmt.Errorf("type is required")
	}
	if e.Source == "" {
		return fmt.Errorf("source is required")
	}
	if e.ID == "" {
		return fmt.Errorf("id is required")
	}
	return nil
}

// MarshalJSON renders the structured-mode JSON representation.
func (e Event) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, 8+len(e.Extensions))
	for k, v := range e.Extensions {
		m[k] = v
	}
	m["specversion"] = e.SpecVersion
	m["type"] = e.Type
	m["source"] = e.Source
	m["id"] = e.ID
	if !e.Time.IsZero() {
		m["time"] = e.Time.Format(time.RFC3339Nano)
	}
	if e.DataContentType != nil {
		m["datacontenttype"] = *e.DataContentType
	}
	if e.Subject != nil {
		m["subject"] = *e.Subject
	}
	if e.Data != nil {
		m["data"] = e.Data
	}
	return jsoncodec.Marshal(m)
}
