// Package metadata builds the headers attached to every published notification.
package metadata

import (
	"maps"

	"github.com/ThreeDotsLabs/watermill/message"
)

// Header keys set on published notifications.
const (
	KeySubject     = "notiflow_subject"
	KeyDestination = "notiflow_destination"
	KeyLevel       = "notiflow_level"
	KeyRunID       = "notiflow_run_id"
	KeyContentType = "content_type"
)

// Metadata represents the headers carried alongside a notification.
type Metadata map[string]string

// Clone returns a shallow copy of the metadata map. It is never nil.
func (m Metadata) Clone() Metadata {
	cloned := make(Metadata, len(m))
	maps.Copy(cloned, m)
	return cloned
}

// With returns a copy containing the provided key/value pair. Empty values are skipped.
func (m Metadata) With(key, value string) Metadata {
	cloned := m.Clone()
	if value != "" {
		cloned[key] = value
	}
	return cloned
}

// WithAll returns a copy containing the supplied entries, which win over existing ones.
func (m Metadata) WithAll(entries Metadata) Metadata {
	cloned := m.Clone()
	maps.Copy(cloned, entries)
	return cloned
}

// New constructs a Metadata map from alternating key/value pairs.
func New(pairs ...string) Metadata {
	md := make(Metadata, len(pairs)/2)
	for i := 0; i < len(pairs)-1; i += 2 {
		md[pairs[i]] = pairs[i+1]
	}
	return md
}

// Apply copies the headers onto a Watermill message.
func (m Metadata) Apply(msg *message.Message) {
	for k, v := range m {
		msg.Metadata.Set(k, v)
	}
}
