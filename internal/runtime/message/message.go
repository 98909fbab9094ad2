// Package message defines the records that flow from sources to destinations.
package message

import (
	"fmt"
	"strings"

	"github.com/drblury/notiflow/internal/runtime/level"
)

// LevelKey is the field a record's severity is read from.
const LevelKey = "level"

// Entry is one element of a delivery batch: either a Message or text that a formatter already
// produced.
type Entry interface {
	String() string
}

// Text is a batch entry that has already been rendered.
type Text string

func (t Text) String() string { return string(t) }

// Message is one structured record plus its derived severity rank. It is immutable.
type Message struct {
	fields Fields
	level  any
	rank   level.Level
}

// New builds a Message from fields, deriving the rank from the "level" field. A missing level
// ranks as NOTSET.
func New(fields Fields) (Message, error) {
	raw, ok := fields.Get(LevelKey)
	if !ok {
		raw = level.NotSet
	}
	rank, err := level.Parse(raw)
	if err != nil {
		return Message{}, err
	}
	return Message{fields: NewFields(fields.entries...), level: raw, rank: rank}, nil
}

// MustNew is like New but panics on an unknown level.
func MustNew(fields Fields) Message {
	m, err := New(fields)
	if err != nil {
		panic(err)
	}
	return m
}

// FromPairs builds a Message from alternating key/value arguments.
func FromPairs(kv ...any) (Message, error) {
	entries := make([]Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		entries = append(entries, Field{Key: fmt.Sprint(kv[i]), Value: kv[i+1]})
	}
	return New(NewFields(entries...))
}

// Fields returns the record.
func (m Message) Fields() Fields { return m.fields }

// Get returns a single field value.
func (m Message) Get(key string) (any, bool) { return m.fields.Get(key) }

// Level returns the level exactly as supplied by the source.
func (m Message) Level() any { return m.level }

// Rank returns the numeric severity.
func (m Message) Rank() level.Level { return m.rank }

// Equal reports structural equality: same rank and same fields.
func (m Message) Equal(other Message) bool {
	return m.rank == other.rank && m.fields.Equal(other.fields)
}

// String renders the record as {key: value, ...} in field order.
func (m Message) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, e := range m.fields.entries {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %v", e.Key, e.Value)
	}
	b.WriteByte('}')
	return b.String()
}

// Entries converts messages into a batch.
func Entries(msgs []Message) []Entry {
	out := make([]Entry, len(msgs))
	for i, m := range msgs {
		out[i] = m
	}
	return out
}

// Messages returns the structured entries of a batch, skipping rendered text.
func Messages(entries []Entry) []Message {
	out := make([]Message, 0, len(entries))
	for _, e := range entries {
		if m, ok := e.(Message); ok {
			out = append(out, m)
		}
	}
	return out
}
