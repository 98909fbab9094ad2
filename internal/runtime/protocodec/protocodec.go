// Package protocodec converts notifications to protobuf well-known types so they can be
// published as binary protobuf or rendered as protojson.
package protocodec

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/drblury/notiflow/internal/runtime/level"
	"github.com/drblury/notiflow/internal/runtime/message"
)

// TextKey holds the rendered text when an already formatted entry is converted.
const TextKey = "text"

// Normalize converts a field value into one structpb accepts: times become RFC 3339 strings,
// byte slices strings, and unknown types their fmt representation.
func Normalize(v any) any {
	switch x := v.(type) {
	case nil, bool, string, int, int32, int64, uint, uint32, uint64, float32, float64:
		return x
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case uint8:
		return uint64(x)
	case uint16:
		return uint64(x)
	case level.Level:
		return int64(x)
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case time.Duration:
		return x.String()
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = Normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = Normalize(item)
		}
		return out
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

// Struct converts an entry into a Struct: a message's fields, or {"text": ...} for rendered text.
func Struct(e message.Entry) (*structpb.Struct, error) {
	m, ok := e.(message.Message)
	if !ok {
		return structpb.NewStruct(map[string]any{TextKey: e.String()})
	}
	fields := make(map[string]any, m.Fields().Len())
	for k, v := range m.Fields().All() {
		fields[k] = Normalize(v)
	}
	return structpb.NewStruct(fields)
}

// Marshal encodes an entry as binary protobuf.
func Marshal(e message.Entry) ([]byte, error) {
	s, err := Struct(e)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}

// Unmarshal decodes a payload produced by Marshal.
func Unmarshal(data []byte) (map[string]any, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return s.AsMap(), nil
}

// MarshalJSON renders an entry as protojson.
func MarshalJSON(e message.Entry) (string, error) {
	s, err := Struct(e)
	if err != nil {
		return "", err
	}
	out, err := protojson.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
