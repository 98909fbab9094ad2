package plugin

import (
	"fmt"
	"maps"
	"math"
	"strconv"
	"strings"
	"time"

	errspkg "github.com/drblury/notiflow/internal/runtime/errors"
)

// Params holds the configuration keys declared for a component or a delivery. Values are the
// plain types produced by YAML decoding: strings, ints, floats, bools, []any and map[string]any.
type Params map[string]any

// Clone returns a shallow copy.
func (p Params) Clone() Params {
	if p == nil {
		return Params{}
	}
	return maps.Clone(p)
}

// Without returns a copy that omits keys.
func (p Params) Without(keys ...string) Params {
	out := p.Clone()
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// Merge returns a copy of p with every key of other laid over it.
func (p Params) Merge(other Params) Params {
	out := p.Clone()
	maps.Copy(out, other)
	return out
}

// Has reports whether key is declared.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// String returns a required string parameter. Scalars are formatted as strings.
func (p Params) String(key string) (string, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return "", missing(key)
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case int, int64, float64, bool:
		return fmt.Sprint(s), nil
	}
	return "", invalid(key, "must be a string")
}

// StringOr returns the string parameter or def when it is absent.
func (p Params) StringOr(key, def string) (string, error) {
	if !p.Has(key) || p[key] == nil {
		return def, nil
	}
	return p.String(key)
}

// Int returns a required integer parameter. Numeric strings are accepted.
func (p Params) Int(key string) (int, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return 0, missing(key)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		if n == math.Trunc(n) {
			return int(n), nil
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i, nil
		}
	}
	return 0, invalid(key, "must be an integer")
}

// IntOr returns the integer parameter or def when it is absent.
func (p Params) IntOr(key string, def int) (int, error) {
	if !p.Has(key) || p[key] == nil {
		return def, nil
	}
	return p.Int(key)
}

// FloatOr returns a numeric parameter or def when it is absent.
func (p Params) FloatOr(key string, def float64) (float64, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f, nil
		}
	}
	return 0, invalid(key, "must be a number")
}

// BoolOr returns a boolean parameter or def when it is absent.
func (p Params) BoolOr(key string, def bool) (bool, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		if parsed, err := strconv.ParseBool(strings.TrimSpace(b)); err == nil {
			return parsed, nil
		}
	}
	return false, invalid(key, "must be a boolean")
}

// DurationOr returns a duration parameter ("5s", "1m") or def when it is absent. Bare numbers
// are read as seconds.
func (p Params) DurationOr(key string, def time.Duration) (time.Duration, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	switch d := v.(type) {
	case string:
		parsed, err := time.ParseDuration(strings.TrimSpace(d))
		if err != nil {
			return 0, invalid(key, "must be a duration")
		}
		return parsed, nil
	case int:
		return time.Duration(d) * time.Second, nil
	case float64:
		return time.Duration(d * float64(time.Second)), nil
	}
	return 0, invalid(key, "must be a duration")
}

// Strings returns a list parameter. A scalar is treated as a one-element list and an absent
// key as an empty list.
func (p Params) Strings(key string) ([]string, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch list := v.(type) {
	case string:
		return []string{list}, nil
	case []string:
		return append([]string(nil), list...), nil
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, invalid(key, "must be a list of strings")
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, invalid(key, "must be a string or a list of strings")
}

// StringMap returns a mapping parameter with string values, e.g. HTTP headers.
func (p Params) StringMap(key string) (map[string]string, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, invalid(key, "must be a mapping")
	}
	out := make(map[string]string, len(m))
	for k, raw := range m {
		out[k] = fmt.Sprint(raw)
	}
	return out, nil
}

func missing(key string) error {
	return errspkg.InvalidParamError{Param: key, Reason: "is required"}
}

func invalid(key, reason string) error {
	return errspkg.InvalidParamError{Param: key, Reason: reason}
}
