// Package level maps symbolic severity names onto ordered numeric ranks.
package level

import (
	"math"
	"strconv"
	"strings"

	errspkg "github.com/drblury/notiflow/internal/runtime/errors"
)

// Level is a severity rank. Higher values are more severe; thresholds compare with >=.
type Level int

// Reserved level values.
const (
	NotSet   Level = 0
	Debug    Level = 10
	Info     Level = 20
	Warning  Level = 30
	Error    Level = 40
	Critical Level = 50
)

var names = map[string]Level{
	"NOTSET":   NotSet,
	"DEBUG":    Debug,
	"INFO":     Info,
	"WARNING":  Warning,
	"ERROR":    Error,
	"CRITICAL": Critical,
}

// Parse converts a level supplied as a name (case-insensitive) or as a number into a rank.
// A nil value parses as NotSet. Numbers are passed through unchanged; fractional numbers
// and unknown names fail with an UnknownLevelError.
func Parse(value any) (Level, error) {
	switch v := value.(type) {
	case nil:
		return NotSet, nil
	case Level:
		return v, nil
	case int:
		return Level(v), nil
	case int8:
		return Level(v), nil
	case int16:
		return Level(v), nil
	case int32:
		return fromInt(value, int64(v))
	case int64:
		return fromInt(value, v)
	case uint:
		return fromUint(value, uint64(v))
	case uint8:
		return Level(v), nil
	case uint16:
		return Level(v), nil
	case uint32:
		return fromUint(value, uint64(v))
	case uint64:
		return fromUint(value, v)
	case float32:
		return fromFloat(value, float64(v))
	case float64:
		return fromFloat(value, v)
	case []byte:
		return fromName(value, string(v))
	case string:
		return fromName(value, v)
	}
	return NotSet, errspkg.UnknownLevelError{Value: value}
}

// MustParse is like Parse but panics on unknown values. Intended for constants in tests and
// static tables.
func MustParse(value any) Level {
	lvl, err := Parse(value)
	if err != nil {
		panic(err)
	}
	return lvl
}

func fromName(raw any, name string) (Level, error) {
	if lvl, ok := names[strings.ToUpper(strings.TrimSpace(name))]; ok {
		return lvl, nil
	}
	return NotSet, errspkg.UnknownLevelError{Value: raw}
}

func fromInt(raw any, i int64) (Level, error) {
	if i > math.MaxInt || i < math.MinInt {
		return NotSet, errspkg.UnknownLevelError{Value: raw}
	}
	return Level(i), nil
}

func fromUint(raw any, u uint64) (Level, error) {
	if u > math.MaxInt {
		return NotSet, errspkg.UnknownLevelError{Value: raw}
	}
	return Level(u), nil
}

// fromFloat accepts integral values within the int range. The upper bound is exclusive: 2^63
// is a float64 but not an int64.
func fromFloat(raw any, f float64) (Level, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) ||
		f >= -float64(math.MinInt) || f < float64(math.MinInt) {
		return NotSet, errspkg.UnknownLevelError{Value: raw}
	}
	return Level(f), nil
}

// String returns the reserved name for the level, or its number for custom ranks.
func (l Level) String() string {
	switch l {
	case NotSet:
		return "NOTSET"
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warning:
		return "WARNING"
	case Error:
		return "ERROR"
	case Critical:
		return "CRITICAL"
	}
	return strconv.Itoa(int(l))
}

// Allows reports whether a message of rank l passes a threshold.
func (l Level) Allows(threshold Level) bool {
	return l >= threshold
}
