package config

import (
	"os"
	"regexp"
	"strings"
)

// LookupEnv resolves variables during interpolation.
type LookupEnv func(name string) (string, bool)

var envRef = regexp.MustCompile(`\$(?:\$|\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}|([A-Za-z_][A-Za-z0-9_]*))`)

// Interpolate expands $VAR, ${VAR} and ${VAR:-default} in raw configuration text, and $$ to a
// literal dollar sign. References to unset variables without a default are left as written, as
// is anything that is not a variable reference (for example $1 placeholders in SQL).
func Interpolate(raw string, lookup LookupEnv) string {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return envRef.ReplaceAllStringFunc(raw, func(ref string) string {
		if ref == "$$" {
			return "$"
		}
		m := envRef.FindStringSubmatch(ref)
		name, def := m[1]+m[3], m[2]
		hasDefault := strings.Contains(ref, ":-")
		v, ok := lookup(name)
		switch {
		case ok && (v != "" || !hasDefault):
			return v
		case hasDefault:
			return def
		}
		return ref
	})
}
