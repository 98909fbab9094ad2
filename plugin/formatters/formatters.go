// Package formatters holds the built-in formatters. None of them modify the message they
// render.
package formatters

import (
	"fmt"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/drblury/notiflow/internal/runtime/jsoncodec"
	"github.com/drblury/notiflow/internal/runtime/message"
	"github.com/drblury/notiflow/internal/runtime/protocodec"
	"github.com/drblury/notiflow/plugin"
)

// TimeLayout is how time values are rendered by time_string and human_readable.
const TimeLayout = "2006-01-02 15:04:05"

func init() {
	register := func(factory plugin.FormatterFactory, names ...string) {
		for _, name := range names {
			plugin.RegisterFormatter(plugin.Builtin(name), factory)
		}
	}
	register(func() plugin.Formatter { return plugin.FormatterFunc(Default) }, "default")
	register(func() plugin.Formatter { return plugin.FormatterFunc(JSON) }, "json")
	register(func() plugin.Formatter { return plugin.FormatterFunc(YAML) }, "yaml")
	register(func() plugin.Formatter { return plugin.FormatterFunc(ProtoJSON) }, "protojson")
	register(func() plugin.Formatter { return plugin.FormatterFunc(HumanReadable) }, "human_readable", "HumanReadableFormatter")
	register(func() plugin.Formatter { return plugin.FormatterFunc(TimeString) }, "time_string", "TimeStringFormatter")
}

// Default renders {key: value, ...} in field order.
func Default(m message.Message) (string, error) {
	return m.String(), nil
}

// JSON renders the fields as a JSON object in field order.
func JSON(m message.Message) (string, error) {
	return jsoncodec.MarshalString(m.Fields())
}

// YAML renders the fields as a YAML mapping in field order.
func YAML(m message.Message) (string, error) {
	out, err := yaml.Marshal(m.Fields())
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(out), "\n"), nil
}

// ProtoJSON renders the fields as the protojson form of a google.protobuf.Struct.
func ProtoJSON(m message.Message) (string, error) {
	return protocodec.MarshalJSON(m)
}

// HumanReadable renders a data check result:
//
//	<check_status> on <table_name> (<db>)
//	Time: <check_time>
//	Details: <details>
func HumanReadable(m message.Message) (string, error) {
	var missing []string
	get := func(key string) string {
		v, ok := m.Get(key)
		if !ok {
			missing = append(missing, key)
			return ""
		}
		return render(v)
	}
	status := get("check_status")
	table := get("table_name")
	db := get("db")
	checked := get("check_time")
	details := get("details")
	if len(missing) > 0 {
		return "", fmt.Errorf("human_readable: missing fields %s", strings.Join(missing, ", "))
	}
	return fmt.Sprintf("%s on %s (%s)\nTime: %s\nDetails: %s", status, table, db, checked, details), nil
}

// TimeString renders like Default with time values formatted as TimeLayout.
func TimeString(m message.Message) (string, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, f := range m.Fields().Entries() {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %s", f.Key, render(f.Value))
	}
	b.WriteByte('}')
	return b.String(), nil
}

func render(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.Format(TimeLayout)
	case *time.Time:
		if t == nil {
			return "<nil>"
		}
		return t.Format(TimeLayout)
	}
	return fmt.Sprint(v)
}
