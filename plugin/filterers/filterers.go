// Package filterers holds the built-in filterers.
package filterers

import (
	"fmt"
	"strings"

	"github.com/drblury/notiflow/internal/runtime/message"
	"github.com/drblury/notiflow/plugin"
)

func init() {
	register := func(f plugin.FiltererFunc, names ...string) {
		for _, name := range names {
			plugin.RegisterFilterer(plugin.Builtin(name), func() plugin.Filterer { return f })
		}
	}
	register(HasLevel, "has_level")
	register(NotEmpty, "not_empty")
	register(SQLServer, "sqlserver", "SqlServerFilterer")
	register(Dev, "dev", "DevFilterer")
}

// HasLevel keeps messages whose record carried a level field.
func HasLevel(m message.Message) bool {
	return m.Fields().Has(message.LevelKey)
}

// NotEmpty keeps messages with at least one field besides the level that is neither nil nor
// an empty string.
func NotEmpty(m message.Message) bool {
	for k, v := range m.Fields().All() {
		if k == message.LevelKey || v == nil {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		return true
	}
	return false
}

// SQLServer keeps messages whose "db" field is "sqlserver".
func SQLServer(m message.Message) bool {
	db, ok := m.Get("db")
	return ok && fmt.Sprint(db) == "sqlserver"
}

// Dev keeps messages whose "table_name" contains "dev".
func Dev(m message.Message) bool {
	table, ok := m.Get("table_name")
	return ok && strings.Contains(fmt.Sprint(table), "dev")
}
