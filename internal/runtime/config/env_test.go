package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/notiflow/plugin"
)

func TestInterpolate(t *testing.T) {
	vars := map[string]string{"HOST": "db.local", "EMPTY": ""}
	lookup := func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}

	tests := []struct {
		in   string
		want string
	}{
		{"host: $HOST", "host: db.local"},
		{"host: ${HOST}:5432", "host: db.local:5432"},
		{"port: ${PORT:-5432}", "port: 5432"},
		{"host: ${HOST:-other}", "host: db.local"},
		{"v: ${EMPTY:-fallback}", "v: fallback"},
		{"v: ${EMPTY:-}", "v: "},
		{"v: ${EMPTY}", "v: "},
		{"v: ${MISSING}", "v: ${MISSING}"},
		{"v: $MISSING", "v: $MISSING"},
		{"price: $$5", "price: $5"},
		{"query: SELECT * FROM t WHERE id = $1 AND x = $2", "query: SELECT * FROM t WHERE id = $1 AND x = $2"},
		{"password: pa$word", "password: pa$word"},
		{"password: pa$HOST", "password: padb.local"},
		{"v: ${1}", "v: ${1}"},
		{"v: ${bad-name}", "v: ${bad-name}"},
		{"trailing $", "trailing $"},
		{"plain text", "plain text"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Interpolate(tt.in, lookup))
		})
	}
}

func TestInterpolateUsesProcessEnv(t *testing.T) {
	t.Setenv("NOTIFLOW_TEST_VALUE", "from-env")
	assert.Equal(t, "from-env", Interpolate("${NOTIFLOW_TEST_VALUE}", nil))
}

func TestParseKeepsSQLPlaceholders(t *testing.T) {
	doc := `
jobs:
  j:
    get_messages:
      - service: db
        query: "SELECT level FROM t WHERE id = $1"
        args: [7]
    send_messages: [console]
`
	cfg, err := Parse(context.Background(), []byte(doc),
		WithRegistry(plugin.NewRegistry()),
		WithLookupEnv(func(string) (string, bool) { return "", false }))
	require.NoError(t, err)

	job, ok := cfg.Job("j")
	require.True(t, ok)
	require.Len(t, job.Sources, 1)
	assert.Equal(t, "SELECT level FROM t WHERE id = $1", job.Sources[0].Params["query"])
}
