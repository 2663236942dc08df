package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PULSE_ENV", "test")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("CLICKHOUSE_URL", "")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", c.AppPort)
	assert.Equal(t, Test, c.Environment)
	assert.Equal(t, 4, c.QueryParallelism)
	assert.Equal(t, 30, c.QueryTimeoutSeconds)
	assert.Equal(t, 2, c.GetMaxOpenConns())
	assert.Equal(t, 1, c.GetMaxIdleConns())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"environment", "PULSE_ENV", "staging"},
		{"log level", "PULSE_LOG_LEVEL", "verbose"},
		{"parallelism", "PULSE_QUERY_PARALLELISM", "0"},
		{"production without api key", "PULSE_ENV", "production"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PULSE_API_KEY", "")
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestBackend(t *testing.T) {
	tests := []struct {
		name        string
		databaseURL string
		clickhouse  string
		expected    string
		err         error
	}{
		{"none configured", "", "", "", ErrNoBackend},
		{"relational only", "postgres://localhost/pulse", "", RelationalBackend, nil},
		{"columnar only", "", "clickhouse://localhost:9000/pulse", ColumnarBackend, nil},
		{"columnar wins", "postgres://localhost/pulse", "clickhouse://localhost:9000/pulse", ColumnarBackend, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{DatabaseURL: tt.databaseURL, ClickHouseURL: tt.clickhouse}
			backend, err := c.Backend()
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, backend)
		})
	}
}
