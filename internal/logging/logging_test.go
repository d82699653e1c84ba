package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zerolog.Level
		wantErr bool
	}{
		{"", zerolog.InfoLevel, false},
		{"info", zerolog.InfoLevel, false},
		{"DEBUG", zerolog.DebugLevel, false},
		{"warn", zerolog.WarnLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"loud", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestNew_WritesToFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "navigator.log")

	log, closer, err := New("debug", file, false)
	require.NoError(t, err)

	log.Info().Str("k", "v").Msg("hello")
	require.NoError(t, closer())

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"hello"`)
	assert.Contains(t, string(data), `"k":"v"`)
}

func TestNew_RejectsUnknownLevel(t *testing.T) {
	_, _, err := New("shouty", "", false)
	assert.Error(t, err)
}

func TestComponent(t *testing.T) {
	file := filepath.Join(t.TempDir(), "nav.log")
	log, closer, err := New("info", file, false)
	require.NoError(t, err)

	comp := Component(log, "dispatch")
	comp.Info().Msg("tagged")
	require.NoError(t, closer())

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"dispatch"`)
}
