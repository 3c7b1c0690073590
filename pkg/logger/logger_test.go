package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONConCamposDeServicio(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Env: "production", Level: "info", Service: "api", Version: "1.2.0", Output: &buf})

	c := l.Component("tasks")
	c.Info().Str("id", "t1").Msg("creada")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "api", entry["service"])
	assert.Equal(t, "1.2.0", entry["version"])
	assert.Equal(t, "tasks", entry["component"])
	assert.Equal(t, "creada", entry["message"])
}

func TestNew_FiltraPorNivel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "warn", Output: &buf})

	l.Info().Msg("no")
	assert.Zero(t, buf.Len())
	l.Warn().Msg("si")
	assert.NotZero(t, buf.Len())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, parseLevel(" DEBUG "))
	assert.Equal(t, zerolog.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("verbose"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel(""))
}

func TestNew_ArchivosPorNivel(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	l := New(Config{Level: "info", Output: &buf, Dir: dir})

	l.Info().Msg("informativo")
	l.Error().Msg("fallo")
	require.NoError(t, l.Close())

	combined, err := os.ReadFile(filepath.Join(dir, "combined.log"))
	require.NoError(t, err)
	assert.Contains(t, string(combined), "informativo")
	assert.Contains(t, string(combined), "fallo")

	errs, err := os.ReadFile(filepath.Join(dir, "error.log"))
	require.NoError(t, err)
	assert.NotContains(t, string(errs), "informativo")
	assert.Contains(t, string(errs), "fallo")
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Error().Msg("descartado")
	assert.NoError(t, l.Close())
}
