package logger

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config opciones para el logger.
type Config struct {
	Env     string // development -> consola legible; production -> JSON
	Level   string // trace, debug, info, warn, error
	Service string
	Version string
	Output  io.Writer
	// Dir agrega combined.log (todo) y error.log (error o más) en ese directorio.
	Dir string
}

// Logger wrapper sobre zerolog para inyección y consistencia.
type Logger struct {
	zl    zerolog.Logger
	files []*os.File
}

// New crea un logger estructurado. En development usa salida legible; en production JSON.
// Si no se pueden abrir los archivos de Dir se sigue solo con la salida principal.
func New(cfg Config) *Logger {
	var w io.Writer = os.Stdout
	if cfg.Output != nil {
		w = cfg.Output
	}
	if cfg.Env == "development" && cfg.Output == nil {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	}

	l := &Logger{}
	writers := []io.Writer{w}
	var fileErr error
	if cfg.Dir != "" {
		var sinks []io.Writer
		sinks, fileErr = l.openFiles(cfg.Dir)
		writers = append(writers, sinks...)
	}

	zctx := zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(parseLevel(cfg.Level)).With().Timestamp()
	if cfg.Service != "" {
		zctx = zctx.Str("service", cfg.Service)
	}
	if cfg.Version != "" {
		zctx = zctx.Str("version", cfg.Version)
	}
	l.zl = zctx.Logger()

	// Redirigir el logger global de zerolog para librerías que lo usen
	log.Logger = l.zl

	if fileErr != nil {
		l.zl.Warn().Err(fileErr).Str("dir", cfg.Dir).Msg("logs en archivo deshabilitados")
	}
	return l
}

func (l *Logger) openFiles(dir string) ([]io.Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	combined, err := os.OpenFile(filepath.Join(dir, "combined.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	errorsLog, err := os.OpenFile(filepath.Join(dir, "error.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		_ = combined.Close()
		return nil, err
	}
	l.files = append(l.files, combined, errorsLog)
	return []io.Writer{combined, minLevel{w: errorsLog, min: zerolog.ErrorLevel}}, nil
}

// minLevel descarta los eventos por debajo de min.
type minLevel struct {
	w   io.Writer
	min zerolog.Level
}

func (m minLevel) Write(p []byte) (int, error) { return m.w.Write(p) }

func (m minLevel) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < m.min {
		return len(p), nil
	}
	return m.w.Write(p)
}

// Close cierra los archivos de log abiertos por New.
func (l *Logger) Close() error {
	var errs []error
	for _, f := range l.files {
		errs = append(errs, f.Close())
	}
	l.files = nil
	return errors.Join(errs...)
}

// Nop logger descartado, útil en tests.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

func parseLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

func (l *Logger) Trace() *zerolog.Event { return l.zl.Trace() }
func (l *Logger) Debug() *zerolog.Event { return l.zl.Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.zl.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.zl.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.zl.Error() }
func (l *Logger) Fatal() *zerolog.Event { return l.zl.Fatal() }

// Component crea un sublogger etiquetado con el nombre del componente.
func (l *Logger) Component(name string) zerolog.Logger {
	return l.zl.With().Str("component", name).Logger()
}

// Zerolog devuelve el logger interno por si se necesita la API directa.
func (l *Logger) Zerolog() zerolog.Logger {
	return l.zl
}
