package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/iot-admin-core/internal/infrastructure/config"
)

// serviceName tags every entry so shipped logs can be told apart from the
// adapter host's own output.
const serviceName = "iotadmin"

var levels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// Logger is the structured logger handed to every component. It satisfies
// the small Logger interfaces the other packages declare.
type Logger struct {
	*slog.Logger
}

// New builds a logger from the logging section, writing to stdout or stderr.
// Every entry carries the service name and version.
func New(cfg config.LoggingConfig, version string) *Logger {
	return NewWithWriter(cfg, version, streamFor(cfg.Output))
}

func streamFor(output string) io.Writer {
	if strings.EqualFold(output, "stderr") {
		return os.Stderr
	}
	return os.Stdout
}

// NewWithWriter is New with an explicit destination; cfg.Output is ignored.
// Format "text" selects the key=value handler, anything else JSON.
func NewWithWriter(cfg config.LoggingConfig, version string, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var h slog.Handler = slog.NewJSONHandler(w, opts)
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(w, opts)
	}

	return &Logger{Logger: slog.New(h).With(
		slog.String("service", serviceName),
		slog.String("version", version),
	)}
}

// parseLevel maps a configured level name to slog; unknown names mean info.
func parseLevel(level string) slog.Level {
	if l, ok := levels[strings.ToLower(level)]; ok {
		return l
	}
	return slog.LevelInfo
}

// With returns a child logger carrying args on every entry, e.g.
// logger.With("component", "smartname").
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default is the JSON info logger used until the configuration is loaded.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json"}, "dev")
}

// Discard drops every entry. Tests use it.
func Discard() *Logger {
	return NewWithWriter(config.LoggingConfig{Level: "error"}, "test", io.Discard)
}
