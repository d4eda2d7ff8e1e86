package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileConfig enables a rotating file sink next to stdout.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Options tune Setup. The zero value logs INFO and above to stdout only.
type Options struct {
	Level  slog.Level
	File   *FileConfig
	Output io.Writer
}

// ParseLevel maps debug/info/warn/error to a slog level, defaulting to INFO.
func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup configures the standard library logger to emit structured JSON and returns
// the underlying slog.Logger for richer logging within the service. All log lines
// include the service name and environment when provided.
func Setup(service, env string, opts Options) *slog.Logger {
	handler := NewHandler(writer(opts), opts.Level)

	attrs := []slog.Attr{
		slog.String("service", strings.TrimSpace(service)),
	}
	if env = strings.TrimSpace(env); env != "" {
		attrs = append(attrs, slog.String("env", env))
	}

	withArgs := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		withArgs = append(withArgs, attr)
	}

	base := slog.New(handler).With(withArgs...)
	slog.SetDefault(base)

	// Bridge the standard library logger so existing packages continue to work.
	stdBridge := slog.NewLogLogger(handler.WithAttrs(attrs), slog.LevelInfo)
	stdBridge.SetFlags(0)
	log.SetOutput(stdBridge.Writer())
	log.SetFlags(0)
	log.SetPrefix("")

	return base
}

// NewHandler builds the JSON handler with the timestamp/severity/message key
// layout shared by every service.
func NewHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: false,
		Level:     level,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			if attr.Key == slog.TimeKey {
				return slog.Attr{Key: "timestamp", Value: attr.Value}
			}
			if attr.Key == slog.LevelKey {
				level := strings.ToUpper(attr.Value.String())
				return slog.String("severity", level)
			}
			if attr.Key == slog.MessageKey {
				return slog.Attr{Key: "message", Value: attr.Value}
			}
			return attr
		},
	})
}

func writer(opts Options) io.Writer {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if opts.File == nil || strings.TrimSpace(opts.File.Path) == "" {
		return out
	}
	rotating := &lumberjack.Logger{
		Filename:   opts.File.Path,
		MaxSize:    opts.File.MaxSizeMB,
		MaxBackups: opts.File.MaxBackups,
		MaxAge:     opts.File.MaxAgeDays,
		Compress:   opts.File.Compress,
	}
	return io.MultiWriter(out, rotating)
}
