package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config describes logger runtime configuration.
type Config struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// Output is "stderr", "stdout" or a file path opened for append.
	Output      string `mapstructure:"output"`
	TimeFormat  string `mapstructure:"time_format"`
	Caller      bool   `mapstructure:"caller"`
	PrettyPrint bool   `mapstructure:"pretty"`
}

// NewLogger constructs the process logger. stderr is the default sink; reports
// are written to stdout so logs stay out of them unless asked for.
func NewLogger(cfg Config, stderr io.Writer) (zerolog.Logger, error) {
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.TimeFormat != "" {
		zerolog.TimeFieldFormat = cfg.TimeFormat
	}

	out, err := outputStream(cfg.Output, stderr)
	if err != nil {
		return zerolog.Nop(), err
	}

	logger := zerolog.New(logWriter(cfg, out)).Level(ParseLevel(cfg.Level))
	builder := logger.With().Timestamp()
	if cfg.Caller {
		builder = builder.Caller()
	}
	return builder.Logger(), nil
}

// ParseLevel maps a level name to zerolog, falling back to info.
func ParseLevel(name string) zerolog.Level {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return zerolog.InfoLevel
	}
	if name == "quiet" {
		return zerolog.Disabled
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

func outputStream(name string, stderr io.Writer) (io.Writer, error) {
	name = strings.TrimSpace(name)
	switch strings.ToLower(name) {
	case "", "stderr":
		if stderr == nil {
			return os.Stderr, nil
		}
		return stderr, nil
	case "stdout":
		return os.Stdout, nil
	}

	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	// 文件句柄随进程生命周期保持打开
	file, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return file, nil
}

func logWriter(cfg Config, out io.Writer) io.Writer {
	if cfg.PrettyPrint || strings.EqualFold(cfg.Format, "console") {
		return zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    !isTerminal(out),
			TimeFormat: zerolog.TimeFieldFormat,
		}
	}
	return out
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
