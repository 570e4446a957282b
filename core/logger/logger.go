package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	coreconfig "github.com/tgwire/tgwire/core/config"
)

var (
	initOnce   sync.Once
	shutdownMu sync.Mutex
	shutdowned bool

	logWriter  *asyncWriter
	logClosers []io.Closer

	levelVar slog.LevelVar

	// L is the base structured logger.
	L = slog.Default()

	// TG logs dispatcher and bot activity.
	TG = slog.Default().With("component", "tg")
	// API logs outbound Telegram API calls.
	API = slog.Default().With("component", "tg.api")
	// HOOK logs webhook endpoint activity.
	HOOK = slog.Default().With("component", "hook")
	// STATE logs session store activity.
	STATE = slog.Default().With("component", "state")
	// DB logs database events.
	DB = slog.Default().With("component", "db")
	// MIG logs database migration events.
	MIG = slog.Default().With("component", "db.migrate")
)

// Init configures the global structured logger. It may be called only once;
// subsequent calls are no-ops.
func Init(cfg *coreconfig.Config) error {
	var initErr error
	initOnce.Do(func() {
		levelVar.Set(selectLevel(cfg))

		outputs, closers, err := buildOutputs(cfg)
		if err != nil {
			initErr = err
			return
		}
		logClosers = closers
		logWriter = newAsyncWriter(outputs, 32*1024)

		handler := newStructuredHandler(handlerConfig{
			level:  &levelVar,
			writer: logWriter,
			format: selectFormat(cfg),
		})

		L = slog.New(handler)
		slog.SetDefault(L)
		wireComponents()
	})
	return initErr
}

// Shutdown flushes buffered log output and closes file sinks.
func Shutdown() error {
	shutdownMu.Lock()
	defer shutdownMu.Unlock()
	if shutdowned || logWriter == nil {
		return nil
	}
	shutdowned = true

	err := logWriter.Close()
	for _, c := range logClosers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Component returns a logger bound to the given component name.
func Component(name string) *slog.Logger {
	if name == "" {
		return L
	}
	return L.With("component", name)
}

func wireComponents() {
	TG = Component("tg")
	API = Component("tg.api")
	HOOK = Component("hook")
	STATE = Component("state")
	DB = Component("db")
	MIG = Component("db.migrate")
}

func selectLevel(cfg *coreconfig.Config) slog.Level {
	level := ""
	if cfg != nil {
		level = cfg.Logging.Level
	}
	switch strings.ToLower(strings.TrimSpace(level)) {
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

func selectFormat(cfg *coreconfig.Config) logFormat {
	if cfg != nil && strings.EqualFold(strings.TrimSpace(cfg.Logging.Format), "json") {
		return formatJSON
	}
	return formatKV
}

func buildOutputs(cfg *coreconfig.Config) ([]io.Writer, []io.Closer, error) {
	outputs := []io.Writer{os.Stdout}
	var closers []io.Closer

	if cfg == nil || cfg.Logging.Dir == "" || cfg.Logging.File == "" {
		return outputs, closers, nil
	}

	if err := os.MkdirAll(cfg.Logging.Dir, 0o755); err != nil {
		return nil, nil, err
	}
	path := filepath.Join(cfg.Logging.Dir, cfg.Logging.File)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	outputs = append(outputs, f)
	closers = append(closers, f)
	return outputs, closers, nil
}
