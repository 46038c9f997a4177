package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

const historySize = 1000

// Config represents logging configuration.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`
}

// registry owns every module logger so levels can change at runtime.
type registry struct {
	mu      sync.RWMutex
	cfg     Config
	ready   bool
	out     io.Writer
	levels  map[string]*slog.LevelVar
	loggers map[string]*slog.Logger
	global  slog.LevelVar
	history *History
}

var reg = newRegistry()

func newRegistry() *registry {
	return &registry{
		out:     os.Stdout,
		levels:  make(map[string]*slog.LevelVar),
		loggers: make(map[string]*slog.Logger),
		history: NewHistory(historySize),
	}
}

// Initialize applies cfg to the default logger and every module logger,
// including loggers created before this call.
func Initialize(cfg Config) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	reg.cfg = cfg
	reg.ready = true
	reg.global.Set(levelOr(cfg.Level, slog.LevelInfo))

	for module, lv := range reg.levels {
		lv.Set(reg.moduleLevel(module))
		reg.loggers[module] = slog.New(reg.handler(lv)).With("module", module)
	}

	slog.SetDefault(slog.New(reg.handler(&reg.global)))
}

// GetLogger returns the logger for module, creating it on first use.
func GetLogger(module string) *slog.Logger {
	reg.mu.RLock()
	l, ok := reg.loggers[module]
	reg.mu.RUnlock()
	if ok {
		return l
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if l, ok := reg.loggers[module]; ok {
		return l
	}

	lv := &slog.LevelVar{}
	lv.Set(reg.moduleLevel(module))
	l = slog.New(reg.handler(lv)).With("module", module)
	reg.levels[module] = lv
	reg.loggers[module] = l
	return l
}

// SetLevel changes a module's level at runtime. An empty module changes the
// global level and every module without its own override.
func SetLevel(module, level string) bool {
	parsed, ok := parseLevel(level)
	if !ok {
		return false
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if module == "" {
		reg.cfg.Level = level
		reg.global.Set(parsed)
		for m, lv := range reg.levels {
			if _, override := reg.cfg.Modules[m]; !override {
				lv.Set(parsed)
			}
		}
		return true
	}

	if reg.cfg.Modules == nil {
		reg.cfg.Modules = make(map[string]string)
	}
	reg.cfg.Modules[module] = level
	if lv, exists := reg.levels[module]; exists {
		lv.Set(parsed)
	}
	return true
}

// Levels returns the effective level of every known module.
func Levels() map[string]string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make(map[string]string, len(reg.levels))
	for m, lv := range reg.levels {
		out[m] = levelName(lv.Level())
	}
	return out
}

// GetHistory returns the in-memory log history.
func GetHistory() *History {
	return reg.history
}

func (r *registry) moduleLevel(module string) slog.Level {
	if !r.ready {
		return slog.LevelInfo
	}
	lvl := levelOr(r.cfg.Level, slog.LevelInfo)
	if s, ok := r.cfg.Modules[module]; ok {
		lvl = levelOr(s, lvl)
	}
	return lvl
}

// handler builds the output chain: stdout when something is attached to
// it, the journal when journald is running, and always the history.
func (r *registry) handler(level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	var handlers []slog.Handler

	if r.out != os.Stdout || stdoutAttached() {
		if r.cfg.Format == "json" {
			handlers = append(handlers, slog.NewJSONHandler(r.out, opts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(r.out, opts))
		}
	}
	if JournalAvailable() {
		handlers = append(handlers, NewJournalHandler(level))
	}
	handlers = append(handlers, NewHistoryHandler(r.history, level))

	if len(handlers) == 1 {
		return handlers[0]
	}
	return NewFanoutHandler(handlers...)
}

// stdoutAttached reports whether stdout goes to a terminal, pipe, socket or
// file rather than /dev/null.
func stdoutAttached() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	mode := fi.Mode()
	return mode&(os.ModeCharDevice|os.ModeNamedPipe|os.ModeSocket) != 0 || mode.IsRegular()
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return 0, false
	}
}

func levelOr(s string, def slog.Level) slog.Level {
	if l, ok := parseLevel(s); ok {
		return l
	}
	return def
}

func levelName(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warn"
	case level >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}
