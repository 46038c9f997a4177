package logging

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"
)

// Entry is one log line kept in memory for the API.
type Entry struct {
	Timestamp  time.Time      `json:"timestamp"`
	Level      string         `json:"level"`
	Module     string         `json:"module"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// String formats the entry as a single display line.
func (e Entry) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s [%s] [%s] %s",
		e.Timestamp.Format(time.RFC3339Nano), strings.ToUpper(e.Level), e.Module, e.Message)

	keys := make([]string, 0, len(e.Attributes))
	for k := range e.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%v", k, e.Attributes[k])
	}
	return sb.String()
}

// History is a bounded, thread-safe log history with live subscribers.
type History struct {
	mu      sync.RWMutex
	entries []Entry
	next    int
	full    bool
	subs    map[int]func(Entry)
	subID   int
}

// NewHistory creates a history that keeps the last size entries.
func NewHistory(size int) *History {
	return &History{entries: make([]Entry, size), subs: make(map[int]func(Entry))}
}

// Add appends an entry, evicting the oldest when full, and notifies
// subscribers.
func (h *History) Add(e Entry) {
	h.mu.Lock()
	h.entries[h.next] = e
	h.next = (h.next + 1) % len(h.entries)
	if h.next == 0 {
		h.full = true
	}
	subs := make([]func(Entry), 0, len(h.subs))
	for _, fn := range h.subs {
		subs = append(subs, fn)
	}
	h.mu.Unlock()

	for _, fn := range subs {
		fn(e)
	}
}

// Entries returns the retained entries, oldest first.
func (h *History) Entries() []Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.full {
		return slices.Clone(h.entries[:h.next])
	}
	return append(slices.Clone(h.entries[h.next:]), h.entries[:h.next]...)
}

// Len returns the number of retained entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.full {
		return len(h.entries)
	}
	return h.next
}

// Subscribe calls fn for every new entry until the returned function is
// called. fn runs on the logging goroutine and must not block.
func (h *History) Subscribe(fn func(Entry)) func() {
	h.mu.Lock()
	id := h.subID
	h.subID++
	h.subs[id] = fn
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

// HistoryHandler is a slog.Handler that records into a History.
type HistoryHandler struct {
	history *History
	level   slog.Leveler
	attrs   []slog.Attr
	groups  []string
}

// NewHistoryHandler creates a handler writing to history.
func NewHistoryHandler(history *History, level slog.Leveler) *HistoryHandler {
	return &HistoryHandler{history: history, level: level}
}

// Enabled implements slog.Handler.
func (h *HistoryHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *HistoryHandler) Handle(_ context.Context, r slog.Record) error {
	e := Entry{
		Timestamp:  r.Time,
		Level:      levelName(r.Level),
		Module:     "app",
		Message:    r.Message,
		Attributes: make(map[string]any),
	}
	collect := func(groups []string, a slog.Attr) {
		if a.Key == "module" && len(groups) == 0 {
			e.Module = a.Value.String()
			return
		}
		flatten(e.Attributes, groups, a)
	}
	for _, a := range h.attrs {
		collect(nil, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		collect(h.groups, a)
		return true
	})
	if len(e.Attributes) == 0 {
		e.Attributes = nil
	}
	h.history.Add(e)
	return nil
}

// WithAttrs implements slog.Handler.
func (h *HistoryHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = slices.Clone(h.attrs)
	for _, a := range attrs {
		if len(h.groups) > 0 {
			a = slog.Attr{Key: strings.Join(h.groups, ".") + "." + a.Key, Value: a.Value}
		}
		next.attrs = append(next.attrs, a)
	}
	return &next
}

// WithGroup implements slog.Handler.
func (h *HistoryHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.groups = append(slices.Clone(h.groups), name)
	return &next
}

// flatten stores a into attrs with dotted keys for groups.
func flatten(attrs map[string]any, groups []string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	key := a.Key
	if len(groups) > 0 {
		key = strings.Join(groups, ".") + "." + key
	}

	switch a.Value.Kind() {
	case slog.KindGroup:
		for _, ga := range a.Value.Group() {
			flatten(attrs, append(slices.Clone(groups), a.Key), ga)
		}
	case slog.KindTime:
		attrs[key] = a.Value.Time().Format(time.RFC3339Nano)
	case slog.KindDuration:
		attrs[key] = a.Value.Duration().String()
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			attrs[key] = err.Error()
		} else {
			attrs[key] = a.Value.Any()
		}
	default:
		attrs[key] = a.Value.Any()
	}
}
