// Package oslog is a slog.Handler for the operating system log. Only Apple's
// unified logging is supported; elsewhere NewHandler returns nil and callers
// keep their terminal handler.
package oslog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Subsystem and Category identify inet entries in the system log.
const (
	Subsystem = "dev.inet"
	Category  = "client"
)

// handler renders records as "message key=value ..." and hands them to emit.
type handler struct {
	level  slog.Leveler
	emit   func(slog.Level, string)
	prefix string
	attrs  []string
}

func newHandler(level slog.Leveler, emit func(slog.Level, string)) *handler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &handler{level: level, emit: emit}
}

func (h *handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *handler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Message)
	for _, a := range h.attrs {
		b.WriteByte(' ')
		b.WriteString(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&b, h.prefix, a)
		return true
	})
	h.emit(r.Level, b.String())
	return nil
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var b strings.Builder
	for _, a := range attrs {
		appendAttr(&b, h.prefix, a)
	}
	rendered := strings.TrimPrefix(b.String(), " ")
	if rendered == "" {
		return h
	}
	clone := *h
	clone.attrs = append(h.attrs[:len(h.attrs):len(h.attrs)], rendered)
	return &clone
}

func (h *handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

// appendAttr writes " prefix.key=value", flattening groups into dotted keys.
func appendAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			appendAttr(b, prefix, ga)
		}
		return
	}

	b.WriteByte(' ')
	b.WriteString(prefix)
	b.WriteString(a.Key)
	b.WriteByte('=')
	b.WriteString(formatValue(a.Value))
}

func formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		if s == "" || strings.ContainsAny(s, " \t\n\"=") {
			return fmt.Sprintf("%q", s)
		}
		return s
	case slog.KindTime:
		return v.Time().Format("15:04:05.000")
	case slog.KindDuration:
		return v.Duration().String()
	default:
		return fmt.Sprint(v.Any())
	}
}
