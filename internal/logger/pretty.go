package logger

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiBlue   = "\033[34m"
	ansiPurple = "\033[35m"
	ansiCyan   = "\033[36m"
	ansiBold   = "\033[1m"
	ansiFaint  = "\033[2m"
)

// tagKeys are lifted out of the attribute list into a leading tag, in this
// order, so lines of one run, scope, or partition line up when scanning.
var tagKeys = []string{KeyRun, KeyScope, KeyPartition}

// PrettyHandler writes one colored line per record for terminals:
//
//	15:04:05 WRN [run-x1 action/game] imputation miss title_id=7 error="..."
//
// Top-level run, scope, and partition attributes form the tag. The error
// attribute always comes last.
type PrettyHandler struct {
	opts  slog.HandlerOptions
	out   io.Writer
	mu    *sync.Mutex
	group string
	attrs []slog.Attr
}

// NewPrettyHandler creates a handler writing to w. A nil opts logs at info.
func NewPrettyHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	h := &PrettyHandler{out: w, mu: &sync.Mutex{}}
	if opts != nil {
		h.opts = *opts
	}
	return h
}

func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	if h.opts.Level == nil {
		return level >= slog.LevelInfo
	}
	return level >= h.opts.Level.Level()
}

func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	attrs = append(attrs, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, qualify(h.group, a))
		return true
	})

	tags, errText, rest := split(attrs)

	var b strings.Builder
	b.Grow(256)

	paint(&b, ansiFaint, r.Time.Format(time.TimeOnly))
	b.WriteByte(' ')
	label, color := levelLabel(r.Level)
	paint(&b, color, label)
	b.WriteByte(' ')

	if len(tags) > 0 {
		paint(&b, ansiBlue, "["+strings.Join(tags, " ")+"]")
		b.WriteByte(' ')
	}
	if h.opts.AddSource && r.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		paint(&b, ansiFaint, filepath.Base(frame.File)+":"+strconv.Itoa(frame.Line))
		b.WriteByte(' ')
	}
	paint(&b, ansiBold, r.Message)

	if len(rest) > 0 {
		b.WriteByte(' ')
		b.WriteString(ansiCyan)
		wrote := false
		writeAttrs(&b, "", rest, &wrote)
		b.WriteString(ansiReset)
	}
	if errText != "" {
		b.WriteByte(' ')
		paint(&b, ansiRed, KeyError+"="+quoteIfNeeded(errText))
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	next.attrs = append(next.attrs, h.attrs...)
	for _, a := range attrs {
		next.attrs = append(next.attrs, qualify(h.group, a))
	}
	return &next
}

func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.group = joinKey(h.group, name)
	return &next
}

// split separates tag values and the error text from the other attributes.
// A later tag attribute replaces an earlier one with the same key.
func split(attrs []slog.Attr) (tags []string, errText string, rest []slog.Attr) {
	found := make(map[string]string, len(tagKeys))
	for _, a := range attrs {
		a.Value = a.Value.Resolve()
		switch {
		case a.Key == KeyError:
			errText = a.Value.String()
		case isTagKey(a.Key) && a.Value.Kind() != slog.KindGroup:
			found[a.Key] = a.Value.String()
		default:
			rest = append(rest, a)
		}
	}
	for _, k := range tagKeys {
		if v, ok := found[k]; ok {
			tags = append(tags, v)
		}
	}
	return tags, errText, rest
}

func isTagKey(key string) bool {
	for _, k := range tagKeys {
		if k == key {
			return true
		}
	}
	return false
}

func writeAttrs(b *strings.Builder, group string, attrs []slog.Attr, wrote *bool) {
	for _, a := range attrs {
		a.Value = a.Value.Resolve()
		if a.Equal(slog.Attr{}) {
			continue
		}
		key := joinKey(group, a.Key)
		if a.Value.Kind() == slog.KindGroup {
			writeAttrs(b, key, a.Value.Group(), wrote)
			continue
		}
		if *wrote {
			b.WriteByte(' ')
		}
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(valueText(a.Value))
		*wrote = true
	}
}

func qualify(group string, a slog.Attr) slog.Attr {
	a.Key = joinKey(group, a.Key)
	return a
}

func joinKey(group, key string) string {
	if group == "" {
		return key
	}
	return group + "." + key
}

func paint(b *strings.Builder, color, s string) {
	b.WriteString(color)
	b.WriteString(s)
	b.WriteString(ansiReset)
}

func levelLabel(level slog.Level) (string, string) {
	switch {
	case level >= slog.LevelError:
		return "ERR", ansiRed
	case level >= slog.LevelWarn:
		return "WRN", ansiYellow
	case level >= slog.LevelInfo:
		return "INF", ansiGreen
	default:
		return "DBG", ansiPurple
	}
}

func valueText(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return quoteIfNeeded(v.String())
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	default:
		return v.String()
	}
}

// quoteIfNeeded keeps key=value pairs splittable on spaces.
func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\"=") {
		return strconv.Quote(s)
	}
	return s
}
