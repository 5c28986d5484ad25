package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

const (
	consoleTimeFormat = "15:04:05"

	colorReset  = "\x1b[0m"
	colorRed    = "\x1b[31m"
	colorYellow = "\x1b[33m"
	colorBlue   = "\x1b[34m"
	colorGray   = "\x1b[90m"
)

// consoleHandler renders compact single-line records for terminal output.
// Known workflow fields are printed first in a stable order; remaining attrs
// follow sorted by key.
type consoleHandler struct {
	mu       *sync.Mutex
	writer   io.Writer
	level    *slog.LevelVar
	colorize bool
	attrs    []slog.Attr
}

var fieldOrder = []string{
	FieldComponent,
	FieldSessionID,
	FieldProjectID,
	FieldStep,
	FieldMode,
	FieldTaskID,
}

func newConsoleHandler(w io.Writer, lvl *slog.LevelVar) slog.Handler {
	colorize := false
	if f, ok := w.(*os.File); ok {
		colorize = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &consoleHandler{
		mu:       &sync.Mutex{},
		writer:   w,
		level:    lvl,
		colorize: colorize,
	}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	var sb strings.Builder

	sb.WriteString(h.dim(record.Time.Format(consoleTimeFormat)))
	sb.WriteByte(' ')
	sb.WriteString(h.levelLabel(record.Level))
	sb.WriteByte(' ')
	sb.WriteString(record.Message)

	ordered := make(map[string]slog.Value)
	var rest []slog.Attr
	collect := func(attr slog.Attr) {
		if attr.Equal(slog.Attr{}) {
			return
		}
		for _, key := range fieldOrder {
			if attr.Key == key {
				ordered[key] = attr.Value
				return
			}
		}
		rest = append(rest, attr)
	}
	for _, attr := range h.attrs {
		collect(attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		collect(attr)
		return true
	})

	for _, key := range fieldOrder {
		if value, ok := ordered[key]; ok {
			sb.WriteByte(' ')
			sb.WriteString(h.dim(key + "=" + formatValue(value)))
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].Key < rest[j].Key })
	for _, attr := range rest {
		sb.WriteByte(' ')
		sb.WriteString(h.dim(attr.Key + "=" + formatValue(attr.Value)))
	}
	sb.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.writer, sb.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	// Groups are flattened in console output.
	return h
}

func (h *consoleHandler) levelLabel(level slog.Level) string {
	label := strings.ToUpper(level.String())
	if !h.colorize {
		return label
	}
	switch {
	case level >= slog.LevelError:
		return colorRed + label + colorReset
	case level >= slog.LevelWarn:
		return colorYellow + label + colorReset
	case level <= slog.LevelDebug:
		return colorGray + label + colorReset
	default:
		return colorBlue + label + colorReset
	}
}

func (h *consoleHandler) dim(text string) string {
	if !h.colorize {
		return text
	}
	return colorGray + text + colorReset
}

func formatValue(value slog.Value) string {
	value = value.Resolve()
	switch value.Kind() {
	case slog.KindString:
		s := value.String()
		if strings.ContainsAny(s, " \t") {
			return fmt.Sprintf("%q", s)
		}
		return s
	case slog.KindDuration:
		return value.Duration().Round(time.Millisecond).String()
	case slog.KindFloat64:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", value.Float64()), "0"), ".")
	default:
		return value.String()
	}
}
