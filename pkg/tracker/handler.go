package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/soarflow/pkg/models"
)

// Handler is a slog.Handler that records every message of a run in the
// tracker and also passes it on to a base handler. Attributes attached to the
// record are appended to the stored message as key=value pairs; attributes
// added with WithAttrs only reach the base handler.
type Handler struct {
	tracker *Tracker
	runID   string
	base    slog.Handler
	groups  []string
}

func NewHandler(tracker *Tracker, runID string, base slog.Handler) *Handler {
	return &Handler{tracker: tracker, runID: runID, base: base}
}

// Logger returns a logger whose messages become log entries of runID.
func (t *Tracker) Logger(runID string, base *slog.Logger) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}

	return slog.New(NewHandler(t, runID, base.Handler()))
}

// LevelOf maps a slog level onto the three run log levels.
func LevelOf(level slog.Level) models.LogLevel {
	switch {
	case level < slog.LevelInfo:
		return models.LogLevelDebug
	case level < slog.LevelError:
		return models.LogLevelInfo
	default:
		return models.LogLevelError
	}
}

// Enabled always accepts, so debug entries reach the run log regardless of
// the process log level.
func (h *Handler) Enabled(context.Context, slog.Level) bool {
	return true
}

func (h *Handler) Handle(ctx context.Context, record slog.Record) error {
	if h.base != nil && h.base.Enabled(ctx, record.Level) {
		_ = h.base.Handle(ctx, record)
	}

	// Entries logged while a run unwinds from a cancelled context must still
	// be stored.
	return h.tracker.AppendLog(context.WithoutCancel(ctx), h.runID, LevelOf(record.Level), h.format(record))
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	if h.base != nil {
		clone.base = h.base.WithAttrs(attrs)
	}

	return &clone
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	clone := *h
	clone.groups = append(append([]string{}, h.groups...), name)

	if h.base != nil {
		clone.base = h.base.WithGroup(name)
	}

	return &clone
}

func (h *Handler) format(record slog.Record) string {
	if record.NumAttrs() == 0 {
		return record.Message
	}

	var b strings.Builder

	b.WriteString(record.Message)

	prefix := strings.Join(h.groups, ".")

	record.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, prefix, a)

		return true
	})

	return b.String()
}

func writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	key := a.Key
	if prefix != "" && key != "" {
		key = prefix + "." + key
	} else if key == "" {
		key = prefix
	}

	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			writeAttr(b, key, ga)
		}

		return
	}

	fmt.Fprintf(b, " %s=%v", key, a.Value.Any())
}
