package log

// formatter.go renders consensus records for terminals. Chain coordinates
// (module, slot, epoch, shard, validator index, checkpoint epochs) lead
// the attribute list in a fixed order, and 32-byte roots are elided to a
// short hex form, so an epoch-transition or slashing line stays readable
// on one screen line.

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// chainKeys is the fixed front-of-line ordering for the coordinates the
// consensus subsystems log; any remaining attributes follow sorted by key.
var chainKeys = []string{"module", "slot", "epoch", "shard", "index", "justified", "finalized"}

// terminalTimeFormat keeps timestamps short; the day and millisecond are
// what matter when eyeballing slot pacing, not the year.
const terminalTimeFormat = "01-02|15:04:05.000"

// TerminalHandler is a slog.Handler for interactive runs, where the JSON
// handler's output is noise. One line per record:
//
//	01-02|12:00:00.000 INFO  epoch processed module=state_transition slot=31 epoch=3 finalized=1
type TerminalHandler struct {
	mu    *sync.Mutex
	w     io.Writer
	level slog.Level
	attrs []slog.Attr
}

// NewTerminalHandler creates a TerminalHandler writing to w, dropping
// records below level.
func NewTerminalHandler(w io.Writer, level slog.Level) *TerminalHandler {
	return &TerminalHandler{mu: new(sync.Mutex), w: w, level: level}
}

// Enabled reports whether a record at the given level would be written.
func (h *TerminalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// WithAttrs returns a handler that prepends attrs to every record. The
// clone shares the parent's writer and lock.
func (h *TerminalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

// WithGroup returns the handler unchanged; the consensus loggers do not
// use attribute groups.
func (h *TerminalHandler) WithGroup(string) slog.Handler {
	return h
}

// Handle formats and writes one record.
func (h *TerminalHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	attrs = append(attrs, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)
		return true
	})

	var b strings.Builder
	if !r.Time.IsZero() {
		b.WriteString(r.Time.Format(terminalTimeFormat))
		b.WriteString(" ")
	}
	// Pad to the widest level tag (DEBUG/ERROR) so messages align.
	b.WriteString(fmt.Sprintf("%-5s", r.Level.String()))
	b.WriteString(" ")
	b.WriteString(r.Message)

	for _, a := range orderAttrs(attrs) {
		b.WriteString(" ")
		b.WriteString(a.Key)
		b.WriteString("=")
		b.WriteString(formatValue(a.Value))
	}
	b.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

// orderAttrs places the chain-coordinate keys first, in chainKeys order,
// and the rest after them sorted by key.
func orderAttrs(attrs []slog.Attr) []slog.Attr {
	out := make([]slog.Attr, 0, len(attrs))
	isChainKey := make(map[string]bool, len(chainKeys))
	for _, key := range chainKeys {
		isChainKey[key] = true
		for _, a := range attrs {
			if a.Key == key {
				out = append(out, a)
			}
		}
	}

	rest := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		if !isChainKey[a.Key] {
			rest = append(rest, a)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool { return rest[i].Key < rest[j].Key })
	return append(out, rest...)
}

// formatValue renders one attribute value, eliding full-length root hex.
func formatValue(v slog.Value) string {
	return shortRoot(fmt.Sprintf("%v", v.Resolve().Any()))
}

// shortRoot elides a 32-byte root's 0x-prefixed hex form to its first four
// and last three bytes. Anything that is not exactly a 64-digit hex string
// behind a 0x prefix passes through untouched.
func shortRoot(s string) string {
	if len(s) == 66 && strings.HasPrefix(s, "0x") && isHex(s[2:]) {
		return s[:10] + ".." + s[60:]
	}
	return s
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}
