package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"fingergate/internal/config"
)

// Options describes logger construction parameters. OutputPaths accepts
// "stdout", "stderr", or file paths; files are created with their directory.
type Options struct {
	Level       string
	Format      string
	OutputPaths []string
	Development bool
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	level := new(slog.LevelVar)
	level.Set(parseLevel(opts.Level))
	addSource := opts.Development || level.Level() <= slog.LevelDebug

	var build func(io.Writer) slog.Handler
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "console":
		build = func(w io.Writer) slog.Handler {
			return &consoleHandler{out: &lockedWriter{w: w}, level: level, addSource: addSource}
		}
	case "json":
		build = func(w io.Writer) slog.Handler {
			return slog.NewJSONHandler(w, &slog.HandlerOptions{
				Level:       level,
				AddSource:   addSource,
				ReplaceAttr: jsonKeys,
			})
		}
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	out, err := openOutputs(opts.OutputPaths)
	if err != nil {
		return nil, err
	}
	return slog.New(build(out)), nil
}

// NewFromConfig creates the daemon logger: console or JSON on stdout, mirrored
// into the log file under paths.log_dir.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Level: "info"})
	}
	outputs := []string{"stdout"}
	if cfg.Paths.LogDir != "" {
		outputs = append(outputs, cfg.LogPath())
	}
	return New(Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: outputs,
	})
}

// NewCLI creates a logger for interactive commands. Output goes to stderr so
// stdout stays reserved for command results.
func NewCLI(cfg *config.Config, verbose bool) (*slog.Logger, error) {
	opts := Options{Level: "warn", OutputPaths: []string{"stderr"}}
	if cfg != nil {
		opts.Format = cfg.Logging.Format
	}
	if verbose {
		opts.Level = "debug"
	}
	return New(opts)
}

var levelNames = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// parseLevel falls back to info for unknown names; config validation has
// already rejected them for the daemon.
func parseLevel(name string) slog.Level {
	if level, ok := levelNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return level
	}
	return slog.LevelInfo
}

func openOutputs(paths []string) (io.Writer, error) {
	var writers []io.Writer
	seen := make(map[string]bool, len(paths))
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" || seen[path] {
			continue
		}
		seen[path] = true
		w, err := openOutput(path)
		if err != nil {
			return nil, err
		}
		writers = append(writers, w)
	}
	switch len(writers) {
	case 0:
		return os.Stdout, nil
	case 1:
		return writers[0], nil
	default:
		return io.MultiWriter(writers...), nil
	}
}

func openOutput(path string) (io.Writer, error) {
	switch path {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return file, nil
}

// jsonKeys shortens the time key and renders times and sources compactly.
func jsonKeys(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return a
	}
	switch a.Key {
	case slog.TimeKey:
		return slog.String("ts", a.Value.Time().UTC().Format(time.RFC3339))
	case slog.LevelKey:
		return slog.String(slog.LevelKey, strings.ToLower(a.Value.String()))
	case slog.SourceKey:
		if src, ok := a.Value.Any().(*slog.Source); ok && src != nil {
			return slog.String(slog.SourceKey, filepath.Base(src.File)+":"+strconv.Itoa(src.Line))
		}
	}
	return a
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) write(p []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := l.w.Write(p)
	return err
}

// lineHead holds the fields the console format lifts out of key=value form:
//
//	<ts> <LEVEL> <component> [<attempt_id> <identifier>]: <msg> k=v ...
type lineHead struct {
	component  string
	attempt    string
	identifier string
}

// take claims a top-level attribute for the head. The first value wins so a
// component logger derived from another keeps the outer name.
func (h *lineHead) take(key string, v slog.Value) bool {
	var slot *string
	switch key {
	case FieldComponent:
		slot = &h.component
	case FieldAttemptID:
		slot = &h.attempt
	case FieldIdentifier:
		slot = &h.identifier
	default:
		return false
	}
	if *slot == "" {
		*slot = valueText(v)
	}
	return true
}

func (h lineHead) appendTo(b []byte) []byte {
	start := len(b)
	b = append(b, h.component...)
	if h.attempt != "" || h.identifier != "" {
		if h.component != "" {
			b = append(b, ' ')
		}
		b = append(b, '[')
		b = append(b, h.attempt...)
		if h.attempt != "" && h.identifier != "" {
			b = append(b, ' ')
		}
		b = append(b, h.identifier...)
		b = append(b, ']')
	}
	if len(b) > start {
		b = append(b, ": "...)
	}
	return b
}

// consoleHandler writes one human-readable line per record. Attributes bound
// with WithAttrs are rendered once and reused.
type consoleHandler struct {
	out       *lockedWriter
	level     slog.Leveler
	addSource bool
	head      lineHead
	group     string
	bound     []byte
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	head := h.head
	fields := append([]byte(nil), h.bound...)
	r.Attrs(func(a slog.Attr) bool {
		fields = appendAttr(fields, &head, h.group, a)
		return true
	})

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	b := make([]byte, 0, 96+len(r.Message)+len(fields))
	b = ts.UTC().AppendFormat(b, time.RFC3339)
	b = append(b, ' ')
	b = append(b, levelTag(r.Level)...)
	b = append(b, ' ')
	b = head.appendTo(b)
	if msg := strings.TrimSpace(r.Message); msg != "" {
		b = append(b, msg...)
	} else {
		b = append(b, "(no message)"...)
	}
	if h.addSource {
		if src := recordSource(r); src != nil {
			b = fmt.Appendf(b, " [%s:%d]", filepath.Base(src.File), src.Line)
		}
	}
	b = append(b, fields...)
	b = append(b, '\n')
	return h.out.write(b)
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	next := *h
	next.bound = append([]byte(nil), h.bound...)
	for _, a := range attrs {
		next.bound = appendAttr(next.bound, &next.head, h.group, a)
	}
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.group = h.group + name + "."
	return &next
}

func appendAttr(b []byte, head *lineHead, group string, a slog.Attr) []byte {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return b
	}
	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			group += a.Key + "."
		}
		for _, member := range a.Value.Group() {
			b = appendAttr(b, head, group, member)
		}
		return b
	}
	if group == "" && head.take(a.Key, a.Value) {
		return b
	}
	b = append(b, ' ')
	b = append(b, group...)
	b = append(b, a.Key...)
	b = append(b, '=')
	return appendValue(b, a.Value)
}

func appendValue(b []byte, v slog.Value) []byte {
	switch v.Kind() {
	case slog.KindInt64:
		return strconv.AppendInt(b, v.Int64(), 10)
	case slog.KindUint64:
		return strconv.AppendUint(b, v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.AppendFloat(b, v.Float64(), 'f', -1, 64)
	case slog.KindBool:
		return strconv.AppendBool(b, v.Bool())
	case slog.KindDuration:
		return append(b, v.Duration().String()...)
	case slog.KindTime:
		return v.Time().UTC().AppendFormat(b, time.RFC3339)
	}
	s := valueText(v)
	if s == "" || strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
		return strconv.AppendQuote(b, s)
	}
	return append(b, s...)
}

func valueText(v slog.Value) string {
	if v.Kind() == slog.KindAny {
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
	}
	return v.String()
}

func levelTag(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN "
	case level >= slog.LevelInfo:
		return "INFO "
	default:
		return "DEBUG"
	}
}
