package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func newTestLogger(t *testing.T, buf *bytes.Buffer, opts Options) *slogLogger {
	t.Helper()
	opts.Writer = buf
	l, err := newSlog(opts)
	if err != nil {
		t.Fatalf("newSlog: %v", err)
	}
	return l.(*slogLogger)
}

// jsonRecord parses the last JSON log line in buf.
func jsonRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	last := lines[len(lines)-1]
	var m map[string]any
	if err := json.Unmarshal([]byte(last), &m); err != nil {
		t.Fatalf("parse JSON log line: %v\nraw: %s", err, last)
	}
	return m
}

func TestNewSlog_MetadataAttrs(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(t, &buf, Options{
		App:        "ikcamp-web",
		Env:        "development",
		Category:   "web",
		Project:    "node-tutorial",
		ServerIP:   "10.0.0.7",
		JsonFormat: true,
	})

	l.Info(context.Background(), "hello")

	m := jsonRecord(t, &buf)
	want := map[string]string{
		"app":       "ikcamp-web",
		"env":       "development",
		"category":  "web",
		"project":   "node-tutorial",
		"server_ip": "10.0.0.7",
		"msg":       "hello",
	}
	for k, v := range want {
		if m[k] != v {
			t.Errorf("%s = %v, want %q", k, m[k], v)
		}
	}
	if _, ok := m["version"]; ok {
		t.Error("empty metadata should be omitted")
	}
}

func TestNewSlog_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(t, &buf, Options{App: "test"})

	l.Info(context.Background(), "logfmt line", "k", "v")

	out := buf.String()
	if !strings.Contains(out, "msg=\"logfmt line\"") || !strings.Contains(out, "k=v") {
		t.Fatalf("unexpected logfmt output: %s", out)
	}
}

func TestNewSlog_DirWritesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	var buf bytes.Buffer
	l := newTestLogger(t, &buf, Options{App: "test", Project: "node-tutorial", Dir: dir, JsonFormat: true})

	l.Info(context.Background(), "to file")
	if err := l.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "node-tutorial.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(b), "to file") {
		t.Fatalf("log file missing record: %s", b)
	}
	if !strings.Contains(buf.String(), "to file") {
		t.Fatal("writer should still receive the record")
	}
}

func TestSlogLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(t, &buf, Options{App: "test", JsonFormat: true, Level: slog.LevelWarn})
	ctx := context.Background()

	l.Debug(ctx, "debug")
	l.Info(ctx, "info")
	if buf.Len() != 0 {
		t.Fatalf("records below warn should be dropped, got: %s", buf.String())
	}

	l.Warn(ctx, "warn")
	if m := jsonRecord(t, &buf); m["msg"] != "warn" {
		t.Fatalf("msg = %v, want warn", m["msg"])
	}
}

func TestSlogLogger_With_CopyOnWrite(t *testing.T) {
	var buf bytes.Buffer
	base := newTestLogger(t, &buf, Options{App: "test", JsonFormat: true})

	child := base.With("request_id", "abc", 42, "ignored", "odd")
	child.Info(context.Background(), "child")
	m := jsonRecord(t, &buf)
	if m["request_id"] != "abc" {
		t.Fatalf("request_id = %v", m["request_id"])
	}

	buf.Reset()
	base.Info(context.Background(), "base")
	m = jsonRecord(t, &buf)
	if _, ok := m["request_id"]; ok {
		t.Fatal("With must not mutate the parent logger")
	}
}

func TestSlogLogger_Error_Enrichment(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(t, &buf, Options{App: "test", JsonFormat: true})

	inner := errors.New("disk full")
	l.Error(context.Background(), fmt.Errorf("render page: %w", inner), "request failed", "status", 500)

	m := jsonRecord(t, &buf)
	if m["err"] != "render page: disk full" {
		t.Fatalf("err = %v", m["err"])
	}
	if m["error_type"] != "*errors.errorString" {
		t.Fatalf("error_type = %v", m["error_type"])
	}
	chain, ok := m["error_chain"].([]any)
	if !ok || len(chain) != 2 {
		t.Fatalf("error_chain = %v", m["error_chain"])
	}
	if m["status"] != float64(500) {
		t.Fatalf("status = %v", m["status"])
	}
	if s, _ := m["stack"].(string); s == "" {
		t.Fatal("stack should be attached at error level")
	}
}

func TestSlogLogger_Error_NilError(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(t, &buf, Options{App: "test", JsonFormat: true})

	l.Error(context.Background(), nil, "no error value")

	m := jsonRecord(t, &buf)
	if _, ok := m["err"]; ok {
		t.Fatal("err should be absent for nil error")
	}
}

func TestOtelHandler_AddsTraceFields(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(t, &buf, Options{App: "test", JsonFormat: true})

	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	l.Info(ctx, "traced msg")

	m := jsonRecord(t, &buf)
	if m["trace_id"] != "0102030405060708090a0b0c0d0e0f10" {
		t.Fatalf("trace_id = %v", m["trace_id"])
	}
	if m["span_id"] != "0102030405060708" {
		t.Fatalf("span_id = %v", m["span_id"])
	}
}

func TestStackHandler_NoStackBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(t, &buf, Options{App: "test", JsonFormat: true})

	l.Info(context.Background(), "info msg")

	m := jsonRecord(t, &buf)
	if _, found := m["stack"]; found {
		t.Fatal("stack should not be present at info level")
	}
}

func TestStackHandler_ConfiguredInfoLevel(t *testing.T) {
	var buf bytes.Buffer
	lvl := slog.LevelInfo
	l := newTestLogger(t, &buf, Options{App: "test", JsonFormat: true, StacktraceLevel: &lvl})

	l.Info(context.Background(), "info msg")

	m := jsonRecord(t, &buf)
	if s, _ := m["stack"].(string); s == "" {
		t.Fatal("stack should be attached at info level when configured")
	}
}
