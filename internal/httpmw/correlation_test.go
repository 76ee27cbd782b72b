package httpmw

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

func TestRequestIDContext(t *testing.T) {
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Fatalf("bare context = %q", got)
	}
	if got := RequestIDFromContext(WithRequestID(context.Background(), "")); got != "" {
		t.Fatalf("empty id should not be stored, got %q", got)
	}
	if got := RequestIDFromContext(WithRequestID(context.Background(), "abc")); got != "abc" {
		t.Fatalf("got %q", got)
	}
}

func runRequestID(t *testing.T, incoming string) (ctxID, header string) {
	t.Helper()
	h := RequestID("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = RequestIDFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	if incoming != "" {
		req.Header.Set(DefaultRequestIDHeader, incoming)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return ctxID, rec.Header().Get(DefaultRequestIDHeader)
}

func TestRequestID_GeneratesUUID(t *testing.T) {
	id, header := runRequestID(t, "")
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("generated id %q is not a uuid: %v", id, err)
	}
	if header != id {
		t.Fatalf("response header = %q, context = %q", header, id)
	}
}

func TestRequestID_PropagatesExisting(t *testing.T) {
	id, header := runRequestID(t, "upstream-123")
	if id != "upstream-123" || header != "upstream-123" {
		t.Fatalf("ctx = %q header = %q", id, header)
	}
}

func TestRequestID_RejectsUnsafeIncoming(t *testing.T) {
	for _, bad := range []string{"has space", strings.Repeat("a", maxRequestIDLen+1), "tab\tid"} {
		id, _ := runRequestID(t, bad)
		if id == bad {
			t.Fatalf("unsafe id %q was propagated", bad)
		}
		if _, err := uuid.Parse(id); err != nil {
			t.Fatalf("replacement id %q is not a uuid", id)
		}
	}
}

func TestTraceResponseHeaders(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})

	h := TraceResponseHeaders("", "")(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req = req.WithContext(trace.ContextWithSpanContext(req.Context(), sc))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Trace-Id"); got != traceID.String() {
		t.Fatalf("X-Trace-Id = %q", got)
	}
	if got := rec.Header().Get("X-Span-Id"); got != spanID.String() {
		t.Fatalf("X-Span-Id = %q", got)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	if rec.Header().Get("X-Trace-Id") != "" {
		t.Fatal("no span: header should be absent")
	}
}
