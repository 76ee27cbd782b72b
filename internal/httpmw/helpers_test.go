package httpmw

import (
	"context"
	"io"
	"net/http/httptest"
	"sync"

	"github.com/keithlinneman/ikcamp-web/internal/log"
	"github.com/keithlinneman/ikcamp-web/internal/web"
)

type captured struct {
	level string
	msg   string
	err   error
	kv    []any
}

// recLogger records every call; With accumulates fields on a shared sink.
type recLogger struct {
	mu    *sync.Mutex
	sink  *[]captured
	withs []any
}

func newRecLogger() *recLogger {
	return &recLogger{mu: &sync.Mutex{}, sink: &[]captured{}}
}

func (l *recLogger) With(kv ...any) log.Logger {
	return &recLogger{mu: l.mu, sink: l.sink, withs: append(append([]any(nil), l.withs...), kv...)}
}

func (l *recLogger) add(level, msg string, err error, kv []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	all := append(append([]any(nil), l.withs...), kv...)
	*l.sink = append(*l.sink, captured{level: level, msg: msg, err: err, kv: all})
}

func (l *recLogger) Debug(_ context.Context, msg string, kv ...any) { l.add("debug", msg, nil, kv) }
func (l *recLogger) Info(_ context.Context, msg string, kv ...any)  { l.add("info", msg, nil, kv) }
func (l *recLogger) Warn(_ context.Context, msg string, kv ...any)  { l.add("warn", msg, nil, kv) }
func (l *recLogger) Error(_ context.Context, err error, msg string, kv ...any) {
	l.add("error", msg, err, kv)
}
func (l *recLogger) Sync() error { return nil }

func (l *recLogger) entries() []captured {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]captured(nil), *l.sink...)
}

func (l *recLogger) find(msg string) (captured, bool) {
	for _, e := range l.entries() {
		if e.msg == msg {
			return e, true
		}
	}
	return captured{}, false
}

// field returns the value following key in kv.
func field(kv []any, key string) (any, bool) {
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i] == key {
			return kv[i+1], true
		}
	}
	return nil, false
}

func newCtx(method, target string, body io.Reader) (*web.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	return web.NewContext(rec, httptest.NewRequest(method, target, body)), rec
}

func ok(*web.Context) error { return nil }

func logFromRequest(c *web.Context) (log.Logger, bool) {
	return log.Lookup(c.Context())
}
