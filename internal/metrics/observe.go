package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/keithlinneman/ikcamp-web/internal/web"
)

// RouteUnmatched labels requests no route or stage claimed.
const RouteUnmatched = "unmatched"

// Inflight tracks concurrently served requests.
func (m *ServerMetrics) Inflight(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.inflight.Inc()
		defer m.inflight.Dec()
		next.ServeHTTP(w, r)
	})
}

// Observe records a finished pipeline request. It matches the pipeline's
// OnComplete hook.
func (m *ServerMetrics) Observe(c *web.Context, elapsed time.Duration) {
	route := c.Route
	if route == "" {
		route = RouteUnmatched
	}
	m.ObserveRequest(c.Context(), c.Request.Method, route, c.Writer.Status(), c.Writer.Size(), elapsed)
}

// ObserveRequest records one request with safe labels only.
func (m *ServerMetrics) ObserveRequest(ctx context.Context, method, route string, status int, size int64, elapsed time.Duration) {
	if status == 0 {
		status = http.StatusOK
	}
	m.reqTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	if status >= http.StatusInternalServerError {
		m.errorsTotal.WithLabelValues(method, route).Inc()
	}

	lat := elapsed.Seconds()
	obs := m.reqDur.WithLabelValues(method, route)
	if ex := traceExemplar(ctx); ex != nil {
		if eo, ok := obs.(prometheus.ExemplarObserver); ok {
			eo.ObserveWithExemplar(lat, ex)
		} else {
			obs.Observe(lat)
		}
	} else {
		obs.Observe(lat)
	}

	m.respBytes.WithLabelValues(method, route).Observe(float64(size))
}

// if a sampled trace is present attach its trace_id as an exemplar
func traceExemplar(ctx context.Context) prometheus.Labels {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() || !sc.IsSampled() {
		return nil
	}
	return prometheus.Labels{"trace_id": sc.TraceID().String()}
}
