package health

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/keithlinneman/ikcamp-web/internal/xerrors"
)

// Probe is evaluated at request time. A nil error means healthy; the
// error text is served as the reason.
type Probe interface{ Check(context.Context) error }

// CheckFunc adapts a function into a Probe.
type CheckFunc func(context.Context) error

func (f CheckFunc) Check(ctx context.Context) error { return f(ctx) }

// Fixed returns a probe that always passes, or always fails with reason.
func Fixed(ok bool, reason string) CheckFunc {
	if ok {
		return func(context.Context) error { return nil }
	}
	if reason == "" {
		reason = "unhealthy"
	}
	return func(context.Context) error { return xerrors.New(reason) }
}

// Loaded fails while count reports zero items of what.
func Loaded(what string, count func() int) CheckFunc {
	return func(context.Context) error {
		if count == nil || count() == 0 {
			return xerrors.Newf("%s: none loaded", what)
		}
		return nil
	}
}

// All passes when every non-nil probe passes. Every probe is evaluated and
// all failures are reported, one per line.
func All(ps ...Probe) CheckFunc {
	return func(ctx context.Context) error {
		var errs []error
		for _, p := range ps {
			if p == nil {
				continue
			}
			if err := p.Check(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}

// ShutdownGate fails readiness once Set is called, so load balancers stop
// routing new requests while in-flight ones finish. The zero value is open.
type ShutdownGate struct {
	reason atomic.Pointer[string]
}

// Set closes the gate. An empty reason reports "draining".
func (g *ShutdownGate) Set(reason string) {
	if reason == "" {
		reason = "draining"
	}
	g.reason.Store(&reason)
}

// Draining reports whether Set has been called.
func (g *ShutdownGate) Draining() bool { return g.reason.Load() != nil }

func (g *ShutdownGate) Probe() CheckFunc {
	return func(context.Context) error {
		if r := g.reason.Load(); r != nil {
			return xerrors.New(*r)
		}
		return nil
	}
}
