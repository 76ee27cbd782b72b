package log

import "context"

// discard implements Logger and drops everything, for tests and for
// code paths that run before the process logger exists.
type discard struct{}

func (discard) Debug(context.Context, string, ...any)        {}
func (discard) Info(context.Context, string, ...any)         {}
func (discard) Warn(context.Context, string, ...any)         {}
func (discard) Error(context.Context, error, string, ...any) {}
func (discard) Sync() error                                  { return nil }
func (d discard) With(...any) Logger                         { return d }

// Nop returns a no-op Logger.
func Nop() Logger { return discard{} }
