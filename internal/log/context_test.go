package log

import (
	"context"
	"io"
	"testing"
)

func TestWithContext_RoundTrip(t *testing.T) {
	l, _ := New(Options{App: "test", Writer: io.Discard})
	ctx := WithContext(context.Background(), l)

	if got := FromContext(ctx); got != l {
		t.Fatal("FromContext returned a different logger than what was stored")
	}
	got, ok := Lookup(ctx)
	if !ok || got != l {
		t.Fatal("Lookup should find the stored logger")
	}
}

func TestLookup_Missing(t *testing.T) {
	cases := map[string]context.Context{
		"empty":      context.Background(),
		"nil logger": context.WithValue(context.Background(), ctxKey{}, nil),
		"wrong type": context.WithValue(context.Background(), ctxKey{}, "not a logger"),
	}
	for name, ctx := range cases {
		t.Run(name, func(t *testing.T) {
			if _, ok := Lookup(ctx); ok {
				t.Fatal("Lookup should report no logger")
			}
			// FromContext falls back to a usable no-op
			FromContext(ctx).Info(ctx, "should not panic")
		})
	}
}

func TestLookup_NilContext(t *testing.T) {
	//nolint:staticcheck // nil context is part of the contract
	if _, ok := Lookup(nil); ok {
		t.Fatal("Lookup(nil) should report no logger")
	}
}

func TestWithContext_DoesNotAffectParent(t *testing.T) {
	parent := context.Background()
	l, _ := New(Options{App: "test", Writer: io.Discard})

	child := WithContext(parent, l)

	if _, ok := Lookup(parent); ok {
		t.Fatal("parent context should not have the logger")
	}
	if FromContext(child) != l {
		t.Fatal("child context should have the logger")
	}
}
