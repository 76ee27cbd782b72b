package xerrors

import (
	"errors"
	"runtime"
	"strings"
	"testing"
)

var errSentinel = errors.New("sentinel")

func stackContains(pcs []uintptr, substr string) bool {
	frames := runtime.CallersFrames(pcs)
	for {
		fr, more := frames.Next()
		if strings.Contains(fr.Function, substr) {
			return true
		}
		if !more {
			break
		}
	}
	return false
}

func TestNew_StackContainsCaller(t *testing.T) {
	err := New("test")

	var hs interface{ StackPCs() []uintptr }
	if !errors.As(err, &hs) {
		t.Fatal("New error should have StackPCs")
	}
	if !stackContains(hs.StackPCs(), "TestNew_StackContainsCaller") {
		t.Fatal("stack should contain calling function")
	}
}

func TestNewf_FormatsMessage(t *testing.T) {
	err := Newf("no route for %s %s", "GET", "/missing")
	if err.Error() != "no route for GET /missing" {
		t.Fatalf("Error() = %q", err.Error())
	}
}

func TestWrap_NilReturnsNil(t *testing.T) {
	if Wrap(nil, "ctx") != nil {
		t.Fatal("Wrap(nil) should be nil")
	}
	if Wrapf(nil, "ctx %d", 1) != nil {
		t.Fatal("Wrapf(nil) should be nil")
	}
}

func TestWrap_MessageAndUnwrap(t *testing.T) {
	err := Wrap(errSentinel, "load services")
	if err.Error() != "load services: sentinel" {
		t.Fatalf("Error() = %q", err.Error())
	}
	if !errors.Is(err, errSentinel) {
		t.Fatal("errors.Is should find sentinel through Wrap")
	}
}

func TestWrap_HasPC(t *testing.T) {
	err := Wrapf(errSentinel, "descriptor %s", "home.yaml")
	var hp interface{ PC() uintptr }
	if !errors.As(err, &hp) {
		t.Fatal("Wrapf should expose PC")
	}
	if hp.PC() == 0 {
		t.Fatal("PC should be non-zero")
	}
}

func TestEnsureTrace_Idempotent(t *testing.T) {
	first := EnsureTrace(errSentinel)
	second := EnsureTrace(first)
	if first != second {
		t.Fatal("EnsureTrace should not re-wrap an error that already has a stack")
	}
}

func TestEnsureTrace_NilReturnsNil(t *testing.T) {
	if EnsureTrace(nil) != nil {
		t.Fatal("EnsureTrace(nil) should be nil")
	}
}

func TestStackText_RendersCaller(t *testing.T) {
	err := New("boom")
	st := StackText(err)
	if !strings.Contains(st, "TestStackText_RendersCaller") {
		t.Fatalf("stack text should contain the test function, got:\n%s", st)
	}
	if strings.Contains(st, "/internal/xerrors.withStackSkip") {
		t.Fatalf("stack text should skip xerrors internals, got:\n%s", st)
	}
}

func TestStackText_NoStack(t *testing.T) {
	if got := StackText(errSentinel); got != "" {
		t.Fatalf("StackText(plain) = %q, want empty", got)
	}
	if got := StackText(nil); got != "" {
		t.Fatalf("StackText(nil) = %q, want empty", got)
	}
}
