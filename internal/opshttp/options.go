package opshttp

import (
	"net/http"

	"github.com/keithlinneman/ikcamp-web/internal/health"
)

type Options struct {
	Port        int
	Metrics     http.Handler
	EnablePprof bool
	Health      health.Probe
	Readiness   health.Probe

	// BuildInfo, when set, is served as JSON on /version.
	BuildInfo any

	UseRecoverMW bool
	OnPanic      func() // called for every recovered panic, e.g. to increment a counter
}
