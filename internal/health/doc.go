// Package health provides the probes behind the admin listener's liveness
// and readiness handlers.
//
// [All] combines probes and reports every failure. [Loaded] fails until a
// startup collection is non-empty, and [ShutdownGate] fails readiness
// while the server drains.
package health
