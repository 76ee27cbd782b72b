// Package ratelimit provides per-client rate limiting as a pipeline stage,
// with background eviction of idle clients.
//
// This is a single-instance, in-memory limiter meant to stop one client
// from flooding the process. It does not protect against distributed
// floods; use an upstream proxy or CDN for that.
package ratelimit
