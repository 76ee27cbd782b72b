// Package web holds the request pipeline primitives: the typed per-request
// Context, the Stage interface and Compose, and Pipeline, which adapts a
// composed Handler to net/http and flushes the buffered response.
//
// Stages mutate the Context (Status, Body, headers) instead of writing to
// the connection. The response is written once, after the outermost stage
// returns, unless a stage streamed it directly (see ResponseWriter.Written).
package web
