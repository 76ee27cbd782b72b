// Package httpmw provides the request pipeline stages and the few plain
// net/http middlewares that run in front of the pipeline.
//
// net/http layer (httpmw.Chain, first is outermost): security headers,
// recover, request id, client ip, OTel, trace headers, body size limit.
//
// Pipeline stages (web.Compose, first is outermost): error boundary,
// timing, request logger, rate limit, views, static files, body parser,
// output normalization, service and controller injection.
//
// Request bodies and query strings are never logged.
package httpmw
