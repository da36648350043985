// Package resilience holds the failure-handling primitives used by the
// service: a backoff schedule shared by the status poller and Retry, a
// circuit breaker in front of upstream APIs, a bulkhead that caps concurrent
// transcription pipelines, and a token-bucket rate limiter for the upload
// endpoint.
package resilience
