// Package audit contains durable in-product audit writes for run service operations.
//
// This package owns persisted operational audit events that are used for
// incident analysis and cross-service debugging.
//
// For distributed tracing, this service still uses package `internal/platform/otel`.
package audit
