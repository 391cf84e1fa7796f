// Package events defines canonical run audit event names.
//
// The names intentionally remain stable (`telemetry.*`) because operational
// consumers already rely on these values.
package events

const (
	// HTTPRead captures durable audit events for read-only HTTP handlers.
	HTTPRead = "telemetry.http.read"
	// HTTPWrite captures durable audit events for write-path HTTP handlers.
	HTTPWrite = "telemetry.http.write"
	// RunCreate captures pipeline run creation with its scoring outcome.
	RunCreate = "telemetry.run.create"
)
