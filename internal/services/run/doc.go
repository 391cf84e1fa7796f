// Package run contains the internal service boundary for survey-driven
// pipeline runs.
//
// The service scores Likert responses, executes the glyph pipeline over
// the resulting state, persists run records, and serves listing,
// comparison, projection, and statistics reads over stored runs.
package run
