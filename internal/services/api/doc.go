// Package api hosts the JSON HTTP surface for the run service.
//
// The server exposes the survey instrument, scoring and placement,
// pipeline runs with optional persistence, and the stored-run read
// models (listing, comparison, projection, statistics). A websocket
// feed broadcasts run-created events to connected clients.
package api
