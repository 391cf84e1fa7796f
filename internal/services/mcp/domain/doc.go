// Package domain translates MCP UX operations into run pipeline commands.
//
// The package is intentionally explicit about that mapping:
// - parse MCP tool input into survey and run domain calls,
// - route mutations through the run service so persistence and audit stay uniform,
// - and surface structured outputs that MCP clients can render.
//
// This keeps MCP behavior auditable from protocol message -> domain command ->
// stored run update.
package domain
