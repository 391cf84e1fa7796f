package domain

import (
	"context"
	"strings"

	"github.com/louisbranch/ontogenic.space/internal/platform/id"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// InvocationIDMetaKey names the tool-result metadata entry carrying the
// invocation correlation identifier.
const InvocationIDMetaKey = "X-Ontogenic-Space-Invocation-Id"

// ToolCallMetadata carries correlation identifiers for MCP tool calls.
type ToolCallMetadata struct {
	InvocationID string
}

// ResourceUpdateNotifier notifies MCP clients about resource updates.
type ResourceUpdateNotifier func(ctx context.Context, uri string)

// NewInvocationID generates an invocation identifier for a tool call.
func NewInvocationID() (string, error) {
	return id.NewID()
}

// CallToolResultWithMetadata builds a tool result with correlation metadata.
func CallToolResultWithMetadata(meta ToolCallMetadata) *mcp.CallToolResult {
	result := &mcp.CallToolResult{}
	if meta.InvocationID != "" {
		result.Meta = map[string]any{
			InvocationIDMetaKey: meta.InvocationID,
		}
	}
	return result
}

// NotifyResourceUpdates sends resource update notifications for each URI provided.
func NotifyResourceUpdates(ctx context.Context, notify ResourceUpdateNotifier, uris ...string) {
	if notify == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	for _, uri := range uris {
		if strings.TrimSpace(uri) == "" {
			continue
		}
		notify(ctx, uri)
	}
}
