package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	rundomain "github.com/louisbranch/ontogenic.space/internal/services/run/domain"
	"github.com/louisbranch/ontogenic.space/internal/survey"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// resourceListPageSize bounds listing resources so payloads stay renderable.
const resourceListPageSize = 10

// SchemaListPayload represents the MCP resource payload for schema model listings.
type SchemaListPayload struct {
	Models []string `json:"models"`
}

// RunListPayload represents the MCP resource payload for run listings.
type RunListPayload struct {
	Runs []RunSummary `json:"runs"`
}

// RunPayload represents the MCP resource payload for a single run.
type RunPayload struct {
	Run RunSummary `json:"run"`
}

// SchemaListResource defines the MCP resource for schema model listings.
func SchemaListResource() *mcp.Resource {
	return &mcp.Resource{
		Name:        "schema_list",
		Title:       "Schema Models",
		Description: "Readable listing of data models with published JSON Schemas",
		MIMEType:    "application/json",
		URI:         "schemas://list",
	}
}

// SchemaListResourceHandler returns a readable schema model listing resource.
func SchemaListResourceHandler() mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		uri := SchemaListResource().URI
		if req != nil && req.Params != nil && req.Params.URI != "" {
			uri = req.Params.URI
		}

		payload := SchemaListPayload{Models: survey.SchemaModels()}
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal schema list: %w", err)
		}

		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{
					URI:      uri,
					MIMEType: "application/json",
					Text:     string(data),
				},
			},
		}, nil
	}
}

// SchemaResourceTemplate defines the MCP resource template for model schemas.
func SchemaResourceTemplate() *mcp.ResourceTemplate {
	return &mcp.ResourceTemplate{
		Name:        "schema",
		Title:       "Model Schema",
		Description: "Readable JSON Schema for one data model. URI format: schema://{model}",
		MIMEType:    "application/json",
		URITemplate: "schema://{model}",
	}
}

// SchemaResourceHandler returns a readable JSON Schema resource.
func SchemaResourceHandler() mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if req == nil || req.Params == nil || req.Params.URI == "" {
			return nil, fmt.Errorf("model is required; use URI format schema://{model}")
		}
		uri := req.Params.URI

		model, err := parseSchemaModelFromURI(uri)
		if err != nil {
			return nil, fmt.Errorf("parse model from URI: %w", err)
		}
		schema, err := survey.JSONSchema(model)
		if err != nil {
			return nil, fmt.Errorf("schema lookup failed: %w", err)
		}

		data, err := json.MarshalIndent(schema, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal schema: %w", err)
		}

		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{
					URI:      uri,
					MIMEType: "application/json",
					Text:     string(data),
				},
			},
		}, nil
	}
}

// parseSchemaModelFromURI extracts the model name from a URI of the form schema://{model}.
func parseSchemaModelFromURI(uri string) (string, error) {
	const prefix = "schema://"
	if !strings.HasPrefix(uri, prefix) {
		return "", fmt.Errorf("expected URI format schema://{model}, got %q", uri)
	}
	model := strings.TrimPrefix(uri, prefix)
	if model == "" || strings.Contains(model, "/") {
		return "", fmt.Errorf("expected URI format schema://{model}, got %q", uri)
	}
	return model, nil
}

// RunsListResource defines the MCP resource for run listings.
func RunsListResource() *mcp.Resource {
	return &mcp.Resource{
		Name:        "runs_list",
		Title:       "Stored Runs",
		Description: "Readable listing of the most recent stored pipeline runs",
		MIMEType:    "application/json",
		URI:         "runs://list",
	}
}

// RunsListResourceHandler returns a readable run listing resource.
func RunsListResourceHandler(service RunService) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if service == nil {
			return nil, fmt.Errorf("run service is not configured")
		}

		uri := RunsListResource().URI
		if req != nil && req.Params != nil && req.Params.URI != "" {
			uri = req.Params.URI
		}

		page, err := service.ListRuns(ctx, rundomain.ListInput{PageSize: resourceListPageSize})
		if err != nil {
			return nil, fmt.Errorf("runs list failed: %w", err)
		}
		summaries, err := runSummaries(page.Runs)
		if err != nil {
			return nil, err
		}

		data, err := json.MarshalIndent(RunListPayload{Runs: summaries}, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal run list: %w", err)
		}

		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{
					URI:      uri,
					MIMEType: "application/json",
					Text:     string(data),
				},
			},
		}, nil
	}
}

// RunResourceTemplate defines the MCP resource template for single runs.
func RunResourceTemplate() *mcp.ResourceTemplate {
	return &mcp.ResourceTemplate{
		Name:        "run",
		Title:       "Stored Run",
		Description: "Readable stored run including its final machine state. URI format: run://{run_id}",
		MIMEType:    "application/json",
		URITemplate: "run://{run_id}",
	}
}

// RunResourceHandler returns a readable single-run resource.
func RunResourceHandler(service RunService) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if service == nil {
			return nil, fmt.Errorf("run service is not configured")
		}
		if req == nil || req.Params == nil || req.Params.URI == "" {
			return nil, fmt.Errorf("run ID is required; use URI format run://{run_id}")
		}
		uri := req.Params.URI

		runID, err := parseRunIDFromURI(uri)
		if err != nil {
			return nil, fmt.Errorf("parse run ID from URI: %w", err)
		}
		record, err := service.GetRun(ctx, runID)
		if err != nil {
			return nil, fmt.Errorf("runs get failed: %w", err)
		}
		summary, err := runSummary(record)
		if err != nil {
			return nil, err
		}

		data, err := json.MarshalIndent(RunPayload{Run: summary}, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal run: %w", err)
		}

		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{
					URI:      uri,
					MIMEType: "application/json",
					Text:     string(data),
				},
			},
		}, nil
	}
}

// parseRunIDFromURI extracts the run ID from a URI of the form run://{run_id}.
func parseRunIDFromURI(uri string) (string, error) {
	const prefix = "run://"
	if !strings.HasPrefix(uri, prefix) {
		return "", fmt.Errorf("expected URI format run://{run_id}, got %q", uri)
	}
	runID := strings.TrimPrefix(uri, prefix)
	if runID == "" || strings.Contains(runID, "/") {
		return "", fmt.Errorf("expected URI format run://{run_id}, got %q", uri)
	}
	return runID, nil
}
