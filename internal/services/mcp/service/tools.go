package service

import (
	"fmt"

	"github.com/louisbranch/ontogenic.space/internal/services/mcp/domain"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type mcpRegistrationTarget interface {
	AddTool(*mcp.Tool, any) error
	AddResourceTemplate(*mcp.ResourceTemplate, mcp.ResourceHandler)
	AddResource(*mcp.Resource, mcp.ResourceHandler)
}

func registerSurveyTools(registrar mcpRegistrationTarget) error {
	if err := registerTool(registrar, domain.SurveyGetTool(), domain.SurveyGetHandler()); err != nil {
		return err
	}
	if err := registerTool(registrar, domain.ResponsesScoreTool(), domain.ResponsesScoreHandler()); err != nil {
		return err
	}
	return registerTool(registrar, domain.PlacementComputeTool(), domain.PlacementComputeHandler())
}

func registerMachineTools(registrar mcpRegistrationTarget, service domain.RunService, notify domain.ResourceUpdateNotifier) error {
	return registerTool(registrar, domain.MachineRunTool(), domain.MachineRunHandler(service, notify))
}

func registerRunTools(registrar mcpRegistrationTarget, service domain.RunService) error {
	registrations := []struct {
		tool    *mcp.Tool
		handler any
	}{
		{tool: domain.RunsListTool(), handler: domain.RunsListHandler(service)},
		{tool: domain.RunsGetTool(), handler: domain.RunsGetHandler(service)},
		{tool: domain.RunsCompareTool(), handler: domain.RunsCompareHandler(service)},
		{tool: domain.RunsStatsTool(), handler: domain.RunsStatsHandler(service)},
		{tool: domain.RunsProjectionTool(), handler: domain.RunsProjectionHandler(service)},
	}
	for _, registration := range registrations {
		if err := registerTool(registrar, registration.tool, registration.handler); err != nil {
			return err
		}
	}
	return nil
}

func registerTool(registrar mcpRegistrationTarget, tool *mcp.Tool, handler any) error {
	if tool == nil {
		return fmt.Errorf("tool is nil")
	}
	return registrar.AddTool(tool, handler)
}

// registerSchemaResources registers readable JSON Schema MCP resources.
func registerSchemaResources(registrar mcpRegistrationTarget) {
	registrar.AddResource(domain.SchemaListResource(), domain.SchemaListResourceHandler())
	registrar.AddResourceTemplate(domain.SchemaResourceTemplate(), domain.SchemaResourceHandler())
}

// registerRunResources registers readable stored-run MCP resources.
func registerRunResources(registrar mcpRegistrationTarget, service domain.RunService) {
	registrar.AddResource(domain.RunsListResource(), domain.RunsListResourceHandler(service))
	registrar.AddResourceTemplate(domain.RunResourceTemplate(), domain.RunResourceHandler(service))
}
