package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/louisbranch/ontogenic.space/internal/platform/branding"
	"github.com/louisbranch/ontogenic.space/internal/platform/config"
	"github.com/louisbranch/ontogenic.space/internal/services/mcp/conformance"
	"github.com/louisbranch/ontogenic.space/internal/services/mcp/domain"
	rundomain "github.com/louisbranch/ontogenic.space/internal/services/run/domain"
	"github.com/louisbranch/ontogenic.space/internal/services/run/observability/audit"
	runsqlite "github.com/louisbranch/ontogenic.space/internal/services/run/storage/sqlite"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// serverVersion identifies the MCP server version.
const serverVersion = "0.1.0"

// serverName identifies this MCP server to clients.
var serverName = branding.AppName + " MCP"

type mcpRegistrationKind int

const (
	mcpRegistrationKindTools mcpRegistrationKind = iota
	mcpRegistrationKindResources
)

type mcpRegistrationModule struct {
	name     string
	kind     mcpRegistrationKind
	register func(mcpRegistrationTarget) error
}

const (
	mcpSurveyToolsModuleName    = "survey-tools"
	mcpMachineToolsModuleName   = "machine-tools"
	mcpRunToolsModuleName       = "run-tools"
	mcpSchemaResourceModuleName = "schema-resources"
	mcpRunResourceModuleName    = "run-resources"
)

type mcpServerRegistrationAdapter struct {
	server *mcp.Server
}

func (r mcpServerRegistrationAdapter) AddTool(tool *mcp.Tool, handler any) error {
	return addMCPTool(r.server, tool, handler)
}

func (r mcpServerRegistrationAdapter) AddResourceTemplate(resourceTemplate *mcp.ResourceTemplate, handler mcp.ResourceHandler) {
	r.server.AddResourceTemplate(resourceTemplate, handler)
}

func (r mcpServerRegistrationAdapter) AddResource(resource *mcp.Resource, handler mcp.ResourceHandler) {
	r.server.AddResource(resource, handler)
}

type mcpToolRegistrar struct {
	matches func(any) bool
	add     func(*mcp.Server, *mcp.Tool, any)
}

func newMCPToolRegistrar[I any, O any]() mcpToolRegistrar {
	return mcpToolRegistrar{
		matches: func(handler any) bool {
			_, ok := handler.(mcp.ToolHandlerFor[I, O])
			return ok
		},
		add: func(server *mcp.Server, tool *mcp.Tool, handler any) {
			mcp.AddTool(server, tool, handler.(mcp.ToolHandlerFor[I, O]))
		},
	}
}

var mcpToolRegistrars = []mcpToolRegistrar{
	newMCPToolRegistrar[domain.SurveyGetInput, domain.SurveyGetResult](),
	newMCPToolRegistrar[domain.ResponsesScoreInput, domain.ResponsesScoreResult](),
	newMCPToolRegistrar[domain.PlacementComputeInput, domain.PlacementComputeResult](),
	newMCPToolRegistrar[domain.MachineRunInput, domain.MachineRunResult](),
	newMCPToolRegistrar[domain.RunsListInput, domain.RunsListResult](),
	newMCPToolRegistrar[domain.RunsGetInput, domain.RunsGetResult](),
	newMCPToolRegistrar[domain.RunsCompareInput, domain.RunsCompareResult](),
	newMCPToolRegistrar[domain.RunsStatsInput, domain.RunsStatsResult](),
	newMCPToolRegistrar[domain.RunsProjectionInput, domain.RunsProjectionResult](),
}

func addMCPTool(server *mcp.Server, tool *mcp.Tool, handler any) error {
	for _, registrar := range mcpToolRegistrars {
		if registrar.matches(handler) {
			registrar.add(server, tool, handler)
			return nil
		}
	}
	toolName := "<nil>"
	if tool != nil {
		toolName = tool.Name
	}
	return fmt.Errorf("mcp registration adapter does not support handler type %T for tool %q", handler, toolName)
}

func newMCPRegistrationModules(
	service domain.RunService,
	notify domain.ResourceUpdateNotifier,
) []mcpRegistrationModule {
	return []mcpRegistrationModule{
		{
			name: mcpSurveyToolsModuleName,
			kind: mcpRegistrationKindTools,
			register: func(registrar mcpRegistrationTarget) error {
				return registerSurveyTools(registrar)
			},
		},
		{
			name: mcpMachineToolsModuleName,
			kind: mcpRegistrationKindTools,
			register: func(registrar mcpRegistrationTarget) error {
				return registerMachineTools(registrar, service, notify)
			},
		},
		{
			name: mcpRunToolsModuleName,
			kind: mcpRegistrationKindTools,
			register: func(registrar mcpRegistrationTarget) error {
				return registerRunTools(registrar, service)
			},
		},
		{
			name: mcpSchemaResourceModuleName,
			kind: mcpRegistrationKindResources,
			register: func(registrar mcpRegistrationTarget) error {
				registerSchemaResources(registrar)
				return nil
			},
		},
		{
			name: mcpRunResourceModuleName,
			kind: mcpRegistrationKindResources,
			register: func(registrar mcpRegistrationTarget) error {
				registerRunResources(registrar, service)
				return nil
			},
		},
	}
}

// TransportKind identifies the MCP transport implementation.
type TransportKind string

// TransportStdio uses standard input/output for MCP.
const TransportStdio TransportKind = "stdio"

// Config configures the MCP server.
type Config struct {
	DBPath    string
	Transport TransportKind
}

// Server hosts the MCP server over the run store.
type Server struct {
	mcpServer *mcp.Server
	store     *runsqlite.Store
}

// New creates a configured MCP server backed by the run store at dbPath
// and hydrates tool and resource handlers from the run domain service.
func New(dbPath string) (*Server, error) {
	store, err := openRunStore(databasePath(dbPath))
	if err != nil {
		return nil, err
	}
	return newServer(store)
}

// newServer creates MCP tool/resource handler bindings once over a shared
// run domain service.
func newServer(store *runsqlite.Store) (*Server, error) {
	mcpServer := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, &mcp.ServerOptions{
		CompletionHandler:  completionHandler,
		SubscribeHandler:   resourceSubscribeHandler,
		UnsubscribeHandler: resourceUnsubscribeHandler,
	})

	emitter := audit.NewEmitter(store)
	service := rundomain.NewService(store, emitter, rundomain.Config{})

	server := &Server{mcpServer: mcpServer, store: store}
	resourceNotifier := func(ctx context.Context, uri string) {
		if strings.TrimSpace(uri) == "" {
			return
		}
		if ctx == nil {
			ctx = context.Background()
		}
		if err := mcpServer.ResourceUpdated(ctx, &mcp.ResourceUpdatedNotificationParams{URI: uri}); err != nil {
			log.Printf("mcp resource updated notify failed: uri=%s err=%v", uri, err)
		}
	}

	for _, module := range newMCPRegistrationModules(service, resourceNotifier) {
		if err := module.register(mcpServerRegistrationAdapter{server: mcpServer}); err != nil {
			return nil, fmt.Errorf("register MCP module %q: %w", module.name, err)
		}
	}

	conformance.Register(mcpServer)

	return server, nil
}

// completionHandler handles completion/complete requests with empty results.
// Returning empty completions is intentional today because prompt and
// resource completion would be unreliable without full context wiring.
func completionHandler(ctx context.Context, req *mcp.CompleteRequest) (*mcp.CompleteResult, error) {
	return &mcp.CompleteResult{
		Completion: mcp.CompletionResultDetails{
			Values: []string{},
		},
	}, nil
}

// resourceSubscribeHandler accepts resource subscriptions with a valid URI.
func resourceSubscribeHandler(_ context.Context, req *mcp.SubscribeRequest) error {
	if req == nil || req.Params == nil || strings.TrimSpace(req.Params.URI) == "" {
		return fmt.Errorf("resource uri is required")
	}
	return nil
}

// resourceUnsubscribeHandler accepts resource unsubscriptions with a valid URI.
func resourceUnsubscribeHandler(_ context.Context, req *mcp.UnsubscribeRequest) error {
	if req == nil || req.Params == nil || strings.TrimSpace(req.Params.URI) == "" {
		return fmt.Errorf("resource uri is required")
	}
	return nil
}

// Run is the service entrypoint for MCP and blocks until context cancellation.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Transport == "" {
		cfg.Transport = TransportStdio
	}

	switch cfg.Transport {
	case TransportStdio:
		return runWithTransport(ctx, cfg.DBPath, &mcp.StdioTransport{})
	default:
		return fmt.Errorf("transport %q is not supported", cfg.Transport)
	}
}

// Serve starts the MCP server on stdio and blocks until it stops or the context ends.
func (s *Server) Serve(ctx context.Context) error {
	return s.serveWithTransport(ctx, &mcp.StdioTransport{})
}

// Close releases the run store held by the server.
func (s *Server) Close() error {
	if s == nil || s.store == nil {
		return nil
	}
	if err := s.store.Close(); err != nil {
		return err
	}
	s.store = nil
	return nil
}

// serveWithTransport starts the MCP server using the provided transport.
// The server and its run store share a single exit path so cleanup behavior
// is consistent however the serve loop ends.
func (s *Server) serveWithTransport(ctx context.Context, transport mcp.Transport) error {
	if s == nil || s.mcpServer == nil {
		return fmt.Errorf("MCP server is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := s.mcpServer.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}
	closeErr := s.Close()
	if closeErr != nil {
		if err == nil {
			return fmt.Errorf("close run store: %w", closeErr)
		}
		return fmt.Errorf("serve MCP: %v; close run store: %w", err, closeErr)
	}
	if err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}

// runWithTransport creates a server and serves it over the provided transport.
func runWithTransport(ctx context.Context, dbPath string, transport mcp.Transport) error {
	server, err := New(dbPath)
	if err != nil {
		return err
	}
	return server.serveWithTransport(ctx, transport)
}

type serverEnv struct {
	DBPath string `env:"ONTOGENIC_SPACE_DB_PATH"`
}

// databasePath resolves the run store path from the explicit fallback or env when empty.
func databasePath(fallback string) string {
	if strings.TrimSpace(fallback) != "" {
		return fallback
	}
	var cfg serverEnv
	_ = config.ParseEnv(&cfg)
	if strings.TrimSpace(cfg.DBPath) != "" {
		return cfg.DBPath
	}
	return filepath.Join("data", "ontogenic.db")
}

func openRunStore(path string) (*runsqlite.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := runsqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open run sqlite store: %w", err)
	}
	return store, nil
}
