package mcp

import (
	"context"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"toolgate/internal/domain/proposal"
	"toolgate/internal/domain/registry"
	"toolgate/internal/domain/roadmap"
	"toolgate/internal/domain/session"
	"toolgate/internal/team"
	"toolgate/internal/teleport"
)

const (
	serverName    = "toolgate"
	serverVersion = "0.1.0"
)

// ProposalService defines design-gate operations needed by MCP.
type ProposalService interface {
	Validate(ctx context.Context, in proposal.Input) (*proposal.ValidationResult, error)
	Verify(ctx context.Context, token string) (*proposal.Verification, error)
	List(ctx context.Context) ([]proposal.Info, error)
}

// RegistryService defines tool registration operations needed by MCP.
type RegistryService interface {
	Register(ctx context.Context, req registry.RegisterRequest) (*registry.RegisterResult, error)
}

// RoadmapService defines roadmap analysis operations needed by MCP.
type RoadmapService interface {
	Analyze(req roadmap.AnalyzeRequest) *roadmap.Analysis
	Decide(req roadmap.DecideRequest) *roadmap.Decision
}

// SessionService defines session journaling operations needed by MCP.
type SessionService interface {
	Create(ctx context.Context, req session.CreateRequest) (*session.CreateResult, error)
	Read(ctx context.Context, req session.ReadRequest) (*session.ReadResult, error)
	List(ctx context.Context, daysBack int) (*session.ListResult, error)
}

// PlatformService defines Teleport operations needed by MCP. Failures are
// reported inside the result structs, not as errors.
type PlatformService interface {
	CheckInstalled(ctx context.Context) *teleport.InstallStatus
	ListNodes(ctx context.Context, cluster, filter string) *teleport.NodesResult
	VerifyAccess(ctx context.Context, cluster, node, user string) *teleport.AccessResult
	RunCommand(ctx context.Context, req teleport.RunRequest) *teleport.RunResult
}

// Services contains all domain services needed by MCP.
type Services struct {
	Proposals ProposalService
	Registry  RegistryService
	Roadmap   RoadmapService
	Sessions  SessionService
	Platform  PlatformService
	Extension team.Extension // nil when no capability pack is enabled
}

// Config contains server configuration.
type Config struct {
	Services      Services
	Resolver      PrincipalResolver
	AuthEnabled   bool
	TransportMode string // "stdio" or "http"
	Logger        *slog.Logger
}

// NewServer creates and configures an MCP server with all tools, resources,
// prompts, and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)
	registerPrompts(server)

	// Add middleware (auth + session extraction)
	// Stdio mode: always disable auth (local dev only)
	if cfg.TransportMode == "stdio" {
		server.AddReceivingMiddleware(noAuthMiddleware("default"))
	} else {
		// HTTP mode: auth based on config
		if cfg.AuthEnabled {
			server.AddReceivingMiddleware(authMiddleware(cfg.Resolver))
		} else {
			server.AddReceivingMiddleware(noAuthMiddleware("default"))
		}
	}
	server.AddReceivingMiddleware(sessionMiddleware())
	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	// Register all tools
	registerTools(server, cfg.Services)

	return server
}
