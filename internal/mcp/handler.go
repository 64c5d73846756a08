package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"toolgate/internal/domain/proposal"
	"toolgate/internal/domain/registry"
	"toolgate/internal/domain/roadmap"
	"toolgate/internal/domain/session"
	"toolgate/internal/team"
	"toolgate/internal/teleport"
)

const protocolVersion = "2025-06-18"

// Handler dispatches MCP protocol requests outside the SDK transport. The
// HTTP JSON-RPC transport and the test server both drive it; the SDK tool
// registrations wrap the same per-tool methods.
type Handler struct {
	services Services
	flux     *team.Flux // nil unless the flux capability pack is enabled
}

// NewHandler creates a new MCP handler.
func NewHandler(services Services) *Handler {
	h := &Handler{services: services}
	if f, ok := services.Extension.(*team.Flux); ok {
		h.flux = f
	}
	return h
}

// Handle dispatches one MCP request by protocol method.
func (h *Handler) Handle(ctx context.Context, principalID, sessionID, method string, params json.RawMessage) (any, error) {
	switch method {
	case "initialize":
		var req InitializeParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.initialize(req), nil
	case "notifications/initialized":
		return nil, nil
	case "ping":
		return map[string]any{}, nil
	case "tools/list":
		return ToolsListResult{Tools: buildToolCatalog(h.flux != nil)}, nil
	case "tools/call":
		var req ToolCallParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.callTool(ctx, req)
	case "resources/list":
		return h.listResources(), nil
	case "resources/read":
		var req ResourcesReadParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.readResource(req.URI)
	case "prompts/list":
		return h.listPrompts(), nil
	case "prompts/get":
		var req PromptsGetParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.getPrompt(req.Name)
	default:
		return nil, fmt.Errorf("unknown method: %s", method)
	}
}

// initialize echoes the protocol version the client asked for, falling back
// to the server default when the client names none.
func (h *Handler) initialize(req InitializeParams) InitializeResult {
	version := req.ProtocolVersion
	if version == "" {
		version = protocolVersion
	}
	return InitializeResult{
		ProtocolVersion: version,
		Capabilities: ServerCapabilities{
			Prompts:   &PromptsCapability{},
			Resources: &ResourcesCapability{},
			Tools:     &ToolsCapability{},
		},
		ServerInfo: ImplementationInfo{
			Name:    serverName,
			Version: serverVersion,
		},
		Instructions: serverInstructions,
	}
}

// callTool dispatches a tools/call request and wraps the result as text
// content. Gate rejections come back as ordinary results with success=false;
// only infrastructure failures surface as errors.
func (h *Handler) callTool(ctx context.Context, req ToolCallParams) (any, error) {
	out, err := h.dispatchTool(ctx, req.Name, req.Arguments)
	if err != nil {
		return nil, mapError(err)
	}
	payload, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s result: %w", req.Name, err)
	}
	return ToolCallResult{
		Content: []ContentItem{{Type: "text", Text: string(payload)}},
	}, nil
}

func (h *Handler) dispatchTool(ctx context.Context, name string, args json.RawMessage) (any, error) {
	switch name {
	case "propose_tool_design":
		var req ProposeToolDesignParams
		if err := decodeParams(args, &req); err != nil {
			return nil, err
		}
		return h.proposeToolDesign(ctx, req)
	case "verify_tool_design_token":
		var req VerifyTokenParams
		if err := decodeParams(args, &req); err != nil {
			return nil, err
		}
		return h.verifyToolDesignToken(ctx, req)
	case "list_tool_proposals":
		return h.listToolProposals(ctx)
	case "create_mcp_tool":
		var req CreateMCPToolParams
		if err := decodeParams(args, &req); err != nil {
			return nil, err
		}
		return h.createMCPTool(ctx, req)
	case "analyze_critical_path":
		var req AnalyzeCriticalPathParams
		if err := decodeParams(args, &req); err != nil {
			return nil, err
		}
		return h.analyzeCriticalPath(ctx, req)
	case "make_roadmap_decision":
		var req MakeRoadmapDecisionParams
		if err := decodeParams(args, &req); err != nil {
			return nil, err
		}
		return h.makeRoadmapDecision(ctx, req)
	case "create_session_note":
		var req CreateSessionNoteParams
		if err := decodeParams(args, &req); err != nil {
			return nil, err
		}
		return h.createSessionNote(ctx, req)
	case "read_session_notes":
		var req ReadSessionNotesParams
		if err := decodeParams(args, &req); err != nil {
			return nil, err
		}
		return h.readSessionNotes(ctx, req)
	case "list_session_files":
		var req ListSessionFilesParams
		if err := decodeParams(args, &req); err != nil {
			return nil, err
		}
		return h.listSessionFiles(ctx, req)
	case "list_meta_workflows":
		return h.listMetaWorkflows(ctx)
	case "check_tsh_installed":
		return h.checkTshInstalled(ctx)
	case "list_teleport_nodes":
		var req ListTeleportNodesParams
		if err := decodeParams(args, &req); err != nil {
			return nil, err
		}
		return h.listTeleportNodes(ctx, req)
	case "verify_ssh_access":
		var req VerifySSHAccessParams
		if err := decodeParams(args, &req); err != nil {
			return nil, err
		}
		return h.verifySSHAccess(ctx, req)
	case "run_remote_command":
		var req RunRemoteCommandParams
		if err := decodeParams(args, &req); err != nil {
			return nil, err
		}
		return h.runRemoteCommand(ctx, req)
	}

	if h.flux != nil {
		switch name {
		case "list_flux_kustomizations":
			var req ListFluxKustomizationsParams
			if err := decodeParams(args, &req); err != nil {
				return nil, err
			}
			return h.listFluxKustomizations(ctx, req)
		case "suspend_flux_kustomization":
			var req FluxKustomizationParams
			if err := decodeParams(args, &req); err != nil {
				return nil, err
			}
			return h.suspendFluxKustomization(ctx, req)
		case "resume_flux_kustomization":
			var req FluxKustomizationParams
			if err := decodeParams(args, &req); err != nil {
				return nil, err
			}
			return h.resumeFluxKustomization(ctx, req)
		case "reconcile_flux_kustomization":
			var req FluxKustomizationParams
			if err := decodeParams(args, &req); err != nil {
				return nil, err
			}
			return h.reconcileFluxKustomization(ctx, req)
		case "list_flux_sources":
			var req ListFluxSourcesParams
			if err := decodeParams(args, &req); err != nil {
				return nil, err
			}
			return h.listFluxSources(ctx, req)
		}
	}

	return nil, fmt.Errorf("unknown tool: %s", name)
}

func (h *Handler) proposeToolDesign(ctx context.Context, req ProposeToolDesignParams) (any, error) {
	return h.services.Proposals.Validate(ctx, proposal.Input{
		ToolName:                  req.ToolName,
		Purpose:                   req.Purpose,
		Layer:                     req.Layer,
		Dependencies:              req.Dependencies,
		RequiresSystemStateChange: req.RequiresSystemStateChange,
		ImplementationApproach:    req.ImplementationApproach,
	})
}

func (h *Handler) verifyToolDesignToken(ctx context.Context, req VerifyTokenParams) (any, error) {
	return h.services.Proposals.Verify(ctx, req.Token)
}

func (h *Handler) listToolProposals(ctx context.Context) (any, error) {
	infos, err := h.services.Proposals.List(ctx)
	if err != nil {
		return nil, err
	}
	return ProposalListResult{
		Success:   true,
		Proposals: infos,
		Count:     len(infos),
		Message:   fmt.Sprintf("found %d pending proposal(s)", len(infos)),
	}, nil
}

func (h *Handler) createMCPTool(ctx context.Context, req CreateMCPToolParams) (any, error) {
	return h.services.Registry.Register(ctx, registry.RegisterRequest{
		ToolName:    req.ToolName,
		Description: req.Description,
		Token:       req.ValidationToken,
	})
}

func (h *Handler) analyzeCriticalPath(_ context.Context, req AnalyzeCriticalPathParams) (any, error) {
	return h.services.Roadmap.Analyze(roadmap.AnalyzeRequest{
		Tasks:        req.Tasks,
		Goal:         req.Goal,
		CurrentState: req.CurrentState,
	}), nil
}

func (h *Handler) makeRoadmapDecision(_ context.Context, req MakeRoadmapDecisionParams) (any, error) {
	return h.services.Roadmap.Decide(roadmap.DecideRequest{
		Tasks:         req.Tasks,
		AnalysisToken: req.AnalysisToken,
		Rationale:     req.Rationale,
	}), nil
}

func (h *Handler) createSessionNote(ctx context.Context, req CreateSessionNoteParams) (any, error) {
	return h.services.Sessions.Create(ctx, session.CreateRequest{
		Content:     req.Content,
		Section:     req.Section,
		SessionName: req.SessionName,
	})
}

func (h *Handler) readSessionNotes(ctx context.Context, req ReadSessionNotesParams) (any, error) {
	return h.services.Sessions.Read(ctx, session.ReadRequest{
		SessionName: req.SessionName,
		DaysBack:    req.DaysBack,
	})
}

func (h *Handler) listSessionFiles(ctx context.Context, req ListSessionFilesParams) (any, error) {
	return h.services.Sessions.List(ctx, req.DaysBack)
}

func (h *Handler) listMetaWorkflows(_ context.Context) (any, error) {
	return listMetaWorkflows(), nil
}

func (h *Handler) checkTshInstalled(ctx context.Context) (any, error) {
	return h.services.Platform.CheckInstalled(ctx), nil
}

func (h *Handler) listTeleportNodes(ctx context.Context, req ListTeleportNodesParams) (any, error) {
	return h.services.Platform.ListNodes(ctx, req.Cluster, req.Filter), nil
}

func (h *Handler) verifySSHAccess(ctx context.Context, req VerifySSHAccessParams) (any, error) {
	return h.services.Platform.VerifyAccess(ctx, req.Cluster, req.Node, req.User), nil
}

func (h *Handler) runRemoteCommand(ctx context.Context, req RunRemoteCommandParams) (any, error) {
	return h.services.Platform.RunCommand(ctx, teleport.RunRequest{
		Cluster:        req.Cluster,
		Node:           req.Node,
		Command:        req.Command,
		User:           req.User,
		TimeoutSeconds: req.TimeoutSeconds,
	}), nil
}

func (h *Handler) listFluxKustomizations(ctx context.Context, req ListFluxKustomizationsParams) (any, error) {
	return h.flux.ListKustomizations(ctx, req.Cluster, req.Node, req.ShowSuspend), nil
}

func (h *Handler) suspendFluxKustomization(ctx context.Context, req FluxKustomizationParams) (any, error) {
	return h.flux.Suspend(ctx, req.Cluster, req.Node, req.Name, req.Namespace), nil
}

func (h *Handler) resumeFluxKustomization(ctx context.Context, req FluxKustomizationParams) (any, error) {
	return h.flux.Resume(ctx, req.Cluster, req.Node, req.Name, req.Namespace), nil
}

func (h *Handler) reconcileFluxKustomization(ctx context.Context, req FluxKustomizationParams) (any, error) {
	return h.flux.Reconcile(ctx, req.Cluster, req.Node, req.Name, req.Namespace), nil
}

func (h *Handler) listFluxSources(ctx context.Context, req ListFluxSourcesParams) (any, error) {
	return h.flux.ListSources(ctx, req.Cluster, req.Node), nil
}

func (h *Handler) listResources() ResourcesListResult {
	docs := docCatalog()
	resources := make([]ResourceDefinition, 0, len(docs))
	for _, doc := range docs {
		resources = append(resources, ResourceDefinition{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		})
	}
	return ResourcesListResult{Resources: resources}
}

func (h *Handler) readResource(uri string) (any, error) {
	for _, doc := range docCatalog() {
		if doc.URI == uri {
			return ResourcesReadResult{
				Contents: []ResourceContents{{
					URI:      doc.URI,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		}
	}
	return nil, fmt.Errorf("unknown resource: %s", uri)
}

func (h *Handler) listPrompts() PromptsListResult {
	catalog := promptCatalog()
	prompts := make([]PromptDefinition, 0, len(catalog))
	for _, p := range catalog {
		prompts = append(prompts, PromptDefinition{
			Name:        p.Name,
			Description: p.Description,
		})
	}
	return PromptsListResult{Prompts: prompts}
}

func (h *Handler) getPrompt(name string) (any, error) {
	for _, p := range promptCatalog() {
		if p.Name == name {
			return PromptsGetResult{
				Description: p.Description,
				Messages: []PromptMessage{{
					Role:    "user",
					Content: ContentItem{Type: "text", Text: p.Text},
				}},
			}, nil
		}
	}
	return nil, fmt.Errorf("unknown prompt: %s", name)
}

func decodeParams(params json.RawMessage, out any) error {
	if len(params) == 0 {
		return nil
	}
	return json.Unmarshal(params, out)
}

func mapError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
