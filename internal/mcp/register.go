package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// registerTools wires every tool into the SDK server. The typed handlers wrap
// the same per-tool methods the JSON-RPC dispatch uses, so both transports
// share one implementation.
func registerTools(server *sdkmcp.Server, services Services) {
	h := NewHandler(services)

	descriptions := make(map[string]string)
	for _, t := range buildToolCatalog(true) {
		descriptions[t.Name] = t.Description
	}
	tool := func(name string) *sdkmcp.Tool {
		return &sdkmcp.Tool{Name: name, Description: descriptions[name]}
	}

	sdkmcp.AddTool(server, tool("propose_tool_design"), wrapTool(h.proposeToolDesign))
	sdkmcp.AddTool(server, tool("verify_tool_design_token"), wrapTool(h.verifyToolDesignToken))
	sdkmcp.AddTool(server, tool("list_tool_proposals"), wrapNoArgTool(h.listToolProposals))
	sdkmcp.AddTool(server, tool("create_mcp_tool"), wrapTool(h.createMCPTool))
	sdkmcp.AddTool(server, tool("analyze_critical_path"), wrapTool(h.analyzeCriticalPath))
	sdkmcp.AddTool(server, tool("make_roadmap_decision"), wrapTool(h.makeRoadmapDecision))
	sdkmcp.AddTool(server, tool("create_session_note"), wrapTool(h.createSessionNote))
	sdkmcp.AddTool(server, tool("read_session_notes"), wrapTool(h.readSessionNotes))
	sdkmcp.AddTool(server, tool("list_session_files"), wrapTool(h.listSessionFiles))
	sdkmcp.AddTool(server, tool("list_meta_workflows"), wrapNoArgTool(h.listMetaWorkflows))
	sdkmcp.AddTool(server, tool("check_tsh_installed"), wrapNoArgTool(h.checkTshInstalled))
	sdkmcp.AddTool(server, tool("list_teleport_nodes"), wrapTool(h.listTeleportNodes))
	sdkmcp.AddTool(server, tool("verify_ssh_access"), wrapTool(h.verifySSHAccess))
	sdkmcp.AddTool(server, tool("run_remote_command"), wrapTool(h.runRemoteCommand))

	if h.flux != nil {
		sdkmcp.AddTool(server, tool("list_flux_kustomizations"), wrapTool(h.listFluxKustomizations))
		sdkmcp.AddTool(server, tool("suspend_flux_kustomization"), wrapTool(h.suspendFluxKustomization))
		sdkmcp.AddTool(server, tool("resume_flux_kustomization"), wrapTool(h.resumeFluxKustomization))
		sdkmcp.AddTool(server, tool("reconcile_flux_kustomization"), wrapTool(h.reconcileFluxKustomization))
		sdkmcp.AddTool(server, tool("list_flux_sources"), wrapTool(h.listFluxSources))
	}
}

// wrapTool adapts a handler method to the SDK's typed tool handler shape.
func wrapTool[In any](fn func(context.Context, In) (any, error)) sdkmcp.ToolHandlerFor[In, any] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, in In) (*sdkmcp.CallToolResult, any, error) {
		out, err := fn(ctx, in)
		if err != nil {
			return nil, nil, mapError(err)
		}
		return nil, out, nil
	}
}

func wrapNoArgTool(fn func(context.Context) (any, error)) sdkmcp.ToolHandlerFor[struct{}, any] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, _ struct{}) (*sdkmcp.CallToolResult, any, error) {
		out, err := fn(ctx)
		if err != nil {
			return nil, nil, mapError(err)
		}
		return nil, out, nil
	}
}
