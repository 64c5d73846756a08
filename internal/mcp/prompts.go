package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const newToolWorkflowPrompt = `Follow the MW-002 workflow to build a new MCP tool.

1. Gather requirements before writing anything:
   - What does the tool do? (one sentence, its purpose)
   - Which layer does it belong to: platform, team, or personal?
   - What does it depend on? Name interfaces, not concrete services.
   - Does it change system state? If yes, plan the rollback path.

2. Validate the design:
   - Call propose_tool_design with tool_name, purpose, layer, dependencies,
     requires_system_state_change, and implementation_approach.
   - If valid=false, fix every issue listed and resubmit. Warnings are
     advisory; issues are blocking.
   - When valid=true, save the validation_token.

3. Register the tool:
   - Call create_mcp_tool with the tool_name and the validation_token.
   - The name must match the proposal exactly.

4. Implement and verify:
   - Write the handler and its tests.
   - Reference the validation token in the commit message.
   - Journal the outcome with create_session_note.`

const endSessionWorkflowPrompt = `Follow the MW-001 workflow to close out this session.

1. Journal the session with create_session_note:
   - Progress: what was completed, with enough detail to resume cold.
   - Decisions: choices made and why, including rejected alternatives.
   - Next Steps: concrete actions in priority order.

2. Promote anything durable out of the session notes:
   - Architecture decisions go to real documentation.
   - New repeatable processes get a meta-workflow entry.

3. Leave a status checklist: done, in progress, blocked (with blockers named).

4. Verify the working tree: everything committed, branches pushed.`

const debugFluxWorkflowPrompt = `Follow the MW-006 workflow to debug a Flux deployment.

1. Survey state:
   - Call list_flux_kustomizations with show_suspend=true.
   - Note every entry with ready=False and anything unexpectedly suspended.

2. Diagnose the failing kustomization:
   - Read its message and last_applied_revision.
   - Compare the revision against what Git says should be deployed.
   - If the source looks stale or unreachable, call list_flux_sources.

3. Intervene:
   - If it is crash-looping or flapping, suspend_flux_kustomization first.
   - Fix the manifest or source in Git; never patch the cluster directly.
   - resume_flux_kustomization once the fix is merged.

4. Force a pickup with reconcile_flux_kustomization and re-check step 1.`

const validateDesignWorkflowPrompt = `Validate a tool design against the checklist before implementing it.

Call propose_tool_design with:
- tool_name: snake_case, verb-first (get_status, not status_getter)
- purpose: one sentence describing what it does
- layer: platform (org-wide infra), team (shared services), or personal (individual aids)
- dependencies: interfaces the tool needs, not concrete service names
- requires_system_state_change: true if it mutates anything outside its process
- implementation_approach: a short sketch; mention error handling and timeouts

Interpreting the result:
- valid=true: keep the validation_token, it is required by create_mcp_tool.
- valid=false: each issue names the failed check; fix all of them and resubmit.
- warnings: advisory only, but read them before ignoring them.

The checklist source lives at workflow://rules/design-checklist.`

type promptDef struct {
	Name        string
	Description string
	Text        string
}

func promptCatalog() []promptDef {
	return []promptDef{
		{
			Name:        "new_tool_workflow",
			Description: "Guided workflow for designing, validating, and registering a new MCP tool (MW-002).",
			Text:        newToolWorkflowPrompt,
		},
		{
			Name:        "end_session_workflow",
			Description: "Close out a session: journal progress, promote decisions, leave a handoff (MW-001).",
			Text:        endSessionWorkflowPrompt,
		},
		{
			Name:        "debug_flux_workflow",
			Description: "Diagnose and fix a failing Flux kustomization (MW-006).",
			Text:        debugFluxWorkflowPrompt,
		},
		{
			Name:        "validate_design_workflow",
			Description: "Run a tool design through the validation checklist and interpret the result.",
			Text:        validateDesignWorkflowPrompt,
		},
	}
}

func registerPrompts(server *sdkmcp.Server) {
	for _, p := range promptCatalog() {
		p := p

		server.AddPrompt(&sdkmcp.Prompt{
			Name:        p.Name,
			Description: p.Description,
		}, func(_ context.Context, _ *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
			return &sdkmcp.GetPromptResult{
				Description: p.Description,
				Messages: []*sdkmcp.PromptMessage{{
					Role:    "user",
					Content: &sdkmcp.TextContent{Text: p.Text},
				}},
			}, nil
		})
	}
}
