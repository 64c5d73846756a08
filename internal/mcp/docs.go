package mcp

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"toolgate/internal/domain/checklist"
)

const serverInstructions = `toolgate guards MCP tool development behind a design validation gate.

Core concepts (keep this mental model small):
- Proposal: a tool design submitted to the five-check design checklist.
- Validation token: proof a design passed (valid-<id>-<digest>). Required to register the tool.
- Manifest: the registration record of a tool that cleared the gate.
- Roadmap analysis: critical-path analysis over a task graph; its token gates roadmap decisions.
- Session notes: a per-session markdown journal for continuity across threads.

Rules of engagement (default workflow):
1) Before building any tool: call propose_tool_design. If valid=false, fix the issues and resubmit; if valid=true, keep the token.
2) Register with create_mcp_tool using the token. The tool name must match the proposal.
3) Plan with analyze_critical_path; commit with make_roadmap_decision (requires the analysis token).
4) Journal with create_session_note; recover context with read_session_notes / list_session_files.
5) Platform access runs through Teleport: check_tsh_installed, list_teleport_nodes, verify_ssh_access, then run_remote_command.

Docs (progressive disclosure):
- workflow://meta-workflows (registry of repeatable processes)
- workflow://rules/design-checklist (the rule set the gate enforces)
- workflow://architecture/layer-model (platform/team/personal boundaries)
- workflow://patterns/state-management (ephemeral vs persistent files)
- workflow://patterns/session-documentation (session note format)
`

const metaWorkflowsURI = "workflow://meta-workflows"

const metaWorkflowsDoc = `# Meta-Workflows

Documented, repeatable processes for platform operations. Each workflow has a
trigger phrase; saying it (or invoking the matching prompt) should make the
assistant follow the workflow steps.

## Registry

| ID | Name | Trigger | Status | Updated |
|----|------|---------|--------|---------|
| MW-001 | Thread Ending Summary | "This thread is ending" | Active | 2025-05-20 |
| MW-002 | New MCP Tool Development | "Create a new MCP tool" | Active | 2025-05-20 |
| MW-003 | Design Validation | "Validate this design" | Active | 2025-06-11 |
| MW-004 | Remote Command Runbook | "Run a command on a node" | Active | 2025-06-11 |
| MW-005 | Session Recovery | "What were we doing" | Draft | 2025-07-02 |
| MW-006 | Flux Debugging | "Debug flux" | Active | 2025-07-02 |

## MW-001: Thread Ending Summary

1. Journal outcomes with create_session_note (Progress, Decisions, Next Steps sections).
2. Extract anything durable into real documentation.
3. Leave a checklist for the next session: done, in progress, blocked.
4. Verify the working tree is committed and pushed.

## MW-002: New MCP Tool Development

1. Gather requirements: purpose, inputs, outputs, layer.
2. Call propose_tool_design. Iterate until valid=true; keep the token.
3. Register with create_mcp_tool using the token.
4. Implement the handler, test it, and reference the token in the commit.

## MW-003: Design Validation

Run propose_tool_design before implementing or significantly changing a tool.
The checklist blocks hardcoded configuration, wrong layer placement, concrete
dependencies, shell-script system changes, and known anti-patterns.

## MW-004: Remote Command Runbook

1. check_tsh_installed; install via the ansible playbook if missing.
2. list_teleport_nodes to confirm the node name.
3. verify_ssh_access for the target user.
4. run_remote_command with an explicit timeout.

## MW-005: Session Recovery (draft)

read_session_notes for the most recent session, then list_session_files to
survey the window. Resume from the Next Steps section.

## MW-006: Flux Debugging

1. list_flux_kustomizations with show_suspend=true; find ready=False entries.
2. Inspect the failing kustomization's message and revision.
3. Suspend if it is flapping, fix the source in Git, then resume.
4. reconcile_flux_kustomization to force a pickup; list_flux_sources if the
   source itself looks unreachable.
`

const layerModelDoc = `# 3-layer architecture model
version: 1

layers:
  platform:
    scope: org-wide infrastructure access
    owns:
      - teleport node discovery and remote execution
      - credential and proxy configuration
    forbidden:
      - team-specific deployment logic
      - personal conventions
  team:
    scope: shared services one team operates
    owns:
      - flux kustomization management
      - service runbooks built on platform primitives
    forbidden:
      - direct subprocess execution (use the platform runner)
  personal:
    scope: individual workflow aids
    owns:
      - design validation gate and proposals
      - roadmap analysis and session notes
    forbidden:
      - anything another person would need to operate

rules:
  - higher layers depend on lower layers, never the reverse
  - tools declare their layer at proposal time; the checklist enforces fit
`

const stateManagementDoc = `# State management pattern
version: 1

transient:
  location: the configured sessions directory
  contents:
    - session notes (one markdown file per session)
    - tool proposals awaiting implementation
  rules:
    - safe to delete; never the only copy of a decision
    - excluded from version control

persistent:
  location: repository docs
  contents:
    - architecture decisions promoted from session notes
    - runbooks and workflow registry updates
  rules:
    - changes go through review
    - extract from transient state at session end (MW-001)
`

const sessionDocumentationDoc = `# Session documentation pattern
version: 1

file: <sessions-dir>/<YYYY-MM-DD>-session.md
sections:
  - Goals
  - Progress
  - Decisions
  - Issues
  - Next Steps

entry_format: |
  ### <YYYY-MM-DD HH:MM:SS>
  <content>

rules:
  - append entries under the matching section heading
  - unknown sections are appended at the end of the file
  - one file per session name; the template is seeded on first write
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

func docCatalog() []docResource {
	checklistSource := "# design checklist unavailable\n"
	if data, err := checklist.BuiltinSource(); err == nil {
		checklistSource = string(data)
	}

	return []docResource{
		{
			URI:         metaWorkflowsURI,
			Name:        "meta_workflows",
			Title:       "Meta-workflow registry",
			Description: "Documented, repeatable processes with trigger phrases.",
			Content:     metaWorkflowsDoc,
		},
		{
			URI:         "workflow://rules/design-checklist",
			Name:        "design_checklist",
			Title:       "Design checklist rules",
			Description: "The rule set propose_tool_design enforces: patterns, layer contracts, red flags.",
			Content:     checklistSource,
		},
		{
			URI:         "workflow://architecture/layer-model",
			Name:        "layer_model",
			Title:       "3-layer architecture model",
			Description: "Platform/team/personal boundaries and the dependency direction between them.",
			Content:     layerModelDoc,
		},
		{
			URI:         "workflow://patterns/state-management",
			Name:        "state_management",
			Title:       "State management pattern",
			Description: "What lives in the transient sessions directory versus persistent docs.",
			Content:     stateManagementDoc,
		},
		{
			URI:         "workflow://patterns/session-documentation",
			Name:        "session_documentation",
			Title:       "Session documentation pattern",
			Description: "File layout and entry format for session notes.",
			Content:     sessionDocumentationDoc,
		},
	}
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docCatalog() {
		doc := doc

		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}

var workflowRowPattern = regexp.MustCompile(`\|\s*(MW-\d+)\s*\|\s*([^|]+)\|\s*"([^"]+)"\s*\|\s*(\w+)\s*\|`)

// listMetaWorkflows parses the registry table out of the embedded doc.
func listMetaWorkflows() *MetaWorkflowList {
	workflows := []MetaWorkflow{}
	var active, draft int

	for _, m := range workflowRowPattern.FindAllStringSubmatch(metaWorkflowsDoc, -1) {
		w := MetaWorkflow{
			ID:      m[1],
			Name:    strings.TrimSpace(m[2]),
			Trigger: strings.TrimSpace(m[3]),
			Status:  strings.ToLower(strings.TrimSpace(m[4])),
		}
		switch w.Status {
		case "active":
			active++
		case "draft":
			draft++
		}
		workflows = append(workflows, w)
	}

	out := &MetaWorkflowList{
		Available: true,
		Count:     len(workflows),
		Workflows: workflows,
		DocURI:    metaWorkflowsURI,
	}
	if len(workflows) == 0 {
		out.Message = "workflow registry exists but contains no entries"
		return out
	}
	out.Message = fmt.Sprintf("found %d meta-workflow(s) (%d active, %d draft)",
		len(workflows), active, draft)
	out.Steps = []string{
		fmt.Sprintf("Read %s for full workflow details", metaWorkflowsURI),
		fmt.Sprintf("To execute a workflow, use its trigger phrase (e.g., %q)", workflows[0].Trigger),
	}
	return out
}
