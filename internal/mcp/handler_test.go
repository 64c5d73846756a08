package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"toolgate/internal/domain/checklist"
	"toolgate/internal/domain/proposal"
	"toolgate/internal/domain/registry"
	"toolgate/internal/domain/roadmap"
	"toolgate/internal/domain/session"
	"toolgate/internal/filestore"
	"toolgate/internal/team"
	"toolgate/internal/teleport"
)

type fakeTshRunner struct {
	res   teleport.Result
	err   error
	calls [][]string
}

func (f *fakeTshRunner) Run(_ context.Context, name string, args ...string) (teleport.Result, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.err != nil {
		return teleport.Result{}, f.err
	}
	return f.res, nil
}

func newTestHandler(t *testing.T, fake *fakeTshRunner, capability string) *Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	rules, err := checklist.LoadBuiltin()
	require.NoError(t, err)
	engine, err := checklist.NewEngine(rules)
	require.NoError(t, err)

	dir := t.TempDir()
	proposals := proposal.NewService(engine, filestore.NewProposalStore(filepath.Join(dir, "proposals")), logger)
	sessions := session.NewService(filepath.Join(dir, "sessions"), logger)
	manifests := registry.NewService(filestore.NewManifestStore(filepath.Join(dir, "manifests")), proposals, logger,
		registry.WithNoteRecorder(sessions))
	planner := roadmap.NewService(logger)

	tsh := teleport.NewClient(fake, teleport.Config{
		TshPath:   filepath.Join(dir, "tsh"),
		ProxyAddr: "teleport.example.com",
		Clusters:  []string{"staging"},
	}, logger)

	ext, err := team.New(capability, tsh, team.FluxConfig{}, logger)
	require.NoError(t, err)

	return NewHandler(Services{
		Proposals: proposals,
		Registry:  manifests,
		Roadmap:   planner,
		Sessions:  sessions,
		Platform:  tsh,
		Extension: ext,
	})
}

func handle(t *testing.T, h *Handler, method string, params any) (any, error) {
	t.Helper()
	var raw json.RawMessage
	if params != nil {
		payload, err := json.Marshal(params)
		require.NoError(t, err)
		raw = payload
	}
	return h.Handle(context.Background(), "default", "sess-1", method, raw)
}

// callTool invokes one tool through Handle and decodes the text content.
func callTool(t *testing.T, h *Handler, name string, args any) map[string]any {
	t.Helper()
	var rawArgs json.RawMessage
	if args != nil {
		payload, err := json.Marshal(args)
		require.NoError(t, err)
		rawArgs = payload
	}
	res, err := handle(t, h, "tools/call", ToolCallParams{Name: name, Arguments: rawArgs})
	require.NoError(t, err)

	toolRes, ok := res.(ToolCallResult)
	require.True(t, ok)
	require.False(t, toolRes.IsError)
	require.Len(t, toolRes.Content, 1)
	require.Equal(t, "text", toolRes.Content[0].Type)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(toolRes.Content[0].Text), &out))
	return out
}

func validDesign() ProposeToolDesignParams {
	return ProposeToolDesignParams{
		ToolName:               "get_node_status",
		Purpose:                "report the health of a node",
		Layer:                  "platform",
		Dependencies:           []string{"remote runner interface"},
		ImplementationApproach: "query node state through the injected runner with a timeout",
	}
}

func TestHandle_Initialize(t *testing.T) {
	h := newTestHandler(t, &fakeTshRunner{}, "")

	res, err := handle(t, h, "initialize", InitializeParams{ProtocolVersion: protocolVersion})
	require.NoError(t, err)

	init, ok := res.(InitializeResult)
	require.True(t, ok)
	require.Equal(t, protocolVersion, init.ProtocolVersion)
	require.Equal(t, "toolgate", init.ServerInfo.Name)
	require.NotNil(t, init.Capabilities.Tools)
	require.NotNil(t, init.Capabilities.Resources)
	require.NotNil(t, init.Capabilities.Prompts)
	require.NotEmpty(t, init.Instructions)
}

func TestHandle_Ping(t *testing.T) {
	h := newTestHandler(t, &fakeTshRunner{}, "")

	res, err := handle(t, h, "ping", nil)
	require.NoError(t, err)
	require.NotNil(t, res)
}

func TestHandle_NotificationInitialized(t *testing.T) {
	h := newTestHandler(t, &fakeTshRunner{}, "")

	res, err := handle(t, h, "notifications/initialized", nil)
	require.NoError(t, err)
	require.Nil(t, res)
}

func TestHandle_UnknownMethod(t *testing.T) {
	h := newTestHandler(t, &fakeTshRunner{}, "")

	_, err := handle(t, h, "bogus/method", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown method")
}

func TestHandle_ToolsList(t *testing.T) {
	h := newTestHandler(t, &fakeTshRunner{}, "")

	res, err := handle(t, h, "tools/list", nil)
	require.NoError(t, err)

	list, ok := res.(ToolsListResult)
	require.True(t, ok)
	require.Len(t, list.Tools, 14)

	names := make(map[string]bool, len(list.Tools))
	for _, tool := range list.Tools {
		names[tool.Name] = true
	}
	require.True(t, names["propose_tool_design"])
	require.True(t, names["create_mcp_tool"])
	require.True(t, names["run_remote_command"])
	require.False(t, names["list_flux_kustomizations"])
}

func TestHandle_ToolsList_FluxEnabled(t *testing.T) {
	h := newTestHandler(t, &fakeTshRunner{}, "flux")

	res, err := handle(t, h, "tools/list", nil)
	require.NoError(t, err)

	list, ok := res.(ToolsListResult)
	require.True(t, ok)
	require.Len(t, list.Tools, 19)

	names := make(map[string]bool, len(list.Tools))
	for _, tool := range list.Tools {
		names[tool.Name] = true
	}
	require.True(t, names["list_flux_kustomizations"])
	require.True(t, names["reconcile_flux_kustomization"])
}

func TestHandle_ToolsCall_UnknownTool(t *testing.T) {
	h := newTestHandler(t, &fakeTshRunner{}, "")

	_, err := handle(t, h, "tools/call", ToolCallParams{Name: "nope"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown tool: nope")
}

func TestHandle_FluxToolsHiddenWhenDisabled(t *testing.T) {
	h := newTestHandler(t, &fakeTshRunner{}, "")

	_, err := handle(t, h, "tools/call", ToolCallParams{Name: "list_flux_kustomizations"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown tool")
}

func TestHandle_ProposeToolDesign_Valid(t *testing.T) {
	h := newTestHandler(t, &fakeTshRunner{}, "")

	out := callTool(t, h, "propose_tool_design", validDesign())
	require.Equal(t, true, out["valid"])
	require.NotEmpty(t, out["proposal_id"])
	token, _ := out["token"].(string)
	require.Contains(t, token, "valid-")
}

func TestHandle_ProposeToolDesign_Rejected(t *testing.T) {
	h := newTestHandler(t, &fakeTshRunner{}, "")

	design := validDesign()
	design.ImplementationApproach = "ssh into the staging cluster and run a bash install script"

	out := callTool(t, h, "propose_tool_design", design)
	require.Equal(t, false, out["valid"])
	issues, ok := out["issues"].([]any)
	require.True(t, ok)
	require.NotEmpty(t, issues)
}

func TestHandle_ValidateRegisterFlow(t *testing.T) {
	h := newTestHandler(t, &fakeTshRunner{}, "")

	proposed := callTool(t, h, "propose_tool_design", validDesign())
	require.Equal(t, true, proposed["valid"])
	token, _ := proposed["token"].(string)
	require.NotEmpty(t, token)

	verified := callTool(t, h, "verify_tool_design_token", VerifyTokenParams{Token: token})
	require.Equal(t, true, verified["valid"])

	registered := callTool(t, h, "create_mcp_tool", CreateMCPToolParams{
		ToolName:        "get_node_status",
		Description:     "reports node health",
		ValidationToken: token,
	})
	require.Equal(t, true, registered["success"])
	require.Equal(t, true, registered["validation_verified"])
	require.NotNil(t, registered["manifest"])
}

func TestHandle_CreateMCPTool_BadToken(t *testing.T) {
	h := newTestHandler(t, &fakeTshRunner{}, "")

	out := callTool(t, h, "create_mcp_tool", CreateMCPToolParams{
		ToolName:        "get_node_status",
		ValidationToken: "valid-bogus-token",
	})
	require.Equal(t, false, out["success"])
	require.Equal(t, false, out["validation_verified"])
	require.Contains(t, out["message"], "invalid validation token")
}

func TestHandle_CreateMCPTool_NameMismatch(t *testing.T) {
	h := newTestHandler(t, &fakeTshRunner{}, "")

	proposed := callTool(t, h, "propose_tool_design", validDesign())
	token, _ := proposed["token"].(string)

	out := callTool(t, h, "create_mcp_tool", CreateMCPToolParams{
		ToolName:        "get_other_status",
		ValidationToken: token,
	})
	require.Equal(t, false, out["success"])
	require.Contains(t, out["message"], "tool name mismatch")
}

func TestHandle_ListToolProposals(t *testing.T) {
	h := newTestHandler(t, &fakeTshRunner{}, "")

	callTool(t, h, "propose_tool_design", validDesign())

	out := callTool(t, h, "list_tool_proposals", nil)
	require.Equal(t, true, out["success"])
	require.Equal(t, float64(1), out["count"])
}

func TestHandle_AnalyzeAndDecide(t *testing.T) {
	h := newTestHandler(t, &fakeTshRunner{}, "")

	tasks := []roadmap.Task{
		{ID: "a", Name: "design"},
		{ID: "b", Name: "build", DependsOn: []string{"a"}},
		{ID: "c", Name: "ship", DependsOn: []string{"b"}},
	}

	analysis := callTool(t, h, "analyze_critical_path", AnalyzeCriticalPathParams{Tasks: tasks})
	require.Equal(t, true, analysis["success"])
	path, ok := analysis["critical_path"].([]any)
	require.True(t, ok)
	require.Equal(t, []any{"a", "b", "c"}, path)
	token, _ := analysis["analysis_token"].(string)
	require.Contains(t, token, "efficiency-")

	decision := callTool(t, h, "make_roadmap_decision", MakeRoadmapDecisionParams{
		Tasks:         tasks,
		AnalysisToken: token,
		Rationale:     "start at the root",
	})
	require.Equal(t, true, decision["success"])
	require.Equal(t, "a", decision["decision"])
	require.Equal(t, "design", decision["decision_name"])
}

func TestHandle_MakeRoadmapDecision_BadToken(t *testing.T) {
	h := newTestHandler(t, &fakeTshRunner{}, "")

	out := callTool(t, h, "make_roadmap_decision", MakeRoadmapDecisionParams{
		Tasks:         []roadmap.Task{{ID: "a"}},
		AnalysisToken: "not-a-token",
	})
	require.Equal(t, false, out["success"])
	require.Contains(t, out["message"], "invalid analysis token")
}

func TestHandle_SessionNotes(t *testing.T) {
	h := newTestHandler(t, &fakeTshRunner{}, "")

	created := callTool(t, h, "create_session_note", CreateSessionNoteParams{
		Content: "wired the registry gate",
		Section: "Progress",
	})
	require.Equal(t, true, created["success"])

	read := callTool(t, h, "read_session_notes", ReadSessionNotesParams{})
	require.Equal(t, true, read["success"])
	require.Contains(t, read["content"], "wired the registry gate")

	listed := callTool(t, h, "list_session_files", ListSessionFilesParams{})
	require.Equal(t, true, listed["success"])
	require.Equal(t, float64(1), listed["count"])
}

func TestHandle_ListMetaWorkflows(t *testing.T) {
	h := newTestHandler(t, &fakeTshRunner{}, "")

	out := callTool(t, h, "list_meta_workflows", nil)
	require.Equal(t, true, out["available"])
	require.Equal(t, float64(6), out["count"])
	require.Contains(t, out["message"], "found 6 meta-workflow(s)")

	workflows, ok := out["workflows"].([]any)
	require.True(t, ok)
	first, ok := workflows[0].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "MW-001", first["id"])
	require.Equal(t, "active", first["status"])
}

func TestHandle_CheckTshInstalled_Missing(t *testing.T) {
	h := newTestHandler(t, &fakeTshRunner{}, "")

	out := callTool(t, h, "check_tsh_installed", nil)
	require.Equal(t, false, out["installed"])
	require.Contains(t, out["message"], "tsh is not installed")
}

func TestHandle_ListTeleportNodes(t *testing.T) {
	fake := &fakeTshRunner{res: teleport.Result{
		ExitCode: 0,
		Stdout: "Node Name Address        Labels\n" +
			"--------- -------------- ------\n" +
			"web-1     10.0.0.1:3022  env=dev\n" +
			"db-1      10.0.0.2:3022  env=dev\n",
	}}
	h := newTestHandler(t, fake, "")

	out := callTool(t, h, "list_teleport_nodes", ListTeleportNodesParams{Cluster: "staging"})
	require.Equal(t, true, out["success"])
	require.Equal(t, float64(2), out["count"])
	require.Contains(t, out["message"], "found 2 node(s) in staging")
}

func TestHandle_RunRemoteCommand(t *testing.T) {
	fake := &fakeTshRunner{res: teleport.Result{ExitCode: 0, Stdout: "ok\n"}}
	h := newTestHandler(t, fake, "")

	out := callTool(t, h, "run_remote_command", RunRemoteCommandParams{
		Cluster: "staging",
		Node:    "web-1",
		Command: "uptime",
	})
	require.Equal(t, true, out["success"])
	require.Equal(t, float64(0), out["exit_code"])
	require.Equal(t, "ok\n", out["stdout"])
}

func TestHandle_ListFluxKustomizations(t *testing.T) {
	kJSON := `{"items":[{"metadata":{"name":"apps","namespace":"flux-system"},` +
		`"spec":{"suspend":false},` +
		`"status":{"conditions":[{"type":"Ready","status":"True","message":"Applied revision: main@sha1:abc"}],` +
		`"lastAppliedRevision":"main@sha1:abc"}}]}`
	fake := &fakeTshRunner{res: teleport.Result{ExitCode: 0, Stdout: kJSON}}
	h := newTestHandler(t, fake, "flux")

	out := callTool(t, h, "list_flux_kustomizations", ListFluxKustomizationsParams{
		Cluster: "staging",
		Node:    "k8s-1",
	})
	require.Equal(t, true, out["success"])
	require.Equal(t, float64(1), out["count"])
	require.Contains(t, out["message"], "found 1 kustomization(s)")
}

func TestHandle_ResourcesListAndRead(t *testing.T) {
	h := newTestHandler(t, &fakeTshRunner{}, "")

	res, err := handle(t, h, "resources/list", nil)
	require.NoError(t, err)
	list, ok := res.(ResourcesListResult)
	require.True(t, ok)
	require.Len(t, list.Resources, 5)

	read, err := handle(t, h, "resources/read", ResourcesReadParams{URI: "workflow://meta-workflows"})
	require.NoError(t, err)
	contents, ok := read.(ResourcesReadResult)
	require.True(t, ok)
	require.Len(t, contents.Contents, 1)
	require.Equal(t, "workflow://meta-workflows", contents.Contents[0].URI)
	require.Contains(t, contents.Contents[0].Text, "MW-002")

	checklistRead, err := handle(t, h, "resources/read", ResourcesReadParams{URI: "workflow://rules/design-checklist"})
	require.NoError(t, err)
	checklistContents, ok := checklistRead.(ResourcesReadResult)
	require.True(t, ok)
	require.Contains(t, checklistContents.Contents[0].Text, "red_flags")
}

func TestHandle_ResourcesRead_Unknown(t *testing.T) {
	h := newTestHandler(t, &fakeTshRunner{}, "")

	_, err := handle(t, h, "resources/read", ResourcesReadParams{URI: "workflow://nope"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown resource")
}

func TestHandle_PromptsListAndGet(t *testing.T) {
	h := newTestHandler(t, &fakeTshRunner{}, "")

	res, err := handle(t, h, "prompts/list", nil)
	require.NoError(t, err)
	list, ok := res.(PromptsListResult)
	require.True(t, ok)
	require.Len(t, list.Prompts, 4)

	got, err := handle(t, h, "prompts/get", PromptsGetParams{Name: "new_tool_workflow"})
	require.NoError(t, err)
	prompt, ok := got.(PromptsGetResult)
	require.True(t, ok)
	require.Len(t, prompt.Messages, 1)
	require.Equal(t, "user", prompt.Messages[0].Role)
	require.Contains(t, prompt.Messages[0].Content.Text, "propose_tool_design")
}

func TestHandle_PromptsGet_Unknown(t *testing.T) {
	h := newTestHandler(t, &fakeTshRunner{}, "")

	_, err := handle(t, h, "prompts/get", PromptsGetParams{Name: "nope"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown prompt")
}

func TestHandle_RegistrationJournalsToSession(t *testing.T) {
	h := newTestHandler(t, &fakeTshRunner{}, "")

	proposed := callTool(t, h, "propose_tool_design", validDesign())
	token, _ := proposed["token"].(string)
	callTool(t, h, "create_mcp_tool", CreateMCPToolParams{
		ToolName:        "get_node_status",
		ValidationToken: token,
	})

	read := callTool(t, h, "read_session_notes", ReadSessionNotesParams{})
	require.Equal(t, true, read["success"])
	require.Contains(t, read["content"], "get_node_status")
}
