package functional_test

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

// stdioSession wraps an MCP client session for stdio transport testing
type stdioSession struct {
	session *sdkmcp.ClientSession
	cancel  context.CancelFunc
}

func newStdioSession(t *testing.T) *stdioSession {
	t.Helper()
	return newStdioSessionWithEnv(t, nil)
}

func newStdioSessionWithEnv(t *testing.T, extraEnv []string) *stdioSession {
	t.Helper()

	// Find the binary
	binaryPath := "./bin/toolgate-server"
	if _, err := os.Stat(binaryPath); os.IsNotExist(err) {
		binaryPath = "../../bin/toolgate-server"
		if _, err := os.Stat(binaryPath); os.IsNotExist(err) {
			t.Skip("Server binary not found. Run 'go build -o bin/toolgate-server ./cmd/server' first.")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	cmd := exec.CommandContext(ctx, binaryPath)
	cmd.Env = append(os.Environ(),
		"TOOLGATE_TRANSPORT=stdio",
		"TOOLGATE_STORAGE_BACKEND=sqlite",
		"TOOLGATE_SQLITE_PATH=:memory:",
		"TOOLGATE_AUTH_ENABLED=false",
		"TOOLGATE_SESSIONS_DIR="+t.TempDir(),
	)
	if len(extraEnv) > 0 {
		cmd.Env = append(cmd.Env, extraEnv...)
	}

	transport := &sdkmcp.CommandTransport{Command: cmd}

	client := sdkmcp.NewClient(&sdkmcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		cancel()
		t.Fatalf("Failed to connect: %v", err)
	}

	t.Cleanup(func() {
		session.Close()
		cancel()
	})

	return &stdioSession{session: session, cancel: cancel}
}

func (s *stdioSession) callTool(t *testing.T, name string, args map[string]any) json.RawMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := s.session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	require.NoError(t, err, "CallTool %s failed", name)
	require.False(t, result.IsError, "Tool %s returned error", name)
	require.NotEmpty(t, result.Content, "Tool %s returned no content", name)

	// Extract text content
	for _, content := range result.Content {
		if textContent, ok := content.(*sdkmcp.TextContent); ok {
			return json.RawMessage(textContent.Text)
		}
	}
	t.Fatalf("Tool %s returned no text content", name)
	return nil
}

func TestStdioFunctional_ValidateRegisterFlow(t *testing.T) {
	s := newStdioSession(t)

	proposeResp := s.callTool(t, "propose_tool_design", validDesignArgs())
	var proposed struct {
		Valid bool   `json:"valid"`
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(proposeResp, &proposed))
	require.True(t, proposed.Valid)
	require.NotEmpty(t, proposed.Token)

	verifyResp := s.callTool(t, "verify_tool_design_token", map[string]any{
		"token": proposed.Token,
	})
	require.Contains(t, string(verifyResp), `"valid":true`)

	registerResp := s.callTool(t, "create_mcp_tool", map[string]any{
		"tool_name":        "get_node_status",
		"validation_token": proposed.Token,
	})
	var registered struct {
		Success bool `json:"success"`
	}
	require.NoError(t, json.Unmarshal(registerResp, &registered))
	require.True(t, registered.Success)

	listResp := s.callTool(t, "list_tool_proposals", nil)
	var listed struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(listResp, &listed))
	require.Equal(t, 1, listed.Count)
}

func TestStdioFunctional_RoadmapFlow(t *testing.T) {
	s := newStdioSession(t)

	tasks := []map[string]any{
		{"id": "a", "name": "design", "duration": 2},
		{"id": "b", "name": "build", "depends_on": []string{"a"}},
	}

	analyzeResp := s.callTool(t, "analyze_critical_path", map[string]any{
		"tasks": tasks,
	})
	var analysis struct {
		Success bool   `json:"success"`
		Token   string `json:"analysis_token"`
	}
	require.NoError(t, json.Unmarshal(analyzeResp, &analysis))
	require.True(t, analysis.Success)
	require.NotEmpty(t, analysis.Token)

	decideResp := s.callTool(t, "make_roadmap_decision", map[string]any{
		"tasks":          tasks,
		"analysis_token": analysis.Token,
	})
	var decision struct {
		Success  bool   `json:"success"`
		Decision string `json:"decision"`
	}
	require.NoError(t, json.Unmarshal(decideResp, &decision))
	require.True(t, decision.Success)
	require.Equal(t, "a", decision.Decision)
}

func TestStdioFunctional_SessionNotes(t *testing.T) {
	s := newStdioSession(t)

	createResp := s.callTool(t, "create_session_note", map[string]any{
		"content": "stdio transport note",
	})
	var created struct {
		Success bool `json:"success"`
	}
	require.NoError(t, json.Unmarshal(createResp, &created))
	require.True(t, created.Success)

	readResp := s.callTool(t, "read_session_notes", nil)
	require.Contains(t, string(readResp), "stdio transport note")
}

func TestStdioFunctional_MCPProtocolCompliance(t *testing.T) {
	s := newStdioSession(t)

	// Verify server info from initialization
	initResult := s.session.InitializeResult()
	require.NotNil(t, initResult)
	require.NotNil(t, initResult.ServerInfo)
	require.Equal(t, "toolgate", initResult.ServerInfo.Name)
	require.Equal(t, "0.1.0", initResult.ServerInfo.Version)

	// Test tools/list
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tools, err := s.session.ListTools(ctx, nil)
	require.NoError(t, err)
	require.Len(t, tools.Tools, 14, "flux tools stay hidden without the capability pack")

	// Verify expected tools exist with proper metadata
	toolMap := make(map[string]*sdkmcp.Tool)
	for _, tool := range tools.Tools {
		toolMap[tool.Name] = tool
	}

	require.Contains(t, toolMap, "propose_tool_design")
	require.Contains(t, toolMap, "create_mcp_tool")
	require.Contains(t, toolMap, "check_tsh_installed")
	require.NotEmpty(t, toolMap["propose_tool_design"].Description)
}

func TestStdioFunctional_FluxCapability(t *testing.T) {
	s := newStdioSessionWithEnv(t, []string{
		"TOOLGATE_TEAM_CAPABILITY=flux",
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tools, err := s.session.ListTools(ctx, nil)
	require.NoError(t, err)
	require.Len(t, tools.Tools, 19)

	toolNames := make(map[string]bool)
	for _, tool := range tools.Tools {
		toolNames[tool.Name] = true
	}
	require.True(t, toolNames["list_flux_kustomizations"])
	require.True(t, toolNames["reconcile_flux_kustomization"])
}

func TestStdioFunctional_LogFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "toolgate.log")
	s := newStdioSessionWithEnv(t, []string{
		"TOOLGATE_LOG_PATH=" + logPath,
		"TOOLGATE_LOG_LEVEL=debug",
	})

	_ = s.callTool(t, "list_tool_proposals", nil)

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(logPath)
		if err != nil {
			return false
		}
		text := string(data)
		return strings.Contains(text, `msg="mcp traffic"`) &&
			strings.Contains(text, "stage=request") &&
			strings.Contains(text, "stage=response")
	}, 5*time.Second, 100*time.Millisecond)
}

func TestStdioFunctional_DocumentationResources(t *testing.T) {
	s := newStdioSession(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resources, err := s.session.ListResources(ctx, nil)
	require.NoError(t, err)
	require.NotEmpty(t, resources.Resources)

	uris := make(map[string]*sdkmcp.Resource, len(resources.Resources))
	for _, r := range resources.Resources {
		uris[r.URI] = r
	}

	expected := []string{
		"workflow://meta-workflows",
		"workflow://rules/design-checklist",
		"workflow://architecture/layer-model",
		"workflow://patterns/state-management",
		"workflow://patterns/session-documentation",
	}
	for _, uri := range expected {
		r, ok := uris[uri]
		require.True(t, ok, "missing expected doc resource: %s", uri)
		require.NotEmpty(t, r.Name)
		require.Equal(t, "text/markdown", r.MIMEType)
		require.Greater(t, r.Size, int64(0))
	}

	read, err := s.session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "workflow://meta-workflows"})
	require.NoError(t, err)
	require.NotEmpty(t, read.Contents)
	require.Equal(t, "workflow://meta-workflows", read.Contents[0].URI)
	require.Equal(t, "text/markdown", read.Contents[0].MIMEType)
	require.Contains(t, read.Contents[0].Text, "MW-001")
}

func TestStdioFunctional_Prompts(t *testing.T) {
	s := newStdioSession(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	prompts, err := s.session.ListPrompts(ctx, nil)
	require.NoError(t, err)
	require.Len(t, prompts.Prompts, 4)

	got, err := s.session.GetPrompt(ctx, &sdkmcp.GetPromptParams{Name: "new_tool_workflow"})
	require.NoError(t, err)
	require.NotEmpty(t, got.Messages)
	text, ok := got.Messages[0].Content.(*sdkmcp.TextContent)
	require.True(t, ok)
	require.Contains(t, text.Text, "propose_tool_design")
}
