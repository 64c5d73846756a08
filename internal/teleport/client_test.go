package teleport

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	res   Result
	err   error
	calls [][]string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	return f.res, f.err
}

func newTestClient(runner Runner) *Client {
	cfg := Config{
		TshPath:    DefaultTshPath,
		ProxyAddr:  "teleport.example.com",
		Clusters:   []string{"staging", "production"},
		AnsibleDir: "/opt/ansible",
	}
	return NewClient(runner, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

const nodeTable = `Node Name Address        Labels
--------- -------------- ------
web-1     10.0.0.1:3022  env=staging
web-2     10.0.0.2:3022  env=staging
db-1      10.0.0.3:3022  env=staging
`

func TestCheckInstalled_Found(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tsh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))

	client := NewClient(&fakeRunner{}, Config{TshPath: path},
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	status := client.CheckInstalled(context.Background())
	assert.True(t, status.Installed)
	assert.Equal(t, path, status.Path)
	assert.Contains(t, status.Message, path)
	assert.Empty(t, status.AnsibleSteps)
}

func TestCheckInstalled_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tsh")
	client := NewClient(&fakeRunner{}, Config{TshPath: path, AnsibleDir: "/opt/ansible"},
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	status := client.CheckInstalled(context.Background())
	assert.False(t, status.Installed)
	assert.Contains(t, status.Message, "not installed")
	assert.Contains(t, status.AnsibleCommand, "ansible-playbook")
	require.NotEmpty(t, status.AnsibleSteps)
	assert.Contains(t, status.AnsibleSteps[0], "/opt/ansible")
}

func TestCheckInstalled_NotExecutable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tsh")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))

	client := NewClient(&fakeRunner{}, Config{TshPath: path},
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.False(t, client.CheckInstalled(context.Background()).Installed)
}

func TestListNodes_ParsesTable(t *testing.T) {
	runner := &fakeRunner{res: Result{Stdout: nodeTable}}
	client := newTestClient(runner)

	result := client.ListNodes(context.Background(), "staging", "")
	require.True(t, result.Success)
	assert.Equal(t, 3, result.Count)
	assert.Equal(t, "web-1", result.Nodes[0].Hostname)
	assert.Contains(t, result.Nodes[0].RawLine, "10.0.0.1:3022")
	assert.Equal(t, "found 3 node(s) in staging", result.Message)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{DefaultTshPath, "ls", "--cluster", "staging"}, runner.calls[0])
}

func TestListNodes_FilterMatchesSubstring(t *testing.T) {
	client := newTestClient(&fakeRunner{res: Result{Stdout: nodeTable}})

	result := client.ListNodes(context.Background(), "staging", "WEB")
	require.True(t, result.Success)
	assert.Equal(t, 2, result.Count)
	for _, node := range result.Nodes {
		assert.Contains(t, node.Hostname, "web")
	}
}

func TestListNodes_InvalidCluster(t *testing.T) {
	runner := &fakeRunner{}
	client := newTestClient(runner)

	result := client.ListNodes(context.Background(), "prod", "")
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, `invalid cluster "prod"`)
	assert.Contains(t, result.Message, "staging, production")
	assert.Empty(t, runner.calls)
}

func TestListNodes_NotLoggedIn(t *testing.T) {
	runner := &fakeRunner{res: Result{ExitCode: 1, Stderr: "ERROR: Not logged in."}}
	client := newTestClient(runner)

	result := client.ListNodes(context.Background(), "staging", "")
	assert.False(t, result.Success)
	assert.Equal(t, "not logged into staging cluster", result.Message)
	require.NotEmpty(t, result.Steps)
	assert.Equal(t, "tsh login --proxy=teleport.example.com --auth=okta staging", result.Steps[0])
}

func TestListNodes_CommandError(t *testing.T) {
	runner := &fakeRunner{res: Result{ExitCode: 1, Stderr: "cluster is offline\n"}}
	client := newTestClient(runner)

	result := client.ListNodes(context.Background(), "staging", "")
	assert.False(t, result.Success)
	assert.Equal(t, "error listing nodes: cluster is offline", result.Message)
}

func TestListNodes_Timeout(t *testing.T) {
	runner := &fakeRunner{err: context.DeadlineExceeded}
	client := newTestClient(runner)

	result := client.ListNodes(context.Background(), "staging", "")
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "timed out listing nodes")
}

func TestListNodes_EmptyTable(t *testing.T) {
	client := newTestClient(&fakeRunner{res: Result{Stdout: "Node Name Address Labels\n--------- ------- ------\n"}})

	result := client.ListNodes(context.Background(), "staging", "")
	require.True(t, result.Success)
	assert.Equal(t, 0, result.Count)
	assert.NotNil(t, result.Nodes)
}

func TestVerifyAccess_OK(t *testing.T) {
	runner := &fakeRunner{res: Result{Stdout: "test\n"}}
	client := newTestClient(runner)

	result := client.VerifyAccess(context.Background(), "staging", "web-1", "")
	assert.True(t, result.Success)
	assert.Equal(t, "root", result.User)
	assert.Contains(t, result.Message, "root@web-1")

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{DefaultTshPath, "ssh", "--cluster=staging", "root@web-1", "echo test"},
		runner.calls[0])
}

func TestVerifyAccess_ConnectionRefused(t *testing.T) {
	runner := &fakeRunner{res: Result{ExitCode: 255, Stderr: "connection refused"}}
	client := newTestClient(runner)

	result := client.VerifyAccess(context.Background(), "staging", "web-1", "deploy")
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "cannot connect to deploy@web-1")
}

func TestVerifyAccess_Timeout(t *testing.T) {
	client := newTestClient(&fakeRunner{err: context.DeadlineExceeded})

	result := client.VerifyAccess(context.Background(), "staging", "web-1", "")
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "timed out")
}

func TestVerifyAccess_MissingNode(t *testing.T) {
	runner := &fakeRunner{}
	client := newTestClient(runner)

	result := client.VerifyAccess(context.Background(), "staging", "", "")
	assert.False(t, result.Success)
	assert.Equal(t, "node is required", result.Message)
	assert.Empty(t, runner.calls)
}

func TestRunCommand_Success(t *testing.T) {
	runner := &fakeRunner{res: Result{Stdout: "up 12 days\n"}}
	client := newTestClient(runner)

	result := client.RunCommand(context.Background(), RunRequest{
		Cluster: "staging",
		Node:    "web-1",
		Command: "uptime",
	})
	require.True(t, result.Success)
	require.NotNil(t, result.ExitCode)
	assert.Equal(t, 0, *result.ExitCode)
	assert.Equal(t, "up 12 days\n", result.Stdout)
	assert.Equal(t, "command executed successfully", result.Message)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{DefaultTshPath, "ssh", "--cluster=staging", "root@web-1", "uptime"},
		runner.calls[0])
}

func TestRunCommand_CustomUser(t *testing.T) {
	runner := &fakeRunner{res: Result{}}
	client := newTestClient(runner)

	result := client.RunCommand(context.Background(), RunRequest{
		Cluster: "production",
		Node:    "db-1",
		Command: "id",
		User:    "deploy",
	})
	assert.Equal(t, "deploy", result.User)
	require.Len(t, runner.calls, 1)
	assert.Equal(t, "deploy@db-1", runner.calls[0][3])
}

func TestRunCommand_EmptyCommand(t *testing.T) {
	runner := &fakeRunner{}
	client := newTestClient(runner)

	result := client.RunCommand(context.Background(), RunRequest{
		Cluster: "staging",
		Node:    "web-1",
		Command: "   ",
	})
	assert.False(t, result.Success)
	assert.Equal(t, "command cannot be empty", result.Message)
	assert.Nil(t, result.ExitCode)
	assert.Empty(t, runner.calls)
}

func TestRunCommand_NonZeroExit(t *testing.T) {
	runner := &fakeRunner{res: Result{ExitCode: 3, Stderr: "boom"}}
	client := newTestClient(runner)

	result := client.RunCommand(context.Background(), RunRequest{
		Cluster: "staging",
		Node:    "web-1",
		Command: "false",
	})
	assert.False(t, result.Success)
	require.NotNil(t, result.ExitCode)
	assert.Equal(t, 3, *result.ExitCode)
	assert.Equal(t, "command failed with exit code 3", result.Message)
}

func TestRunCommand_NotLoggedIn(t *testing.T) {
	runner := &fakeRunner{res: Result{ExitCode: 1, Stderr: "ERROR: not logged in"}}
	client := newTestClient(runner)

	result := client.RunCommand(context.Background(), RunRequest{
		Cluster: "production",
		Node:    "db-1",
		Command: "id",
	})
	assert.Equal(t, "not logged into production cluster", result.Message)
	require.NotEmpty(t, result.Steps)
	assert.Contains(t, result.Steps[0], "--auth=okta production")
}

func TestRunCommand_ConnectFailure(t *testing.T) {
	runner := &fakeRunner{res: Result{ExitCode: 1, Stderr: "error: cannot connect to host"}}
	client := newTestClient(runner)

	result := client.RunCommand(context.Background(), RunRequest{
		Cluster: "staging",
		Node:    "db-1",
		Command: "id",
	})
	assert.Equal(t, "cannot connect to root@db-1", result.Message)
	assert.Len(t, result.Steps, 2)
}

func TestRunCommand_Timeout(t *testing.T) {
	client := newTestClient(&fakeRunner{err: context.DeadlineExceeded})

	result := client.RunCommand(context.Background(), RunRequest{
		Cluster:        "staging",
		Node:           "web-1",
		Command:        "sleep 60",
		TimeoutSeconds: 5,
	})
	assert.False(t, result.Success)
	assert.Equal(t, "command timed out after 5 seconds", result.Message)
	assert.Nil(t, result.ExitCode)
}

func TestRunCommand_InvalidCluster(t *testing.T) {
	runner := &fakeRunner{}
	client := newTestClient(runner)

	result := client.RunCommand(context.Background(), RunRequest{
		Cluster: "dev",
		Node:    "web-1",
		Command: "id",
	})
	assert.Contains(t, result.Message, `invalid cluster "dev"`)
	assert.Empty(t, runner.calls)
}
