// Package teleport wraps the tsh CLI for node discovery and remote command
// execution. All subprocess work goes through an injectable Runner so the
// client can be exercised without a Teleport cluster.
package teleport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultTshPath is where the install playbook places the binary.
	DefaultTshPath = "/usr/local/bin/tsh"

	defaultRunTimeout  = 30 * time.Second
	listNodesTimeout   = 15 * time.Second
	verifyProbeTimeout = 15 * time.Second
)

// Config carries the environment-specific settings for the client.
type Config struct {
	// TshPath is the tsh binary location. Defaults to DefaultTshPath.
	TshPath string
	// ProxyAddr is the Teleport proxy used in login guidance.
	ProxyAddr string
	// Clusters is the allow-list of reachable cluster names.
	Clusters []string
	// AnsibleDir holds the playbooks referenced in install guidance.
	AnsibleDir string
}

// Client executes tsh operations against an allow-listed set of clusters.
type Client struct {
	runner Runner
	cfg    Config
	logger *slog.Logger
	statFn func(string) (os.FileInfo, error)
}

// NewClient builds a client around the given runner.
func NewClient(runner Runner, cfg Config, logger *slog.Logger) *Client {
	if cfg.TshPath == "" {
		cfg.TshPath = DefaultTshPath
	}
	return &Client{
		runner: runner,
		cfg:    cfg,
		logger: logger,
		statFn: os.Stat,
	}
}

// Clusters returns the configured allow-list.
func (c *Client) Clusters() []string {
	out := make([]string, len(c.cfg.Clusters))
	copy(out, c.cfg.Clusters)
	return out
}

// CheckInstalled reports whether the tsh binary exists and is executable.
// When it is missing, the result carries the ansible steps to install it.
func (c *Client) CheckInstalled(ctx context.Context) *InstallStatus {
	info, err := c.statFn(c.cfg.TshPath)
	if err == nil && info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0 {
		return &InstallStatus{
			Installed: true,
			Path:      c.cfg.TshPath,
			Message:   fmt.Sprintf("tsh is installed at %s", c.cfg.TshPath),
		}
	}

	status := &InstallStatus{
		Path:    c.cfg.TshPath,
		Message: fmt.Sprintf("tsh is not installed at %s", c.cfg.TshPath),
	}
	if c.cfg.AnsibleDir != "" {
		playbook := filepath.Join(c.cfg.AnsibleDir, "install-teleport.yml")
		status.AnsibleCommand = fmt.Sprintf("ansible-playbook %s", playbook)
		status.AnsibleSteps = []string{
			fmt.Sprintf("cd %s", c.cfg.AnsibleDir),
			"ansible-playbook install-teleport.yml",
			fmt.Sprintf("tsh version  # confirm %s exists", c.cfg.TshPath),
		}
	}
	return status
}

// ListNodes lists the nodes visible in a cluster, optionally filtered by a
// case-insensitive hostname substring.
func (c *Client) ListNodes(ctx context.Context, cluster, filter string) *NodesResult {
	if msg, ok := c.checkCluster(cluster); !ok {
		return &NodesResult{Cluster: cluster, Nodes: []Node{}, Message: msg}
	}

	runCtx, cancel := context.WithTimeout(ctx, listNodesTimeout)
	defer cancel()

	res, err := c.runner.Run(runCtx, c.cfg.TshPath, "ls", "--cluster", cluster)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return &NodesResult{
				Cluster: cluster,
				Nodes:   []Node{},
				Message: fmt.Sprintf("timed out listing nodes in %s", cluster),
			}
		}
		return &NodesResult{
			Cluster: cluster,
			Nodes:   []Node{},
			Message: fmt.Sprintf("failed to run tsh: %v", err),
		}
	}

	if res.ExitCode != 0 {
		if needsLogin(res.Stderr) {
			return &NodesResult{
				Cluster: cluster,
				Nodes:   []Node{},
				Message: fmt.Sprintf("not logged into %s cluster", cluster),
				Steps:   c.loginSteps(cluster),
			}
		}
		return &NodesResult{
			Cluster: cluster,
			Nodes:   []Node{},
			Message: fmt.Sprintf("error listing nodes: %s", strings.TrimSpace(res.Stderr)),
		}
	}

	nodes := parseNodeList(res.Stdout, filter)
	c.logger.Debug("listed teleport nodes", "cluster", cluster, "count", len(nodes))

	return &NodesResult{
		Success: true,
		Cluster: cluster,
		Nodes:   nodes,
		Count:   len(nodes),
		Message: fmt.Sprintf("found %d node(s) in %s", len(nodes), cluster),
	}
}

// VerifyAccess probes SSH connectivity by echoing a marker on the node.
func (c *Client) VerifyAccess(ctx context.Context, cluster, node, user string) *AccessResult {
	if user == "" {
		user = "root"
	}
	result := &AccessResult{Cluster: cluster, Node: node, User: user}

	if msg, ok := c.checkCluster(cluster); !ok {
		result.Message = msg
		return result
	}
	if node == "" {
		result.Message = "node is required"
		return result
	}

	runCtx, cancel := context.WithTimeout(ctx, verifyProbeTimeout)
	defer cancel()

	target := fmt.Sprintf("%s@%s", user, node)
	res, err := c.runner.Run(runCtx, c.cfg.TshPath,
		"ssh", "--cluster="+cluster, target, "echo test")
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			result.Message = fmt.Sprintf("ssh connection to %s timed out", target)
			return result
		}
		result.Message = fmt.Sprintf("failed to run tsh: %v", err)
		return result
	}

	if res.ExitCode == 0 && strings.Contains(res.Stdout, "test") {
		result.Success = true
		result.Message = fmt.Sprintf("ssh access to %s verified via %s", target, cluster)
		return result
	}

	if needsLogin(res.Stderr) {
		result.Message = fmt.Sprintf("not logged into %s cluster", cluster)
		result.Steps = c.loginSteps(cluster)
		return result
	}
	result.Message = fmt.Sprintf("cannot connect to %s: %s", target, strings.TrimSpace(res.Stderr))
	return result
}

// RunCommand executes a shell command on a remote node through tsh ssh.
// It is the primitive the team-layer services build on.
func (c *Client) RunCommand(ctx context.Context, req RunRequest) *RunResult {
	user := req.User
	if user == "" {
		user = "root"
	}
	timeout := defaultRunTimeout
	if req.TimeoutSeconds > 0 {
		timeout = time.Duration(req.TimeoutSeconds) * time.Second
	}

	result := &RunResult{
		Cluster: req.Cluster,
		Node:    req.Node,
		User:    user,
		Command: req.Command,
	}

	if msg, ok := c.checkCluster(req.Cluster); !ok {
		result.Message = msg
		return result
	}
	if req.Node == "" {
		result.Message = "node is required"
		return result
	}
	if strings.TrimSpace(req.Command) == "" {
		result.Message = "command cannot be empty"
		return result
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	target := fmt.Sprintf("%s@%s", user, req.Node)
	c.logger.Debug("running remote command",
		"cluster", req.Cluster, "target", target, "command", req.Command)

	res, err := c.runner.Run(runCtx, c.cfg.TshPath,
		"ssh", "--cluster="+req.Cluster, target, req.Command)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			result.Message = fmt.Sprintf("command timed out after %d seconds",
				int(timeout.Seconds()))
			return result
		}
		result.Message = fmt.Sprintf("failed to run tsh: %v", err)
		return result
	}

	result.ExitCode = &res.ExitCode
	result.Stdout = res.Stdout
	result.Stderr = res.Stderr

	if res.ExitCode == 0 {
		result.Success = true
		result.Message = "command executed successfully"
		return result
	}

	switch {
	case needsLogin(res.Stderr):
		result.Message = fmt.Sprintf("not logged into %s cluster", req.Cluster)
		result.Steps = c.loginSteps(req.Cluster)
	case isConnectFailure(res.Stderr):
		result.Message = fmt.Sprintf("cannot connect to %s", target)
		result.Steps = []string{
			fmt.Sprintf("verify the node name with list_teleport_nodes in %s", req.Cluster),
			fmt.Sprintf("verify_ssh_access for %s", target),
		}
	default:
		result.Message = fmt.Sprintf("command failed with exit code %d", res.ExitCode)
	}
	return result
}

func (c *Client) checkCluster(cluster string) (string, bool) {
	for _, known := range c.cfg.Clusters {
		if cluster == known {
			return "", true
		}
	}
	return fmt.Sprintf("invalid cluster %q, must be one of: %s",
		cluster, strings.Join(c.cfg.Clusters, ", ")), false
}

func (c *Client) loginSteps(cluster string) []string {
	login := fmt.Sprintf("tsh login --auth=okta %s", cluster)
	if c.cfg.ProxyAddr != "" {
		login = fmt.Sprintf("tsh login --proxy=%s --auth=okta %s", c.cfg.ProxyAddr, cluster)
	}
	return []string{
		login,
		"retry the operation once login succeeds",
	}
}

// parseNodeList extracts hostnames from tabular tsh ls output. The first two
// lines are the header and its underline.
func parseNodeList(out, filter string) []Node {
	nodes := []Node{}
	lines := strings.Split(out, "\n")
	if len(lines) <= 2 {
		return nodes
	}
	filter = strings.ToLower(filter)
	for _, line := range lines[2:] {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "-") {
			continue
		}
		fields := strings.Fields(trimmed)
		if len(fields) == 0 {
			continue
		}
		hostname := fields[0]
		if filter != "" && !strings.Contains(strings.ToLower(hostname), filter) {
			continue
		}
		nodes = append(nodes, Node{Hostname: hostname, RawLine: trimmed})
	}
	return nodes
}

func needsLogin(stderr string) bool {
	s := strings.ToLower(stderr)
	return strings.Contains(s, "not logged in") || strings.Contains(s, "login")
}

func isConnectFailure(stderr string) bool {
	s := strings.ToLower(stderr)
	return strings.Contains(s, "connection") || strings.Contains(s, "cannot connect")
}
