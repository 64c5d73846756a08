package teleport

// InstallStatus reports whether the tsh binary is present and runnable.
type InstallStatus struct {
	Installed      bool     `json:"installed"`
	Path           string   `json:"path"`
	Message        string   `json:"message"`
	AnsibleCommand string   `json:"ansible_command,omitempty"`
	AnsibleSteps   []string `json:"ansible_steps,omitempty"`
}

// Node is one host parsed from tsh ls output.
type Node struct {
	Hostname string `json:"hostname"`
	RawLine  string `json:"raw_line"`
}

// NodesResult is the outcome of listing nodes in a cluster.
type NodesResult struct {
	Success bool     `json:"success"`
	Cluster string   `json:"cluster"`
	Nodes   []Node   `json:"nodes"`
	Count   int      `json:"count"`
	Message string   `json:"message"`
	Steps   []string `json:"steps,omitempty"`
}

// AccessResult is the outcome of an SSH reachability probe.
type AccessResult struct {
	Success bool     `json:"success"`
	Cluster string   `json:"cluster"`
	Node    string   `json:"node"`
	User    string   `json:"user"`
	Message string   `json:"message"`
	Steps   []string `json:"steps,omitempty"`
}

// RunRequest describes a command to execute on a remote node.
type RunRequest struct {
	Cluster        string `json:"cluster"`
	Node           string `json:"node"`
	Command        string `json:"command"`
	User           string `json:"user,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

// RunResult is the outcome of a remote command. ExitCode is nil when the
// command never ran, for example on timeout or when tsh itself failed.
type RunResult struct {
	Success  bool     `json:"success"`
	Cluster  string   `json:"cluster"`
	Node     string   `json:"node"`
	User     string   `json:"user"`
	Command  string   `json:"command"`
	ExitCode *int     `json:"exit_code"`
	Stdout   string   `json:"stdout"`
	Stderr   string   `json:"stderr"`
	Message  string   `json:"message"`
	Steps    []string `json:"steps,omitempty"`
}
