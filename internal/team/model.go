package team

// Kustomization summarizes one Flux Kustomization object.
type Kustomization struct {
	Name                string `json:"name"`
	Namespace           string `json:"namespace"`
	Ready               string `json:"ready"`
	Message             string `json:"message"`
	LastAppliedRevision string `json:"last_applied_revision"`
	Suspended           *bool  `json:"suspended,omitempty"`
}

// KustomizationList is the outcome of listing kustomizations on a node.
type KustomizationList struct {
	Success        bool            `json:"success"`
	Cluster        string          `json:"cluster"`
	Node           string          `json:"node"`
	Kustomizations []Kustomization `json:"kustomizations"`
	Count          int             `json:"count"`
	Message        string          `json:"message"`
	Steps          []string        `json:"steps,omitempty"`
}

// GitRef identifies the git reference a source tracks.
type GitRef struct {
	Branch string `json:"branch,omitempty"`
	Tag    string `json:"tag,omitempty"`
	Commit string `json:"commit,omitempty"`
}

// Source summarizes one Flux GitRepository object.
type Source struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	URL       string `json:"url"`
	Ref       GitRef `json:"ref"`
	Ready     string `json:"ready"`
	Message   string `json:"message"`
	Revision  string `json:"revision"`
}

// SourceList is the outcome of listing git sources on a node.
type SourceList struct {
	Success bool     `json:"success"`
	Cluster string   `json:"cluster"`
	Node    string   `json:"node"`
	Sources []Source `json:"sources"`
	Count   int      `json:"count"`
	Message string   `json:"message"`
	Steps   []string `json:"steps,omitempty"`
}

// OperationResult is the outcome of a reconcile, suspend, or resume.
type OperationResult struct {
	Success   bool     `json:"success"`
	Cluster   string   `json:"cluster"`
	Node      string   `json:"node"`
	Name      string   `json:"name"`
	Namespace string   `json:"namespace"`
	Message   string   `json:"message"`
	Output    string   `json:"output,omitempty"`
	Steps     []string `json:"steps,omitempty"`
}
