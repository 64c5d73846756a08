package team

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"toolgate/internal/teleport"
)

// DefaultNamespace is where Flux installs its controllers and where
// kustomizations live unless told otherwise.
const DefaultNamespace = "flux-system"

const (
	kustomizationsCommand = "sudo kubectl get kustomizations.kustomize.toolkit.fluxcd.io -A -o json"
	gitSourcesCommand     = "sudo kubectl get gitrepositories.source.toolkit.fluxcd.io -A -o json"

	readTimeoutSeconds      = 30
	reconcileTimeoutSeconds = 60
	toggleTimeoutSeconds    = 30
)

// FluxConfig carries deployment settings for the flux extension.
type FluxConfig struct {
	// SSHUser is the account flux and kubectl commands run under on the
	// node. Defaults to root.
	SSHUser string
}

// Flux manages Flux CD kustomizations on remote nodes through SSH.
type Flux struct {
	remote RemoteRunner
	user   string
	logger *slog.Logger
}

// NewFlux builds the flux extension around a remote runner.
func NewFlux(remote RemoteRunner, cfg FluxConfig, logger *slog.Logger) *Flux {
	user := cfg.SSHUser
	if user == "" {
		user = "root"
	}
	return &Flux{remote: remote, user: user, logger: logger}
}

// Capability implements Extension.
func (f *Flux) Capability() Capability { return CapabilityFlux }

// ListKustomizations lists all kustomizations on a node across namespaces.
// Suspend state is included only when showSuspend is set.
func (f *Flux) ListKustomizations(ctx context.Context, cluster, node string, showSuspend bool) *KustomizationList {
	out := &KustomizationList{Cluster: cluster, Node: node, Kustomizations: []Kustomization{}}

	res := f.run(ctx, cluster, node, kustomizationsCommand, readTimeoutSeconds)
	if !res.Success {
		out.Message = res.Message
		out.Steps = res.Steps
		return out
	}

	var list k8sObjectList
	if err := json.Unmarshal([]byte(res.Stdout), &list); err != nil {
		stderr := strings.ToLower(res.Stderr)
		if strings.Contains(stderr, "error") || strings.Contains(stderr, "not found") {
			out.Message = "flux may not be installed on this cluster"
			out.Steps = []string{
				fmt.Sprintf("verify flux is installed: tsh ssh --cluster=%s %s@%s 'flux check'", cluster, f.user, node),
				"check kubectl access: kubectl get ns flux-system",
			}
			return out
		}
		out.Message = fmt.Sprintf("failed to parse kubectl output: %v", err)
		out.Steps = []string{
			fmt.Sprintf("try manually: tsh ssh --cluster=%s %s@%s 'flux get kustomizations'", cluster, f.user, node),
		}
		return out
	}

	for _, item := range list.Items {
		ready, message := readyCondition(item.Status.Conditions)
		revision := item.Status.LastAppliedRevision
		if revision == "" {
			revision = "N/A"
		}
		k := Kustomization{
			Name:                item.Metadata.Name,
			Namespace:           item.Metadata.Namespace,
			Ready:               ready,
			Message:             message,
			LastAppliedRevision: revision,
		}
		if showSuspend {
			suspended := item.Spec.Suspend
			k.Suspended = &suspended
		}
		out.Kustomizations = append(out.Kustomizations, k)
	}

	out.Success = true
	out.Count = len(out.Kustomizations)
	out.Message = fmt.Sprintf("found %d kustomization(s)", out.Count)
	f.logger.Debug("listed kustomizations", "cluster", cluster, "node", node, "count", out.Count)
	return out
}

// Reconcile triggers an immediate reconciliation of a kustomization.
func (f *Flux) Reconcile(ctx context.Context, cluster, node, name, namespace string) *OperationResult {
	return f.toggle(ctx, cluster, node, name, namespace, "reconcile", reconcileTimeoutSeconds)
}

// Suspend pauses reconciliation of a kustomization.
func (f *Flux) Suspend(ctx context.Context, cluster, node, name, namespace string) *OperationResult {
	return f.toggle(ctx, cluster, node, name, namespace, "suspend", toggleTimeoutSeconds)
}

// Resume restarts reconciliation of a suspended kustomization.
func (f *Flux) Resume(ctx context.Context, cluster, node, name, namespace string) *OperationResult {
	return f.toggle(ctx, cluster, node, name, namespace, "resume", toggleTimeoutSeconds)
}

func (f *Flux) toggle(ctx context.Context, cluster, node, name, namespace, verb string, timeoutSeconds int) *OperationResult {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	out := &OperationResult{Cluster: cluster, Node: node, Name: name, Namespace: namespace}

	if strings.TrimSpace(name) == "" {
		out.Message = "kustomization name is required"
		return out
	}

	command := fmt.Sprintf("sudo flux %s kustomization %s -n %s",
		verb, shellQuote(name), shellQuote(namespace))
	res := f.run(ctx, cluster, node, command, timeoutSeconds)

	if res.Success {
		out.Success = true
		out.Output = res.Stdout
		switch verb {
		case "reconcile":
			out.Message = "reconciliation triggered successfully"
		case "suspend":
			out.Message = fmt.Sprintf("suspended %s in %s", name, namespace)
		case "resume":
			out.Message = fmt.Sprintf("resumed %s in %s", name, namespace)
		}
		f.logger.Info("flux kustomization updated",
			"verb", verb, "name", name, "namespace", namespace, "cluster", cluster)
		return out
	}

	out.Output = res.Stderr
	out.Steps = res.Steps
	switch verb {
	case "reconcile":
		out.Message = fmt.Sprintf("reconciliation failed: %s", res.Message)
	case "suspend":
		out.Message = fmt.Sprintf("failed to suspend: %s", res.Message)
	case "resume":
		out.Message = fmt.Sprintf("failed to resume: %s", res.Message)
	}
	return out
}

// ListSources lists the GitRepository sources Flux pulls from.
func (f *Flux) ListSources(ctx context.Context, cluster, node string) *SourceList {
	out := &SourceList{Cluster: cluster, Node: node, Sources: []Source{}}

	res := f.run(ctx, cluster, node, gitSourcesCommand, readTimeoutSeconds)
	if !res.Success {
		out.Message = res.Message
		out.Steps = res.Steps
		return out
	}

	var list k8sObjectList
	if err := json.Unmarshal([]byte(res.Stdout), &list); err != nil {
		out.Message = fmt.Sprintf("failed to parse kubectl output: %v", err)
		out.Steps = []string{
			fmt.Sprintf("try manually: tsh ssh --cluster=%s %s@%s 'flux get sources git'", cluster, f.user, node),
		}
		return out
	}

	for _, item := range list.Items {
		ready, message := readyCondition(item.Status.Conditions)
		url := item.Spec.URL
		if url == "" {
			url = "N/A"
		}
		revision := item.Status.Artifact.Revision
		if revision == "" {
			revision = "N/A"
		}
		out.Sources = append(out.Sources, Source{
			Name:      item.Metadata.Name,
			Namespace: item.Metadata.Namespace,
			URL:       url,
			Ref:       item.Spec.Ref,
			Ready:     ready,
			Message:   message,
			Revision:  revision,
		})
	}

	out.Success = true
	out.Count = len(out.Sources)
	out.Message = fmt.Sprintf("found %d gitrepository source(s)", out.Count)
	return out
}

func (f *Flux) run(ctx context.Context, cluster, node, command string, timeoutSeconds int) *teleport.RunResult {
	return f.remote.RunCommand(ctx, teleport.RunRequest{
		Cluster:        cluster,
		Node:           node,
		Command:        command,
		User:           f.user,
		TimeoutSeconds: timeoutSeconds,
	})
}

// k8sObjectList covers the fields we read from kubectl -o json output for
// both Kustomization and GitRepository lists.
type k8sObjectList struct {
	Items []struct {
		Metadata struct {
			Name      string `json:"name"`
			Namespace string `json:"namespace"`
		} `json:"metadata"`
		Spec struct {
			Suspend bool   `json:"suspend"`
			URL     string `json:"url"`
			Ref     GitRef `json:"ref"`
		} `json:"spec"`
		Status struct {
			Conditions          []condition `json:"conditions"`
			LastAppliedRevision string      `json:"lastAppliedRevision"`
			Artifact            struct {
				Revision string `json:"revision"`
			} `json:"artifact"`
		} `json:"status"`
	} `json:"items"`
}

type condition struct {
	Type    string `json:"type"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func readyCondition(conditions []condition) (status, message string) {
	for _, c := range conditions {
		if c.Type == "Ready" {
			s := c.Status
			if s == "" {
				s = "Unknown"
			}
			return s, c.Message
		}
	}
	return "Unknown", ""
}

var plainArg = regexp.MustCompile(`^[A-Za-z0-9_@%+=:,./-]+$`)

// shellQuote makes s safe to embed in the remote shell command line.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if plainArg.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
