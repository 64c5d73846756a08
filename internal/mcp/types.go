package mcp

import (
	"toolgate/internal/domain/proposal"
	"toolgate/internal/domain/roadmap"
)

type ProposeToolDesignParams struct {
	ToolName                  string   `json:"tool_name"`
	Purpose                   string   `json:"purpose"`
	Layer                     string   `json:"layer"`
	Dependencies              []string `json:"dependencies,omitempty"`
	RequiresSystemStateChange bool     `json:"requires_system_state_change,omitempty"`
	ImplementationApproach    string   `json:"implementation_approach,omitempty"`
}

type VerifyTokenParams struct {
	Token string `json:"token"`
}

type CreateMCPToolParams struct {
	ToolName        string `json:"tool_name"`
	Description     string `json:"description,omitempty"`
	ValidationToken string `json:"validation_token"`
}

type AnalyzeCriticalPathParams struct {
	Tasks        []roadmap.Task `json:"tasks"`
	Goal         string         `json:"goal,omitempty"`
	CurrentState []string       `json:"current_state,omitempty"`
}

type MakeRoadmapDecisionParams struct {
	Tasks         []roadmap.Task `json:"tasks"`
	AnalysisToken string         `json:"analysis_token"`
	Rationale     string         `json:"rationale,omitempty"`
}

type CreateSessionNoteParams struct {
	Content     string `json:"content"`
	Section     string `json:"section,omitempty"`
	SessionName string `json:"session_name,omitempty"`
}

type ReadSessionNotesParams struct {
	SessionName string `json:"session_name,omitempty"`
	DaysBack    int    `json:"days_back,omitempty"`
}

type ListSessionFilesParams struct {
	DaysBack int `json:"days_back,omitempty"`
}

type ListTeleportNodesParams struct {
	Cluster string `json:"cluster"`
	Filter  string `json:"filter,omitempty"`
}

type VerifySSHAccessParams struct {
	Cluster string `json:"cluster"`
	Node    string `json:"node"`
	User    string `json:"user,omitempty"`
}

type RunRemoteCommandParams struct {
	Cluster        string `json:"cluster"`
	Node           string `json:"node"`
	Command        string `json:"command"`
	User           string `json:"user,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

type ListFluxKustomizationsParams struct {
	Cluster     string `json:"cluster"`
	Node        string `json:"node"`
	ShowSuspend bool   `json:"show_suspend,omitempty"`
}

// FluxKustomizationParams is shared by reconcile, suspend, and resume.
type FluxKustomizationParams struct {
	Cluster   string `json:"cluster"`
	Node      string `json:"node"`
	Name      string `json:"name"`
	Namespace string `json:"namespace,omitempty"`
}

type ListFluxSourcesParams struct {
	Cluster string `json:"cluster"`
	Node    string `json:"node"`
}

// ProposalListResult is the response of the list_tool_proposals tool.
type ProposalListResult struct {
	Success   bool            `json:"success"`
	Proposals []proposal.Info `json:"proposals"`
	Count     int             `json:"count"`
	Message   string          `json:"message"`
}

// MetaWorkflow is one row of the workflow registry table.
type MetaWorkflow struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Trigger string `json:"trigger"`
	Status  string `json:"status"`
}

// MetaWorkflowList is the outcome of listing registered meta-workflows.
type MetaWorkflowList struct {
	Available bool           `json:"available"`
	Count     int            `json:"count"`
	Workflows []MetaWorkflow `json:"workflows"`
	Message   string         `json:"message"`
	DocURI    string         `json:"doc_uri,omitempty"`
	Steps     []string       `json:"steps,omitempty"`
}
