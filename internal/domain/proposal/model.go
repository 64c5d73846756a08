package proposal

import "toolgate/internal/domain/checklist"

// Layer classifies where a tool belongs in the stack.
type Layer string

const (
	LayerPlatform Layer = "platform"
	LayerTeam     Layer = "team"
	LayerPersonal Layer = "personal"
)

// Valid reports whether the layer is one of the recognized values.
func (l Layer) Valid() bool {
	switch l {
	case LayerPlatform, LayerTeam, LayerPersonal:
		return true
	}
	return false
}

// Input describes a proposed tool design. Layer stays a raw string here
// because an unrecognized layer is a blocking checklist issue, not a request
// error.
type Input struct {
	ToolName                  string   `json:"tool_name"`
	Purpose                   string   `json:"purpose"`
	Layer                     string   `json:"layer"`
	Dependencies              []string `json:"dependencies"`
	RequiresSystemStateChange bool     `json:"requires_system_state_change"`
	ImplementationApproach    string   `json:"implementation_approach"`
}

// ValidationResult is the outcome of validating one proposal. Token and
// ProposalPath are only set when Valid.
type ValidationResult struct {
	Valid            bool                             `json:"valid"`
	ProposalID       string                           `json:"proposal_id"`
	ToolName         string                           `json:"tool_name"`
	Issues           []string                         `json:"issues"`
	Warnings         []string                         `json:"warnings"`
	ChecklistResults map[string]checklist.CheckResult `json:"checklist_results"`
	Timestamp        string                           `json:"timestamp"`
	Token            string                           `json:"token,omitempty"`
	ProposalPath     string                           `json:"proposal_path,omitempty"`
}

// Record is the persisted form of a validated proposal: the submitted fields
// plus the embedded validation result. Records are append-only audit trail
// and never deleted.
type Record struct {
	ToolName                  string           `json:"tool_name"`
	Purpose                   string           `json:"purpose"`
	Layer                     string           `json:"layer"`
	Dependencies              []string         `json:"dependencies"`
	RequiresSystemStateChange bool             `json:"requires_system_state_change"`
	ImplementationApproach    string           `json:"implementation_approach"`
	ValidationResults         ValidationResult `json:"validation_results"`
}

// Info is a lightweight listing entry for a stored proposal.
type Info struct {
	ProposalID string `json:"proposal_id"`
	ToolName   string `json:"tool_name"`
	Layer      string `json:"layer"`
	Timestamp  string `json:"timestamp"`
	Location   string `json:"location"`
}

// Verification is the outcome of checking a token against the stored record
// it claims to prove.
type Verification struct {
	Valid      bool    `json:"valid"`
	ProposalID string  `json:"proposal_id,omitempty"`
	Record     *Record `json:"proposal_data,omitempty"`
	Message    string  `json:"message"`
}
