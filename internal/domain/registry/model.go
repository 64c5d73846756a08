package registry

import "time"

// Manifest records a tool registration that passed the validation gate. The
// stored token prefix is audit metadata, not a credential.
type Manifest struct {
	ToolName    string    `json:"tool_name"`
	Layer       string    `json:"layer"`
	Description string    `json:"description"`
	ProposalID  string    `json:"proposal_id"`
	TokenPrefix string    `json:"validation_token"`
	CreatedAt   time.Time `json:"created_at"`
}

// RegisterRequest asks to register a tool under a validation token.
type RegisterRequest struct {
	ToolName    string
	Description string
	Token       string
}

// RegisterResult reports the outcome of a registration attempt. Gate
// rejections are normal results, not errors.
type RegisterResult struct {
	Success            bool      `json:"success"`
	ToolName           string    `json:"tool_name"`
	ValidationVerified bool      `json:"validation_verified"`
	Manifest           *Manifest `json:"manifest,omitempty"`
	NextSteps          []string  `json:"next_steps,omitempty"`
	Message            string    `json:"message"`
}
