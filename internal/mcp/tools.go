package mcp

// buildToolCatalog returns all available MCP tools. Flux tools are listed
// only when the flux capability pack is enabled.
func buildToolCatalog(includeFlux bool) []ToolDefinition {
	taskItemSchema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id": map[string]any{
				"type":        "string",
				"description": "Unique task identifier",
			},
			"name": map[string]any{
				"type":        "string",
				"description": "Human-readable task name",
			},
			"duration": map[string]any{
				"type":        "number",
				"description": "Estimated duration (defaults to 1 unit)",
			},
			"depends_on": map[string]any{
				"type":        "array",
				"description": "IDs of tasks that must finish first",
				"items":       map[string]any{"type": "string"},
			},
			"completed": map[string]any{
				"type":        "boolean",
				"description": "Whether the task is already done",
			},
		},
		"required": []string{"id"},
	}

	tools := []ToolDefinition{
		// Design validation
		{
			Name:        "propose_tool_design",
			Description: "Validate a tool design against the design checklist before implementation",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"tool_name": map[string]any{
						"type":        "string",
						"description": "Proposed tool name (snake_case, verb-first)",
					},
					"purpose": map[string]any{
						"type":        "string",
						"description": "One sentence describing what the tool does",
					},
					"layer": map[string]any{
						"type":        "string",
						"description": "Architecture layer the tool belongs to",
						"enum":        []string{"platform", "team", "personal"},
					},
					"dependencies": map[string]any{
						"type":        "array",
						"description": "Interfaces or capabilities the tool depends on",
						"items":       map[string]any{"type": "string"},
					},
					"requires_system_state_change": map[string]any{
						"type":        "boolean",
						"description": "Whether the tool mutates state outside its own process",
					},
					"implementation_approach": map[string]any{
						"type":        "string",
						"description": "Short sketch of how the tool will be implemented",
					},
				},
				"required": []string{"tool_name", "purpose", "layer"},
			},
		},
		{
			Name:        "verify_tool_design_token",
			Description: "Check a validation token against its stored proposal",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"token": map[string]any{
						"type":        "string",
						"description": "Validation token from propose_tool_design",
					},
				},
				"required": []string{"token"},
			},
		},
		{
			Name:        "list_tool_proposals",
			Description: "List validated tool proposals awaiting implementation",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
		{
			Name:        "create_mcp_tool",
			Description: "Register a new MCP tool; requires a validation token from propose_tool_design",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"tool_name": map[string]any{
						"type":        "string",
						"description": "Tool name, must match the validated proposal",
					},
					"description": map[string]any{
						"type":        "string",
						"description": "Short description recorded in the tool manifest",
					},
					"validation_token": map[string]any{
						"type":        "string",
						"description": "Token proving the design passed validation",
					},
				},
				"required": []string{"tool_name", "validation_token"},
			},
		},

		// Roadmap
		{
			Name:        "analyze_critical_path",
			Description: "Compute the critical path, work order, and parallel opportunities for a task graph",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"tasks": map[string]any{
						"type":        "array",
						"description": "Task graph to analyze",
						"items":       taskItemSchema,
					},
					"goal": map[string]any{
						"type":        "string",
						"description": "What the roadmap is working toward",
					},
					"current_state": map[string]any{
						"type":        "array",
						"description": "IDs of tasks already completed",
						"items":       map[string]any{"type": "string"},
					},
				},
				"required": []string{"tasks"},
			},
		},
		{
			Name:        "make_roadmap_decision",
			Description: "Pick the next task to start; requires an analysis token from analyze_critical_path",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"tasks": map[string]any{
						"type":        "array",
						"description": "Task graph the decision is about",
						"items":       taskItemSchema,
					},
					"analysis_token": map[string]any{
						"type":        "string",
						"description": "Token from a prior analyze_critical_path call over the same tasks",
					},
					"rationale": map[string]any{
						"type":        "string",
						"description": "Why this decision is being made now",
					},
				},
				"required": []string{"tasks", "analysis_token"},
			},
		},

		// Session notes
		{
			Name:        "create_session_note",
			Description: "Append a timestamped note to the current session file",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"content": map[string]any{
						"type":        "string",
						"description": "Note content (markdown)",
					},
					"section": map[string]any{
						"type":        "string",
						"description": "Section heading to file the note under",
						"enum":        []string{"Goals", "Progress", "Decisions", "Issues", "Next Steps"},
					},
					"session_name": map[string]any{
						"type":        "string",
						"description": "Session name (defaults to today's date)",
					},
				},
				"required": []string{"content"},
			},
		},
		{
			Name:        "read_session_notes",
			Description: "Read notes for a session, or the most recent session in a window",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"session_name": map[string]any{
						"type":        "string",
						"description": "Session name (omit to pick the most recent)",
					},
					"days_back": map[string]any{
						"type":        "integer",
						"description": "How many days back to search (default 7)",
					},
				},
			},
		},
		{
			Name:        "list_session_files",
			Description: "List session files in a recency window",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"days_back": map[string]any{
						"type":        "integer",
						"description": "How many days back to list (default 7)",
					},
				},
			},
		},

		// Meta-workflows
		{
			Name:        "list_meta_workflows",
			Description: "List documented meta-workflows and their trigger phrases",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},

		// Teleport
		{
			Name:        "check_tsh_installed",
			Description: "Check whether the Teleport tsh client is installed",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
		{
			Name:        "list_teleport_nodes",
			Description: "List nodes visible in a Teleport cluster, optionally filtered by hostname",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"cluster": map[string]any{
						"type":        "string",
						"description": "Teleport cluster name",
					},
					"filter": map[string]any{
						"type":        "string",
						"description": "Case-insensitive hostname substring filter",
					},
				},
				"required": []string{"cluster"},
			},
		},
		{
			Name:        "verify_ssh_access",
			Description: "Probe SSH access to a node as a given user",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"cluster": map[string]any{
						"type":        "string",
						"description": "Teleport cluster name",
					},
					"node": map[string]any{
						"type":        "string",
						"description": "Node hostname",
					},
					"user": map[string]any{
						"type":        "string",
						"description": "SSH user (default root)",
					},
				},
				"required": []string{"cluster", "node"},
			},
		},
		{
			Name:        "run_remote_command",
			Description: "Run a command on a node over Teleport SSH and capture its output",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"cluster": map[string]any{
						"type":        "string",
						"description": "Teleport cluster name",
					},
					"node": map[string]any{
						"type":        "string",
						"description": "Node hostname",
					},
					"command": map[string]any{
						"type":        "string",
						"description": "Command to execute",
					},
					"user": map[string]any{
						"type":        "string",
						"description": "SSH user (default root)",
					},
					"timeout_seconds": map[string]any{
						"type":        "integer",
						"description": "Command timeout in seconds (default 30)",
					},
				},
				"required": []string{"cluster", "node", "command"},
			},
		},
	}

	if includeFlux {
		tools = append(tools, fluxToolCatalog()...)
	}
	return tools
}

func fluxToolCatalog() []ToolDefinition {
	fluxTarget := func(extra map[string]any, required []string) map[string]any {
		properties := map[string]any{
			"cluster": map[string]any{
				"type":        "string",
				"description": "Teleport cluster name",
			},
			"node": map[string]any{
				"type":        "string",
				"description": "Node with kubectl and flux access",
			},
		}
		for k, v := range extra {
			properties[k] = v
		}
		return map[string]any{
			"type":       "object",
			"properties": properties,
			"required":   required,
		}
	}

	nameProps := map[string]any{
		"name": map[string]any{
			"type":        "string",
			"description": "Kustomization name",
		},
		"namespace": map[string]any{
			"type":        "string",
			"description": "Kustomization namespace (default flux-system)",
		},
	}

	return []ToolDefinition{
		{
			Name:        "list_flux_kustomizations",
			Description: "List Flux kustomizations on a cluster with readiness state",
			InputSchema: fluxTarget(map[string]any{
				"show_suspend": map[string]any{
					"type":        "boolean",
					"description": "Include the suspended flag for each kustomization",
				},
			}, []string{"cluster", "node"}),
		},
		{
			Name:        "suspend_flux_kustomization",
			Description: "Suspend reconciliation of a Flux kustomization",
			InputSchema: fluxTarget(nameProps, []string{"cluster", "node", "name"}),
		},
		{
			Name:        "resume_flux_kustomization",
			Description: "Resume reconciliation of a suspended Flux kustomization",
			InputSchema: fluxTarget(nameProps, []string{"cluster", "node", "name"}),
		},
		{
			Name:        "reconcile_flux_kustomization",
			Description: "Trigger immediate reconciliation of a Flux kustomization",
			InputSchema: fluxTarget(nameProps, []string{"cluster", "node", "name"}),
		},
		{
			Name:        "list_flux_sources",
			Description: "List Flux GitRepository sources with their refs and revisions",
			InputSchema: fluxTarget(nil, []string{"cluster", "node"}),
		},
	}
}
