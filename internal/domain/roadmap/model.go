package roadmap

// Task is one node in a request-scoped dependency graph. Duration is an
// estimate in caller-defined units; nil means the default of 1.
type Task struct {
	ID        string   `json:"id"`
	Name      string   `json:"name,omitempty"`
	Duration  *float64 `json:"duration,omitempty"`
	DependsOn []string `json:"depends_on,omitempty"`
	Completed bool     `json:"completed,omitempty"`
}

// EffectiveDuration returns the task duration, defaulting to 1 when unset.
func (t Task) EffectiveDuration() float64 {
	if t.Duration == nil {
		return 1
	}
	return *t.Duration
}

// AnalyzeRequest carries one analysis call's input.
type AnalyzeRequest struct {
	Tasks        []Task
	Goal         string
	CurrentState []string
}

// WorkLevel is one rung of the leveled work order. Every task in a level has
// all dependencies satisfied by earlier levels, so a level with more than one
// task is parallelizable.
type WorkLevel struct {
	Level          int      `json:"level"`
	Tasks          []string `json:"tasks"`
	CanParallelize bool     `json:"can_parallelize"`
	Duration       float64  `json:"duration"`
}

// Summary aggregates progress figures over the raw request.
type Summary struct {
	TotalTasks          int     `json:"total_tasks"`
	CompletedTasks      int     `json:"completed_tasks"`
	RemainingTasks      int     `json:"remaining_tasks"`
	EstimatedCompletion float64 `json:"estimated_completion"`
}

// Analysis is the outcome of one critical-path computation. Failures carry
// Success=false and a message; they are results, never panics.
type Analysis struct {
	Success               bool                `json:"success"`
	CriticalPath          []string            `json:"critical_path,omitempty"`
	CriticalPathDuration  float64             `json:"critical_path_duration"`
	WorkOrder             []WorkLevel         `json:"work_order,omitempty"`
	ParallelOpportunities [][]string          `json:"parallel_opportunities,omitempty"`
	ImmediateTasks        []string            `json:"immediate_tasks,omitempty"`
	Blockers              map[string][]string `json:"blockers,omitempty"`
	Summary               *Summary            `json:"analysis,omitempty"`
	Token                 string              `json:"analysis_token,omitempty"`
	Message               string              `json:"message"`
}

// DecideRequest carries one decision call's input. The token must come from
// a prior Analyze call.
type DecideRequest struct {
	Tasks         []Task
	AnalysisToken string
	Rationale     string
}

// Decision recommends the next task to start. An empty TaskID with
// Success=true is the terminal "all done or blocked" outcome.
type Decision struct {
	Success        bool     `json:"success"`
	TaskID         string   `json:"decision,omitempty"`
	TaskName       string   `json:"decision_name,omitempty"`
	Reason         string   `json:"reason,omitempty"`
	CriticalPath   []string `json:"critical_path,omitempty"`
	ImmediateTasks []string `json:"immediate_tasks"`
	Rationale      string   `json:"rationale,omitempty"`
	NextAction     string   `json:"next_action,omitempty"`
	Guidance       string   `json:"guidance,omitempty"`
	Message        string   `json:"message"`
}
