// Package roadmap orders task dependency graphs with the critical path
// method and gates roadmap decisions behind a prior analysis. The gate is
// deliberately structural: Decide checks the token prefix and recomputes the
// analysis from the submitted tasks rather than resolving the token to a
// stored result, so a well-shaped token from an unrelated analysis passes.
package roadmap

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"
)

// Service performs critical-path analysis and decision gating. Both
// operations are pure computations over their input.
type Service struct {
	logger *slog.Logger
	now    func() time.Time
}

// Option adjusts service construction.
type Option func(*Service)

// WithClock substitutes the token timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a roadmap service.
func NewService(logger *slog.Logger, opts ...Option) *Service {
	s := &Service{logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// visit states for the cycle-guarded graph passes.
const (
	unvisited = iota
	visiting
	visited
)

// Analyze runs the critical path method over the task set: forward pass for
// earliest starts, backward pass from the goal for latest starts, zero-slack
// extraction, leveled work order, and immediately actionable tasks. Graph
// defects (unknown references, duplicate ids, cycles) come back as failed
// results naming the offender.
func (s *Service) Analyze(req AnalyzeRequest) *Analysis {
	tasks := req.Tasks
	if len(tasks) == 0 {
		return &Analysis{Success: false, Message: "no tasks provided"}
	}

	taskMap := make(map[string]*Task, len(tasks))
	order := make([]string, 0, len(tasks))
	for i := range tasks {
		t := &tasks[i]
		if _, dup := taskMap[t.ID]; dup {
			return &Analysis{Success: false, Message: fmt.Sprintf("duplicate task id %q", t.ID)}
		}
		taskMap[t.ID] = t
		order = append(order, t.ID)
	}

	for _, t := range tasks {
		for _, dep := range t.DependsOn {
			if _, ok := taskMap[dep]; !ok {
				return &Analysis{
					Success: false,
					Message: fmt.Sprintf("task %q depends on unknown task %q", t.ID, dep),
				}
			}
		}
	}

	completed := make(map[string]bool)
	for _, id := range req.CurrentState {
		completed[id] = true
	}
	for _, t := range tasks {
		if t.Completed {
			completed[t.ID] = true
		}
	}

	dependents := make(map[string][]string, len(tasks))
	for _, t := range tasks {
		for _, dep := range t.DependsOn {
			dependents[dep] = append(dependents[dep], t.ID)
		}
	}

	earliest, cycleTask := forwardPass(order, taskMap)
	if cycleTask != "" {
		return &Analysis{
			Success: false,
			Message: fmt.Sprintf("dependency cycle detected involving task %q", cycleTask),
		}
	}

	goalSet := make(map[string]bool)
	if req.Goal != "" {
		if _, ok := taskMap[req.Goal]; ok {
			goalSet[req.Goal] = true
		}
	} else {
		for _, id := range order {
			if len(dependents[id]) == 0 {
				goalSet[id] = true
			}
		}
	}
	if len(goalSet) == 0 {
		return &Analysis{Success: false, Message: "no goal tasks found (no tasks without dependents)"}
	}

	latest := backwardPass(order, taskMap, dependents, earliest, goalSet)

	// Zero slack marks the critical path; tasks that don't feed a goal carry
	// unbounded slack and never qualify.
	critical := make([]string, 0, len(order))
	for _, id := range order {
		if earliest[id] == latest[id] {
			critical = append(critical, id)
		}
	}
	sort.SliceStable(critical, func(i, j int) bool {
		return earliest[critical[i]] < earliest[critical[j]]
	})

	var criticalDuration float64
	for _, id := range critical {
		criticalDuration += taskMap[id].EffectiveDuration()
	}

	immediate := []string{}
	for _, id := range order {
		if completed[id] {
			continue
		}
		ready := true
		for _, dep := range taskMap[id].DependsOn {
			if !completed[dep] {
				ready = false
				break
			}
		}
		if ready {
			immediate = append(immediate, id)
		}
	}

	workOrder, parallel := levelWorkOrder(order, taskMap, completed)

	inState := make(map[string]bool, len(req.CurrentState))
	for _, id := range req.CurrentState {
		inState[id] = true
	}
	blockers := make(map[string][]string)
	for _, id := range order {
		if inState[id] {
			continue
		}
		var waiting []string
		for _, dep := range taskMap[id].DependsOn {
			if !inState[dep] {
				waiting = append(waiting, dep)
			}
		}
		if len(waiting) > 0 {
			blockers[id] = waiting
		}
	}

	var estimated float64
	for _, lvl := range workOrder {
		estimated += lvl.Duration
	}

	token := AnalysisToken(critical, s.now())
	s.logger.Debug("critical path analysis complete",
		"tasks", len(tasks), "critical", len(critical), "levels", len(workOrder))

	return &Analysis{
		Success:               true,
		CriticalPath:          critical,
		CriticalPathDuration:  criticalDuration,
		WorkOrder:             workOrder,
		ParallelOpportunities: parallel,
		ImmediateTasks:        immediate,
		Blockers:              blockers,
		Summary: &Summary{
			TotalTasks:          len(tasks),
			CompletedTasks:      len(req.CurrentState),
			RemainingTasks:      len(tasks) - len(req.CurrentState),
			EstimatedCompletion: estimated,
		},
		Token:   token,
		Message: fmt.Sprintf("critical path analysis complete: %s", strings.Join(critical, " -> ")),
	}
}

// forwardPass computes earliest starts with memoized recursion. Tri-state
// marking turns a cycle into a named failure instead of unbounded recursion.
func forwardPass(order []string, taskMap map[string]*Task) (map[string]float64, string) {
	earliest := make(map[string]float64, len(order))
	state := make(map[string]int, len(order))
	cycleTask := ""

	var calc func(id string) bool
	calc = func(id string) bool {
		switch state[id] {
		case visited:
			return true
		case visiting:
			cycleTask = id
			return false
		}
		state[id] = visiting

		var start float64
		for _, dep := range taskMap[id].DependsOn {
			if !calc(dep) {
				return false
			}
			if finish := earliest[dep] + taskMap[dep].EffectiveDuration(); finish > start {
				start = finish
			}
		}
		earliest[id] = start
		state[id] = visited
		return true
	}

	for _, id := range order {
		if !calc(id) {
			return nil, cycleTask
		}
	}
	return earliest, ""
}

// backwardPass computes latest starts from the goal inward. Goal tasks anchor
// at their earliest start; every other task takes the minimum of its
// dependents' latest starts minus its own duration, so branches that never
// reach a goal stay at +Inf.
func backwardPass(order []string, taskMap map[string]*Task, dependents map[string][]string,
	earliest map[string]float64, goalSet map[string]bool) map[string]float64 {

	latest := make(map[string]float64, len(order))
	state := make(map[string]int, len(order))

	var calc func(id string)
	calc = func(id string) {
		switch state[id] {
		case visited, visiting:
			return
		}
		state[id] = visiting

		if goalSet[id] {
			latest[id] = earliest[id]
			state[id] = visited
			return
		}

		lo := math.Inf(1)
		for _, dep := range dependents[id] {
			calc(dep)
			if latest[dep] < lo {
				lo = latest[dep]
			}
		}
		latest[id] = lo - taskMap[id].EffectiveDuration()
		state[id] = visited
	}

	for _, id := range order {
		calc(id)
	}
	return latest
}

// levelWorkOrder peels ready tasks into levels. A pass that peels nothing
// while tasks remain means a cycle among the leftovers; the loop stops
// instead of spinning. Mutates completed with placed tasks.
func levelWorkOrder(order []string, taskMap map[string]*Task, completed map[string]bool) ([]WorkLevel, [][]string) {
	remaining := make(map[string]bool)
	for _, id := range order {
		if !completed[id] {
			remaining[id] = true
		}
	}

	workOrder := []WorkLevel{}
	parallel := [][]string{}
	level := 0

	for len(remaining) > 0 {
		var levelTasks []string
		for _, id := range order {
			if !remaining[id] {
				continue
			}
			ready := true
			for _, dep := range taskMap[id].DependsOn {
				if !completed[dep] && remaining[dep] {
					ready = false
					break
				}
			}
			if ready {
				levelTasks = append(levelTasks, id)
			}
		}
		if len(levelTasks) == 0 {
			break
		}

		var maxDuration float64
		for _, id := range levelTasks {
			if d := taskMap[id].EffectiveDuration(); d > maxDuration {
				maxDuration = d
			}
		}

		workOrder = append(workOrder, WorkLevel{
			Level:          level,
			Tasks:          levelTasks,
			CanParallelize: len(levelTasks) > 1,
			Duration:       maxDuration,
		})
		if len(levelTasks) > 1 {
			parallel = append(parallel, levelTasks)
		}

		for _, id := range levelTasks {
			delete(remaining, id)
			completed[id] = true
		}
		level++
	}

	return workOrder, parallel
}

// Decide enforces analyze-before-decide. The token check is shape-only; the
// analysis itself is recomputed from the submitted tasks.
func (s *Service) Decide(req DecideRequest) *Decision {
	if !strings.HasPrefix(req.AnalysisToken, AnalysisTokenPrefix) {
		return &Decision{
			Success:  false,
			Message:  "invalid analysis token; run analyze_critical_path first",
			Guidance: "Call analyze_critical_path with the task list to obtain a token",
		}
	}

	analysis := s.Analyze(AnalyzeRequest{Tasks: req.Tasks})
	if !analysis.Success {
		return &Decision{Success: false, Message: fmt.Sprintf("analysis failed: %s", analysis.Message)}
	}

	if len(analysis.ImmediateTasks) == 0 {
		return &Decision{
			Success:        true,
			CriticalPath:   analysis.CriticalPath,
			ImmediateTasks: []string{},
			Rationale:      req.Rationale,
			Message:        "no immediate tasks available (all done or blocked)",
		}
	}

	immediate := make(map[string]bool, len(analysis.ImmediateTasks))
	for _, id := range analysis.ImmediateTasks {
		immediate[id] = true
	}

	var chosen, reason string
	for _, id := range analysis.CriticalPath {
		if immediate[id] {
			chosen = id
			reason = "on critical path with no blockers"
			break
		}
	}
	if chosen == "" {
		chosen = analysis.ImmediateTasks[0]
		reason = "ready to start; off the critical path, can run in parallel"
	}

	name := chosen
	for _, t := range req.Tasks {
		if t.ID == chosen && t.Name != "" {
			name = t.Name
			break
		}
	}

	s.logger.Info("roadmap decision", "task", chosen, "reason", reason)

	return &Decision{
		Success:        true,
		TaskID:         chosen,
		TaskName:       name,
		Reason:         reason,
		CriticalPath:   analysis.CriticalPath,
		ImmediateTasks: analysis.ImmediateTasks,
		Rationale:      req.Rationale,
		NextAction:     "Begin: " + name,
		Message:        fmt.Sprintf("start with %q (%s)", chosen, reason),
	}
}
