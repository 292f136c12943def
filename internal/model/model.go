// Package model defines the plan and execution types shared by the planner,
// orchestrator, and job queue.
package model

import (
	"time"

	"github.com/google/uuid"
)

// PlanStatus tracks a plan through its lifecycle.
type PlanStatus string

// Plan statuses.
const (
	PlanPending   PlanStatus = "pending"
	PlanExecuting PlanStatus = "executing"
	PlanCompleted PlanStatus = "completed"
	PlanFailed    PlanStatus = "failed"
)

// Intent is one planned operation: which agent, which operation, with what
// parameters. Intents are immutable once created.
type Intent struct {
	AgentID    string         `json:"agentId"`
	Intent     string         `json:"intent"`
	Params     map[string]any `json:"params"`
	Reasoning  string         `json:"reasoning"`
	Confidence float64        `json:"confidence"`
}

// Plan is an ordered sequence of intents addressing one goal. Steps are
// strictly ordered; only Status is mutated, by the caller driving execution.
type Plan struct {
	ID     string     `json:"id"`
	Goal   string     `json:"goal"`
	Steps  []Intent   `json:"steps"`
	Status PlanStatus `json:"status"`
}

// NewPlan creates a pending plan with a fresh id.
func NewPlan(goal string, steps []Intent) Plan {
	return Plan{
		ID:     uuid.NewString(),
		Goal:   goal,
		Steps:  steps,
		Status: PlanPending,
	}
}

// ExecutionResult is produced exactly once per intent execution.
type ExecutionResult struct {
	Success   bool     `json:"success"`
	Data      any      `json:"data,omitempty"`
	Message   string   `json:"message"`
	Artifacts []string `json:"artifacts,omitempty"`
}

// StepResult pairs an executed intent with its result for the execution log.
type StepResult struct {
	Intent    Intent          `json:"intent"`
	Result    ExecutionResult `json:"result"`
	Timestamp time.Time       `json:"timestamp"`
}
