// Package planner converts natural-language goals into executable plans. The
// oracle planner asks a model; the keyword planner is the deterministic
// fallback that works without one.
package planner

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/slokhande/dataos/internal/model"
	"github.com/slokhande/dataos/internal/registry"
)

// Planner produces an execution plan for a goal.
type Planner interface {
	PlanRequest(ctx context.Context, goal string) (model.Plan, error)
}

// Keyword is the deterministic heuristic planner. It never returns an error:
// a goal with no keyword match yields a zero-step plan already marked failed.
type Keyword struct{}

// Metric keywords recognized by the heuristic planner.
var keywordMetrics = []struct {
	keywords []string
	metricID string
}{
	{[]string{"revenue"}, "total_revenue"},
	{[]string{"satisfaction"}, "avg_satisfaction"},
	{[]string{"volume", "units"}, "sales_volume"},
}

// PlanRequest matches the goal against the keyword table.
func (Keyword) PlanRequest(_ context.Context, goal string) (model.Plan, error) {
	lower := strings.ToLower(goal)

	for _, entry := range keywordMetrics {
		for _, kw := range entry.keywords {
			if !strings.Contains(lower, kw) {
				continue
			}
			plan := model.NewPlan("Heuristic Execution Plan", []model.Intent{{
				AgentID:    registry.AgentAnalyst,
				Intent:     registry.IntentCalculateMetric,
				Params:     map[string]any{"metricId": entry.metricID},
				Reasoning:  "Keyword match: " + kw,
				Confidence: 0.7,
			}})
			return plan, nil
		}
	}

	plan := model.NewPlan("Fallback Execution: No matching keywords found", nil)
	plan.Status = model.PlanFailed
	return plan, nil
}

// Fallback tries the primary planner and falls back on any error.
type Fallback struct {
	Primary  Planner
	Fallback Planner
}

// PlanRequest delegates to the primary planner, degrading to the fallback.
func (f Fallback) PlanRequest(ctx context.Context, goal string) (model.Plan, error) {
	plan, err := f.Primary.PlanRequest(ctx, goal)
	if err == nil {
		return plan, nil
	}
	log.Warn().Err(err).Msg("planner: primary failed, using fallback")
	return f.Fallback.PlanRequest(ctx, goal)
}

// ParseIntent classifies a single chat message into one directly executable
// intent, without going through a planner.
func ParseIntent(message string) model.Intent {
	msg := strings.ToLower(message)

	if strings.HasPrefix(msg, "/sql") || strings.Contains(msg, "select ") || strings.Contains(msg, "create table") {
		query := strings.TrimSpace(strings.TrimPrefix(message, "/sql"))
		return model.Intent{
			AgentID:    registry.AgentDataEngineer,
			Intent:     registry.IntentRunSQL,
			Confidence: 0.9,
			Reasoning:  "Detected SQL keywords",
			Params:     map[string]any{"query": query},
		}
	}

	if strings.Contains(msg, "ingest") || strings.Contains(msg, "load file") {
		parts := strings.Fields(message)
		path := ""
		for _, p := range parts {
			if strings.Contains(p, "/") || strings.Contains(p, ".csv") {
				path = p
				break
			}
		}
		tableName := ""
		if len(parts) > 0 {
			tableName = parts[len(parts)-1]
		}
		return model.Intent{
			AgentID:    registry.AgentDataEngineer,
			Intent:     registry.IntentIngestFile,
			Confidence: 0.8,
			Reasoning:  "Detected ingestion intent",
			Params:     map[string]any{"path": path, "tableName": tableName},
		}
	}

	if strings.Contains(msg, "schema") || strings.Contains(msg, "structure") || strings.Contains(msg, "columns") {
		for _, p := range strings.Fields(message) {
			if strings.Contains(p, ".csv") {
				return model.Intent{
					AgentID:    registry.AgentSchema,
					Intent:     registry.IntentDetectSchema,
					Confidence: 0.9,
					Reasoning:  "Detected schema request for file",
					Params:     map[string]any{"path": p},
				}
			}
		}
		table := "main"
		for _, p := range strings.Fields(message) {
			if !strings.Contains(strings.ToLower(p), "schema") {
				table = p
				break
			}
		}
		return model.Intent{
			AgentID:    registry.AgentDataEngineer,
			Intent:     registry.IntentGetSchema,
			Confidence: 0.8,
			Reasoning:  "Detected schema request for table",
			Params:     map[string]any{"table": table},
		}
	}

	if strings.Contains(msg, "trend") || strings.Contains(msg, "analyze") || strings.Contains(msg, "chart") {
		metricID := "data"
		stop := map[string]bool{"analyze": true, "trend": true, "show": true, "me": true, "the": true}
		for _, w := range strings.Fields(msg) {
			if !stop[w] {
				metricID = w
				break
			}
		}
		return model.Intent{
			AgentID:    registry.AgentAnalyst,
			Intent:     registry.IntentAnalyzeTrend,
			Confidence: 0.85,
			Reasoning:  "Detected analysis request",
			Params:     map[string]any{"metricId": metricID},
		}
	}

	return model.Intent{
		AgentID:    registry.AgentAnalyst,
		Intent:     registry.IntentCalculateMetric,
		Confidence: 0.5,
		Reasoning:  "Defaulting to metric lookup",
		Params:     map[string]any{"metricId": strings.TrimSpace(message)},
	}
}
