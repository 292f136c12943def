// Package runtime is the agent orchestrator: it resolves intents against the
// capability registry, dispatches them to typed handlers, normalizes every
// failure into an ExecutionResult, and reacts to system events.
package runtime

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/slokhande/dataos/internal/engine"
	"github.com/slokhande/dataos/internal/events"
	"github.com/slokhande/dataos/internal/metrics"
	"github.com/slokhande/dataos/internal/model"
	"github.com/slokhande/dataos/internal/registry"
	"github.com/slokhande/dataos/internal/router"
	"github.com/slokhande/dataos/internal/vfs"
)

type handlerFunc func(ctx context.Context, intent model.Intent) (any, error)

// Runtime executes intents against the built-in agents.
type Runtime struct {
	registry *registry.Registry
	router   *router.Router
	engine   engine.Engine
	files    *vfs.Store
	metrics  *metrics.Service
	bus      *events.Bus

	handlers map[string]map[string]handlerFunc

	mu  sync.Mutex
	log []model.StepResult
}

// New wires a runtime and subscribes its event reactions.
func New(reg *registry.Registry, r *router.Router, eng engine.Engine, files *vfs.Store, m *metrics.Service, bus *events.Bus) *Runtime {
	rt := &Runtime{
		registry: reg,
		router:   r,
		engine:   eng,
		files:    files,
		metrics:  m,
		bus:      bus,
	}
	rt.handlers = map[string]map[string]handlerFunc{
		registry.AgentDataEngineer: {
			registry.IntentRunSQL:     rt.runSQL,
			registry.IntentGetSchema:  rt.getSchema,
			registry.IntentIngestFile: rt.ingestFile,
			registry.IntentCleanData:  rt.cleanData,
		},
		registry.AgentSchema: {
			registry.IntentDetectSchema: rt.detectSchema,
		},
		registry.AgentAnalyst: {
			registry.IntentCalculateMetric: rt.calculateMetric,
			registry.IntentAnalyzeTrend:    rt.analyzeTrend,
		},
	}
	rt.subscribeReactions()
	return rt
}

// ExecuteIntent runs one intent. It never returns an error: every failure is
// normalized into ExecutionResult{Success: false}.
func (rt *Runtime) ExecuteIntent(ctx context.Context, intent model.Intent) model.ExecutionResult {
	log.Debug().Str("agent", intent.AgentID).Str("intent", intent.Intent).Msg("runtime: dispatching")

	result := rt.execute(ctx, intent)

	rt.mu.Lock()
	rt.log = append(rt.log, model.StepResult{Intent: intent, Result: result, Timestamp: time.Now().UTC()})
	rt.mu.Unlock()

	return result
}

func (rt *Runtime) execute(ctx context.Context, intent model.Intent) (result model.ExecutionResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Any("panic", r).Str("intent", intent.Intent).Msg("runtime: handler panicked")
			result = model.ExecutionResult{Success: false, Message: fmt.Sprintf("agent %s crashed: %v", intent.AgentID, r)}
		}
	}()

	profile, err := rt.registry.Get(intent.AgentID)
	if err != nil {
		return model.ExecutionResult{Success: false, Message: fmt.Sprintf("unknown agent: %s", intent.AgentID)}
	}

	capability, ok := profile.Capability(intent.Intent)
	if !ok {
		return model.ExecutionResult{Success: false, Message: fmt.Sprintf("unknown intent %s for %s", intent.Intent, profile.Name)}
	}
	if err := validateParams(capability, intent.Params); err != nil {
		return model.ExecutionResult{Success: false, Message: err.Error()}
	}

	handler := rt.handlers[intent.AgentID][intent.Intent]
	if handler == nil {
		return model.ExecutionResult{Success: false, Message: fmt.Sprintf("no handler implemented for agent: %s", intent.AgentID)}
	}

	data, err := handler(ctx, intent)
	if err != nil {
		err = recoverTableError(intent, err)
		return model.ExecutionResult{Success: false, Message: err.Error()}
	}

	return model.ExecutionResult{
		Success: true,
		Data:    data,
		Message: fmt.Sprintf("Successfully executed %s", intent.Intent),
	}
}

// ExecutePlan drives a plan strictly sequentially, halting at the first
// failed step. Later steps are never attempted.
func (rt *Runtime) ExecutePlan(ctx context.Context, plan *model.Plan) []model.StepResult {
	plan.Status = model.PlanExecuting

	results := make([]model.StepResult, 0, len(plan.Steps))
	for _, step := range plan.Steps {
		result := rt.ExecuteIntent(ctx, step)
		results = append(results, model.StepResult{Intent: step, Result: result, Timestamp: time.Now().UTC()})
		if !result.Success {
			plan.Status = model.PlanFailed
			return results
		}
	}

	plan.Status = model.PlanCompleted
	return results
}

// Log returns a snapshot of the execution log.
func (rt *Runtime) Log() []model.StepResult {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	out := make([]model.StepResult, len(rt.log))
	copy(out, rt.log)
	return out
}

// validateParams rejects intents missing required capability parameters
// before dispatch.
func validateParams(capability registry.Capability, params map[string]any) error {
	for _, p := range capability.Parameters {
		if !p.Required {
			continue
		}
		value, ok := params[p.Name]
		if !ok || value == nil {
			return fmt.Errorf("missing required parameter %q for %s", p.Name, capability.Intent)
		}
		if s, isString := value.(string); isString && strings.TrimSpace(s) == "" {
			return fmt.Errorf("missing required parameter %q for %s", p.Name, capability.Intent)
		}
	}
	return nil
}

func (rt *Runtime) subscribeReactions() {
	rt.bus.Subscribe(events.FileCreated, func(payload any) {
		file, ok := payload.(events.FilePayload)
		if !ok {
			return
		}
		if !strings.HasSuffix(file.Path, ".csv") && !strings.HasSuffix(file.Path, ".tsv") {
			return
		}

		log.Info().Str("path", file.Path).Msg("runtime: new tabular file, dispatching schema detection")

		result := rt.ExecuteIntent(context.Background(), model.Intent{
			AgentID:    registry.AgentSchema,
			Intent:     registry.IntentDetectSchema,
			Confidence: 1.0,
			Reasoning:  "Triggered by FILE_CREATED event",
			Params:     map[string]any{"path": file.Path},
		})
		if !result.Success {
			return
		}

		report, ok := result.Data.(SchemaReport)
		if !ok {
			return
		}
		rt.bus.Publish(events.AgentMessage, events.AgentMessagePayload{
			AgentID: registry.AgentSchema,
			Message: fmt.Sprintf("I've analyzed %s. Found columns: %s", file.Path, strings.Join(report.Columns, ", ")),
		}, "Kernel")
	})

	rt.bus.Subscribe(events.JobFailed, func(payload any) {
		job, ok := payload.(events.JobPayload)
		if !ok {
			return
		}
		// Reserved for a cleanup agent; for now the failure is only logged.
		log.Warn().Int64("job", job.ID).Str("error", job.Error).Msg("runtime: job failed")
	})
}
