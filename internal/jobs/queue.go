package jobs

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/slokhande/dataos/internal/events"
	"github.com/slokhande/dataos/internal/model"
	"github.com/slokhande/dataos/internal/registry"
)

// Known job types and the intents that process them.
const (
	TypeIngest    = "ingest"
	TypeClean     = "clean"
	TypeAIProfile = "ai_profile"
	TypeAIChat    = "ai_chat"
)

// Executor runs one intent to completion. Satisfied by the runtime.
type Executor interface {
	ExecuteIntent(ctx context.Context, intent model.Intent) model.ExecutionResult
}

// Queue drains persisted jobs through the orchestrator. One drain runs at a
// time; a failed job never blocks the jobs behind it.
type Queue struct {
	store    *Store
	executor Executor
	bus      *events.Bus

	drainMu sync.Mutex
}

// NewQueue creates a queue over a job store.
func NewQueue(store *Store, executor Executor, bus *events.Bus) *Queue {
	return &Queue{store: store, executor: executor, bus: bus}
}

// Submit persists a job, announces it, and drains the queue before returning.
func (q *Queue) Submit(ctx context.Context, projectID int64, jobType string, priority int, payload map[string]any) (Job, error) {
	job, err := q.store.Create(ctx, projectID, jobType, priority, payload)
	if err != nil {
		return Job{}, err
	}
	q.bus.Publish(events.JobCreated, events.JobPayload{ID: job.ID, Type: job.Type}, "JobQueue")

	if err := q.Drain(ctx); err != nil {
		return job, err
	}
	return q.store.Get(ctx, job.ID)
}

// Drain processes pending jobs until none remain. Drains are serialized;
// jobs submitted mid-drain are picked up before it returns.
func (q *Queue) Drain(ctx context.Context) error {
	q.drainMu.Lock()
	defer q.drainMu.Unlock()

	for {
		pending, err := q.store.Pending(ctx)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			return nil
		}
		for _, job := range pending {
			q.process(ctx, job)
		}
	}
}

// Recover fails jobs left running by a previous process. Called once on
// startup before the first drain.
func (q *Queue) Recover(ctx context.Context) error {
	n, err := q.store.RecoverStale(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		log.Warn().Int64("jobs", n).Msg("jobs: failed stale jobs from previous run")
	}
	return nil
}

func (q *Queue) process(ctx context.Context, job Job) {
	if err := q.store.MarkRunning(ctx, job.ID); err != nil {
		log.Warn().Err(err).Int64("job", job.ID).Msg("jobs: skipping job")
		return
	}
	q.bus.Publish(events.JobStarted, events.JobPayload{ID: job.ID, Type: job.Type}, "JobQueue")

	intent, err := intentFor(job)
	if err != nil {
		q.fail(ctx, job, err.Error())
		return
	}

	result := q.executor.ExecuteIntent(ctx, intent)
	if !result.Success {
		q.fail(ctx, job, result.Message)
		return
	}

	if err := q.store.MarkCompleted(ctx, job.ID, result.Data); err != nil {
		log.Error().Err(err).Int64("job", job.ID).Msg("jobs: recording completion failed")
		return
	}
	q.bus.Publish(events.JobCompleted, events.JobPayload{ID: job.ID, Type: job.Type, Progress: 100, Result: result.Data}, "JobQueue")
}

func (q *Queue) fail(ctx context.Context, job Job, message string) {
	if err := q.store.MarkFailed(ctx, job.ID, message); err != nil {
		log.Error().Err(err).Int64("job", job.ID).Msg("jobs: recording failure failed")
		return
	}
	q.bus.Publish(events.JobFailed, events.JobPayload{ID: job.ID, Type: job.Type, Error: message}, "JobQueue")
}

// intentFor maps a job type to the intent that serves it.
func intentFor(job Job) (model.Intent, error) {
	base := model.Intent{Params: job.Payload, Confidence: 1.0, Reasoning: fmt.Sprintf("Dispatched from job %d", job.ID)}
	if base.Params == nil {
		base.Params = map[string]any{}
	}

	switch job.Type {
	case TypeIngest:
		base.AgentID = registry.AgentDataEngineer
		base.Intent = registry.IntentIngestFile
	case TypeClean:
		base.AgentID = registry.AgentDataEngineer
		base.Intent = registry.IntentCleanData
	case TypeAIProfile:
		base.AgentID = registry.AgentSchema
		base.Intent = registry.IntentDetectSchema
	case TypeAIChat:
		base.AgentID = registry.AgentAnalyst
		base.Intent = registry.IntentCalculateMetric
	default:
		return model.Intent{}, fmt.Errorf("unknown job type %q", job.Type)
	}
	return base, nil
}
