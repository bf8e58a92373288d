package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mindgrove-app/mindgrove/internal/domain"
	"github.com/mindgrove-app/mindgrove/internal/repository"
)

// Job type constants - these must match the JobHandler.Type() values
const (
	JobTypeGenerateMaterial = "generate_material"
	JobTypeExpirySweep      = "expiry_sweep"
	JobTypeSessionCleanup   = "session_cleanup"
)

// Priority constants for job scheduling
const (
	PriorityLow    = 0
	PriorityNormal = 10
	PriorityHigh   = 20
)

// GenerateMaterialPayload is the payload for study material generation jobs.
type GenerateMaterialPayload struct {
	DocumentID uuid.UUID                `json:"document_id"`
	UserID     uuid.UUID                `json:"user_id"`
	Kind       domain.StudyMaterialKind `json:"kind"`
}

// EnqueueOption is a functional option for customizing job enqueue parameters.
type EnqueueOption func(*repository.EnqueueJobParams)

// WithPriority sets the job priority.
func WithPriority(priority int32) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.Priority = priority
	}
}

// WithMaxAttempts sets the maximum number of retry attempts.
func WithMaxAttempts(attempts int32) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.MaxAttempts = attempts
	}
}

// WithDelay schedules the job to run after a delay.
func WithDelay(delay time.Duration) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.ScheduledAt = time.Now().Add(delay)
	}
}

// EnqueueJob is a generic helper for enqueuing jobs with custom options.
func EnqueueJob(
	ctx context.Context,
	queries *repository.Queries,
	jobType string,
	payload interface{},
	opts ...EnqueueOption,
) (repository.Job, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return repository.Job{}, fmt.Errorf("marshal payload: %w", err)
	}

	params := repository.EnqueueJobParams{
		JobType:     jobType,
		Payload:     payloadJSON,
		Priority:    PriorityNormal,
		MaxAttempts: 3,
		ScheduledAt: time.Now(),
	}

	for _, opt := range opts {
		opt(&params)
	}

	job, err := queries.EnqueueJob(ctx, params)
	if err != nil {
		return repository.Job{}, fmt.Errorf("enqueue job: %w", err)
	}

	return job, nil
}

// EnqueueGenerateMaterial enqueues a study material generation job for a
// document. Called from the study endpoints after the quota check passes.
func EnqueueGenerateMaterial(
	ctx context.Context,
	queries *repository.Queries,
	documentID uuid.UUID,
	userID uuid.UUID,
	kind domain.StudyMaterialKind,
	opts ...EnqueueOption,
) (repository.Job, error) {
	payload := GenerateMaterialPayload{
		DocumentID: documentID,
		UserID:     userID,
		Kind:       kind,
	}

	return EnqueueJob(ctx, queries, JobTypeGenerateMaterial, payload, opts...)
}

// EnqueueExpirySweep enqueues one run of the subscription expiry sweep.
// The payload is empty; the handler scans for expired paid users itself.
func EnqueueExpirySweep(ctx context.Context, queries *repository.Queries, opts ...EnqueueOption) (repository.Job, error) {
	return EnqueueJob(ctx, queries, JobTypeExpirySweep, struct{}{}, opts...)
}

// EnqueueSessionCleanup enqueues one run of the expired session cleanup.
func EnqueueSessionCleanup(ctx context.Context, queries *repository.Queries, opts ...EnqueueOption) (repository.Job, error) {
	return EnqueueJob(ctx, queries, JobTypeSessionCleanup, struct{}{}, opts...)
}
