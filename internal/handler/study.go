// Package handler contains the HTTP handlers for the MindGrove API.
//
// This file implements the AI study tool endpoints.
//
// Routes (all require auth):
//   - POST /api/documents/{id}/materials -> Generate (async, returns 202)
//   - POST /api/study/chat               -> Chat     (synchronous)
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mindgrove-app/mindgrove/internal/ai"
	"github.com/mindgrove-app/mindgrove/internal/auth"
	"github.com/mindgrove-app/mindgrove/internal/domain"
	"github.com/mindgrove-app/mindgrove/internal/repository"
	"github.com/mindgrove-app/mindgrove/internal/service"
	"github.com/mindgrove-app/mindgrove/internal/worker"
)

// StudyHandler handles AI study material generation and the study chat.
type StudyHandler struct {
	queries      *repository.Queries
	provider     ai.Provider
	documents    service.DocumentService
	entitlements service.EntitlementService
	usage        service.UsageService
	streaks      service.StreakService
	logger       *slog.Logger
}

// NewStudyHandler creates a new StudyHandler.
func NewStudyHandler(
	queries *repository.Queries,
	provider ai.Provider,
	documents service.DocumentService,
	entitlements service.EntitlementService,
	usage service.UsageService,
	streaks service.StreakService,
	logger *slog.Logger,
) *StudyHandler {
	return &StudyHandler{
		queries:      queries,
		provider:     provider,
		documents:    documents,
		entitlements: entitlements,
		usage:        usage,
		streaks:      streaks,
		logger:       logger,
	}
}

// featureForKind maps a material kind to the feature the entitlement
// evaluator gates it on.
func featureForKind(kind domain.StudyMaterialKind) (domain.Feature, bool) {
	switch kind {
	case domain.StudyMaterialSummary:
		return domain.FeatureDocumentSummary, true
	case domain.StudyMaterialFlashcards, domain.StudyMaterialQuiz:
		return domain.FeatureFlashcards, true
	default:
		return "", false
	}
}

// gateAIQuery runs the shared gate for every AI entry point: feature check
// (fail closed), daily query quota (fail open on counter read errors), and
// the counter increment once the request is admitted.
func (h *StudyHandler) gateAIQuery(r *http.Request, op string, user *domain.User, feature domain.Feature) error {
	if !h.entitlements.CanAccessFeature(r.Context(), user, feature) {
		required, _ := domain.MinimumTierFor(feature)
		return domain.PaymentRequired(op, feature, required)
	}

	if !h.entitlements.HasRemainingAIQueries(r.Context(), user) {
		def := domain.GetTierDefinition(user.EffectiveTier(time.Now()))
		used, err := h.usage.Get(r.Context(), user.ID, domain.CounterAIQueries)
		if err != nil {
			used = def.MaxAIQueriesPerDay
		}
		return domain.QuotaExceeded(op, domain.CounterAIQueries, used, def.MaxAIQueriesPerDay)
	}

	if _, err := h.usage.Increment(r.Context(), user.ID, domain.CounterAIQueries); err != nil {
		// The query still runs; the counter reconciles on the next read.
		h.logger.Warn("ai query counter increment failed", "user_id", user.ID, "error", err)
	}

	if _, err := h.streaks.RecordActivity(r.Context(), user.ID); err != nil {
		h.logger.Warn("streak update on ai query failed", "user_id", user.ID, "error", err)
	}

	return nil
}

// =============================================================================
// POST /api/documents/{id}/materials
// =============================================================================

type generateRequest struct {
	Kind domain.StudyMaterialKind `json:"kind"`
}

type generateResponse struct {
	JobID      string                   `json:"job_id"`
	DocumentID string                   `json:"document_id"`
	Kind       domain.StudyMaterialKind `json:"kind"`
	Status     string                   `json:"status"`
}

// Generate enqueues a study material generation job for a document.
func (h *StudyHandler) Generate(w http.ResponseWriter, r *http.Request) {
	const op = "study.generate"

	user := auth.GetUser(r.Context())

	documentID, err := pathDocumentID(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var req generateRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	feature, ok := featureForKind(req.Kind)
	if !ok {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "Unknown material kind. Expected summary, flashcards, or quiz."))
		return
	}

	// Ownership check before any gate so foreign document IDs read as 404.
	if _, err := h.documents.Get(r.Context(), user.ID, documentID); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if err := h.gateAIQuery(r, op, user, feature); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	job, err := worker.EnqueueGenerateMaterial(r.Context(), h.queries, documentID, user.ID, req.Kind,
		worker.WithPriority(worker.PriorityHigh))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, op, "failed to queue generation"))
		return
	}

	h.logger.Info("study material job enqueued",
		"user_id", user.ID,
		"document_id", documentID,
		"kind", req.Kind,
		"job_id", job.ID,
	)

	respondJSON(w, http.StatusAccepted, generateResponse{
		JobID:      job.ID.String(),
		DocumentID: documentID.String(),
		Kind:       req.Kind,
		Status:     job.Status,
	})
}

// =============================================================================
// POST /api/study/chat
// =============================================================================

type chatRequest struct {
	Question   string `json:"question"`
	DocumentID string `json:"document_id,omitempty"`
}

type chatResponse struct {
	Answer string `json:"answer"`
}

// Chat answers a study question synchronously, optionally grounded in one
// of the user's documents.
func (h *StudyHandler) Chat(w http.ResponseWriter, r *http.Request) {
	const op = "study.chat"

	user := auth.GetUser(r.Context())

	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if req.Question == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "A question is required."))
		return
	}

	// Resolve the grounding document before spending a query on the gate.
	var docText string
	if req.DocumentID != "" {
		documentID, err := uuid.Parse(req.DocumentID)
		if err != nil {
			ErrorResponse(w, r, h.logger, domain.Invalid(op, "Invalid document ID."))
			return
		}
		docText, err = h.documents.Text(r.Context(), user.ID, documentID)
		if err != nil {
			ErrorResponse(w, r, h.logger, err)
			return
		}
	}

	if err := h.gateAIQuery(r, op, user, domain.FeatureAIQueries); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.provider.Chat(r.Context(), ai.ChatParams{
		UserID:   user.ID,
		Question: req.Question,
		Context:  docText,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, mapAIError(op, err))
		return
	}

	respondJSON(w, http.StatusOK, chatResponse{Answer: result.Answer})
}

// mapAIError translates provider sentinel errors into domain errors the
// standard response path knows how to render.
func mapAIError(op string, err error) error {
	switch {
	case ai.IsRetryable(err):
		return &domain.Error{
			Code:    domain.ERATELIMIT,
			Op:      op,
			Message: "The study assistant is busy right now. Please try again in a moment.",
			Err:     err,
		}
	default:
		return domain.Internal(err, op, "study assistant request failed")
	}
}
