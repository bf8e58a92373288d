// Package jobs contains the background job handlers run by the worker.
package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mindgrove-app/mindgrove/internal/ai"
	"github.com/mindgrove-app/mindgrove/internal/domain"
	"github.com/mindgrove-app/mindgrove/internal/metrics"
	"github.com/mindgrove-app/mindgrove/internal/notify"
	"github.com/mindgrove-app/mindgrove/internal/repository"
	"github.com/mindgrove-app/mindgrove/internal/storage"
	"github.com/mindgrove-app/mindgrove/internal/worker"
)

// GenerateMaterialHandler processes study material generation jobs: it reads
// the document blob, extracts text, calls the AI provider, and stores the
// result as a study_materials row.
type GenerateMaterialHandler struct {
	queries  *repository.Queries
	provider ai.Provider
	storage  storage.Storage
	sink     notify.Sink
	logger   *slog.Logger
}

// NewGenerateMaterialHandler creates a new handler for material generation jobs.
func NewGenerateMaterialHandler(
	queries *repository.Queries,
	provider ai.Provider,
	store storage.Storage,
	sink notify.Sink,
	logger *slog.Logger,
) *GenerateMaterialHandler {
	return &GenerateMaterialHandler{
		queries:  queries,
		provider: provider,
		storage:  store,
		sink:     sink,
		logger:   logger,
	}
}

// Type returns the job type identifier.
func (h *GenerateMaterialHandler) Type() string {
	return worker.JobTypeGenerateMaterial
}

// Handle executes one material generation job.
func (h *GenerateMaterialHandler) Handle(ctx context.Context, payload []byte) error {
	var p worker.GenerateMaterialPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return worker.NewPermanentError(fmt.Errorf("invalid payload: %w", err))
	}

	logger := h.logger.With("document_id", p.DocumentID, "user_id", p.UserID, "kind", p.Kind)
	logger.Info("generating study material")

	doc, err := h.queries.GetDocumentByID(ctx, p.DocumentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Document deleted after the job was enqueued.
			return worker.NewPermanentError(fmt.Errorf("document not found: %w", err))
		}
		return fmt.Errorf("fetch document: %w", err)
	}
	if doc.UserID != p.UserID {
		return worker.NewPermanentError(fmt.Errorf("document does not belong to user"))
	}

	if err := h.setStatus(ctx, p.DocumentID, domain.DocumentStatusProcessing); err != nil {
		return fmt.Errorf("mark document processing: %w", err)
	}

	text, err := h.extractText(ctx, doc)
	if err != nil {
		h.failDocument(ctx, p, logger, err)
		return worker.NewPermanentError(fmt.Errorf("extract text: %w", err))
	}

	content, err := h.generate(ctx, p, doc.Title, text)
	if err != nil {
		// Transient provider errors bubble up for retry; the document stays
		// in processing until the worker gives up.
		if ai.IsRetryable(err) {
			return fmt.Errorf("generate %s: %w", p.Kind, err)
		}
		h.failDocument(ctx, p, logger, err)
		return worker.NewPermanentError(fmt.Errorf("generate %s: %w", p.Kind, err))
	}

	_, err = h.queries.CreateStudyMaterial(ctx, repository.CreateStudyMaterialParams{
		DocumentID: p.DocumentID,
		UserID:     p.UserID,
		Kind:       string(p.Kind),
		Content:    content,
	})
	if err != nil {
		return fmt.Errorf("store study material: %w", err)
	}

	if err := h.setStatus(ctx, p.DocumentID, domain.DocumentStatusReady); err != nil {
		logger.Error("failed to mark document ready", "error", err)
	}

	metrics.StudyMaterialsGenerated.WithLabelValues(string(p.Kind)).Inc()
	logger.Info("study material generated")

	h.sink.Notify(ctx, p.UserID,
		fmt.Sprintf("Your %s for %q is ready.", materialLabel(p.Kind), doc.Title),
		domain.SeverityInfo,
	)

	return nil
}

// generate dispatches to the provider method for the requested kind and
// returns the result serialized for storage.
func (h *GenerateMaterialHandler) generate(ctx context.Context, p worker.GenerateMaterialPayload, title, text string) ([]byte, error) {
	params := ai.GenerateParams{
		DocumentID: p.DocumentID,
		UserID:     p.UserID,
		Title:      title,
		Text:       text,
	}

	var result interface{}
	var err error
	switch p.Kind {
	case domain.StudyMaterialSummary:
		result, err = h.provider.GenerateSummary(ctx, params)
	case domain.StudyMaterialFlashcards:
		result, err = h.provider.GenerateFlashcards(ctx, params)
	case domain.StudyMaterialQuiz:
		result, err = h.provider.GenerateQuiz(ctx, params)
	default:
		return nil, worker.NewPermanentError(fmt.Errorf("unknown material kind: %s", p.Kind))
	}
	if err != nil {
		return nil, err
	}

	return json.Marshal(result)
}

// extractText reads the document blob and extracts text for the AI prompt.
func (h *GenerateMaterialHandler) extractText(ctx context.Context, doc repository.Document) (string, error) {
	blob, _, err := h.storage.Get(ctx, doc.StorageKey)
	if err != nil {
		return "", fmt.Errorf("read blob: %w", err)
	}
	defer blob.Close()

	data, err := io.ReadAll(blob)
	if err != nil {
		return "", fmt.Errorf("read blob: %w", err)
	}

	text := storage.ExtractText(doc.ContentType, data)
	if text == "" {
		return "", fmt.Errorf("document contains no extractable text")
	}
	return text, nil
}

func (h *GenerateMaterialHandler) setStatus(ctx context.Context, id uuid.UUID, status domain.DocumentStatus) error {
	return h.queries.UpdateDocumentStatus(ctx, repository.UpdateDocumentStatusParams{
		ID:     id,
		Status: string(status),
	})
}

// failDocument marks the document failed and tells the user. Best-effort;
// the job error is what the worker records.
func (h *GenerateMaterialHandler) failDocument(ctx context.Context, p worker.GenerateMaterialPayload, logger *slog.Logger, cause error) {
	logger.Error("material generation failed", "error", cause)
	if err := h.setStatus(ctx, p.DocumentID, domain.DocumentStatusFailed); err != nil {
		logger.Error("failed to mark document failed", "error", err)
	}
	h.sink.Notify(ctx, p.UserID,
		fmt.Sprintf("We couldn't generate your %s. Please try again.", materialLabel(p.Kind)),
		domain.SeverityWarning,
	)
}

func materialLabel(kind domain.StudyMaterialKind) string {
	switch kind {
	case domain.StudyMaterialSummary:
		return "summary"
	case domain.StudyMaterialFlashcards:
		return "flashcards"
	case domain.StudyMaterialQuiz:
		return "quiz"
	default:
		return "study material"
	}
}
