// Package service contains the business logic layer.
//
// This file implements document management: quota-gated upload into the
// storage backend, listing, retrieval, and deletion.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mindgrove-app/mindgrove/internal/domain"
	"github.com/mindgrove-app/mindgrove/internal/metrics"
	"github.com/mindgrove-app/mindgrove/internal/notify"
	"github.com/mindgrove-app/mindgrove/internal/repository"
	"github.com/mindgrove-app/mindgrove/internal/storage"
)

// =============================================================================
// Configuration Constants
// =============================================================================

const (
	// MaxTitleLength caps document titles.
	MaxTitleLength = 200

	// downloadURLExpiry is how long presigned download links stay valid.
	downloadURLExpiry = 15 * time.Minute
)

// =============================================================================
// Interface Definition
// =============================================================================

// DocumentService manages uploaded study documents.
type DocumentService interface {
	// Upload stores a document for the user. The monthly quota is checked
	// first; a storage or database failure aborts the upload, but a failed
	// counter increment does not (the documents table reconciles it).
	Upload(ctx context.Context, user *domain.User, params domain.UploadDocumentParams, data io.Reader) (*domain.Document, error)

	// List returns the user's documents, newest first.
	List(ctx context.Context, userID uuid.UUID) ([]domain.Document, error)

	// Get returns one of the user's documents.
	// Returns domain.ENOTFOUND for missing documents and for documents
	// owned by someone else.
	Get(ctx context.Context, userID, documentID uuid.UUID) (*domain.Document, error)

	// DownloadURL returns a time-limited URL for the document blob.
	DownloadURL(ctx context.Context, userID, documentID uuid.UUID) (string, error)

	// Delete removes a document row and its stored blob.
	Delete(ctx context.Context, userID, documentID uuid.UUID) error

	// Materials returns the AI-generated study materials for a document.
	Materials(ctx context.Context, userID, documentID uuid.UUID) ([]domain.StudyMaterial, error)

	// Text returns the document's extracted text, for grounding synchronous
	// AI requests. Returns domain.EINVALID if nothing is extractable.
	Text(ctx context.Context, userID, documentID uuid.UUID) (string, error)
}

// =============================================================================
// Implementation
// =============================================================================

type documentService struct {
	queries      *repository.Queries
	storage      storage.Storage
	entitlements EntitlementService
	usage        UsageService
	sink         notify.Sink
	logger       *slog.Logger
	maxBytes     int64
}

// NewDocumentService creates a new DocumentService. maxBytes caps individual
// upload sizes.
func NewDocumentService(
	queries *repository.Queries,
	store storage.Storage,
	entitlements EntitlementService,
	usage UsageService,
	sink notify.Sink,
	logger *slog.Logger,
	maxBytes int64,
) DocumentService {
	return &documentService{
		queries:      queries,
		storage:      store,
		entitlements: entitlements,
		usage:        usage,
		sink:         sink,
		logger:       logger,
		maxBytes:     maxBytes,
	}
}

func toDomainDocument(d repository.Document) *domain.Document {
	return &domain.Document{
		ID:          d.ID,
		UserID:      d.UserID,
		Title:       d.Title,
		StorageKey:  d.StorageKey,
		ContentType: d.ContentType,
		SizeBytes:   d.SizeBytes,
		Status:      domain.DocumentStatus(d.Status),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// Upload stores a new document.
func (s *documentService) Upload(ctx context.Context, user *domain.User, params domain.UploadDocumentParams, data io.Reader) (*domain.Document, error) {
	const op = "document.upload"

	if user == nil {
		return nil, domain.Unauthorized(op, "authentication required")
	}

	title := strings.TrimSpace(params.Title)
	if title == "" {
		title = strings.TrimSpace(params.Filename)
	}
	if title == "" {
		return nil, domain.NewValidationError(op, "title", "A document title is required.")
	}
	if len(title) > MaxTitleLength {
		title = title[:MaxTitleLength]
	}

	contentType := storage.DetectContentType(params.ContentType, params.Filename, nil)
	if !storage.IsAllowedDocumentType(contentType) {
		return nil, domain.Invalid(op, fmt.Sprintf("file type %q is not supported", contentType))
	}

	if !s.entitlements.CanUploadMoreDocuments(ctx, user) {
		def := domain.GetTierDefinition(user.EffectiveTier(time.Now()))
		used, err := s.usage.Get(ctx, user.ID, domain.CounterDocuments)
		if err != nil {
			used = def.MaxDocumentsPerMonth
		}
		return nil, domain.QuotaExceeded(op, domain.CounterDocuments, used, def.MaxDocumentsPerMonth)
	}

	key := storage.DocumentKey(user.ID, params.Filename)
	err := s.storage.Put(ctx, key, data, storage.PutOptions{
		ContentType: contentType,
		MaxSize:     s.maxBytes,
	})
	if err != nil {
		if storage.IsTooLarge(err) {
			return nil, &domain.Error{
				Code:    domain.ETOOLARGE,
				Op:      op,
				Message: fmt.Sprintf("Document exceeds the %d MB upload limit.", s.maxBytes/(1<<20)),
				Err:     err,
			}
		}
		return nil, domain.Internal(err, op, "failed to store document")
	}

	doc, err := s.queries.CreateDocument(ctx, repository.CreateDocumentParams{
		UserID:      user.ID,
		Title:       title,
		StorageKey:  key,
		ContentType: contentType,
		SizeBytes:   params.SizeBytes,
	})
	if err != nil {
		// The blob is orphaned if this cleanup also fails; acceptable, keys
		// are random and unreferenced.
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			s.logger.Error("failed to clean up blob after insert failure",
				"key", key, "error", delErr)
		}
		return nil, domain.Internal(err, op, "failed to record document")
	}

	// Counter failures never unwind the upload: the documents table is the
	// audit source of truth and the evaluator reconciles from it.
	if _, err := s.usage.Increment(ctx, user.ID, domain.CounterDocuments); err != nil {
		s.logger.Warn("document counter increment failed",
			"user_id", user.ID,
			"document_id", doc.ID,
			"error", err,
		)
	}

	metrics.DocumentsUploaded.Inc()
	s.logger.Info("document uploaded",
		"user_id", user.ID,
		"document_id", doc.ID,
		"content_type", contentType,
		"size_bytes", params.SizeBytes,
	)

	s.notifyDocumentBadges(ctx, user.ID)

	return toDomainDocument(doc), nil
}

// notifyDocumentBadges fires unlock notifications when the upload crossed a
// document badge threshold.
func (s *documentService) notifyDocumentBadges(ctx context.Context, userID uuid.UUID) {
	total, err := s.queries.CountDocumentsByUser(ctx, userID)
	if err != nil {
		s.logger.Warn("badge document count failed", "user_id", userID, "error", err)
		return
	}
	for _, badge := range domain.NewlyUnlockedBadges(domain.BadgeMetricDocuments, total-1, total) {
		metrics.BadgesUnlocked.WithLabelValues(badge.ID).Inc()
		s.sink.Notify(ctx, userID,
			fmt.Sprintf("Badge unlocked: %s!", badge.Name),
			domain.SeveritySuccess,
		)
	}
}

// List returns the user's documents.
func (s *documentService) List(ctx context.Context, userID uuid.UUID) ([]domain.Document, error) {
	const op = "document.list"

	rows, err := s.queries.ListDocumentsByUser(ctx, userID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list documents")
	}

	docs := make([]domain.Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, *toDomainDocument(row))
	}
	return docs, nil
}

// getOwned loads a document and enforces ownership. Documents owned by other
// users read as not found so the API never confirms foreign IDs.
func (s *documentService) getOwned(ctx context.Context, op string, userID, documentID uuid.UUID) (repository.Document, error) {
	doc, err := s.queries.GetDocumentByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.Document{}, domain.NotFound(op, "document", documentID.String())
		}
		return repository.Document{}, domain.Internal(err, op, "failed to load document")
	}
	if doc.UserID != userID {
		return repository.Document{}, domain.NotFound(op, "document", documentID.String())
	}
	return doc, nil
}

// Get returns one of the user's documents.
func (s *documentService) Get(ctx context.Context, userID, documentID uuid.UUID) (*domain.Document, error) {
	const op = "document.get"

	doc, err := s.getOwned(ctx, op, userID, documentID)
	if err != nil {
		return nil, err
	}
	return toDomainDocument(doc), nil
}

// DownloadURL returns a time-limited URL for the document blob.
func (s *documentService) DownloadURL(ctx context.Context, userID, documentID uuid.UUID) (string, error) {
	const op = "document.download_url"

	doc, err := s.getOwned(ctx, op, userID, documentID)
	if err != nil {
		return "", err
	}

	url, err := s.storage.URL(ctx, doc.StorageKey, downloadURLExpiry)
	if err != nil {
		return "", domain.Internal(err, op, "failed to generate download URL")
	}
	return url, nil
}

// Delete removes a document and its blob.
func (s *documentService) Delete(ctx context.Context, userID, documentID uuid.UUID) error {
	const op = "document.delete"

	doc, err := s.getOwned(ctx, op, userID, documentID)
	if err != nil {
		return err
	}

	if err := s.queries.DeleteDocument(ctx, documentID); err != nil {
		return domain.Internal(err, op, "failed to delete document")
	}

	// Blob cleanup is best-effort once the row is gone.
	if err := s.storage.Delete(ctx, doc.StorageKey); err != nil {
		s.logger.Error("failed to delete document blob",
			"document_id", documentID,
			"key", doc.StorageKey,
			"error", err,
		)
	}

	s.logger.Info("document deleted", "user_id", userID, "document_id", documentID)
	return nil
}

// Text returns the document's extracted text.
func (s *documentService) Text(ctx context.Context, userID, documentID uuid.UUID) (string, error) {
	const op = "document.text"

	doc, err := s.getOwned(ctx, op, userID, documentID)
	if err != nil {
		return "", err
	}

	blob, _, err := s.storage.Get(ctx, doc.StorageKey)
	if err != nil {
		return "", domain.Internal(err, op, "failed to read document")
	}
	defer blob.Close()

	data, err := io.ReadAll(blob)
	if err != nil {
		return "", domain.Internal(err, op, "failed to read document")
	}

	text := storage.ExtractText(doc.ContentType, data)
	if text == "" {
		return "", domain.Invalid(op, "The document contains no extractable text.")
	}
	return text, nil
}

// Materials returns the AI-generated study materials for a document.
func (s *documentService) Materials(ctx context.Context, userID, documentID uuid.UUID) ([]domain.StudyMaterial, error) {
	const op = "document.materials"

	if _, err := s.getOwned(ctx, op, userID, documentID); err != nil {
		return nil, err
	}

	rows, err := s.queries.ListStudyMaterialsByDocument(ctx, documentID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list study materials")
	}

	materials := make([]domain.StudyMaterial, 0, len(rows))
	for _, row := range rows {
		materials = append(materials, domain.StudyMaterial{
			ID:         row.ID,
			DocumentID: row.DocumentID,
			UserID:     row.UserID,
			Kind:       domain.StudyMaterialKind(row.Kind),
			Content:    row.Content,
			CreatedAt:  row.CreatedAt,
		})
	}
	return materials, nil
}
