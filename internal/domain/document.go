package domain

import (
	"time"

	"github.com/google/uuid"
)

// DocumentStatus tracks a document through upload and AI processing.
type DocumentStatus string

const (
	DocumentStatusUploaded   DocumentStatus = "uploaded"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusReady      DocumentStatus = "ready"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// Document represents an uploaded study document.
type Document struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Title       string
	StorageKey  string // Key in the storage backend
	ContentType string
	SizeBytes   int64
	Status      DocumentStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UploadDocumentParams contains validated parameters for a document upload.
type UploadDocumentParams struct {
	UserID      uuid.UUID
	Title       string
	Filename    string
	ContentType string
	SizeBytes   int64
}

// StudyMaterialKind identifies an AI-generated study artifact.
type StudyMaterialKind string

const (
	StudyMaterialSummary    StudyMaterialKind = "summary"
	StudyMaterialFlashcards StudyMaterialKind = "flashcards"
	StudyMaterialQuiz       StudyMaterialKind = "quiz"
)

// StudyMaterial is an AI-generated artifact derived from a document.
// Content is the provider's structured output stored as JSON.
type StudyMaterial struct {
	ID         uuid.UUID
	DocumentID uuid.UUID
	UserID     uuid.UUID
	Kind       StudyMaterialKind
	Content    []byte // JSON
	CreatedAt  time.Time
}
