package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mindgrove-app/mindgrove/internal/domain"
)

// =============================================================================
// Error Response Tests - Security Focus
// =============================================================================

func TestValidationErrorResponse_DoesNotExposeOperationName(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// Create a validation error with an internal operation name
	ve := domain.NewValidationError("user.register", "email", "Email is required")

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ValidationErrorResponse(w, r, logger, ve)
	})

	req := httptest.NewRequest("POST", "/api/auth/register", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	body := rec.Body.String()

	// Should NOT contain internal operation names
	if strings.Contains(body, "user.register") {
		t.Errorf("response exposes internal operation name: %s", body)
	}

	// Should contain the field error
	if !strings.Contains(body, "email") {
		t.Errorf("response should contain field name: %s", body)
	}
	if !strings.Contains(body, "Email is required") {
		t.Errorf("response should contain field message: %s", body)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestErrorResponse_InternalErrorHidesDetails(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// Create an internal error wrapping a database error
	dbErr := &mockDatabaseError{message: "pq: relation \"users\" does not exist"}
	internalErr := domain.Internal(dbErr, "user.get_by_email", "Database query failed")

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(w, r, logger, internalErr)
	})

	req := httptest.NewRequest("GET", "/api/me", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	body := rec.Body.String()

	// Should NOT contain database error details
	if strings.Contains(body, "pq:") {
		t.Errorf("response exposes database error: %s", body)
	}
	if strings.Contains(body, "relation") {
		t.Errorf("response exposes database schema: %s", body)
	}
	if strings.Contains(body, "user.get_by_email") {
		t.Errorf("response exposes internal operation: %s", body)
	}

	// Should return generic message
	if !strings.Contains(body, "internal error") {
		t.Errorf("response should contain generic internal error message, got: %s", body)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestErrorResponse_NotFoundDoesNotExposeInternals(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	notFoundErr := domain.NotFound("document.get", "document", "550e8400-e29b-41d4-a716-446655440000")

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(w, r, logger, notFoundErr)
	})

	req := httptest.NewRequest("GET", "/api/documents/550e8400-e29b-41d4-a716-446655440000", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	body := rec.Body.String()

	// Should NOT contain internal operation name
	if strings.Contains(body, "document.get") {
		t.Errorf("response exposes operation name: %s", body)
	}

	// Resource type in the message is fine
	if !strings.Contains(body, "not found") && !strings.Contains(body, "document") {
		t.Errorf("response should indicate resource not found: %s", body)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestErrorResponse_UnwrappedErrorReturnsGeneric(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// A raw error (not a domain.Error)
	rawErr := &mockDatabaseError{message: "FATAL: password authentication failed for user \"postgres\""}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(w, r, logger, rawErr)
	})

	req := httptest.NewRequest("GET", "/api/documents", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	body := rec.Body.String()

	// Should NOT contain the raw error
	if strings.Contains(body, "FATAL") {
		t.Errorf("response exposes raw error: %s", body)
	}
	if strings.Contains(body, "password") {
		t.Errorf("response exposes password-related error: %s", body)
	}
	if strings.Contains(body, "postgres") {
		t.Errorf("response exposes database user: %s", body)
	}

	// Should return generic message
	if !strings.Contains(body, "internal error") {
		t.Errorf("response should contain generic message, got: %s", body)
	}
}

func TestErrorResponse_SetsJSONContentType(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(w, r, logger, domain.Invalid("document.upload", "A file is required."))
	})

	req := httptest.NewRequest("POST", "/api/documents", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %q", ct)
	}
}

// =============================================================================
// Status Code Mapping Tests
// =============================================================================

func TestErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code   string
		status int
	}{
		{domain.EINVALID, http.StatusBadRequest},
		{domain.EUNAUTHORIZED, http.StatusUnauthorized},
		{domain.EPAYMENT, http.StatusPaymentRequired},
		{domain.EFORBIDDEN, http.StatusForbidden},
		{domain.ENOTFOUND, http.StatusNotFound},
		{domain.ECONFLICT, http.StatusConflict},
		{domain.ETOOLARGE, http.StatusRequestEntityTooLarge},
		{domain.ERATELIMIT, http.StatusTooManyRequests},
		{domain.EQUOTA, http.StatusTooManyRequests},
		{domain.EINTERNAL, http.StatusInternalServerError},
		{"bogus", http.StatusInternalServerError},
	}

	for _, tc := range tests {
		if got := ErrorCodeToHTTPStatus(tc.code); got != tc.status {
			t.Errorf("%s: expected %d, got %d", tc.code, tc.status, got)
		}
	}
}

func TestErrorResponse_QuotaExceededIncludesUsage(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	quotaErr := domain.QuotaExceeded("study.chat", domain.CounterAIQueries, 10, 10)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(w, r, logger, quotaErr)
	})

	req := httptest.NewRequest("POST", "/api/study/chat", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "quota") {
		t.Errorf("expected quota error code in body: %s", rec.Body.String())
	}
}

func TestErrorResponse_PaymentRequiredNamesTier(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	payErr := domain.PaymentRequired("study.generate", domain.FeatureDocumentSummary, domain.TierWeekly)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(w, r, logger, payErr)
	})

	req := httptest.NewRequest("POST", "/api/documents/abc/materials", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusPaymentRequired {
		t.Errorf("expected 402, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "weekly") {
		t.Errorf("expected required tier in message: %s", rec.Body.String())
	}
}

// mockDatabaseError simulates a database error for testing
type mockDatabaseError struct {
	message string
}

func (e *mockDatabaseError) Error() string {
	return e.message
}
