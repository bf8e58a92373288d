package storage

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// =============================================================================
// Content Type Detection
// =============================================================================

// DetectContentType determines the MIME type of a file.
//
// Detection priority:
// 1. If providedType is non-empty, use it directly
// 2. Try to detect from file extension using mime.TypeByExtension
// 3. Sniff content from the first 512 bytes of data (if available)
// 4. Fall back to "application/octet-stream"
func DetectContentType(providedType, filename string, data io.Reader) string {
	if providedType != "" {
		return providedType
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if contentType := mime.TypeByExtension(ext); contentType != "" {
		return contentType
	}

	if data != nil {
		// http.DetectContentType sniffs at most 512 bytes.
		buffer := make([]byte, 512)
		n, err := io.ReadFull(data, buffer)
		if err == nil || err == io.EOF || err == io.ErrUnexpectedEOF {
			return http.DetectContentType(buffer[:n])
		}
	}

	return "application/octet-stream"
}

// =============================================================================
// Content Type Validation
// =============================================================================

// AllowedDocumentTypes defines the MIME types accepted for study document
// uploads. Plain text, Markdown, PDF, and Word formats cover what the AI
// pipeline can extract text from.
var AllowedDocumentTypes = map[string]bool{
	"text/plain":      true,
	"text/markdown":   true,
	"application/pdf": true,
	// Microsoft Word
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	// LibreOffice/OpenOffice
	"application/vnd.oasis.opendocument.text": true,
}

// IsAllowedDocumentType checks if a content type is accepted for study
// document uploads.
func IsAllowedDocumentType(contentType string) bool {
	return AllowedDocumentTypes[normalizeContentType(contentType)]
}

// IsPDF returns true if the content type is a PDF document.
func IsPDF(contentType string) bool {
	return normalizeContentType(contentType) == "application/pdf"
}

// IsPlainText returns true for text formats the AI pipeline can read
// directly without extraction.
func IsPlainText(contentType string) bool {
	normalized := normalizeContentType(contentType)
	return strings.HasPrefix(normalized, "text/")
}

// normalizeContentType strips parameters (e.g. "; charset=utf-8") and
// lowercases the base type.
func normalizeContentType(contentType string) string {
	baseType := strings.Split(contentType, ";")[0]
	return strings.TrimSpace(strings.ToLower(baseType))
}

// =============================================================================
// Text Extraction
// =============================================================================

// ExtractText pulls readable text out of document data. Plain text and
// Markdown are returned as-is; binary formats fall back to scanning for
// printable UTF-8 runs, which recovers the readable content of most PDF and
// Word files well enough for study material generation.
func ExtractText(contentType string, data []byte) string {
	if IsPlainText(contentType) {
		return strings.TrimSpace(string(data))
	}
	return strings.TrimSpace(extractPrintable(data))
}

// extractPrintable pulls printable text runs out of binary data, dropping
// runs too short to be real words.
func extractPrintable(data []byte) string {
	const minRun = 4

	var b strings.Builder
	var run []rune

	flush := func() {
		if len(run) >= minRun {
			b.WriteString(string(run))
			b.WriteByte(' ')
		}
		run = run[:0]
	}

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		data = data[size:]
		if r == utf8.RuneError && size == 1 {
			flush()
			continue
		}
		if r == '\n' || r == '\t' || (r >= 0x20 && r != 0x7f) {
			run = append(run, r)
		} else {
			flush()
		}
	}
	flush()

	return b.String()
}

// =============================================================================
// File Extension Helpers
// =============================================================================

// ExtensionForContentType returns a common file extension for a MIME type.
// Useful when generating filenames from content types.
func ExtensionForContentType(contentType string) string {
	baseType := normalizeContentType(contentType)

	extensions := map[string]string{
		"text/plain":      ".txt",
		"text/markdown":   ".md",
		"application/pdf": ".pdf",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
		"application/msword":                      ".doc",
		"application/vnd.oasis.opendocument.text": ".odt",
	}

	if ext, ok := extensions[baseType]; ok {
		return ext
	}

	exts, err := mime.ExtensionsByType(contentType)
	if err == nil && len(exts) > 0 {
		return exts[0]
	}

	return ".bin"
}
