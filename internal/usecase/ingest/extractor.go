package ingest

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/knowbase-io/knowbase/internal/domain"
)

// TextExtractor extracts plain text from uploads whose payload is already
// decoded text (txt, and pre-converted pdf/docx).
type TextExtractor struct{}

// Extract returns the upload text with normalized line endings. Payloads
// that are not valid UTF-8 are rejected.
func (TextExtractor) Extract(_ context.Context, file domain.FileUpload) (string, error) {
	if !utf8.ValidString(file.Text) {
		return "", fmt.Errorf("file %q is not valid utf-8 text", file.Name)
	}
	text := strings.ReplaceAll(file.Text, "\r\n", "\n")
	return strings.TrimSpace(text), nil
}
