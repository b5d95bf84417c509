// Package classify suggests a document type and title for uploaded scans.
package classify

import (
	"context"
	"io"
	"strings"

	"github.com/vbonduro/propertypassport/internal/domain"
)

// Prompt is the shared prompt used by all classifier backends.
var Prompt = `This is a scanned document about a UK residential property.
Classify it as exactly one of: ` + documentTypeList() + `.
Respond with a single line, format: type | short descriptive title`

func documentTypeList() string {
	names := make([]string, len(domain.DocumentTypes))
	for i, t := range domain.DocumentTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

type Classifier interface {
	Classify(ctx context.Context, r io.Reader, mimeType string) (*Suggestion, error)
}

type Suggestion struct {
	DocumentType domain.DocumentType `json:"document_type"`
	Title        string              `json:"title"`
	RawResponse  string              `json:"-"`
}

// Supports reports whether mimeType can be sent to a vision model.
func Supports(mimeType string) bool {
	switch mimeType {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	}
	return false
}

// None is the classifier used when no backend is configured.
type None struct{}

func (None) Classify(context.Context, io.Reader, string) (*Suggestion, error) {
	return nil, nil
}
