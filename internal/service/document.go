package service

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/vbonduro/propertypassport/internal/access"
	"github.com/vbonduro/propertypassport/internal/classify"
	"github.com/vbonduro/propertypassport/internal/domain"
	"github.com/vbonduro/propertypassport/internal/objectstore"
)

// documentRepository is the subset of store.DocumentStore that DocumentService requires.
type documentRepository interface {
	Create(ctx context.Context, d *domain.Document) (*domain.Document, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Document, error)
	ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]*domain.Document, error)
	CountByProperties(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

type DocumentService struct {
	*guard
	documents  documentRepository
	objects    objectstore.Store
	signer     *objectstore.Signer
	classifier classify.Classifier
}

type UploadDocumentInput struct {
	Title        string
	DocumentType domain.DocumentType
	FileName     string
	MimeType     string
	Data         []byte
}

// UploadedDocument reports the stored row and, when the classifier was
// consulted, what it suggested.
type UploadedDocument struct {
	*domain.Document
	Suggestion *classify.Suggestion `json:"suggestion,omitempty"`
}

func storagePrefix(propertyID uuid.UUID, kind string) string {
	return path.Join("properties", propertyID.String(), kind)
}

func (s *DocumentService) UploadDocument(ctx context.Context, caller *domain.User, propertyID uuid.UUID, in UploadDocumentInput) (*UploadedDocument, error) {
	s.logger.Info("upload document started", "property_id", propertyID, "mime_type", in.MimeType, "bytes", len(in.Data))

	title := strings.TrimSpace(in.Title)
	fileName := path.Base(strings.TrimSpace(in.FileName))
	if fileName == "." || fileName == "/" {
		fileName = ""
	}
	docType := in.DocumentType
	if docType == "" {
		docType = domain.DocumentOther
	}
	if !docType.Valid() {
		return nil, domain.Invalid("unknown document_type %q", in.DocumentType)
	}
	if len(in.Data) == 0 {
		return nil, domain.Invalid("file is empty")
	}
	if len(title) > 200 {
		return nil, domain.Invalid("title must be at most 200 characters")
	}

	p, a, err := s.load(ctx, caller, propertyID)
	if err != nil {
		return nil, err
	}
	if err := authorize(caller, a.CanEdit()); err != nil {
		return nil, err
	}

	var suggestion *classify.Suggestion
	if docType == domain.DocumentOther && classify.Supports(in.MimeType) {
		suggestion = s.suggest(ctx, p.ID, in)
		if suggestion != nil {
			docType = suggestion.DocumentType
			if title == "" {
				title = suggestion.Title
			}
		}
	}
	if title == "" {
		title = fileName
	}
	if title == "" {
		return nil, domain.Invalid("title is required")
	}
	if fileName == "" {
		fileName = title
	}

	key, size, err := s.objects.Save(ctx, storagePrefix(p.ID, "documents"), in.MimeType, bytes.NewReader(in.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to save document: %w", err)
	}
	s.logger.Debug("document saved", "property_id", p.ID, "storage_key", key)

	doc, err := s.documents.Create(ctx, &domain.Document{
		PropertyID:   p.ID,
		Title:        title,
		DocumentType: docType,
		FileName:     fileName,
		StorageKey:   key,
		MimeType:     in.MimeType,
		SizeBytes:    size,
		UploadedBy:   caller.ID,
	})
	if err != nil {
		if delErr := s.objects.Delete(ctx, key); delErr != nil {
			s.logger.Error("failed to remove orphaned document", "storage_key", key, "error", delErr)
		}
		return nil, fmt.Errorf("failed to create document record: %w", err)
	}

	s.record(ctx, p.ID, caller, domain.EventDocumentUploaded, "Uploaded "+doc.Title, map[string]any{
		"document_id":   doc.ID,
		"document_type": doc.DocumentType,
		"file_name":     doc.FileName,
	})
	s.logger.Info("upload document complete", "property_id", p.ID, "document_id", doc.ID, "document_type", doc.DocumentType)
	return &UploadedDocument{Document: doc, Suggestion: suggestion}, nil
}

// suggest asks the classifier about an image. Classification is advisory so
// every failure is logged and ignored.
func (s *DocumentService) suggest(ctx context.Context, propertyID uuid.UUID, in UploadDocumentInput) *classify.Suggestion {
	suggestion, err := s.classifier.Classify(ctx, bytes.NewReader(in.Data), in.MimeType)
	if err != nil {
		s.logger.Warn("document classification failed", "property_id", propertyID, "error", err)
		return nil
	}
	if suggestion != nil {
		s.logger.Info("document classified", "property_id", propertyID, "document_type", suggestion.DocumentType)
	}
	return suggestion
}

func (s *DocumentService) ListDocuments(ctx context.Context, caller *domain.User, propertyID uuid.UUID) ([]*domain.Document, error) {
	_, a, err := s.load(ctx, caller, propertyID)
	if err != nil {
		return nil, err
	}
	if err := authorize(caller, a.CanViewRestricted()); err != nil {
		return nil, err
	}
	return s.documents.ListByProperty(ctx, propertyID)
}

// document loads a live document and its property's access for caller.
func (s *DocumentService) document(ctx context.Context, caller *domain.User, id uuid.UUID) (*domain.Document, access.Access, error) {
	doc, err := s.documents.GetByID(ctx, id)
	if err != nil {
		return nil, access.Access{}, err
	}
	if doc == nil {
		return nil, access.Access{}, fmt.Errorf("document %w", domain.ErrNotFound)
	}
	_, a, err := s.load(ctx, caller, doc.PropertyID)
	if err != nil {
		return nil, access.Access{}, err
	}
	return doc, a, nil
}

// DocumentURL returns a short-lived signed download path.
func (s *DocumentService) DocumentURL(ctx context.Context, caller *domain.User, id uuid.UUID) (string, error) {
	doc, a, err := s.document(ctx, caller, id)
	if err != nil {
		return "", err
	}
	if err := authorize(caller, a.CanViewRestricted()); err != nil {
		return "", err
	}
	return s.signer.Sign(doc.StorageKey, doc.MimeType, doc.FileName)
}

// DeleteDocument soft-deletes the row. The stored object is kept so the
// deletion can be undone from the database.
func (s *DocumentService) DeleteDocument(ctx context.Context, caller *domain.User, id uuid.UUID) error {
	doc, a, err := s.document(ctx, caller, id)
	if err != nil {
		return err
	}
	if err := authorize(caller, a.CanEdit()); err != nil {
		return err
	}
	if err := s.documents.SoftDelete(ctx, doc.ID); err != nil {
		return err
	}
	s.record(ctx, doc.PropertyID, caller, domain.EventDocumentDeleted, "Deleted "+doc.Title, map[string]any{
		"document_id": doc.ID,
	})
	return nil
}
