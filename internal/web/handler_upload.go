package web

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/vbonduro/propertypassport/internal/domain"
	"github.com/vbonduro/propertypassport/internal/service"
)

const (
	maxDocumentSize = 25 << 20 // 25 MB
	maxMediaSize    = 50 << 20 // 50 MB

	// multipartOverhead leaves room for the form fields around the file.
	multipartOverhead = 1 << 20
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// isWebP reports whether data is a WebP image (RIFF container with "WEBP" at
// offset 8).
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}

// sniff returns the media type implied by the leading bytes of data, without
// parameters.
func sniff(data []byte) string {
	if isWebP(data) {
		return "image/webp"
	}
	detected, _, err := mime.ParseMediaType(http.DetectContentType(data))
	if err != nil {
		return ""
	}
	return detected
}

// allowedImageMIME returns the detected MIME type and true if the data is an
// accepted image format, or ("", false) otherwise.
func allowedImageMIME(data []byte) (string, bool) {
	if mt := sniff(data); allowedImageTypes[mt] {
		return mt, true
	}
	return "", false
}

// allowedDocumentMIME accepts PDFs, plain text and the image formats.
func allowedDocumentMIME(data []byte) (string, bool) {
	if len(data) == 0 {
		return "", false
	}
	switch mt := sniff(data); mt {
	case "application/pdf", "text/plain":
		return mt, true
	}
	return allowedImageMIME(data)
}

// allowedMediaMIME accepts images for photos and floorplans and MP4 for video.
func allowedMediaMIME(mediaType domain.MediaType, data []byte) (string, bool) {
	if mediaType == domain.MediaVideo {
		if mt := sniff(data); mt == "video/mp4" {
			return mt, true
		}
		return "", false
	}
	return allowedImageMIME(data)
}

type upload struct {
	data     []byte
	fileName string
}

// readUpload parses a multipart form and reads its "file" field, rejecting
// files larger than limit.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request, limit int64) (*upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, domain.Invalid("file exceeds the %d MB limit", limit>>20)
		}
		return nil, domain.Invalid("failed to parse form")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, domain.Invalid("file is required")
	}
	defer closeWithLog(file, "upload file", s.logger)

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, domain.Invalid("file exceeds the %d MB limit", limit>>20)
	}
	if len(data) == 0 {
		return nil, domain.Invalid("file is empty")
	}
	return &upload{data: data, fileName: filepath.Base(header.Filename)}, nil
}

func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	propertyID, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	up, err := s.readUpload(w, r, maxDocumentSize)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	mimeType, ok := allowedDocumentMIME(up.data)
	if !ok {
		s.fail(w, r, domain.Invalid("unsupported document format"))
		return
	}

	doc, err := s.services.Documents.UploadDocument(r.Context(), callerFrom(r.Context()), propertyID, service.UploadDocumentInput{
		Title:        r.FormValue("title"),
		DocumentType: domain.DocumentType(r.FormValue("document_type")),
		FileName:     up.fileName,
		MimeType:     mimeType,
		Data:         up.data,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusCreated, doc)
}

func (s *Server) handleUploadMedia(w http.ResponseWriter, r *http.Request) {
	propertyID, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	up, err := s.readUpload(w, r, maxMediaSize)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	mediaType := domain.MediaType(r.FormValue("media_type"))
	if mediaType == "" {
		mediaType = domain.MediaPhoto
	}
	mimeType, ok := allowedMediaMIME(mediaType, up.data)
	if !ok {
		s.fail(w, r, domain.Invalid("unsupported format for %s", mediaType))
		return
	}

	m, err := s.services.Media.UploadMedia(r.Context(), callerFrom(r.Context()), propertyID, service.UploadMediaInput{
		MediaType: mediaType,
		Caption:   r.FormValue("caption"),
		MimeType:  mimeType,
		Data:      up.data,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusCreated, m)
}

// closeWithLog closes c and logs any error.
func closeWithLog(c io.Closer, what string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "resource", what, "error", err)
	}
}
