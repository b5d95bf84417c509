package web

import (
	"io"
	"mime"
	"net/http"
)

// handleFile streams the object named by a signed download token. The token
// is the only credential, so no session is consulted.
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	claims, err := s.signer.Verify(r.PathValue("token"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	reader, storedMIME, err := s.objects.Open(r.Context(), claims.Key)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer closeWithLog(reader, "object reader", s.logger)

	contentType := claims.MimeType
	if contentType == "" {
		contentType = storedMIME
	}
	h := w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Cache-Control", "private, max-age=300")
	if claims.Name != "" {
		h.Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": claims.Name}))
	}
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Error("write file failed", "key", claims.Key, "error", err)
	}
}
