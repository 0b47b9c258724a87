package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dgallion1/lessonlens/internal/extractor"
	"github.com/dgallion1/lessonlens/internal/material"
)

type materialResponse struct {
	Success  bool               `json:"success"`
	Title    string             `json:"title"`
	Format   string             `json:"format"`
	Text     string             `json:"text"`
	Sections []material.Section `json:"sections"`
}

func (s *Server) handleExtractMaterial(w http.ResponseWriter, r *http.Request) {
	if s.deps.Materials == nil {
		s.writeError(w, http.StatusServiceUnavailable, "Material extraction is unavailable.", nil)
		return
	}

	up, cleanup, ok := s.receiveUpload(w, r, "No file uploaded.")
	if !ok {
		return
	}
	defer cleanup()

	if !material.IsSupported(up.Name) {
		s.writeError(w, http.StatusBadRequest,
			"Unsupported file type. Allowed: "+strings.Join(material.SupportedExtensions(), ", "), nil)
		return
	}

	m, err := s.deps.Materials.Read(r.Context(), up.File, up.Name)
	if err != nil {
		status, msg := materialFailure(err)
		s.log.Warn("material extraction failed", "file", up.Name, "status", status, "error", err)
		s.writeError(w, status, msg, err)
		return
	}

	writeJSON(w, http.StatusOK, materialResponse{
		Success:  true,
		Title:    m.Title,
		Format:   m.Format,
		Text:     m.Text(),
		Sections: m.Sections,
	})
}

func materialFailure(err error) (int, string) {
	var (
		unsupported *material.UnsupportedFormatError
		ocr         *extractor.OCRError
	)
	switch {
	case errors.As(err, &unsupported):
		return http.StatusBadRequest, "Unsupported file type."
	case errors.As(err, &ocr) && !isExtractionError(err):
		return http.StatusInternalServerError, "Text recognition failed for this file."
	}
	return http.StatusUnprocessableEntity, "Could not read text from this file."
}

func isExtractionError(err error) bool {
	var extraction *extractor.ExtractionError
	return errors.As(err, &extraction)
}
