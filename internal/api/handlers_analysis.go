package api

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/lessonlens/internal/analysis"
	"github.com/dgallion1/lessonlens/internal/extractor"
	"github.com/dgallion1/lessonlens/internal/pipeline"
)

type analysisResponse struct {
	Success   bool                    `json:"success"`
	Summary   string                  `json:"summary"`
	KeyPoints []string                `json:"key_points"`
	Quiz      []analysis.QuizQuestion `json:"quiz"`
}

func (s *Server) handleAnalyzePDF(w http.ResponseWriter, r *http.Request) {
	if s.deps.Analyzer == nil {
		s.writeError(w, http.StatusServiceUnavailable, "Analysis is unavailable.", nil)
		return
	}

	up, cleanup, ok := s.receiveUpload(w, r, "No PDF file uploaded.")
	if !ok {
		return
	}
	defer cleanup()

	if strings.ToLower(filepath.Ext(up.Name)) != ".pdf" {
		s.writeError(w, http.StatusBadRequest, "Only PDF files are allowed", nil)
		return
	}

	doc, err := pipeline.StageUpload(s.cfg.UploadDir, up.Name, up.File)
	if err != nil {
		s.log.Error("staging upload failed", "file", up.Name, "error", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to store the uploaded file.", err)
		return
	}

	// Process releases doc on every path.
	out, err := s.deps.Analyzer.Process(r.Context(), doc)
	if err != nil {
		status, msg := failureResponse(err)
		s.writeError(w, status, msg, err)
		return
	}

	w.Header().Set("X-Run-ID", out.RunID)
	writeJSON(w, http.StatusOK, analysisResponse{
		Success:   true,
		Summary:   out.Merged.Summary,
		KeyPoints: out.Merged.KeyPoints,
		Quiz:      out.Merged.Quiz,
	})
}

// failureResponse maps a pipeline error to a status code and a message
// suitable for end users.
func failureResponse(err error) (int, string) {
	var (
		empty      *pipeline.EmptyDocumentError
		extraction *extractor.ExtractionError
		ocr        *extractor.OCRError
		noInsights *pipeline.NoInsightsError
	)
	switch {
	case errors.As(err, &empty):
		return http.StatusBadRequest, "Could not extract enough meaningful text to analyze. Make sure the PDF contains readable text."
	case errors.As(err, &extraction):
		return http.StatusUnprocessableEntity, "Could not read text from this PDF. The file may be corrupted or password-protected."
	case errors.As(err, &ocr):
		return http.StatusInternalServerError, "Text recognition failed for this scanned PDF."
	case errors.As(err, &noInsights):
		return http.StatusInternalServerError, noInsightsMessage(noInsights.LastCause())
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Analysis timed out. Try a smaller document."
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "Analysis was canceled."
	}
	return http.StatusInternalServerError, "Failed to analyze PDF."
}

func noInsightsMessage(cause error) string {
	switch analysis.KindOf(cause) {
	case analysis.KindConfigMissing:
		return "AI service is not configured. Set a valid API key."
	case analysis.KindAuthInvalid:
		return "AI service rejected the configured API key."
	case analysis.KindRateLimited:
		return "AI service rate limit reached. Please try again shortly."
	}
	return "AI was unable to generate any insights from this document."
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.deps.Runs == nil {
		s.writeError(w, http.StatusServiceUnavailable, "Run history is unavailable.", nil)
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"runs":    s.deps.Runs.Recent(limit),
	})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.deps.Runs == nil {
		s.writeError(w, http.StatusServiceUnavailable, "Run history is unavailable.", nil)
		return
	}

	run := s.deps.Runs.Get(chi.URLParam(r, "runID"))
	if run == nil {
		s.writeError(w, http.StatusNotFound, "Run not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"run":     run.Snapshot(),
	})
}
