package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dgallion1/lessonlens/internal/analysis"
	"github.com/dgallion1/lessonlens/internal/config"
	"github.com/dgallion1/lessonlens/internal/extractor"
	"github.com/dgallion1/lessonlens/internal/material"
	"github.com/dgallion1/lessonlens/internal/pipeline"
)

const testSecret = "test-secret"

type fakeAnalyzer struct {
	out    *pipeline.Outcome
	err    error
	calls  int
	staged bool
	name   string
}

func (f *fakeAnalyzer) Process(ctx context.Context, doc *pipeline.Document) (*pipeline.Outcome, error) {
	f.calls++
	f.name = doc.Name
	if _, err := os.Stat(doc.Path); err == nil {
		f.staged = true
	}
	doc.Release()
	return f.out, f.err
}

type fakeStats struct {
	stats *analysis.LLMStats
}

func (f fakeStats) Stats() *analysis.LLMStats { return f.stats }
func (f fakeStats) Provider() string          { return "groq" }
func (f fakeStats) Model() string             { return "llama-test" }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		JWTSecret:      testSecret,
		UploadDir:      t.TempDir(),
		MaxUploadBytes: 1024 * 1024,
		AppEnv:         "development",
	}
}

func testToken(t *testing.T, secret string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ID:    "user-1",
		Email: "instructor@example.com",
		Role:  "instructor",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func multipartRequest(t *testing.T, path, field, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(content)
	} else {
		mw.WriteField("note", "no file here")
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+testToken(t, testSecret))
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return m
}

func TestHealth_NoAuth(t *testing.T) {
	srv := NewServer(Deps{}, testLogger(), testConfig(t))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if decode(t, rec)["status"] != "ok" {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestAuth(t *testing.T) {
	srv := NewServer(Deps{}, testLogger(), testConfig(t))

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"missing", "", "No token provided"},
		{"not bearer", "Basic abc", "No token provided"},
		{"garbage", "Bearer not-a-jwt", "Invalid token"},
		{"wrong secret", "Bearer " + testToken(t, "other-secret"), "Invalid token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/analysis/runs", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
			body := decode(t, rec)
			if body["success"] != false || body["message"] != tt.want {
				t.Errorf("body = %v", body)
			}
		})
	}
}

func TestAuth_ClaimsInContext(t *testing.T) {
	var got *Claims
	h := AuthMiddleware(testSecret, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = UserFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+testToken(t, testSecret))
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got == nil || got.ID != "user-1" || got.Role != "instructor" {
		t.Fatalf("claims = %+v", got)
	}
}

func TestAnalyzePDF_Success(t *testing.T) {
	fa := &fakeAnalyzer{out: &pipeline.Outcome{
		RunID: "run-123",
		Merged: analysis.Merged{
			Summary:   "Cells divide.",
			KeyPoints: []string{"Mitosis"},
			Quiz: []analysis.QuizQuestion{
				{Question: "What divides?", Options: []string{"Cells", "Rocks"}, Answer: "Cells"},
			},
		},
	}}
	cfg := testConfig(t)
	srv := NewServer(Deps{Analyzer: fa}, testLogger(), cfg)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, multipartRequest(t, "/api/analysis/pdf", "file", "Biology.PDF", []byte("%PDF-1.4 test")))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Run-ID") != "run-123" {
		t.Errorf("X-Run-ID = %q", rec.Header().Get("X-Run-ID"))
	}
	var resp analysisResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.Summary != "Cells divide." || len(resp.KeyPoints) != 1 || len(resp.Quiz) != 1 {
		t.Errorf("resp = %+v", resp)
	}
	if !fa.staged || fa.name != "Biology.PDF" {
		t.Errorf("staged = %v, name = %q", fa.staged, fa.name)
	}

	left, _ := os.ReadDir(cfg.UploadDir)
	if len(left) != 0 {
		t.Errorf("upload dir not empty: %d entries", len(left))
	}
}

func TestAnalyzePDF_RejectsBadUploads(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		filename string
		content  []byte
		status   int
		message  string
	}{
		{"no file", "", "", nil, http.StatusBadRequest, "No PDF file uploaded."},
		{"wrong field", "document", "a.pdf", []byte("x"), http.StatusBadRequest, "No PDF file uploaded."},
		{"not a pdf", "file", "notes.docx", []byte("x"), http.StatusBadRequest, "Only PDF files are allowed"},
		{"too large", "file", "big.pdf", bytes.Repeat([]byte("a"), 1<<20+10), http.StatusRequestEntityTooLarge, "File too large. Maximum size is 1MB."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fa := &fakeAnalyzer{}
			cfg := testConfig(t)
			cfg.MaxUploadBytes = 1 << 20
			srv := NewServer(Deps{Analyzer: fa}, testLogger(), cfg)

			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, multipartRequest(t, "/api/analysis/pdf", tt.field, tt.filename, tt.content))

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body.String())
			}
			if msg := decode(t, rec)["message"]; msg != tt.message {
				t.Errorf("message = %v, want %q", msg, tt.message)
			}
			if fa.calls != 0 {
				t.Errorf("analyzer called %d times", fa.calls)
			}
		})
	}
}

func TestAnalyzePDF_FailureStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{
			"empty document",
			&pipeline.PipelineError{Stage: pipeline.StageNormalizing, Err: &pipeline.EmptyDocumentError{Length: 3, Min: 20}},
			http.StatusBadRequest, "",
		},
		{
			"extraction failed",
			&pipeline.PipelineError{Stage: pipeline.StageExtracting, Err: &extractor.ExtractionError{
				Primary: errors.New("bad xref"),
				OCR:     &extractor.OCRError{Err: errors.New("no pages")},
			}},
			http.StatusUnprocessableEntity, "",
		},
		{
			"ocr failed",
			&pipeline.PipelineError{Stage: pipeline.StageExtracting, Err: &extractor.OCRError{Err: errors.New("tesseract")}},
			http.StatusInternalServerError, "Text recognition failed for this scanned PDF.",
		},
		{
			"no insights rate limited",
			&pipeline.PipelineError{Stage: pipeline.StageAnalyzing, Err: &pipeline.NoInsightsError{
				Chunks:   2,
				Failures: []error{errors.New("boom"), &analysis.Error{Kind: analysis.KindRateLimited, Err: errors.New("429")}},
			}},
			http.StatusInternalServerError, "AI service rate limit reached. Please try again shortly.",
		},
		{
			"no insights missing key",
			&pipeline.PipelineError{Stage: pipeline.StageAnalyzing, Err: &pipeline.NoInsightsError{
				Chunks:   1,
				Failures: []error{&analysis.Error{Kind: analysis.KindConfigMissing, Err: errors.New("unset")}},
			}},
			http.StatusInternalServerError, "AI service is not configured. Set a valid API key.",
		},
		{
			"timeout",
			&pipeline.PipelineError{Stage: pipeline.StageAnalyzing, Err: context.DeadlineExceeded},
			http.StatusGatewayTimeout, "",
		},
		{
			"unknown",
			&pipeline.PipelineError{Stage: pipeline.StageMerging, Err: errors.New("panic: nil map")},
			http.StatusInternalServerError, "Failed to analyze PDF.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(Deps{Analyzer: &fakeAnalyzer{err: tt.err}}, testLogger(), testConfig(t))
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, multipartRequest(t, "/api/analysis/pdf", "file", "a.pdf", []byte("%PDF")))

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			body := decode(t, rec)
			if body["success"] != false {
				t.Errorf("success = %v", body["success"])
			}
			if tt.msg != "" && body["message"] != tt.msg {
				t.Errorf("message = %v, want %q", body["message"], tt.msg)
			}
			if body["dev_error"] != tt.err.Error() {
				t.Errorf("dev_error = %v, want %q", body["dev_error"], tt.err.Error())
			}
		})
	}
}

func TestAnalyzePDF_HidesDevErrorInProduction(t *testing.T) {
	cfg := testConfig(t)
	cfg.AppEnv = config.EnvProduction
	srv := NewServer(Deps{Analyzer: &fakeAnalyzer{err: errors.New("secret detail")}}, testLogger(), cfg)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, multipartRequest(t, "/api/analysis/pdf", "file", "a.pdf", []byte("%PDF")))

	if strings.Contains(rec.Body.String(), "secret detail") {
		t.Fatalf("production response leaked error: %s", rec.Body.String())
	}
	if _, ok := decode(t, rec)["dev_error"]; ok {
		t.Error("dev_error present in production")
	}
}

func TestAnalyzePDF_Unavailable(t *testing.T) {
	srv := NewServer(Deps{}, testLogger(), testConfig(t))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, multipartRequest(t, "/api/analysis/pdf", "file", "a.pdf", []byte("%PDF")))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestExtractMaterial(t *testing.T) {
	reader := material.NewReader(nil, nil, t.TempDir())
	srv := NewServer(Deps{Materials: reader}, testLogger(), testConfig(t))

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, multipartRequest(t, "/api/materials/text", "file", "notes.txt",
		[]byte("First paragraph.\n\nSecond paragraph.")))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp materialResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Title != "notes" || resp.Format != "text" {
		t.Errorf("title/format = %q/%q", resp.Title, resp.Format)
	}
	if !strings.Contains(resp.Text, "First paragraph.") || !strings.Contains(resp.Text, "Second paragraph.") {
		t.Errorf("text = %q", resp.Text)
	}
}

func TestExtractMaterial_Unsupported(t *testing.T) {
	reader := material.NewReader(nil, nil, t.TempDir())
	srv := NewServer(Deps{Materials: reader}, testLogger(), testConfig(t))

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, multipartRequest(t, "/api/materials/text", "file", "setup.exe", []byte("MZ")))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if msg, _ := decode(t, rec)["message"].(string); !strings.HasPrefix(msg, "Unsupported file type.") {
		t.Errorf("message = %q", msg)
	}
}

func TestMaterialFailure(t *testing.T) {
	ocr := &extractor.OCRError{Err: errors.New("engine")}
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unsupported", &material.UnsupportedFormatError{Ext: ".bin"}, http.StatusBadRequest},
		{"ocr only", ocr, http.StatusInternalServerError},
		{"both failed", &extractor.ExtractionError{Primary: errors.New("x"), OCR: ocr}, http.StatusUnprocessableEntity},
		{"parse error", errors.New("read docx: zip: not a valid zip file"), http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		if got, _ := materialFailure(tt.err); got != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestRuns(t *testing.T) {
	store := pipeline.NewRunStore(time.Hour)
	run := store.Start("lecture.pdf")
	srv := NewServer(Deps{Runs: store}, testLogger(), testConfig(t))
	auth := "Bearer " + testToken(t, testSecret)

	req := httptest.NewRequest(http.MethodGet, "/api/analysis/runs?limit=5", nil)
	req.Header.Set("Authorization", auth)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	runs, _ := decode(t, rec)["runs"].([]any)
	if len(runs) != 1 {
		t.Fatalf("runs = %v", runs)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/analysis/runs/"+run.ID, nil)
	req.Header.Set("Authorization", auth)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	got, _ := decode(t, rec)["run"].(map[string]any)
	if got["run_id"] != run.ID || got["document"] != "lecture.pdf" {
		t.Errorf("run = %v", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/analysis/runs/missing", nil)
	req.Header.Set("Authorization", auth)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing run status = %d, want 404", rec.Code)
	}
}

func TestLLMStats(t *testing.T) {
	stats := analysis.NewLLMStats(time.Hour)
	stats.Record(120, "ok")
	srv := NewServer(Deps{Stats: fakeStats{stats: stats}}, testLogger(), testConfig(t))

	req := httptest.NewRequest(http.MethodGet, "/api/stats/llm", nil)
	req.Header.Set("Authorization", "Bearer "+testToken(t, testSecret))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode(t, rec)
	if body["provider"] != "groq" || body["model"] != "llama-test" {
		t.Errorf("body = %v", body)
	}
	s, _ := body["stats"].(map[string]any)
	if s["count"] != float64(1) {
		t.Errorf("stats = %v", s)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"notes.pdf":            "notes.pdf",
		"../../etc/passwd":     "passwd",
		`C:\Users\me\deck.pdf`: "deck.pdf",
		"":                     "unnamed",
		"a..b.pdf":             "a_b.pdf",
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
