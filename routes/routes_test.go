package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"multimodal-rag-platform/internal/config"
	"multimodal-rag-platform/models"
	"multimodal-rag-platform/services"
)

// fakeEmbedder returns fixed vectors: text documents embed near the x axis,
// images near the y axis, and queries wherever the test points them.
type fakeEmbedder struct {
	queryVector []float32
	queryErr    error
	textErr     error
	imageErr    error
}

func (f *fakeEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if f.textErr != nil {
		return nil, f.textErr
	}
	return []float32{1, 0}, nil
}

func (f *fakeEmbedder) EmbedImage(ctx context.Context, img image.Image) ([]float32, error) {
	if f.imageErr != nil {
		return nil, f.imageErr
	}
	return []float32{0, 1}, nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.queryVector, nil
}

type fakeExtractor struct {
	text      string
	pages     int
	renderErr error
}

func (f *fakeExtractor) ExtractText(ctx context.Context, content []byte) string {
	return f.text
}

func (f *fakeExtractor) RenderPages(ctx context.Context, content []byte) ([]image.Image, error) {
	if f.renderErr != nil {
		return nil, f.renderErr
	}
	images := make([]image.Image, f.pages)
	for i := range images {
		images[i] = image.NewRGBA(image.Rect(0, 0, 4, 4))
	}
	return images, nil
}

type fakeSynthesizer struct {
	lastMode string // "text" or "image"
}

func (f *fakeSynthesizer) AnswerFromText(ctx context.Context, question, content string) string {
	f.lastMode = "text"
	return "answer from text: " + content
}

func (f *fakeSynthesizer) AnswerFromImage(ctx context.Context, question string, pngData []byte) string {
	f.lastMode = "image"
	return "answer from image"
}

type testEnv struct {
	router      *gin.Engine
	store       *services.DocumentStore
	embedder    *fakeEmbedder
	extractor   *fakeExtractor
	synthesizer *fakeSynthesizer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := services.NewDocumentStore(t.TempDir())
	if err != nil {
		t.Fatalf("store error: %v", err)
	}

	env := &testEnv{
		store:       store,
		embedder:    &fakeEmbedder{queryVector: []float32{1, 0}},
		extractor:   &fakeExtractor{text: "Revenue: $10", pages: 1},
		synthesizer: &fakeSynthesizer{},
	}

	router := gin.New()
	SetupRoutes(router, &Deps{
		Config:      &config.Config{DefaultTopK: 3},
		Store:       store,
		Embedder:    env.embedder,
		Extractor:   env.extractor,
		Synthesizer: env.synthesizer,
	})
	env.router = router
	return env
}

func (env *testEnv) do(t *testing.T, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func (env *testEnv) uploadPDF(t *testing.T, filename string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("files", filename)
	if err != nil {
		t.Fatalf("form file error: %v", err)
	}
	part.Write([]byte("%PDF-1.4 fake"))
	writer.Close()
	return env.do(t, http.MethodPost, "/documents/upload", &buf, writer.FormDataContentType())
}

func decodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, w.Body.String())
	}
	return v
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/health", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	resp := decodeJSON[map[string]string](t, w)
	if resp["status"] != "healthy" || resp["service"] != "multimodal-rag-api" {
		t.Errorf("unexpected health payload: %v", resp)
	}
}

func TestStatusEmpty(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/status", nil, "")
	status := decodeJSON[models.SystemStatus](t, w)
	if status.Status != "empty" || status.TotalDocuments != 0 || status.IndexSize != 0 {
		t.Errorf("unexpected status: %+v", status)
	}
}

func TestQueryNotReady(t *testing.T) {
	env := newTestEnv(t)

	body := bytes.NewBufferString(`{"query":"anything"}`)
	w := env.do(t, http.MethodPost, "/query", body, "application/json")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	resp := decodeJSON[map[string]any](t, w)
	if resp["error_code"] != "not_ready" {
		t.Errorf("error_code = %v, want not_ready", resp["error_code"])
	}
}

func TestUploadAndStatus(t *testing.T) {
	env := newTestEnv(t)

	w := env.uploadPDF(t, "report.pdf")
	if w.Code != http.StatusOK {
		t.Fatalf("upload status = %d (body: %s)", w.Code, w.Body.String())
	}

	upload := decodeJSON[models.UploadResponse](t, w)
	if len(upload.ProcessedFiles) != 1 {
		t.Fatalf("processed files = %d, want 1", len(upload.ProcessedFiles))
	}
	pf := upload.ProcessedFiles[0]
	if pf.Filename != "report.pdf" || pf.TextPages != 1 || pf.ImagePages != 1 {
		t.Errorf("unexpected processed file: %+v", pf)
	}
	if upload.TotalIndexedItems != 2 {
		t.Errorf("total indexed = %d, want 2", upload.TotalIndexedItems)
	}

	status := decodeJSON[models.SystemStatus](t, env.do(t, http.MethodGet, "/status", nil, ""))
	if status.Status != "active" {
		t.Errorf("status = %s, want active", status.Status)
	}
	if status.TextDocuments != 1 || status.ImageDocuments != 1 || status.IndexSize != 2 {
		t.Errorf("unexpected counts: %+v", status)
	}
}

func TestUploadSkipsNonPDF(t *testing.T) {
	env := newTestEnv(t)

	w := env.uploadPDF(t, "notes.txt")
	if w.Code != http.StatusOK {
		t.Fatalf("upload status = %d", w.Code)
	}

	upload := decodeJSON[models.UploadResponse](t, w)
	if len(upload.ProcessedFiles) != 0 {
		t.Errorf("non-pdf file was processed: %+v", upload.ProcessedFiles)
	}
}

func TestUploadNoFiles(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	writer.Close()

	w := env.do(t, http.MethodPost, "/documents/upload", &buf, writer.FormDataContentType())
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestUploadSurvivesRenderFailure(t *testing.T) {
	env := newTestEnv(t)
	env.extractor.renderErr = fmt.Errorf("poppler missing")

	w := env.uploadPDF(t, "report.pdf")
	if w.Code != http.StatusOK {
		t.Fatalf("upload status = %d", w.Code)
	}

	status := decodeJSON[models.SystemStatus](t, env.do(t, http.MethodGet, "/status", nil, ""))
	if status.TotalDocuments != 1 || status.TextDocuments != 1 || status.ImageDocuments != 0 {
		t.Errorf("unexpected counts after render failure: %+v", status)
	}
}

func TestUploadSkipsFailedEmbeddings(t *testing.T) {
	env := newTestEnv(t)
	env.embedder.imageErr = fmt.Errorf("embed API down")

	w := env.uploadPDF(t, "report.pdf")
	if w.Code != http.StatusOK {
		t.Fatalf("upload status = %d", w.Code)
	}

	// image page dropped silently, text still indexed
	status := decodeJSON[models.SystemStatus](t, env.do(t, http.MethodGet, "/status", nil, ""))
	if status.TextDocuments != 1 || status.ImageDocuments != 0 || status.IndexSize != 1 {
		t.Errorf("unexpected counts: %+v", status)
	}
}

func TestQueryEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	env.uploadPDF(t, "report.pdf")

	// query vector closest to the text document
	env.embedder.queryVector = []float32{1, 0}

	body := bytes.NewBufferString(`{"query":"What is the revenue?"}`)
	w := env.do(t, http.MethodPost, "/query", body, "application/json")
	if w.Code != http.StatusOK {
		t.Fatalf("query status = %d (body: %s)", w.Code, w.Body.String())
	}

	resp := decodeJSON[models.QueryResponse](t, w)
	if resp.Answer == "" {
		t.Error("empty answer")
	}
	if resp.Query != "What is the revenue?" {
		t.Errorf("query echoed as %q", resp.Query)
	}
	if len(resp.Sources) == 0 {
		t.Fatal("no sources returned")
	}

	// image hit present in top-k, so the image wins the selection policy
	if env.synthesizer.lastMode != "image" {
		t.Errorf("synthesizer mode = %s, want image", env.synthesizer.lastMode)
	}

	var sawText, sawImage bool
	for _, src := range resp.Sources {
		switch src.ContentType {
		case models.ContentTypeText:
			sawText = true
			if src.Preview == "" {
				t.Error("text source missing preview")
			}
		case models.ContentTypeImage:
			sawImage = true
			if src.Page != 1 {
				t.Errorf("image source page = %d, want 1", src.Page)
			}
		}
		if src.Similarity <= 0 || src.Similarity > 1 {
			t.Errorf("similarity out of range: %v", src.Similarity)
		}
	}
	if !sawText || !sawImage {
		t.Errorf("sources missing a content type: text=%v image=%v", sawText, sawImage)
	}
}

func TestQueryTextOnlySelection(t *testing.T) {
	env := newTestEnv(t)
	env.extractor.pages = 0 // no images ingested
	env.uploadPDF(t, "report.pdf")

	body := bytes.NewBufferString(`{"query":"What is the revenue?"}`)
	w := env.do(t, http.MethodPost, "/query", body, "application/json")
	resp := decodeJSON[models.QueryResponse](t, w)

	if env.synthesizer.lastMode != "text" {
		t.Errorf("synthesizer mode = %s, want text", env.synthesizer.lastMode)
	}
	if resp.Answer != "answer from text: Revenue: $10" {
		t.Errorf("unexpected answer %q", resp.Answer)
	}
}

func TestQueryEmbeddingFailureYieldsSentinel(t *testing.T) {
	env := newTestEnv(t)
	env.uploadPDF(t, "report.pdf")
	env.embedder.queryErr = fmt.Errorf("embed API down")

	body := bytes.NewBufferString(`{"query":"anything"}`)
	w := env.do(t, http.MethodPost, "/query", body, "application/json")
	if w.Code != http.StatusOK {
		t.Fatalf("query status = %d, want 200", w.Code)
	}

	resp := decodeJSON[models.QueryResponse](t, w)
	if resp.Answer != "No relevant results found." {
		t.Errorf("answer = %q, want sentinel", resp.Answer)
	}
	if len(resp.Sources) != 0 {
		t.Errorf("expected no sources, got %d", len(resp.Sources))
	}
}

func TestListDocuments(t *testing.T) {
	env := newTestEnv(t)
	env.uploadPDF(t, "report.pdf")

	w := env.do(t, http.MethodGet, "/documents", nil, "")
	infos := decodeJSON[[]models.DocumentInfo](t, w)
	if len(infos) != 2 {
		t.Fatalf("listed %d records, want 2", len(infos))
	}
}

// Deleting removes records by id prefix but never rebuilds the index, so the
// reported index size stays unchanged.
func TestDeleteDocumentLeavesIndexSize(t *testing.T) {
	env := newTestEnv(t)
	upload := decodeJSON[models.UploadResponse](t, env.uploadPDF(t, "report.pdf"))
	docID := upload.ProcessedFiles[0].DocID

	w := env.do(t, http.MethodDelete, "/documents/"+docID, nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}

	infos := decodeJSON[[]models.DocumentInfo](t, env.do(t, http.MethodGet, "/documents", nil, ""))
	if len(infos) != 0 {
		t.Errorf("records remain after prefix delete: %+v", infos)
	}

	status := decodeJSON[models.SystemStatus](t, env.do(t, http.MethodGet, "/status", nil, ""))
	if status.IndexSize != 2 {
		t.Errorf("index size = %d, want 2 (unchanged by delete)", status.IndexSize)
	}
}

func TestDeleteDocumentNotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodDelete, "/documents/absent", nil, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestClearDocuments(t *testing.T) {
	env := newTestEnv(t)
	env.uploadPDF(t, "report.pdf")

	w := env.do(t, http.MethodDelete, "/documents/clear", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("clear status = %d", w.Code)
	}

	status := decodeJSON[models.SystemStatus](t, env.do(t, http.MethodGet, "/status", nil, ""))
	if status.Status != "empty" || status.TotalDocuments != 0 || status.IndexSize != 0 {
		t.Errorf("store not empty after clear: %+v", status)
	}
}
