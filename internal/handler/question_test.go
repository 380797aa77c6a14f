package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/aiglow/satbank/internal/domain"
	"github.com/aiglow/satbank/internal/service"
)

type fakeReviewService struct {
	batches       map[string][]domain.QuestionDraft
	finalized     [][]domain.QuestionDraft
	attachedURL   string
	submitResult  *domain.ParseResult
	submitErr     error
	attachErr     error
	finalizeErr   error
	discardedKeys []string
}

func newFakeReviewService() *fakeReviewService {
	return &fakeReviewService{batches: map[string][]domain.QuestionDraft{}}
}

func (f *fakeReviewService) SubmitForParsing(ctx context.Context, fileName string, file io.Reader, size int64) (*domain.ParseResult, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return f.submitResult, nil
}

func (f *fakeReviewService) ListPendingBatches(ctx context.Context) ([]domain.PendingBatch, error) {
	batches := make([]domain.PendingBatch, 0, len(f.batches))
	for key, drafts := range f.batches {
		batches = append(batches, domain.PendingBatch{
			Key:            key,
			Filename:       domain.BatchFileName(key),
			QuestionsCount: len(drafts),
			TTL:            3600,
			ExpiresIn:      "1h 0m",
		})
	}
	return batches, nil
}

func (f *fakeReviewService) LoadBatch(ctx context.Context, key string) ([]domain.QuestionDraft, error) {
	drafts, ok := f.batches[key]
	if !ok {
		return nil, fmt.Errorf("%w: batch %s", service.ErrNotFound, key)
	}
	return drafts, nil
}

func (f *fakeReviewService) EditDraft(drafts []domain.QuestionDraft, index int, fieldPath, value string) ([]domain.QuestionDraft, error) {
	return drafts, nil
}

func (f *fakeReviewService) AttachImage(ctx context.Context, questionIndex int, fileName, contentType string, image io.Reader, size int64) (string, error) {
	if f.attachErr != nil {
		return "", f.attachErr
	}
	return f.attachedURL, nil
}

func (f *fakeReviewService) Finalize(ctx context.Context, redisKey string, drafts []domain.QuestionDraft, removeFromRedis bool) (int, error) {
	if f.finalizeErr != nil {
		return 0, f.finalizeErr
	}
	f.finalized = append(f.finalized, drafts)
	if removeFromRedis && redisKey != "" {
		delete(f.batches, redisKey)
	}
	return len(drafts), nil
}

func (f *fakeReviewService) DiscardBatch(ctx context.Context, key string) error {
	if _, ok := f.batches[key]; !ok {
		return fmt.Errorf("%w: batch %s", service.ErrNotFound, key)
	}
	delete(f.batches, key)
	f.discardedKeys = append(f.discardedKeys, key)
	return nil
}

type stubQuestionRepo struct {
	questions []*domain.Question
}

func (s *stubQuestionRepo) Create(ctx context.Context, q *domain.Question) error { return nil }
func (s *stubQuestionRepo) GetByID(ctx context.Context, id string) (*domain.Question, error) {
	return nil, domain.ErrQuestionNotFound
}
func (s *stubQuestionRepo) List(ctx context.Context, filter domain.QuestionFilter) ([]*domain.Question, error) {
	return s.questions, nil
}
func (s *stubQuestionRepo) Delete(ctx context.Context, id string) error { return nil }
func (s *stubQuestionRepo) BulkCreate(ctx context.Context, questions []*domain.Question) error {
	return nil
}

func setupHandler(svc domain.ReviewService) (*echo.Echo, *QuestionHandler) {
	e := echo.New()
	h := NewQuestionHandler(svc, &stubQuestionRepo{})
	h.Register(e)
	return e, h
}

func TestFinalizeEmptyQuestionsReturns400(t *testing.T) {
	svc := newFakeReviewService()
	e, _ := setupHandler(svc)

	body := `{"redis_key":"parsed:a.pdf","questions":[],"removeFromRedis":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/question/finalize", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if len(svc.finalized) != 0 {
		t.Error("finalize reached the service despite empty questions")
	}
}

func TestFinalizeSuccess(t *testing.T) {
	svc := newFakeReviewService()
	svc.batches["parsed:a.pdf"] = []domain.QuestionDraft{{Section: "math", QuestionText: "Q1"}}
	e, _ := setupHandler(svc)

	body := `{"redis_key":"parsed:a.pdf","questions":[{"section":"math","questionText":"Q1","passage":null}],"removeFromRedis":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/question/finalize", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success        bool `json:"success"`
		QuestionsSaved int  `json:"questions_saved"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if !resp.Success || resp.QuestionsSaved != 1 {
		t.Errorf("response = %+v", resp)
	}
	if _, ok := svc.batches["parsed:a.pdf"]; ok {
		t.Error("batch not evicted")
	}
}

func TestListRedisKeysEmptyCache(t *testing.T) {
	e, _ := setupHandler(newFakeReviewService())

	req := httptest.NewRequest(http.MethodGet, "/api/question/redis-keys", nil)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Success bool                  `json:"success"`
		Keys    []domain.PendingBatch `json:"keys"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if !resp.Success {
		t.Error("success = false")
	}
	if resp.Keys == nil || len(resp.Keys) != 0 {
		t.Errorf("keys = %v, want empty array", resp.Keys)
	}
}

func TestGetRedisDataNotFound(t *testing.T) {
	e, _ := setupHandler(newFakeReviewService())

	req := httptest.NewRequest(http.MethodGet, "/api/question/redis-data/missing.pdf", nil)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGetRedisData(t *testing.T) {
	svc := newFakeReviewService()
	svc.batches["parsed:sat.pdf"] = []domain.QuestionDraft{
		{Section: "math", QuestionText: "Q1"},
		{Section: "math", QuestionText: "Q2"},
	}
	e, _ := setupHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/question/redis-data/sat.pdf", nil)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Success        bool                   `json:"success"`
		RedisKey       string                 `json:"redis_key"`
		Questions      []domain.QuestionDraft `json:"questions"`
		QuestionsCount int                    `json:"questions_count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if resp.RedisKey != "parsed:sat.pdf" || resp.QuestionsCount != 2 {
		t.Errorf("response = %+v", resp)
	}
}

func TestUploadPDFMissingFile(t *testing.T) {
	e, _ := setupHandler(newFakeReviewService())

	req := httptest.NewRequest(http.MethodPost, "/api/question/upload-pdf", strings.NewReader(""))
	req.Header.Set(echo.HeaderContentType, echo.MIMEMultipartForm)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUploadPDF(t *testing.T) {
	svc := newFakeReviewService()
	svc.submitResult = &domain.ParseResult{
		Success:        true,
		Filename:       "sat.pdf",
		RedisKey:       "parsed:sat.pdf",
		QuestionsCount: 1,
		Questions:      []domain.QuestionDraft{{Section: "math", QuestionText: "Q1"}},
	}
	e, _ := setupHandler(svc)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("pdf", "sat.pdf")
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("%PDF-1.4 fake"))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/question/upload-pdf", &body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp domain.ParseResult
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if resp.RedisKey != "parsed:sat.pdf" || resp.QuestionsCount != 1 {
		t.Errorf("response = %+v", resp)
	}
}

func TestUploadPDFUpstreamFailure(t *testing.T) {
	svc := newFakeReviewService()
	svc.submitErr = fmt.Errorf("%w: parsing service returned status 500", service.ErrUpstreamParsing)
	e, _ := setupHandler(svc)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, _ := writer.CreateFormFile("pdf", "sat.pdf")
	part.Write([]byte("%PDF"))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/question/upload-pdf", &body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestUploadImageBadType(t *testing.T) {
	svc := newFakeReviewService()
	svc.attachErr = fmt.Errorf("%w: image type application/pdf is not allowed", service.ErrValidation)
	e, _ := setupHandler(svc)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	writer.WriteField("questionIndex", "0")
	part, _ := writer.CreateFormFile("image", "not-an-image.pdf")
	part.Write([]byte("%PDF"))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/question/upload-image", &body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUploadImage(t *testing.T) {
	svc := newFakeReviewService()
	svc.attachedURL = "http://cdn/question-assets/question-images/1_q0_chart.png"
	e, _ := setupHandler(svc)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	writer.WriteField("questionIndex", "0")
	part, _ := writer.CreateFormFile("image", "chart.png")
	part.Write([]byte("png bytes"))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/question/upload-image", &body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success  bool   `json:"success"`
		ImageURL string `json:"imageUrl"`
		FileName string `json:"fileName"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if resp.ImageURL != svc.attachedURL || resp.FileName != "chart.png" {
		t.Errorf("response = %+v", resp)
	}
}

func TestUploadImageMissingIndex(t *testing.T) {
	e, _ := setupHandler(newFakeReviewService())

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, _ := writer.CreateFormFile("image", "chart.png")
	part.Write([]byte("png bytes"))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/question/upload-image", &body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestDeleteRedisData(t *testing.T) {
	svc := newFakeReviewService()
	svc.batches["parsed:old.pdf"] = []domain.QuestionDraft{{Section: "math", QuestionText: "Q"}}
	e, _ := setupHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/question/redis-data/old.pdf", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	// Deleting again misses
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/question/redis-data/old.pdf", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestGetQuestions(t *testing.T) {
	repo := &stubQuestionRepo{questions: []*domain.Question{
		{ID: "1", QuestionDraft: domain.QuestionDraft{Section: "math", QuestionText: "Q1"}},
	}}
	e := echo.New()
	h := NewQuestionHandler(newFakeReviewService(), repo)
	h.Register(e)

	req := httptest.NewRequest(http.MethodGet, "/api/question/get?section=math", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var questions []domain.Question
	if err := json.Unmarshal(rec.Body.Bytes(), &questions); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if len(questions) != 1 || questions[0].QuestionText != "Q1" {
		t.Errorf("questions = %+v", questions)
	}
}
