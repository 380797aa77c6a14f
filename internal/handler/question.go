package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/aiglow/satbank/internal/domain"
	"github.com/aiglow/satbank/internal/service"
)

// ErrorResponse is the common error payload
type ErrorResponse struct {
	Error string `json:"error"`
}

// QuestionHandler handles question bank and PDF review HTTP requests
type QuestionHandler struct {
	reviewService domain.ReviewService
	questionRepo  domain.QuestionRepository
	validate      *validator.Validate
}

// NewQuestionHandler creates a new question handler
func NewQuestionHandler(reviewService domain.ReviewService, questionRepo domain.QuestionRepository) *QuestionHandler {
	return &QuestionHandler{
		reviewService: reviewService,
		questionRepo:  questionRepo,
		validate:      validator.New(),
	}
}

// Register registers the question routes
func (h *QuestionHandler) Register(e *echo.Echo) {
	g := e.Group("/api/question")
	g.POST("/post", h.CreateQuestion)
	g.GET("/get", h.GetQuestions)
	g.POST("/upload-pdf", h.UploadPDF)
	g.GET("/redis-keys", h.ListRedisKeys)
	g.GET("/redis-data/:filename", h.GetRedisData)
	g.DELETE("/redis-data/:filename", h.DeleteRedisData)
	g.POST("/upload-image", h.UploadImage)
	g.POST("/finalize", h.Finalize)
}

// UploadPDF forwards a PDF to the parsing service and caches the extracted
// questions for review
func (h *QuestionHandler) UploadPDF(c echo.Context) error {
	file, err := c.FormFile("pdf")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "No PDF file provided",
		})
	}

	src, err := file.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to read uploaded file",
		})
	}
	defer src.Close()

	result, err := h.reviewService.SubmitForParsing(c.Request().Context(), file.Filename, src, file.Size)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		case errors.Is(err, service.ErrUpstreamParsing):
			return c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		}
	}

	return c.JSON(http.StatusOK, result)
}

// ListRedisKeys enumerates cached batches awaiting review
func (h *QuestionHandler) ListRedisKeys(c echo.Context) error {
	batches, err := h.reviewService.ListPendingBatches(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"keys":    batches,
	})
}

// GetRedisData loads a cached batch by file name
func (h *QuestionHandler) GetRedisData(c echo.Context) error {
	filename := c.Param("filename")
	if filename == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "filename is required",
		})
	}

	key := domain.BatchKey(filename)
	drafts, err := h.reviewService.LoadBatch(c.Request().Context(), key)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{
				Error: "Batch not found or expired",
			})
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success":         true,
		"redis_key":       key,
		"questions":       drafts,
		"questions_count": len(drafts),
	})
}

// DeleteRedisData discards a cached batch without saving it
func (h *QuestionHandler) DeleteRedisData(c echo.Context) error {
	filename := c.Param("filename")
	if filename == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "filename is required",
		})
	}

	key := domain.BatchKey(filename)
	if err := h.reviewService.DiscardBatch(c.Request().Context(), key); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{
				Error: "Batch not found or expired",
			})
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Batch discarded",
	})
}

// UploadImage uploads a question image and returns its public URL
func (h *QuestionHandler) UploadImage(c echo.Context) error {
	file, err := c.FormFile("image")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "No image file provided",
		})
	}

	questionIndex, err := strconv.Atoi(c.FormValue("questionIndex"))
	if err != nil || questionIndex < 0 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid question index",
		})
	}

	src, err := file.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to read uploaded image",
		})
	}
	defer src.Close()

	contentType := file.Header.Get("Content-Type")
	imageURL, err := h.reviewService.AttachImage(c.Request().Context(), questionIndex, file.Filename, contentType, src, file.Size)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success":  true,
		"imageUrl": imageURL,
		"fileName": file.Filename,
	})
}

// FinalizeRequest represents the request body for finalizing a batch
type FinalizeRequest struct {
	RedisKey        string                 `json:"redis_key"`
	Questions       []domain.QuestionDraft `json:"questions" validate:"required,min=1"`
	RemoveFromRedis bool                   `json:"removeFromRedis"`
}

// Finalize persists the selected questions and evicts the cached batch
func (h *QuestionHandler) Finalize(c echo.Context) error {
	var req FinalizeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
		})
	}

	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
		})
	}

	saved, err := h.reviewService.Finalize(c.Request().Context(), req.RedisKey, req.Questions, req.RemoveFromRedis)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		case errors.Is(err, service.ErrPersistence):
			return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success":         true,
		"questions_saved": saved,
	})
}

// CreateQuestionRequest represents the request to create a question directly
type CreateQuestionRequest struct {
	domain.QuestionDraft
}

// CreateQuestion creates a single question without going through review
func (h *QuestionHandler) CreateQuestion(c echo.Context) error {
	var req CreateQuestionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
		})
	}

	if _, err := h.reviewService.Finalize(c.Request().Context(), "", []domain.QuestionDraft{req.QuestionDraft}, false); err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		}
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"success": true,
		"message": "Question created",
	})
}

// GetQuestions lists persisted questions, optionally filtered by section and
// difficulty
func (h *QuestionHandler) GetQuestions(c echo.Context) error {
	filter := domain.QuestionFilter{
		Section:    c.QueryParam("section"),
		Difficulty: c.QueryParam("difficulty"),
	}

	questions, err := h.questionRepo.List(c.Request().Context(), filter)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to get questions",
		})
	}

	if questions == nil {
		questions = []*domain.Question{}
	}

	return c.JSON(http.StatusOK, questions)
}
