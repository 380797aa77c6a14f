package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"regexp"
	"time"

	"github.com/aiglow/satbank/internal/domain"
	"github.com/aiglow/satbank/internal/validation"
)

const (
	// maxImageBytes caps review-time image uploads at 5 MiB
	maxImageBytes = 5 * 1024 * 1024

	imagePathPrefix = "question-images"
)

// allowedImageTypes is the MIME allow-list for review-time image uploads
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// ReviewService orchestrates the upload-parse-review-finalize workflow.
// It implements domain.ReviewService.
type ReviewService struct {
	parser       domain.ParsingClient
	cache        domain.TemporaryStore
	objects      domain.ObjectStore
	questionRepo domain.QuestionRepository
	batchTTL     time.Duration
	now          func() time.Time
}

// NewReviewService creates a new review orchestration service
func NewReviewService(
	parser domain.ParsingClient,
	cache domain.TemporaryStore,
	objects domain.ObjectStore,
	questionRepo domain.QuestionRepository,
	batchTTL time.Duration,
) *ReviewService {
	return &ReviewService{
		parser:       parser,
		cache:        cache,
		objects:      objects,
		questionRepo: questionRepo,
		batchTTL:     batchTTL,
		now:          time.Now,
	}
}

// SubmitForParsing forwards the uploaded document to the parsing service and
// caches the returned drafts under parsed:<fileName>.
func (s *ReviewService) SubmitForParsing(ctx context.Context, fileName string, file io.Reader, size int64) (*domain.ParseResult, error) {
	if fileName == "" || file == nil || size == 0 {
		return nil, fmt.Errorf("%w: no file content provided", ErrValidation)
	}

	result, err := s.parser.ParsePDF(ctx, fileName, file)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamParsing, err)
	}

	key := domain.BatchKey(fileName)
	if err := s.cache.Store(ctx, key, result.Questions, s.batchTTL); err != nil {
		return nil, fmt.Errorf("failed to cache parsed batch: %w", err)
	}

	result.Success = true
	result.Filename = fileName
	result.RedisKey = key
	result.QuestionsCount = len(result.Questions)

	return result, nil
}

// ListPendingBatches enumerates cached batches awaiting review. An empty
// cache yields an empty list, not an error.
func (s *ReviewService) ListPendingBatches(ctx context.Context) ([]domain.PendingBatch, error) {
	keys, err := s.cache.Keys(ctx, domain.BatchKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending batches: %w", err)
	}

	batches := make([]domain.PendingBatch, 0, len(keys))
	for _, key := range keys {
		drafts, err := s.cache.Load(ctx, key)
		if err != nil {
			// Key may have expired between scan and load
			continue
		}

		ttl, err := s.cache.TTL(ctx, key)
		if err != nil {
			continue
		}

		batches = append(batches, domain.PendingBatch{
			Key:            key,
			Filename:       domain.BatchFileName(key),
			QuestionsCount: len(drafts),
			TTL:            int64(ttl.Seconds()),
			ExpiresIn:      formatExpiry(ttl),
		})
	}

	return batches, nil
}

// LoadBatch retrieves a cached batch by key
func (s *ReviewService) LoadBatch(ctx context.Context, key string) ([]domain.QuestionDraft, error) {
	drafts, err := s.cache.Load(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrBatchNotFound) {
			return nil, fmt.Errorf("%w: batch %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to load batch: %w", err)
	}

	return drafts, nil
}

// EditDraft sets a scalar field or a nested option field on the draft at
// index. The batch is the caller-held copy; nothing is written back to the
// cache until finalize.
func (s *ReviewService) EditDraft(drafts []domain.QuestionDraft, index int, fieldPath, value string) ([]domain.QuestionDraft, error) {
	if err := validation.ApplyEdit(drafts, index, fieldPath, value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	return drafts, nil
}

// AttachImage uploads a review-time question image and returns its public
// URL. A failure here does not block the batch; callers persist the draft
// without its image.
func (s *ReviewService) AttachImage(ctx context.Context, questionIndex int, fileName, contentType string, image io.Reader, size int64) (string, error) {
	if image == nil || size == 0 {
		return "", fmt.Errorf("%w: no image content provided", ErrValidation)
	}
	if !allowedImageTypes[contentType] {
		return "", fmt.Errorf("%w: image type %s is not allowed", ErrValidation, contentType)
	}
	if size > maxImageBytes {
		return "", fmt.Errorf("%w: image exceeds maximum size of 5MB", ErrValidation)
	}

	objectName := fmt.Sprintf("%s/%d_q%d_%s",
		imagePathPrefix,
		s.now().Unix(),
		questionIndex,
		sanitizeFileName(fileName),
	)

	url, err := s.objects.Put(ctx, objectName, image, size, contentType)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}

	return url, nil
}

// Finalize persists the selected drafts as one atomic batch. On success it
// best-effort evicts the originating cache entry; eviction failure is logged
// as a warning and never surfaced, since the persistence already committed.
func (s *ReviewService) Finalize(ctx context.Context, redisKey string, drafts []domain.QuestionDraft, removeFromRedis bool) (int, error) {
	if len(drafts) == 0 {
		return 0, fmt.Errorf("%w: no questions selected for saving", ErrValidation)
	}

	questions := make([]*domain.Question, 0, len(drafts))
	for i, d := range drafts {
		if err := validation.ValidateDraft(&d); err != nil {
			return 0, fmt.Errorf("%w: question %d: %v", ErrValidation, i, err)
		}
		questions = append(questions, &domain.Question{QuestionDraft: d})
	}

	if err := s.questionRepo.BulkCreate(ctx, questions); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if removeFromRedis && redisKey != "" {
		if err := s.cache.Delete(ctx, redisKey); err != nil {
			log.Printf("warning: failed to evict batch %s after finalize: %v", redisKey, err)
		}
	}

	return len(questions), nil
}

// DiscardBatch removes a cached batch without persisting anything
func (s *ReviewService) DiscardBatch(ctx context.Context, key string) error {
	if _, err := s.cache.Load(ctx, key); err != nil {
		if errors.Is(err, domain.ErrBatchNotFound) {
			return fmt.Errorf("%w: batch %s", ErrNotFound, key)
		}
		return fmt.Errorf("failed to load batch: %w", err)
	}

	if err := s.cache.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to discard batch: %w", err)
	}

	return nil
}

// sanitizeFileName strips characters that are unsafe in object paths
func sanitizeFileName(name string) string {
	return unsafeNameChars.ReplaceAllString(name, "_")
}

// formatExpiry renders a TTL for display in the pending batch list
func formatExpiry(ttl time.Duration) string {
	if ttl <= 0 {
		return "expired"
	}
	if ttl < time.Minute {
		return fmt.Sprintf("%ds", int(ttl.Seconds()))
	}
	if ttl < time.Hour {
		return fmt.Sprintf("%dm", int(ttl.Minutes()))
	}
	return fmt.Sprintf("%dh %dm", int(ttl.Hours()), int(ttl.Minutes())%60)
}
