package domain

import (
	"context"
	"errors"
	"io"
	"time"
)

// Common errors
var (
	ErrBatchNotFound = errors.New("review batch not found")
)

// BatchKeyPrefix namespaces cache entries holding parsed-but-unconfirmed
// question batches.
const BatchKeyPrefix = "parsed:"

// BatchKey derives the cache key for an uploaded file.
func BatchKey(fileName string) string {
	return BatchKeyPrefix + fileName
}

// BatchFileName recovers the original file name from a batch key.
func BatchFileName(key string) string {
	if len(key) >= len(BatchKeyPrefix) && key[:len(BatchKeyPrefix)] == BatchKeyPrefix {
		return key[len(BatchKeyPrefix):]
	}
	return key
}

// ParseResult is the parsing service's response for one uploaded document
type ParseResult struct {
	Success        bool            `json:"success"`
	Filename       string          `json:"filename"`
	RedisKey       string          `json:"redis_key"`
	QuestionsCount int             `json:"questions_count"`
	Questions      []QuestionDraft `json:"questions"`
	Message        string          `json:"message"`
}

// PendingBatch summarizes one cached batch awaiting review
type PendingBatch struct {
	Key            string `json:"key"`
	Filename       string `json:"filename"`
	QuestionsCount int    `json:"questionsCount"`
	TTL            int64  `json:"ttl"`
	ExpiresIn      string `json:"expiresIn"`
}

// TemporaryStore holds parsed batches between upload and finalization
type TemporaryStore interface {
	// Store writes a batch under key with the given time-to-live
	Store(ctx context.Context, key string, drafts []QuestionDraft, ttl time.Duration) error

	// Load retrieves a batch; returns ErrBatchNotFound when the key is
	// absent or expired
	Load(ctx context.Context, key string) ([]QuestionDraft, error)

	// Delete removes a batch
	Delete(ctx context.Context, key string) error

	// Keys enumerates stored keys matching the prefix
	Keys(ctx context.Context, prefix string) ([]string, error)

	// TTL reports the remaining time-to-live for a key
	TTL(ctx context.Context, key string) (time.Duration, error)
}

// ParsingClient forwards documents to the external question parsing service
type ParsingClient interface {
	ParsePDF(ctx context.Context, fileName string, file io.Reader) (*ParseResult, error)
}

// ObjectStore uploads binary objects and returns their public URL
type ObjectStore interface {
	Put(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) (string, error)
}

// ReviewService mediates the lifecycle of an uploaded batch: parsing,
// temporary caching, review-time mutation and finalization.
type ReviewService interface {
	// SubmitForParsing forwards a document to the parsing service and
	// caches the returned drafts
	SubmitForParsing(ctx context.Context, fileName string, file io.Reader, size int64) (*ParseResult, error)

	// ListPendingBatches enumerates cached batches awaiting review
	ListPendingBatches(ctx context.Context) ([]PendingBatch, error)

	// LoadBatch retrieves a cached batch by key
	LoadBatch(ctx context.Context, key string) ([]QuestionDraft, error)

	// EditDraft sets a field (scalar, or one level of nesting into an
	// option) on the draft at index
	EditDraft(drafts []QuestionDraft, index int, fieldPath, value string) ([]QuestionDraft, error)

	// AttachImage uploads a review-time image and returns its public URL
	AttachImage(ctx context.Context, questionIndex int, fileName, contentType string, image io.Reader, size int64) (string, error)

	// Finalize persists the selected drafts and optionally evicts the
	// originating cache entry
	Finalize(ctx context.Context, redisKey string, drafts []QuestionDraft, removeFromRedis bool) (int, error)

	// DiscardBatch removes a cached batch without persisting anything
	DiscardBatch(ctx context.Context, key string) error
}
