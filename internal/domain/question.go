package domain

import (
	"context"
	"errors"
	"time"
)

// Common errors
var (
	ErrQuestionNotFound = errors.New("question not found")
)

// QuestionRepository defines the interface for the permanent question store
type QuestionRepository interface {
	// Create persists a single question
	Create(ctx context.Context, question *Question) error

	// GetByID retrieves a question by its ID
	GetByID(ctx context.Context, id string) (*Question, error)

	// List retrieves questions matching the given filter
	List(ctx context.Context, filter QuestionFilter) ([]*Question, error)

	// Delete removes a question
	Delete(ctx context.Context, id string) error

	// BulkCreate persists multiple questions in a single transaction
	BulkCreate(ctx context.Context, questions []*Question) error
}

// QuestionFilter narrows List results; zero values mean no filtering
type QuestionFilter struct {
	Section    string
	Difficulty string
}

// Option is one selectable answer choice. Order is display-significant.
type Option struct {
	Label       string `json:"label"`
	Text        string `json:"text"`
	Explanation string `json:"explanation,omitempty"`
}

// AIInsight carries model-generated annotations attached to a question
type AIInsight struct {
	Embedding           []float64 `json:"embedding,omitempty"`
	Response            string    `json:"response"`
	SourcePrompt        string    `json:"sourcePrompt,omitempty"`
	SimilarityThreshold float64   `json:"similarityThreshold,omitempty"`
	CreatedAt           string    `json:"createdAt,omitempty"`
	LastUpdated         string    `json:"lastUpdated,omitempty"`
}

// QuestionDraft is a parsed question awaiting review. JSON field names follow
// the parsing service's wire format.
type QuestionDraft struct {
	Section       string      `json:"section"`
	Domain        string      `json:"domain,omitempty"`
	Skill         string      `json:"skill,omitempty"`
	Difficulty    string      `json:"difficulty,omitempty"`
	Type          string      `json:"type,omitempty"`
	Passage       *string     `json:"passage"`
	ImagePage     string      `json:"imagePage,omitempty"`
	QuestionText  string      `json:"questionText"`
	Options       []Option    `json:"options,omitempty"`
	CorrectAnswer string      `json:"correctAnswer,omitempty"`
	ImageURL      string      `json:"imageUrl,omitempty"`
	AIInsights    []AIInsight `json:"aiInsights,omitempty"`
}

// Question is a finalized question record in the permanent store. Timestamps
// are assigned server-side at insert time.
type Question struct {
	ID string `json:"id"`
	QuestionDraft
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
