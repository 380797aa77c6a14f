package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aiglow/satbank/internal/domain"
)

// QuestionRepository implements the domain.QuestionRepository interface
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new question repository
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{
		pool: pool,
	}
}

const insertQuestionQuery = `
	INSERT INTO questions (section, domain, skill, difficulty, type, passage, image_page, question_text, options, correct_answer, image_url, ai_insights)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	RETURNING id, created_at, updated_at
`

// Create persists a single question
func (r *QuestionRepository) Create(ctx context.Context, question *domain.Question) error {
	options, insights, err := marshalQuestionJSON(question)
	if err != nil {
		return err
	}

	err = r.pool.QueryRow(ctx, insertQuestionQuery,
		question.Section,
		question.Domain,
		question.Skill,
		question.Difficulty,
		question.Type,
		question.Passage,
		question.ImagePage,
		question.QuestionText,
		options,
		question.CorrectAnswer,
		question.ImageURL,
		insights,
	).Scan(&question.ID, &question.CreatedAt, &question.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}

	return nil
}

// GetByID retrieves a question by its ID
func (r *QuestionRepository) GetByID(ctx context.Context, id string) (*domain.Question, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, section, domain, skill, difficulty, type, passage, image_page, question_text, options, correct_answer, image_url, ai_insights, created_at, updated_at
		FROM questions
		WHERE id = $1
	`, id)

	question, err := scanQuestion(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}

	return question, nil
}

// List retrieves questions matching the given filter
func (r *QuestionRepository) List(ctx context.Context, filter domain.QuestionFilter) ([]*domain.Question, error) {
	query := `
		SELECT id, section, domain, skill, difficulty, type, passage, image_page, question_text, options, correct_answer, image_url, ai_insights, created_at, updated_at
		FROM questions
		WHERE ($1 = '' OR section = $1)
		  AND ($2 = '' OR difficulty = $2)
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, filter.Section, filter.Difficulty)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	defer rows.Close()

	var questions []*domain.Question
	for rows.Next() {
		question, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		questions = append(questions, question)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating questions: %w", err)
	}

	return questions, nil
}

// Delete deletes a question
func (r *QuestionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

// BulkCreate persists multiple questions in a single transaction. Either all
// questions commit or none do.
func (r *QuestionRepository) BulkCreate(ctx context.Context, questions []*domain.Question) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, question := range questions {
		options, insights, err := marshalQuestionJSON(question)
		if err != nil {
			return err
		}

		err = tx.QueryRow(ctx, insertQuestionQuery,
			question.Section,
			question.Domain,
			question.Skill,
			question.Difficulty,
			question.Type,
			question.Passage,
			question.ImagePage,
			question.QuestionText,
			options,
			question.CorrectAnswer,
			question.ImageURL,
			insights,
		).Scan(&question.ID, &question.CreatedAt, &question.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create question: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// marshalQuestionJSON serializes the JSONB columns; nil slices become SQL NULL
func marshalQuestionJSON(question *domain.Question) (options, insights []byte, err error) {
	if question.Options != nil {
		options, err = json.Marshal(question.Options)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal options: %w", err)
		}
	}
	if question.AIInsights != nil {
		insights, err = json.Marshal(question.AIInsights)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal ai insights: %w", err)
		}
	}
	return options, insights, nil
}

func scanQuestion(row pgx.Row) (*domain.Question, error) {
	var question domain.Question
	var options, insights []byte

	err := row.Scan(
		&question.ID,
		&question.Section,
		&question.Domain,
		&question.Skill,
		&question.Difficulty,
		&question.Type,
		&question.Passage,
		&question.ImagePage,
		&question.QuestionText,
		&options,
		&question.CorrectAnswer,
		&question.ImageURL,
		&insights,
		&question.CreatedAt,
		&question.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(options) > 0 {
		if err := json.Unmarshal(options, &question.Options); err != nil {
			return nil, fmt.Errorf("failed to unmarshal options: %w", err)
		}
	}
	if len(insights) > 0 {
		if err := json.Unmarshal(insights, &question.AIInsights); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ai insights: %w", err)
		}
	}

	return &question, nil
}
