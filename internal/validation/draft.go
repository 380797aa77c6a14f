package validation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aiglow/satbank/internal/domain"
)

// ValidateDraft checks that a question draft is well-formed enough to
// persist: required text fields, unique option labels, and a correct answer
// that names one of the options when options are present.
func ValidateDraft(d *domain.QuestionDraft) error {
	if strings.TrimSpace(d.QuestionText) == "" {
		return fmt.Errorf("question text cannot be empty")
	}
	if strings.TrimSpace(d.Section) == "" {
		return fmt.Errorf("question section cannot be empty")
	}

	if len(d.Options) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(d.Options))
	for _, opt := range d.Options {
		if strings.TrimSpace(opt.Label) == "" {
			return fmt.Errorf("option label cannot be empty")
		}
		if seen[opt.Label] {
			return fmt.Errorf("duplicate option label: %s", opt.Label)
		}
		seen[opt.Label] = true
	}

	if d.CorrectAnswer != "" && !seen[d.CorrectAnswer] {
		return fmt.Errorf("correct answer %q does not match any option label", d.CorrectAnswer)
	}

	return nil
}

// ApplyEdit sets a field on the draft at index. fieldPath is either a scalar
// field name or options.<i>.<field> for one level of nesting. The edit
// mutates only the addressed field; sibling fields are untouched.
func ApplyEdit(drafts []domain.QuestionDraft, index int, fieldPath, value string) error {
	if index < 0 || index >= len(drafts) {
		return fmt.Errorf("draft index %d out of range", index)
	}

	d := &drafts[index]
	parts := strings.Split(fieldPath, ".")

	switch {
	case len(parts) == 1:
		return setDraftField(d, parts[0], value)
	case len(parts) == 3 && parts[0] == "options":
		optIndex, err := strconv.Atoi(parts[1])
		if err != nil {
			return fmt.Errorf("invalid option index %q", parts[1])
		}
		if optIndex < 0 || optIndex >= len(d.Options) {
			return fmt.Errorf("option index %d out of range", optIndex)
		}
		return setOptionField(&d.Options[optIndex], parts[2], value)
	default:
		return fmt.Errorf("unsupported field path %q", fieldPath)
	}
}

func setDraftField(d *domain.QuestionDraft, field, value string) error {
	switch field {
	case "section":
		d.Section = value
	case "domain":
		d.Domain = value
	case "skill":
		d.Skill = value
	case "difficulty":
		d.Difficulty = value
	case "type":
		d.Type = value
	case "passage":
		d.Passage = &value
	case "imagePage":
		d.ImagePage = value
	case "questionText":
		d.QuestionText = value
	case "correctAnswer":
		d.CorrectAnswer = value
	case "imageUrl":
		d.ImageURL = value
	default:
		return fmt.Errorf("unknown draft field %q", field)
	}
	return nil
}

func setOptionField(opt *domain.Option, field, value string) error {
	switch field {
	case "label":
		opt.Label = value
	case "text":
		opt.Text = value
	case "explanation":
		opt.Explanation = value
	default:
		return fmt.Errorf("unknown option field %q", field)
	}
	return nil
}
