package exam

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/study-cloud/studyrag/internal/domain"
)

// parseQuestions decodes a model reply into validated questions. The whole
// trimmed reply is tried as JSON first; failing that, the first balanced
// JSON array is extracted. Question ids are rewritten sequentially so
// grading can rely on a contiguous 1..N range.
func parseQuestions(reply string) ([]domain.ExamQuestion, error) {
	trimmed := strings.TrimSpace(reply)
	if trimmed == "" {
		return nil, domain.NewParseError("empty reply", reply)
	}

	var questions []domain.ExamQuestion
	if err := json.Unmarshal([]byte(trimmed), &questions); err != nil {
		extracted, ok := extractArray(trimmed)
		if !ok {
			return nil, domain.NewParseError("no JSON array found", reply)
		}
		if err := json.Unmarshal([]byte(extracted), &questions); err != nil {
			return nil, domain.NewParseError(fmt.Sprintf("invalid JSON array: %v", err), reply)
		}
	}

	if len(questions) == 0 {
		return nil, domain.NewParseError("reply contains no questions", reply)
	}

	for i := range questions {
		if err := validateQuestion(&questions[i]); err != nil {
			return nil, domain.NewParseError(fmt.Sprintf("question %d: %v", i+1, err), reply)
		}
		questions[i].ID = i + 1
	}
	return questions, nil
}

func validateQuestion(q *domain.ExamQuestion) error {
	if !q.Type.Valid() {
		return fmt.Errorf("unknown type %q", q.Type)
	}
	if strings.TrimSpace(q.Question) == "" {
		return fmt.Errorf("empty question text")
	}
	if strings.TrimSpace(q.CorrectAnswer) == "" {
		return fmt.Errorf("empty correct answer")
	}
	if q.Type == domain.QuestionChoice && len(q.Options) == 0 {
		return fmt.Errorf("choice question without options")
	}
	if q.Type != domain.QuestionChoice && len(q.Options) > 0 {
		return fmt.Errorf("%s question with options", q.Type)
	}
	return nil
}

// extractArray scans for the first balanced top-level JSON array, skipping
// bracket characters inside string literals.
func extractArray(s string) (string, bool) {
	start := strings.IndexByte(s, '[')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '[', '{':
			depth++
		case ']', '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
