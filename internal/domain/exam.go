package domain

// QuestionType enumerates the supported exam question kinds.
type QuestionType string

const (
	QuestionChoice    QuestionType = "choice"
	QuestionTrueFalse QuestionType = "true_false"
	QuestionFill      QuestionType = "fill"
	QuestionShort     QuestionType = "short"
)

// Valid reports whether t is one of the supported question kinds.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionChoice, QuestionTrueFalse, QuestionFill, QuestionShort:
		return true
	}
	return false
}

// ExamQuestion is one generated question. Options is populated only for
// choice questions.
type ExamQuestion struct {
	ID            int          `json:"id"`
	Type          QuestionType `json:"type"`
	Question      string       `json:"question"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correct_answer"`
	Explanation   string       `json:"explanation,omitempty"`
}

// GradingOutcome is the result of grading one answered question.
// Score is on a 0-10 scale for every question type.
type GradingOutcome struct {
	QuestionID    int          `json:"question_id"`
	Type          QuestionType `json:"type"`
	UserAnswer    string       `json:"user_answer"`
	CorrectAnswer string       `json:"correct_answer"`
	Score         int          `json:"score"`
	IsCorrect     bool         `json:"is_correct"`
	Explanation   string       `json:"explanation,omitempty"`
}

// ExamStatistics aggregates a full grading pass. Accuracy is the share of
// correct answers as a percentage (0-100). TotalScore feeds the average but
// is not part of the wire payload.
type ExamStatistics struct {
	TotalQuestions int     `json:"total_questions"`
	CorrectCount   int     `json:"correct_answers"`
	TotalScore     int     `json:"-"`
	AverageScore   float64 `json:"average_score"`
	Accuracy       float64 `json:"accuracy"`
}

// ComputeStatistics derives aggregate statistics from grading outcomes.
// An empty slice yields all-zero statistics.
func ComputeStatistics(outcomes []GradingOutcome) ExamStatistics {
	stats := ExamStatistics{TotalQuestions: len(outcomes)}
	for _, o := range outcomes {
		stats.TotalScore += o.Score
		if o.IsCorrect {
			stats.CorrectCount++
		}
	}
	if stats.TotalQuestions > 0 {
		stats.AverageScore = float64(stats.TotalScore) / float64(stats.TotalQuestions)
		stats.Accuracy = float64(stats.CorrectCount) / float64(stats.TotalQuestions) * 100
	}
	return stats
}
