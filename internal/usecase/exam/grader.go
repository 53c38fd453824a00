package exam

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/study-cloud/studyrag/internal/domain"
)

// shortAnswerPassScore is the minimum rubric score counted as correct.
const shortAnswerPassScore = 7

const rubricPrompt = `You are grading one short-answer exam question on a 0-10 scale.

Question: %s
Reference answer: %s
Student answer: %s

Bands: 10 = fully correct and complete; 7-9 = mostly correct with minor gaps; 4-6 = partially correct; 1-3 = mostly incorrect; 0 = irrelevant or blank.

Reply with the integer score only.`

// Grader scores answered questions. Choice, true/false and fill questions
// are graded locally; short answers go through the model rubric with a
// keyword-overlap fallback.
type Grader struct {
	gen    Generator
	logger *zap.Logger
}

// NewGrader creates a grading engine.
func NewGrader(gen Generator, logger *zap.Logger) *Grader {
	return &Grader{gen: gen, logger: logger}
}

// Grade scores one question. It never fails: every path resolves to an
// outcome so one bad question cannot abort a submission.
func (g *Grader) Grade(ctx context.Context, q domain.ExamQuestion, userAnswer string) domain.GradingOutcome {
	out := domain.GradingOutcome{
		QuestionID:    q.ID,
		Type:          q.Type,
		UserAnswer:    userAnswer,
		CorrectAnswer: q.CorrectAnswer,
		Explanation:   q.Explanation,
	}

	switch q.Type {
	case domain.QuestionChoice, domain.QuestionTrueFalse:
		if strings.TrimSpace(userAnswer) == strings.TrimSpace(q.CorrectAnswer) {
			out.Score = 10
			out.IsCorrect = true
		}

	case domain.QuestionFill:
		if fillMatches(userAnswer, q.CorrectAnswer) {
			out.Score = 10
			out.IsCorrect = true
		}

	case domain.QuestionShort:
		out.Score = g.gradeShort(ctx, q, userAnswer)
		out.IsCorrect = out.Score >= shortAnswerPassScore
	}

	return out
}

// GradeAll scores a full submission. Answers are keyed by question id; a
// missing answer grades as blank.
func (g *Grader) GradeAll(
	ctx context.Context, questions []domain.ExamQuestion, answers map[int]string,
) ([]domain.GradingOutcome, domain.ExamStatistics) {
	outcomes := make([]domain.GradingOutcome, 0, len(questions))
	for _, q := range questions {
		outcomes = append(outcomes, g.Grade(ctx, q, answers[q.ID]))
	}
	return outcomes, domain.ComputeStatistics(outcomes)
}

// fillMatches applies the tiered fill-in check: case-insensitive equality,
// then containment either way, then character overlap above 0.7 when both
// answers are longer than two runes.
func fillMatches(userAnswer, correct string) bool {
	u := strings.ToLower(strings.TrimSpace(userAnswer))
	c := strings.ToLower(strings.TrimSpace(correct))
	if u == "" || c == "" {
		return false
	}
	if u == c {
		return true
	}
	if strings.Contains(u, c) || strings.Contains(c, u) {
		return true
	}

	uRunes := []rune(u)
	cRunes := []rune(c)
	if len(uRunes) <= 2 || len(cRunes) <= 2 {
		return false
	}
	return charOverlap(uRunes, cRunes) > 0.7
}

// charOverlap counts user runes that appear anywhere in the correct answer,
// duplicates included, over the longer answer's length.
func charOverlap(user, correct []rune) float64 {
	set := make(map[rune]bool, len(correct))
	for _, r := range correct {
		set[r] = true
	}
	common := 0
	for _, r := range user {
		if set[r] {
			common++
		}
	}
	longer := len(user)
	if len(correct) > longer {
		longer = len(correct)
	}
	return float64(common) / float64(longer)
}

// gradeShort asks the model for a rubric score, falling back to the keyword
// heuristic when the call fails or the reply is not a number.
func (g *Grader) gradeShort(ctx context.Context, q domain.ExamQuestion, userAnswer string) int {
	prompt := fmt.Sprintf(rubricPrompt, q.Question, q.CorrectAnswer, userAnswer)

	reply, err := g.gen.GenerateContent(ctx, prompt)
	if err != nil {
		g.logger.Warn("rubric scoring failed, using keyword heuristic",
			zap.Int("question_id", q.ID), zap.Error(err))
		return keywordScore(userAnswer, q.CorrectAnswer)
	}

	score, ok := parseScore(reply)
	if !ok {
		g.logger.Warn("rubric reply not a score, using keyword heuristic",
			zap.Int("question_id", q.ID), zap.String("reply", reply))
		return keywordScore(userAnswer, q.CorrectAnswer)
	}
	return score
}

// parseScore reads the first integer in the reply and clamps it to [0, 10].
func parseScore(reply string) (int, bool) {
	trimmed := strings.TrimSpace(reply)
	if n, err := strconv.Atoi(trimmed); err == nil {
		return clampScore(n), true
	}

	start := -1
	for i, r := range trimmed {
		if unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			n, err := strconv.Atoi(trimmed[start:i])
			if err != nil {
				return 0, false
			}
			return clampScore(n), true
		}
	}
	if start >= 0 {
		n, err := strconv.Atoi(trimmed[start:])
		if err != nil {
			return 0, false
		}
		return clampScore(n), true
	}
	return 0, false
}

func clampScore(n int) int {
	if n < 0 {
		return 0
	}
	if n > 10 {
		return 10
	}
	return n
}

// keywordScore maps the share of reference keywords present in the student
// answer onto the rubric scale. Blank input on either side scores zero.
func keywordScore(userAnswer, correct string) int {
	userTokens := tokenize(userAnswer)
	correctTokens := tokenize(correct)
	if len(userTokens) == 0 || len(correctTokens) == 0 {
		return 0
	}

	userSet := make(map[string]bool, len(userTokens))
	for _, tok := range userTokens {
		userSet[tok] = true
	}

	matched := 0
	for _, tok := range correctTokens {
		if userSet[tok] {
			matched++
		}
	}
	ratio := float64(matched) / float64(len(correctTokens))

	switch {
	case ratio >= 0.8:
		return 10
	case ratio >= 0.6:
		return 8
	case ratio >= 0.4:
		return 6
	case ratio >= 0.2:
		return 4
	default:
		return 2
	}
}

// tokenize lowercases and splits on anything that is not a letter or digit,
// dropping duplicates while preserving order.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}
