// Package exam generates questions from corpus documents and grades answers
// with a tiered strategy per question type.
package exam

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"go.uber.org/zap"

	"github.com/study-cloud/studyrag/internal/domain"
)

const generationPrompt = `You are an exam author. Write %d exam questions based only on the passages below.

%s

Requirements:
- Use a mix of question types: "choice" (multiple choice with 4 options), "true_false", "fill" (fill in the blank), "short" (short answer).
- Every question must be answerable from the passages alone.
- Reply with a JSON array only, no surrounding prose. Each element:
  {"id": 1, "type": "choice", "question": "...", "options": ["A. ...", "B. ...", "C. ...", "D. ..."], "correct_answer": "...", "explanation": "..."}
- Omit "options" for every type except "choice".`

// Composer samples document passages and asks the model for questions.
type Composer struct {
	gen          Generator
	passageRunes int
	rng          *rand.Rand
	logger       *zap.Logger
}

// NewComposer creates an exam composer. The rand source is injectable so
// passage sampling is reproducible in tests.
func NewComposer(gen Generator, passageRunes int, rng *rand.Rand, logger *zap.Logger) *Composer {
	if passageRunes <= 0 {
		passageRunes = 500
	}
	return &Composer{gen: gen, passageRunes: passageRunes, rng: rng, logger: logger}
}

// Compose generates numQuestions questions from the document text. The model
// reply is parsed strictly first, then via bracket extraction; a reply that
// still fails yields a *domain.ParseError carrying the raw output.
func (c *Composer) Compose(ctx context.Context, documentText string, numQuestions int) ([]domain.ExamQuestion, error) {
	if numQuestions <= 0 {
		return nil, fmt.Errorf("number of questions must be positive, got %d", numQuestions)
	}
	text := strings.TrimSpace(documentText)
	if text == "" {
		return nil, domain.ErrEmptyDocument
	}

	passages := c.samplePassages(text, numQuestions)
	prompt := buildGenerationPrompt(passages, numQuestions)

	reply, err := c.gen.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate questions: %w", err)
	}

	questions, err := parseQuestions(reply)
	if err != nil {
		c.logger.Warn("exam reply could not be parsed", zap.Error(err))
		return nil, err
	}
	return questions, nil
}

// samplePassages cuts the text into fixed-size windows and, when there are
// more windows than questions, picks a uniform sample without replacement.
func (c *Composer) samplePassages(text string, numQuestions int) []string {
	runes := []rune(text)

	var windows []string
	for start := 0; start < len(runes); start += c.passageRunes {
		end := start + c.passageRunes
		if end > len(runes) {
			end = len(runes)
		}
		windows = append(windows, string(runes[start:end]))
	}

	if len(windows) <= numQuestions {
		return windows
	}

	perm := c.rng.Perm(len(windows))
	picked := make([]string, 0, numQuestions)
	for _, idx := range perm[:numQuestions] {
		picked = append(picked, windows[idx])
	}
	return picked
}

func buildGenerationPrompt(passages []string, numQuestions int) string {
	var b strings.Builder
	for i, p := range passages {
		fmt.Fprintf(&b, "Passage %d:\n%s\n\n", i+1, p)
	}
	return fmt.Sprintf(generationPrompt, numQuestions, strings.TrimSpace(b.String()))
}
