package exam

import "context"

// Generator produces free text from a prompt. Used for both question
// generation and short-answer scoring.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}
