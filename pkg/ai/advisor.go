package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	// DefaultAdviceModel is the hosted model used when none is configured.
	DefaultAdviceModel = "gemma-7b-it"
	// DefaultAdviceTemperature and DefaultAdviceMaxTokens fix the sampling of advice answers.
	DefaultAdviceTemperature = 0.5
	DefaultAdviceMaxTokens   = 500
)

var ErrEmptyQuestion = errors.New("question required")

const adviceTemplate = `**Question:** %s

**Guidelines for Answer:**
- **Accuracy:** Ensure that all information provided is medically accurate and up-to-date.
- **Clarity:** Explain complex medical terms in simple language that patients can easily understand.
- **Patient Focus:** Tailor your response to prioritize patient safety and understanding. Provide clear instructions or advice where applicable.

**Final Answer:**
Please generate a response that combines the detailed medical information, relevant research insights, and patient-friendly advice. Include information about Ayurvedic plants in the composition and suggest an alternative medicine or treatment option at the end of your response.
`

// AdvicePrompt renders a question into the fixed advice instructions.
func AdvicePrompt(question string) string {
	return fmt.Sprintf(adviceTemplate, strings.TrimSpace(question))
}

// Advisor answers free-text health questions through a TextGenerator.
// It performs a single call per question, with no retry and no fallback text.
type Advisor struct {
	gen TextGenerator
}

func NewAdvisor(gen TextGenerator) *Advisor {
	return &Advisor{gen: gen}
}

// Advise returns the model's raw answer for question.
func (a *Advisor) Advise(ctx context.Context, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", ErrEmptyQuestion
	}
	if a == nil || a.gen == nil {
		return "", errors.New("advice generator not configured")
	}
	answer, err := a.gen.GenerateText(ctx, "", AdvicePrompt(question))
	if err != nil {
		return "", fmt.Errorf("generate advice: %w", err)
	}
	return answer, nil
}
