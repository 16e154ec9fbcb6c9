package ai

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const answerPrompt = `You are a maintenance AI assistant. Use the provided context from technical documents
to answer user questions accurately.

Context:
%s

Question:
%s`

// Answerer turns retrieved context and a user question into a model answer.
type Answerer struct {
	gen     IGenerator
	timeout int
}

// NewAnswerer builds an Answerer. timeout is in seconds, 0 disables it.
func NewAnswerer(gen IGenerator, timeout int) *Answerer {
	return &Answerer{gen: gen, timeout: timeout}
}

func (a *Answerer) Answer(ctx context.Context, contextText, query string) (string, error) {
	if a == nil || a.gen == nil {
		return "", ErrUnavailable
	}
	return a.generateText(ctx, buildPrompt(contextText, query))
}

func (a *Answerer) generateText(ctx context.Context, prompt string) (string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(a.timeout)*time.Second)
		defer cancel()
	}
	resp, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp)
	if text == "" {
		return "", fmt.Errorf("empty ai response")
	}
	return text, nil
}

func buildPrompt(contextText, query string) string {
	return fmt.Sprintf(answerPrompt, strings.TrimSpace(contextText), strings.TrimSpace(query))
}
