// Package quiz turns chunks of text into reviewed multiple-choice questions
// using a language model.
package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgallion1/quizzer/internal/chunker"
	"github.com/dgallion1/quizzer/internal/llm"
)

// ErrModelInvocation is returned when a generation or review call fails
// after the retry policy is exhausted.
var ErrModelInvocation = errors.New("model invocation failed")

// Verdict is the reviewer's judgement of a candidate set.
type Verdict struct {
	IsRelevant bool   `json:"is_relevant"`
	Feedback   string `json:"feedback"`
}

// Client generates and reviews candidates for a chunk.
type Client struct {
	provider llm.Provider
	policy   llm.RetryPolicy
	log      *slog.Logger
}

func NewClient(provider llm.Provider, policy llm.RetryPolicy, log *slog.Logger) *Client {
	return &Client{provider: provider, policy: policy, log: log}
}

// Generate asks the model for questions about the chunk and stamps each
// with the chunk's ID and page number.
func (c *Client) Generate(ctx context.Context, ch chunker.Chunk) ([]Candidate, error) {
	prompt := BuildGeneratePrompt(ch.Text)

	var cands []Candidate
	err := c.call(ctx, ch, "generate", func(ctx context.Context) error {
		reply, err := c.provider.CompleteJSON(ctx, prompt, QuizSetSchema)
		if err != nil {
			return err
		}
		cands, err = Normalize(reply)
		return err
	})
	if err != nil {
		return nil, err
	}

	for i := range cands {
		cands[i].ChunkID = ch.ID
		cands[i].PageNumber = ch.PageNumber
	}
	return cands, nil
}

// Review asks the model whether cands are relevant to the chunk.
func (c *Client) Review(ctx context.Context, ch chunker.Chunk, cands []Candidate) (Verdict, error) {
	prompt := BuildReviewPrompt(ch.Text, cands)

	var v Verdict
	err := c.call(ctx, ch, "review", func(ctx context.Context) error {
		reply, err := c.provider.CompleteJSON(ctx, prompt, ReviewSchema)
		if err != nil {
			return err
		}
		v = Verdict{}
		if err := json.Unmarshal(reply, &v); err != nil {
			return fmt.Errorf("%w: %v", llm.ErrMalformedReply, err)
		}
		return nil
	})
	return v, err
}

func (c *Client) call(ctx context.Context, ch chunker.Chunk, op string, fn func(context.Context) error) error {
	err := c.policy.Do(ctx, fn, func(attempt int, err error) {
		c.log.Warn("model call failed, retrying",
			"op", op, "chunk_id", ch.ID, "attempt", attempt+1, "error", err)
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s chunk %s: %w", ErrModelInvocation, op, ch.ID, err)
	}
	return nil
}
