// Package llm adapts hosted and local language models to the narrow
// generate/embed contracts the services depend on.
package llm

import (
	"context"
	"errors"
	"math"
	"time"
)

var (
	ErrEmptyResponse = errors.New("llm: model returned empty content")
	ErrBlocked       = errors.New("llm: prompt blocked by provider")
)

// Attachment is a binary document sent alongside the prompt.
type Attachment struct {
	MIMEType string
	Data     []byte
}

// Request is one generation call.
type Request struct {
	Prompt      string
	Attachments []Attachment
	// Stop sequences end generation early when the provider supports them.
	Stop []string
}

// Generator produces text from a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	// Name identifies the provider/model; stored as the source of scores.
	Name() string
	// SupportsAttachments reports whether binary parts reach the model.
	SupportsAttachments() bool
}

const (
	maxRetries     = 3
	initialBackoff = time.Second
)

// withRetry retries fn with exponential backoff, stopping early when the
// context ends.
func withRetry[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	var (
		zero T
		err  error
	)
	backoff := initialBackoff
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		var out T
		out, err = fn()
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
	}
	return zero, err
}

func normalize(vec []float32) []float32 {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
