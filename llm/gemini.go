package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"icarus-backend/logger"
)

// embedBatchSize is the provider's per-request ceiling.
const embedBatchSize = 100

// Gemini implements Generator and the vector store Embedder on one client.
type Gemini struct {
	client     *genai.Client
	model      string
	embedModel string
	log        *logger.Logger
}

// NewGemini creates the client. An empty key is allowed so the server can
// start; calls will fail until it is set.
func NewGemini(ctx context.Context, apiKey, model, embedModel string, log *logger.Logger) (*Gemini, error) {
	if apiKey == "" {
		log.Warn("GEMINI_API_KEY not set")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Gemini{
		client:     client,
		model:      model,
		embedModel: embedModel,
		log:        log.With("provider", "gemini"),
	}, nil
}

func (g *Gemini) Name() string              { return "gemini:" + g.model }
func (g *Gemini) SupportsAttachments() bool { return true }
func (g *Gemini) Close() error              { return g.client.Close() }

func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	m := g.client.GenerativeModel(g.model)
	if len(req.Stop) > 0 {
		m.StopSequences = req.Stop
	}

	parts := []genai.Part{genai.Text(req.Prompt)}
	for _, a := range req.Attachments {
		parts = append(parts, genai.Blob{MIMEType: a.MIMEType, Data: a.Data})
	}

	resp, err := m.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return "", fmt.Errorf("%w: %s", ErrBlocked, resp.PromptFeedback.BlockReason)
	}

	var out strings.Builder
	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop && cand.FinishReason != genai.FinishReasonUnspecified {
			g.log.Warn("candidate finished early", "candidate", i, "reason", cand.FinishReason.String())
		}
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				out.WriteString(string(t))
			}
		}
		// first candidate with content wins
		if out.Len() > 0 {
			break
		}
	}
	if out.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return out.String(), nil
}

func (g *Gemini) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	em := g.client.EmbeddingModel(g.embedModel)
	em.TaskType = genai.TaskTypeRetrievalDocument

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := min(start+embedBatchSize, len(texts))
		batch := em.NewBatch()
		for _, t := range texts[start:end] {
			batch.AddContent(genai.Text(t))
		}
		res, err := withRetry(ctx, func() (*genai.BatchEmbedContentsResponse, error) {
			return em.BatchEmbedContents(ctx, batch)
		})
		if err != nil {
			return nil, fmt.Errorf("gemini batch embed: %w", err)
		}
		if len(res.Embeddings) != end-start {
			return nil, fmt.Errorf("gemini batch embed: got %d embeddings for %d texts", len(res.Embeddings), end-start)
		}
		for _, e := range res.Embeddings {
			out = append(out, normalize(e.Values))
		}
	}
	return out, nil
}

func (g *Gemini) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	em := g.client.EmbeddingModel(g.embedModel)
	em.TaskType = genai.TaskTypeRetrievalQuery

	res, err := withRetry(ctx, func() (*genai.EmbedContentResponse, error) {
		return em.EmbedContent(ctx, genai.Text(text))
	})
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if res.Embedding == nil {
		return nil, ErrEmptyResponse
	}
	return normalize(res.Embedding.Values), nil
}
