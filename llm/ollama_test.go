package llm

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"icarus-backend/logger"
)

func TestOllamaGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body ollamaGenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body.Stream {
			t.Error("stream must be false")
		}
		stop, _ := body.Options["stop"].([]any)
		if len(stop) != 1 || stop[0] != "\n###" {
			t.Errorf("stop = %v", body.Options["stop"])
		}
		json.NewEncoder(w).Encode(ollamaGenerateResponse{Response: "\"What is the slope?\""})
	}))
	defer srv.Close()

	o := NewOllama(srv.URL+"/", "tutor", "embed", logger.Nop())
	out, err := o.Generate(context.Background(), Request{Prompt: "hi", Stop: []string{"\n###"}})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "\"What is the slope?\"" {
		t.Fatalf("out = %q", out)
	}
	if o.SupportsAttachments() {
		t.Fatal("ollama should not claim attachment support")
	}
}

func TestOllamaGenerateHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	o := NewOllama(srv.URL, "missing", "embed", logger.Nop())
	if _, err := o.Generate(context.Background(), Request{Prompt: "hi"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestOllamaEmbedNormalizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body ollamaEmbedRequest
		json.NewDecoder(r.Body).Decode(&body)
		out := ollamaEmbedResponse{}
		for range body.Input {
			out.Embeddings = append(out.Embeddings, []float32{3, 4})
		}
		json.NewEncoder(w).Encode(out)
	}))
	defer srv.Close()

	o := NewOllama(srv.URL, "m", "embed", logger.Nop())
	vecs, err := o.EmbedDocuments(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("EmbedDocuments: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("len = %d", len(vecs))
	}
	if math.Abs(float64(vecs[0][0])-0.6) > 1e-6 || math.Abs(float64(vecs[0][1])-0.8) > 1e-6 {
		t.Fatalf("not normalized: %v", vecs[0])
	}
	q, err := o.EmbedQuery(context.Background(), "q")
	if err != nil || len(q) != 2 {
		t.Fatalf("EmbedQuery = %v, %v", q, err)
	}
}

func TestWithRetryStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := withRetry(ctx, func() (int, error) {
		calls++
		cancel()
		return 0, context.Canceled
	})
	if err == nil || calls != 1 {
		t.Fatalf("calls = %d, err = %v", calls, err)
	}
}
