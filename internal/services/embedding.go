package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"google.golang.org/genai"
)

// Embedder maps text to a fixed-length vector. Implementations are built once
// per process and are safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// teiEmbedder talks to a local sentence-transformers server exposing the
// text-embeddings-inference /embed endpoint.
type teiEmbedder struct {
	baseURL   string
	dimension int
	client    *http.Client
}

func NewTEIEmbedder(baseURL string, dimension int, timeout time.Duration) Embedder {
	return &teiEmbedder{
		baseURL:   strings.TrimRight(baseURL, "/"),
		dimension: dimension,
		client:    &http.Client{Timeout: timeout},
	}
}

type teiRequest struct {
	Inputs   string `json:"inputs"`
	Truncate bool   `json:"truncate"`
}

func (e *teiEmbedder) Dimension() int { return e.dimension }

func (e *teiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty input", ErrEmbeddingFailed)
	}

	body, err := json.Marshal(teiRequest{Inputs: text, Truncate: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: embedding server returned %d: %s", ErrEmbeddingFailed, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrEmbeddingFailed, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty embedding result", ErrEmbeddingFailed)
	}

	return validateEmbedding(out[0], e.dimension)
}

// geminiEmbedder uses the Gemini embedding API reduced to the configured size.
type geminiEmbedder struct {
	client    *genai.Client
	model     string
	dimension int
}

func NewGeminiEmbedder(client *genai.Client, model string, dimension int) Embedder {
	if model == "" || strings.Contains(model, "/") {
		model = "text-embedding-004"
	}
	return &geminiEmbedder{client: client, model: model, dimension: dimension}
}

// geminiMaxInputBytes keeps requests around the model's 10k token input limit.
const geminiMaxInputBytes = 40000

// clampUTF8 cuts s to at most limit bytes without splitting a rune.
func clampUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func (g *geminiEmbedder) Dimension() int { return g.dimension }

func (g *geminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty input", ErrEmbeddingFailed)
	}

	text = clampUTF8(text, geminiMaxInputBytes)

	dim := int32(g.dimension)
	result, err := g.client.Models.EmbedContent(ctx, g.model, genai.Text(text), &genai.EmbedContentConfig{
		TaskType:             "SEMANTIC_SIMILARITY",
		OutputDimensionality: &dim,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	if result == nil || len(result.Embeddings) == 0 || result.Embeddings[0] == nil {
		return nil, fmt.Errorf("%w: empty embedding result", ErrEmbeddingFailed)
	}

	return validateEmbedding(result.Embeddings[0].Values, g.dimension)
}

func validateEmbedding(vec []float32, dimension int) ([]float32, error) {
	if len(vec) != dimension {
		return nil, fmt.Errorf("%w: expected %d dimensions, got %d", ErrEmbeddingFailed, dimension, len(vec))
	}
	for i, v := range vec {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, fmt.Errorf("%w: non-finite value at %d", ErrEmbeddingFailed, i)
		}
	}
	return vec, nil
}
