package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	defaultDimensions = 1024
	// maxErrorBody bounds how much of a failed response ends up in the error.
	maxErrorBody = 2048
)

// ErrEmbeddingCount is returned when the API does not answer every input exactly once.
var ErrEmbeddingCount = errors.New("embedding response does not match input")

// EmbeddingClient calls the /embeddings endpoint of an OpenAI-compatible API, such as
// DashScope's compatible mode.
type EmbeddingClient struct {
	apiKey     string
	model      string
	endpoint   string
	dimensions int
	httpClient *http.Client
}

// NewEmbeddingClient creates a client. baseURL is the API root, e.g.
// https://dashscope.aliyuncs.com/compatible-mode/v1. A non-positive dimensions value
// selects 1024.
func NewEmbeddingClient(apiKey, model, baseURL string, dimensions int) *EmbeddingClient {
	if dimensions <= 0 {
		dimensions = defaultDimensions
	}
	return &EmbeddingClient{
		apiKey:     apiKey,
		model:      model,
		endpoint:   strings.TrimRight(baseURL, "/") + "/embeddings",
		dimensions: dimensions,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type embeddingRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data  []embeddingData `json:"data"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

type embeddingData struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

// Dimensions returns the vector size requested from the API.
func (ec *EmbeddingClient) Dimensions() int { return ec.dimensions }

// Embed returns one vector per text, in input order. A response that skips, repeats
// or misnumbers an input, or returns vectors of the wrong size, is an error.
func (ec *EmbeddingClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := ec.post(ctx, embeddingRequest{Input: texts, Model: ec.model, Dimensions: ec.dimensions})
	if err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) || vectors[d.Index] != nil {
			return nil, fmt.Errorf("%w: index %d", ErrEmbeddingCount, d.Index)
		}
		if len(d.Embedding) != ec.dimensions {
			return nil, fmt.Errorf("%w: index %d has %d dimensions, want %d",
				ErrEmbeddingCount, d.Index, len(d.Embedding), ec.dimensions)
		}
		vectors[d.Index] = d.Embedding
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrEmbeddingCount, len(resp.Data), len(texts))
	}

	log.Debug().
		Int("texts", len(texts)).
		Int("tokens", resp.Usage.TotalTokens).
		Msg("Generated embeddings")
	return vectors, nil
}

// EmbedQuery embeds a single text.
func (ec *EmbeddingClient) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := ec.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("query embedding: %w", err)
	}
	return vectors[0], nil
}

func (ec *EmbeddingClient) post(ctx context.Context, body embeddingRequest) (*embeddingResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ec.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+ec.apiKey)

	resp, err := ec.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding API call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("embedding API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}
	return &out, nil
}
