package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// #region config

// Config holds connection settings for the embedding service.
type Config struct {
	// BaseURL of an OpenAI-compatible server (e.g. "http://localhost:8080").
	BaseURL string
	// Model is the embedding model name (optional for single-model servers).
	Model string
	// ChatModel enables narrative match comparison when set.
	ChatModel string
	// APIKey is sent as a bearer token when set.
	APIKey string
	// Timeout for HTTP requests (default 30s).
	Timeout time.Duration
}

// #endregion config

// #region client-struct

// Client calls an OpenAI-compatible /v1/embeddings endpoint, and
// optionally /v1/chat/completions for match comparison.
type Client struct {
	baseURL   string
	model     string
	chatModel string
	apiKey    string
	http      *http.Client
}

// NewClient creates a Client for the configured embedding service.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("provider base URL is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:   cfg.BaseURL,
		model:     cfg.Model,
		chatModel: cfg.ChatModel,
		apiKey:    cfg.APIKey,
		http:      &http.Client{Timeout: timeout},
	}, nil
}

// #endregion client-struct

// #region embeddings

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// EmbedText embeds one text via /v1/embeddings. Failures are wrapped
// in ErrUnavailable.
func (c *Client) EmbedText(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingRequest{Input: []string{text}, Model: c.model})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	respBody, err := c.post(ctx, "/v1/embeddings", body)
	if err != nil {
		return nil, err
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(respBody, &embResp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if len(embResp.Data) == 0 || len(embResp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding returned", ErrUnavailable)
	}
	return embResp.Data[0].Embedding, nil
}

// Similarity embeds both texts and returns their clamped cosine score.
func (c *Client) Similarity(ctx context.Context, textA, textB string) (float64, error) {
	return Scorer{Embedder: c}.Similarity(ctx, textA, textB)
}

// #endregion embeddings

// #region compare

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

const comparePrompt = `Compare these customer records. Return ONLY properly formatted markdown with no extra text. Format exactly like this:

**Key Differences:**
- **Address Line 1**: 623 vs 620 (street number difference)
- **Postal Code**: 24972 vs 24983 (different postal codes)

**Summary:**
High similarity due to matching name and city, minor address variations explain the score.

Test Customer: %s Valid Customer: %s`

// CompareEnabled reports whether a chat model is configured.
func (c *Client) CompareEnabled() bool {
	return c.chatModel != ""
}

// Compare asks the chat model to narrate the differences between a
// test and a valid record, given their JSON representations.
func (c *Client) Compare(ctx context.Context, testJSON, validJSON string) (string, error) {
	if c.chatModel == "" {
		return "", fmt.Errorf("no chat model configured")
	}

	body, err := json.Marshal(chatRequest{
		Model: c.chatModel,
		Messages: []chatMessage{
			{Role: "user", Content: fmt.Sprintf(comparePrompt, testJSON, validJSON)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	respBody, err := c.post(ctx, "/v1/chat/completions", body)
	if err != nil {
		return "", err
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", ErrUnavailable)
	}
	return chatResp.Choices[0].Message.Content, nil
}

// #endregion compare

// #region http

func (c *Client) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

// #endregion http

var _ Embedder = (*Client)(nil)
var _ Similarity = (*Client)(nil)
