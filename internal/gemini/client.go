package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"leafscan/internal/metrics"
)

const (
	DefaultTimeout = 20 * time.Second
	maxErrorBody   = 2048
)

type Config struct {
	APIKey   string
	Endpoint string
	Timeout  time.Duration
	// HTTPClient defaults to a new http.Client when nil.
	HTTPClient *http.Client
}

// Client is the only way the service talks to the text generation API.
// Generate never returns an error: every failure becomes an absent result.
type Client struct {
	apiKey     string
	endpoint   string
	timeout    time.Duration
	httpClient *http.Client
	metrics    *metrics.Metrics
}

type Part struct {
	Text string `json:"text"`
}

type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type GenerationConfig struct {
	ResponseMimeType string `json:"responseMimeType,omitempty"`
}

type GenerateRequest struct {
	Contents         []Content         `json:"contents"`
	GenerationConfig *GenerationConfig `json:"generationConfig,omitempty"`
}

type GenerateResponse struct {
	Candidates []struct {
		Content Content `json:"content"`
	} `json:"candidates"`
}

func NewClient(cfg Config, m *metrics.Metrics) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		apiKey:     cfg.APIKey,
		endpoint:   cfg.Endpoint,
		timeout:    timeout,
		httpClient: httpClient,
		metrics:    m,
	}
}

// Generate sends a single-turn prompt. When structured is true the service is
// asked to answer with JSON only; the caller still has to parse it.
func (c *Client) Generate(ctx context.Context, prompt string, structured bool) (string, bool) {
	if c.apiKey == "" {
		log.Println("[gemini] GEMINI_API_KEY is not configured, skipping generation")
		c.metrics.ObserveGeneration("not_configured")
		return "", false
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reqBody := GenerateRequest{
		Contents: []Content{
			{
				Role:  "user",
				Parts: []Part{{Text: prompt}},
			},
		},
	}
	if structured {
		reqBody.GenerationConfig = &GenerationConfig{ResponseMimeType: "application/json"}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		log.Printf("[gemini] failed to marshal request: %v", err)
		c.metrics.ObserveGeneration("transport_error")
		return "", false
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		log.Printf("[gemini] failed to create request: %v", err)
		c.metrics.ObserveGeneration("transport_error")
		return "", false
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("x-goog-api-key", c.apiKey)

	response, err := c.httpClient.Do(request)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			log.Printf("[gemini] request timed out after %s", c.timeout)
			c.metrics.ObserveGeneration("timeout")
		} else {
			log.Printf("[gemini] request failed: %v", err)
			c.metrics.ObserveGeneration("transport_error")
		}
		return "", false
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(response.Body, maxErrorBody))
		log.Printf("[gemini] API returned status %d: %s", response.StatusCode, strings.TrimSpace(string(body)))
		c.metrics.ObserveGeneration("http_error")
		return "", false
	}

	var result GenerateResponse
	if err := json.NewDecoder(response.Body).Decode(&result); err != nil {
		log.Printf("[gemini] failed to decode response: %v", err)
		c.metrics.ObserveGeneration("decode_error")
		return "", false
	}

	text, ok := firstCandidateText(&result)
	if !ok {
		log.Println("[gemini] response contained no candidate text")
		c.metrics.ObserveGeneration("empty")
		return "", false
	}

	c.metrics.ObserveGeneration("ok")
	return text, true
}

func firstCandidateText(r *GenerateResponse) (string, bool) {
	if len(r.Candidates) == 0 || len(r.Candidates[0].Content.Parts) == 0 {
		return "", false
	}
	text := strings.TrimSpace(r.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return "", false
	}
	return text, true
}

func (c *Client) String() string {
	return fmt.Sprintf("gemini(%s, timeout=%s)", c.endpoint, c.timeout)
}
