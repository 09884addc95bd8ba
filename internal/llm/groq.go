package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultGroqBaseURL = "https://api.groq.com/openai/v1"

// GroqProvider calls Groq's OpenAI-compatible chat completions endpoint in
// JSON mode. The schema is given to the model as a system instruction.
type GroqProvider struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	httpClient  *http.Client
	stats       *CallStats
}

func NewGroqProvider(baseURL, apiKey, model string, temperature float64) *GroqProvider {
	if baseURL == "" {
		baseURL = defaultGroqBaseURL
	}
	return &GroqProvider{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		model:       model,
		temperature: temperature,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		stats: NewCallStats(time.Hour),
	}
}

func (p *GroqProvider) Name() string     { return ProviderGroq }
func (p *GroqProvider) Model() string    { return p.model }
func (p *GroqProvider) Stats() *CallStats { return p.stats }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *GroqProvider) CompleteJSON(ctx context.Context, prompt string, schema *Schema) (reply []byte, err error) {
	start := time.Now()
	defer func() { p.stats.Record(schemaName(schema), time.Since(start), err) }()

	system := "Respond with a single JSON object and nothing else."
	if schema != nil {
		schemaJSON, err := json.Marshal(schema)
		if err != nil {
			return nil, fmt.Errorf("marshal schema: %w", err)
		}
		system = fmt.Sprintf("Respond with a single JSON object that conforms to this JSON Schema and nothing else:\n%s", schemaJSON)
	}

	body, err := json.Marshal(chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		Temperature:    p.temperature,
		ResponseFormat: responseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &RetryableError{Message: fmt.Sprintf("groq api: %s", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &RetryableError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("read response: %s", err)}
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &RetryableError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("groq api status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var apiResp chatResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrMalformedReply, err)
	}
	if apiResp.Error != nil {
		return nil, fmt.Errorf("groq error: %s: %s", apiResp.Error.Type, apiResp.Error.Message)
	}
	if len(apiResp.Choices) == 0 || strings.TrimSpace(apiResp.Choices[0].Message.Content) == "" {
		return nil, fmt.Errorf("%w: empty response from groq", ErrMalformedReply)
	}

	return []byte(stripCodeBlock(apiResp.Choices[0].Message.Content)), nil
}

// Close releases resources.
func (p *GroqProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}
