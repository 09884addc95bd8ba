package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GoogleProvider calls Gemini models with a JSON response schema.
type GoogleProvider struct {
	client      *genai.Client
	model       string
	temperature float32
	timeout     time.Duration
	stats       *CallStats
}

func NewGoogleProvider(ctx context.Context, apiKey, model string, temperature float64) (*GoogleProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GoogleProvider{
		client:      client,
		model:       model,
		temperature: float32(temperature),
		stats:       NewCallStats(time.Hour),
	}, nil
}

func (p *GoogleProvider) Name() string     { return ProviderGoogle }
func (p *GoogleProvider) Model() string    { return p.model }
func (p *GoogleProvider) Stats() *CallStats { return p.stats }

func (p *GoogleProvider) CompleteJSON(ctx context.Context, prompt string, schema *Schema) (reply []byte, err error) {
	start := time.Now()
	defer func() { p.stats.Record(schemaName(schema), time.Since(start), err) }()

	model := p.client.GenerativeModel(p.model)
	model.SetTemperature(p.temperature)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = toGenaiSchema(schema)

	callCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	resp, err := model.GenerateContent(callCtx, genai.Text(prompt))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var blocked *genai.BlockedError
		if errors.As(err, &blocked) {
			return nil, fmt.Errorf("gemini blocked request: %w", err)
		}
		return nil, &RetryableError{Message: err.Error()}
	}

	text := responseText(resp)
	if text == "" {
		return nil, fmt.Errorf("%w: empty response from gemini", ErrMalformedReply)
	}
	return []byte(stripCodeBlock(text)), nil
}

func (p *GoogleProvider) Close() error {
	return p.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
		// The first candidate with content is the answer.
		if sb.Len() > 0 {
			break
		}
	}
	return sb.String()
}

func toGenaiSchema(s *Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Description: s.Description,
		Required:    s.Required,
		Enum:        s.Enum,
		Items:       toGenaiSchema(s.Items),
	}
	switch s.Type {
	case TypeObject:
		out.Type = genai.TypeObject
	case TypeArray:
		out.Type = genai.TypeArray
	case TypeBoolean:
		out.Type = genai.TypeBoolean
	default:
		out.Type = genai.TypeString
	}
	if len(s.Enum) > 0 {
		out.Format = "enum"
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toGenaiSchema(prop)
		}
	}
	return out
}

func schemaName(s *Schema) string {
	if s == nil || s.Name == "" {
		return "completion"
	}
	return s.Name
}
