package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Provider identifiers accepted by NewProvider.
const (
	ProviderGoogle = "google"
	ProviderGroq   = "groq"
)

// Provider is a chat model that answers a prompt with a JSON document shaped
// by a schema. Implementations record every call in their Stats.
type Provider interface {
	Name() string
	Model() string
	CompleteJSON(ctx context.Context, prompt string, schema *Schema) ([]byte, error)
	Stats() *CallStats
	Close() error
}

// SchemaType is a JSON Schema primitive type.
type SchemaType string

const (
	TypeObject  SchemaType = "object"
	TypeArray   SchemaType = "array"
	TypeString  SchemaType = "string"
	TypeBoolean SchemaType = "boolean"
)

// Schema is the subset of JSON Schema both providers understand.
type Schema struct {
	Name        string             `json:"-"`
	Type        SchemaType         `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
}

// Config selects and configures a provider.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string // Groq only; empty means the public endpoint.
	Temperature float64
	Timeout     time.Duration // per call; zero keeps the provider default.
}

// NewProvider builds the provider named by cfg.Provider. It is the only place
// the provider string is inspected.
func NewProvider(ctx context.Context, cfg Config) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderGoogle:
		p, err := NewGoogleProvider(ctx, cfg.APIKey, cfg.Model, cfg.Temperature)
		if err != nil {
			return nil, err
		}
		p.timeout = cfg.Timeout
		return p, nil
	case ProviderGroq:
		p := NewGroqProvider(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Temperature)
		if cfg.Timeout > 0 {
			p.httpClient.Timeout = cfg.Timeout
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported model provider: %q", cfg.Provider)
	}
}

var codeBlockRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

func stripCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
