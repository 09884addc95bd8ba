package llm

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider_SelectsGroq(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Provider: "GROQ", APIKey: "k", Model: "llama"})
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, ProviderGroq, p.Name())
	assert.Equal(t, "llama", p.Model())
}

func TestNewProvider_RejectsUnknown(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Provider: "openai"})
	assert.ErrorContains(t, err, "unsupported model provider")
}

func TestToGenaiSchema(t *testing.T) {
	s := toGenaiSchema(&Schema{
		Type: TypeObject,
		Properties: map[string]*Schema{
			"answer": {Type: TypeString, Enum: []string{"A", "B"}},
			"tags":   {Type: TypeArray, Items: &Schema{Type: TypeString}},
		},
		Required: []string{"answer"},
	})

	assert.Equal(t, genai.TypeObject, s.Type)
	assert.Equal(t, []string{"answer"}, s.Required)
	assert.Equal(t, genai.TypeString, s.Properties["answer"].Type)
	assert.Equal(t, "enum", s.Properties["answer"].Format)
	assert.Equal(t, genai.TypeArray, s.Properties["tags"].Type)
	assert.Equal(t, genai.TypeString, s.Properties["tags"].Items.Type)
	assert.Nil(t, toGenaiSchema(nil))
}

func TestStripCodeBlock(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeBlock("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeBlock("  {\"a\":1} "))
}
