package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGenerateFlags(t *testing.T) {
	var stderr bytes.Buffer
	opts, err := parseGenerateFlags([]string{"--input", "doc.pdf", "--output", "out/q.csv", "--config", "q.yaml"}, &stderr)
	require.NoError(t, err)
	assert.Equal(t, generateOptions{input: "doc.pdf", output: "out/q.csv", configPath: "q.yaml"}, opts)
}

func TestParseGenerateFlags_InputRequired(t *testing.T) {
	var stderr bytes.Buffer
	_, err := parseGenerateFlags([]string{"--output", "q.csv"}, &stderr)
	assert.ErrorContains(t, err, "--input is required")
	assert.Contains(t, stderr.String(), "Usage:")
}

func TestParseGenerateFlags_RejectsStrayArgs(t *testing.T) {
	var stderr bytes.Buffer
	_, err := parseGenerateFlags([]string{"--input", "a.pdf", "b.pdf"}, &stderr)
	assert.ErrorContains(t, err, "unexpected arguments")
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "notes.pdf", displayName("/home/me/docs/notes.pdf"))
	assert.Equal(t, "data-uri(application/pdf)", displayName("data:application/pdf;base64,JVBERi0="))
}
