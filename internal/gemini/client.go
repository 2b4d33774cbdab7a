// Package gemini wraps the Gemini API for narrative match summaries.
// Everything the engine computes stays deterministic; this client only
// rewrites the one-paragraph summary when a key is configured.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"matching_engine/internal/models"
)

type ClientConfig struct {
	APIKey      string
	Model       string
	Temperature float32
}

type Client struct {
	client *genai.Client
	model  *genai.GenerativeModel
	config ClientConfig
}

func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(cfg.Temperature)

	return &Client{
		client: client,
		model:  model,
		config: cfg,
	}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// SummarizeMatch writes a short narrative summary of a scored match.
// The caller falls back to its template summary on any error.
func (c *Client) SummarizeMatch(ctx context.Context, result *models.MatchResult, jobTitle string) (string, error) {
	var parts []string
	for _, name := range models.ComponentOrder {
		parts = append(parts, fmt.Sprintf("%s=%.2f", name, result.ComponentScores[name]))
	}

	prompt := fmt.Sprintf(`Write a 2-3 sentence plain-language summary of this job match for the candidate.

Job title: %s
Interview probability: %.0f%%
Component scores: %s
Critical gaps: %s
Minor gaps: %s
Strengths: %s

Be direct and specific. Do not invent facts beyond the data above.
Return plain text only, no markdown.`,
		jobTitle,
		result.Probability*100,
		strings.Join(parts, ", "),
		orNone(result.CriticalGaps),
		orNone(result.MinorGaps),
		orNone(result.Strengths),
	)

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from Gemini")
	}

	text := extractText(resp.Candidates[0].Content.Parts)
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("empty summary from Gemini")
	}
	return text, nil
}

func extractText(parts []genai.Part) string {
	var sb strings.Builder
	for _, part := range parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String()
}

func orNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, "; ")
}
