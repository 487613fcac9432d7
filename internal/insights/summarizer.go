package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Summarizer produces narrative text from a snapshot. It either returns
// text or fails; callers surface the failure inline.
type Summarizer interface {
	GenerateSummary(ctx context.Context, snapshot Snapshot, language string) (string, error)
}

// GeminiSummarizer is the Summarizer backed by the Gemini API.
type GeminiSummarizer struct {
	client *genai.Client
	model  string
}

// NewGeminiSummarizer creates a Gemini client for apiKey.
func NewGeminiSummarizer(ctx context.Context, apiKey, model string) (*GeminiSummarizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("NewGeminiSummarizer: %w", ErrNoAPIKey)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiSummarizer: create genai client: %w", err)
	}
	return &GeminiSummarizer{client: client, model: model}, nil
}

// GenerateSummary implements Summarizer.
func (g *GeminiSummarizer) GenerateSummary(ctx context.Context, snapshot Snapshot, language string) (string, error) {
	prompt, err := buildPrompt(snapshot, language)
	if err != nil {
		return "", fmt.Errorf("GenerateSummary: %w", err)
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("GenerateSummary: generate content: %w", err)
	}

	text := cleanModelText(resp.Text())
	if text == "" {
		return "", fmt.Errorf("GenerateSummary: empty response from model")
	}
	return text, nil
}

var languageNames = map[string]string{
	"en": "English",
	"de": "German",
	"es": "Spanish",
	"fr": "French",
	"it": "Italian",
	"pl": "Polish",
	"pt": "Portuguese",
	"tr": "Turkish",
}

func languageName(code string) string {
	if name, ok := languageNames[strings.ToLower(code)]; ok {
		return name
	}
	return "English"
}

func buildPrompt(snapshot Snapshot, language string) (string, error) {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	var b strings.Builder
	b.WriteString("You are a personal finance assistant.\n\n")
	b.WriteString("Task:\n")
	b.WriteString("- Write a short summary (3 to 5 sentences) of the financial situation below.\n")
	b.WriteString("- Mention the monthly net savings, the remaining installment debt and goal progress.\n")
	b.WriteString("- Point out upcoming payments due this month if any.\n")
	b.WriteString("- Amounts are in " + snapshot.Currency + ".\n")
	b.WriteString("- Answer in " + languageName(language) + ".\n")
	b.WriteString("- Plain text only. Do NOT use Markdown.\n\n")
	b.WriteString("Data (JSON):\n")
	b.Write(data)
	b.WriteString("\n")
	return b.String(), nil
}

// cleanModelText strips Markdown fences the model sometimes adds anyway.
func cleanModelText(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return strings.Trim(s, "`")
		}
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
