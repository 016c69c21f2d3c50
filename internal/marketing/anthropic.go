package marketing

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/clinic-ingest/internal/model"
	"github.com/sells-group/clinic-ingest/pkg/anthropic"
)

const systemPrompt = `You write concise marketing copy for men's health clinic directory listings.
Reply with a single JSON object and nothing else, using exactly these keys:
"headline" (max 70 chars), "description" (2-3 sentences), "seo_title" (max 60 chars),
"meta_description" (max 155 chars). Do not invent services, prices or credentials.`

// AnthropicGenerator asks a Claude model for listing copy.
type AnthropicGenerator struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicGenerator wraps an Anthropic client.
func NewAnthropicGenerator(client anthropic.Client, model string, maxTokens int) *AnthropicGenerator {
	if maxTokens <= 0 {
		maxTokens = 512
	}
	return &AnthropicGenerator{client: client, model: model, maxTokens: int64(maxTokens)}
}

type copyJSON struct {
	Headline        string `json:"headline"`
	Description     string `json:"description"`
	SEOTitle        string `json:"seo_title"`
	MetaDescription string `json:"meta_description"`
}

// Generate implements Generator.
func (g *AnthropicGenerator) Generate(ctx context.Context, c *model.Clinic) (model.Marketing, error) {
	resp, err := g.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     g.model,
		MaxTokens: g.maxTokens,
		System:    systemPrompt,
		Messages:  []anthropic.Message{{Role: "user", Content: describe(c)}},
	})
	if err != nil {
		return model.Marketing{}, eris.Wrap(err, "marketing: generate copy")
	}
	resp.Usage.LogCost(g.model, "marketing")

	var out copyJSON
	if err := json.Unmarshal([]byte(extractJSON(resp.Text)), &out); err != nil {
		return model.Marketing{}, eris.Wrap(err, "marketing: parse copy")
	}
	if strings.TrimSpace(out.Headline) == "" {
		return model.Marketing{}, eris.New("marketing: response has no headline")
	}
	return model.Marketing{
		Headline:        strings.TrimSpace(out.Headline),
		Description:     strings.TrimSpace(out.Description),
		SEOTitle:        strings.TrimSpace(out.SEOTitle),
		MetaDescription: strings.TrimSpace(out.MetaDescription),
	}, nil
}

// describe renders the record facts the model may use.
func describe(c *model.Clinic) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Clinic name: %s\n", c.Name)
	if loc := location(c); loc != "" {
		fmt.Fprintf(&b, "Location: %s\n", loc)
	}
	if len(c.Services) > 0 {
		fmt.Fprintf(&b, "Services: %s\n", strings.Join(c.Services, ", "))
	}
	if c.Website != "" {
		fmt.Fprintf(&b, "Website: %s\n", c.Website)
	}
	return b.String()
}

// extractJSON returns the outermost {...} span, tolerating code fences or
// prose around the object.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return text
	}
	return text[start : end+1]
}
