// Package marketing fills the copy block stored on every clinic document.
// Generation is delegated to an external text model; a failed call never
// blocks the import and leaves a placeholder flagged for review.
package marketing

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/clinic-ingest/internal/model"
)

// Generator produces marketing copy for a clinic.
type Generator interface {
	Generate(ctx context.Context, c *model.Clinic) (model.Marketing, error)
}

// Apply runs gen and stores the result on c. On failure it stores
// Placeholder(c), adds the needs-review tag and returns a Degraded outcome.
func Apply(ctx context.Context, gen Generator, c *model.Clinic) model.Outcome[model.Marketing] {
	m, err := gen.Generate(ctx, c)
	if err == nil && strings.TrimSpace(m.Headline) != "" {
		c.Marketing = m
		return model.Ok(m)
	}

	reason := "empty headline"
	if err != nil {
		reason = err.Error()
	}
	zap.L().Warn("marketing: copy generation failed, using placeholder",
		zap.String("record", c.ID),
		zap.String("reason", reason),
	)

	ph := Placeholder(c)
	c.Marketing = ph
	c.AddTag(model.TagNeedsReview)
	return model.Degraded(ph, reason)
}

// Placeholder is the minimal copy stored when generation fails.
func Placeholder(c *model.Clinic) model.Marketing {
	return model.Marketing{
		Headline:    c.Name,
		Description: location(c),
		Placeholder: true,
	}
}

// TemplateGenerator builds plain copy from the record's own fields. It is
// used when no text model is configured.
type TemplateGenerator struct{}

// Generate implements Generator.
func (TemplateGenerator) Generate(_ context.Context, c *model.Clinic) (model.Marketing, error) {
	loc := location(c)
	headline := c.Name
	if c.City != "" {
		headline = fmt.Sprintf("%s in %s", c.Name, c.City)
	}

	var desc strings.Builder
	desc.WriteString(c.Name)
	if loc != "" {
		fmt.Fprintf(&desc, " is located in %s", loc)
	}
	if len(c.Services) > 0 {
		fmt.Fprintf(&desc, " and offers %s", joinList(c.Services))
	}
	desc.WriteString(".")

	return model.Marketing{
		Headline:        headline,
		Description:     desc.String(),
		SEOTitle:        truncate(headline, 60),
		MetaDescription: truncate(desc.String(), 155),
	}, nil
}

func location(c *model.Clinic) string {
	switch {
	case c.City != "" && c.State != "":
		return c.City + ", " + c.State
	case c.City != "":
		return c.City
	default:
		return c.State
	}
}

func joinList(items []string) string {
	switch len(items) {
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}
