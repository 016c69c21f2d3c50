// Package quality scores how complete a clinic listing is and tags listings
// that need attention.
package quality

import (
	"strings"

	"github.com/sells-group/clinic-ingest/internal/model"
	"github.com/sells-group/clinic-ingest/internal/taxonomy"
)

// Tagging thresholds.
const (
	LowThreshold  = 60
	HighThreshold = 90
)

// Scorer computes a 0-100 score from independent weighted checks.
type Scorer struct {
	tax *taxonomy.Taxonomy
}

// New creates a Scorer using the taxonomy's duplicate-name patterns.
func New(tax *taxonomy.Taxonomy) *Scorer {
	return &Scorer{tax: tax}
}

// Breakdown holds the points awarded per check.
type Breakdown struct {
	Name     int `json:"name"`
	Address  int `json:"address"`
	Contact  int `json:"contact"`
	Services int `json:"services"`
	Geocode  int `json:"geocode"`
}

// Total sums the checks.
func (b Breakdown) Total() int {
	return b.Name + b.Address + b.Contact + b.Services + b.Geocode
}

// Score returns the per-check breakdown for c. reachable reports whether the
// clinic's website answered.
func (s *Scorer) Score(c *model.Clinic, reachable bool) Breakdown {
	var b Breakdown

	switch n := len([]rune(strings.TrimSpace(c.Name))); {
	case n >= 3:
		b.Name = 20
	case n > 0:
		b.Name = 10
	}

	if c.Address != "" {
		b.Address += 8
	}
	if c.City != "" {
		b.Address += 4
	}
	if c.State != "" {
		b.Address += 4
	}
	if c.Zip != "" {
		b.Address += 4
	}

	if c.Phone != "" && c.Phone != model.PhoneInvalid {
		b.Contact += 10
	}
	if c.Website != "" {
		b.Contact += 5
		if reachable {
			b.Contact += 5
		}
	}

	switch n := len(c.Services); {
	case n >= 5:
		b.Services = 20
	case n >= 3:
		b.Services = 15
	case n >= 1:
		b.Services = 10
	}

	if c.Geo.Valid() {
		b.Geocode = 20
	}
	return b
}

// Apply scores c, stores the score and appends quality tags. It never fails.
func (s *Scorer) Apply(c *model.Clinic, reachable bool) int {
	score := s.Score(c, reachable).Total()
	c.QualityScore = score

	switch {
	case score < LowThreshold:
		c.AddTag(model.TagLowQuality)
	case score > HighThreshold:
		c.AddTag(model.TagHighQuality)
	}
	if s.LooksLikePlaceholder(c.Name) {
		c.AddTag(model.TagPotentialDuplicate)
	}
	return score
}

// LooksLikePlaceholder reports whether name matches one of the test or
// sample name patterns.
func (s *Scorer) LooksLikePlaceholder(name string) bool {
	return taxonomy.ContainsAnyWord(strings.ToLower(name), s.tax.DuplicatePatterns)
}
