// Package model defines the records that flow through the clinic import pipeline.
package model

import (
	"strings"
	"time"
)

// RawRecord is one row of input as parsed from a file. Keys are the
// canonical field names produced by the header aliasing in the parser.
type RawRecord map[string]any

// String returns the trimmed string form of a field, or "" when absent.
func (r RawRecord) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			if s, ok := p.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.TrimSpace(strings.Join(parts, ", "))
	case []string:
		return strings.TrimSpace(strings.Join(t, ", "))
	default:
		return strings.TrimSpace(toString(v))
	}
}

// Status values for a clinic listing.
const (
	StatusActive  = "active"
	StatusPaused  = "paused"
	StatusPending = "pending"
)

// Tier values for a clinic listing.
const (
	TierFree     = "free"
	TierBasic    = "basic"
	TierPremium  = "premium"
	TierFeatured = "featured"
)

// Validation tags appended by the normalizer.
const (
	TagMissingName       = "missing-name"
	TagIncompleteAddress = "incomplete-address"
	TagInvalidPhone      = "invalid-phone"
	TagMissingWebsite    = "missing-website"
	TagMissingServices   = "missing-services"
)

// Tags appended by later stages.
const (
	TagBranchLocation     = "branch-location"
	TagLowQuality         = "low-quality"
	TagHighQuality        = "high-quality"
	TagPotentialDuplicate = "potential-duplicate"
	TagNeedsReview        = "needs-review"
)

// PhoneInvalid is the sentinel stored when a phone number cannot be parsed.
const PhoneInvalid = "invalid"

// Clinic is the normalized record and, once slugged and scored, the
// document written to the record store.
type Clinic struct {
	ID       string   `json:"id"`
	Slug     string   `json:"slug"`
	Name     string   `json:"name"`
	NameKey  string   `json:"name_key"`
	Address  string   `json:"address"`
	City     string   `json:"city"`
	State    string   `json:"state"`
	Zip      string   `json:"zip"`
	Phone    string   `json:"phone"`
	Website  string   `json:"website"`
	Services []string `json:"services"`
	Tier     string   `json:"tier"`
	Status   string   `json:"status"`
	Tags     []string `json:"tags"`

	Geo          GeocodeResult `json:"geo"`
	QualityScore int           `json:"quality_score"`
	IsBranch     bool          `json:"is_branch,omitempty"`
	Marketing    Marketing     `json:"marketing"`

	ScrapedServices []ScrapedService `json:"scraped_services,omitempty"`
	Signals         *ClinicSignals   `json:"clinic_signals,omitempty"`
	LastCrawledAt   *time.Time       `json:"last_crawled_at,omitempty"`

	Verified   bool       `json:"verified"`
	VerifiedBy string     `json:"verified_by,omitempty"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`

	ImportRunID string    `json:"import_run_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HasTag reports whether the clinic carries tag.
func (c *Clinic) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AddTag appends tag unless already present.
func (c *Clinic) AddTag(tag string) {
	if !c.HasTag(tag) {
		c.Tags = append(c.Tags, tag)
	}
}

// RemoveTag drops every occurrence of tag.
func (c *Clinic) RemoveTag(tag string) {
	out := c.Tags[:0]
	for _, t := range c.Tags {
		if t != tag {
			out = append(out, t)
		}
	}
	c.Tags = out
}

// Marketing is the copy block produced by the text-generation collaborator.
// The pipeline stores whatever it returns without interpreting it.
type Marketing struct {
	Headline        string `json:"headline"`
	Description     string `json:"description"`
	SEOTitle        string `json:"seo_title,omitempty"`
	MetaDescription string `json:"meta_description,omitempty"`
	Placeholder     bool   `json:"placeholder,omitempty"`
}

// Verdict is the duplicate/branch classification of an incoming record.
type Verdict struct {
	IsDuplicate bool   `json:"is_duplicate"`
	IsBranch    bool   `json:"is_branch"`
	MatchedID   string `json:"matched_id,omitempty"`
	Reason      string `json:"reason,omitempty"`
}
