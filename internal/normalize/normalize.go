// Package normalize turns parsed input rows into validated clinic records.
// It performs no I/O: everything it learns about a record's gaps is
// expressed as tags on the result.
package normalize

import (
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/clinic-ingest/internal/model"
	"github.com/sells-group/clinic-ingest/internal/taxonomy"
)

// Normalizer cleans RawRecords. It is safe for concurrent use.
type Normalizer struct {
	tax *taxonomy.Taxonomy
	now func() time.Time
}

// New creates a Normalizer over the given taxonomy.
func New(tax *taxonomy.Taxonomy) *Normalizer {
	return &Normalizer{
		tax: tax,
		now: time.Now,
	}
}

// Normalize projects raw onto a Clinic. It never fails; missing or
// unparseable data shows up as validation tags and a paused status.
func (n *Normalizer) Normalize(raw model.RawRecord) *model.Clinic {
	now := n.now().UTC()
	c := &model.Clinic{
		ID:        raw.String("id"),
		Slug:      raw.String("slug"),
		Name:      collapseSpace(raw.String("name")),
		Address:   n.caseField(collapseSpace(raw.String("address"))),
		City:      n.caseField(collapseSpace(raw.String("city"))),
		State:     State(raw.String("state")),
		Zip:       Zip(raw.String("zip")),
		Tier:      Tier(raw.String("tier")),
		Status:    Status(raw.String("status")),
		Tags:      []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	c.NameKey = NameKey(c.Name)
	c.Phone, _ = Phone(raw.String("phone"))
	c.Website = Website(raw.String("website"))
	c.Services = n.Services(raw.String("services"))

	Tag(c)
	return c
}

// Tag appends a validation tag for every gap in c and pauses the listing
// when any are present. Tags already on c are kept.
func Tag(c *model.Clinic) {
	var gaps []string
	if c.Name == "" {
		gaps = append(gaps, model.TagMissingName)
	}
	if c.Address == "" || c.City == "" || c.State == "" || c.Zip == "" {
		gaps = append(gaps, model.TagIncompleteAddress)
	}
	if c.Phone == "" || c.Phone == model.PhoneInvalid {
		gaps = append(gaps, model.TagInvalidPhone)
	}
	if c.Website == "" {
		gaps = append(gaps, model.TagMissingWebsite)
	}
	if len(c.Services) == 0 {
		gaps = append(gaps, model.TagMissingServices)
	}

	for _, t := range gaps {
		c.AddTag(t)
	}
	if len(gaps) > 0 {
		c.Status = model.StatusPaused
	}
}

// ValidationTags lists the tags Tag may append.
var ValidationTags = []string{
	model.TagMissingName,
	model.TagIncompleteAddress,
	model.TagInvalidPhone,
	model.TagMissingWebsite,
	model.TagMissingServices,
}

// Validate returns a ValidationError when the clinic lacks a field the
// store cannot do without. Other gaps are tags, not errors.
func Validate(c *model.Clinic) error {
	if c.Name == "" {
		return &model.ValidationError{Field: "name"}
	}
	return nil
}

// Services splits free text on common list delimiters, maps each phrase onto
// a canonical category where one matches, and drops duplicates. Phrases
// without a category are kept in title case.
func (n *Normalizer) Services(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	parts := strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case ',', ';', '|', '/', '\n', '\r', '•':
			return true
		}
		return false
	})

	seen := make(map[string]bool, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = collapseSpace(p)
		if p == "" {
			continue
		}
		name, ok := n.tax.MatchCategory(p)
		if !ok {
			name = TitleCase(p)
		}
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, name)
	}
	return out
}

// caseField title-cases values that arrive all upper or all lower case and
// leaves mixed-case input alone.
func (n *Normalizer) caseField(s string) string {
	if s == "" {
		return s
	}
	if s == strings.ToUpper(s) || s == strings.ToLower(s) {
		return TitleCase(s)
	}
	return s
}

// TitleCase title-cases s. Casers carry state, so each call gets its own.
func TitleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// NameKey is the lowercase, space-collapsed form used for name lookups.
func NameKey(name string) string {
	return strings.ToLower(collapseSpace(name))
}

// Website returns an absolute URL for s, adding https:// when no scheme is
// given. Values without a plausible host yield "".
func Website(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" || !strings.Contains(u.Host, ".") {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	u.Host = strings.ToLower(u.Host)
	if u.Path == "/" {
		u.Path = ""
	}
	return u.String()
}

// Tier maps a plan name onto a listing tier; unknown values are free.
func Tier(s string) string {
	switch t := strings.ToLower(strings.TrimSpace(s)); t {
	case model.TierBasic, model.TierPremium, model.TierFeatured:
		return t
	default:
		return model.TierFree
	}
}

// Status maps a requested status; unknown values are active.
func Status(s string) string {
	switch st := strings.ToLower(strings.TrimSpace(s)); st {
	case model.StatusPaused, model.StatusPending:
		return st
	default:
		return model.StatusActive
	}
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
