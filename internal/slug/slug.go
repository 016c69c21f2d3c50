// Package slug derives URL-safe, store-unique identifiers for clinics.
package slug

import (
	"context"
	"strconv"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/clinic-ingest/internal/model"
	"github.com/sells-group/clinic-ingest/internal/taxonomy"
)

// MaxLength bounds the base slug before any collision suffix.
const MaxLength = 60

// DefaultMaxAttempts caps the collision loop when none is configured.
const DefaultMaxAttempts = 100

// Exister reports whether a key is already taken in the record store.
type Exister interface {
	Exists(ctx context.Context, key string) (bool, error)
}

// Generator builds slugs and resolves collisions against an Exister.
type Generator struct {
	exists      Exister
	suffixes    map[string]bool
	maxAttempts int
}

// New creates a Generator. maxAttempts <= 0 uses DefaultMaxAttempts.
func New(exists Exister, tax *taxonomy.Taxonomy, maxAttempts int) *Generator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	suffixes := make(map[string]bool, len(tax.SuffixWords))
	for _, w := range tax.SuffixWords {
		suffixes[strings.ToLower(w)] = true
	}
	return &Generator{exists: exists, suffixes: suffixes, maxAttempts: maxAttempts}
}

// Base returns the collision-free candidate for name, city and state. Suffix
// words are dropped from the name only; city and state are kept whole. For
// branches the location part always survives truncation; the name part is
// shortened instead.
func (g *Generator) Base(name, city, state string, branch bool) string {
	head := g.clean(name, true)
	loc := g.clean(city+" "+state, false)

	if !branch {
		return fallback(truncate(join(head, loc), MaxLength))
	}

	loc = truncate(loc, MaxLength)
	budget := MaxLength - len(loc) - 1
	if loc == "" {
		budget = MaxLength
	}
	if budget > 0 {
		head = truncate(head, budget)
	} else {
		head = ""
	}
	return fallback(join(head, loc))
}

// Unique returns the first free slug: the base, then base-2, base-3 and so on.
// It gives up with model.ErrSlugExhausted once maxAttempts candidates are
// taken. The check and the later write are not atomic.
func (g *Generator) Unique(ctx context.Context, name, city, state string, branch bool) (string, error) {
	base := g.Base(name, city, state, branch)
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		candidate := base
		if attempt > 1 {
			candidate = base + "-" + strconv.Itoa(attempt)
		}
		taken, err := g.exists.Exists(ctx, candidate)
		if err != nil {
			return "", eris.Wrapf(err, "slug: check %s", candidate)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", eris.Wrapf(model.ErrSlugExhausted, "slug: %s after %d attempts", base, g.maxAttempts)
}

// clean lowercases, folds diacritics, optionally drops suffix words and
// joins the remaining alphanumeric runs with single hyphens.
func (g *Generator) clean(s string, dropSuffixes bool) string {
	s = strings.ToLower(fold(strings.ReplaceAll(s, "’", "'")))

	var kept []string
	for _, tok := range strings.Fields(s) {
		bare := strings.Trim(tok, ".,;:!?()[]\"")
		if dropSuffixes && g.suffixes[bare] {
			continue
		}
		kept = append(kept, tok)
	}

	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.Join(kept, " ") {
		switch {
		case r == '\'':
			// "joe's" becomes "joes", not "joe-s".
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		default:
			pendingHyphen = true
		}
	}
	return b.String()
}

// fold strips combining marks so "Clínica" becomes "Clinica".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func join(head, loc string) string {
	switch {
	case head == "":
		return loc
	case loc == "":
		return head
	default:
		return head + "-" + loc
	}
}

func truncate(s string, n int) string {
	if len(s) > n {
		s = s[:n]
	}
	return strings.Trim(s, "-")
}

func fallback(s string) string {
	if s == "" {
		return "clinic"
	}
	return s
}
