// Package taxonomy holds the static lookup tables shared by the normalizer,
// slug generator, scorer and crawler: the canonical service categories and
// their synonyms, the business-suffix strip list, and the phrase lists used
// by the crawler's heuristics.
package taxonomy

import (
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Category is one canonical service with the phrases that map onto it.
type Category struct {
	Name     string   `yaml:"name"`
	Synonyms []string `yaml:"synonyms"`
}

// Signals are the whole-page phrase lists for clinic-level facts.
type Signals struct {
	Insurance       []string `yaml:"insurance"`
	Financing       []string `yaml:"financing"`
	FreeConsult     []string `yaml:"free_consultation"`
	Consultation    []string `yaml:"consultation"`
	Specializations []string `yaml:"specializations"`
}

// Taxonomy is immutable after construction; share one instance per process.
type Taxonomy struct {
	Categories        []Category `yaml:"categories"`
	SuffixWords       []string   `yaml:"suffix_words"`
	IndicatorPhrases  []string   `yaml:"indicator_phrases"`
	PricingWords      []string   `yaml:"pricing_words"`
	TreatmentSuffixes []string   `yaml:"treatment_suffixes"`
	DuplicatePatterns []string   `yaml:"duplicate_patterns"`
	Signals           Signals    `yaml:"signals"`

	phrases []phrase
}

// phrase is a lowercase synonym bound to its category, sorted longest first
// so the most specific phrase wins within a block.
type phrase struct {
	text     string
	category string
}

// Match is one category occurrence found in a block of text.
type Match struct {
	Category string
	Phrase   string
	Index    int
}

// Default returns the built-in taxonomy.
func Default() *Taxonomy {
	t := &Taxonomy{
		Categories:        cloneCategories(defaultCategories),
		SuffixWords:       append([]string(nil), defaultSuffixWords...),
		IndicatorPhrases:  append([]string(nil), defaultIndicatorPhrases...),
		PricingWords:      append([]string(nil), defaultPricingWords...),
		TreatmentSuffixes: append([]string(nil), defaultTreatmentSuffixes...),
		DuplicatePatterns: append([]string(nil), defaultDuplicatePatterns...),
		Signals:           defaultSignals,
	}
	t.index()
	return t
}

// Load reads a YAML override file. Sections present in the file replace the
// corresponding default tables; absent sections keep their defaults.
func Load(path string) (*Taxonomy, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "taxonomy: read %s", path)
	}

	var override Taxonomy
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, eris.Wrapf(err, "taxonomy: parse %s", path)
	}

	t := Default()
	if len(override.Categories) > 0 {
		t.Categories = override.Categories
	}
	if len(override.SuffixWords) > 0 {
		t.SuffixWords = override.SuffixWords
	}
	if len(override.IndicatorPhrases) > 0 {
		t.IndicatorPhrases = override.IndicatorPhrases
	}
	if len(override.PricingWords) > 0 {
		t.PricingWords = override.PricingWords
	}
	if len(override.TreatmentSuffixes) > 0 {
		t.TreatmentSuffixes = override.TreatmentSuffixes
	}
	if len(override.DuplicatePatterns) > 0 {
		t.DuplicatePatterns = override.DuplicatePatterns
	}
	if len(override.Signals.Insurance) > 0 {
		t.Signals.Insurance = override.Signals.Insurance
	}
	if len(override.Signals.Financing) > 0 {
		t.Signals.Financing = override.Signals.Financing
	}
	if len(override.Signals.FreeConsult) > 0 {
		t.Signals.FreeConsult = override.Signals.FreeConsult
	}
	if len(override.Signals.Consultation) > 0 {
		t.Signals.Consultation = override.Signals.Consultation
	}
	if len(override.Signals.Specializations) > 0 {
		t.Signals.Specializations = override.Signals.Specializations
	}

	for _, c := range t.Categories {
		if strings.TrimSpace(c.Name) == "" {
			return nil, eris.New("taxonomy: category with empty name")
		}
	}
	t.index()
	return t, nil
}

func (t *Taxonomy) index() {
	t.phrases = t.phrases[:0]
	for _, c := range t.Categories {
		t.phrases = append(t.phrases, phrase{text: strings.ToLower(c.Name), category: c.Name})
		for _, s := range c.Synonyms {
			s = strings.ToLower(strings.TrimSpace(s))
			if s == "" {
				continue
			}
			t.phrases = append(t.phrases, phrase{text: s, category: c.Name})
		}
	}
	sort.SliceStable(t.phrases, func(i, j int) bool {
		return len(t.phrases[i].text) > len(t.phrases[j].text)
	})
}

// CategoryNames lists the canonical names in table order.
func (t *Taxonomy) CategoryNames() []string {
	names := make([]string, len(t.Categories))
	for i, c := range t.Categories {
		names[i] = c.Name
	}
	return names
}

// MatchCategory maps a free-text service phrase onto its canonical category.
func (t *Taxonomy) MatchCategory(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, p := range t.phrases {
		if IndexWord(lower, p.text) >= 0 {
			return p.category, true
		}
	}
	return "", false
}

// FindAll returns at most one match per category in text: the longest
// synonym of that category that occurs, at its first position.
func (t *Taxonomy) FindAll(text string) []Match {
	lower := strings.ToLower(text)
	seen := make(map[string]bool)
	var out []Match
	for _, p := range t.phrases {
		if seen[p.category] {
			continue
		}
		if idx := IndexWord(lower, p.text); idx >= 0 {
			seen[p.category] = true
			out = append(out, Match{Category: p.category, Phrase: p.text, Index: idx})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// ContainsKeyword reports whether text mentions any category synonym.
func (t *Taxonomy) ContainsKeyword(text string) bool {
	_, ok := t.MatchCategory(text)
	return ok
}

// ContainsAny reports whether lowercase text contains any of the phrases.
func ContainsAny(lower string, phrases []string) bool {
	for _, p := range phrases {
		if p != "" && strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// ContainsAnyWord is ContainsAny restricted to whole-word occurrences.
func ContainsAnyWord(lower string, words []string) bool {
	for _, w := range words {
		if IndexWord(lower, w) >= 0 {
			return true
		}
	}
	return false
}

// IndexWord returns the byte index of needle in text where it occurs as a
// whole word, or -1. Both arguments should already be lowercased.
func IndexWord(text, needle string) int {
	if needle == "" || text == "" {
		return -1
	}
	start := 0
	for {
		idx := strings.Index(text[start:], needle)
		if idx < 0 {
			return -1
		}
		abs := start + idx
		end := abs + len(needle)

		leftOK := abs == 0 || !isWordByte(text[abs-1])
		rightOK := end == len(text) || !isWordByte(text[end])
		if leftOK && rightOK {
			return abs
		}
		start = abs + 1
	}
}

func isWordByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func cloneCategories(in []Category) []Category {
	out := make([]Category, len(in))
	for i, c := range in {
		out[i] = Category{Name: c.Name, Synonyms: append([]string(nil), c.Synonyms...)}
	}
	return out
}
