package crawl

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/sells-group/clinic-ingest/internal/model"
	"github.com/sells-group/clinic-ingest/internal/taxonomy"
)

const (
	baseConfidence = 0.5
	suffixBoost    = 0.2
	pricingBoost   = 0.15
	bulletBoost    = 0.1
	mentionFactor  = 1.1

	contextRadius = 50
	minBlockLen   = 20
	maxBlockLen   = 500
)

var priceRe = regexp.MustCompile(`\$\s?\d{1,3}(?:,\d{3})*(?:\.\d{2})?`)

var spaceRe = regexp.MustCompile(`\s+`)

const (
	headingSelector   = "h1, h2, h3, h4, h5, h6"
	cardTitleSelector = ".card-title, .service-title, [class*='card'] [class*='title'], " +
		"[class*='service'] [class*='title'], [class*='service'] [class*='name']"
	pricingSelector = "[class*='pricing'], [id*='pricing'], [class*='price-list'], [class*='price-table']"
	nestedBlocks    = "p, div, ul, ol, li, table, section, article, " + headingSelector
	bulletGlyphs    = "•✓✔✅▪►-*"
)

// block is one text unit scanned for service keywords.
type block struct {
	text    string
	bullet  bool
	pricing bool
}

// occurrence is a single category hit inside a block.
type occurrence struct {
	category   string
	phrase     string
	confidence float64
	context    string
	price      string
	sourceURL  string
}

type extractor struct {
	tax *taxonomy.Taxonomy
}

// page extracts service occurrences from doc and returns the page's visible
// text for the signal pass. doc is modified: script and style are removed.
func (x extractor) page(doc *goquery.Document, pageURL string) ([]occurrence, string) {
	doc.Find("script, style, noscript, template").Remove()

	var out []occurrence
	for _, b := range x.blocks(doc) {
		out = append(out, x.occurrences(b, pageURL)...)
	}
	return out, collapse(doc.Find("body").Text())
}

// blocks walks the extraction strategies in a fixed order. A node is scanned
// at most once and identical text within one page counts once, so a repeated
// mobile menu does not inflate mentions.
func (x extractor) blocks(doc *goquery.Document) []block {
	seenNode := make(map[*html.Node]bool)
	seenText := make(map[string]bool)
	var out []block

	add := func(s *goquery.Selection, b block, bounded bool) {
		n := s.Get(0)
		if seenNode[n] {
			return
		}
		seenNode[n] = true

		b.text = collapse(s.Text())
		if b.text == "" {
			return
		}
		if bounded && (len(b.text) < minBlockLen || len(b.text) > maxBlockLen) {
			return
		}
		key := strings.ToLower(b.text)
		if seenText[key] {
			return
		}
		seenText[key] = true
		b.bullet = b.bullet || hasBulletMarkup(s, b.text)
		out = append(out, b)
	}

	doc.Find("li").Each(func(_ int, s *goquery.Selection) {
		if s.Find("li").Length() == 0 {
			add(s, block{bullet: true}, false)
		}
	})
	doc.Find(headingSelector).Each(func(_ int, s *goquery.Selection) {
		add(s, block{}, false)
	})
	doc.Find(cardTitleSelector).Each(func(_ int, s *goquery.Selection) {
		add(s, block{}, false)
	})
	doc.Find("p, div").Each(func(_ int, s *goquery.Selection) {
		if s.Find(nestedBlocks).Length() == 0 {
			add(s, block{}, true)
		}
	})
	doc.Find("tr").Each(func(_ int, s *goquery.Selection) {
		add(s, block{}, false)
	})
	doc.Find(pricingSelector).Each(func(_ int, s *goquery.Selection) {
		scanned := s.Find("*").FilterFunction(func(_ int, c *goquery.Selection) bool {
			return seenNode[c.Get(0)]
		})
		if scanned.Length() == 0 {
			add(s, block{pricing: true}, false)
		}
	})
	return out
}

func (x extractor) occurrences(b block, pageURL string) []occurrence {
	matches := x.tax.FindAll(b.text)
	if len(matches) == 0 {
		return nil
	}

	lower := strings.ToLower(b.text)
	price := strings.ReplaceAll(priceRe.FindString(b.text), " ", "")

	conf := baseConfidence
	if taxonomy.ContainsAnyWord(lower, x.tax.TreatmentSuffixes) {
		conf += suffixBoost
	}
	if b.pricing || price != "" || taxonomy.ContainsAny(lower, x.tax.PricingWords) {
		conf += pricingBoost
	}
	if b.bullet {
		conf += bulletBoost
	}
	conf = min(conf, 1.0)

	// Match indices are into the lowercased text; only reuse them on the
	// original when lowering kept every byte offset.
	src := b.text
	if len(lower) != len(src) {
		src = lower
	}

	out := make([]occurrence, 0, len(matches))
	for _, m := range matches {
		out = append(out, occurrence{
			category:   m.Category,
			phrase:     m.Phrase,
			confidence: conf,
			context:    window(src, m.Index, len(m.Phrase)),
			price:      price,
			sourceURL:  pageURL,
		})
	}
	return out
}

// signals runs the whole-page keyword checks over every fetched page.
func (x extractor) signals(texts []string) model.ClinicSignals {
	lower := strings.ToLower(strings.Join(texts, "\n"))
	sig := x.tax.Signals

	out := model.ClinicSignals{
		AcceptsInsurance: taxonomy.ContainsAny(lower, sig.Insurance),
		OffersFinancing:  taxonomy.ContainsAny(lower, sig.Financing),
		FreeConsultation: taxonomy.ContainsAny(lower, sig.FreeConsult),
	}
	out.Consultation = out.FreeConsultation || taxonomy.ContainsAnyWord(lower, sig.Consultation)
	for _, s := range sig.Specializations {
		if taxonomy.IndexWord(lower, s) >= 0 {
			out.Specializations = append(out.Specializations, s)
		}
	}
	return out
}

// merge folds occurrences into one service per category. Each extra mention
// lifts the best confidence seen so far by mentionFactor; price and context
// are taken from the first occurrence that has them.
func merge(occs []occurrence) []model.ScrapedService {
	index := make(map[string]int)
	out := []model.ScrapedService{}

	for _, o := range occs {
		if i, ok := index[o.category]; ok {
			s := &out[i]
			s.Confidence = min(max(s.Confidence, o.confidence)*mentionFactor, 1.0)
			s.Mentions++
			if s.Price == "" {
				s.Price = o.price
			}
			if s.Context == "" {
				s.Context = o.context
			}
			continue
		}
		index[o.category] = len(out)
		out = append(out, model.ScrapedService{
			Category:   o.category,
			Phrase:     o.phrase,
			Confidence: o.confidence,
			Context:    o.context,
			Price:      o.price,
			SourceURL:  o.sourceURL,
			Mentions:   1,
		})
	}

	for i := range out {
		out[i].Confidence = math.Round(out[i].Confidence*100) / 100
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Category < out[j].Category
	})
	return out
}

func hasBulletMarkup(s *goquery.Selection, text string) bool {
	if r, _ := utf8.DecodeRuneInString(text); strings.ContainsRune(bulletGlyphs, r) {
		return true
	}
	class := strings.ToLower(s.AttrOr("class", ""))
	if strings.Contains(class, "check") || strings.Contains(class, "bullet") {
		return true
	}
	return s.Find("[class*='check'], [class*='bullet']").Length() > 0
}

// window returns text within contextRadius bytes of [idx, idx+n), widened
// to rune boundaries.
func window(text string, idx, n int) string {
	start := max(idx-contextRadius, 0)
	end := min(idx+n+contextRadius, len(text))
	for start > 0 && !utf8.RuneStart(text[start]) {
		start--
	}
	for end < len(text) && !utf8.RuneStart(text[end]) {
		end++
	}
	return strings.TrimSpace(text[start:end])
}

func collapse(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}
