package model

import "time"

// ScrapedService is one offered service detected on a clinic website.
type ScrapedService struct {
	Category   string  `json:"category"`
	Phrase     string  `json:"phrase"`
	Confidence float64 `json:"confidence"`
	Context    string  `json:"context,omitempty"`
	Price      string  `json:"price,omitempty"`
	SourceURL  string  `json:"source_url,omitempty"`
	Mentions   int     `json:"mentions"`
}

// ClinicSignals are whole-site facts detected independently of services.
type ClinicSignals struct {
	AcceptsInsurance bool     `json:"accepts_insurance"`
	OffersFinancing  bool     `json:"offers_financing"`
	FreeConsultation bool     `json:"free_consultation"`
	Consultation     bool     `json:"consultation"`
	Specializations  []string `json:"specializations,omitempty"`
}

// CrawlResult is the outcome of a service-extraction crawl. Success is
// false only when the homepage could not be fetched at all.
type CrawlResult struct {
	Website      string           `json:"website"`
	Success      bool             `json:"success"`
	Error        string           `json:"error,omitempty"`
	Services     []ScrapedService `json:"services"`
	Signals      ClinicSignals    `json:"signals"`
	PagesCrawled int              `json:"pages_crawled"`
	PagesFailed  int              `json:"pages_failed"`
	CrawledAt    time.Time        `json:"crawled_at"`
}
