package geocode

import (
	"context"
	"net/http"
	"net/url"

	"github.com/sells-group/clinic-ingest/internal/model"
)

const (
	censusOneLineURL = "https://geocoding.geo.census.gov/geocoder/locations/onelineaddress"
	censusBenchmark  = "Public_AR_Current"
)

type censusOneLineResponse struct {
	Result struct {
		AddressMatches []censusAddressMatch `json:"addressMatches"`
	} `json:"result"`
}

type censusAddressMatch struct {
	Coordinates struct {
		X float64 `json:"x"` // longitude
		Y float64 `json:"y"` // latitude
	} `json:"coordinates"`
	MatchedAddress string `json:"matchedAddress"`
}

// CensusProvider geocodes through the US Census one-line endpoint. No
// credential is required.
type CensusProvider struct {
	httpClient *http.Client
	baseURL    string
}

// NewCensusProvider returns the Census fallback provider.
func NewCensusProvider(hc *http.Client) *CensusProvider {
	return &CensusProvider{httpClient: hc, baseURL: censusOneLineURL}
}

// Name implements Provider.
func (p *CensusProvider) Name() string { return "census" }

// Geocode implements Provider. A one-line match resolves to a street
// address, so it is classified exact.
func (p *CensusProvider) Geocode(ctx context.Context, oneLine string) (model.GeocodeResult, error) {
	params := url.Values{
		"address":   {oneLine},
		"benchmark": {censusBenchmark},
		"format":    {"json"},
	}

	var out censusOneLineResponse
	if err := getJSON(ctx, p.httpClient, p.baseURL+"?"+params.Encode(), "census", &out); err != nil {
		return model.GeocodeResult{}, err
	}
	if len(out.Result.AddressMatches) == 0 {
		return model.GeocodeResult{}, ErrNoMatch
	}

	m := out.Result.AddressMatches[0]
	return model.GeocodeResult{
		Latitude:  m.Coordinates.Y,
		Longitude: m.Coordinates.X,
		Accuracy:  model.AccuracyExact,
		Source:    p.Name(),
	}, nil
}
