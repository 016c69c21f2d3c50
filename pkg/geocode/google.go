package geocode

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/clinic-ingest/internal/model"
	"github.com/sells-group/clinic-ingest/internal/resilience"
)

const googleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

type googleGeocodeResponse struct {
	Results      []googleResult `json:"results"`
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message"`
}

type googleResult struct {
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
		LocationType string `json:"location_type"`
	} `json:"geometry"`
	FormattedAddress string `json:"formatted_address"`
}

// GoogleProvider geocodes through the Google Geocoding API. It needs a key.
type GoogleProvider struct {
	key        string
	httpClient *http.Client
	baseURL    string
}

// NewGoogleProvider returns a provider for the given API key.
func NewGoogleProvider(key string, hc *http.Client) *GoogleProvider {
	return &GoogleProvider{key: key, httpClient: hc, baseURL: googleGeocodeURL}
}

// Name implements Provider.
func (p *GoogleProvider) Name() string { return "google" }

// Geocode implements Provider.
func (p *GoogleProvider) Geocode(ctx context.Context, oneLine string) (model.GeocodeResult, error) {
	params := url.Values{
		"address": {oneLine},
		"key":     {p.key},
	}

	var out googleGeocodeResponse
	if err := getJSON(ctx, p.httpClient, p.baseURL+"?"+params.Encode(), "google", &out); err != nil {
		return model.GeocodeResult{}, err
	}

	switch out.Status {
	case "OK":
	case "ZERO_RESULTS":
		return model.GeocodeResult{}, ErrNoMatch
	case "OVER_QUERY_LIMIT", "UNKNOWN_ERROR":
		return model.GeocodeResult{}, resilience.NewTransientError(
			eris.Errorf("geocode: google status %s", out.Status), 0)
	default:
		return model.GeocodeResult{}, eris.Errorf("geocode: google status %s: %s", out.Status, out.ErrorMessage)
	}
	if len(out.Results) == 0 {
		return model.GeocodeResult{}, ErrNoMatch
	}

	r := out.Results[0]
	return model.GeocodeResult{
		Latitude:  r.Geometry.Location.Lat,
		Longitude: r.Geometry.Location.Lng,
		Accuracy:  googleAccuracy(r.Geometry.LocationType),
		Source:    p.Name(),
	}, nil
}

// googleAccuracy maps Google's location_type onto the accuracy tiers.
// Only ROOFTOP is a true address hit; interpolated and centroid results are
// approximate.
func googleAccuracy(locType string) model.Accuracy {
	if strings.EqualFold(locType, "ROOFTOP") {
		return model.AccuracyExact
	}
	return model.AccuracyApproximate
}

// getJSON performs a GET and decodes a JSON body. Statuses that are worth
// retrying come back as a resilience.TransientError.
func getJSON(ctx context.Context, hc *http.Client, reqURL, provider string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return eris.Wrapf(err, "geocode: %s build request", provider)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return eris.Wrapf(err, "geocode: %s request", provider)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		statusErr := eris.Errorf("geocode: %s returned status %d", provider, resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		return statusErr
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return eris.Wrapf(err, "geocode: %s parse response", provider)
	}
	return nil
}
