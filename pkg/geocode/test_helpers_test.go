package geocode

import (
	"net/http"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"
)

const (
	googleRoute = "GET " + googleGeocodeURL
	censusRoute = "GET " + censusOneLineURL
)

// newMockClient returns an HTTP client backed by a fresh httpmock transport.
func newMockClient(t *testing.T) (*http.Client, *httpmock.MockTransport) {
	t.Helper()
	transport := httpmock.NewMockTransport()
	return &http.Client{Transport: transport}, transport
}

func googleBody(status, locType string, lat, lng float64) map[string]any {
	body := map[string]any{"status": status, "results": []any{}}
	if status == "OK" {
		body["results"] = []any{map[string]any{
			"formatted_address": "123 Main St",
			"geometry": map[string]any{
				"location":      map[string]any{"lat": lat, "lng": lng},
				"location_type": locType,
			},
		}}
	}
	return body
}

func censusBody(matches ...[2]float64) map[string]any {
	list := make([]any, 0, len(matches))
	for _, m := range matches {
		list = append(list, map[string]any{
			"matchedAddress": "123 MAIN ST, AUSTIN, TX, 78701",
			"coordinates":    map[string]any{"x": m[1], "y": m[0]},
		})
	}
	return map[string]any{"result": map[string]any{"addressMatches": list}}
}

// newRewriteClient creates an HTTP client that sends requests for targetPrefix
// to the test server instead.
func newRewriteClient(testServerURL, targetPrefix string) *http.Client {
	return &http.Client{
		Transport: &rewriteTransport{
			base:         http.DefaultTransport,
			testServer:   testServerURL,
			targetPrefix: targetPrefix,
		},
	}
}

type rewriteTransport struct {
	base         http.RoundTripper
	testServer   string
	targetPrefix string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	origURL := req.URL.String()
	if !strings.HasPrefix(origURL, t.targetPrefix) {
		return t.base.RoundTrip(req)
	}
	parsed, err := req.URL.Parse(t.testServer + origURL[len(t.targetPrefix):])
	if err != nil {
		return nil, err
	}
	newReq := req.Clone(req.Context())
	newReq.URL = parsed
	newReq.Host = parsed.Host
	return t.base.RoundTrip(newReq)
}
