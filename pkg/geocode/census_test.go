package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/clinic-ingest/internal/model"
)

func TestCensusProvider_Match(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geocoder/locations/onelineaddress", r.URL.Path)
		assert.Equal(t, censusBenchmark, r.URL.Query().Get("benchmark"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		_, _ = w.Write([]byte(`{"result":{"addressMatches":[{"matchedAddress":"1 ELM","coordinates":{"x":-96.8,"y":32.7}}]}}`))
	}))
	defer srv.Close()

	p := NewCensusProvider(newRewriteClient(srv.URL, "https://geocoding.geo.census.gov"))

	res, err := p.Geocode(context.Background(), "1 Elm, Dallas, TX")
	require.NoError(t, err)
	assert.Equal(t, model.GeocodeResult{Latitude: 32.7, Longitude: -96.8, Accuracy: model.AccuracyExact, Source: "census"}, res)
}

func TestCensusProvider_NoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"result":{"addressMatches":[]}}`))
	}))
	defer srv.Close()

	p := NewCensusProvider(newRewriteClient(srv.URL, "https://geocoding.geo.census.gov"))

	_, err := p.Geocode(context.Background(), "nowhere")
	assert.ErrorIs(t, err, ErrNoMatch)
}
