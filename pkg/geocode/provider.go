package geocode

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/clinic-ingest/internal/model"
)

// ErrNoMatch is returned by a provider that answered but found nothing.
var ErrNoMatch = eris.New("geocode: no match")

// Provider is a single geocoding backend.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, oneLine string) (model.GeocodeResult, error)
}

// FormatOneLine joins the address parts the way both providers expect:
// "street, city, state zip". Blank parts are skipped.
func FormatOneLine(address, city, state, zip string) string {
	var parts []string
	if s := strings.TrimSpace(address); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(city); s != "" {
		parts = append(parts, s)
	}
	tail := strings.TrimSpace(strings.TrimSpace(state) + " " + strings.TrimSpace(zip))
	if tail != "" {
		parts = append(parts, tail)
	}
	return strings.Join(parts, ", ")
}
