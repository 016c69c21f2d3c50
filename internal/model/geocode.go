package model

// Accuracy is the coarse confidence bucket of a geocoded coordinate.
type Accuracy string

const (
	AccuracyExact       Accuracy = "exact"
	AccuracyApproximate Accuracy = "approximate"
	AccuracyFailed      Accuracy = "failed"
)

// GeocodeResult is a coordinate with its accuracy tier. A failed geocode is
// stored as (0,0) with AccuracyFailed.
type GeocodeResult struct {
	Latitude  float64  `json:"lat"`
	Longitude float64  `json:"lng"`
	Accuracy  Accuracy `json:"accuracy"`
	Source    string   `json:"source,omitempty"`
}

// Valid reports whether the coordinate is usable: not failed and not (0,0).
func (g GeocodeResult) Valid() bool {
	if g.Accuracy == AccuracyFailed || g.Accuracy == "" {
		return false
	}
	return g.Latitude != 0 || g.Longitude != 0
}

// FailedGeocode is the placeholder stored when no provider matched.
func FailedGeocode() GeocodeResult {
	return GeocodeResult{Accuracy: AccuracyFailed}
}
