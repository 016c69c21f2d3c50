package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestRawRecord_String(t *testing.T) {
	r := RawRecord{
		"name":     "  Acme Clinic ",
		"phone":    float64(5125551234),
		"services": []any{"TRT", "ED"},
		"empty":    nil,
	}
	assert.Equal(t, "Acme Clinic", r.String("name"))
	assert.Equal(t, "5125551234", r.String("phone"))
	assert.Equal(t, "TRT, ED", r.String("services"))
	assert.Equal(t, "", r.String("empty"))
	assert.Equal(t, "", r.String("missing"))
}

func TestClinic_Tags(t *testing.T) {
	c := &Clinic{}
	c.AddTag(TagLowQuality)
	c.AddTag(TagLowQuality)
	c.AddTag(TagNeedsReview)
	assert.Equal(t, []string{TagLowQuality, TagNeedsReview}, c.Tags)

	c.RemoveTag(TagLowQuality)
	assert.Equal(t, []string{TagNeedsReview}, c.Tags)
	assert.False(t, c.HasTag(TagLowQuality))
}

func TestGeocodeResult_Valid(t *testing.T) {
	assert.False(t, FailedGeocode().Valid())
	assert.False(t, GeocodeResult{Accuracy: AccuracyExact}.Valid())
	assert.True(t, GeocodeResult{Latitude: 30.26, Longitude: -97.74, Accuracy: AccuracyApproximate}.Valid())
}

func TestOutcome(t *testing.T) {
	ok := Ok(3)
	assert.True(t, ok.IsOK())

	d := Degraded("placeholder", "ai unavailable")
	assert.False(t, d.IsOK())
	assert.Equal(t, OutcomeDegraded, d.Status)
	assert.Equal(t, "ai unavailable", d.Reason)

	f := Failed(FailedGeocode(), "no match")
	assert.Equal(t, OutcomeFailed, f.Status)
	assert.Equal(t, AccuracyFailed, f.Value.Accuracy)
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorType
	}{
		{fmt.Errorf("ingest: %w", &ValidationError{Field: "name"}), ErrorValidation},
		{&DuplicateError{MatchedID: "x", Reason: "address"}, ErrorDuplicate},
		{eris.Wrap(ErrSlugExhausted, "slug: acme"), ErrorSlugExhausted},
		{&StoreWriteError{Key: "x", Err: errors.New("disk full")}, ErrorStoreWrite},
		{eris.Wrap(ErrNotFound, "verify"), ErrorNotFound},
		{errors.New("other"), ErrorInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyError(tt.err), tt.err.Error())
	}
}
