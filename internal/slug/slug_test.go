package slug

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/clinic-ingest/internal/model"
	"github.com/sells-group/clinic-ingest/internal/taxonomy"
)

type fakeExister struct {
	mu    sync.Mutex
	taken map[string]bool
	calls int
	err   error
	all   bool
}

func (f *fakeExister) Exists(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.all || f.taken[key], nil
}

func newGen(ex Exister, max int) *Generator {
	return New(ex, taxonomy.Default(), max)
}

func TestBase(t *testing.T) {
	g := newGen(&fakeExister{}, 0)
	tests := []struct {
		name, city, state string
		want              string
	}{
		{"Acme Clinic", "Austin", "TX", "acme-austin-tx"},
		{"Lone Star Men's Health Clinic, LLC", "Austin", "TX", "lone-star-austin-tx"},
		{"Lone Star Men’s Health", "Austin", "TX", "lone-star-austin-tx"},
		{"Clínica Salud", "San José", "CA", "clinica-salud-san-jose-ca"},
		{"Joe's  T-Clinic!!", "El Paso", "TX", "joes-t-clinic-el-paso-tx"},
		{"Medical Center", "", "", "clinic"},
		{"Peak Performance Inc.", "Denver", "CO", "peak-performance-denver-co"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.Base(tt.name, tt.city, tt.state, false))
		})
	}
}

func TestBase_Truncates(t *testing.T) {
	g := newGen(&fakeExister{}, 0)
	name := strings.Repeat("alpha beta ", 10)
	got := g.Base(name, "Austin", "TX", false)
	assert.LessOrEqual(t, len(got), MaxLength)
	assert.False(t, strings.HasSuffix(got, "-"))
	assert.False(t, strings.HasSuffix(got, "austin-tx"))
}

func TestBase_BranchKeepsLocation(t *testing.T) {
	g := newGen(&fakeExister{}, 0)
	name := strings.Repeat("alpha beta ", 10)
	got := g.Base(name, "Dallas", "TX", true)
	assert.LessOrEqual(t, len(got), MaxLength)
	assert.True(t, strings.HasSuffix(got, "-dallas-tx"), got)
	assert.True(t, strings.HasPrefix(got, "alpha-beta"))

	assert.Equal(t, "acme-dallas-tx", g.Base("Acme Clinic", "Dallas", "TX", true))
}

func TestBase_SuffixWordsOnlyTrimName(t *testing.T) {
	tax := taxonomy.Default()
	tax.SuffixWords = append(tax.SuffixWords, "co", "denver")
	g := New(&fakeExister{}, tax, 0)

	assert.Equal(t, "peak-performance-denver-co", g.Base("Peak Performance Co.", "Denver", "CO", false))
	assert.Equal(t, "acme-denver-co", g.Base("Acme Clinic", "Denver", "CO", true))
	assert.Equal(t, "denver-co", g.Base("Denver Wellness", "Denver", "CO", true))
}

func TestBase_ColoradoBranch(t *testing.T) {
	g := newGen(&fakeExister{}, 0)
	assert.Equal(t, "acme-denver-co", g.Base("Acme Clinic", "Denver", "CO", true))
	assert.Equal(t, "acme-co-denver-co", g.Base("Acme Co", "Denver", "CO", false))
}

func TestUnique_Idempotent(t *testing.T) {
	g := newGen(&fakeExister{}, 0)
	ctx := context.Background()

	a, err := g.Unique(ctx, "Acme Clinic", "Austin", "TX", false)
	require.NoError(t, err)
	b, err := g.Unique(ctx, "Acme Clinic", "Austin", "TX", false)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, "acme-austin-tx", a)
}

func TestUnique_Collision(t *testing.T) {
	ex := &fakeExister{taken: map[string]bool{"acme-austin-tx": true}}
	g := newGen(ex, 0)

	got, err := g.Unique(context.Background(), "Acme Clinic", "Austin", "TX", false)
	require.NoError(t, err)
	assert.Equal(t, "acme-austin-tx-2", got)

	ex.taken["acme-austin-tx-2"] = true
	got, err = g.Unique(context.Background(), "Acme Clinic", "Austin", "TX", false)
	require.NoError(t, err)
	assert.Equal(t, "acme-austin-tx-3", got)
}

func TestUnique_Exhausted(t *testing.T) {
	ex := &fakeExister{all: true}
	g := newGen(ex, 5)

	_, err := g.Unique(context.Background(), "Acme", "Austin", "TX", false)
	require.Error(t, err)
	assert.Equal(t, model.ErrorSlugExhausted, model.ClassifyError(err))
	assert.Equal(t, 5, ex.calls)
}

func TestUnique_DefaultCap(t *testing.T) {
	ex := &fakeExister{all: true}
	g := newGen(ex, 0)

	_, err := g.Unique(context.Background(), "Acme", "Austin", "TX", false)
	require.Error(t, err)
	assert.Equal(t, DefaultMaxAttempts, ex.calls)
}

func TestUnique_ExistsError(t *testing.T) {
	g := newGen(&fakeExister{err: errors.New("boom")}, 0)

	_, err := g.Unique(context.Background(), "Acme", "Austin", "TX", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, model.ErrorInternal, model.ClassifyError(err))
}
