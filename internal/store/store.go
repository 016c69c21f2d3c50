// Package store persists clinic documents and import logs. Each clinic is one
// JSON document keyed by its slug, with a handful of columns promoted for
// the duplicate and existence lookups the pipeline performs.
package store

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/clinic-ingest/internal/config"
	"github.com/sells-group/clinic-ingest/internal/model"
)

// DefaultWriteBatchSize bounds how many documents one PutBatch commit holds.
const DefaultWriteBatchSize = 500

// Op is a filter comparison.
type Op string

const (
	OpEq     Op = "eq"
	OpPrefix Op = "prefix"
)

// Filter restricts a Query to documents whose Field compares to Value.
type Filter struct {
	Field string
	Op    Op
	Value string
}

// Eq matches documents whose field equals value.
func Eq(field, value string) Filter { return Filter{Field: field, Op: OpEq, Value: value} }

// Prefix matches documents whose field starts with value.
func Prefix(field, value string) Filter { return Filter{Field: field, Op: OpPrefix, Value: value} }

// Queryable fields. Filters on anything else are rejected.
const (
	FieldNameKey = "name_key"
	FieldAddress = "address"
	FieldCity    = "city"
	FieldState   = "state"
	FieldPhone   = "phone"
	FieldSlug    = "slug"
)

var queryable = map[string]bool{
	FieldNameKey: true, FieldAddress: true, FieldCity: true,
	FieldState: true, FieldPhone: true, FieldSlug: true,
}

// filterValue folds the value the same way the promoted column is stored.
// Address and city columns are lowercased so lookups ignore case.
func filterValue(f Filter) string {
	switch f.Field {
	case FieldAddress, FieldCity, FieldNameKey:
		return strings.ToLower(f.Value)
	}
	return f.Value
}

func validateFilters(filters []Filter) error {
	for _, f := range filters {
		if !queryable[f.Field] {
			return eris.Errorf("store: field %q is not queryable", f.Field)
		}
		if f.Op != OpEq && f.Op != OpPrefix {
			return eris.Errorf("store: unsupported op %q", f.Op)
		}
	}
	return nil
}

// Store is the record store the pipeline reads and writes through. Writes
// are last-write-wins per key.
type Store interface {
	// Clinics
	Get(ctx context.Context, id string) (*model.Clinic, error)
	Exists(ctx context.Context, id string) (bool, error)
	Put(ctx context.Context, c *model.Clinic) error
	PutBatch(ctx context.Context, cs []*model.Clinic) error
	Query(ctx context.Context, filters ...Filter) ([]*model.Clinic, error)

	// Import logs
	AppendImportLog(ctx context.Context, r *model.ImportResult) error
	ListImportLogs(ctx context.Context, limit int) ([]*model.ImportResult, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates the Store selected by cfg.Driver and runs its migration.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "sqlite", "":
		s, err = NewSQLite(cfg.DatabaseURL, cfg.WriteBatchSize)
	case "postgres":
		s, err = NewPostgres(ctx, cfg.DatabaseURL, cfg.WriteBatchSize)
	case "memory":
		s = NewMemory()
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// chunk splits cs into slices of at most size documents.
func chunk(cs []*model.Clinic, size int) [][]*model.Clinic {
	if size <= 0 {
		size = DefaultWriteBatchSize
	}
	var out [][]*model.Clinic
	for len(cs) > size {
		out = append(out, cs[:size])
		cs = cs[size:]
	}
	if len(cs) > 0 {
		out = append(out, cs)
	}
	return out
}

func requireID(c *model.Clinic) error {
	if c == nil || c.ID == "" {
		return eris.New("store: document has no id")
	}
	return nil
}
