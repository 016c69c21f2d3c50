// Package dedupe classifies incoming clinics as new, duplicates of a stored
// listing, or additional branch locations of a known business.
package dedupe

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/clinic-ingest/internal/model"
	"github.com/sells-group/clinic-ingest/internal/store"
)

// Match reasons recorded on a Verdict.
const (
	ReasonAddress  = "address"
	ReasonNameCity = "name+city"
	ReasonBranch   = "name-other-city"
)

// Querier is the read capability the resolver needs from the record store.
type Querier interface {
	Query(ctx context.Context, filters ...store.Filter) ([]*model.Clinic, error)
}

// Resolver applies the duplicate rules in order; the first match wins.
type Resolver struct {
	q Querier
}

// New creates a Resolver reading through q.
func New(q Querier) *Resolver {
	return &Resolver{q: q}
}

// Resolve returns the verdict for c. Stored records with c's own ID are
// ignored so a record never matches itself.
func (r *Resolver) Resolve(ctx context.Context, c *model.Clinic) (model.Verdict, error) {
	if c.Address != "" && c.City != "" && c.State != "" {
		hits, err := r.q.Query(ctx,
			store.Eq(store.FieldAddress, c.Address),
			store.Eq(store.FieldCity, c.City),
			store.Eq(store.FieldState, c.State),
		)
		if err != nil {
			return model.Verdict{}, eris.Wrap(err, "dedupe: query address")
		}
		if m := firstOther(hits, c.ID); m != nil {
			return model.Verdict{IsDuplicate: true, MatchedID: m.ID, Reason: ReasonAddress}, nil
		}
	}

	if c.NameKey != "" {
		hits, err := r.q.Query(ctx, store.Prefix(store.FieldNameKey, c.NameKey))
		if err != nil {
			return model.Verdict{}, eris.Wrap(err, "dedupe: query name")
		}
		var sameName []*model.Clinic
		for _, h := range hits {
			if h.ID != c.ID && h.NameKey == c.NameKey {
				sameName = append(sameName, h)
			}
		}
		for _, h := range sameName {
			if strings.EqualFold(h.City, c.City) {
				return model.Verdict{IsDuplicate: true, MatchedID: h.ID, Reason: ReasonNameCity}, nil
			}
		}
		if len(sameName) > 0 {
			return model.Verdict{
				IsDuplicate: true,
				IsBranch:    true,
				MatchedID:   sameName[0].ID,
				Reason:      ReasonBranch,
			}, nil
		}
	}

	if err := r.warnPhoneMatches(ctx, c); err != nil {
		return model.Verdict{}, err
	}
	return model.Verdict{}, nil
}

// warnPhoneMatches logs stored listings that share c's phone number at a
// different address. Shared numbers are too ambiguous to decide on.
func (r *Resolver) warnPhoneMatches(ctx context.Context, c *model.Clinic) error {
	if c.Phone == "" || c.Phone == model.PhoneInvalid {
		return nil
	}
	hits, err := r.q.Query(ctx, store.Eq(store.FieldPhone, c.Phone))
	if err != nil {
		return eris.Wrap(err, "dedupe: query phone")
	}
	for _, h := range hits {
		if h.ID == c.ID || strings.EqualFold(h.Address, c.Address) {
			continue
		}
		zap.L().Warn("dedupe: phone shared with listing at another address",
			zap.String("name", c.Name),
			zap.String("phone", c.Phone),
			zap.String("matched_id", h.ID),
			zap.String("matched_address", h.Address),
		)
	}
	return nil
}

func firstOther(hits []*model.Clinic, id string) *model.Clinic {
	for _, h := range hits {
		if id == "" || h.ID != id {
			return h
		}
	}
	return nil
}

// Error converts a non-branch duplicate verdict into the error the import
// records for it. Branches and new records yield nil.
func Error(v model.Verdict) error {
	if !v.IsDuplicate || v.IsBranch {
		return nil
	}
	return &model.DuplicateError{MatchedID: v.MatchedID, Reason: v.Reason}
}
