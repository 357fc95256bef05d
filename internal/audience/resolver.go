// Package audience resolves a segment's compiled rule set against the
// customer store, producing either a count (segment previews) or a
// materialized row set (campaign targeting).
//
// The resolver never filters client-side: predicates are compiled once and
// pushed down to the store, so work stays proportional to the matched set.
package audience

import (
	"context"
	"fmt"

	"github.com/xencrm/crm-server/internal/domain"
	"github.com/xencrm/crm-server/internal/rules"
)

// Predicate carries both compiled forms of a rule set. Store implementations
// pick the surface they execute: Postgres runs SQL for counts and the bound
// filter for row queries, the in-memory store evaluates Filter directly.
type Predicate struct {
	// Filter is the structured target. Nil only when Empty.
	Filter rules.Filter
	// SQL is the textual target: an escaped, allowlisted boolean expression.
	// Empty string only when Empty.
	SQL string
	// Empty marks the no-predicate sentinel (zero rule groups). Defined to
	// match nothing; callers short-circuit instead of querying.
	Empty bool
}

// CustomerStore is the query surface the resolver executes against.
type CustomerStore interface {
	// Count returns the number of customers matching the predicate.
	Count(ctx context.Context, p Predicate) (int, error)

	// Query returns matching customers ordered by total_spend descending,
	// projected to the personalization fields. limit <= 0 means no limit.
	Query(ctx context.Context, p Predicate, limit int) ([]domain.Customer, error)
}

// Compile validates a rule set and builds both predicate targets.
func Compile(groups []rules.RuleGroup) (Predicate, error) {
	expr, err := rules.Compile(groups)
	if err != nil {
		return Predicate{}, err
	}
	if expr == nil {
		return Predicate{Empty: true}, nil
	}

	where, err := rules.RenderSQL(expr)
	if err != nil {
		return Predicate{}, err
	}
	filter, err := rules.RenderFilter(expr)
	if err != nil {
		return Predicate{}, err
	}
	return Predicate{Filter: filter, SQL: where}, nil
}

// Resolver executes compiled predicates against a customer store.
type Resolver struct {
	store CustomerStore
}

// NewResolver creates a resolver over the given store.
func NewResolver(store CustomerStore) *Resolver {
	return &Resolver{store: store}
}

// Count returns the audience size for a rule set. An empty rule-group set
// short-circuits to zero without touching the store.
func (r *Resolver) Count(ctx context.Context, groups []rules.RuleGroup) (int, error) {
	p, err := Compile(groups)
	if err != nil {
		return 0, err
	}
	if p.Empty {
		return 0, nil
	}
	n, err := r.store.Count(ctx, p)
	if err != nil {
		return 0, fmt.Errorf("count audience: %w", err)
	}
	return n, nil
}

// Materialize returns every customer matching a rule set. An empty rule-group
// set yields an empty audience without a store round trip.
func (r *Resolver) Materialize(ctx context.Context, groups []rules.RuleGroup) ([]domain.Customer, error) {
	p, err := Compile(groups)
	if err != nil {
		return nil, err
	}
	if p.Empty {
		return nil, nil
	}
	out, err := r.store.Query(ctx, p, 0)
	if err != nil {
		return nil, fmt.Errorf("materialize audience: %w", err)
	}
	return out, nil
}

// maxSampleSize caps sample queries for safety.
const maxSampleSize = 100

// Sample returns up to limit matching customers (highest spend first), for
// segment-builder previews.
func (r *Resolver) Sample(ctx context.Context, groups []rules.RuleGroup, limit int) ([]domain.Customer, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > maxSampleSize {
		limit = maxSampleSize
	}

	p, err := Compile(groups)
	if err != nil {
		return nil, err
	}
	if p.Empty {
		return nil, nil
	}
	out, err := r.store.Query(ctx, p, limit)
	if err != nil {
		return nil, fmt.Errorf("sample audience: %w", err)
	}
	return out, nil
}
