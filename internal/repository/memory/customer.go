// Package memory provides in-memory repository implementations used by unit
// tests and local development. They mirror the Postgres implementations'
// contracts, including error sentinels.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/xencrm/crm-server/internal/audience"
	"github.com/xencrm/crm-server/internal/domain"
)

// CustomerStore holds a fixed customer set and evaluates structured
// predicates in memory via the filter tree's Match.
type CustomerStore struct {
	mu        sync.RWMutex
	customers []domain.Customer
}

// NewCustomerStore creates a store seeded with the given customers.
func NewCustomerStore(customers []domain.Customer) *CustomerStore {
	cp := make([]domain.Customer, len(customers))
	copy(cp, customers)
	return &CustomerStore{customers: cp}
}

// Count implements audience.CustomerStore.
func (s *CustomerStore) Count(_ context.Context, p audience.Predicate) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p.Empty || p.Filter == nil {
		return 0, nil
	}
	n := 0
	for i := range s.customers {
		if p.Filter.Match(&s.customers[i]) {
			n++
		}
	}
	return n, nil
}

// Query implements audience.CustomerStore.
func (s *CustomerStore) Query(_ context.Context, p audience.Predicate, limit int) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p.Empty || p.Filter == nil {
		return nil, nil
	}
	var out []domain.Customer
	for i := range s.customers {
		if p.Filter.Match(&s.customers[i]) {
			out = append(out, s.customers[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalSpend > out[j].TotalSpend
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
