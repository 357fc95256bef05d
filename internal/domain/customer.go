package domain

import (
	"time"

	"github.com/xencrm/crm-server/internal/rules"
)

// CustomerStatus enumerates the states a customer record can be in.
type CustomerStatus string

const (
	CustomerActive   CustomerStatus = "ACTIVE"
	CustomerInactive CustomerStatus = "INACTIVE"
	CustomerChurned  CustomerStatus = "CHURNED"
)

// Customer is a single row of the synced customer view. The CRM does not own
// this data; it is refreshed externally and read-only here.
type Customer struct {
	CustomerID         string    `json:"customer_id" db:"customer_id"`
	Name               string    `json:"name" db:"name"`
	Email              string    `json:"email" db:"email"`
	TotalSpend         float64   `json:"total_spend" db:"total_spend"`
	TotalOrders        int       `json:"total_orders" db:"total_orders"`
	TotalVisits        int       `json:"total_visits" db:"total_visits"`
	Status             string    `json:"status" db:"status"`
	DaysSinceLastOrder int       `json:"days_since_last_order" db:"days_since_last_order"`
	SyncedAt           time.Time `json:"synced_at" db:"synced_at"`
}

// RuleNumber implements rules.Record for in-memory predicate evaluation.
func (c *Customer) RuleNumber(f rules.Field) float64 {
	switch f {
	case rules.FieldTotalSpend:
		return c.TotalSpend
	case rules.FieldTotalOrders:
		return float64(c.TotalOrders)
	case rules.FieldTotalVisits:
		return float64(c.TotalVisits)
	case rules.FieldDaysSinceLastOrder:
		return float64(c.DaysSinceLastOrder)
	}
	return 0
}

// RuleString implements rules.Record.
func (c *Customer) RuleString(f rules.Field) string {
	switch f {
	case rules.FieldStatus:
		return c.Status
	case rules.FieldName:
		return c.Name
	case rules.FieldEmail:
		return c.Email
	}
	return ""
}
