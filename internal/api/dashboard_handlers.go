package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/xencrm/crm-server/internal/domain"
	"github.com/xencrm/crm-server/internal/pkg/httputil"
)

// CustomerFeed is the read surface behind the dashboard customer list.
type CustomerFeed interface {
	Dashboard(ctx context.Context, limit int) ([]domain.Customer, error)
}

// DashboardHandlers serves the customer dashboard feed.
type DashboardHandlers struct {
	feed CustomerFeed
}

// NewDashboardHandlers creates the dashboard handler group.
func NewDashboardHandlers(feed CustomerFeed) *DashboardHandlers {
	return &DashboardHandlers{feed: feed}
}

// customerRow is the dashboard projection of a customer.
type customerRow struct {
	CustomerID  string  `json:"customer_id"`
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	TotalSpend  float64 `json:"total_spend"`
	TotalVisits int     `json:"total_visits"`
	Status      string  `json:"status"`
}

// Customers returns the most recently synced customers.
func (h *DashboardHandlers) Customers(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			httputil.BadRequest(w, "invalid limit")
			return
		}
		limit = n
	}

	customers, err := h.feed.Dashboard(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	rows := make([]customerRow, 0, len(customers))
	for _, c := range customers {
		rows = append(rows, customerRow{
			CustomerID:  c.CustomerID,
			Name:        c.Name,
			Email:       c.Email,
			TotalSpend:  c.TotalSpend,
			TotalVisits: c.TotalVisits,
			Status:      c.Status,
		})
	}
	httputil.OK(w, rows)
}
