package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/xencrm/crm-server/internal/auth"
	"github.com/xencrm/crm-server/internal/domain"
	"github.com/xencrm/crm-server/internal/pkg/httputil"
	"github.com/xencrm/crm-server/internal/service/campaign"
)

// CampaignHandlers handles campaign launch, history, and stats endpoints.
type CampaignHandlers struct {
	svc *campaign.Service
}

// NewCampaignHandlers creates the campaign handler group.
func NewCampaignHandlers(svc *campaign.Service) *CampaignHandlers {
	return &CampaignHandlers{svc: svc}
}

// Launch creates a campaign and runs the targeting pipeline.
func (h *CampaignHandlers) Launch(w http.ResponseWriter, r *http.Request) {
	var input campaign.LaunchInput
	if !httputil.Decode(w, r, &input) {
		return
	}

	res, err := h.svc.Launch(r.Context(), auth.Identity(r.Context()), input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.Created(w, res)
}

// Get returns a single campaign.
func (h *CampaignHandlers) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Get(r.Context(), chi.URLParam(r, "campaignID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, c)
}

// campaignPage is the paginated history payload.
type campaignPage struct {
	Campaigns []campaign.ListItem `json:"campaigns"`
	Total     int                 `json:"total"`
	Page      int                 `json:"page"`
	Limit     int                 `json:"limit"`
}

// List returns campaign history pages, newest first. Pagination uses
// page/limit query parameters (1-based page).
func (h *CampaignHandlers) List(w http.ResponseWriter, r *http.Request) {
	page := 1
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	items, total, err := h.svc.List(r.Context(), campaign.ListFilter{
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, campaignPage{Campaigns: items, Total: total, Page: page, Limit: limit})
}

// campaignStatsPayload joins the campaign with its delivery roll-up.
type campaignStatsPayload struct {
	CampaignID          string                `json:"campaign_id"`
	Name                string                `json:"name"`
	CampaignType        string                `json:"campaign_type"`
	Status              domain.CampaignStatus `json:"status"`
	TargetAudienceCount int                   `json:"target_audience_count"`
	Stats               *domain.CampaignStats `json:"stats"`
}

// Stats returns the delivery roll-up for a campaign.
func (h *CampaignHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	c, stats, err := h.svc.Stats(r.Context(), chi.URLParam(r, "campaignID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, campaignStatsPayload{
		CampaignID:          c.CampaignID,
		Name:                c.Name,
		CampaignType:        c.CampaignType,
		Status:              c.Status,
		TargetAudienceCount: c.TargetAudienceCount,
		Stats:               stats,
	})
}

// decodeJSONString unmarshals a JSON document carried in a query parameter.
func decodeJSONString(raw string, dst any) error {
	return json.Unmarshal([]byte(raw), dst)
}
