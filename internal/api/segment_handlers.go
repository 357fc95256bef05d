package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/xencrm/crm-server/internal/auth"
	"github.com/xencrm/crm-server/internal/pkg/httputil"
	"github.com/xencrm/crm-server/internal/rules"
	"github.com/xencrm/crm-server/internal/service/segment"
)

// SegmentHandlers handles segment CRUD and audience preview endpoints.
type SegmentHandlers struct {
	svc *segment.Service
}

// NewSegmentHandlers creates the segment handler group.
func NewSegmentHandlers(svc *segment.Service) *SegmentHandlers {
	return &SegmentHandlers{svc: svc}
}

// List returns all segments, newest first.
func (h *SegmentHandlers) List(w http.ResponseWriter, r *http.Request) {
	segments, err := h.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, segments)
}

// Create persists a new segment with a resolved preview count.
func (h *SegmentHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var input segment.CreateInput
	if !httputil.Decode(w, r, &input) {
		return
	}

	seg, err := h.svc.Create(r.Context(), auth.Identity(r.Context()), input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.Created(w, seg)
}

// Get returns a single segment.
func (h *SegmentHandlers) Get(w http.ResponseWriter, r *http.Request) {
	seg, err := h.svc.Get(r.Context(), chi.URLParam(r, "segmentID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, seg)
}

// Update rewrites a segment's definition and refreshes its preview count.
func (h *SegmentHandlers) Update(w http.ResponseWriter, r *http.Request) {
	var input segment.CreateInput
	if !httputil.Decode(w, r, &input) {
		return
	}

	seg, err := h.svc.Update(r.Context(), chi.URLParam(r, "segmentID"), input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, seg)
}

// Delete removes a segment unless campaigns still reference it.
func (h *SegmentHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "segmentID")); err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.NoContent(w)
}

// PreviewRequest is the body for ad-hoc audience previews.
type PreviewRequest struct {
	RuleGroups []rules.RuleGroup `json:"rules"`
}

// Preview resolves the audience count for an unsaved rule set.
func (h *SegmentHandlers) Preview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	n, err := h.svc.Preview(r.Context(), req.RuleGroups)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OKCount(w, n)
}

// Sample returns up to limit matching customers for an unsaved rule set.
// The rule set rides in the "rules" query parameter as JSON so the endpoint
// stays a GET.
func (h *SegmentHandlers) Sample(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("rules")
	if raw == "" {
		httputil.BadRequest(w, "rules query parameter is required")
		return
	}
	var groups []rules.RuleGroup
	if err := decodeJSONString(raw, &groups); err != nil {
		httputil.BadRequest(w, "invalid rules JSON: "+err.Error())
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			httputil.BadRequest(w, "invalid limit")
			return
		}
		limit = n
	}

	customers, err := h.svc.Sample(r.Context(), groups, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, customers)
}
