package api

import (
	"errors"
	"net/http"

	"github.com/xencrm/crm-server/internal/pkg/httputil"
	"github.com/xencrm/crm-server/internal/rules"
	"github.com/xencrm/crm-server/internal/service/campaign"
	"github.com/xencrm/crm-server/internal/service/segment"
)

// writeServiceError maps service-layer errors onto the response envelope.
// Validation problems and sentinel errors are safe to expose; anything else
// is logged server-side and returned as a generic 500 so store internals
// (driver messages, SQL text) never reach a client.
func writeServiceError(w http.ResponseWriter, err error) {
	var verr *rules.ValidationError
	if errors.As(err, &verr) {
		httputil.BadRequest(w, verr.Msg)
		return
	}

	var conflict *segment.ConflictError
	if errors.As(err, &conflict) {
		httputil.ErrorDetails(w, http.StatusConflict, conflict.Error(), conflict.Campaigns)
		return
	}

	switch {
	case errors.Is(err, segment.ErrNotFound):
		httputil.NotFound(w, "segment not found")
	case errors.Is(err, campaign.ErrNotFound):
		httputil.NotFound(w, "campaign not found")
	case errors.Is(err, campaign.ErrSegmentNotFound):
		httputil.NotFound(w, "segment not found")
	case errors.Is(err, campaign.ErrLaunchInProgress):
		httputil.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, segment.ErrNameRequired),
		errors.Is(err, segment.ErrNoRuleGroups),
		errors.Is(err, campaign.ErrNameRequired),
		errors.Is(err, campaign.ErrMessageRequired),
		errors.Is(err, campaign.ErrSegmentRequired):
		httputil.BadRequest(w, err.Error())
	default:
		httputil.InternalError(w, err)
	}
}
