package handlers

import (
	"net/http"

	"github.com/agendadental/clinicdesk/internal/appointments"
	"github.com/agendadental/clinicdesk/internal/errmsg"
	"github.com/agendadental/clinicdesk/internal/followup"
	"github.com/agendadental/clinicdesk/pkg/logging"
)

// FollowUpHandler serves the billing follow-up table.
type FollowUpHandler struct {
	svc    *appointments.Service
	logger *logging.Logger
}

func NewFollowUpHandler(svc *appointments.Service, logger *logging.Logger) *FollowUpHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &FollowUpHandler{svc: svc, logger: logger}
}

// FollowUpResponse carries either flat rows or per-patient groups,
// depending on the grouped flag.
type FollowUpResponse struct {
	Entries []followup.Entry `json:"entries,omitempty"`
	Groups  []followup.Group `json:"groups,omitempty"`
	Total   float64          `json:"totalOutstanding"`
}

// GetFollowUp builds the follow-up view. The pending view asks the backend
// for the outstanding list so the server-computed balance drives the filter;
// an unreachable backend falls back to the cached snapshot.
// GET /desk/followup?query=&pending=true&grouped=true
func (h *FollowUpHandler) GetFollowUp(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pendingOnly := q.Get("pending") == "true"
	grouped := q.Get("grouped") == "true"

	var entries []followup.Entry
	if pendingOnly {
		appts, err := h.svc.PendingOnly(r.Context())
		switch {
		case err == nil:
			entries = followup.Build(appts, true)
		case errmsg.IsNetwork(err):
			h.logger.Warn("pending list unavailable, serving cached snapshot", "error", err)
			entries = followup.Build(h.svc.Cache().Items(), true)
		default:
			respondBackendError(w, err, "cargar los turnos pendientes")
			return
		}
	} else {
		entries = followup.Build(h.svc.Cache().Items(), false)
	}
	entries = followup.Filter(entries, q.Get("query"))

	resp := FollowUpResponse{}
	for _, e := range entries {
		resp.Total += e.Outstanding
	}
	if grouped {
		resp.Groups = followup.GroupByPatient(entries)
	} else {
		resp.Entries = entries
	}
	respondJSON(w, http.StatusOK, resp)
}
