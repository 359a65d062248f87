package httptransport

import (
	"net/http"

	id "lanegate/pkg/domain"
	"lanegate/pkg/platform/httputil"
)

type composeRequest struct {
	From      string `json:"from,omitempty"`
	To        string `json:"to"`
	GUID      string `json:"guid"`
	Index     uint16 `json:"index"`
	Message   []byte `json:"message"`
	ExtraData []byte `json:"extra_data,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// handleComposeEnqueue schedules a compose message. The caller is the
// scheduling application.
func (h *Handler) handleComposeEnqueue(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.Decode[composeRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	guid, err := id.ParseGUID(req.GUID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	from := callerOf(r)
	if err := h.compose.Enqueue(r.Context(), from, id.AppID(req.To), guid, req.Index, req.Message); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleComposeDeliver consumes a pending compose slot. The caller is the
// executor; From names the scheduling application.
func (h *Handler) handleComposeDeliver(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.Decode[composeRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	guid, err := id.ParseGUID(req.GUID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	executor := callerOf(r)
	err = h.compose.Deliver(r.Context(), executor, id.AppID(req.From), id.AppID(req.To), guid, req.Index, req.Message, req.ExtraData)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleComposeAlert(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.Decode[composeRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	guid, err := id.ParseGUID(req.GUID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	executor := callerOf(r)
	err = h.compose.Alert(r.Context(), executor, id.AppID(req.From), id.AppID(req.To), guid, req.Index, req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) handleComposeHash(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	guid, err := id.ParseGUID(q.Get("guid"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	index, err := parseIndex(q.Get("index"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	hash, err := h.compose.Hash(r.Context(), id.AppID(q.Get("from")), id.AppID(q.Get("to")), guid, index)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"hash": hash.String()})
}
