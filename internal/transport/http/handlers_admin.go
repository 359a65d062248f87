package httptransport

import (
	"net/http"

	registrymodels "lanegate/internal/registry/models"
	id "lanegate/pkg/domain"
	derrors "lanegate/pkg/errors"
	"lanegate/pkg/platform/httputil"
)

type routeRequest struct {
	Direction   string `json:"direction"`
	Domain      uint32 `json:"domain"`
	App         string `json:"app,omitempty"`
	Library     string `json:"library"`
	GracePeriod uint64 `json:"grace_period,omitempty"`
	Expiry      uint64 `json:"expiry,omitempty"`
}

func (h *Handler) handleSetDefaultLibrary(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.Decode[routeRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	caller := callerOf(r)
	domain := id.DomainID(req.Domain)
	libID := registrymodels.LibraryID(req.Library)

	switch registrymodels.Direction(req.Direction) {
	case registrymodels.DirectionSend:
		err = h.registry.SetDefaultSendLibrary(r.Context(), caller, domain, libID)
	case registrymodels.DirectionReceive:
		err = h.registry.SetDefaultReceiveLibrary(r.Context(), caller, domain, libID, req.GracePeriod)
	default:
		err = derrors.New(derrors.CodeInvalidInput, "direction must be send or receive")
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSetLibraryOverride(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.Decode[routeRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	caller := callerOf(r)
	app := id.AppID(req.App)
	domain := id.DomainID(req.Domain)
	libID := registrymodels.LibraryID(req.Library)

	switch registrymodels.Direction(req.Direction) {
	case registrymodels.DirectionSend:
		err = h.registry.SetSendLibrary(r.Context(), caller, app, domain, libID)
	case registrymodels.DirectionReceive:
		err = h.registry.SetReceiveLibrary(r.Context(), caller, app, domain, libID, req.GracePeriod)
	default:
		err = derrors.New(derrors.CodeInvalidInput, "direction must be send or receive")
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSetReceiveTimeout(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.Decode[routeRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	caller := callerOf(r)
	err = h.registry.SetReceiveLibraryTimeout(r.Context(), caller, id.AppID(req.App), id.DomainID(req.Domain), registrymodels.LibraryID(req.Library), req.Expiry)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListLibraries(w http.ResponseWriter, r *http.Request) {
	libs := h.registry.Libraries()
	out := make([]string, len(libs))
	for i, lib := range libs {
		out[i] = lib.String()
	}
	httputil.WriteJSON(w, http.StatusOK, map[string][]string{"libraries": out})
}

type configRequest struct {
	App        string `json:"app"`
	Library    string `json:"library"`
	ConfigType uint32 `json:"config_type"`
	Payload    []byte `json:"payload,omitempty"`
}

func (h *Handler) handleSetConfig(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.Decode[configRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	caller := callerOf(r)
	err = h.registry.SetConfig(r.Context(), caller, id.AppID(req.App), registrymodels.LibraryID(req.Library), req.ConfigType, req.Payload)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	configType, err := parseConfigType(q.Get("config_type"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	payload, err := h.registry.GetConfig(r.Context(), id.AppID(q.Get("app")), registrymodels.LibraryID(q.Get("library")), configType)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string][]byte{"payload": payload})
}

type delegateRequest struct {
	App      string `json:"app"`
	Delegate string `json:"delegate"`
}

func (h *Handler) handleSetDelegate(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.Decode[delegateRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	caller := callerOf(r)
	if err := h.endpoint.SetDelegate(r.Context(), caller, id.AppID(req.App), id.AppID(req.Delegate)); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type feeTokenRequest struct {
	Token string `json:"token"`
}

func (h *Handler) handleSetFeeToken(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.Decode[feeTokenRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	caller := callerOf(r)
	if err := h.endpoint.SetFeeToken(r.Context(), caller, id.AppID(req.Token)); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var srcDomain id.DomainID
	if raw := q.Get("src_domain"); raw != "" {
		parsed, err := id.ParseDomainID(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		srcDomain = parsed
	}

	list, err := h.events.List(r.Context(), srcDomain, id.AppID(q.Get("sender")), id.AppID(q.Get("receiver")))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": list})
}
