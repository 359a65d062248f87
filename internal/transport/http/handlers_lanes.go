package httptransport

import (
	"net/http"

	channelmodels "lanegate/internal/channel/models"
	id "lanegate/pkg/domain"
	"lanegate/pkg/platform/httputil"
)

// Lane queries are read-only and take their lane coordinates from the query
// string: outbound lanes as (sender, dst_domain, receiver), inbound lanes as
// (receiver, src_domain, sender).

func (h *Handler) handleOutboundNonce(w http.ResponseWriter, r *http.Request) {
	sender, domain, receiver, err := outboundLaneParams(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	nonce, err := h.endpoint.OutboundNonce(r.Context(), sender, domain, receiver)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]uint64{"nonce": uint64(nonce)})
}

func (h *Handler) handleNextGUID(w http.ResponseWriter, r *http.Request) {
	sender, domain, receiver, err := outboundLaneParams(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	guid, err := h.endpoint.NextGUID(r.Context(), sender, domain, receiver)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"guid": guid.String()})
}

func (h *Handler) handleLazyCursor(w http.ResponseWriter, r *http.Request) {
	receiver, domain, sender, err := inboundLaneParams(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	cursor, err := h.endpoint.LazyCursor(r.Context(), receiver, domain, sender)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]uint64{"cursor": uint64(cursor)})
}

func (h *Handler) handleNextExpectedNonce(w http.ResponseWriter, r *http.Request) {
	receiver, domain, sender, err := inboundLaneParams(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	nonce, err := h.endpoint.NextExpectedNonce(r.Context(), receiver, domain, sender)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]uint64{"nonce": uint64(nonce)})
}

func (h *Handler) handleInboundHash(w http.ResponseWriter, r *http.Request) {
	receiver, domain, sender, err := inboundLaneParams(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	nonce, err := nonceParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	hash, err := h.endpoint.InboundHash(r.Context(), receiver, domain, sender, nonce)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"payload_hash": hash.String()})
}

func (h *Handler) handleInitializable(w http.ResponseWriter, r *http.Request) {
	receiver, domain, sender, err := inboundLaneParams(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	nonce, err := nonceParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	origin := channelmodels.Origin{SrcDomain: domain, Sender: sender, Nonce: nonce}
	ok, err := h.endpoint.Initializable(r.Context(), origin, receiver)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"initializable": ok})
}

func (h *Handler) handleVerifiable(w http.ResponseWriter, r *http.Request) {
	receiver, domain, sender, err := inboundLaneParams(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	nonce, err := nonceParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	origin := channelmodels.Origin{SrcDomain: domain, Sender: sender, Nonce: nonce}
	ok, err := h.endpoint.Verifiable(r.Context(), origin, receiver)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"verifiable": ok})
}

func outboundLaneParams(r *http.Request) (sender id.AppID, domain id.DomainID, receiver id.AppID, err error) {
	q := r.URL.Query()
	sender, err = id.ParseAppID(q.Get("sender"))
	if err != nil {
		return
	}
	domain, err = id.ParseDomainID(q.Get("dst_domain"))
	if err != nil {
		return
	}
	receiver, err = id.ParseAppID(q.Get("receiver"))
	return
}

func inboundLaneParams(r *http.Request) (receiver id.AppID, domain id.DomainID, sender id.AppID, err error) {
	q := r.URL.Query()
	receiver, err = id.ParseAppID(q.Get("receiver"))
	if err != nil {
		return
	}
	domain, err = id.ParseDomainID(q.Get("src_domain"))
	if err != nil {
		return
	}
	sender, err = id.ParseAppID(q.Get("sender"))
	return
}

func nonceParam(r *http.Request) (id.Nonce, error) {
	return parseNonce(r.URL.Query().Get("nonce"))
}
