// Package httptransport exposes the coordinator over HTTP. Handlers stay
// thin: decode, resolve the caller, delegate to a service, encode.
package httptransport

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"

	channelmodels "lanegate/internal/channel/models"
	composeservice "lanegate/internal/compose/service"
	endpointmodels "lanegate/internal/endpoint/models"
	endpointservice "lanegate/internal/endpoint/service"
	"lanegate/internal/events"
	registrymodels "lanegate/internal/registry/models"
	registryservice "lanegate/internal/registry/service"
	id "lanegate/pkg/domain"
	derrors "lanegate/pkg/errors"
	"lanegate/pkg/platform/httputil"
	"lanegate/pkg/requestcontext"
)

// Handler wires the protocol surface to the services.
type Handler struct {
	endpoint *endpointservice.Service
	registry *registryservice.Service
	compose  *composeservice.Service
	events   *events.Publisher
	logger   *slog.Logger
}

// NewHandler constructs the transport layer.
func NewHandler(
	endpoint *endpointservice.Service,
	registry *registryservice.Service,
	compose *composeservice.Service,
	publisher *events.Publisher,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		endpoint: endpoint,
		registry: registry,
		compose:  compose,
		events:   publisher,
		logger:   logger,
	}
}

type originDTO struct {
	SrcDomain uint32 `json:"src_domain"`
	Sender    string `json:"sender"`
	Nonce     uint64 `json:"nonce"`
}

func (o originDTO) toOrigin() channelmodels.Origin {
	return channelmodels.Origin{
		SrcDomain: id.DomainID(o.SrcDomain),
		Sender:    id.AppID(o.Sender),
		Nonce:     id.Nonce(o.Nonce),
	}
}

type feeDTO struct {
	Native string `json:"native"`
	Token  string `json:"token"`
}

func (f feeDTO) toFee() (endpointmodels.Fee, error) {
	native, err := parseAmount(f.Native)
	if err != nil {
		return endpointmodels.Fee{}, err
	}
	token, err := parseAmount(f.Token)
	if err != nil {
		return endpointmodels.Fee{}, err
	}
	return endpointmodels.Fee{Native: native, Token: token}, nil
}

func feeFromModel(fee endpointmodels.Fee) feeDTO {
	out := feeDTO{Native: "0", Token: "0"}
	if fee.Native != nil {
		out.Native = fee.Native.String()
	}
	if fee.Token != nil {
		out.Token = fee.Token.String()
	}
	return out
}

func parseAmount(s string) (*big.Int, error) {
	if s == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, derrors.New(derrors.CodeInvalidInput, "amount must be a non-negative decimal string")
	}
	return v, nil
}

type sendRequest struct {
	DstDomain     uint32 `json:"dst_domain"`
	Receiver      string `json:"receiver"`
	Message       []byte `json:"message"`
	Options       []byte `json:"options,omitempty"`
	PayInFeeToken bool   `json:"pay_in_fee_token,omitempty"`
	Supplied      feeDTO `json:"supplied"`
	RefundTarget  string `json:"refund_target,omitempty"`
}

type quoteRequest struct {
	DstDomain     uint32 `json:"dst_domain"`
	Receiver      string `json:"receiver"`
	Message       []byte `json:"message"`
	Options       []byte `json:"options,omitempty"`
	PayInFeeToken bool   `json:"pay_in_fee_token,omitempty"`
}

func (h *Handler) handleQuote(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.Decode[quoteRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	fee, err := h.endpoint.Quote(r.Context(), requestcontext.Caller(r.Context()), endpointmodels.MessagingParams{
		DstDomain:     id.DomainID(req.DstDomain),
		Receiver:      id.AppID(req.Receiver),
		Message:       req.Message,
		Options:       req.Options,
		PayInFeeToken: req.PayInFeeToken,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, feeFromModel(fee))
}

func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.Decode[sendRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	supplied, err := req.Supplied.toFee()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	receipt, err := h.endpoint.Send(r.Context(), requestcontext.Caller(r.Context()), endpointmodels.MessagingParams{
		DstDomain:     id.DomainID(req.DstDomain),
		Receiver:      id.AppID(req.Receiver),
		Message:       req.Message,
		Options:       req.Options,
		PayInFeeToken: req.PayInFeeToken,
	}, supplied, id.AppID(req.RefundTarget))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"guid":  receipt.GUID.String(),
		"nonce": uint64(receipt.Nonce),
		"fee":   feeFromModel(receipt.Fee),
	})
}

type verifyRequest struct {
	Origin      originDTO `json:"origin"`
	Receiver    string    `json:"receiver"`
	PayloadHash string    `json:"payload_hash"`
}

// handleVerify records a payload hash. The calling library authenticates as
// itself; its token subject is its library id.
func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.Decode[verifyRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	hash, err := id.ParsePayloadHash(req.PayloadHash)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	libID := registrymodels.LibraryID(requestcontext.Caller(r.Context()).String())
	if err := h.endpoint.Verify(r.Context(), libID, req.Origin.toOrigin(), id.AppID(req.Receiver), hash); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type receiveRequest struct {
	Origin    originDTO `json:"origin"`
	Receiver  string    `json:"receiver"`
	Message   []byte    `json:"message"`
	ExtraData []byte    `json:"extra_data,omitempty"`
}

func (h *Handler) handleReceive(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.Decode[receiveRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	executor := requestcontext.Caller(r.Context())
	if err := h.endpoint.Receive(r.Context(), executor, req.Origin.toOrigin(), id.AppID(req.Receiver), req.Message, req.ExtraData); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.Decode[receiveRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	caller := requestcontext.Caller(r.Context())
	if err := h.endpoint.Clear(r.Context(), caller, req.Origin.toOrigin(), id.AppID(req.Receiver), req.Message); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type laneOpRequest struct {
	Receiver    string `json:"receiver"`
	SrcDomain   uint32 `json:"src_domain"`
	Sender      string `json:"sender"`
	Nonce       uint64 `json:"nonce"`
	PayloadHash string `json:"payload_hash,omitempty"`
}

func (h *Handler) handleSkip(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.Decode[laneOpRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	caller := requestcontext.Caller(r.Context())
	err = h.endpoint.Skip(r.Context(), caller, id.AppID(req.Receiver), id.DomainID(req.SrcDomain), id.AppID(req.Sender), id.Nonce(req.Nonce))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleNilify(w http.ResponseWriter, r *http.Request) {
	h.handleSlotOp(w, r, h.endpoint.Nilify)
}

func (h *Handler) handleBurn(w http.ResponseWriter, r *http.Request) {
	h.handleSlotOp(w, r, h.endpoint.Burn)
}

func callerOf(r *http.Request) id.AppID {
	return requestcontext.Caller(r.Context())
}

func parseIndex(s string) (uint16, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, derrors.Wrap(err, derrors.CodeInvalidInput, "index must be a uint16")
	}
	return uint16(v), nil
}

func parseConfigType(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, derrors.Wrap(err, derrors.CodeInvalidInput, "config_type must be a uint32")
	}
	return uint32(v), nil
}

func parseNonce(s string) (id.Nonce, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, derrors.Wrap(err, derrors.CodeInvalidInput, "nonce must be a uint64")
	}
	return id.Nonce(v), nil
}

type slotOp func(ctx context.Context, caller, receiver id.AppID, srcDomain id.DomainID, sender id.AppID, nonce id.Nonce, expected id.PayloadHash) error

func (h *Handler) handleSlotOp(w http.ResponseWriter, r *http.Request, op slotOp) {
	req, err := httputil.Decode[laneOpRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	expected, err := id.ParsePayloadHash(req.PayloadHash)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	caller := requestcontext.Caller(r.Context())
	err = op(r.Context(), caller, id.AppID(req.Receiver), id.DomainID(req.SrcDomain), id.AppID(req.Sender), id.Nonce(req.Nonce), expected)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
