// Package service implements the coordinator: the only entry point tying the
// channel ledger, library router, compose queue, send guard, and fee
// settlement together. Applications and libraries never touch the ledger
// directly.
package service

import (
	"context"
	"encoding/hex"
	"log/slog"
	"math/big"
	"sync"

	channelmodels "lanegate/internal/channel/models"
	channelports "lanegate/internal/channel/ports"
	composeservice "lanegate/internal/compose/service"
	"lanegate/internal/endpoint/metrics"
	"lanegate/internal/endpoint/models"
	"lanegate/internal/endpoint/ports"
	"lanegate/internal/events"
	"lanegate/internal/guard"
	"lanegate/internal/payments"
	registrymodels "lanegate/internal/registry/models"
	registryservice "lanegate/internal/registry/service"
	id "lanegate/pkg/domain"
	derrors "lanegate/pkg/errors"
)

// Service is the coordinator for one local domain.
type Service struct {
	localDomain id.DomainID
	owner       id.AppID

	ledger   channelports.Ledger
	registry *registryservice.Service
	compose  *composeservice.Service
	guard    *guard.SendGuard
	vault    payments.Vault

	events  *events.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu       sync.RWMutex
	feeToken id.AppID
	apps     map[id.AppID]ports.Application
}

// Option configures the service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithEvents(publisher *events.Publisher) Option {
	return func(s *Service) { s.events = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New builds a coordinator for localDomain owned by owner.
func New(
	localDomain id.DomainID,
	owner id.AppID,
	ledger channelports.Ledger,
	registry *registryservice.Service,
	compose *composeservice.Service,
	vault payments.Vault,
	opts ...Option,
) (*Service, error) {
	if localDomain.IsZero() {
		return nil, derrors.New(derrors.CodeInvalidInput, "local domain is required")
	}
	if owner.IsNone() {
		return nil, derrors.New(derrors.CodeInvalidInput, "owner is required")
	}
	if ledger == nil || registry == nil || compose == nil || vault == nil {
		return nil, derrors.New(derrors.CodeInvalidInput, "ledger, registry, compose queue, and vault are required")
	}

	s := &Service{
		localDomain: localDomain,
		owner:       owner,
		ledger:      ledger,
		registry:    registry,
		compose:     compose,
		guard:       guard.New(),
		vault:       vault,
		logger:      slog.Default(),
		apps:        make(map[id.AppID]ports.Application),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// LocalDomain is the domain this coordinator serves.
func (s *Service) LocalDomain() id.DomainID { return s.localDomain }

// Guard exposes the send-context slot for libraries that need to confirm
// they are on a genuine send path.
func (s *Service) Guard() *guard.SendGuard { return s.guard }

// Compose exposes the compose queue so applications can schedule follow-ups.
func (s *Service) Compose() *composeservice.Service { return s.compose }

// RegisterApp binds a local application. If the app also implements the
// compose target capability, it is registered with the queue as well.
func (s *Service) RegisterApp(app ports.Application) {
	s.mu.Lock()
	s.apps[app.ID()] = app
	s.mu.Unlock()

	if target, ok := app.(interface {
		DeliverCompose(ctx context.Context, from id.AppID, guid id.GUID, message []byte, executor id.AppID, extraData []byte) error
	}); ok {
		s.compose.RegisterTarget(app.ID(), target)
	}
}

// Quote prices a hypothetical send without consuming a nonce or touching any
// state. The packet is built on the prospective next nonce.
func (s *Service) Quote(ctx context.Context, sender id.AppID, params models.MessagingParams) (models.Fee, error) {
	if err := s.validateParams(sender, params); err != nil {
		return models.Fee{}, err
	}

	packet, err := s.prospectivePacket(ctx, sender, params)
	if err != nil {
		return models.Fee{}, err
	}
	lib, err := s.resolveSendLibrary(sender, params.DstDomain)
	if err != nil {
		return models.Fee{}, err
	}
	return lib.Quote(ctx, packet, params.Options, params.PayInFeeToken)
}

// Send assigns the next nonce, delegates encoding and pricing to the send
// library, and settles fees. The nonce increment and the settlement are one
// unit: a failure anywhere leaves the outbound counter unobservably
// unchanged. Supplied is the payment budget; the required fee goes to the
// library's collector and the excess to refundTarget.
func (s *Service) Send(ctx context.Context, sender id.AppID, params models.MessagingParams, supplied models.Fee, refundTarget id.AppID) (models.Receipt, error) {
	release, err := s.guard.Enter(params.DstDomain, sender)
	if err != nil {
		s.metrics.IncrementSendFailure("reentrancy")
		return models.Receipt{}, err
	}
	defer release()

	if err := s.validateParams(sender, params); err != nil {
		s.metrics.IncrementSendFailure("invalid_params")
		return models.Receipt{}, err
	}

	packet, err := s.prospectivePacket(ctx, sender, params)
	if err != nil {
		return models.Receipt{}, err
	}
	lib, err := s.resolveSendLibrary(sender, params.DstDomain)
	if err != nil {
		s.metrics.IncrementSendFailure("no_send_library")
		return models.Receipt{}, err
	}

	fee, encoded, err := lib.Send(ctx, packet, params.Options, params.PayInFeeToken)
	if err != nil {
		s.metrics.IncrementSendFailure("library")
		return models.Receipt{}, err
	}
	fee = normalizeFee(fee)
	supplied = normalizeFee(supplied)

	if supplied.Native.Cmp(fee.Native) < 0 || supplied.Token.Cmp(fee.Token) < 0 {
		s.metrics.IncrementSendFailure("insufficient_fee")
		return models.Receipt{}, models.NewInsufficientFee(fee.Native, supplied.Native, fee.Token, supplied.Token)
	}

	if refundTarget.IsNone() {
		refundTarget = sender
	}
	if err := s.settle(ctx, sender, lib.FeeCollector(), refundTarget, fee, supplied, params.PayInFeeToken); err != nil {
		s.metrics.IncrementSendFailure("settlement")
		return models.Receipt{}, err
	}

	// Commit only after settlement: the guard serializes sends, so the
	// counter cannot have moved since the prospective read.
	key := channelmodels.OutboundKey{Sender: sender, DstDomain: params.DstDomain, Receiver: params.Receiver}
	nonce, err := s.ledger.NextOutbound(ctx, key)
	if err != nil {
		return models.Receipt{}, err
	}

	s.metrics.IncrementSent(params.DstDomain.String())
	s.logger.InfoContext(ctx, "packet sent",
		"sender", sender, "dst_domain", params.DstDomain, "receiver", params.Receiver,
		"nonce", nonce, "guid", packet.GUID, "library", lib.ID())
	_ = s.events.Emit(ctx, events.Event{
		Type:          events.TypePacketSent,
		SrcDomain:     s.localDomain,
		DstDomain:     params.DstDomain,
		Sender:        sender,
		Receiver:      params.Receiver,
		Nonce:         nonce,
		GUID:          packet.GUID.String(),
		Library:       lib.ID().String(),
		NativeFee:     fee.Native.String(),
		TokenFee:      fee.Token.String(),
		EncodedPacket: hex.EncodeToString(encoded),
	})

	return models.Receipt{GUID: packet.GUID, Nonce: nonce, Fee: fee}, nil
}

// Verify records a payload hash for an inbound slot. Only the currently
// valid receive library for the route may call it; the path must be
// initializable and the slot verifiable.
func (s *Service) Verify(ctx context.Context, libID registrymodels.LibraryID, origin channelmodels.Origin, receiver id.AppID, payloadHash id.PayloadHash) error {
	if !s.registry.IsValidReceiveLibrary(receiver, origin.SrcDomain, libID) {
		return models.ErrInvalidReceiveLibrary
	}

	key := channelmodels.InboundKeyFor(receiver, origin)
	initializable, err := s.initializable(ctx, key, origin, receiver)
	if err != nil {
		return err
	}
	if !initializable {
		return models.ErrPathNotInitializable
	}

	verifiable, err := s.verifiable(ctx, key, origin.Nonce)
	if err != nil {
		return err
	}
	if !verifiable {
		return models.ErrPathNotVerifiable
	}

	if err := s.ledger.RecordInbound(ctx, key, origin.Nonce, payloadHash); err != nil {
		return err
	}

	s.metrics.IncrementVerified()
	s.logger.InfoContext(ctx, "packet verified",
		"src_domain", origin.SrcDomain, "sender", origin.Sender, "nonce", origin.Nonce,
		"receiver", receiver, "library", libID)
	_ = s.events.Emit(ctx, events.Event{
		Type:        events.TypePacketVerified,
		SrcDomain:   origin.SrcDomain,
		Sender:      origin.Sender,
		Receiver:    receiver,
		Nonce:       origin.Nonce,
		Library:     libID.String(),
		PayloadHash: payloadHash.String(),
	})
	return nil
}

// Receive clears a verified slot and hands the message to the application.
// The ledger transition happens first, so a reentrant receive of the same
// message fails before the handler ever sees it twice. A handler error
// propagates but the slot stays cleared.
func (s *Service) Receive(ctx context.Context, executor id.AppID, origin channelmodels.Origin, receiver id.AppID, message, extraData []byte) error {
	app, err := s.app(receiver)
	if err != nil {
		return err
	}

	key := channelmodels.InboundKeyFor(receiver, origin)
	if _, err := s.ledger.AdvanceAndClear(ctx, key, origin.Nonce, message); err != nil {
		return err
	}

	guid := id.ComputeGUID(origin.Nonce, origin.SrcDomain, origin.Sender, s.localDomain, receiver)
	s.emitDelivered(ctx, origin, receiver, guid, executor, "")

	if err := app.Receive(ctx, origin, guid, message, extraData, executor); err != nil {
		return derrors.Wrap(err, derrors.CodeInternal, "application receive failed")
	}
	return nil
}

// Clear is the application's self-service variant of Receive: it consumes the
// slot without running the handler. App-or-delegate gated.
func (s *Service) Clear(ctx context.Context, caller id.AppID, origin channelmodels.Origin, receiver id.AppID, message []byte) error {
	if !s.registry.Authorized(caller, receiver) {
		return errNotAppOrDelegate
	}

	key := channelmodels.InboundKeyFor(receiver, origin)
	if _, err := s.ledger.AdvanceAndClear(ctx, key, origin.Nonce, message); err != nil {
		return err
	}

	guid := id.ComputeGUID(origin.Nonce, origin.SrcDomain, origin.Sender, s.localDomain, receiver)
	s.emitDelivered(ctx, origin, receiver, guid, caller, "self-cleared")
	return nil
}

// Skip advances the inbound cursor over an unverifiable nonce.
// App-or-delegate gated.
func (s *Service) Skip(ctx context.Context, caller, receiver id.AppID, srcDomain id.DomainID, sender id.AppID, nonce id.Nonce) error {
	if !s.registry.Authorized(caller, receiver) {
		return errNotAppOrDelegate
	}

	key := channelmodels.InboundKey{Receiver: receiver, SrcDomain: srcDomain, Sender: sender}
	if err := s.ledger.Skip(ctx, key, nonce); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "inbound nonce skipped",
		"receiver", receiver, "src_domain", srcDomain, "sender", sender, "nonce", nonce)
	_ = s.events.Emit(ctx, events.Event{
		Type:      events.TypeNonceSkipped,
		SrcDomain: srcDomain,
		Sender:    sender,
		Receiver:  receiver,
		Nonce:     nonce,
		Caller:    caller,
	})
	return nil
}

// Nilify marks a verified-but-distrusted slot permanently unexecutable.
// App-or-delegate gated; expected guards against racing a fresh verify.
func (s *Service) Nilify(ctx context.Context, caller, receiver id.AppID, srcDomain id.DomainID, sender id.AppID, nonce id.Nonce, expected id.PayloadHash) error {
	if !s.registry.Authorized(caller, receiver) {
		return errNotAppOrDelegate
	}

	key := channelmodels.InboundKey{Receiver: receiver, SrcDomain: srcDomain, Sender: sender}
	if err := s.ledger.Nilify(ctx, key, nonce, expected); err != nil {
		return err
	}

	s.logger.WarnContext(ctx, "packet nilified",
		"receiver", receiver, "src_domain", srcDomain, "sender", sender, "nonce", nonce)
	_ = s.events.Emit(ctx, events.Event{
		Type:        events.TypePacketNilified,
		SrcDomain:   srcDomain,
		Sender:      sender,
		Receiver:    receiver,
		Nonce:       nonce,
		Caller:      caller,
		PayloadHash: expected.String(),
	})
	return nil
}

// Burn deletes an already-bypassed record for good. App-or-delegate gated.
func (s *Service) Burn(ctx context.Context, caller, receiver id.AppID, srcDomain id.DomainID, sender id.AppID, nonce id.Nonce, expected id.PayloadHash) error {
	if !s.registry.Authorized(caller, receiver) {
		return errNotAppOrDelegate
	}

	key := channelmodels.InboundKey{Receiver: receiver, SrcDomain: srcDomain, Sender: sender}
	if err := s.ledger.Burn(ctx, key, nonce, expected); err != nil {
		return err
	}

	s.logger.WarnContext(ctx, "packet burnt",
		"receiver", receiver, "src_domain", srcDomain, "sender", sender, "nonce", nonce)
	_ = s.events.Emit(ctx, events.Event{
		Type:        events.TypePacketBurnt,
		SrcDomain:   srcDomain,
		Sender:      sender,
		Receiver:    receiver,
		Nonce:       nonce,
		Caller:      caller,
		PayloadHash: expected.String(),
	})
	return nil
}

// SetFeeToken configures (or clears) the alternative fee denomination.
// Owner-gated.
func (s *Service) SetFeeToken(ctx context.Context, caller, token id.AppID) error {
	if caller != s.owner {
		return derrors.New(derrors.CodeUnauthorized, "caller is not the owner")
	}

	s.mu.Lock()
	s.feeToken = token
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "fee token set", "token", token)
	_ = s.events.Emit(ctx, events.Event{
		Type:   events.TypeFeeTokenSet,
		Caller: caller,
		Reason: token.String(),
	})
	return nil
}

// FeeToken returns the configured fee token, None when unset.
func (s *Service) FeeToken() id.AppID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.feeToken
}

// SetDelegate forwards to the registry's delegate record; it gates every
// app-scoped administrative operation on both surfaces.
func (s *Service) SetDelegate(ctx context.Context, caller, app, delegate id.AppID) error {
	return s.registry.SetDelegate(ctx, caller, app, delegate)
}

// NextGUID previews the id the next send on the lane would get. Pure.
func (s *Service) NextGUID(ctx context.Context, sender id.AppID, dstDomain id.DomainID, receiver id.AppID) (id.GUID, error) {
	key := channelmodels.OutboundKey{Sender: sender, DstDomain: dstDomain, Receiver: receiver}
	outbound, err := s.ledger.Outbound(ctx, key)
	if err != nil {
		return id.GUID{}, err
	}
	return id.ComputeGUID(outbound+1, s.localDomain, sender, dstDomain, receiver), nil
}

// OutboundNonce reports the last assigned nonce for the lane.
func (s *Service) OutboundNonce(ctx context.Context, sender id.AppID, dstDomain id.DomainID, receiver id.AppID) (id.Nonce, error) {
	return s.ledger.Outbound(ctx, channelmodels.OutboundKey{Sender: sender, DstDomain: dstDomain, Receiver: receiver})
}

// LazyCursor reports the inbound execution cursor for the lane.
func (s *Service) LazyCursor(ctx context.Context, receiver id.AppID, srcDomain id.DomainID, sender id.AppID) (id.Nonce, error) {
	return s.ledger.LazyCursor(ctx, channelmodels.InboundKey{Receiver: receiver, SrcDomain: srcDomain, Sender: sender})
}

// NextExpectedNonce is the advisory in-order delivery hint: one past the
// contiguous verified watermark.
func (s *Service) NextExpectedNonce(ctx context.Context, receiver id.AppID, srcDomain id.DomainID, sender id.AppID) (id.Nonce, error) {
	watermark, err := s.ledger.ContiguousVerified(ctx, channelmodels.InboundKey{Receiver: receiver, SrcDomain: srcDomain, Sender: sender})
	if err != nil {
		return 0, err
	}
	return watermark + 1, nil
}

// InboundHash reports the stored hash for a slot, zero when unset.
func (s *Service) InboundHash(ctx context.Context, receiver id.AppID, srcDomain id.DomainID, sender id.AppID, nonce id.Nonce) (id.PayloadHash, error) {
	return s.ledger.InboundHash(ctx, channelmodels.InboundKey{Receiver: receiver, SrcDomain: srcDomain, Sender: sender}, nonce)
}

// Initializable reports whether a verify on this lane would pass the
// first-contact gate.
func (s *Service) Initializable(ctx context.Context, origin channelmodels.Origin, receiver id.AppID) (bool, error) {
	return s.initializable(ctx, channelmodels.InboundKeyFor(receiver, origin), origin, receiver)
}

// Verifiable reports whether this exact slot would accept a verify.
func (s *Service) Verifiable(ctx context.Context, origin channelmodels.Origin, receiver id.AppID) (bool, error) {
	return s.verifiable(ctx, channelmodels.InboundKeyFor(receiver, origin), origin.Nonce)
}

var errNotAppOrDelegate = derrors.New(derrors.CodeUnauthorized, "caller is not the application or its delegate")

func (s *Service) app(appID id.AppID) (ports.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.apps[appID]
	if !ok {
		return nil, models.ErrUnknownApp
	}
	return app, nil
}

func (s *Service) validateParams(sender id.AppID, params models.MessagingParams) error {
	if sender.IsNone() {
		return derrors.New(derrors.CodeInvalidInput, "sender is required")
	}
	if params.DstDomain.IsZero() {
		return derrors.New(derrors.CodeInvalidInput, "destination domain is required")
	}
	if params.Receiver.IsNone() {
		return derrors.New(derrors.CodeInvalidInput, "receiver is required")
	}
	if params.PayInFeeToken && s.FeeToken().IsNone() {
		return models.ErrFeeTokenUnavailable
	}
	return nil
}

// prospectivePacket builds the packet a send would produce, on the counter's
// next value without consuming it.
func (s *Service) prospectivePacket(ctx context.Context, sender id.AppID, params models.MessagingParams) (models.Packet, error) {
	key := channelmodels.OutboundKey{Sender: sender, DstDomain: params.DstDomain, Receiver: params.Receiver}
	outbound, err := s.ledger.Outbound(ctx, key)
	if err != nil {
		return models.Packet{}, err
	}
	return models.NewPacket(outbound+1, s.localDomain, sender, params.DstDomain, params.Receiver, params.Message), nil
}

func (s *Service) resolveSendLibrary(sender id.AppID, dstDomain id.DomainID) (ports.SendLibrary, error) {
	lib, err := s.registry.ResolveSend(sender, dstDomain)
	if err != nil {
		return nil, err
	}
	sendLib, ok := lib.(ports.SendLibrary)
	if !ok {
		return nil, derrors.Newf(derrors.CodeUnavailable, "library %s cannot send", lib.ID())
	}
	return sendLib, nil
}

// settle moves the required fee to the collector and the leftover budget to
// the refund target. Balances are checked up front so the transfers cannot
// fail halfway; the guard serializes sends, so the check cannot race another
// send by the same payer.
func (s *Service) settle(ctx context.Context, payer, collector, refundTarget id.AppID, fee, supplied models.Fee, payInFeeToken bool) error {
	native, err := s.vault.Balance(ctx, payments.NativeToken, payer)
	if err != nil {
		return err
	}
	if native.Cmp(supplied.Native) < 0 {
		return payments.ErrInsufficientBalance
	}

	feeToken := s.FeeToken()
	if payInFeeToken {
		token, err := s.vault.Balance(ctx, feeToken, payer)
		if err != nil {
			return err
		}
		if token.Cmp(supplied.Token) < 0 {
			return payments.ErrInsufficientBalance
		}
	}

	if err := s.vault.Transfer(ctx, payments.NativeToken, payer, collector, fee.Native); err != nil {
		return err
	}
	if excess := new(big.Int).Sub(supplied.Native, fee.Native); excess.Sign() > 0 && refundTarget != payer {
		if err := s.vault.Transfer(ctx, payments.NativeToken, payer, refundTarget, excess); err != nil {
			return err
		}
	}

	if payInFeeToken {
		if err := s.vault.Transfer(ctx, feeToken, payer, collector, fee.Token); err != nil {
			return err
		}
		if excess := new(big.Int).Sub(supplied.Token, fee.Token); excess.Sign() > 0 && refundTarget != payer {
			if err := s.vault.Transfer(ctx, feeToken, payer, refundTarget, excess); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Service) initializable(ctx context.Context, key channelmodels.InboundKey, origin channelmodels.Origin, receiver id.AppID) (bool, error) {
	watermark, err := s.ledger.ContiguousVerified(ctx, key)
	if err != nil {
		return false, err
	}
	if watermark > 0 {
		return true, nil
	}

	s.mu.RLock()
	app, ok := s.apps[receiver]
	s.mu.RUnlock()
	return ok && app.AllowInitializePath(origin), nil
}

func (s *Service) verifiable(ctx context.Context, key channelmodels.InboundKey, nonce id.Nonce) (bool, error) {
	cursor, err := s.ledger.LazyCursor(ctx, key)
	if err != nil {
		return false, err
	}
	if nonce > cursor {
		return true, nil
	}

	stored, err := s.ledger.InboundHash(ctx, key, nonce)
	if err != nil {
		return false, err
	}
	return !stored.IsEmpty(), nil
}

func (s *Service) emitDelivered(ctx context.Context, origin channelmodels.Origin, receiver id.AppID, guid id.GUID, executor id.AppID, reason string) {
	s.metrics.IncrementDelivered()
	s.logger.InfoContext(ctx, "packet delivered",
		"src_domain", origin.SrcDomain, "sender", origin.Sender, "nonce", origin.Nonce,
		"receiver", receiver, "executor", executor)
	_ = s.events.Emit(ctx, events.Event{
		Type:      events.TypePacketDelivered,
		SrcDomain: origin.SrcDomain,
		Sender:    origin.Sender,
		Receiver:  receiver,
		Nonce:     origin.Nonce,
		GUID:      guid.String(),
		Executor:  executor,
		Reason:    reason,
	})
}

func normalizeFee(fee models.Fee) models.Fee {
	if fee.Native == nil {
		fee.Native = big.NewInt(0)
	}
	if fee.Token == nil {
		fee.Token = big.NewInt(0)
	}
	return fee
}
