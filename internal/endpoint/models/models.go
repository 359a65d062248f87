// Package models defines the coordinator's message and fee types.
package models

import (
	"fmt"
	"math/big"

	id "lanegate/pkg/domain"
	derrors "lanegate/pkg/errors"
)

// MessagingParams is a send request before a nonce is assigned. Options are
// opaque to the coordinator and interpreted only by the send library.
type MessagingParams struct {
	DstDomain     id.DomainID
	Receiver      id.AppID
	Message       []byte
	Options       []byte
	PayInFeeToken bool
}

// Packet is one addressed message with its assigned nonce and derived id.
type Packet struct {
	Nonce     id.Nonce
	SrcDomain id.DomainID
	Sender    id.AppID
	DstDomain id.DomainID
	Receiver  id.AppID
	GUID      id.GUID
	Message   []byte
}

// NewPacket derives the message id from the lane and nonce.
func NewPacket(nonce id.Nonce, srcDomain id.DomainID, sender id.AppID, dstDomain id.DomainID, receiver id.AppID, message []byte) Packet {
	return Packet{
		Nonce:     nonce,
		SrcDomain: srcDomain,
		Sender:    sender,
		DstDomain: dstDomain,
		Receiver:  receiver,
		GUID:      id.ComputeGUID(nonce, srcDomain, sender, dstDomain, receiver),
		Message:   message,
	}
}

// Fee prices one message in the native unit and, when fee-token payment was
// requested, the configured fee token.
type Fee struct {
	Native *big.Int `json:"native"`
	Token  *big.Int `json:"token"`
}

// NewFee builds a fee with non-nil amounts.
func NewFee(native, token int64) Fee {
	return Fee{Native: big.NewInt(native), Token: big.NewInt(token)}
}

// Receipt acknowledges an accepted send.
type Receipt struct {
	GUID  id.GUID  `json:"guid"`
	Nonce id.Nonce `json:"nonce"`
	Fee   Fee      `json:"fee"`
}

// InsufficientFeeError reports the required and supplied amounts in both
// denominations so the caller can top up precisely.
type InsufficientFeeError struct {
	RequiredNative *big.Int
	SuppliedNative *big.Int
	RequiredToken  *big.Int
	SuppliedToken  *big.Int
}

func (e *InsufficientFeeError) Error() string {
	return fmt.Sprintf("insufficient fee: required %s native / %s token, supplied %s native / %s token",
		e.RequiredNative, e.RequiredToken, e.SuppliedNative, e.SuppliedToken)
}

// NewInsufficientFee wraps the amounts in a coded payment error.
func NewInsufficientFee(requiredNative, suppliedNative, requiredToken, suppliedToken *big.Int) error {
	return derrors.Wrap(&InsufficientFeeError{
		RequiredNative: requiredNative,
		SuppliedNative: suppliedNative,
		RequiredToken:  requiredToken,
		SuppliedToken:  suppliedToken,
	}, derrors.CodePayment, "insufficient fee")
}

var (
	// ErrFeeTokenUnavailable rejects fee-token pricing when no fee token is
	// configured.
	ErrFeeTokenUnavailable = derrors.New(derrors.CodeUnavailable, "fee token not configured")

	// ErrInvalidReceiveLibrary rejects a verify from a library that is neither
	// the resolved receive library nor an unexpired migration-window library.
	ErrInvalidReceiveLibrary = derrors.New(derrors.CodeUnauthorized, "invalid receive library")

	// ErrPathNotInitializable rejects the first verify on a lane the receiving
	// application has not authorized.
	ErrPathNotInitializable = derrors.New(derrors.CodeSequencing, "path not initializable")

	// ErrPathNotVerifiable rejects re-verification of an already executed slot.
	ErrPathNotVerifiable = derrors.New(derrors.CodeSequencing, "path not verifiable")

	// ErrUnknownApp means no application with that id is registered locally.
	ErrUnknownApp = derrors.New(derrors.CodeNotFound, "application not registered")
)
