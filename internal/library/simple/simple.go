// Package simple is a minimal send-and-receive library: a flat fee per
// message and a naive length-prefixed wire encoding. It exists so the
// coordinator can be exercised end to end without a real transport module.
package simple

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"math/big"
	"sync"

	endpointmodels "lanegate/internal/endpoint/models"
	"lanegate/internal/endpoint/ports"
	"lanegate/internal/registry/models"
	id "lanegate/pkg/domain"
	derrors "lanegate/pkg/errors"
)

type configKey struct {
	app        id.AppID
	configType uint32
}

// Library charges the same fee for every packet regardless of size or
// destination.
type Library struct {
	libID     models.LibraryID
	nativeFee *big.Int
	tokenFee  *big.Int
	collector id.AppID
	domains   map[id.DomainID]bool

	mu      sync.RWMutex
	configs map[configKey][]byte
}

// Option configures the library.
type Option func(*Library)

// WithTokenFee sets the flat fee charged when fee-token payment is requested.
func WithTokenFee(fee *big.Int) Option {
	return func(l *Library) { l.tokenFee = new(big.Int).Set(fee) }
}

// WithDomains restricts the library to the given domains; by default it
// serves all of them.
func WithDomains(domains ...id.DomainID) Option {
	return func(l *Library) {
		l.domains = make(map[id.DomainID]bool, len(domains))
		for _, d := range domains {
			l.domains[d] = true
		}
	}
}

// New creates a library charging nativeFee per message, collecting to
// collector.
func New(libID models.LibraryID, nativeFee *big.Int, collector id.AppID, opts ...Option) *Library {
	l := &Library{
		libID:     libID,
		nativeFee: new(big.Int).Set(nativeFee),
		tokenFee:  big.NewInt(0),
		collector: collector,
		configs:   make(map[configKey][]byte),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Library) ID() models.LibraryID     { return l.libID }
func (l *Library) Type() models.LibraryType { return models.TypeSendAndReceive }

func (l *Library) SupportsDomain(domain id.DomainID) bool {
	if l.domains == nil {
		return true
	}
	return l.domains[domain]
}

func (l *Library) SetConfig(_ context.Context, app id.AppID, configType uint32, payload []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.configs[configKey{app: app, configType: configType}] = bytes.Clone(payload)
	return nil
}

func (l *Library) GetConfig(_ context.Context, app id.AppID, configType uint32) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	payload, ok := l.configs[configKey{app: app, configType: configType}]
	if !ok {
		return nil, derrors.New(derrors.CodeNotFound, "config not set")
	}
	return bytes.Clone(payload), nil
}

func (l *Library) Quote(_ context.Context, _ endpointmodels.Packet, _ []byte, payInFeeToken bool) (endpointmodels.Fee, error) {
	return l.fee(payInFeeToken), nil
}

func (l *Library) Send(_ context.Context, packet endpointmodels.Packet, _ []byte, payInFeeToken bool) (endpointmodels.Fee, []byte, error) {
	return l.fee(payInFeeToken), Encode(packet), nil
}

func (l *Library) FeeCollector() id.AppID { return l.collector }

func (l *Library) fee(payInFeeToken bool) endpointmodels.Fee {
	fee := endpointmodels.Fee{
		Native: new(big.Int).Set(l.nativeFee),
		Token:  big.NewInt(0),
	}
	if payInFeeToken {
		fee.Token.Set(l.tokenFee)
	}
	return fee
}

// Encode serializes a packet as fixed-width lane fields with length-prefixed
// sender, receiver, and message.
func Encode(packet endpointmodels.Packet) []byte {
	var buf bytes.Buffer
	var scratch [8]byte

	binary.BigEndian.PutUint64(scratch[:], uint64(packet.Nonce))
	buf.Write(scratch[:])
	binary.BigEndian.PutUint32(scratch[:4], uint32(packet.SrcDomain))
	buf.Write(scratch[:4])
	writeBytes(&buf, []byte(packet.Sender))
	binary.BigEndian.PutUint32(scratch[:4], uint32(packet.DstDomain))
	buf.Write(scratch[:4])
	writeBytes(&buf, []byte(packet.Receiver))
	buf.Write(packet.GUID[:])
	writeBytes(&buf, packet.Message)

	return buf.Bytes()
}

// Decode reverses Encode.
func Decode(raw []byte) (endpointmodels.Packet, error) {
	r := bytes.NewReader(raw)
	var packet endpointmodels.Packet

	var nonce uint64
	if err := binary.Read(r, binary.BigEndian, &nonce); err != nil {
		return packet, decodeErr(err)
	}
	packet.Nonce = id.Nonce(nonce)

	var src uint32
	if err := binary.Read(r, binary.BigEndian, &src); err != nil {
		return packet, decodeErr(err)
	}
	packet.SrcDomain = id.DomainID(src)

	sender, err := readBytes(r)
	if err != nil {
		return packet, decodeErr(err)
	}
	packet.Sender = id.AppID(sender)

	var dst uint32
	if err := binary.Read(r, binary.BigEndian, &dst); err != nil {
		return packet, decodeErr(err)
	}
	packet.DstDomain = id.DomainID(dst)

	receiver, err := readBytes(r)
	if err != nil {
		return packet, decodeErr(err)
	}
	packet.Receiver = id.AppID(receiver)

	if _, err := io.ReadFull(r, packet.GUID[:]); err != nil {
		return packet, decodeErr(err)
	}

	message, err := readBytes(r)
	if err != nil {
		return packet, decodeErr(err)
	}
	packet.Message = message

	if r.Len() != 0 {
		return packet, derrors.New(derrors.CodeInvalidInput, "trailing bytes in encoded packet")
	}
	return packet, nil
}

func writeBytes(buf *bytes.Buffer, b []byte) {
	var scratch [4]byte
	binary.BigEndian.PutUint32(scratch[:], uint32(len(b)))
	buf.Write(scratch[:])
	buf.Write(b)
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, err
	}
	if int(length) > r.Len() {
		return nil, derrors.New(derrors.CodeInvalidInput, "length prefix exceeds buffer")
	}
	out := make([]byte, length)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeErr(err error) error {
	return derrors.Wrap(err, derrors.CodeInvalidInput, "malformed encoded packet")
}

var _ ports.SendLibrary = (*Library)(nil)
