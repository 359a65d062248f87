// Package domain holds the typed identifiers shared across the message
// channel. Keys are typed so lanes, applications, and hashes cannot be mixed
// up at compile time; parsing enforces trust-boundary invariants once, at the
// edges.
package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strconv"

	derrors "lanegate/pkg/errors"
)

// DomainID identifies a distinct execution environment (chain, shard,
// process). Zero is reserved and never a valid domain.
type DomainID uint32

// IsZero reports whether the domain id is the reserved zero value.
func (d DomainID) IsZero() bool { return d == 0 }

func (d DomainID) String() string { return strconv.FormatUint(uint64(d), 10) }

// ParseDomainID parses a decimal domain id, rejecting zero.
func ParseDomainID(s string) (DomainID, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, derrors.Wrap(err, derrors.CodeInvalidInput, "domain id must be a uint32")
	}
	if v == 0 {
		return 0, derrors.New(derrors.CodeInvalidInput, "domain id zero is reserved")
	}
	return DomainID(v), nil
}

// AppID identifies an application, library, or account on some domain. It is
// an opaque non-empty string; encoding is domain-specific and not interpreted
// here.
type AppID string

// None is the absent application id.
const None AppID = ""

// IsNone reports whether the id is absent.
func (a AppID) IsNone() bool { return a == None }

func (a AppID) String() string { return string(a) }

// ParseAppID validates an application id at a trust boundary.
func ParseAppID(s string) (AppID, error) {
	if s == "" {
		return None, derrors.New(derrors.CodeInvalidInput, "app id cannot be empty")
	}
	return AppID(s), nil
}

// Nonce is a per-lane sequence number. Outbound counters start at zero and
// the first assigned nonce is 1, so zero always means "nothing yet".
type Nonce uint64

func (n Nonce) String() string { return strconv.FormatUint(uint64(n), 10) }

// PayloadHash is the 32-byte digest of a message payload as recorded by the
// inbound ledger.
type PayloadHash [32]byte

var (
	// EmptyPayloadHash is the unset sentinel; it can never be submitted as a
	// real hash.
	EmptyPayloadHash = PayloadHash{}

	// NilPayloadHash marks a slot as permanently unexecutable while still
	// counting as occupied for contiguity.
	NilPayloadHash = PayloadHash{
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	}
)

// IsEmpty reports whether the hash is the unset sentinel.
func (h PayloadHash) IsEmpty() bool { return h == EmptyPayloadHash }

// IsNil reports whether the hash is the permanently-blocked sentinel.
func (h PayloadHash) IsNil() bool { return h == NilPayloadHash }

func (h PayloadHash) String() string { return hex.EncodeToString(h[:]) }

// HashPayload digests a message payload.
func HashPayload(payload []byte) PayloadHash {
	return sha256.Sum256(payload)
}

// ParsePayloadHash decodes a 64-character hex digest.
func ParsePayloadHash(s string) (PayloadHash, error) {
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 32 {
		return EmptyPayloadHash, derrors.New(derrors.CodeInvalidInput, "payload hash must be 32 hex-encoded bytes")
	}
	var h PayloadHash
	copy(h[:], raw)
	return h, nil
}

// GUID is the deterministic unique identifier of one message: a pure function
// of its lane and nonce. It is unpredictable before the nonce is known and
// precomputable afterwards.
type GUID [32]byte

func (g GUID) String() string { return hex.EncodeToString(g[:]) }

// ParseGUID decodes a 64-character hex message id.
func ParseGUID(s string) (GUID, error) {
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 32 {
		return GUID{}, derrors.New(derrors.CodeInvalidInput, "guid must be 32 hex-encoded bytes")
	}
	var g GUID
	copy(g[:], raw)
	return g, nil
}

// ComputeGUID derives the message id from (nonce, source domain, sender,
// destination domain, receiver). Fields are length-delimited so distinct
// lanes can never collide by concatenation.
func ComputeGUID(nonce Nonce, srcDomain DomainID, sender AppID, dstDomain DomainID, receiver AppID) GUID {
	h := sha256.New()
	var buf [8]byte

	binary.BigEndian.PutUint64(buf[:], uint64(nonce))
	h.Write(buf[:])
	binary.BigEndian.PutUint32(buf[:4], uint32(srcDomain))
	h.Write(buf[:4])

	binary.BigEndian.PutUint64(buf[:], uint64(len(sender)))
	h.Write(buf[:])
	h.Write([]byte(sender))

	binary.BigEndian.PutUint32(buf[:4], uint32(dstDomain))
	h.Write(buf[:4])

	binary.BigEndian.PutUint64(buf[:], uint64(len(receiver)))
	h.Write(buf[:])
	h.Write([]byte(receiver))

	var g GUID
	copy(g[:], h.Sum(nil))
	return g
}
