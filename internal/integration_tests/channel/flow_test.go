// Package channel_test drives two coordinators end to end: a send on one
// domain relayed into a verify, receive, and compose follow-up on the other.
package channel_test

import (
	"context"
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"lanegate/internal/apps/echo"
	channelmodels "lanegate/internal/channel/models"
	channelstore "lanegate/internal/channel/store"
	composeservice "lanegate/internal/compose/service"
	composestore "lanegate/internal/compose/store"
	endpointmodels "lanegate/internal/endpoint/models"
	endpointservice "lanegate/internal/endpoint/service"
	"lanegate/internal/events"
	eventsmem "lanegate/internal/events/store/memory"
	"lanegate/internal/library/blocked"
	"lanegate/internal/library/simple"
	"lanegate/internal/payments"
	registryservice "lanegate/internal/registry/service"
	registrystore "lanegate/internal/registry/store"
	id "lanegate/pkg/domain"
)

const (
	domainA id.DomainID = 1
	domainB id.DomainID = 2

	owner id.AppID = "owner"
	alice id.AppID = "alice"
	bob   id.AppID = "bob"
	dave  id.AppID = "dave"
	relay id.AppID = "relayer"
)

// stack is one domain's full wiring.
type stack struct {
	endpoint *endpointservice.Service
	registry *registryservice.Service
	compose  *composeservice.Service
	vault    *payments.InMemoryVault
	events   *eventsmem.Store
}

func newStack(t *testing.T, domain, remote id.DomainID) *stack {
	t.Helper()
	ctx := context.Background()

	eventLog := eventsmem.New()
	publisher := events.NewPublisher(eventLog)

	registry, err := registryservice.New(owner, registrystore.NewInMemoryRouteStore())
	require.NoError(t, err)
	require.NoError(t, registry.Register(ctx, owner, blocked.New()))

	compose, err := composeservice.New(composestore.NewInMemoryStore(),
		composeservice.WithEvents(publisher))
	require.NoError(t, err)

	vault := payments.NewInMemoryVault()
	endpoint, err := endpointservice.New(domain, owner,
		channelstore.NewInMemoryLedger(), registry, compose, vault,
		endpointservice.WithEvents(publisher))
	require.NoError(t, err)

	lib := simple.New("simple-v1", big.NewInt(10), "treasury")
	require.NoError(t, registry.Register(ctx, owner, lib))
	require.NoError(t, registry.SetDefaultSendLibrary(ctx, owner, remote, "simple-v1"))
	require.NoError(t, registry.SetDefaultReceiveLibrary(ctx, owner, remote, "simple-v1", 0))

	return &stack{
		endpoint: endpoint,
		registry: registry,
		compose:  compose,
		vault:    vault,
		events:   eventLog,
	}
}

type FlowSuite struct {
	suite.Suite

	ctx  context.Context
	a    *stack
	b    *stack
	bobA *echo.App
	dave *echo.App
}

func TestFlowSuite(t *testing.T) {
	suite.Run(t, new(FlowSuite))
}

func (s *FlowSuite) SetupTest() {
	s.ctx = context.Background()
	s.a = newStack(s.T(), domainA, domainB)
	s.b = newStack(s.T(), domainB, domainA)

	// bob receives on domain B and echoes into the local compose queue for
	// dave; dave only consumes compose messages.
	s.bobA = echo.New(bob, echo.WithComposeFollowUp(s.b.compose, dave))
	s.bobA.AllowFrom(domainA, alice)
	s.b.endpoint.RegisterApp(s.bobA)

	s.dave = echo.New(dave)
	s.b.endpoint.RegisterApp(s.dave)

	s.Require().NoError(s.a.vault.Mint(s.ctx, payments.NativeToken, alice, big.NewInt(100)))
}

// relayPacket plays the off-channel transport: it picks the encoded packet
// out of the sender's event trail and decodes it like a delivery worker
// would.
func (s *FlowSuite) relayPacket(from *stack) endpointmodels.Packet {
	list, err := from.events.ListByLane(s.ctx, 0, id.None, id.None)
	s.Require().NoError(err)

	for i := len(list) - 1; i >= 0; i-- {
		if list[i].Type != events.TypePacketSent {
			continue
		}
		raw, err := hex.DecodeString(list[i].EncodedPacket)
		s.Require().NoError(err)
		packet, err := simple.Decode(raw)
		s.Require().NoError(err)
		return packet
	}
	s.T().Fatal("no packet_sent event found")
	return endpointmodels.Packet{}
}

func (s *FlowSuite) TestHelloAcrossDomains() {
	receipt, err := s.a.endpoint.Send(s.ctx, alice, endpointmodels.MessagingParams{
		DstDomain: domainB,
		Receiver:  bob,
		Message:   []byte("hello"),
	}, endpointmodels.NewFee(10, 0), alice)
	s.Require().NoError(err)
	s.Equal(id.Nonce(1), receipt.Nonce)

	packet := s.relayPacket(s.a)
	s.Equal([]byte("hello"), packet.Message)
	s.Equal(receipt.GUID, packet.GUID)

	origin := channelmodels.Origin{SrcDomain: packet.SrcDomain, Sender: packet.Sender, Nonce: packet.Nonce}
	s.Require().NoError(s.b.endpoint.Verify(s.ctx, "simple-v1", origin, packet.Receiver, id.HashPayload(packet.Message)))
	s.Require().NoError(s.b.endpoint.Receive(s.ctx, relay, origin, packet.Receiver, packet.Message, nil))

	deliveries := s.bobA.Deliveries()
	s.Require().Len(deliveries, 1)
	s.Equal([]byte("hello"), deliveries[0].Message)
	s.Equal(packet.GUID, deliveries[0].GUID)

	s.Run("replay fails with the slot cleared", func() {
		err := s.b.endpoint.Receive(s.ctx, relay, origin, packet.Receiver, packet.Message, nil)
		s.Require().ErrorIs(err, channelmodels.ErrPayloadHashNotFound)
		s.Len(s.bobA.Deliveries(), 1)
	})

	s.Run("compose follow-up delivers exactly once", func() {
		hash, err := s.b.compose.Hash(s.ctx, bob, dave, packet.GUID, 0)
		s.Require().NoError(err)
		s.Require().False(hash.IsEmpty(), "receive must have queued the follow-up")

		message := append([]byte("echo:"), packet.Message...)
		s.Require().NoError(s.b.compose.Deliver(s.ctx, relay, bob, dave, packet.GUID, 0, message, nil))

		composed := s.dave.ComposeDeliveries()
		s.Require().Len(composed, 1)
		s.Equal(bob, composed[0].From)
		s.Equal(message, composed[0].Message)

		err = s.b.compose.Deliver(s.ctx, relay, bob, dave, packet.GUID, 0, message, nil)
		s.Require().Error(err)
		s.Len(s.dave.ComposeDeliveries(), 1)
	})
}

func (s *FlowSuite) TestOrderedLaneWithSkip() {
	s.Require().NoError(s.a.vault.Mint(s.ctx, payments.NativeToken, alice, big.NewInt(100)))

	// Three messages out; the middle one never gets verified on B.
	for _, msg := range []string{"one", "two", "three"} {
		_, err := s.a.endpoint.Send(s.ctx, alice, endpointmodels.MessagingParams{
			DstDomain: domainB,
			Receiver:  bob,
			Message:   []byte(msg),
		}, endpointmodels.NewFee(10, 0), alice)
		s.Require().NoError(err)
	}

	verify := func(nonce id.Nonce, msg string) error {
		origin := channelmodels.Origin{SrcDomain: domainA, Sender: alice, Nonce: nonce}
		return s.b.endpoint.Verify(s.ctx, "simple-v1", origin, bob, id.HashPayload([]byte(msg)))
	}
	receive := func(nonce id.Nonce, msg string) error {
		origin := channelmodels.Origin{SrcDomain: domainA, Sender: alice, Nonce: nonce}
		return s.b.endpoint.Receive(s.ctx, relay, origin, bob, []byte(msg), nil)
	}

	s.Require().NoError(verify(1, "one"))
	s.Require().NoError(verify(3, "three"))

	s.Require().NoError(receive(1, "one"))

	s.Run("gap blocks in-order execution", func() {
		err := receive(3, "three")
		s.Require().ErrorIs(err, channelmodels.ErrInvalidNonce)
	})

	s.Run("skip unblocks the lane", func() {
		s.Require().NoError(s.b.endpoint.Skip(s.ctx, bob, bob, domainA, alice, 2))
		s.Require().NoError(receive(3, "three"))
		s.Len(s.bobA.Deliveries(), 2)
	})
}
