package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"time"

	"testing"

	"github.com/stretchr/testify/suite"

	"lanegate/internal/apps/echo"
	channelstore "lanegate/internal/channel/store"
	composeservice "lanegate/internal/compose/service"
	composestore "lanegate/internal/compose/store"
	endpointservice "lanegate/internal/endpoint/service"
	"lanegate/internal/events"
	eventsmem "lanegate/internal/events/store/memory"
	"lanegate/internal/library/blocked"
	"lanegate/internal/library/simple"
	"lanegate/internal/payments"
	registryservice "lanegate/internal/registry/service"
	registrystore "lanegate/internal/registry/store"
	id "lanegate/pkg/domain"
	"lanegate/pkg/platform/middleware/caller"
)

var secret = []byte("transport-test-secret")

type TransportSuite struct {
	suite.Suite

	server *httptest.Server
	vault  *payments.InMemoryVault
	app    *echo.App
}

func TestTransportSuite(t *testing.T) {
	suite.Run(t, new(TransportSuite))
}

func (s *TransportSuite) SetupTest() {
	ctx := context.Background()
	logger := slog.Default()
	publisher := events.NewPublisher(eventsmem.New())

	registry, err := registryservice.New("owner", registrystore.NewInMemoryRouteStore())
	s.Require().NoError(err)
	s.Require().NoError(registry.Register(ctx, "owner", blocked.New()))

	compose, err := composeservice.New(composestore.NewInMemoryStore())
	s.Require().NoError(err)

	s.vault = payments.NewInMemoryVault()
	endpoint, err := endpointservice.New(1, "owner",
		channelstore.NewInMemoryLedger(), registry, compose, s.vault,
		endpointservice.WithEvents(publisher))
	s.Require().NoError(err)

	lib := simple.New("simple-v1", big.NewInt(10), "treasury")
	s.Require().NoError(registry.Register(ctx, "owner", lib))
	s.Require().NoError(registry.SetDefaultSendLibrary(ctx, "owner", 2, "simple-v1"))
	s.Require().NoError(registry.SetDefaultReceiveLibrary(ctx, "owner", 2, "simple-v1", 0))

	s.app = echo.New("bob")
	s.app.AllowFrom(2, "carol")
	endpoint.RegisterApp(s.app)

	handler := NewHandler(endpoint, registry, compose, publisher, logger)
	s.server = httptest.NewServer(NewRouter(handler, secret))
	s.T().Cleanup(s.server.Close)

	s.Require().NoError(s.vault.Mint(ctx, payments.NativeToken, "alice", big.NewInt(1000)))
}

// do issues an authenticated request and decodes the JSON response into out
// when out is non-nil.
func (s *TransportSuite) do(as id.AppID, method, path string, body, out any) *http.Response {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.server.URL+path, &buf)
	s.Require().NoError(err)

	if !as.IsNone() {
		token, err := caller.Token(secret, as, time.Minute)
		s.Require().NoError(err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = resp.Body.Close() })

	if out != nil {
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func (s *TransportSuite) TestHealthAndAuth() {
	resp, err := s.server.Client().Get(s.server.URL + "/healthz")
	s.Require().NoError(err)
	s.Equal(http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp = s.do(id.None, http.MethodGet, "/v1/registry/libraries", nil, nil)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *TransportSuite) TestQuoteAndSend() {
	var fee struct {
		Native string `json:"native"`
		Token  string `json:"token"`
	}
	resp := s.do("alice", http.MethodPost, "/v1/quote", map[string]any{
		"dst_domain": 2,
		"receiver":   "carol",
		"message":    []byte("hello"),
	}, &fee)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("10", fee.Native)

	var receipt struct {
		GUID  string `json:"guid"`
		Nonce uint64 `json:"nonce"`
	}
	resp = s.do("alice", http.MethodPost, "/v1/send", map[string]any{
		"dst_domain": 2,
		"receiver":   "carol",
		"message":    []byte("hello"),
		"supplied":   map[string]string{"native": "10"},
	}, &receipt)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal(uint64(1), receipt.Nonce)
	s.NotEmpty(receipt.GUID)

	var outbound struct {
		Nonce uint64 `json:"nonce"`
	}
	resp = s.do("alice", http.MethodGet, "/v1/lanes/outbound?sender=alice&dst_domain=2&receiver=carol", nil, &outbound)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal(uint64(1), outbound.Nonce)
}

func (s *TransportSuite) TestSendErrorsMapToStatuses() {
	s.Run("insufficient fee is 402", func() {
		resp := s.do("alice", http.MethodPost, "/v1/send", map[string]any{
			"dst_domain": 2,
			"receiver":   "carol",
			"message":    []byte("hello"),
			"supplied":   map[string]string{"native": "1"},
		}, nil)
		s.Equal(http.StatusPaymentRequired, resp.StatusCode)
	})

	s.Run("zero domain is 400", func() {
		resp := s.do("alice", http.MethodPost, "/v1/send", map[string]any{
			"dst_domain": 0,
			"receiver":   "carol",
			"message":    []byte("hello"),
			"supplied":   map[string]string{"native": "10"},
		}, nil)
		s.Equal(http.StatusBadRequest, resp.StatusCode)
	})

	s.Run("unknown field is 400", func() {
		resp := s.do("alice", http.MethodPost, "/v1/send", map[string]any{
			"dst_domain": 2,
			"receiver":   "carol",
			"message":    []byte("hello"),
			"supplied":   map[string]string{"native": "10"},
			"surprise":   true,
		}, nil)
		s.Equal(http.StatusBadRequest, resp.StatusCode)
	})
}

func (s *TransportSuite) TestVerifyReceiveFlow() {
	hash := id.HashPayload([]byte("hi"))

	s.Run("verify requires the valid receive library", func() {
		resp := s.do("rogue-lib", http.MethodPost, "/v1/verify", map[string]any{
			"origin":       map[string]any{"src_domain": 2, "sender": "carol", "nonce": 1},
			"receiver":     "bob",
			"payload_hash": hash.String(),
		}, nil)
		s.Equal(http.StatusUnauthorized, resp.StatusCode)
	})

	resp := s.do("simple-v1", http.MethodPost, "/v1/verify", map[string]any{
		"origin":       map[string]any{"src_domain": 2, "sender": "carol", "nonce": 1},
		"receiver":     "bob",
		"payload_hash": hash.String(),
	}, nil)
	s.Equal(http.StatusNoContent, resp.StatusCode)

	var verifiable struct {
		Verifiable bool `json:"verifiable"`
	}
	resp = s.do("anyone", http.MethodGet, "/v1/lanes/verifiable?receiver=bob&src_domain=2&sender=carol&nonce=1", nil, &verifiable)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.True(verifiable.Verifiable)

	resp = s.do("executor", http.MethodPost, "/v1/receive", map[string]any{
		"origin":   map[string]any{"src_domain": 2, "sender": "carol", "nonce": 1},
		"receiver": "bob",
		"message":  []byte("hi"),
	}, nil)
	s.Equal(http.StatusNoContent, resp.StatusCode)
	s.Len(s.app.Deliveries(), 1)

	s.Run("replay is 422", func() {
		resp := s.do("executor", http.MethodPost, "/v1/receive", map[string]any{
			"origin":   map[string]any{"src_domain": 2, "sender": "carol", "nonce": 1},
			"receiver": "bob",
			"message":  []byte("hi"),
		}, nil)
		s.Equal(http.StatusUnprocessableEntity, resp.StatusCode)
	})
}

func (s *TransportSuite) TestRegistryAdmin() {
	s.Run("owner only", func() {
		resp := s.do("alice", http.MethodPost, "/v1/registry/defaults", map[string]any{
			"direction": "send",
			"domain":    3,
			"library":   "simple-v1",
		}, nil)
		s.Equal(http.StatusUnauthorized, resp.StatusCode)
	})

	resp := s.do("owner", http.MethodPost, "/v1/registry/defaults", map[string]any{
		"direction": "send",
		"domain":    3,
		"library":   "simple-v1",
	}, nil)
	s.Equal(http.StatusNoContent, resp.StatusCode)

	var libs struct {
		Libraries []string `json:"libraries"`
	}
	resp = s.do("anyone", http.MethodGet, "/v1/registry/libraries", nil, &libs)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.ElementsMatch([]string{"blocked", "simple-v1"}, libs.Libraries)
}

func (s *TransportSuite) TestEventsListing() {
	resp := s.do("alice", http.MethodPost, "/v1/send", map[string]any{
		"dst_domain": 2,
		"receiver":   "carol",
		"message":    []byte("hello"),
		"supplied":   map[string]string{"native": "10"},
	}, nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	var out struct {
		Events []events.Event `json:"events"`
	}
	resp = s.do("anyone", http.MethodGet, "/v1/events?sender=alice", nil, &out)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Require().Len(out.Events, 1)
	s.Equal(events.TypePacketSent, out.Events[0].Type)
}
