package httptransport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lanegate/pkg/platform/httputil"
	"lanegate/pkg/platform/middleware/caller"
	"lanegate/pkg/platform/middleware/requesttime"
)

// NewRouter mounts the full API. Everything under /v1 requires a caller
// token; /healthz and /metrics stay open for probes and scrapers.
func NewRouter(h *Handler, callerSecret []byte) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))
	r.Use(requesttime.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(caller.RequireCaller(callerSecret, h.logger))

		// Protocol entry points.
		r.Post("/quote", h.handleQuote)
		r.Post("/send", h.handleSend)
		r.Post("/verify", h.handleVerify)
		r.Post("/receive", h.handleReceive)
		r.Post("/clear", h.handleClear)

		// Emergency lane operations.
		r.Post("/skip", h.handleSkip)
		r.Post("/nilify", h.handleNilify)
		r.Post("/burn", h.handleBurn)

		// Lane queries.
		r.Get("/lanes/outbound", h.handleOutboundNonce)
		r.Get("/lanes/next-guid", h.handleNextGUID)
		r.Get("/lanes/cursor", h.handleLazyCursor)
		r.Get("/lanes/next-nonce", h.handleNextExpectedNonce)
		r.Get("/lanes/inbound-hash", h.handleInboundHash)
		r.Get("/lanes/initializable", h.handleInitializable)
		r.Get("/lanes/verifiable", h.handleVerifiable)

		// Compose queue.
		r.Post("/compose/enqueue", h.handleComposeEnqueue)
		r.Post("/compose/deliver", h.handleComposeDeliver)
		r.Post("/compose/alert", h.handleComposeAlert)
		r.Get("/compose/hash", h.handleComposeHash)

		// Routing administration.
		r.Post("/registry/defaults", h.handleSetDefaultLibrary)
		r.Post("/registry/overrides", h.handleSetLibraryOverride)
		r.Post("/registry/timeouts", h.handleSetReceiveTimeout)
		r.Get("/registry/libraries", h.handleListLibraries)
		r.Post("/registry/config", h.handleSetConfig)
		r.Get("/registry/config", h.handleGetConfig)
		r.Post("/delegate", h.handleSetDelegate)
		r.Post("/fee-token", h.handleSetFeeToken)

		r.Get("/events", h.handleListEvents)
	})

	return r
}
