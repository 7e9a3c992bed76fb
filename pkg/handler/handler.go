package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/gatepost/gatepost/pkg/metrics"
)

// HandlerState is the per-request entry point. It reads the active routing
// table, resolves a page, and serves it.
//
// Implements http.Handler.
type HandlerState struct {
	store   *Store
	metrics *metrics.Metrics
}

func NewHandler(store *Store, m *metrics.Metrics) HandlerState {
	return HandlerState{
		store:   store,
		metrics: m,
	}
}

// AttachRoutes mounts the dispatcher on the root path and the catch-all
// prefix. Everything between those two is decided by the routing table, not
// the mux.
func (state HandlerState) AttachRoutes(router chi.Router) {
	router.Handle("/", state)
	router.Handle("/*", state)
}

func (state HandlerState) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	table := state.store.Current()
	if table == nil {
		// A request arriving before the first successful load is a
		// bootstrap-ordering bug, not bad input.
		panic("handler: request dispatched before initial configuration load")
	}

	var page Page
	outcome := "matched"

	if chi.RouteContext(r.Context()) == nil {
		// No route binding means we were invoked outside the mux and
		// cannot trust the path extraction. Deliberately distinct from a
		// routing miss.
		page = table.NoPath
		outcome = "no_path"
	} else {
		var matched bool
		if page, matched = table.Resolve(r.URL.Path); !matched {
			outcome = "not_found"
		}
	}

	log.WithFields(log.Fields{"path": r.URL.Path, "outcome": outcome}).Debug("dispatching request")

	if err := page.Serve(w, r); err != nil {
		log.WithError(err).Error("upstream request failed")
		state.badGateway(w, r)
		outcome = "proxy_error"
	}

	state.metrics.CountRequest(outcome)
}

func acceptJSON(r *http.Request) bool {
	accept := r.Header[http.CanonicalHeaderKey("accept")]

	for _, value := range accept {
		if strings.Contains(strings.ToLower(value), "application/json") {
			return true
		}
	}

	return false
}

// badGateway answers for a proxy page whose upstream leg failed. The proxy
// fails before writing anything to the client, so the response here is still
// the first write.
func (state HandlerState) badGateway(w http.ResponseWriter, r *http.Request) {
	if acceptJSON(r) {
		type errorBodyType = struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		type errorInfo = struct {
			Error errorBodyType `json:"error"`
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(errorInfo{errorBodyType{
			Code:    "bad_gateway",
			Message: "The upstream request failed",
		}})

		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusBadGateway)
	_, _ = w.Write([]byte("502: bad gateway."))
}
