package http

import (
	"context"
	"net/http"

	"rentchain-backend/internal/security"
	"rentchain-backend/internal/service"
	"rentchain-backend/internal/storage"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig wires the HTTP surface. Gatherer may be nil to disable /metrics.
type RouterConfig struct {
	Users         service.UserService
	Offers        service.OfferService
	Agreements    service.AgreementService
	Notifications service.NotificationService
	Store         storage.ContentStore
	TokenManager  security.TokenManager
	// Ping reports database health for /healthz.
	Ping           func(ctx context.Context) error
	Gatherer       prometheus.Gatherer
	MetricsPath    string
	GatewayURL     string
	MaxUploadBytes int64
}

func NewRouter(cfg RouterConfig) *mux.Router {
	router := mux.NewRouter()
	router.Use(requestLogger)

	router.HandleFunc("/healthz", healthHandler(cfg.Ping)).Methods(http.MethodGet)
	if cfg.Gatherer != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.Handle(path, promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	content := NewContentHandler(cfg.Store, cfg.GatewayURL, cfg.MaxUploadBytes)
	router.HandleFunc("/ipfs/{cid}", content.HandleFetch).Methods(http.MethodGet)

	h := NewHandler(cfg.Users, cfg.Offers, cfg.Agreements, cfg.Notifications)
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(NewAuthMiddleware(cfg.TokenManager).Handler)

	api.HandleFunc("/users/me", h.GetMe).Methods(http.MethodGet)
	api.HandleFunc("/users/me/wallet", h.LinkWallet).Methods(http.MethodPost)

	api.HandleFunc("/offers", h.ListOffers).Methods(http.MethodGet)
	api.HandleFunc("/offers", h.PlaceOffer).Methods(http.MethodPost)
	api.HandleFunc("/offers/{id}/{action}", h.TransitionOffer).Methods(http.MethodPost)

	api.HandleFunc("/agreements", h.ListAgreements).Methods(http.MethodGet)
	api.HandleFunc("/agreements", h.FinalizeAgreement).Methods(http.MethodPost)
	api.HandleFunc("/agreements/{id}/verify", h.VerifyAgreement).Methods(http.MethodGet)

	api.HandleFunc("/notifications", h.GetNotifications).Methods(http.MethodGet)
	api.HandleFunc("/notifications/{id}/read", h.MarkNotificationRead).Methods(http.MethodPost)

	api.HandleFunc("/uploads", content.HandleUpload).Methods(http.MethodPost)

	api.HandleFunc("/admin/notarizations/stale", h.ListStaleNotarizations).Methods(http.MethodGet)

	return router
}

func healthHandler(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			if err := ping(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
