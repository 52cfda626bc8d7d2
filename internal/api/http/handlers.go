package http

import (
	"net/http"
	"strconv"

	"rentchain-backend/internal/domain"
	"rentchain-backend/internal/service"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

type Handler struct {
	users         service.UserService
	offers        service.OfferService
	agreements    service.AgreementService
	notifications service.NotificationService
}

func NewHandler(users service.UserService, offers service.OfferService, agreements service.AgreementService, notifications service.NotificationService) *Handler {
	return &Handler{
		users:         users,
		offers:        offers,
		agreements:    agreements,
		notifications: notifications,
	}
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetUser(r.Context(), ActorFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type linkWalletRequest struct {
	Address string `json:"address"`
}

func (h *Handler) LinkWallet(w http.ResponseWriter, r *http.Request) {
	var req linkWalletRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.users.LinkWallet(r.Context(), ActorFromContext(r.Context()), req.Address)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type placeOfferRequest struct {
	PropertyID string          `json:"property_id"`
	RentAmount decimal.Decimal `json:"rent_amount"`
	Message    *string         `json:"message,omitempty"`
}

func (h *Handler) PlaceOffer(w http.ResponseWriter, r *http.Request) {
	var req placeOfferRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.PropertyID == "" {
		writeError(w, r, domain.NewError(domain.KindValidation, "property_id is required"))
		return
	}
	offer, err := h.offers.PlaceOffer(r.Context(), ActorFromContext(r.Context()), req.PropertyID, req.RentAmount, req.Message)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, offer)
}

func (h *Handler) TransitionOffer(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	offer, err := h.offers.TransitionOffer(r.Context(), ActorFromContext(r.Context()), vars["id"], domain.OfferAction(vars["action"]))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, offer)
}

func (h *Handler) ListOffers(w http.ResponseWriter, r *http.Request) {
	offers, err := h.offers.ListOffers(r.Context(), ActorFromContext(r.Context()), r.URL.Query().Get("property_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if offers == nil {
		offers = []domain.Offer{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"offers": offers})
}

func (h *Handler) FinalizeAgreement(w http.ResponseWriter, r *http.Request) {
	var req service.FinalizeRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	agreement, err := h.agreements.FinalizeAgreement(r.Context(), ActorFromContext(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, agreement)
}

func (h *Handler) ListAgreements(w http.ResponseWriter, r *http.Request) {
	agreements, err := h.agreements.ListAgreements(r.Context(), ActorFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if agreements == nil {
		agreements = []domain.Agreement{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"agreements": agreements})
}

func (h *Handler) VerifyAgreement(w http.ResponseWriter, r *http.Request) {
	res, err := h.agreements.VerifyAgreement(r.Context(), ActorFromContext(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) ListStaleNotarizations(w http.ResponseWriter, r *http.Request) {
	rows, err := h.agreements.ListStaleNotarizations(r.Context(), ActorFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rows == nil {
		rows = []domain.Notarization{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"notarizations": rows})
}

func (h *Handler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	page := queryInt32(r, "page", 1)
	pageSize := queryInt32(r, "page_size", 20)
	notes, total, err := h.notifications.GetNotifications(r.Context(), ActorFromContext(r.Context()), page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if notes == nil {
		notes = []domain.Notification{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": notes, "total": total})
}

func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	if err := h.notifications.MarkAsRead(r.Context(), ActorFromContext(r.Context()), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func queryInt32(r *http.Request, name string, def int32) int32 {
	v, err := strconv.ParseInt(r.URL.Query().Get(name), 10, 32)
	if err != nil {
		return def
	}
	return int32(v)
}
