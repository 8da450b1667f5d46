package cashcard

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/alovak/cashcard-service/cashcard/models"
	"github.com/alovak/cashcard-service/internal/auth"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// API is the HTTP boundary of the cash card service. It owns status-code
// mapping and request validation; all persistence happens behind the
// service. A card that is absent and a card owned by someone else render
// the same 404.
type API struct {
	service *Service
	authn   *auth.Basic
}

func NewAPI(service *Service, authn *auth.Basic) *API {
	return &API{
		service: service,
		authn:   authn,
	}
}

func (a *API) AppendRoutes(r chi.Router) {
	r.Route("/cashcards", func(r chi.Router) {
		r.Use(a.authn.Authenticate)
		r.Use(auth.RequireRole(auth.RoleCardOwner))
		r.Get("/", a.listCashCards)
		r.Post("/", a.createCashCard)
		r.With(auth.RequireRole(auth.RoleAdmin)).Get("/filter", a.filterCashCards)
		r.Put("/bulk", a.bulkUpdateCashCards)
		r.Delete("/bulk", a.bulkDeleteCashCards)
		r.Get("/{id}", a.getCashCard)
		r.Put("/{id}", a.updateCashCard)
		r.Delete("/{id}", a.deleteCashCard)
	})
}

func (a *API) getCashCard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	principal, _ := auth.PrincipalFrom(r.Context())

	card, err := a.service.FindByIDAndOwner(r.Context(), id, principal.Username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeInternalError(w)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(card))
}

func (a *API) createCashCard(w http.ResponseWriter, r *http.Request) {
	var req models.CashCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Wrong data type passed in."})
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}
	principal, _ := auth.PrincipalFrom(r.Context())

	card, err := a.service.Create(r.Context(), *req.Amount, principal.Username)
	if err != nil {
		if errors.Is(err, ErrInvalidAmount) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"amount": "Amount must be positive"})
			return
		}
		writeInternalError(w)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/cashcards/%d", card.ID))
	w.WriteHeader(http.StatusCreated)
}

func (a *API) listCashCards(w http.ResponseWriter, r *http.Request) {
	page, err := ParsePage(r.URL.Query())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	principal, _ := auth.PrincipalFrom(r.Context())

	cards, err := a.service.FindByOwner(r.Context(), principal.Username, page)
	if err != nil {
		writeInternalError(w)
		return
	}
	writeJSON(w, http.StatusOK, toResponses(cards))
}

func (a *API) updateCashCard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req models.CashCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Wrong data type passed in."})
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}
	principal, _ := auth.PrincipalFrom(r.Context())

	updated, err := a.service.Update(r.Context(), id, *req.Amount, principal.Username)
	if err != nil {
		if errors.Is(err, ErrInvalidAmount) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"amount": "Amount must be positive"})
			return
		}
		writeInternalError(w)
		return
	}
	if !updated {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) bulkUpdateCashCards(w http.ResponseWriter, r *http.Request) {
	var reqs []models.BulkUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Wrong data type passed in."})
		return
	}
	if len(reqs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "List cannot be empty"})
		return
	}
	items := make([]models.BulkUpdateItem, 0, len(reqs))
	for i, req := range reqs {
		if errs := req.Validate(); len(errs) > 0 {
			writeJSON(w, http.StatusBadRequest, prefixFields(i, errs))
			return
		}
		items = append(items, models.BulkUpdateItem{ID: *req.ID, Amount: *req.Amount})
	}
	principal, _ := auth.PrincipalFrom(r.Context())

	if err := a.service.BulkUpdate(r.Context(), items, principal.Username); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "One or more cash cards do not exist or are not owned"})
			return
		}
		writeInternalError(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) deleteCashCard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	principal, _ := auth.PrincipalFrom(r.Context())

	deleted, err := a.service.Delete(r.Context(), id, principal.Username)
	if err != nil {
		writeInternalError(w)
		return
	}
	if !deleted {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) bulkDeleteCashCards(w http.ResponseWriter, r *http.Request) {
	var ids []int64
	if err := json.NewDecoder(r.Body).Decode(&ids); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Wrong data type passed in."})
		return
	}
	if len(ids) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "List cannot be empty"})
		return
	}
	principal, _ := auth.PrincipalFrom(r.Context())

	if err := a.service.BulkDelete(r.Context(), ids, principal.Username); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "One or more cash cards do not exist or are not owned"})
			return
		}
		writeInternalError(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) filterCashCards(w http.ResponseWriter, r *http.Request) {
	min, max, errs := parseRange(r.URL.Query().Get("min"), r.URL.Query().Get("max"))
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}
	if min.GreaterThanOrEqual(max) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "min must be less than max"})
		return
	}
	page, err := ParsePage(r.URL.Query())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	cards, err := a.service.FindByAmountRange(r.Context(), min, max, page)
	if err != nil {
		writeInternalError(w)
		return
	}
	writeJSON(w, http.StatusOK, toResponses(cards))
}

// parseRange validates the min/max filter parameters: both are required,
// numeric and non-negative.
func parseRange(minRaw, maxRaw string) (min, max decimal.Decimal, errs map[string]string) {
	errs = map[string]string{}
	min = parseBound("min", minRaw, errs)
	max = parseBound("max", maxRaw, errs)
	return min, max, errs
}

func parseBound(field, raw string, errs map[string]string) decimal.Decimal {
	if raw == "" {
		errs[field] = field + " is required"
		return decimal.Zero
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		errs[field] = field + " must be a number"
		return decimal.Zero
	}
	if v.IsNegative() {
		errs[field] = field + " must not be negative"
	}
	return v
}

// pathID parses the {id} path segment, answering 400 itself on garbage.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid parameter type"})
		return 0, false
	}
	return id, true
}

func prefixFields(index int, errs map[string]string) map[string]string {
	out := make(map[string]string, len(errs))
	for field, msg := range errs {
		out[fmt.Sprintf("[%d].%s", index, field)] = msg
	}
	return out
}

func toResponse(card *models.CashCard) models.CashCardResponse {
	return models.CashCardResponse{ID: card.ID, Amount: card.Amount}
}

func toResponses(cards []models.CashCard) []models.CashCardResponse {
	out := make([]models.CashCardResponse, 0, len(cards))
	for i := range cards {
		out = append(out, toResponse(&cards[i]))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeInternalError(w http.ResponseWriter) {
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "An unexpected error occurred."})
}
