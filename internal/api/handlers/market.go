package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/nur1kesh/ai-model-marketplace/internal/api/httpx"
	"github.com/nur1kesh/ai-model-marketplace/internal/api/validate"
	"github.com/nur1kesh/ai-model-marketplace/internal/ledger"
	"github.com/nur1kesh/ai-model-marketplace/internal/models"
	"github.com/nur1kesh/ai-model-marketplace/internal/services"
)

type MarketHandler struct {
	Market *services.MarketService
}

func NewMarketHandler(ms *services.MarketService) *MarketHandler {
	return &MarketHandler{Market: ms}
}

type listingView struct {
	models.Listing
	AverageRating float64 `json:"average_rating"`
}

func view(l models.Listing) listingView {
	return listingView{Listing: l, AverageRating: l.AverageRating()}
}

func modelID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.WriteLedgerError(w, ledger.ErrNotFound)
		return 0, false
	}
	return id, true
}

func (h *MarketHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	var req struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Price       *models.Amount `json:"price"`
		ArtifactURI string         `json:"artifact_uri"`
	}
	if !decode(w, r, &req) {
		return
	}
	var errs validate.Errs
	for _, e := range []*validate.ErrField{
		validate.Required("name", req.Name),
		validate.Required("description", req.Description),
	} {
		if e != nil {
			errs = append(errs, *e)
		}
	}
	if len(errs) > 0 {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", errs.Error(), errs)
		return
	}

	l, err := h.Market.ListModel(r.Context(), uid, req.Name, req.Description, req.Price, req.ArtifactURI)
	if err != nil {
		httpx.WriteLedgerError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, view(l))
}

func (h *MarketHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	limit, offset := paging(r, 50)
	ls, err := h.Market.ListModels(r.Context(), limit, offset)
	if err != nil {
		httpx.WriteLedgerError(w, err)
		return
	}
	out := make([]listingView, 0, len(ls))
	for _, l := range ls {
		out = append(out, view(l))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *MarketHandler) Details(w http.ResponseWriter, r *http.Request) {
	id, ok := modelID(w, r)
	if !ok {
		return
	}
	l, err := h.Market.GetModelDetails(r.Context(), id)
	if err != nil {
		httpx.WriteLedgerError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view(l))
}

func (h *MarketHandler) Count(w http.ResponseWriter, r *http.Request) {
	n, err := h.Market.ModelCount(r.Context())
	if err != nil {
		httpx.WriteLedgerError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int64{"count": n})
}

func (h *MarketHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := modelID(w, r)
	if !ok {
		return
	}
	l, err := h.Market.PurchaseModel(r.Context(), uid, id)
	if err != nil {
		httpx.WriteLedgerError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view(l))
}

func (h *MarketHandler) Rate(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := modelID(w, r)
	if !ok {
		return
	}
	var req struct {
		Rating int `json:"rating"`
	}
	if !decode(w, r, &req) {
		return
	}
	if e := validate.IntRange("rating", int64(req.Rating), 1, 5); e != nil {
		httpx.WriteLedgerError(w, ledger.ErrInvalidRating)
		return
	}
	l, err := h.Market.RateModel(r.Context(), uid, id, req.Rating)
	if err != nil {
		httpx.WriteLedgerError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view(l))
}

func (h *MarketHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := modelID(w, r)
	if !ok {
		return
	}
	if err := h.Market.DeleteModel(r.Context(), uid, id); err != nil {
		httpx.WriteLedgerError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *MarketHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	amount, err := h.Market.WithdrawFunds(r.Context(), uid)
	if err != nil {
		httpx.WriteLedgerError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"withdrawn": amount})
}

func (h *MarketHandler) Owner(w http.ResponseWriter, r *http.Request) {
	owner, err := h.Market.Owner(r.Context())
	if err != nil {
		httpx.WriteLedgerError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"owner_id": owner.ID, "username": owner.Username})
}
