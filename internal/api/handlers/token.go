package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/nur1kesh/ai-model-marketplace/internal/api/httpx"
	"github.com/nur1kesh/ai-model-marketplace/internal/middleware"
	"github.com/nur1kesh/ai-model-marketplace/internal/models"
	"github.com/nur1kesh/ai-model-marketplace/internal/services"
)

// TokenHandler exposes the fungible token ledger. The acting identity
// always comes from the access token, never from the request body.
type TokenHandler struct {
	Token *services.TokenService
}

func NewTokenHandler(ts *services.TokenService) *TokenHandler {
	return &TokenHandler{Token: ts}
}

type amountReq struct {
	ToUserID   string         `json:"to_user_id,omitempty"`
	FromUserID string         `json:"from_user_id,omitempty"`
	SpenderID  string         `json:"spender_id,omitempty"`
	OwnerID    string         `json:"owner_id,omitempty"`
	Amount     *models.Amount `json:"amount"`
}

func caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	uid, ok := middleware.UserID(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing credentials", nil)
	}
	return uid, ok
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid body", nil)
		return false
	}
	return true
}

func (h *TokenHandler) Balance(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	if q := r.URL.Query().Get("user_id"); q != "" {
		uid = q // balances are public reads
	}
	a, err := h.Token.BalanceOf(r.Context(), uid)
	if err != nil {
		httpx.WriteLedgerError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, a)
}

func (h *TokenHandler) Supply(w http.ResponseWriter, r *http.Request) {
	supply, err := h.Token.TotalSupply(r.Context())
	if err != nil {
		httpx.WriteLedgerError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"name":         models.TokenName,
		"symbol":       models.TokenSymbol,
		"decimals":     models.TokenDecimals,
		"total_supply": supply,
	})
}

func (h *TokenHandler) LastTransaction(w http.ResponseWriter, r *http.Request) {
	l, err := h.Token.LastTransaction(r.Context())
	if err != nil {
		httpx.WriteLedgerError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, l)
}

func (h *TokenHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	var req amountReq
	if !decode(w, r, &req) {
		return
	}
	t, err := h.Token.Transfer(r.Context(), uid, req.ToUserID, req.Amount)
	if err != nil {
		httpx.WriteLedgerError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, t)
}

func (h *TokenHandler) Approve(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	var req amountReq
	if !decode(w, r, &req) {
		return
	}
	if err := h.Token.Approve(r.Context(), uid, req.SpenderID, req.Amount); err != nil {
		httpx.WriteLedgerError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "approved"})
}

func (h *TokenHandler) Allowance(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	spender := r.URL.Query().Get("spender_id")
	a, err := h.Token.Allowance(r.Context(), uid, spender)
	if err != nil {
		httpx.WriteLedgerError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"owner_id": uid, "spender_id": spender, "amount": a})
}

func (h *TokenHandler) TransferFrom(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	var req amountReq
	if !decode(w, r, &req) {
		return
	}
	t, err := h.Token.TransferFrom(r.Context(), uid, req.OwnerID, req.ToUserID, req.Amount)
	if err != nil {
		httpx.WriteLedgerError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, t)
}

func (h *TokenHandler) Mint(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	var req amountReq
	if !decode(w, r, &req) {
		return
	}
	t, err := h.Token.Mint(r.Context(), uid, req.ToUserID, req.Amount)
	if err != nil {
		httpx.WriteLedgerError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, t)
}

func (h *TokenHandler) Burn(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	var req amountReq
	if !decode(w, r, &req) {
		return
	}
	t, err := h.Token.Burn(r.Context(), uid, req.FromUserID, req.Amount)
	if err != nil {
		httpx.WriteLedgerError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, t)
}

// BurnTreasury burns from the treasury account directly, the admin path
// for retiring accumulated fee revenue instead of withdrawing it.
func (h *TokenHandler) BurnTreasury(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	var req amountReq
	if !decode(w, r, &req) {
		return
	}
	t, err := h.Token.BurnFromTreasury(r.Context(), uid, req.Amount)
	if err != nil {
		httpx.WriteLedgerError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, t)
}

func (h *TokenHandler) Transfers(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	if q := r.URL.Query().Get("user_id"); q != "" {
		uid = q
	}
	limit, offset := paging(r, 50)
	txs, err := h.Token.ListTransfers(r.Context(), uid, limit, offset)
	if err != nil {
		httpx.WriteLedgerError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, txs)
}

func paging(r *http.Request, defLimit int) (limit, offset int) {
	limit = defLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
