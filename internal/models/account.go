package models

import "time"

// Token metadata. Fixed at compile time like an ERC-20's name/symbol.
const (
	TokenName     = "ModelMarket Token"
	TokenSymbol   = "UTK"
	TokenDecimals = 18
)

// Account is one holder's token balance.
type Account struct {
	UserID        string    `json:"user_id"`
	Amount        *Amount   `json:"amount"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

// Allowance is a spending permission: spender may move up to Amount on
// behalf of Owner. Overwritten by approve, consumed by transfer-from.
type Allowance struct {
	OwnerID   string  `json:"owner_id"`
	SpenderID string  `json:"spender_id"`
	Amount    *Amount `json:"amount"`
}
