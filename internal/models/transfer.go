package models

import "time"

type TransferKind string

const (
	TransferPlain      TransferKind = "transfer"
	TransferDelegated  TransferKind = "transfer_from"
	TransferMint       TransferKind = "mint"
	TransferBurn       TransferKind = "burn"
	TransferPurchase   TransferKind = "purchase"
	TransferListingFee TransferKind = "listing_fee"
	TransferWithdrawal TransferKind = "withdrawal"
)

// Transfer is one committed token movement. FromUserID is nil for mints,
// ToUserID is nil for burns.
type Transfer struct {
	ID         string       `json:"id"`
	FromUserID *string      `json:"from_user_id,omitempty"`
	ToUserID   *string      `json:"to_user_id,omitempty"`
	Amount     *Amount      `json:"amount"`
	Kind       TransferKind `json:"kind"`
	CreatedAt  time.Time    `json:"created_at"`
}

// LastTransaction is the singleton audit record overwritten on every
// transfer. Display only; no invariant depends on it.
type LastTransaction struct {
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Amount     *Amount   `json:"amount"`
	Timestamp  time.Time `json:"timestamp"`
}
