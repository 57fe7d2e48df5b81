package ledger

import "errors"

// Kind groups ledger errors by how the caller should treat them. Handlers
// map kinds to HTTP status codes; services map storage conflicts to codes.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindAuthorization Kind = "authorization"
	KindStateConflict Kind = "state_conflict"
	KindFunds         Kind = "funds"
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	ErrInvalidAmount = &Error{KindValidation, "invalid_amount", "amount must be greater than zero"}
	ErrEmptyName     = &Error{KindValidation, "empty_name", "name and description are required"}
	ErrInvalidRating = &Error{KindValidation, "invalid_rating", "rating must be between 1 and 5"}
	ErrSelfTransfer  = &Error{KindValidation, "self_transfer", "cannot transfer to self"}

	ErrNotOwner     = &Error{KindAuthorization, "not_owner", "only the owner can perform this action"}
	ErrSelfPurchase = &Error{KindAuthorization, "self_purchase", "cannot purchase your own model"}
	ErrSelfRating   = &Error{KindAuthorization, "self_rating", "model seller cannot rate their own model"}

	ErrNotFound     = &Error{KindStateConflict, "not_found", "model does not exist"}
	ErrAlreadySold  = &Error{KindStateConflict, "already_sold", "model has already been sold"}
	ErrAlreadyRated = &Error{KindStateConflict, "already_rated", "model already rated by this user"}

	ErrInsufficientBalance   = &Error{KindFunds, "insufficient_balance", "transfer amount exceeds balance"}
	ErrInsufficientAllowance = &Error{KindFunds, "insufficient_allowance", "transfer amount exceeds allowance"}
)

// AsError unwraps err into a ledger *Error if there is one in the chain.
func AsError(err error) (*Error, bool) {
	var le *Error
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}
