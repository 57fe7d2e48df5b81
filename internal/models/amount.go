package models

import (
	"errors"
	"strconv"

	"github.com/holiman/uint256"
)

// Amount is an unsigned 256-bit token quantity. Balances are held at
// 18 decimals, so int64 is not enough; the wire and storage form is a
// decimal string.
type Amount struct {
	uint256.Int
}

func NewAmount(v uint64) *Amount {
	a := &Amount{}
	a.SetUint64(v)
	return a
}

// ParseAmount parses a non-negative decimal string.
func ParseAmount(s string) (*Amount, error) {
	i, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, errors.New("invalid amount: " + s)
	}
	return &Amount{*i}, nil
}

// Units returns n * 10^18, the whole-token convenience constructor.
func Units(n uint64) *Amount {
	a := NewAmount(n)
	a.Mul(&a.Int, new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(18)))
	return a
}

func (a *Amount) Clone() *Amount {
	c := &Amount{}
	c.Set(&a.Int)
	return c
}

func (a *Amount) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(a.Dec())), nil
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		// allow bare numbers too
		s = string(b)
	}
	i, err := uint256.FromDecimal(s)
	if err != nil {
		return errors.New("invalid amount")
	}
	a.Set(i)
	return nil
}
