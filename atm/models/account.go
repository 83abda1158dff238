package models

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrInsufficientFunds = errors.New("insufficient funds")

type Account struct {
	ID      string          `json:"id"`
	Balance decimal.Decimal `json:"balance"`
}

type CreateAccount struct {
	Balance decimal.Decimal `json:"balance"`
}

// Debit takes amount off the balance, refusing to go below zero.
func (a *Account) Debit(amount decimal.Decimal) error {
	if a.Balance.LessThan(amount) {
		return ErrInsufficientFunds
	}
	a.Balance = a.Balance.Sub(amount)
	return nil
}
