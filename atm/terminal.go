package atm

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Card is the capability a terminal needs from an inserted card.
type Card interface {
	IsBlocked() bool
	CheckPin(pin int) bool
	Account() Account
}

// Account is the capability a terminal needs from the account behind a card.
// Withdraw returns the amount actually debited.
type Account interface {
	Balance() (decimal.Decimal, error)
	Withdraw(amount decimal.Decimal) (decimal.Decimal, error)
}

// Terminal is the state machine of a single cash machine. It holds the
// machine's own cash reserve and, once a card was accepted, the card of the
// current session.
//
// Terminal is not safe for concurrent use.
type Terminal struct {
	reserve decimal.Decimal
	// card is nil while no session is active
	card Card
}

func NewTerminal(reserve decimal.Decimal) (*Terminal, error) {
	if reserve.IsNegative() {
		return nil, fmt.Errorf("reserve should be greater than or equal to zero: %w", ErrInvalidArgument)
	}

	return &Terminal{
		reserve: reserve,
	}, nil
}

// SessionActive reports whether a card has been accepted.
func (t *Terminal) SessionActive() bool {
	return t.card != nil
}

// ValidateSession accepts the card when it is not blocked and the pin
// matches. Both checks always run, blocked status first. A rejected card
// leaves the current session as it was.
func (t *Terminal) ValidateSession(card Card, pin int) bool {
	blocked := card.IsBlocked()
	pinOK := card.CheckPin(pin)

	if blocked || !pinOK {
		return false
	}

	t.card = card

	return true
}

// Reserve returns the cash left in the machine.
func (t *Terminal) Reserve() (decimal.Decimal, error) {
	if !t.SessionActive() {
		return decimal.Zero, ErrNoSession
	}

	return t.reserve, nil
}

// Balance returns the balance of the session's account.
func (t *Terminal) Balance() (decimal.Decimal, error) {
	if !t.SessionActive() {
		return decimal.Zero, ErrNoSession
	}

	balance, err := t.card.Account().Balance()
	if err != nil {
		return decimal.Zero, fmt.Errorf("reading balance: %w", err)
	}

	return balance, nil
}

// Withdraw debits amount from the session's account and takes the debited
// cash out of the reserve. It returns the account balance after the debit.
//
// The reserve shrinks by what the account reports as debited, while the
// returned balance is read back from the account.
func (t *Terminal) Withdraw(amount decimal.Decimal) (decimal.Decimal, error) {
	if !t.SessionActive() {
		return decimal.Zero, ErrNoSession
	}
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount should be greater than zero: %w", ErrInvalidArgument)
	}

	account := t.card.Account()

	balance, err := account.Balance()
	if err != nil {
		return decimal.Zero, fmt.Errorf("reading balance: %w", err)
	}
	if balance.LessThan(amount) {
		return decimal.Zero, ErrInsufficientAccountFunds
	}
	// must hold before the account is touched
	if t.reserve.LessThan(amount) {
		return decimal.Zero, ErrInsufficientReserve
	}

	debited, err := account.Withdraw(amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("withdrawing from account: %w", err)
	}
	t.reserve = t.reserve.Sub(debited)

	balance, err = account.Balance()
	if err != nil {
		return decimal.Zero, fmt.Errorf("reading balance after withdrawal: %w", err)
	}

	return balance, nil
}
