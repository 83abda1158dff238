package atm

import (
	"time"

	"github.com/alovak/cardflow-atm/internal/expiry"
	"github.com/alovak/cardflow-atm/internal/pin"
	"github.com/shopspring/decimal"
)

// storedCard exposes a repository card to a Terminal. Every call reads the
// card again, so blocking a card is seen by the next validation.
type storedCard struct {
	id        string
	accountID string
	repo      *Repository
	pins      pin.Verifier
	expiry    expiry.Policy
	now       func() time.Time
}

// IsBlocked is true for blocked or expired cards, and for cards that can
// no longer be read.
func (c *storedCard) IsBlocked() bool {
	card, err := c.repo.GetCard(c.id)
	if err != nil {
		return true
	}
	if card.Blocked {
		return true
	}
	expired, err := c.expiry.Expired(card.ExpiryYYMM, c.now())
	return err != nil || expired
}

func (c *storedCard) CheckPin(p int) bool {
	card, err := c.repo.GetCard(c.id)
	if err != nil {
		return false
	}
	return c.pins.Verify(card.PINHash, p)
}

func (c *storedCard) Account() Account {
	return &storedAccount{id: c.accountID, repo: c.repo}
}

type storedAccount struct {
	id   string
	repo *Repository
}

func (a *storedAccount) Balance() (decimal.Decimal, error) {
	account, err := a.repo.GetAccount(a.id)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance, nil
}

// Withdraw debits the full amount or nothing.
func (a *storedAccount) Withdraw(amount decimal.Decimal) (decimal.Decimal, error) {
	if err := a.repo.DebitAccount(a.id, amount); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

var (
	_ Card    = (*storedCard)(nil)
	_ Account = (*storedAccount)(nil)
)
