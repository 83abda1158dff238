// Package pin hashes and verifies card PINs.
package pin

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const MaxPIN = 999999

var ErrInvalidPIN = errors.New("pin must be between 0 and 999999")

// Verifier is the contract used by card storage for PIN checks.
type Verifier interface {
	// Hash returns the stored form of pin.
	Hash(pin int) ([]byte, error)

	// Verify reports whether pin matches hash. Malformed hashes never match.
	Verify(hash []byte, pin int) bool
}

// Bcrypt implements Verifier with bcrypt. Zero Cost means bcrypt.DefaultCost.
type Bcrypt struct {
	Cost int
}

func NewBcrypt(cost int) *Bcrypt {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Bcrypt{Cost: cost}
}

func (b *Bcrypt) Hash(pin int) ([]byte, error) {
	if err := Validate(pin); err != nil {
		return nil, err
	}
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(format(pin)), cost)
	if err != nil {
		return nil, fmt.Errorf("hashing pin: %w", err)
	}
	return hash, nil
}

func (b *Bcrypt) Verify(hash []byte, pin int) bool {
	if Validate(pin) != nil {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(format(pin))) == nil
}

func Validate(pin int) error {
	if pin < 0 || pin > MaxPIN {
		return ErrInvalidPIN
	}
	return nil
}

// format pads to four digits so 123 and 0123 are the same PIN.
func format(pin int) string {
	return fmt.Sprintf("%04d", pin)
}

var _ Verifier = (*Bcrypt)(nil)
