package atm

import "errors"

var (
	// ErrInvalidArgument is returned for a negative starting reserve and for
	// non-positive withdrawal amounts.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNoSession is returned by session-gated calls before a card was accepted.
	ErrNoSession = errors.New("no card inserted")

	ErrInsufficientAccountFunds = errors.New("not enough money in account")
	ErrInsufficientReserve      = errors.New("not enough money in ATM")
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)
