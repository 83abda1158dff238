package models

import "github.com/shopspring/decimal"

type OpenTerminal struct {
	Reserve decimal.Decimal `json:"reserve"`
}

type TerminalInfo struct {
	ID string `json:"id"`
}

type InsertCard struct {
	PAN string `json:"pan"`
	PIN int    `json:"pin"`
}

type SessionResult struct {
	Accepted bool `json:"accepted"`
}

type Withdrawal struct {
	Amount decimal.Decimal `json:"amount"`
}

type Reserve struct {
	Reserve decimal.Decimal `json:"reserve"`
}

type Balance struct {
	Balance decimal.Decimal `json:"balance"`
}
