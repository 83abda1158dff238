// Package atmclient talks to the atm HTTP API.
package atmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alovak/cardflow-atm/atm/models"
	"github.com/shopspring/decimal"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status=%d body=%s", e.Code, e.Body)
}

type Client struct {
	Base string
	HTTP *http.Client
}

func New(base string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{Base: strings.TrimRight(base, "/"), HTTP: hc}
}

// IssuedCard is a card as returned right after issuance.
type IssuedCard struct {
	models.Card
	MaskedNumber string `json:"masked_number"`
}

func (c *Client) CreateAccount(ctx context.Context, balance decimal.Decimal) (*models.Account, error) {
	var out models.Account
	if err := c.do(ctx, http.MethodPost, "/accounts", models.CreateAccount{Balance: balance}, &out); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	return &out, nil
}

func (c *Client) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	var out models.Account
	if err := c.do(ctx, http.MethodGet, "/accounts/"+accountID, nil, &out); err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &out, nil
}

func (c *Client) IssueCard(ctx context.Context, accountID string, pin int) (*IssuedCard, error) {
	var out IssuedCard
	if err := c.do(ctx, http.MethodPost, "/accounts/"+accountID+"/cards", models.IssueCard{PIN: pin}, &out); err != nil {
		return nil, fmt.Errorf("issue card: %w", err)
	}
	return &out, nil
}

func (c *Client) BlockCard(ctx context.Context, cardID string) error {
	if err := c.do(ctx, http.MethodPost, "/cards/"+cardID+"/block", nil, nil); err != nil {
		return fmt.Errorf("block card: %w", err)
	}
	return nil
}

func (c *Client) UnblockCard(ctx context.Context, cardID string) error {
	if err := c.do(ctx, http.MethodPost, "/cards/"+cardID+"/unblock", nil, nil); err != nil {
		return fmt.Errorf("unblock card: %w", err)
	}
	return nil
}

func (c *Client) OpenTerminal(ctx context.Context, reserve decimal.Decimal) (string, error) {
	var out models.TerminalInfo
	if err := c.do(ctx, http.MethodPost, "/terminals", models.OpenTerminal{Reserve: reserve}, &out); err != nil {
		return "", fmt.Errorf("open terminal: %w", err)
	}
	return out.ID, nil
}

// InsertCard reports whether the terminal accepted the card.
func (c *Client) InsertCard(ctx context.Context, terminalID, pan string, pin int) (bool, error) {
	var out models.SessionResult
	if err := c.do(ctx, http.MethodPost, "/terminals/"+terminalID+"/session", models.InsertCard{PAN: pan, PIN: pin}, &out); err != nil {
		return false, fmt.Errorf("insert card: %w", err)
	}
	return out.Accepted, nil
}

func (c *Client) Reserve(ctx context.Context, terminalID string) (decimal.Decimal, error) {
	var out models.Reserve
	if err := c.do(ctx, http.MethodGet, "/terminals/"+terminalID+"/reserve", nil, &out); err != nil {
		return decimal.Zero, fmt.Errorf("reserve: %w", err)
	}
	return out.Reserve, nil
}

func (c *Client) Balance(ctx context.Context, terminalID string) (decimal.Decimal, error) {
	var out models.Balance
	if err := c.do(ctx, http.MethodGet, "/terminals/"+terminalID+"/balance", nil, &out); err != nil {
		return decimal.Zero, fmt.Errorf("balance: %w", err)
	}
	return out.Balance, nil
}

func (c *Client) Withdraw(ctx context.Context, terminalID string, amount decimal.Decimal) (decimal.Decimal, error) {
	var out models.Balance
	if err := c.do(ctx, http.MethodPost, "/terminals/"+terminalID+"/withdrawals", models.Withdrawal{Amount: amount}, &out); err != nil {
		return decimal.Zero, fmt.Errorf("withdraw: %w", err)
	}
	return out.Balance, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.Base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(resp.Body)
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
