package atm

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"github.com/alovak/cardflow-atm/atm/models"
	"github.com/alovak/cardflow-atm/internal/cardnum"
	"github.com/jackc/pgconn"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

//go:embed schema.sql
var schema string

// Repository stores accounts and cards either in memory or in Postgres.
// The memory backend is used when db is nil.
type Repository struct {
	mu       sync.RWMutex
	accounts map[string]*models.Account
	cards    map[string]*models.Card
	// normalized PAN -> card ID
	panIndex map[string]string

	db      *sql.DB
	hashKey []byte
}

func NewRepository() *Repository {
	return &Repository{
		accounts: make(map[string]*models.Account),
		cards:    make(map[string]*models.Card),
		panIndex: make(map[string]string),
	}
}

// NewPGRepository constructs a db-backed repository. PANs are stored as
// HMAC hashes keyed by hashKey.
func NewPGRepository(db *sql.DB, hashKey []byte) *Repository {
	return &Repository{db: db, hashKey: hashKey}
}

// Migrate creates the atm schema when missing. It is a no-op in memory.
func (r *Repository) Migrate(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

func (r *Repository) CreateAccount(account *models.Account) error {
	if r.db == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		cp := *account
		r.accounts[account.ID] = &cp
		return nil
	}
	_, err := r.db.ExecContext(context.Background(), `
        INSERT INTO atm.accounts(account_id, balance) VALUES ($1,$2)
    `, account.ID, account.Balance)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *Repository) GetAccount(accountID string) (*models.Account, error) {
	if r.db == nil {
		r.mu.RLock()
		defer r.mu.RUnlock()
		account, ok := r.accounts[accountID]
		if !ok {
			return nil, ErrNotFound
		}
		cp := *account
		return &cp, nil
	}
	var account models.Account
	err := r.db.QueryRowContext(context.Background(), `
        SELECT account_id, balance FROM atm.accounts WHERE account_id=$1
    `, accountID).Scan(&account.ID, &account.Balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidText(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

// DebitAccount takes amount off the account balance. It fails with
// models.ErrInsufficientFunds rather than let the balance go negative.
func (r *Repository) DebitAccount(accountID string, amount decimal.Decimal) error {
	if r.db == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		account, ok := r.accounts[accountID]
		if !ok {
			return ErrNotFound
		}
		return account.Debit(amount)
	}
	res, err := r.db.ExecContext(context.Background(), `
        UPDATE atm.accounts
           SET balance    = balance - $2,
               updated_at = now()
         WHERE account_id=$1 AND balance >= $2
    `, accountID, amount)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		if _, err := r.GetAccount(accountID); err != nil {
			return err
		}
		return models.ErrInsufficientFunds
	}
	return nil
}

func (r *Repository) CreateCard(card *models.Card) error {
	pan := cardnum.Normalize(card.Number)
	if r.db == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		if _, ok := r.panIndex[pan]; ok {
			return fmt.Errorf("card number exists: %w", ErrConflict)
		}
		cp := *card
		cp.Number = ""
		r.cards[card.ID] = &cp
		r.panIndex[pan] = card.ID
		return nil
	}
	_, err := r.db.ExecContext(context.Background(), `
        INSERT INTO atm.cards(card_id, account_id, pan_hash, last4, expiry_yymm, pin_hash)
        VALUES ($1,$2,$3,$4,$5,$6)
    `, card.ID, card.AccountID, cardnum.Hash(pan, r.hashKey), card.Last4, card.ExpiryYYMM, card.PINHash)
	if isUniqueViolation(err) {
		return fmt.Errorf("card number exists: %w", ErrConflict)
	}
	return err
}

const cardColumns = `card_id, account_id, last4, expiry_yymm, pin_hash, blocked`

func scanCard(row *sql.Row) (*models.Card, error) {
	var c models.Card
	if err := row.Scan(&c.ID, &c.AccountID, &c.Last4, &c.ExpiryYYMM, &c.PINHash, &c.Blocked); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidText(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *Repository) GetCard(cardID string) (*models.Card, error) {
	if r.db == nil {
		r.mu.RLock()
		defer r.mu.RUnlock()
		card, ok := r.cards[cardID]
		if !ok {
			return nil, ErrNotFound
		}
		cp := *card
		return &cp, nil
	}
	return scanCard(r.db.QueryRowContext(context.Background(),
		`SELECT `+cardColumns+` FROM atm.cards WHERE card_id=$1`, cardID))
}

func (r *Repository) FindCardByNumber(pan string) (*models.Card, error) {
	pan = cardnum.Normalize(pan)
	if r.db == nil {
		r.mu.RLock()
		id, ok := r.panIndex[pan]
		r.mu.RUnlock()
		if !ok {
			return nil, ErrNotFound
		}
		return r.GetCard(id)
	}
	return scanCard(r.db.QueryRowContext(context.Background(),
		`SELECT `+cardColumns+` FROM atm.cards WHERE pan_hash=$1`, cardnum.Hash(pan, r.hashKey)))
}

// ExistsCardNumber reports whether a PAN already exists.
func (r *Repository) ExistsCardNumber(pan string) (bool, error) {
	_, err := r.FindCardByNumber(pan)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *Repository) SetCardBlocked(cardID string, blocked bool) error {
	if r.db == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		card, ok := r.cards[cardID]
		if !ok {
			return ErrNotFound
		}
		card.Blocked = blocked
		return nil
	}
	res, err := r.db.ExecContext(context.Background(),
		`UPDATE atm.cards SET blocked=$2 WHERE card_id=$1`, cardID, blocked)
	if err != nil {
		if isInvalidText(err) {
			return ErrNotFound
		}
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping returns DB readiness
func (r *Repository) Ping(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	return r.db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	return hasCode(err, "23505")
}

// isInvalidText catches malformed uuids coming from the URL.
func isInvalidText(err error) bool {
	return hasCode(err, "22P02")
}

func hasCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var pe *pq.Error
	if errors.As(err, &pe) && string(pe.Code) == code {
		return true
	}
	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) && pgerr.Code == code {
		return true
	}
	return false
}
