package atm

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alovak/cardflow-atm/atm/models"
	"github.com/alovak/cardflow-atm/internal/cardnum"
	"github.com/alovak/cardflow-atm/internal/expiry"
	"github.com/alovak/cardflow-atm/internal/pin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/slog"
)

const defaultBIN = "421234"

// Service runs a fleet of terminals on top of the card and account
// repository. Calls on one terminal are serialized; different terminals
// proceed independently.
type Service struct {
	repo   *Repository
	cfg    *Config
	pins   pin.Verifier
	expiry expiry.Policy
	logger *slog.Logger
	now    func() time.Time

	mu        sync.RWMutex
	terminals map[string]*terminalSlot
}

type terminalSlot struct {
	mu       sync.Mutex
	terminal *Terminal
}

func NewService(repo *Repository, cfg *Config, logger *slog.Logger) *Service {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	policy := expiry.DefaultPolicy()
	if len(cfg.ProductYears) > 0 {
		policy.ProductYears = cfg.ProductYears
	}
	if cfg.ExpiryTZ != "" {
		if loc, err := time.LoadLocation(cfg.ExpiryTZ); err == nil {
			policy.Location = loc
		} else {
			logger.Info("invalid ExpiryTZ; using default UTC", slog.String("tz", cfg.ExpiryTZ), slog.Any("err", err))
		}
	}

	return &Service{
		repo:      repo,
		cfg:       cfg,
		pins:      pin.NewBcrypt(cfg.PINCost),
		expiry:    policy,
		logger:    logger,
		now:       time.Now,
		terminals: make(map[string]*terminalSlot),
	}
}

func (s *Service) CreateAccount(req models.CreateAccount) (*models.Account, error) {
	if req.Balance.IsNegative() {
		return nil, fmt.Errorf("balance should be greater than or equal to zero: %w", ErrInvalidArgument)
	}

	account := &models.Account{
		ID:      uuid.New().String(),
		Balance: req.Balance,
	}

	if err := s.repo.CreateAccount(account); err != nil {
		return nil, fmt.Errorf("creating account: %w", err)
	}

	return account, nil
}

func (s *Service) GetAccount(accountID string) (*models.Account, error) {
	account, err := s.repo.GetAccount(accountID)
	if err != nil {
		return nil, fmt.Errorf("finding account: %w", err)
	}

	return account, nil
}

// IssueCard creates a card for an existing account. The returned card is
// the only place the full PAN is ever shown.
func (s *Service) IssueCard(accountID string, req models.IssueCard) (*models.Card, error) {
	if err := pin.Validate(req.PIN); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidArgument)
	}
	if _, err := s.repo.GetAccount(accountID); err != nil {
		return nil, fmt.Errorf("finding account: %w", err)
	}

	pinHash, err := s.pins.Hash(req.PIN)
	if err != nil {
		return nil, err
	}

	bin := s.cfg.CardBIN
	if err := cardnum.ValidateBIN(bin); err != nil {
		bin = defaultBIN
	}
	expYYMM := s.expiry.IssueYYMM(s.now(), s.cfg.CardProduct)

	// a concurrent insert can still take the PAN between check and insert
	for attempt := 0; attempt < 5; attempt++ {
		pan, err := cardnum.GenerateUnique(bin, cardnum.DefaultLength, 10, s.repo.ExistsCardNumber)
		if err != nil {
			return nil, fmt.Errorf("generate unique pan: %w", err)
		}
		card := &models.Card{
			ID:         uuid.New().String(),
			AccountID:  accountID,
			Number:     pan,
			Last4:      cardnum.LastN(pan, 4),
			ExpiryYYMM: expYYMM,
			PINHash:    pinHash,
		}
		err = s.repo.CreateCard(card)
		if err == nil {
			s.logger.Info("card issued", slog.String("card_id", card.ID), slog.String("pan", cardnum.Mask(pan)))
			return card, nil
		}
		if !errors.Is(err, ErrConflict) {
			return nil, fmt.Errorf("creating card: %w", err)
		}
	}

	return nil, fmt.Errorf("could not create unique card after retries")
}

func (s *Service) BlockCard(cardID string) error {
	return s.setBlocked(cardID, true)
}

func (s *Service) UnblockCard(cardID string) error {
	return s.setBlocked(cardID, false)
}

func (s *Service) setBlocked(cardID string, blocked bool) error {
	if err := s.repo.SetCardBlocked(cardID, blocked); err != nil {
		return fmt.Errorf("updating card: %w", err)
	}
	s.logger.Info("card status changed", slog.String("card_id", cardID), slog.Bool("blocked", blocked))
	return nil
}

// OpenTerminal registers a new terminal loaded with reserve.
func (s *Service) OpenTerminal(reserve decimal.Decimal) (*models.TerminalInfo, error) {
	terminal, err := NewTerminal(reserve)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()

	s.mu.Lock()
	s.terminals[id] = &terminalSlot{terminal: terminal}
	s.mu.Unlock()

	s.logger.Info("terminal opened", slog.String("terminal_id", id), slog.String("reserve", reserve.String()))

	return &models.TerminalInfo{ID: id}, nil
}

// InsertCard validates the card with the given PAN on a terminal. Unknown
// PANs are rejected like a wrong PIN.
func (s *Service) InsertCard(terminalID, pan string, pinCode int) (bool, error) {
	slot, err := s.slot(terminalID)
	if err != nil {
		return false, err
	}

	logger := s.logger.With(slog.String("terminal_id", terminalID), slog.String("pan", cardnum.Mask(pan)))

	card, err := s.repo.FindCardByNumber(pan)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			logger.Info("card rejected", slog.String("reason", "unknown card"))
			return false, nil
		}
		return false, fmt.Errorf("finding card: %w", err)
	}

	handle := &storedCard{
		id:        card.ID,
		accountID: card.AccountID,
		repo:      s.repo,
		pins:      s.pins,
		expiry:    s.expiry,
		now:       s.now,
	}

	slot.mu.Lock()
	accepted := slot.terminal.ValidateSession(handle, pinCode)
	slot.mu.Unlock()

	if !accepted {
		logger.Info("card rejected", slog.String("card_id", card.ID))
		return false, nil
	}
	logger.Info("session started", slog.String("card_id", card.ID))

	return true, nil
}

func (s *Service) Reserve(terminalID string) (decimal.Decimal, error) {
	slot, err := s.slot(terminalID)
	if err != nil {
		return decimal.Zero, err
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()

	return slot.terminal.Reserve()
}

func (s *Service) Balance(terminalID string) (decimal.Decimal, error) {
	slot, err := s.slot(terminalID)
	if err != nil {
		return decimal.Zero, err
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()

	return slot.terminal.Balance()
}

func (s *Service) Withdraw(terminalID string, amount decimal.Decimal) (decimal.Decimal, error) {
	slot, err := s.slot(terminalID)
	if err != nil {
		return decimal.Zero, err
	}

	slot.mu.Lock()
	balance, err := slot.terminal.Withdraw(amount)
	slot.mu.Unlock()

	logger := s.logger.With(slog.String("terminal_id", terminalID), slog.String("amount", amount.String()))
	if err != nil {
		logger.Info("withdrawal declined", slog.Any("err", err))
		return decimal.Zero, err
	}
	logger.Info("cash dispensed")

	return balance, nil
}

func (s *Service) slot(terminalID string) (*terminalSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slot, ok := s.terminals[terminalID]
	if !ok {
		return nil, fmt.Errorf("terminal %s: %w", terminalID, ErrNotFound)
	}

	return slot, nil
}
