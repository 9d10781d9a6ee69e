package trading

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/suwi/papertrade/internal/database"
	"github.com/suwi/papertrade/internal/domain"
	"github.com/suwi/papertrade/internal/modules/accounts"
	"github.com/suwi/papertrade/internal/modules/ledger"
	"github.com/suwi/papertrade/internal/modules/portfolio"
)

// quoteProvider is the slice of the market data gateway the service needs
type quoteProvider interface {
	GetQuote(ctx context.Context, userID, symbol string) (domain.QuoteSnapshot, error)
}

// Service executes trades and cash operations. All writes for one user are
// serialized by a per-user mutex, and each trade commits as a single SQLite
// transaction spanning the validation reads, the ledger append and the
// balance update. There is no separate rollback path: validation happens
// strictly before any write.
type Service struct {
	ledgerDB     *database.DB
	ledgerRepo   *ledger.Repository
	accountsRepo *accounts.Repository
	quotes       quoteProvider
	validator    *Validator
	log          zerolog.Logger

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

// NewService creates a trading service
func NewService(ledgerDB *database.DB, ledgerRepo *ledger.Repository, accountsRepo *accounts.Repository, quotes quoteProvider, log zerolog.Logger) *Service {
	return &Service{
		ledgerDB:     ledgerDB,
		ledgerRepo:   ledgerRepo,
		accountsRepo: accountsRepo,
		quotes:       quotes,
		validator:    NewValidator(),
		log:          log.With().Str("service", "trading").Logger(),
		userLocks:    make(map[string]*sync.Mutex),
	}
}

// lockUser returns the mutex serializing writes for one user
func (s *Service) lockUser(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.userLocks[userID] = lock
	}
	return lock
}

// ExecuteBuy buys quantity of symbol at the live market price.
// Fails closed with ErrQuoteUnavailable when no live quote can be obtained;
// there is no stale-price fallback on the execution path.
func (s *Service) ExecuteBuy(ctx context.Context, userID, symbol string, quantity decimal.Decimal, remarks string) (ledger.Transaction, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	snapshot, err := s.quotes.GetQuote(ctx, userID, symbol)
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("buy rejected for %s: %w", symbol, err)
	}
	price := decimal.NewFromFloat(snapshot.LastPrice)

	lock := s.lockUser(userID)
	lock.Lock()
	defer lock.Unlock()

	var executed ledger.Transaction
	err = database.WithTransaction(s.ledgerDB.Conn(), func(tx *sql.Tx) error {
		balance, err := s.accountsRepo.GetBalanceTx(tx, userID)
		if err != nil {
			return err
		}

		if err := s.validator.ValidateBuy(balance, quantity, price); err != nil {
			return err
		}

		total := quantity.Mul(price)
		executed = ledger.Transaction{
			UserID:         userID,
			Symbol:         symbol,
			DisplayName:    snapshot.DisplayName,
			Side:           domain.TradeSideBuy,
			Quantity:       quantity,
			ExecutionPrice: price,
			TotalValue:     total,
			Remarks:        remarks,
		}

		id, err := s.ledgerRepo.AppendTx(tx, executed)
		if err != nil {
			return err
		}
		executed.ID = id

		return s.accountsRepo.SetBalanceTx(tx, userID, balance.Sub(total))
	})
	if err != nil {
		return ledger.Transaction{}, err
	}

	s.log.Info().
		Str("user_id", userID).
		Str("symbol", symbol).
		Str("quantity", quantity.String()).
		Str("price", price.String()).
		Msg("Buy executed")

	return executed, nil
}

// ExecuteSell sells quantity of symbol at the live market price. Realized
// P&L is computed against the pre-sale average cost and fixed on the
// transaction at creation time.
func (s *Service) ExecuteSell(ctx context.Context, userID, symbol string, quantity decimal.Decimal, remarks string) (ledger.Transaction, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	snapshot, err := s.quotes.GetQuote(ctx, userID, symbol)
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("sell rejected for %s: %w", symbol, err)
	}
	price := decimal.NewFromFloat(snapshot.LastPrice)

	lock := s.lockUser(userID)
	lock.Lock()
	defer lock.Unlock()

	var executed ledger.Transaction
	err = database.WithTransaction(s.ledgerDB.Conn(), func(tx *sql.Tx) error {
		balance, err := s.accountsRepo.GetBalanceTx(tx, userID)
		if err != nil {
			return err
		}

		history, err := s.ledgerRepo.ListForUserTx(tx, userID)
		if err != nil {
			return err
		}

		held := portfolio.HeldQuantity(history, symbol)
		if err := s.validator.ValidateSell(held, quantity); err != nil {
			return err
		}

		averageCost, ok := portfolio.AverageCost(history, symbol)
		if !ok {
			return fmt.Errorf("%w: want %s, hold 0", domain.ErrInsufficientQuantity, quantity.String())
		}
		realized := price.Sub(averageCost).Mul(quantity)

		total := quantity.Mul(price)
		executed = ledger.Transaction{
			UserID:         userID,
			Symbol:         symbol,
			DisplayName:    snapshot.DisplayName,
			Side:           domain.TradeSideSell,
			Quantity:       quantity,
			ExecutionPrice: price,
			TotalValue:     total,
			RealizedPnL:    &realized,
			Remarks:        remarks,
		}

		id, err := s.ledgerRepo.AppendTx(tx, executed)
		if err != nil {
			return err
		}
		executed.ID = id

		return s.accountsRepo.SetBalanceTx(tx, userID, balance.Add(total))
	})
	if err != nil {
		return ledger.Transaction{}, err
	}

	s.log.Info().
		Str("user_id", userID).
		Str("symbol", symbol).
		Str("quantity", quantity.String()).
		Str("price", price.String()).
		Str("realized_pnl", executed.RealizedPnL.String()).
		Msg("Sell executed")

	return executed, nil
}

// Deposit credits cash to the user's account, creating it when missing
func (s *Service) Deposit(userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, domain.NewValidationError("amount", "must be positive")
	}

	lock := s.lockUser(userID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.accountsRepo.Ensure(userID, decimal.Zero); err != nil {
		return decimal.Zero, err
	}

	var newBalance decimal.Decimal
	err := database.WithTransaction(s.ledgerDB.Conn(), func(tx *sql.Tx) error {
		balance, err := s.accountsRepo.GetBalanceTx(tx, userID)
		if err != nil {
			return err
		}
		newBalance = balance.Add(amount)
		return s.accountsRepo.SetBalanceTx(tx, userID, newBalance)
	})
	if err != nil {
		return decimal.Zero, err
	}

	s.log.Info().Str("user_id", userID).Str("amount", amount.String()).Msg("Deposit completed")
	return newBalance, nil
}

// Withdraw debits cash from the user's account
func (s *Service) Withdraw(userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, domain.NewValidationError("amount", "must be positive")
	}

	lock := s.lockUser(userID)
	lock.Lock()
	defer lock.Unlock()

	var newBalance decimal.Decimal
	err := database.WithTransaction(s.ledgerDB.Conn(), func(tx *sql.Tx) error {
		balance, err := s.accountsRepo.GetBalanceTx(tx, userID)
		if err != nil {
			return err
		}
		if amount.GreaterThan(balance) {
			return fmt.Errorf("%w: want %s, have %s", domain.ErrInsufficientFunds, amount.String(), balance.String())
		}
		newBalance = balance.Sub(amount)
		return s.accountsRepo.SetBalanceTx(tx, userID, newBalance)
	})
	if err != nil {
		return decimal.Zero, err
	}

	s.log.Info().Str("user_id", userID).Str("amount", amount.String()).Msg("Withdrawal completed")
	return newBalance, nil
}

// GetBalance returns the user's current cash balance
func (s *Service) GetBalance(userID string) (decimal.Decimal, error) {
	return s.accountsRepo.GetBalance(userID)
}
