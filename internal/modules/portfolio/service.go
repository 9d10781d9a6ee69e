package portfolio

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/suwi/papertrade/internal/domain"
	"github.com/suwi/papertrade/internal/modules/ledger"
)

const historyPageSize = 20

// quoteProvider is the slice of the market data gateway the service needs
type quoteProvider interface {
	GetQuotesBulk(ctx context.Context, userID string, symbols []string) (map[string]domain.QuoteSnapshot, error)
}

// HistoryEntry is one ledger transaction enriched with the symbol's
// current price. CurrentPrice is nil when no live quote was available.
type HistoryEntry struct {
	ledger.Transaction
	CurrentPrice *decimal.Decimal `json:"current_price"`
}

// HistoryPage is one page of a user's transaction history, most recent
// first, with the running realized total over the entire history.
type HistoryPage struct {
	Entries          []HistoryEntry  `json:"entries"`
	Page             int             `json:"page"`
	PerPage          int             `json:"per_page"`
	TotalCount       int             `json:"total_count"`
	RealizedPnLTotal decimal.Decimal `json:"realized_pnl_total"`
}

// Service exposes portfolio reads. Every read replays the ledger; nothing
// here writes.
type Service struct {
	ledgerRepo *ledger.Repository
	quotes     quoteProvider
	log        zerolog.Logger
}

// NewService creates a portfolio service
func NewService(ledgerRepo *ledger.Repository, quotes quoteProvider, log zerolog.Logger) *Service {
	return &Service{
		ledgerRepo: ledgerRepo,
		quotes:     quotes,
		log:        log.With().Str("service", "portfolio").Logger(),
	}
}

// GetPositions replays the user's ledger and enriches the resulting
// positions with live prices. Symbols without a live quote keep nil market
// fields and are excluded from the totals; PartialData reports it.
func (s *Service) GetPositions(ctx context.Context, userID string) (domain.PortfolioSummary, error) {
	transactions, err := s.ledgerRepo.ListForUser(userID)
	if err != nil {
		return domain.PortfolioSummary{}, err
	}

	positions := Replay(transactions)
	summary := domain.PortfolioSummary{
		Positions:          positions,
		TotalMarketValue:   decimal.Zero,
		TotalUnrealizedPnL: decimal.Zero,
	}
	if len(positions) == 0 {
		return summary, nil
	}

	symbols := make([]string, len(positions))
	for i, p := range positions {
		symbols[i] = p.Symbol
	}

	snapshots, err := s.quotes.GetQuotesBulk(ctx, userID, symbols)
	if err != nil {
		// Degrade to a priceless view rather than failing the read
		s.log.Warn().Err(err).Str("user_id", userID).Msg("Bulk quote fetch failed, returning unpriced positions")
		summary.PartialData = true
		return summary, nil
	}

	for i := range summary.Positions {
		p := &summary.Positions[i]
		snapshot, ok := snapshots[p.Symbol]
		if !ok {
			summary.PartialData = true
			continue
		}

		price := decimal.NewFromFloat(snapshot.LastPrice)
		value := price.Mul(p.Quantity)
		pnl := value.Sub(p.AverageCost.Mul(p.Quantity))

		p.MarketPrice = &price
		p.MarketValue = &value
		p.UnrealizedPnL = &pnl
		if p.DisplayName == "" {
			p.DisplayName = snapshot.DisplayName
		}

		summary.TotalMarketValue = summary.TotalMarketValue.Add(value)
		summary.TotalUnrealizedPnL = summary.TotalUnrealizedPnL.Add(pnl)
	}

	return summary, nil
}

// HeldQuantity returns the user's replayed open quantity for one symbol
func (s *Service) HeldQuantity(userID, symbol string) (decimal.Decimal, error) {
	transactions, err := s.ledgerRepo.ListForUser(userID)
	if err != nil {
		return decimal.Zero, err
	}
	return HeldQuantity(transactions, symbol), nil
}

// GetTransactionHistory returns one page of the user's history, newest
// first, each row enriched with the symbol's current price, plus the
// realized total over the whole history.
func (s *Service) GetTransactionHistory(ctx context.Context, userID string, page int) (HistoryPage, error) {
	transactions, err := s.ledgerRepo.ListForUserPage(userID, page, historyPageSize)
	if err != nil {
		return HistoryPage{}, err
	}

	count, err := s.ledgerRepo.CountForUser(userID)
	if err != nil {
		return HistoryPage{}, err
	}

	result := HistoryPage{
		Entries:          make([]HistoryEntry, 0, len(transactions)),
		Page:             page,
		PerPage:          historyPageSize,
		TotalCount:       count,
		RealizedPnLTotal: decimal.Zero,
	}
	if result.Page < 1 {
		result.Page = 1
	}

	all, err := s.ledgerRepo.ListForUser(userID)
	if err != nil {
		return HistoryPage{}, err
	}
	for _, t := range all {
		if t.RealizedPnL != nil {
			result.RealizedPnLTotal = result.RealizedPnLTotal.Add(*t.RealizedPnL)
		}
	}

	seen := make(map[string]struct{}, len(transactions))
	symbols := make([]string, 0, len(transactions))
	for _, t := range transactions {
		if _, ok := seen[t.Symbol]; ok {
			continue
		}
		seen[t.Symbol] = struct{}{}
		symbols = append(symbols, t.Symbol)
	}

	snapshots := map[string]domain.QuoteSnapshot{}
	if len(symbols) > 0 {
		snapshots, err = s.quotes.GetQuotesBulk(ctx, userID, symbols)
		if err != nil {
			s.log.Warn().Err(err).Str("user_id", userID).Msg("Bulk quote fetch failed, history returned without prices")
			snapshots = map[string]domain.QuoteSnapshot{}
		}
	}

	for _, t := range transactions {
		entry := HistoryEntry{Transaction: t}
		if snapshot, ok := snapshots[t.Symbol]; ok {
			price := decimal.NewFromFloat(snapshot.LastPrice)
			entry.CurrentPrice = &price
		}
		result.Entries = append(result.Entries, entry)
	}

	return result, nil
}
