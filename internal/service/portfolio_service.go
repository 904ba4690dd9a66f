package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ndewijer/portfolio-service/internal/aggregator"
	"github.com/ndewijer/portfolio-service/internal/apperrors"
	"github.com/ndewijer/portfolio-service/internal/ledger"
	"github.com/ndewijer/portfolio-service/internal/model"
	"github.com/ndewijer/portfolio-service/internal/tracing"
	"github.com/ndewijer/portfolio-service/internal/validation"
)

// PortfolioStore persists whole portfolios keyed by user id.
// Load returns apperrors.ErrPortfolioNotFound for unknown users and
// apperrors.ErrCorruptState for records that fail validation.
type PortfolioStore interface {
	Load(ctx context.Context, userID string) (*model.Portfolio, error)
	Save(ctx context.Context, p *model.Portfolio) error
	UserIDs(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
}

// PortfolioService handles portfolio-related business logic operations.
// Trades for one user are applied one at a time: the per-user lock is held
// across load, apply and save. Different users proceed concurrently.
type PortfolioService struct {
	store        PortfolioStore
	aggregator   *aggregator.Aggregator
	startingCash decimal.Decimal
	locks        *userLocks
	now          func() time.Time
	log          zerolog.Logger
}

// NewPortfolioService creates a new PortfolioService. New users are seeded
// with startingCash.
func NewPortfolioService(
	store PortfolioStore,
	agg *aggregator.Aggregator,
	startingCash decimal.Decimal,
	log zerolog.Logger,
) *PortfolioService {
	return &PortfolioService{
		store:        store,
		aggregator:   agg,
		startingCash: startingCash,
		locks:        newUserLocks(),
		now:          func() time.Time { return time.Now().UTC() },
		log:          log.With().Str("service", "portfolio").Logger(),
	}
}

// TradeResult is the outcome of an executed buy or sell.
type TradeResult struct {
	Transaction model.Transaction
	// Portfolio is the valued portfolio after the trade.
	Portfolio *model.Portfolio
	// RealizedPL is set for sells only.
	RealizedPL decimal.NullDecimal
}

// GetPortfolio returns the valued portfolio of userID. A first-time user is
// seeded with the starting cash and persisted.
func (s *PortfolioService) GetPortfolio(ctx context.Context, userID string) (*model.Portfolio, error) {
	ctx, span := startSpan(ctx, "portfolio.get", userID)
	defer span.End()

	unlock := s.locks.lock(userID)
	p, seeded, err := s.loadOrSeed(ctx, userID)
	if err == nil && seeded {
		err = s.save(ctx, p)
	}
	unlock()
	if err != nil {
		return nil, spanError(span, err)
	}

	return s.aggregator.Value(ctx, p), nil
}

// Buy purchases shares for userID.
func (s *PortfolioService) Buy(ctx context.Context, userID string, t ledger.Trade) (TradeResult, error) {
	ctx, span := startSpan(ctx, "portfolio.buy", userID)
	defer span.End()

	t.Ticker = validation.NormalizeTicker(t.Ticker)
	span.SetAttributes(attribute.String("ticker", t.Ticker))

	var result TradeResult
	p, err := s.trade(ctx, userID, func(p *model.Portfolio) error {
		tx, err := ledger.Buy(p, t, s.now())
		result.Transaction = tx
		return err
	})
	if err != nil {
		s.log.Info().Err(err).Str("user_id", userID).Str("ticker", t.Ticker).Msg("buy rejected")
		return TradeResult{}, spanError(span, err)
	}

	s.log.Info().
		Str("user_id", userID).
		Str("ticker", t.Ticker).
		Stringer("quantity", t.Quantity).
		Stringer("price", t.Price).
		Str("transaction_id", result.Transaction.ID).
		Msg("buy executed")

	result.Portfolio = s.aggregator.Value(ctx, p)
	return result, nil
}

// Sell sells shares held by userID and reports the realized P&L.
func (s *PortfolioService) Sell(ctx context.Context, userID string, t ledger.Trade) (TradeResult, error) {
	ctx, span := startSpan(ctx, "portfolio.sell", userID)
	defer span.End()

	t.Ticker = validation.NormalizeTicker(t.Ticker)
	span.SetAttributes(attribute.String("ticker", t.Ticker))

	var result TradeResult
	p, err := s.trade(ctx, userID, func(p *model.Portfolio) error {
		sold, err := ledger.Sell(p, t, s.now())
		result.Transaction = sold.Transaction
		result.RealizedPL = decimal.NewNullDecimal(sold.RealizedPL)
		return err
	})
	if err != nil {
		s.log.Info().Err(err).Str("user_id", userID).Str("ticker", t.Ticker).Msg("sell rejected")
		return TradeResult{}, spanError(span, err)
	}

	s.log.Info().
		Str("user_id", userID).
		Str("ticker", t.Ticker).
		Stringer("quantity", t.Quantity).
		Stringer("price", t.Price).
		Stringer("realized_pl", result.RealizedPL.Decimal).
		Str("transaction_id", result.Transaction.ID).
		Msg("sell executed")

	result.Portfolio = s.aggregator.Value(ctx, p)
	return result, nil
}

// Transactions returns the transaction log of userID, oldest first.
// Unknown users get an empty log; nothing is persisted.
func (s *PortfolioService) Transactions(ctx context.Context, userID string) ([]model.Transaction, error) {
	ctx, span := startSpan(ctx, "portfolio.transactions", userID)
	defer span.End()

	p, _, err := s.loadOrSeed(ctx, userID)
	if err != nil {
		return nil, spanError(span, err)
	}
	return ledger.List(p), nil
}

// Performance returns the performance report of userID.
// Unknown users get the report of a fresh portfolio; nothing is persisted.
func (s *PortfolioService) Performance(ctx context.Context, userID string) (model.Performance, error) {
	ctx, span := startSpan(ctx, "portfolio.performance", userID)
	defer span.End()

	p, _, err := s.loadOrSeed(ctx, userID)
	if err != nil {
		return model.Performance{}, spanError(span, err)
	}
	return s.aggregator.Performance(ctx, p), nil
}

// HeldTickers returns every ticker held by any user, sorted and deduplicated.
// Users whose records cannot be read are skipped.
func (s *PortfolioService) HeldTickers(ctx context.Context) ([]string, error) {
	userIDs, err := s.store.UserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	var tickers []string
	for _, userID := range userIDs {
		p, err := s.store.Load(ctx, userID)
		if err != nil {
			s.log.Warn().Err(err).Str("user_id", userID).Msg("skipping unreadable portfolio")
			continue
		}
		for _, pos := range p.Positions {
			tickers = append(tickers, pos.Ticker)
		}
	}

	slices.Sort(tickers)
	return slices.Compact(tickers), nil
}

// trade runs apply against a copy of the user's portfolio under the user
// lock and persists the copy when apply succeeds. The stored portfolio is
// left as it was when apply or Save fails.
func (s *PortfolioService) trade(ctx context.Context, userID string, apply func(*model.Portfolio) error) (*model.Portfolio, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	current, _, err := s.loadOrSeed(ctx, userID)
	if err != nil {
		return nil, err
	}

	next := current.Clone()
	if err := apply(next); err != nil {
		return nil, err
	}

	if err := s.save(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

// loadOrSeed loads the portfolio of userID, or returns a fresh one seeded with
// the starting cash when the store has none. Records that predate the stored
// seed balance adopt the configured one, which is persisted on their next save.
func (s *PortfolioService) loadOrSeed(ctx context.Context, userID string) (*model.Portfolio, bool, error) {
	p, err := s.store.Load(ctx, userID)
	if errors.Is(err, apperrors.ErrPortfolioNotFound) {
		s.log.Debug().Str("user_id", userID).Msg("seeding new portfolio")
		p = model.NewPortfolio(userID, s.startingCash)
		p.StartingCash = decimal.NewNullDecimal(s.startingCash)
		return p, true, nil
	}
	if err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("failed to load portfolio")
		return nil, false, fmt.Errorf("failed to load portfolio: %w", err)
	}
	if !p.StartingCash.Valid {
		p.StartingCash = decimal.NewNullDecimal(s.startingCash)
	}
	return p, false, nil
}

func (s *PortfolioService) save(ctx context.Context, p *model.Portfolio) error {
	stored := p.Clone()
	stored.ClearDerived()
	if err := s.store.Save(ctx, stored); err != nil {
		s.log.Error().Err(err).Str("user_id", p.UserID).Msg("failed to save portfolio")
		return fmt.Errorf("failed to save portfolio: %w", err)
	}
	return nil
}

func startSpan(ctx context.Context, name, userID string) (context.Context, trace.Span) {
	ctx, span := tracing.StartSpan(ctx, name)
	span.SetAttributes(attribute.String("user_id", userID))
	return ctx, span
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, apperrors.Kind(err))
	return err
}
