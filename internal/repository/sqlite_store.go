package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/portfolio-service/internal/apperrors"
	"github.com/ndewijer/portfolio-service/internal/model"
)

// SQLiteStore keeps portfolios in the portfolio, position and "transaction"
// tables. Decimals are stored as text to keep them exact.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a SQLiteStore on a migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Load returns the portfolio of userID, or apperrors.ErrPortfolioNotFound.
func (s *SQLiteStore) Load(ctx context.Context, userID string) (*model.Portfolio, error) {
	var cash string
	var startingCash sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT cash, starting_cash FROM portfolio WHERE user_id = ?`, userID).
		Scan(&cash, &startingCash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrPortfolioNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio table: %w", err)
	}

	rec := portfolioRecord{UserID: userID}
	if rec.Cash, err = parseColumn(userID, "cash", cash); err != nil {
		return nil, err
	}
	if startingCash.Valid {
		if rec.StartingCash, err = parseColumn(userID, "starting_cash", startingCash.String); err != nil {
			return nil, err
		}
	}
	if rec.Positions, err = s.loadPositions(ctx, userID); err != nil {
		return nil, err
	}
	if rec.Transactions, err = s.loadTransactions(ctx, userID); err != nil {
		return nil, err
	}
	return rec.toModel(userID)
}

func (s *SQLiteStore) loadPositions(ctx context.Context, userID string) ([]positionRecord, error) {
	query := `
		SELECT ticker, quantity, avg_cost_basis, added_at
		FROM position
		WHERE user_id = ?
		ORDER BY seq
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query position table: %w", err)
	}
	defer rows.Close()

	positions := []positionRecord{}
	for rows.Next() {
		var rec positionRecord
		var quantity, avg string
		if err := rows.Scan(&rec.Ticker, &quantity, &avg, &rec.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan position table results: %w", err)
		}
		if rec.Quantity, err = parseColumn(userID, "position.quantity", quantity); err != nil {
			return nil, err
		}
		if rec.AvgCostBasis, err = parseColumn(userID, "position.avg_cost_basis", avg); err != nil {
			return nil, err
		}
		positions = append(positions, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating position table: %w", err)
	}
	return positions, nil
}

func (s *SQLiteStore) loadTransactions(ctx context.Context, userID string) ([]transactionRecord, error) {
	query := `
		SELECT id, ticker, type, quantity, price, fees, timestamp
		FROM "transaction"
		WHERE user_id = ?
		ORDER BY seq
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction table: %w", err)
	}
	defer rows.Close()

	transactions := []transactionRecord{}
	for rows.Next() {
		var rec transactionRecord
		var quantity, price, fees string
		if err := rows.Scan(&rec.ID, &rec.Ticker, &rec.Type, &quantity, &price, &fees, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan transaction table results: %w", err)
		}
		if rec.Quantity, err = parseColumn(userID, "transaction.quantity", quantity); err != nil {
			return nil, err
		}
		if rec.Price, err = parseColumn(userID, "transaction.price", price); err != nil {
			return nil, err
		}
		if rec.Fees, err = parseColumn(userID, "transaction.fees", fees); err != nil {
			return nil, err
		}
		transactions = append(transactions, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction table: %w", err)
	}
	return transactions, nil
}

// Save writes the whole portfolio in one SQL transaction. Positions are
// replaced; transactions are append-only and existing ids are left alone.
func (s *SQLiteStore) Save(ctx context.Context, p *model.Portfolio) error {
	rec := newRecord(p)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var startingCash sql.NullString
	if rec.StartingCash != nil {
		startingCash = sql.NullString{String: rec.StartingCash.String(), Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO portfolio (user_id, cash, starting_cash) VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			cash = excluded.cash,
			starting_cash = COALESCE(portfolio.starting_cash, excluded.starting_cash),
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
	`, p.UserID, rec.Cash.String(), startingCash)
	if err != nil {
		return fmt.Errorf("failed to upsert portfolio: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM position WHERE user_id = ?`, p.UserID); err != nil {
		return fmt.Errorf("failed to clear positions: %w", err)
	}
	for i, pos := range rec.Positions {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO position (user_id, ticker, seq, quantity, avg_cost_basis, added_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, p.UserID, pos.Ticker, i, pos.Quantity.String(), pos.AvgCostBasis.String(), pos.AddedAt)
		if err != nil {
			return fmt.Errorf("failed to insert position %s: %w", pos.Ticker, err)
		}
	}

	for i, t := range rec.Transactions {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO "transaction" (id, user_id, seq, ticker, type, quantity, price, fees, timestamp)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO NOTHING
		`, t.ID, p.UserID, i, t.Ticker, t.Type, t.Quantity.String(), t.Price.String(), t.Fees.String(), t.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to insert transaction %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit portfolio: %w", err)
	}
	return nil
}

// UserIDs lists the users with a stored portfolio, sorted.
func (s *SQLiteStore) UserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM portfolio ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio table: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio table results: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolio table: %w", err)
	}
	return ids, nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func parseColumn(userID, column, value string) (*decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: user %s: %s %q is not a number", apperrors.ErrCorruptState, userID, column, value)
	}
	return &d, nil
}
