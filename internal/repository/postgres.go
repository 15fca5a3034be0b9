package repository

import (
	"bulk-auction/internal/biddingerrors"
	model "bulk-auction/internal/models"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// PostgresRepo implements AuctionDB on PostgreSQL
type PostgresRepo struct {
	db *sql.DB
}

// NewPostgresRepo opens and pings a PostgreSQL connection
func NewPostgresRepo(connStr string) (*PostgresRepo, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgresRepo{db: db}, nil
}

// InitSchema creates the bid, bid event and settlement tables
func (r *PostgresRepo) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS bids (
		id VARCHAR(64) PRIMARY KEY,
		listing_id VARCHAR(255) NOT NULL,
		bidder_id VARCHAR(255) NOT NULL,
		price_per_unit NUMERIC(18, 4) NOT NULL,
		volume_requested NUMERIC(18, 4) NOT NULL,
		volume_mode VARCHAR(16) NOT NULL,
		status VARCHAR(16) NOT NULL,
		rank INTEGER NOT NULL DEFAULT 0,
		auto_raise_ceiling NUMERIC(18, 4),
		is_auto_bid BOOLEAN NOT NULL DEFAULT FALSE,
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_bids_open_per_bidder
		ON bids(listing_id, bidder_id) WHERE status <> 'cancelled';
	CREATE INDEX IF NOT EXISTS idx_bids_listing_id ON bids(listing_id);
	CREATE INDEX IF NOT EXISTS idx_bids_bidder_id ON bids(bidder_id);

	CREATE TABLE IF NOT EXISTS bid_events (
		id VARCHAR(64) PRIMARY KEY,
		seq BIGSERIAL,
		bid_id VARCHAR(64) NOT NULL,
		listing_id VARCHAR(255) NOT NULL,
		bidder_id VARCHAR(255) NOT NULL,
		previous_price NUMERIC(18, 4) NOT NULL,
		new_price NUMERIC(18, 4) NOT NULL,
		previous_volume NUMERIC(18, 4) NOT NULL,
		new_volume NUMERIC(18, 4) NOT NULL,
		reason VARCHAR(32) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_bid_events_bid_id ON bid_events(bid_id);

	CREATE TABLE IF NOT EXISTS settlements (
		listing_id VARCHAR(255) PRIMARY KEY,
		id VARCHAR(64) NOT NULL,
		outcome VARCHAR(16) NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		close_trigger VARCHAR(16) NOT NULL,
		winning_bid_id VARCHAR(64) NOT NULL DEFAULT '',
		winner_id VARCHAR(255) NOT NULL DEFAULT '',
		winning_price NUMERIC(18, 4) NOT NULL,
		winning_volume NUMERIC(18, 4) NOT NULL,
		total_value NUMERIC(18, 4) NOT NULL,
		currency VARCHAR(8) NOT NULL,
		lost_bid_ids TEXT[] NOT NULL,
		payment_scheduled BOOLEAN NOT NULL,
		warnings TEXT[] NOT NULL,
		closed_at TIMESTAMPTZ NOT NULL
	);
	`

	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SaveBids upserts bids in one transaction
func (r *PostgresRepo) SaveBids(ctx context.Context, bids ...model.Bid) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO bids (id, listing_id, bidder_id, price_per_unit, volume_requested, volume_mode,
			status, rank, auto_raise_ceiling, is_auto_bid, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			price_per_unit = EXCLUDED.price_per_unit,
			volume_requested = EXCLUDED.volume_requested,
			volume_mode = EXCLUDED.volume_mode,
			status = EXCLUDED.status,
			rank = EXCLUDED.rank,
			auto_raise_ceiling = EXCLUDED.auto_raise_ceiling,
			is_auto_bid = EXCLUDED.is_auto_bid,
			notes = EXCLUDED.notes,
			updated_at = EXCLUDED.updated_at
	`

	for _, bid := range bids {
		_, err := tx.ExecContext(ctx, query,
			bid.BidID,
			bid.ListingID,
			bid.BidderID,
			bid.PricePerUnit,
			bid.VolumeRequested,
			string(bid.VolumeMode),
			string(bid.Status),
			bid.Rank,
			nullDecimal(bid.AutoRaiseCeiling),
			bid.IsAutoBid,
			bid.Notes,
			bid.CreatedAt,
			bid.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert bid %s: %w", bid.BidID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bids: %w", err)
	}
	return nil
}

const bidColumns = `id, listing_id, bidder_id, price_per_unit, volume_requested, volume_mode,
	status, rank, auto_raise_ceiling, is_auto_bid, notes, created_at, updated_at`

// GetBid returns a single bid by identifier
func (r *PostgresRepo) GetBid(ctx context.Context, bidID string) (model.Bid, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+bidColumns+` FROM bids WHERE id = $1`, bidID)
	bid, err := scanBid(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Bid{}, fmt.Errorf("get bid %s: %w", bidID, biddingerrors.ErrBidNotFound)
	}
	return bid, err
}

// GetBidsByListing returns all bids of a listing in creation order
func (r *PostgresRepo) GetBidsByListing(ctx context.Context, listingID string) ([]model.Bid, error) {
	return r.queryBids(ctx, `SELECT `+bidColumns+` FROM bids WHERE listing_id = $1 ORDER BY created_at ASC, id ASC`, listingID)
}

// GetBidsByBidder returns all bids of a bidder, newest first
func (r *PostgresRepo) GetBidsByBidder(ctx context.Context, bidderID string) ([]model.Bid, error) {
	return r.queryBids(ctx, `SELECT `+bidColumns+` FROM bids WHERE bidder_id = $1 ORDER BY created_at DESC`, bidderID)
}

// FindOpenBid returns the bidder's non-cancelled bid on a listing
func (r *PostgresRepo) FindOpenBid(ctx context.Context, listingID, bidderID string) (model.Bid, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+bidColumns+` FROM bids WHERE listing_id = $1 AND bidder_id = $2 AND status <> $3`,
		listingID, bidderID, string(model.BidStatusCancelled))
	bid, err := scanBid(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Bid{}, fmt.Errorf("find bid of %s on %s: %w", bidderID, listingID, biddingerrors.ErrBidNotFound)
	}
	return bid, err
}

// AppendBidEvents inserts audit records; duplicates are ignored
func (r *PostgresRepo) AppendBidEvents(ctx context.Context, events ...model.BidEvent) error {
	query := `
		INSERT INTO bid_events (id, bid_id, listing_id, bidder_id, previous_price, new_price,
			previous_volume, new_volume, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`
	for _, ev := range events {
		_, err := r.db.ExecContext(ctx, query,
			ev.EventID,
			ev.BidID,
			ev.ListingID,
			ev.BidderID,
			ev.PreviousPrice,
			ev.NewPrice,
			ev.PreviousVolume,
			ev.NewVolume,
			string(ev.Reason),
			ev.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert bid event: %w", err)
		}
	}
	return nil
}

// GetBidEvents returns the history of a bid in append order
func (r *PostgresRepo) GetBidEvents(ctx context.Context, bidID string) ([]model.BidEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, bid_id, listing_id, bidder_id, previous_price, new_price,
			previous_volume, new_volume, reason, created_at
		FROM bid_events
		WHERE bid_id = $1
		ORDER BY seq ASC
	`, bidID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bid events: %w", err)
	}
	defer rows.Close()

	var events []model.BidEvent
	for rows.Next() {
		var ev model.BidEvent
		var reason string
		err := rows.Scan(
			&ev.EventID,
			&ev.BidID,
			&ev.ListingID,
			&ev.BidderID,
			&ev.PreviousPrice,
			&ev.NewPrice,
			&ev.PreviousVolume,
			&ev.NewVolume,
			&reason,
			&ev.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bid event: %w", err)
		}
		ev.Reason = model.BidEventReason(reason)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// SaveSettlement records a listing's settlement once
func (r *PostgresRepo) SaveSettlement(ctx context.Context, result model.SettlementResult) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO settlements (listing_id, id, outcome, reason, close_trigger, winning_bid_id, winner_id,
			winning_price, winning_volume, total_value, currency, lost_bid_ids, payment_scheduled, warnings, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (listing_id) DO NOTHING
	`,
		result.ListingID,
		result.SettlementID,
		string(result.Outcome),
		result.Reason,
		string(result.Trigger),
		result.WinningBidID,
		result.WinnerID,
		result.WinningPrice,
		result.WinningVolume,
		result.TotalValue,
		result.Currency,
		pq.Array(nonNil(result.LostBidIDs)),
		result.PaymentScheduled,
		pq.Array(nonNil(result.Warnings)),
		result.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert settlement: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("save settlement for %s: %w", result.ListingID, biddingerrors.ErrListingClosed)
	}
	return nil
}

// GetSettlement returns the recorded settlement of a listing
func (r *PostgresRepo) GetSettlement(ctx context.Context, listingID string) (model.SettlementResult, error) {
	var (
		result  model.SettlementResult
		outcome string
		trigger string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT listing_id, id, outcome, reason, close_trigger, winning_bid_id, winner_id, winning_price,
			winning_volume, total_value, currency, lost_bid_ids, payment_scheduled, warnings, closed_at
		FROM settlements
		WHERE listing_id = $1
	`, listingID).Scan(
		&result.ListingID,
		&result.SettlementID,
		&outcome,
		&result.Reason,
		&trigger,
		&result.WinningBidID,
		&result.WinnerID,
		&result.WinningPrice,
		&result.WinningVolume,
		&result.TotalValue,
		&result.Currency,
		pq.Array(&result.LostBidIDs),
		&result.PaymentScheduled,
		pq.Array(&result.Warnings),
		&result.ClosedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SettlementResult{}, fmt.Errorf("get settlement for %s: %w", listingID, biddingerrors.ErrSettlementNotFound)
	}
	if err != nil {
		return model.SettlementResult{}, fmt.Errorf("failed to query settlement: %w", err)
	}
	result.Outcome = model.SettlementOutcome(outcome)
	result.Trigger = model.CloseTrigger(trigger)
	return result, nil
}

// Close closes the database connection
func (r *PostgresRepo) Close() error {
	return r.db.Close()
}

func (r *PostgresRepo) queryBids(ctx context.Context, query string, args ...any) ([]model.Bid, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bids: %w", err)
	}
	defer rows.Close()

	bids := []model.Bid{}
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		bids = append(bids, bid)
	}
	return bids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBid(row rowScanner) (model.Bid, error) {
	var (
		bid     model.Bid
		mode    string
		status  string
		ceiling decimal.NullDecimal
	)
	err := row.Scan(
		&bid.BidID,
		&bid.ListingID,
		&bid.BidderID,
		&bid.PricePerUnit,
		&bid.VolumeRequested,
		&mode,
		&status,
		&bid.Rank,
		&ceiling,
		&bid.IsAutoBid,
		&bid.Notes,
		&bid.CreatedAt,
		&bid.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Bid{}, err
		}
		return model.Bid{}, fmt.Errorf("failed to scan bid: %w", err)
	}
	bid.VolumeMode = model.VolumeMode(mode)
	bid.Status = model.BidStatus(status)
	if ceiling.Valid {
		c := ceiling.Decimal
		bid.AutoRaiseCeiling = &c
	}
	return bid, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
