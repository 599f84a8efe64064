package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/solhist/solhist/service/history"
)

// Store provides database operations for exported transaction records.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store with the given database connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Record is a persisted transaction record.
type Record struct {
	ID               int64
	WalletAddress    string
	Category         string
	Date             string
	TxHash           string
	TxSrc            string
	TxDest           string
	SentAmount       *float64
	SentCurrency     *string
	ReceivedAmount   *float64
	ReceivedCurrency *string
	FeeAmount        float64
	FeeCurrency      string
	CreatedAt        time.Time
}

const createRecordQuery = `
INSERT INTO records (
	wallet_address, category, date, tx_hash, tx_src, tx_dest,
	sent_amount, sent_currency, received_amount, received_currency,
	fee_amount, fee_currency
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (wallet_address, tx_hash) DO UPDATE SET
	category = EXCLUDED.category,
	sent_amount = EXCLUDED.sent_amount,
	sent_currency = EXCLUDED.sent_currency,
	received_amount = EXCLUDED.received_amount,
	received_currency = EXCLUDED.received_currency
RETURNING id, created_at`

// StoreRecord persists a single transaction record for a wallet. Re-running
// an export upserts on (wallet_address, tx_hash) so repeated runs stay
// idempotent.
func (s *Store) StoreRecord(ctx context.Context, wallet string, category history.Category, record *history.TransactionRecord) error {
	var id int64
	var createdAt time.Time
	err := s.pool.QueryRow(ctx, createRecordQuery,
		wallet,
		string(category),
		record.Date,
		record.TxHash,
		record.TxSrc,
		record.TxDest,
		record.SentAmount,
		record.SentCurrency,
		record.ReceivedAmount,
		record.ReceivedCurrency,
		record.FeeAmount,
		record.FeeCurrency,
	).Scan(&id, &createdAt)
	if err != nil {
		return fmt.Errorf("failed to store record %s: %w", record.TxHash, err)
	}
	return nil
}

const listRecordsQuery = `
SELECT id, wallet_address, category, date, tx_hash, tx_src, tx_dest,
	sent_amount, sent_currency, received_amount, received_currency,
	fee_amount, fee_currency, created_at
FROM records
WHERE wallet_address = $1
ORDER BY date DESC
LIMIT $2 OFFSET $3`

// ListRecordsByWallet retrieves persisted records for a wallet, most recent
// first.
func (s *Store) ListRecordsByWallet(ctx context.Context, wallet string, limit, offset int32) ([]*Record, error) {
	rows, err := s.pool.Query(ctx, listRecordsQuery, wallet, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(
			&r.ID, &r.WalletAddress, &r.Category, &r.Date, &r.TxHash,
			&r.TxSrc, &r.TxDest,
			&r.SentAmount, &r.SentCurrency,
			&r.ReceivedAmount, &r.ReceivedCurrency,
			&r.FeeAmount, &r.FeeCurrency, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

const getRecordQuery = `
SELECT id, wallet_address, category, date, tx_hash, tx_src, tx_dest,
	sent_amount, sent_currency, received_amount, received_currency,
	fee_amount, fee_currency, created_at
FROM records
WHERE wallet_address = $1 AND tx_hash = $2`

// GetRecord retrieves a single record by wallet and transaction hash.
func (s *Store) GetRecord(ctx context.Context, wallet, txHash string) (*Record, error) {
	var r Record
	err := s.pool.QueryRow(ctx, getRecordQuery, wallet, txHash).Scan(
		&r.ID, &r.WalletAddress, &r.Category, &r.Date, &r.TxHash,
		&r.TxSrc, &r.TxDest,
		&r.SentAmount, &r.SentCurrency,
		&r.ReceivedAmount, &r.ReceivedCurrency,
		&r.FeeAmount, &r.FeeCurrency, &r.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("record not found: %s", txHash)
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return &r, nil
}

// Schema is the table definition backing the store. Applied out of band;
// kept here so the expected shape is visible next to the queries.
const Schema = `
CREATE TABLE IF NOT EXISTS records (
	id BIGSERIAL PRIMARY KEY,
	wallet_address TEXT NOT NULL,
	category TEXT NOT NULL,
	date TEXT NOT NULL,
	tx_hash TEXT NOT NULL,
	tx_src TEXT NOT NULL,
	tx_dest TEXT NOT NULL,
	sent_amount DOUBLE PRECISION,
	sent_currency TEXT,
	received_amount DOUBLE PRECISION,
	received_currency TEXT,
	fee_amount DOUBLE PRECISION NOT NULL,
	fee_currency TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (wallet_address, tx_hash)
);
CREATE INDEX IF NOT EXISTS idx_records_wallet ON records (wallet_address, date DESC);
`

// EnsureSchema creates the records table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}
