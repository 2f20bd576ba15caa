package billstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/flateze/flateze/internal/model"
)

// NewPostgresPool creates and verifies a pgxpool connection pool.
func NewPostgresPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return pool, nil
}

// PostgresStore stores bills in the bills table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an open pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const billColumns = `id::text, flat_id, company_name, bill_type, amount::text, due_date,
	bill_date, COALESCE(reference_id, ''), email_subject, email_body, created_at`

func (s *PostgresStore) FindDuplicate(ctx context.Context, key model.DedupeKey) (*model.Bill, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+billColumns+`
		 FROM bills
		 WHERE flat_id = $1 AND company_name = $2 AND amount = $3::numeric AND bill_date = $4
		 LIMIT 1`,
		key.FlatID, key.Company, key.Amount.StringFixed(2), key.BillDate.UTC(),
	)
	b, err := scanBill(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding duplicate %s: %w", key, err)
	}
	return b, nil
}

// CreateBill inserts bill. A conflicting dedupe key inserts nothing and
// returns ErrDuplicate.
func (s *PostgresStore) CreateBill(ctx context.Context, bill model.Bill) (*model.Bill, error) {
	var ref *string
	if bill.ReferenceID != "" {
		ref = &bill.ReferenceID
	}
	var due *time.Time
	if bill.DueDate != nil {
		d := bill.DueDate.UTC()
		due = &d
	}

	row := s.pool.QueryRow(ctx,
		`INSERT INTO bills (flat_id, company_name, bill_type, amount, due_date, bill_date,
		                    reference_id, email_subject, email_body)
		 VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9)
		 ON CONFLICT ON CONSTRAINT bills_dedupe_key DO NOTHING
		 RETURNING `+billColumns,
		bill.FlatID, bill.Company, string(bill.Type), bill.Amount.StringFixed(2), due,
		bill.BillDate.UTC(), ref, bill.Subject, bill.Body,
	)
	created, err := scanBill(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("inserting bill: %w", err)
	}
	return created, nil
}

func scanBill(row pgx.Row) (*model.Bill, error) {
	var (
		b        model.Bill
		billType string
		amount   string
		due      *time.Time
	)
	if err := row.Scan(&b.ID, &b.FlatID, &b.Company, &billType, &amount, &due,
		&b.BillDate, &b.ReferenceID, &b.Subject, &b.Body, &b.CreatedAt); err != nil {
		return nil, err
	}

	bt, err := model.ParseBillType(billType)
	if err != nil {
		return nil, err
	}
	b.Type = bt

	if b.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parsing amount %q: %w", amount, err)
	}
	if due != nil {
		d := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
		b.DueDate = &d
	}
	return &b, nil
}
