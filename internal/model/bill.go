package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ExtractedBill is the structured result of a successful extraction.
type ExtractedBill struct {
	Company     string
	Type        BillType
	Amount      decimal.Decimal
	DueDate     *time.Time // nil when no due date was found
	BillDate    time.Time
	ReferenceID string // empty when absent
	Subject     string
	Body        string
}

// Bill is a persisted bill belonging to a flat.
type Bill struct {
	ID          string
	FlatID      string
	Company     string
	Type        BillType
	Amount      decimal.Decimal
	DueDate     *time.Time
	BillDate    time.Time
	ReferenceID string
	Subject     string
	Body        string
	CreatedAt   time.Time
}

// NewBill builds the record to persist for an extraction. ID is left to the store.
func NewBill(flatID string, eb ExtractedBill, now time.Time) Bill {
	return Bill{
		FlatID:      flatID,
		Company:     eb.Company,
		Type:        eb.Type,
		Amount:      eb.Amount,
		DueDate:     eb.DueDate,
		BillDate:    eb.BillDate,
		ReferenceID: eb.ReferenceID,
		Subject:     eb.Subject,
		Body:        eb.Body,
		CreatedAt:   now,
	}
}

// Key returns the dedupe key of the bill.
func (b Bill) Key() DedupeKey {
	return DedupeKey{
		FlatID:   b.FlatID,
		Company:  b.Company,
		Amount:   b.Amount,
		BillDate: b.BillDate,
	}
}

// DedupeKey identifies a bill for duplicate detection within a flat.
type DedupeKey struct {
	FlatID   string
	Company  string
	Amount   decimal.Decimal
	BillDate time.Time
}

// String returns the canonical form "flat|company|amount|billdate".
// Amounts are fixed to 2 places and dates rendered in UTC, so
// equal bills always produce equal strings.
func (k DedupeKey) String() string {
	var b strings.Builder
	b.WriteString(k.FlatID)
	b.WriteByte('|')
	b.WriteString(k.Company)
	b.WriteByte('|')
	b.WriteString(k.Amount.StringFixed(2))
	b.WriteByte('|')
	b.WriteString(k.BillDate.UTC().Format(time.RFC3339))
	return b.String()
}

// Hash returns the hex sha256 of the canonical key.
func (k DedupeKey) Hash() string {
	sum := sha256.Sum256([]byte(k.String()))
	return hex.EncodeToString(sum[:])
}

// Equal reports whether two keys identify the same bill.
func (k DedupeKey) Equal(other DedupeKey) bool {
	return k.String() == other.String()
}
