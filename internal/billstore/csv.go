package billstore

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/flateze/flateze/internal/model"
)

// Header is the CSV header for bills.csv.
const Header = "bill_id,flat_id,company_name,bill_type,amount,due_date,bill_date,reference_id,email_subject,email_body,created_at"

const (
	numFields   = 11
	dateFormat  = "2006-01-02"
	colID       = 0
	colFlat     = 1
	colCompany  = 2
	colType     = 3
	colAmount   = 4
	colDueDate  = 5
	colBillDate = 6
	colRef      = 7
	colSubject  = 8
	colBody     = 9
	colCreated  = 10
)

// ReadBills reads all bills from a bills.csv reader.
func ReadBills(r io.Reader) ([]model.Bill, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading bills CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	var bills []model.Bill
	for i, rec := range records[1:] {
		b, err := UnmarshalBill(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		bills = append(bills, b)
	}
	return bills, nil
}

// AppendBills appends bills to an existing bills.csv writer (no header).
func AppendBills(w io.Writer, bills []model.Bill) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	for i, b := range bills {
		if err := cw.Write(MarshalBill(b)); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalBill converts a Bill to a CSV row.
func MarshalBill(b model.Bill) []string {
	row := make([]string, numFields)
	row[colID] = b.ID
	row[colFlat] = b.FlatID
	row[colCompany] = b.Company
	row[colType] = string(b.Type)
	row[colAmount] = b.Amount.StringFixed(2)
	if b.DueDate != nil {
		row[colDueDate] = b.DueDate.Format(dateFormat)
	}
	row[colBillDate] = b.BillDate.UTC().Format(time.RFC3339)
	row[colRef] = b.ReferenceID
	row[colSubject] = b.Subject
	row[colBody] = b.Body
	row[colCreated] = b.CreatedAt.UTC().Format(time.RFC3339)
	return row
}

// UnmarshalBill converts a CSV row to a Bill.
func UnmarshalBill(record []string) (model.Bill, error) {
	if len(record) != numFields {
		return model.Bill{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	bt, err := model.ParseBillType(record[colType])
	if err != nil {
		return model.Bill{}, err
	}

	amount, err := decimal.NewFromString(record[colAmount])
	if err != nil {
		return model.Bill{}, fmt.Errorf("parsing amount %q: %w", record[colAmount], err)
	}

	var due *time.Time
	if s := strings.TrimSpace(record[colDueDate]); s != "" {
		d, err := time.Parse(dateFormat, s)
		if err != nil {
			return model.Bill{}, fmt.Errorf("parsing due_date %q: %w", s, err)
		}
		due = &d
	}

	billDate, err := time.Parse(time.RFC3339, record[colBillDate])
	if err != nil {
		return model.Bill{}, fmt.Errorf("parsing bill_date %q: %w", record[colBillDate], err)
	}

	created, err := time.Parse(time.RFC3339, record[colCreated])
	if err != nil {
		return model.Bill{}, fmt.Errorf("parsing created_at %q: %w", record[colCreated], err)
	}

	return model.Bill{
		ID:          record[colID],
		FlatID:      record[colFlat],
		Company:     record[colCompany],
		Type:        bt,
		Amount:      amount,
		DueDate:     due,
		BillDate:    billDate,
		ReferenceID: record[colRef],
		Subject:     record[colSubject],
		Body:        record[colBody],
		CreatedAt:   created,
	}, nil
}
