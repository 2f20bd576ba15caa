package billstore

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flateze/flateze/internal/model"
)

func TestMarshalBill_Columns(t *testing.T) {
	b := sampleBill()
	b.ID = "abc"
	b.CreatedAt = time.Date(2024, 8, 20, 0, 0, 0, 0, time.UTC)

	row := MarshalBill(b)
	require.Len(t, row, numFields)
	assert.Equal(t, "145.50", row[colAmount])
	assert.Equal(t, "2024-09-15", row[colDueDate])
	assert.Equal(t, "2024-08-19T21:30:00Z", row[colBillDate])
	assert.Equal(t, "ELECTRICITY", row[colType])
}

func TestMarshalBill_NoDueDate(t *testing.T) {
	b := sampleBill()
	b.DueDate = nil
	assert.Empty(t, MarshalBill(b)[colDueDate])
}

func TestReadBills_MultilineBody(t *testing.T) {
	b := sampleBill()
	b.ID = "abc"
	b.CreatedAt = time.Date(2024, 8, 20, 0, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	buf.WriteString(Header + "\n")
	require.NoError(t, AppendBills(&buf, []model.Bill{b}))

	bills, err := ReadBills(&buf)
	require.NoError(t, err)
	require.Len(t, bills, 1)
	got := bills[0]
	assert.Equal(t, b.Body, got.Body)
	assert.True(t, got.Amount.Equal(b.Amount))
	require.NotNil(t, got.DueDate)
	assert.True(t, got.DueDate.Equal(*b.DueDate))
	assert.True(t, got.Key().Equal(b.Key()))
}

func TestReadBills_Empty(t *testing.T) {
	bills, err := ReadBills(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, bills)
}

func TestUnmarshalBill_Errors(t *testing.T) {
	good := MarshalBill(sampleBill())
	good[colCreated] = "2024-08-20T00:00:00Z"

	tests := []struct {
		name string
		col  int
		val  string
	}{
		{"bad type", colType, "PHONE"},
		{"bad amount", colAmount, "lots"},
		{"bad due date", colDueDate, "15/09/2024"},
		{"bad bill date", colBillDate, "yesterday"},
		{"bad created", colCreated, "now"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := append([]string(nil), good...)
			rec[tt.col] = tt.val
			_, err := UnmarshalBill(rec)
			assert.Error(t, err)
		})
	}

	_, err := UnmarshalBill(good[:3])
	assert.Error(t, err)
}
