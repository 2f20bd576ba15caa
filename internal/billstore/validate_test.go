package billstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/flateze/flateze/internal/model"
)

func TestValidate_Good(t *testing.T) {
	assert.Empty(t, Validate(sampleBill()))
	assert.NoError(t, ValidationErrors(nil))
}

func TestValidate_Violations(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(*model.Bill)
		field string
	}{
		{"empty flat", func(b *model.Bill) { b.FlatID = "" }, "flat_id"},
		{"empty company", func(b *model.Bill) { b.Company = "" }, "company"},
		{"bad type", func(b *model.Bill) { b.Type = "PHONE" }, "bill_type"},
		{"zero amount", func(b *model.Bill) { b.Amount = dec("0") }, "amount"},
		{"negative amount", func(b *model.Bill) { b.Amount = dec("-5.00") }, "amount"},
		{"at bound", func(b *model.Bill) { b.Amount = dec("10000.00") }, "amount"},
		{"three places", func(b *model.Bill) { b.Amount = dec("1.005") }, "amount"},
		{"zero date", func(b *model.Bill) { b.BillDate = time.Time{} }, "bill_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := sampleBill()
			tt.mut(&b)
			errs := Validate(b)
			if assert.Len(t, errs, 1) {
				assert.Equal(t, tt.field, errs[0].Field)
			}
			assert.ErrorContains(t, ValidationErrors(errs), tt.field)
		})
	}
}
