package billstore

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/flateze/flateze/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleBill() model.Bill {
	due := time.Date(2024, 9, 15, 0, 0, 0, 0, time.UTC)
	return model.Bill{
		FlatID:      "flat-1",
		Company:     "Mercury Energy",
		Type:        model.BillTypeElectricity,
		Amount:      dec("145.50"),
		DueDate:     &due,
		BillDate:    time.Date(2024, 8, 19, 21, 30, 0, 0, time.UTC),
		ReferenceID: "ME-123456",
		Subject:     "Your Mercury Energy Bill",
		Body:        "Amount: $145.50\nDue: 15/09/2024",
	}
}
