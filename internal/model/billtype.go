package model

import (
	"fmt"
	"strings"
)

// BillType classifies what a bill is for.
type BillType string

const (
	BillTypeElectricity BillType = "ELECTRICITY"
	BillTypeWater       BillType = "WATER"
	BillTypeGas         BillType = "GAS"
	BillTypeInternet    BillType = "INTERNET"
	BillTypeRent        BillType = "RENT"
	BillTypeInsurance   BillType = "INSURANCE"
	BillTypeOther       BillType = "OTHER"
)

// BillTypes lists every bill type in declaration order.
var BillTypes = []BillType{
	BillTypeElectricity,
	BillTypeWater,
	BillTypeGas,
	BillTypeInternet,
	BillTypeRent,
	BillTypeInsurance,
	BillTypeOther,
}

// Valid reports whether t is one of the known bill types.
func (t BillType) Valid() bool {
	for _, bt := range BillTypes {
		if t == bt {
			return true
		}
	}
	return false
}

// ParseBillType parses a bill type name, ignoring case and surrounding space.
func ParseBillType(s string) (BillType, error) {
	t := BillType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown bill type %q", s)
	}
	return t, nil
}
