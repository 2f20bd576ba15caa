package rules

import (
	"regexp"

	"github.com/flateze/flateze/internal/model"
)

// DefaultRules returns the built-in company table. Order matters: the first
// matching rule wins, and bare words such as "contact" or "gas" show up in
// plenty of unrelated mail, so the broadest patterns sit at the bottom.
func DefaultRules() []model.CompanyRule {
	return []model.CompanyRule{
		rule(`mercury energy|mercury`, "Mercury Energy", model.BillTypeElectricity),
		rule(`contact energy|contact`, "Contact Energy", model.BillTypeElectricity),
		rule(`genesis energy|genesis`, "Genesis Energy", model.BillTypeElectricity),
		rule(`meridian energy|meridian`, "Meridian Energy", model.BillTypeElectricity),
		rule(`trustpower`, "Trustpower", model.BillTypeElectricity),
		rule(`spark|telecom`, "Spark", model.BillTypeInternet),
		rule(`vodafone`, "Vodafone", model.BillTypeInternet),
		rule(`2degrees|2 degrees`, "2degrees", model.BillTypeInternet),
		rule(`watercare`, "Watercare", model.BillTypeWater),
		rule(`wellington water|wellington`, "Wellington Water", model.BillTypeWater),
		rule(`christchurch city council|ccc`, "Christchurch City Council", model.BillTypeWater),
		rule(`gas company|gas`, "Gas Company", model.BillTypeGas),
	}
}

func rule(pattern, company string, t model.BillType) model.CompanyRule {
	return model.CompanyRule{
		Pattern: regexp.MustCompile(`(?i)` + pattern),
		Company: company,
		Type:    t,
	}
}
