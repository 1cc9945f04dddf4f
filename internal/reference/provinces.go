package reference

import (
	"strings"

	"github.com/smallbiznis/salestax/internal/reference/domain"
)

var canadianProvinces = []domain.Province{
	{Code: "AB", Name: "Alberta"},
	{Code: "BC", Name: "British Columbia"},
	{Code: "MB", Name: "Manitoba"},
	{Code: "NB", Name: "New Brunswick"},
	{Code: "NL", Name: "Newfoundland and Labrador"},
	{Code: "NS", Name: "Nova Scotia"},
	{Code: "NT", Name: "Northwest Territories"},
	{Code: "NU", Name: "Nunavut"},
	{Code: "ON", Name: "Ontario"},
	{Code: "PE", Name: "Prince Edward Island"},
	{Code: "QC", Name: "Quebec"},
	{Code: "SK", Name: "Saskatchewan"},
	{Code: "YT", Name: "Yukon"},
}

func CanadianProvinces() []domain.Province {
	out := make([]domain.Province, len(canadianProvinces))
	copy(out, canadianProvinces)
	return out
}

func IsCanadianProvince(code string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, p := range canadianProvinces {
		if p.Code == code {
			return true
		}
	}
	return false
}
