package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	taxdomain "github.com/smallbiznis/salestax/internal/tax/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DefaultRate is one row of the bootstrap rate table.
type DefaultRate struct {
	Country      string
	State        string
	Rate         string
	Epublication bool
	Years        []int
}

// DefaultRates are national rates for jurisdictions resolved from the
// local table. US rates come from the tax API or the admin endpoint.
func DefaultRates() []DefaultRate {
	standard := map[string]string{
		"AT": "0.20", "BE": "0.21", "BG": "0.20", "CY": "0.19", "CZ": "0.21",
		"DE": "0.19", "DK": "0.25", "EE": "0.22", "ES": "0.21", "FI": "0.255",
		"FR": "0.20", "GB": "0.20", "GR": "0.24", "HR": "0.25", "HU": "0.27",
		"IE": "0.23", "IT": "0.22", "LT": "0.21", "LU": "0.17", "LV": "0.21",
		"MT": "0.18", "NL": "0.21", "PL": "0.23", "PT": "0.23", "RO": "0.19",
		"SE": "0.25", "SI": "0.22", "SK": "0.20",
		"AU": "0.10", "NO": "0.25", "CH": "0.081", "IN": "0.18", "IS": "0.24",
		"MX": "0.16", "MY": "0.08", "CO": "0.19", "PH": "0.12", "VN": "0.10",
	}
	// Every EU VAT country carries an e-publication row, at the standard
	// rate where no reduced rate applies (DK).
	epub := map[string]string{
		"AT": "0.10", "BE": "0.06", "BG": "0.09", "CY": "0.05", "CZ": "0.00",
		"DE": "0.07", "DK": "0.25", "EE": "0.09", "ES": "0.04", "FI": "0.14",
		"FR": "0.055", "GB": "0.00", "GR": "0.06", "HR": "0.05", "HU": "0.05",
		"IE": "0.09", "IT": "0.04", "LT": "0.09", "LU": "0.03", "LV": "0.05",
		"MT": "0.05", "NL": "0.09", "PL": "0.05", "PT": "0.06", "RO": "0.05",
		"SE": "0.06", "SI": "0.05", "SK": "0.05",
		"NO": "0.00", "CH": "0.026", "IS": "0.11", "MX": "0.00",
	}
	canada := map[string]string{
		"AB": "0.05", "BC": "0.12", "MB": "0.12", "NB": "0.15", "NL": "0.15",
		"NS": "0.14", "NT": "0.05", "NU": "0.05", "ON": "0.13", "PE": "0.15",
		"QC": "0.14975", "SK": "0.11", "YT": "0.05",
	}

	out := make([]DefaultRate, 0, len(standard)+len(epub)+len(canada)+2)
	for country, rate := range standard {
		out = append(out, DefaultRate{Country: country, Rate: rate})
	}
	for country, rate := range epub {
		out = append(out, DefaultRate{Country: country, Rate: rate, Epublication: true})
	}
	for province, rate := range canada {
		out = append(out, DefaultRate{Country: taxdomain.CountryCA, State: province, Rate: rate})
	}
	out = append(out,
		DefaultRate{Country: taxdomain.CountrySG, Rate: "0.08", Years: []int{2023}},
		DefaultRate{Country: taxdomain.CountrySG, Rate: "0.09", Years: []int{2024, 2025, 2026}},
	)
	return out
}

// EnsureDefaultRates inserts DefaultRates when the rate table has no live
// rows. It returns the number of rows written.
func EnsureDefaultRates(ctx context.Context, db *gorm.DB, node *snowflake.Node) (int, error) {
	if db == nil {
		return 0, errors.New("seed database handle is required")
	}
	if node == nil {
		return 0, errors.New("seed id generator is required")
	}

	var count int64
	if err := db.WithContext(ctx).Model(&taxdomain.TaxRate{}).Count(&count).Error; err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	defaults := DefaultRates()
	rows := make([]taxdomain.TaxRate, 0, len(defaults))
	for _, d := range defaults {
		rate, err := decimal.NewFromString(d.Rate)
		if err != nil {
			return 0, fmt.Errorf("seed rate %s: %w", d.Country, err)
		}
		row := taxdomain.TaxRate{
			ID:                 node.Generate(),
			Country:            d.Country,
			CombinedRate:       rate,
			IsEpublicationRate: d.Epublication,
		}
		if d.State != "" {
			state := d.State
			row.State = &state
		}
		if len(d.Years) > 0 {
			row.ApplicableYears = datatypes.JSONSlice[int](d.Years)
		}
		if err := row.Validate(); err != nil {
			return 0, fmt.Errorf("seed rate %s: %w", d.Country, err)
		}
		rows = append(rows, row)
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(rows, 100).Error
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}
