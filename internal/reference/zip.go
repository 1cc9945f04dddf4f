package reference

import (
	"strings"

	"github.com/smallbiznis/salestax/internal/reference/domain"
)

// usZipRanges is the USPS prefix allocation. Overlapping entries are
// exceptions carved out of a wider block; the narrowest match wins.
var usZipRanges = []domain.ZipRange{
	{State: "NY", Start: 501, End: 501},
	{State: "NY", Start: 544, End: 544},
	{State: "PR", Start: 600, End: 799},
	{State: "PR", Start: 900, End: 999},
	{State: "MA", Start: 1000, End: 2799},
	{State: "RI", Start: 2800, End: 2999},
	{State: "NH", Start: 3000, End: 3899},
	{State: "ME", Start: 3900, End: 4999},
	{State: "VT", Start: 5000, End: 5999},
	{State: "MA", Start: 5501, End: 5544},
	{State: "CT", Start: 6000, End: 6999},
	{State: "NY", Start: 6390, End: 6390},
	{State: "NJ", Start: 7000, End: 8999},
	{State: "NY", Start: 10000, End: 14999},
	{State: "PA", Start: 15000, End: 19699},
	{State: "DE", Start: 19700, End: 19999},
	{State: "DC", Start: 20000, End: 20099},
	{State: "VA", Start: 20100, End: 20199},
	{State: "DC", Start: 20200, End: 20599},
	{State: "MD", Start: 20600, End: 21999},
	{State: "VA", Start: 22000, End: 24699},
	{State: "WV", Start: 24700, End: 26999},
	{State: "NC", Start: 27000, End: 28999},
	{State: "SC", Start: 29000, End: 29999},
	{State: "GA", Start: 30000, End: 31999},
	{State: "FL", Start: 32000, End: 34999},
	{State: "AL", Start: 35000, End: 36999},
	{State: "TN", Start: 37000, End: 38599},
	{State: "MS", Start: 38600, End: 39799},
	{State: "GA", Start: 39800, End: 39999},
	{State: "KY", Start: 40000, End: 42799},
	{State: "OH", Start: 43000, End: 45999},
	{State: "IN", Start: 46000, End: 47999},
	{State: "MI", Start: 48000, End: 49999},
	{State: "IA", Start: 50000, End: 52899},
	{State: "WI", Start: 53000, End: 54999},
	{State: "MN", Start: 55000, End: 56799},
	{State: "DC", Start: 56900, End: 56999},
	{State: "SD", Start: 57000, End: 57799},
	{State: "ND", Start: 58000, End: 58899},
	{State: "MT", Start: 59000, End: 59999},
	{State: "IL", Start: 60000, End: 62999},
	{State: "MO", Start: 63000, End: 65899},
	{State: "KS", Start: 66000, End: 67999},
	{State: "NE", Start: 68000, End: 69399},
	{State: "LA", Start: 70000, End: 71599},
	{State: "AR", Start: 71600, End: 72999},
	{State: "OK", Start: 73000, End: 74999},
	{State: "TX", Start: 73301, End: 73301},
	{State: "TX", Start: 75000, End: 79999},
	{State: "CO", Start: 80000, End: 81699},
	{State: "WY", Start: 82000, End: 83199},
	{State: "ID", Start: 83200, End: 83899},
	{State: "WY", Start: 83414, End: 83414},
	{State: "UT", Start: 84000, End: 84799},
	{State: "AZ", Start: 85000, End: 86599},
	{State: "NM", Start: 87000, End: 88499},
	{State: "TX", Start: 88500, End: 88599},
	{State: "NV", Start: 88900, End: 89899},
	{State: "CA", Start: 90000, End: 96199},
	{State: "HI", Start: 96700, End: 96899},
	{State: "OR", Start: 97000, End: 97999},
	{State: "WA", Start: 98000, End: 99499},
	{State: "AK", Start: 99500, End: 99999},
}

// ZipTable resolves US ZIP codes to two-letter state codes.
type ZipTable struct {
	ranges []domain.ZipRange
}

func NewZipTable(ranges []domain.ZipRange) *ZipTable {
	return &ZipTable{ranges: ranges}
}

func DefaultZipTable() *ZipTable {
	return NewZipTable(usZipRanges)
}

// StateForZip accepts five-digit and ZIP+4 codes.
func (t *ZipTable) StateForZip(zip string) (string, bool) {
	value, ok := parseZip(zip)
	if !ok {
		return "", false
	}

	var best *domain.ZipRange
	for i := range t.ranges {
		r := &t.ranges[i]
		if !r.Contains(value) {
			continue
		}
		if best == nil || r.Width() < best.Width() {
			best = r
		}
	}
	if best == nil {
		return "", false
	}
	return best.State, true
}

func parseZip(zip string) (int, bool) {
	zip = strings.TrimSpace(zip)
	if head, _, found := strings.Cut(zip, "-"); found {
		zip = head
	}
	if len(zip) != 5 {
		return 0, false
	}
	value := 0
	for i := 0; i < len(zip); i++ {
		ch := zip[i]
		if ch < '0' || ch > '9' {
			return 0, false
		}
		value = value*10 + int(ch-'0')
	}
	return value, true
}
