package models

import (
	"fmt"
	"time"
)

// BTWRate is one row of the versioned Dutch VAT lookup table. Rates are
// business data: they change by law, so each carries a validity window and the
// table is append-only.
type BTWRate struct {
	ID         string     `json:"id"`
	Label      string     `json:"label"`
	Bps        int64      `json:"bps"` // basis points, 2100 = 21%
	ValidFrom  time.Time  `json:"valid_from"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`
}

const (
	BTWRateStandard = "nl-standard"
	BTWRateReduced  = "nl-reduced"
	BTWRateZero     = "nl-zero"
)

var btwRates = []BTWRate{
	{ID: BTWRateStandard, Label: "BTW hoog", Bps: 2100, ValidFrom: time.Date(2012, 10, 1, 0, 0, 0, 0, time.UTC)},
	{ID: BTWRateReduced, Label: "BTW laag", Bps: 900, ValidFrom: time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)},
	{ID: BTWRateZero, Label: "BTW nul", Bps: 0, ValidFrom: time.Date(1969, 1, 1, 0, 0, 0, 0, time.UTC)},
}

// BTWRateFor returns the rate with the given id valid at the given date
func BTWRateFor(id string, at time.Time) (*BTWRate, error) {
	for i := range btwRates {
		r := &btwRates[i]
		if r.ID != id {
			continue
		}
		if at.Before(r.ValidFrom) {
			continue
		}
		if r.ValidUntil != nil && !at.Before(*r.ValidUntil) {
			continue
		}
		return r, nil
	}
	return nil, fmt.Errorf("no BTW rate %q valid at %s", id, at.Format("2006-01-02"))
}

// BTWAmount computes tax in cents for a net amount, rounding half up
func (r *BTWRate) BTWAmount(netCents int64) int64 {
	return (netCents*r.Bps + 5000) / 10000
}
