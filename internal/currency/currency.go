// Package currency converts receipt amounts between currencies using a
// rate table that is cached on device and refreshed from a public
// provider when it goes stale.
package currency

import (
	"time"

	xcurrency "golang.org/x/text/currency"

	"github.com/receiptwise/receiptwise/internal/apperr"
)

// Rates is one cached rate table: every value is the amount of the
// target currency one unit of Base buys.
type Rates struct {
	Base      string             `json:"base"`
	Rates     map[string]float64 `json:"rates"`
	FetchedAt time.Time          `json:"fetched_at"`
}

// Stale reports whether the table is older than maxAge.
func (r *Rates) Stale(maxAge time.Duration, now time.Time) bool {
	return now.Sub(r.FetchedAt) > maxAge
}

// Normalize validates code as an ISO 4217 currency and returns its
// canonical uppercase form.
func Normalize(code string) (string, error) {
	unit, err := xcurrency.ParseISO(code)
	if err != nil {
		return "", apperr.Newf(apperr.KindValidation, "%q is not a known currency code", code)
	}

	return unit.String(), nil
}
