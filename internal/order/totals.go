package order

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/art-gallery/internal/apperr"
)

// ParsePrice reads catalog prices such as "KES 5,000" or "5000.50".
func ParsePrice(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz$€£ ")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero, false
	}
	return d, true
}

// verifyTotal checks the submitted total against the item prices. It is skipped
// when any price cannot be read.
func verifyTotal(items []Item, total float64) error {
	sum := decimal.Zero
	for _, it := range items {
		p, ok := ParsePrice(it.Price)
		if !ok {
			log.Warn().Str("uid", it.UID).Str("price", it.Price).Msg("service: unparseable item price, skipping total verification")
			return nil
		}
		sum = sum.Add(p)
	}

	// Clients sum prices as floats; compare at cent precision.
	if !sum.Round(2).Equal(decimal.NewFromFloat(total).Round(2)) {
		return apperr.Invalid("total", fmt.Sprintf("does not match item prices (expected %s)", sum.StringFixed(2)))
	}
	return nil
}
