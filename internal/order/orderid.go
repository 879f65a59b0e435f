package order

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const orderIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewOrderID returns an id shaped like ORD-1718000000000-k3j9x0a1b.
func NewOrderID(now time.Time) (string, error) {
	suffix := make([]byte, 9)
	limit := big.NewInt(int64(len(orderIDAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("failed to generate order id: %w", err)
		}
		suffix[i] = orderIDAlphabet[n.Int64()]
	}
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), suffix), nil
}
