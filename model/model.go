package model

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DropsPerXRP is the native currency's smallest-unit scale.
const DropsPerXRP = 1_000_000

// GenerateUUIDWithSuffix generates a UUID with a given module name as a prefix.
// This is useful for creating unique identifiers with context-specific prefixes.
func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New()
	uuidStr := id.String()
	idWithSuffix := fmt.Sprintf("%s_%s", module, uuidStr)
	return idWithSuffix
}

// DropsToXRP converts a drops string (ledger native representation) to a
// decimal XRP value.
func DropsToXRP(drops string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(drops)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid drops amount %q: %w", drops, err)
	}
	return d.Div(decimal.NewFromInt(DropsPerXRP)), nil
}

// XRPToDrops converts a decimal XRP value to the drops string the ledger
// expects.
func XRPToDrops(xrp decimal.Decimal) string {
	return xrp.Mul(decimal.NewFromInt(DropsPerXRP)).Truncate(0).String()
}

// ParsePositiveAmount parses a decimal amount string and rejects zero and
// negative values.
func ParsePositiveAmount(value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", value)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount must be positive, got %q", value)
	}
	return d, nil
}
