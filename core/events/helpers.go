package events

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"corndex/crypto"
)

// PriceDecimals is the fixed-point precision used for prices.
const PriceDecimals = 18

func normalizeAsset(asset string) string {
	trimmed := strings.TrimSpace(asset)
	if trimmed == "" {
		return ""
	}
	return strings.ToUpper(trimmed)
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func formatAddress(addr crypto.Address) string {
	if len(addr.Bytes()) == 0 {
		return ""
	}
	return addr.String()
}

// FormatUnits renders a fixed-point integer with the given number of decimals
// as a human-readable decimal string, e.g. 1500000000000000000 with 18
// decimals becomes "1.5".
func FormatUnits(v *big.Int, decimals int32) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v, -decimals).String()
}

func priceAttrs(attrs map[string]string, price *big.Int) {
	attrs["price"] = formatAmount(price)
	attrs["priceDecimal"] = FormatUnits(price, PriceDecimals)
}
