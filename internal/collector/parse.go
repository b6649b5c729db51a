package collector

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseDecimal parses a provider numeric string. Only '.' is accepted as the
// decimal separator, whatever the host locale.
func ParseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty number")
	}
	if strings.Contains(s, ",") {
		return decimal.Zero, fmt.Errorf("invalid number %q", s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid number %q", s)
	}
	return d, nil
}

// ParseOptionalDecimal returns zero for an empty string.
func ParseOptionalDecimal(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	return ParseDecimal(s)
}

// ParseUnix parses a unix timestamp in seconds.
func ParseUnix(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q", s)
	}
	return n, nil
}

// NumberDecimal converts a JSON number without going through float64.
func NumberDecimal(n json.Number) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Zero, fmt.Errorf("missing number")
	}
	return ParseDecimal(n.String())
}
