package catalog

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Money is an amount in the smallest currency unit.
type Money int64

// Decimal returns the amount as an exact decimal in smallest units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.NewFromInt(int64(m))
}

// ParseMoney reads an amount in smallest units. Thousands separators are accepted,
// fractional values are rejected.
func ParseMoney(raw string) (Money, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if cleaned == "" {
		return 0, fmt.Errorf("catalog: empty amount")
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, fmt.Errorf("catalog: parse amount %q: %w", raw, err)
	}
	if !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("catalog: amount %q has a fractional part", raw)
	}
	if d.GreaterThan(maxMoney) || d.LessThan(minMoney) {
		return 0, fmt.Errorf("catalog: amount %q out of range", raw)
	}
	return Money(d.IntPart()), nil
}

var (
	maxMoney = decimal.NewFromInt(math.MaxInt64)
	minMoney = decimal.NewFromInt(math.MinInt64)
)

// MoneyFormatter renders amounts for humans in a given currency and locale.
type MoneyFormatter struct {
	unit    currency.Unit
	scale   int
	printer *message.Printer
}

// NewMoneyFormatter builds a formatter for an ISO 4217 code and a BCP 47 locale.
func NewMoneyFormatter(code, locale string) (*MoneyFormatter, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, fmt.Errorf("catalog: currency %q: %w", code, err)
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("catalog: locale %q: %w", locale, err)
	}
	scale, _ := currency.Cash.Rounding(unit)
	return &MoneyFormatter{unit: unit, scale: scale, printer: message.NewPrinter(tag)}, nil
}

// Major converts smallest units to the major currency unit.
func (f *MoneyFormatter) Major(m Money) decimal.Decimal {
	return decimal.New(int64(m), int32(-f.scale))
}

// Format renders the amount with the currency symbol and locale grouping.
func (f *MoneyFormatter) Format(m Money) string {
	return f.printer.Sprint(currency.Symbol(f.unit.Amount(f.Major(m).InexactFloat64())))
}

// Currency returns the ISO code of the formatter.
func (f *MoneyFormatter) Currency() string {
	return f.unit.String()
}
