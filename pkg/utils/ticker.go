// Package utils provides ticker and time helpers shared by tickerpulse packages.
package utils

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidTicker is returned when a symbol cannot be used in a feed or
// quote lookup.
var ErrInvalidTicker = errors.New("invalid ticker symbol")

// Common company-name aliases typed by users instead of the listed symbol.
var tickerAliases = map[string]string{
	"APPLE":     "AAPL",
	"MICROSOFT": "MSFT",
	"GOOGLE":    "GOOGL",
	"ALPHABET":  "GOOGL",
	"AMAZON":    "AMZN",
	"TESLA":     "TSLA",
	"FACEBOOK":  "META",
	"NVIDIA":    "NVDA",
	"NETFLIX":   "NFLX",
	"BERKSHIRE": "BRK-B",
	"BRK.B":     "BRK-B",
}

// Index names mapped to their Yahoo Finance symbols.
var indexTickers = map[string]string{
	"SP500":     "^GSPC",
	"S&P500":    "^GSPC",
	"S&P 500":   "^GSPC",
	"NASDAQ":    "^IXIC",
	"DOW":       "^DJI",
	"DOW JONES": "^DJI",
	"RUSSELL":   "^RUT",
	"VIX":       "^VIX",
}

var tickerPattern = regexp.MustCompile(`^[A-Z0-9^][A-Z0-9.\-=^]{0,14}$`)

// NormalizeTicker normalizes user input to the canonical listed symbol.
// It handles aliases, uppercasing, a leading "$" and whitespace.
func NormalizeTicker(ticker string) string {
	ticker = strings.TrimSpace(strings.ToUpper(ticker))
	ticker = strings.TrimPrefix(ticker, "$")

	if idx, ok := indexTickers[ticker]; ok {
		return idx
	}
	if canonical, ok := tickerAliases[ticker]; ok {
		return canonical
	}
	return ticker
}

// ValidateTicker normalizes ticker and checks that it looks like a listed
// symbol. The normalized form is returned on success.
func ValidateTicker(ticker string) (string, error) {
	symbol := NormalizeTicker(ticker)
	if symbol == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidTicker)
	}
	if !tickerPattern.MatchString(symbol) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTicker, ticker)
	}
	return symbol, nil
}

// IsIndex reports whether the ticker resolves to a market index.
func IsIndex(ticker string) bool {
	return strings.HasPrefix(NormalizeTicker(ticker), "^")
}
