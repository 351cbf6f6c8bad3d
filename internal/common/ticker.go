// Package common provides shared utilities across the application.
package common

import (
	"strings"
)

// Ticker represents a parsed exchange-qualified ticker.
// Format: EXCHANGE:CODE (e.g., "TW:2330", "NASDAQ:AAPL")
type Ticker struct {
	// Exchange is the exchange code (e.g., "TW", "TWO", "NASDAQ")
	Exchange string
	// Code is the stock/security code (e.g., "2330", "AAPL")
	Code string
	// Raw is the original ticker string
	Raw string
}

// ExchangeToSuffix maps exchange codes to EODHD API suffixes.
var ExchangeToSuffix = map[string]string{
	"TW":     ".TW",  // Taiwan Stock Exchange
	"TWSE":   ".TW",
	"TWO":    ".TWO", // Taipei Exchange (OTC)
	"TPEX":   ".TWO",
	"ASX":    ".AU",
	"NYSE":   ".US",
	"NASDAQ": ".US",
	"LSE":    ".LSE",
	"TSX":    ".TO",
	"HK":     ".HK",
}

// DefaultExchange is the exchange used when parsing tickers without an exchange prefix.
// Overridden from [market] default_exchange.
var DefaultExchange = "TW"

// SetDefaultExchange sets the default exchange for parsing tickers.
func SetDefaultExchange(exchange string) {
	if exchange != "" {
		DefaultExchange = strings.ToUpper(strings.TrimSpace(exchange))
	}
}

// ParseTicker parses an exchange-qualified ticker string.
// Supports formats:
//   - "TW:2330" -> Exchange="TW", Code="2330" (colon separator)
//   - "TWO.6488" -> Exchange="TWO", Code="6488" (dot separator, known exchange only)
//   - "2330.TW" -> Exchange="TW", Code="2330" (EODHD style suffix, known suffix only)
//   - "2330" -> Exchange=DefaultExchange, Code="2330"
func ParseTicker(ticker string) Ticker {
	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		return Ticker{}
	}

	if idx := strings.Index(ticker, ":"); idx > 0 {
		return Ticker{
			Exchange: strings.ToUpper(ticker[:idx]),
			Code:     strings.ToUpper(ticker[idx+1:]),
			Raw:      ticker,
		}
	}

	if idx := strings.Index(ticker, "."); idx > 0 {
		prefix := strings.ToUpper(ticker[:idx])
		if _, ok := ExchangeToSuffix[prefix]; ok {
			return Ticker{
				Exchange: prefix,
				Code:     strings.ToUpper(ticker[idx+1:]),
				Raw:      ticker,
			}
		}
	}

	// Codes carrying an EODHD suffix, as users copy them from quote pages
	if idx := strings.LastIndex(ticker, "."); idx > 0 && idx < len(ticker)-1 {
		suffix := strings.ToUpper(ticker[idx:])
		for exchange, s := range ExchangeToSuffix {
			if s == suffix && exchange == strings.TrimPrefix(suffix, ".") {
				return Ticker{
					Exchange: exchange,
					Code:     strings.ToUpper(ticker[:idx]),
					Raw:      ticker,
				}
			}
		}
	}

	return Ticker{
		Exchange: DefaultExchange,
		Code:     strings.ToUpper(ticker),
		Raw:      ticker,
	}
}

// String returns the full exchange-qualified ticker string.
func (t Ticker) String() string {
	if t.Exchange == "" || t.Code == "" {
		return t.Code
	}
	return t.Exchange + ":" + t.Code
}

// EODHDSymbol returns the EODHD API symbol format.
// Example: "TW:2330" -> "2330.TW"
func (t Ticker) EODHDSymbol() string {
	if t.Code == "" {
		return ""
	}
	suffix, ok := ExchangeToSuffix[t.Exchange]
	if !ok {
		suffix = "." + t.Exchange
	}
	return t.Code + suffix
}

// NormalizeID returns the collection key for a user supplied identifier.
// Keys keep the user's form (trimmed, upper-cased) so "2330" stays "2330".
func NormalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}
