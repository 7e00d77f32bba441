package stockmarket

import (
	"errors"
	"sync"

	"github.com/cockroachdb/apd"
)

// ErrNotAvailable marks a valuation that is undefined for the stock's current
// state (zero price, zero dividend yield). It is a defined result, not a failure.
var ErrNotAvailable = errors.New("value not available")

type StockType int

const (
	StockCommon StockType = iota
	StockPreferred
)

func (t StockType) String() string {
	switch t {
	case StockCommon:
		return "Common"
	case StockPreferred:
		return "Preferred"
	}
	return "Unknown"
}

// Stock is a tradable instrument: an immutable identity with static valuation
// attributes and a mutable current price. The price moves only through trade
// executions in the stock's order book.
type Stock struct {
	Symbol        string
	Type          StockType
	LastDividend  apd.Decimal
	FixedDividend apd.Decimal // percentage, preferred stocks only
	ParValue      apd.Decimal

	price      apd.Decimal
	priceMutex sync.RWMutex
}

func NewCommonStock(symbol string, lastDividend, parValue, initialPrice apd.Decimal) *Stock {
	return &Stock{
		Symbol:       symbol,
		Type:         StockCommon,
		LastDividend: lastDividend,
		ParValue:     parValue,
		price:        initialPrice,
	}
}

func NewPreferredStock(symbol string, lastDividend, fixedDividend, parValue, initialPrice apd.Decimal) *Stock {
	return &Stock{
		Symbol:        symbol,
		Type:          StockPreferred,
		LastDividend:  lastDividend,
		FixedDividend: fixedDividend,
		ParValue:      parValue,
		price:         initialPrice,
	}
}

// Get the current price.
func (s *Stock) Price() apd.Decimal {
	s.priceMutex.RLock()
	defer s.priceMutex.RUnlock()
	return s.price
}

// Set the current price.
func (s *Stock) SetPrice(price apd.Decimal) {
	s.priceMutex.Lock()
	defer s.priceMutex.Unlock()
	s.price = price
}

// DividendYield calculates the dividend yield at the current price:
// lastDividend/price for common stocks, fixedDividend*parValue/price for
// preferred ones. Returns ErrNotAvailable when the price is zero.
func (s *Stock) DividendYield() (apd.Decimal, error) {
	price := s.Price()
	if price.IsZero() {
		return apd.Decimal{}, ErrNotAvailable
	}

	var dividend apd.Decimal
	if s.Type == StockPreferred {
		if _, err := decimalCtx.Mul(&dividend, &s.FixedDividend, &s.ParValue); err != nil {
			return apd.Decimal{}, err
		}
	} else {
		dividend.Set(&s.LastDividend)
	}

	var yield apd.Decimal
	if _, err := decimalCtx.Quo(&yield, &dividend, &price); err != nil {
		return apd.Decimal{}, err
	}
	return roundToScale(&yield)
}

// PERatio calculates price/dividendYield. Returns ErrNotAvailable when the
// dividend yield itself is not available or is zero.
func (s *Stock) PERatio() (apd.Decimal, error) {
	yield, err := s.DividendYield()
	if err != nil {
		return apd.Decimal{}, err
	}
	if yield.IsZero() {
		return apd.Decimal{}, ErrNotAvailable
	}

	price := s.Price()
	var ratio apd.Decimal
	if _, err := decimalCtx.Quo(&ratio, &price, &yield); err != nil {
		return apd.Decimal{}, err
	}
	return roundToScale(&ratio)
}
