package stockmarket

import (
	"errors"

	"github.com/cockroachdb/apd"
	"github.com/google/uuid"
)

var ErrUnknownStock = errors.New("unknown stock symbol")

// Trader is a registered market participant identity.
type Trader struct {
	ID   uuid.UUID
	Name string
}

// Market aggregates the registered stocks, the registered traders and one
// order book per stock. Stocks and traders are registered once during setup;
// after that only the book contents mutate.
//
// Submissions inherit the order book contract: they are not internally
// synchronized and must run under a caller-held exclusive scope.
type Market struct {
	stocks  []*Stock
	traders []Trader
	books   map[string]*OrderBook
}

func NewMarket() *Market {
	return &Market{
		books: make(map[string]*OrderBook),
	}
}

// RegisterCommonStock registers a common stock and assigns it a fresh order book.
func (m *Market) RegisterCommonStock(symbol string, lastDividend, parValue, initialPrice apd.Decimal) *Stock {
	stock := NewCommonStock(symbol, lastDividend, parValue, initialPrice)
	m.registerStock(stock)
	return stock
}

// RegisterPreferredStock registers a preferred stock and assigns it a fresh order book.
func (m *Market) RegisterPreferredStock(symbol string, lastDividend, fixedDividend, parValue, initialPrice apd.Decimal) *Stock {
	stock := NewPreferredStock(symbol, lastDividend, fixedDividend, parValue, initialPrice)
	m.registerStock(stock)
	return stock
}

func (m *Market) registerStock(stock *Stock) {
	m.stocks = append(m.stocks, stock)
	m.books[stock.Symbol] = NewOrderBook(stock, NewTransactionBook(stock.Symbol))
}

// RegisterTrader registers a trader identity and returns it.
func (m *Market) RegisterTrader(name string) Trader {
	trader := Trader{ID: uuid.New(), Name: name}
	m.traders = append(m.traders, trader)
	return trader
}

// Stocks returns the registered stocks in registration order.
func (m *Market) Stocks() []*Stock {
	return m.stocks
}

// Traders returns the registered traders in registration order.
func (m *Market) Traders() []Trader {
	return m.traders
}

// Book returns the order book of a registered stock.
func (m *Market) Book(symbol string) (*OrderBook, bool) {
	book, ok := m.books[symbol]
	return book, ok
}

// SubmitBuyOrder routes a buy order to the stock's book and returns the
// transactions the submission produced.
func (m *Market) SubmitBuyOrder(symbol string, qty int64, price apd.Decimal, trader uuid.UUID) ([]Transaction, error) {
	book, ok := m.books[symbol]
	if !ok {
		return nil, ErrUnknownStock
	}
	return book.AddBuyOrder(qty, price, trader)
}

// SubmitSellOrder routes a sell order to the stock's book and returns the
// transactions the submission produced.
func (m *Market) SubmitSellOrder(symbol string, qty int64, price apd.Decimal, trader uuid.UUID) ([]Transaction, error) {
	book, ok := m.books[symbol]
	if !ok {
		return nil, ErrUnknownStock
	}
	return book.AddSellOrder(qty, price, trader)
}

// CurrentPrice returns the stock's current price.
func (m *Market) CurrentPrice(symbol string) (apd.Decimal, error) {
	book, ok := m.books[symbol]
	if !ok {
		return apd.Decimal{}, ErrUnknownStock
	}
	return book.Stock().Price(), nil
}

// VolumeWeightedPrice returns the stock's lifetime volume-weighted price.
// Returns ErrNoTrades while the stock has no transaction history.
func (m *Market) VolumeWeightedPrice(symbol string) (apd.Decimal, error) {
	book, ok := m.books[symbol]
	if !ok {
		return apd.Decimal{}, ErrUnknownStock
	}
	return book.TransactionBook().VolumeWeightedPrice()
}

// AllShareIndex calculates the geometric mean of the volume-weighted prices of
// every stock that has traded at least once, scaled half-to-even. Returns
// ErrNoTrades when no stock has traded yet.
func (m *Market) AllShareIndex() (apd.Decimal, error) {
	product := apd.New(1, 0)
	count := int64(0)

	for _, stock := range m.stocks {
		vwap, err := m.books[stock.Symbol].TransactionBook().VolumeWeightedPrice()
		if errors.Is(err, ErrNoTrades) {
			continue
		}
		if err != nil {
			return apd.Decimal{}, err
		}
		if _, err := decimalCtx.Mul(product, product, &vwap); err != nil {
			return apd.Decimal{}, err
		}
		count++
	}
	if count == 0 {
		return apd.Decimal{}, ErrNoTrades
	}

	var n, exponent, index apd.Decimal
	n.SetInt64(count)
	if _, err := decimalCtx.Quo(&exponent, apd.New(1, 0), &n); err != nil {
		return apd.Decimal{}, err
	}
	if _, err := decimalCtx.Pow(&index, product, &exponent); err != nil {
		return apd.Decimal{}, err
	}
	return roundToScale(&index)
}
