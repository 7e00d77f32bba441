package stockmarket

import (
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/apd"
	"github.com/google/uuid"
)

const MinQty = 1

var (
	ErrInvalidQty   = errors.New("invalid quantity provided")
	ErrInvalidPrice = errors.New("invalid price provided")
)

// TransactionCallbackFunc is invoked once for every transaction a submission
// produces, after it has been recorded.
type TransactionCallbackFunc func(tx Transaction)

// Order book contains all open orders for one stock, handles matching and the
// recording of the resulting transactions.
//
// Submissions are not internally synchronized. AddBuyOrder and AddSellOrder
// read the stock price, mutate resting orders and fold the running aggregates
// as one matching pass, so callers must hold an exclusive scope per book for
// the duration of a submission.
type OrderBook struct {
	stock *Stock

	transactionBook *TransactionBook

	activeOrders map[uint64]*Order // quick order retrieval by ID
	orders       *orderContainer   // contains all orders sorted by our preferences

	orderSeq uint64 // submission sequence, doubles as order ID
	txSeq    uint64 // transaction completion sequence

	onTransaction TransactionCallbackFunc
}

// Create a new order book for a stock.
func NewOrderBook(stock *Stock, transactionBook *TransactionBook) *OrderBook {
	bidLess := makeComparator(true)
	askLess := makeComparator(false)
	return &OrderBook{
		stock:           stock,
		transactionBook: transactionBook,
		activeOrders:    make(map[uint64]*Order),
		orders:          newOrderContainer(bidLess, askLess),
	}
}

func (o *OrderBook) Stock() *Stock {
	return o.stock
}

func (o *OrderBook) TransactionBook() *TransactionBook {
	return o.transactionBook
}

// OnTransaction registers a callback observing every executed transaction.
func (o *OrderBook) OnTransaction(cb TransactionCallbackFunc) {
	o.onTransaction = cb
}

// Get all open bids ordered the same way they are matched.
func (o *OrderBook) GetBids() []*Order {
	orders := make([]*Order, 0, o.orders.Len(SideBuy))
	for iter := o.orders.Iterator(SideBuy); iter.Valid(); iter.Next() {
		orders = append(orders, o.activeOrders[iter.Key().OrderID])
	}
	return orders
}

// Get all open asks ordered the same way they are matched.
func (o *OrderBook) GetAsks() []*Order {
	orders := make([]*Order, 0, o.orders.Len(SideSell))
	for iter := o.orders.Iterator(SideSell); iter.Valid(); iter.Next() {
		orders = append(orders, o.activeOrders[iter.Key().OrderID])
	}
	return orders
}

// AddBuyOrder submits a buy order and matches it against the open sell side.
// Returns the transactions the submission produced, possibly none.
func (o *OrderBook) AddBuyOrder(qty int64, price apd.Decimal, trader uuid.UUID) ([]Transaction, error) {
	return o.add(SideBuy, qty, price, trader)
}

// AddSellOrder submits a sell order and matches it against the open buy side.
// Returns the transactions the submission produced, possibly none.
func (o *OrderBook) AddSellOrder(qty int64, price apd.Decimal, trader uuid.UUID) ([]Transaction, error) {
	return o.add(SideSell, qty, price, trader)
}

func (o *OrderBook) add(side OrderSide, qty int64, price apd.Decimal, trader uuid.UUID) ([]Transaction, error) {
	if qty < MinQty {
		return nil, ErrInvalidQty
	}
	if price.Sign() <= 0 {
		return nil, ErrInvalidPrice
	}
	priceKey, err := price.Float64() // ordering key only, exact for fixed-scale prices
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrice, err)
	}

	o.orderSeq++
	order := &Order{
		ID:        o.orderSeq,
		Symbol:    o.stock.Symbol,
		Side:      side,
		Qty:       qty,
		Price:     price,
		Timestamp: time.Now(),
		Trader:    trader,
	}
	o.orders.Add(OrderTracker{
		OrderID:   order.ID,
		Price:     priceKey,
		Timestamp: order.Timestamp.UnixNano(),
		Side:      order.Side,
	})
	o.activeOrders[order.ID] = order

	return o.matchOrder(order)
}

// matchOrder scans the opposite side in priority order until the incoming
// order is filled or the best resting price no longer crosses.
func (o *OrderBook) matchOrder(order *Order) ([]Transaction, error) {
	offers := o.orders.Asks
	if !order.IsBid() {
		offers = o.orders.Bids
	}

	var transactions []Transaction
	removeOrders := make([]uint64, 0)

	defer func() {
		for _, orderID := range removeOrders {
			o.removeFromBooks(orderID)
		}
	}()

	for iter := offers.Iterator(); iter.Valid() && !order.IsFilled(); iter.Next() {
		opposite, ok := o.activeOrders[iter.Key().OrderID]
		if !ok {
			return transactions, fmt.Errorf("tracker %d exists but active order does not", iter.Key().OrderID)
		}
		if opposite.IsFilled() { // filled but not yet swept
			removeOrders = append(removeOrders, opposite.ID)
			continue
		}

		buyOrder, sellOrder := order, opposite
		if !order.IsBid() {
			buyOrder, sellOrder = opposite, order
		}
		if buyOrder.Price.Cmp(&sellOrder.Price) < 0 {
			break // resting prices only get worse from here
		}

		qty := min(order.UnfilledQty(), opposite.UnfilledQty())
		order.FilledQty += qty
		opposite.FilledQty += qty
		if opposite.IsFilled() {
			removeOrders = append(removeOrders, opposite.ID)
		}

		o.txSeq++
		tx := Transaction{
			ID:          o.txSeq,
			Symbol:      o.stock.Symbol,
			Buyer:       buyOrder.Trader,
			Seller:      sellOrder.Trader,
			Side:        order.Side,
			Qty:         qty,
			Price:       order.Price, // price discovery follows the incoming order
			Timestamp:   time.Now(),
			BuyOrderID:  buyOrder.ID,
			SellOrderID: sellOrder.ID,
		}
		if err := o.transactionBook.Enter(tx); err != nil {
			return transactions, err
		}
		o.stock.SetPrice(order.Price)
		transactions = append(transactions, tx)

		if o.onTransaction != nil {
			o.onTransaction(tx)
		}
	}

	if order.IsFilled() {
		removeOrders = append(removeOrders, order.ID)
	}
	return transactions, nil
}

// Removes an order from books - removes it from possible matches.
func (o *OrderBook) removeFromBooks(orderID uint64) {
	o.orders.Remove(orderID)
	delete(o.activeOrders, orderID)
}
