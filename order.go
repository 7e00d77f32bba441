package stockmarket

import (
	"time"

	"github.com/cockroachdb/apd"
	"github.com/google/uuid"
)

type OrderSide int

const (
	SideBuy OrderSide = iota + 1
	SideSell
)

func (s OrderSide) String() string {
	if s == SideBuy {
		return "Buy"
	}
	return "Sell"
}

// Order is a buy or sell intent for one stock. Fill state mutates after the
// order enters a book; the fields its ordering key is derived from (price,
// timestamp, ID) never do.
type Order struct {
	ID        uint64 // book-assigned submission sequence
	Symbol    string
	Side      OrderSide
	Qty       int64
	FilledQty int64
	Price     apd.Decimal
	Timestamp time.Time
	Trader    uuid.UUID
}

func (o *Order) UnfilledQty() int64 {
	return o.Qty - o.FilledQty
}

// IsFilled reports whether the order's entire quantity has been matched.
func (o *Order) IsFilled() bool {
	return o.FilledQty >= o.Qty
}

func (o *Order) IsBid() bool {
	return o.Side == SideBuy
}

// OrderTracker is the immutable ordering key kept in the priority containers,
// separate from the mutable order record it points to. Timestamp is in
// nanoseconds; OrderID breaks exact timestamp ties.
type OrderTracker struct {
	OrderID   uint64
	Price     float64
	Timestamp int64
	Side      OrderSide
}
