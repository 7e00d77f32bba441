package stockmarket

import (
	"time"

	"github.com/cockroachdb/apd"
	"github.com/google/uuid"
)

// Transaction is the immutable record of one match between a buy and a sell
// order. IDs are assigned from a strictly increasing per-book sequence, which
// keeps the completion order deterministic even within one timestamp tick.
type Transaction struct {
	ID            uint64
	Symbol        string
	Buyer, Seller uuid.UUID
	Side          OrderSide // side of the incoming order that triggered the match
	Qty           int64
	Price         apd.Decimal // the incoming order's offered price
	Timestamp     time.Time

	BuyOrderID  uint64
	SellOrderID uint64
}
