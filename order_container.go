package stockmarket

import (
	"github.com/igrmk/treemap/v2"
)

// function that compares two OrderTrackers and returns true if a sorts strictly before b
type LessFunc func(a, b OrderTracker) bool

// FIFO - https://corporatefinanceinstitute.com/resources/knowledge/trading-investing/matching-orders/
// Bids order price descending, asks ascending; equal prices order by
// submission time, then by order ID so the key stays unique.
func makeComparator(priceDescending bool) LessFunc {
	return func(a, b OrderTracker) bool {
		if a.Price != b.Price {
			if priceDescending {
				return a.Price > b.Price
			}
			return a.Price < b.Price
		}
		if a.Timestamp != b.Timestamp {
			return a.Timestamp < b.Timestamp
		}
		return a.OrderID < b.OrderID
	}
}

type orderContainer struct {
	Bids, Asks *treemap.TreeMap[OrderTracker, bool]
	trackers   map[uint64]OrderTracker
}

func newOrderContainer(bidLess, askLess LessFunc) *orderContainer {
	return &orderContainer{
		Bids:     treemap.NewWithKeyCompare[OrderTracker, bool](bidLess),
		Asks:     treemap.NewWithKeyCompare[OrderTracker, bool](askLess),
		trackers: make(map[uint64]OrderTracker),
	}
}

func (o *orderContainer) Add(tracker OrderTracker) {
	if tracker.Side == SideBuy {
		o.Bids.Set(tracker, true)
	} else {
		o.Asks.Set(tracker, true)
	}
	o.trackers[tracker.OrderID] = tracker
}

func (o *orderContainer) Remove(id uint64) {
	tracker, ok := o.trackers[id]
	if !ok {
		return
	}
	delete(o.trackers, id)
	if tracker.Side == SideBuy {
		o.Bids.Del(tracker)
	} else {
		o.Asks.Del(tracker)
	}
}

func (o *orderContainer) Get(id uint64) (OrderTracker, bool) {
	t, ok := o.trackers[id]
	return t, ok
}

func (o *orderContainer) Iterator(side OrderSide) treemap.ForwardIterator[OrderTracker, bool] {
	if side == SideBuy {
		return o.Bids.Iterator()
	}
	return o.Asks.Iterator()
}

func (o *orderContainer) Len(side OrderSide) int {
	if side == SideBuy {
		return o.Bids.Len()
	}
	return o.Asks.Len()
}
