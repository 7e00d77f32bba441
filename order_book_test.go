package stockmarket

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/cockroachdb/apd"
	"github.com/google/uuid"
)

const instrument = "TEST"

func price(coeff int64) apd.Decimal {
	return *apd.New(coeff, -2)
}

func setup(t testing.TB) *OrderBook {
	t.Helper()
	stock := NewCommonStock(instrument, *apd.New(8, -2), *apd.New(1, 0), price(2025))
	return NewOrderBook(stock, NewTransactionBook(instrument))
}

func TestOrderBook_RejectsInvalidOrders(t *testing.T) {
	ob := setup(t)

	if _, err := ob.AddBuyOrder(0, price(950), uuid.UUID{}); !errors.Is(err, ErrInvalidQty) {
		t.Errorf("expected ErrInvalidQty, got %v", err)
	}
	if _, err := ob.AddSellOrder(-5, price(950), uuid.UUID{}); !errors.Is(err, ErrInvalidQty) {
		t.Errorf("expected ErrInvalidQty, got %v", err)
	}
	if _, err := ob.AddBuyOrder(10, apd.Decimal{}, uuid.UUID{}); !errors.Is(err, ErrInvalidPrice) {
		t.Errorf("expected ErrInvalidPrice, got %v", err)
	}
	if _, err := ob.AddSellOrder(10, price(-100), uuid.UUID{}); !errors.Is(err, ErrInvalidPrice) {
		t.Errorf("expected ErrInvalidPrice, got %v", err)
	}

	// rejected submissions leave no state behind
	if len(ob.activeOrders) != 0 {
		t.Errorf("expected no active orders, got %d", len(ob.activeOrders))
	}
	if ob.orders.Len(SideBuy) != 0 || ob.orders.Len(SideSell) != 0 {
		t.Error("expected both sides empty after rejections")
	}
}

func TestOrderBook_NoCross(t *testing.T) {
	ob := setup(t)

	transactions, err := ob.AddSellOrder(2, price(950), uuid.UUID{})
	if err != nil {
		t.Fatal(err)
	}
	if len(transactions) != 0 {
		t.Errorf("expected no transactions, got %d", len(transactions))
	}

	// buy below the best ask never produces a transaction
	transactions, err = ob.AddBuyOrder(5, price(900), uuid.UUID{})
	if err != nil {
		t.Fatal(err)
	}
	if len(transactions) != 0 {
		t.Errorf("expected no transactions, got %d", len(transactions))
	}
	if ob.orders.Len(SideSell) != 1 {
		t.Errorf("expected 1 ask, got %d", ob.orders.Len(SideSell))
	}
	if ob.orders.Len(SideBuy) != 1 {
		t.Errorf("expected 1 bid, got %d", ob.orders.Len(SideBuy))
	}
	if ob.transactionBook.Len() != 0 {
		t.Errorf("expected empty transaction history, got %d", ob.transactionBook.Len())
	}
}

// Incoming buy 80@9.50 against resting sell 50@9.00: one transaction of 50 at
// the incoming price, the buy rests with 30 left, the price moves to 9.50.
func TestOrderBook_PartialFillIncomingRemains(t *testing.T) {
	ob := setup(t)

	if _, err := ob.AddSellOrder(50, price(900), uuid.UUID{}); err != nil {
		t.Fatal(err)
	}
	transactions, err := ob.AddBuyOrder(80, price(950), uuid.UUID{})
	if err != nil {
		t.Fatal(err)
	}

	if len(transactions) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(transactions))
	}
	tx := transactions[0]
	if tx.Qty != 50 {
		t.Errorf("expected exchanged qty 50, got %d", tx.Qty)
	}
	expectedPrice := price(950)
	if tx.Price.Cmp(&expectedPrice) != 0 {
		t.Errorf("expected execution price 9.50, got %s", tx.Price.String())
	}
	if tx.Side != SideBuy {
		t.Errorf("expected buy-initiated transaction, got %s", tx.Side)
	}

	if ob.orders.Len(SideSell) != 0 {
		t.Errorf("expected 0 asks, got %d", ob.orders.Len(SideSell))
	}
	bids := ob.GetBids()
	if len(bids) != 1 {
		t.Fatalf("expected 1 bid, got %d", len(bids))
	}
	if bids[0].UnfilledQty() != 30 {
		t.Errorf("expected 30 unfilled, got %d", bids[0].UnfilledQty())
	}
	if bids[0].IsFilled() {
		t.Error("expected buy order to remain open")
	}

	marketPrice := ob.stock.Price()
	if marketPrice.Cmp(&expectedPrice) != 0 {
		t.Errorf("expected market price 9.50, got %s", marketPrice.String())
	}
}

// Equal quantities consume both orders with a single transaction.
func TestOrderBook_EqualQuantityCross(t *testing.T) {
	ob := setup(t)

	if _, err := ob.AddSellOrder(40, price(980), uuid.UUID{}); err != nil {
		t.Fatal(err)
	}
	transactions, err := ob.AddBuyOrder(40, price(1000), uuid.UUID{})
	if err != nil {
		t.Fatal(err)
	}

	if len(transactions) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(transactions))
	}
	if transactions[0].Qty != 40 {
		t.Errorf("expected exchanged qty 40, got %d", transactions[0].Qty)
	}
	expectedPrice := price(1000)
	if transactions[0].Price.Cmp(&expectedPrice) != 0 {
		t.Errorf("expected execution price 10.00, got %s", transactions[0].Price.String())
	}
	if ob.orders.Len(SideBuy) != 0 || ob.orders.Len(SideSell) != 0 {
		t.Error("expected both sides empty after an equal-quantity cross")
	}
	if len(ob.activeOrders) != 0 {
		t.Errorf("expected no active orders, got %d", len(ob.activeOrders))
	}
}

// An incoming sell executes at its own offered price, not the resting bid's.
func TestOrderBook_IncomingSellSetsPrice(t *testing.T) {
	ob := setup(t)

	if _, err := ob.AddBuyOrder(50, price(950), uuid.UUID{}); err != nil {
		t.Fatal(err)
	}
	transactions, err := ob.AddSellOrder(50, price(920), uuid.UUID{})
	if err != nil {
		t.Fatal(err)
	}

	if len(transactions) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(transactions))
	}
	expectedPrice := price(920)
	if transactions[0].Price.Cmp(&expectedPrice) != 0 {
		t.Errorf("expected execution price 9.20, got %s", transactions[0].Price.String())
	}
	if transactions[0].Side != SideSell {
		t.Errorf("expected sell-initiated transaction, got %s", transactions[0].Side)
	}
	marketPrice := ob.stock.Price()
	if marketPrice.Cmp(&expectedPrice) != 0 {
		t.Errorf("expected market price 9.20, got %s", marketPrice.String())
	}
}

// A large incoming order sweeps resting orders best price first and stops when
// the next price no longer crosses.
func TestOrderBook_SweepStopsAtUncrossedPrice(t *testing.T) {
	ob := setup(t)

	if _, err := ob.AddSellOrder(30, price(900), uuid.UUID{}); err != nil {
		t.Fatal(err)
	}
	if _, err := ob.AddSellOrder(30, price(910), uuid.UUID{}); err != nil {
		t.Fatal(err)
	}
	if _, err := ob.AddSellOrder(30, price(920), uuid.UUID{}); err != nil {
		t.Fatal(err)
	}

	transactions, err := ob.AddBuyOrder(100, price(915), uuid.UUID{})
	if err != nil {
		t.Fatal(err)
	}

	if len(transactions) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(transactions))
	}
	var exchanged int64
	for _, tx := range transactions {
		exchanged += tx.Qty
	}
	if exchanged != 60 {
		t.Errorf("expected 60 exchanged in total, got %d", exchanged)
	}

	bids := ob.GetBids()
	if len(bids) != 1 || bids[0].UnfilledQty() != 40 {
		t.Fatalf("expected the buy to rest with 40 unfilled, got %+v", bids)
	}
	asks := ob.GetAsks()
	if len(asks) != 1 {
		t.Fatalf("expected 1 ask left, got %d", len(asks))
	}
	expectedAsk := price(920)
	if asks[0].Price.Cmp(&expectedAsk) != 0 {
		t.Errorf("expected the 9.20 ask to survive, got %s", asks[0].Price.String())
	}
}

// Resting orders at the same price match earliest submission first.
func TestOrderBook_TimePriorityAtSamePrice(t *testing.T) {
	ob := setup(t)

	first := uuid.New()
	second := uuid.New()
	if _, err := ob.AddSellOrder(30, price(900), first); err != nil {
		t.Fatal(err)
	}
	if _, err := ob.AddSellOrder(30, price(900), second); err != nil {
		t.Fatal(err)
	}

	transactions, err := ob.AddBuyOrder(30, price(900), uuid.UUID{})
	if err != nil {
		t.Fatal(err)
	}
	if len(transactions) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(transactions))
	}
	if transactions[0].Seller != first {
		t.Error("expected the earlier sell order to match first")
	}

	asks := ob.GetAsks()
	if len(asks) != 1 || asks[0].Trader != second {
		t.Error("expected the later sell order to remain resting")
	}
}

// The exchanged total never exceeds the incoming quantity and equals it
// exactly when the incoming order ends fully matched.
func TestOrderBook_ExchangedQuantityConservation(t *testing.T) {
	ob := setup(t)
	r := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		qty := 1 + r.Int63n(200)
		p := *apd.New(1+r.Int63n(2000), -2)

		var transactions []Transaction
		var err error
		if r.Intn(2) == 0 {
			transactions, err = ob.AddBuyOrder(qty, p, uuid.UUID{})
		} else {
			transactions, err = ob.AddSellOrder(qty, p, uuid.UUID{})
		}
		if err != nil {
			t.Fatal(err)
		}

		var exchanged int64
		for _, tx := range transactions {
			if tx.Qty <= 0 {
				t.Fatalf("transaction with non-positive qty %d", tx.Qty)
			}
			exchanged += tx.Qty
		}
		if exchanged > qty {
			t.Fatalf("exchanged %d exceeds submitted %d", exchanged, qty)
		}
	}

	// every resting order still has an open remainder
	for _, order := range append(ob.GetBids(), ob.GetAsks()...) {
		if order.UnfilledQty() <= 0 {
			t.Fatalf("resting order %d has unfilled qty %d", order.ID, order.UnfilledQty())
		}
	}
}

func TestOrderBook_VolumeWeightedPrice(t *testing.T) {
	ob := setup(t)

	if _, err := ob.TransactionBook().VolumeWeightedPrice(); !errors.Is(err, ErrNoTrades) {
		t.Errorf("expected ErrNoTrades before any trade, got %v", err)
	}

	if _, err := ob.AddSellOrder(100, price(1200), uuid.UUID{}); err != nil {
		t.Fatal(err)
	}
	if _, err := ob.AddBuyOrder(100, *apd.New(123400, -4), uuid.UUID{}); err != nil {
		t.Fatal(err)
	}

	vwap, err := ob.TransactionBook().VolumeWeightedPrice()
	if err != nil {
		t.Fatal(err)
	}
	if vwap.String() != "12.3400" {
		t.Errorf("expected VWAP 12.3400, got %s", vwap.String())
	}
}

func TestOrderBook_TransactionCallback(t *testing.T) {
	ob := setup(t)

	var seen []Transaction
	ob.OnTransaction(func(tx Transaction) {
		seen = append(seen, tx)
	})

	if _, err := ob.AddSellOrder(10, price(900), uuid.UUID{}); err != nil {
		t.Fatal(err)
	}
	transactions, err := ob.AddBuyOrder(10, price(950), uuid.UUID{})
	if err != nil {
		t.Fatal(err)
	}

	if len(seen) != len(transactions) {
		t.Fatalf("expected callback for %d transactions, got %d", len(transactions), len(seen))
	}
	if seen[0].ID != transactions[0].ID {
		t.Error("callback observed a different transaction")
	}
}

func BenchmarkOrderBook_Add(b *testing.B) {
	ob := setup(b)
	r := rand.New(rand.NewSource(1))

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		qty := 1 + r.Int63n(100)
		p := *apd.New(1+r.Int63n(20000), -2)
		if r.Intn(2) == 0 {
			_, _ = ob.AddBuyOrder(qty, p, uuid.UUID{})
		} else {
			_, _ = ob.AddSellOrder(qty, p, uuid.UUID{})
		}
	}
}
