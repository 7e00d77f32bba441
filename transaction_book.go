package stockmarket

import (
	"errors"
	"sync"

	"github.com/cockroachdb/apd"
)

// ErrNoTrades marks a volume-weighted price or index requested before any
// transaction has been recorded. A defined result, not a failure.
var ErrNoTrades = errors.New("no transactions recorded")

// TransactionBook stores the completed transactions of one stock in completion
// order, together with the lifetime running sums the volume-weighted price is
// derived from. The sums are folded in the same critical section that appends
// the transaction, so they can never disagree with the recorded history.
type TransactionBook struct {
	Symbol string

	transactions []Transaction
	sumPriceQty  apd.Decimal // lifetime sum of execution price * exchanged qty
	sumQty       int64       // lifetime sum of exchanged qty
	mutex        sync.RWMutex
}

func NewTransactionBook(symbol string) *TransactionBook {
	return &TransactionBook{
		Symbol:       symbol,
		transactions: make([]Transaction, 0, 1024),
	}
}

// Enter records a completed transaction and its contribution to the running sums.
func (t *TransactionBook) Enter(tx Transaction) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	var qty, priceQty, newSum apd.Decimal
	qty.SetInt64(tx.Qty)
	if _, err := decimalCtx.Mul(&priceQty, &tx.Price, &qty); err != nil {
		return err
	}
	if _, err := decimalCtx.Add(&newSum, &t.sumPriceQty, &priceQty); err != nil {
		return err
	}

	t.transactions = append(t.transactions, tx)
	t.sumPriceQty = newSum
	t.sumQty += tx.Qty
	return nil
}

func (t *TransactionBook) Len() int {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return len(t.transactions)
}

// Transactions returns a copy of the recorded history in completion order.
func (t *TransactionBook) Transactions() []Transaction {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	transactionsCopy := make([]Transaction, len(t.transactions))
	copy(transactionsCopy, t.transactions)
	return transactionsCopy
}

// VolumeWeightedPrice calculates the lifetime volume-weighted price, scaled to
// PriceScale decimal places half-to-even. Returns ErrNoTrades before the first
// transaction instead of dividing by zero.
func (t *TransactionBook) VolumeWeightedPrice() (apd.Decimal, error) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	if t.sumQty == 0 {
		return apd.Decimal{}, ErrNoTrades
	}

	var qty, vwap apd.Decimal
	qty.SetInt64(t.sumQty)
	if _, err := decimalCtx.Quo(&vwap, &t.sumPriceQty, &qty); err != nil {
		return apd.Decimal{}, err
	}
	return roundToScale(&vwap)
}
