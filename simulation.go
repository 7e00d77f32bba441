package stockmarket

import (
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/apd"
	"github.com/sirupsen/logrus"
)

// MaxOrderQty is the largest quantity the random order policy generates.
const MaxOrderQty = 1000

// OrderRequest is one generated order intent, ready for submission.
type OrderRequest struct {
	Symbol string
	Side   OrderSide
	Qty    int64
	Price  apd.Decimal
}

// OrderGenerator produces the next order a trader submits. Implementations
// may read current prices but must not submit orders themselves.
type OrderGenerator func(r *rand.Rand, m *Market) OrderRequest

// RandomOrderPolicy generates orders the way the simulated traders do: a
// random stock, a quantity in [1, MaxOrderQty], a coin flip between buying and
// selling, buy prices within [0.1p, 1.1p] and sell prices within [0.9p, 2p]
// of the stock's current price p.
func RandomOrderPolicy(r *rand.Rand, m *Market) OrderRequest {
	stocks := m.Stocks()
	stock := stocks[r.Intn(len(stocks))]
	current := stock.Price()
	price, err := current.Float64()
	if err != nil {
		price = 0
	}

	request := OrderRequest{
		Symbol: stock.Symbol,
		Qty:    1 + r.Int63n(MaxOrderQty),
	}
	if r.Intn(2) == 0 {
		request.Side = SideBuy
		request.Price = randomPrice(r, 0.1*price, 1.1*price)
	} else {
		request.Side = SideSell
		request.Price = randomPrice(r, 0.9*price, 2*price)
	}
	return request
}

// randomPrice draws a price from [minPrice, maxPrice] at PriceScale decimal
// places, clamped to one tick so the book never rejects it as zero.
func randomPrice(r *rand.Rand, minPrice, maxPrice float64) apd.Decimal {
	price := minPrice + (maxPrice-minPrice)*r.Float64()
	coeff := int64(math.Round(price * math.Pow10(PriceScale)))
	if coeff < 1 {
		coeff = 1
	}
	return *apd.New(coeff, -PriceScale)
}

// Simulation runs a fixed pool of trader goroutines against a shared market
// for a bounded trading window. All traders reach a rendezvous barrier before
// the first order is submitted, and every submission runs under one shared
// mutex - the exclusive scope the order books require.
type Simulation struct {
	Market   *Market
	Duration time.Duration
	Seed     int64
	Generate OrderGenerator
	Logger   *logrus.Logger

	marketMutex sync.Mutex // serializes whole submissions across trader goroutines
}

func NewSimulation(market *Market, duration time.Duration, seed int64, logger *logrus.Logger) *Simulation {
	return &Simulation{
		Market:   market,
		Duration: duration,
		Seed:     seed,
		Generate: RandomOrderPolicy,
		Logger:   logger,
	}
}

// Run launches one goroutine per registered trader, synchronizes their start,
// trades until the window closes and waits for every trader to finish.
// Returns the total number of executed transactions.
func (s *Simulation) Run() int64 {
	traders := s.Market.Traders()

	var (
		ready sync.WaitGroup
		done  sync.WaitGroup
		total int64
	)
	start := make(chan struct{})
	ready.Add(len(traders))
	done.Add(len(traders))

	for i, trader := range traders {
		go func(seed int64, trader Trader) {
			defer done.Done()
			r := rand.New(rand.NewSource(seed))

			ready.Done()
			<-start

			deadline := time.Now().Add(s.Duration)
			for time.Now().Before(deadline) {
				executed := s.submit(r, trader)
				atomic.AddInt64(&total, executed)
			}
		}(s.Seed+int64(i), trader)
	}

	ready.Wait()
	close(start)
	s.Logger.WithField("traders", len(traders)).Info("trading window opened")

	done.Wait()
	s.Logger.WithField("transactions", atomic.LoadInt64(&total)).Info("trading window closed")
	return atomic.LoadInt64(&total)
}

// submit generates and submits one order, logging the transactions it produced.
func (s *Simulation) submit(r *rand.Rand, trader Trader) int64 {
	request := s.Generate(r, s.Market)

	var (
		transactions []Transaction
		err          error
	)
	s.marketMutex.Lock()
	if request.Side == SideBuy {
		transactions, err = s.Market.SubmitBuyOrder(request.Symbol, request.Qty, request.Price, trader.ID)
	} else {
		transactions, err = s.Market.SubmitSellOrder(request.Symbol, request.Qty, request.Price, trader.ID)
	}
	s.marketMutex.Unlock()

	if err != nil {
		s.Logger.WithError(err).WithFields(logrus.Fields{
			"trader": trader.Name,
			"symbol": request.Symbol,
		}).Warn("order rejected")
		return 0
	}

	for _, tx := range transactions {
		s.Logger.WithFields(logrus.Fields{
			"symbol": tx.Symbol,
			"side":   tx.Side.String(),
			"qty":    tx.Qty,
			"price":  tx.Price.String(),
			"trader": trader.Name,
		}).Info("transaction executed")
	}
	return int64(len(transactions))
}
