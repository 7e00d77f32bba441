package stockmarket

import (
	"fmt"
	"io"
	"strconv"

	"github.com/cockroachdb/apd"
	"github.com/olekukonko/tablewriter"
)

const notAvailable = "N/A"

// Report renders the console summary of a trading session.
type Report struct {
	Market *Market
}

func NewReport(market *Market) *Report {
	return &Report{Market: market}
}

// WriteStocks renders the registered stocks with their static attributes and
// current valuations.
func (r *Report) WriteStocks(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Symbol", "Type", "Last Dividend", "Fixed Dividend", "Par Value", "Price", "Dividend Yield", "P/E Ratio"})

	for _, stock := range r.Market.Stocks() {
		fixedDividend := "-"
		if stock.Type == StockPreferred {
			fixedDividend = stock.FixedDividend.String()
		}
		price := stock.Price()
		table.Append([]string{
			stock.Symbol,
			stock.Type.String(),
			stock.LastDividend.String(),
			fixedDividend,
			stock.ParValue.String(),
			price.String(),
			formatResult(stock.DividendYield()),
			formatResult(stock.PERatio()),
		})
	}
	table.Render()
}

// WriteSummary renders the per-stock trade totals and volume-weighted prices,
// followed by the all share index.
func (r *Report) WriteSummary(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Symbol", "Transactions", "Volume Weighted Price"})

	for _, stock := range r.Market.Stocks() {
		book, _ := r.Market.Book(stock.Symbol)
		table.Append([]string{
			stock.Symbol,
			strconv.Itoa(book.TransactionBook().Len()),
			formatResult(r.Market.VolumeWeightedPrice(stock.Symbol)),
		})
	}
	table.Render()

	fmt.Fprintf(w, "All Share Index: %s\n", formatResult(r.Market.AllShareIndex()))
}

func formatResult(value apd.Decimal, err error) string {
	if err != nil {
		return notAvailable
	}
	return value.String()
}
