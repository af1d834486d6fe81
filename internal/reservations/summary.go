package reservations

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/allotments-backend/pkg/db/models"
)

// Summary is the money position of a reservation. Amounts are summed as
// stored; lines and payments are expected in the reservation's currency.
type Summary struct {
	Total              decimal.Decimal `json:"total"`
	Paid               decimal.Decimal `json:"paid"`
	Outstanding        decimal.Decimal `json:"outstanding"`
	DepositOutstanding decimal.Decimal `json:"depositOutstanding"`
}

// Summarize needs the reservation's lines and payments loaded.
func Summarize(res models.Reservation) Summary {
	total := decimal.Zero
	for _, line := range res.Lines {
		total = total.Add(line.Total())
	}
	paid := decimal.Zero
	for _, payment := range res.Payments {
		paid = paid.Add(payment.Amount)
	}
	return Summary{
		Total:              total,
		Paid:               paid,
		Outstanding:        nonNegative(total.Sub(paid)),
		DepositOutstanding: nonNegative(res.DepositAmount.Sub(paid)),
	}
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
