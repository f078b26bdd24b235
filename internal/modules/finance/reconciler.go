// README: Financial reconciler; pure recomputation of a trip's cost and profit fields.
package finance

// Expense type labels the reconciler partitions on. They mirror the expense
// module's enum; redeclared here so this package stays dependency-free.
const (
	TypeFuel = "FUEL"
	TypeToll = "TOLL"
)

// ExpenseLine is the slice of an expense the reconciler needs.
type ExpenseLine struct {
	Type   string
	Amount float64
}

// Breakdown holds the derived financial fields of a trip. The fields are only
// guaranteed consistent immediately after a Reconcile call.
type Breakdown struct {
	FuelCost     float64
	TollCost     float64
	OtherCosts   float64
	TotalCost    float64
	Profit       float64
	ProfitMargin float64
	// FuelEstimated is true when FuelCost came from the consumption estimate
	// rather than recorded fuel expenses.
	FuelEstimated bool
}

// Reconcile recomputes a trip's derived financials from its expenses and
// distance. It is a pure function; callers persist the result.
//
// When no fuel expense is recorded at all, fuel cost falls back to
// (distance / avgConsumption) * dieselPrice, provided distance, consumption
// and price are all positive. A single recorded fuel expense, however small,
// disables the estimate entirely.
//
// A zero-revenue trip reports a 0 margin even when costs are positive; this is
// the domain convention, not a bug.
func Reconcile(revenue, distance, avgConsumption, dieselPrice float64, expenses []ExpenseLine) Breakdown {
	var b Breakdown
	fuelRecorded := false
	for _, e := range expenses {
		switch e.Type {
		case TypeFuel:
			b.FuelCost += e.Amount
			fuelRecorded = true
		case TypeToll:
			b.TollCost += e.Amount
		default:
			b.OtherCosts += e.Amount
		}
	}

	if !fuelRecorded && distance > 0 && avgConsumption > 0 && dieselPrice > 0 {
		b.FuelCost = (distance / avgConsumption) * dieselPrice
		b.FuelEstimated = true
	}

	b.TotalCost = b.FuelCost + b.TollCost + b.OtherCosts
	b.Profit = revenue - b.TotalCost
	if revenue > 0 {
		b.ProfitMargin = (b.Profit / revenue) * 100
	}
	return b
}
