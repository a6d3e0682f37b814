package billing

import "fmt"

// ServiceLine is a resolved service entry: billed hours against an hourly rate.
// Hours are in hundredths of an hour.
type ServiceLine struct {
	HoursHundredth  int64
	HourlyRateCents Cents
}

// PartLine is a quantity of parts at a unit cost.
type PartLine struct {
	Quantity      int64
	UnitCostCents Cents
}

// Totals is the result of aggregating an invoice's line items.
type Totals struct {
	SubtotalCents Cents
	TaxCents      Cents
	TotalCents    Cents
	// LineAmounts holds the per-line subtotals, services first then parts, in
	// input order.
	LineAmounts []Cents
}

// ComputeTotals derives invoice totals from line items and a tax rate given in
// basis points. Pure and deterministic: all arithmetic is integer, and the only
// division (the tax application) rounds half up.
func ComputeTotals(services []ServiceLine, parts []PartLine, taxRateBasisPoint int64) (Totals, error) {
	if taxRateBasisPoint < 0 {
		return Totals{}, fmt.Errorf("%w: negative tax rate", ErrInvalidLineItem)
	}

	var t Totals
	for i, s := range services {
		if s.HoursHundredth < 0 {
			return Totals{}, fmt.Errorf("%w: service line %d has negative hours", ErrInvalidLineItem, i)
		}
		if s.HourlyRateCents < 0 {
			return Totals{}, fmt.Errorf("%w: service line %d has negative rate", ErrInvalidLineItem, i)
		}
		// hours are hundredths, so divide the product back by 100 exactly once
		amount := roundedDiv(s.HoursHundredth*int64(s.HourlyRateCents), 100)
		t.LineAmounts = append(t.LineAmounts, Cents(amount))
		t.SubtotalCents += Cents(amount)
	}
	for i, p := range parts {
		if p.Quantity < 0 {
			return Totals{}, fmt.Errorf("%w: part line %d has negative quantity", ErrInvalidLineItem, i)
		}
		if p.UnitCostCents < 0 {
			return Totals{}, fmt.Errorf("%w: part line %d has negative cost", ErrInvalidLineItem, i)
		}
		amount := p.Quantity * int64(p.UnitCostCents)
		t.LineAmounts = append(t.LineAmounts, Cents(amount))
		t.SubtotalCents += Cents(amount)
	}

	t.TaxCents = Cents(roundedDiv(int64(t.SubtotalCents)*taxRateBasisPoint, 10000))
	t.TotalCents = t.SubtotalCents + t.TaxCents
	return t, nil
}

// roundedDiv divides non-negative n by positive d, rounding half up.
func roundedDiv(n, d int64) int64 {
	return (n + d/2) / d
}
