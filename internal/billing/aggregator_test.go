package billing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeTotals_ServiceAndPartLines(t *testing.T) {
	// 2 hours at 50.00/hour plus 3 parts at 10.00, 8% tax
	services := []ServiceLine{
		{HoursHundredth: 200, HourlyRateCents: 5000},
	}
	parts := []PartLine{
		{Quantity: 3, UnitCostCents: 1000},
	}

	totals, err := ComputeTotals(services, parts, 800)

	assert.NoError(t, err)
	assert.Equal(t, Cents(13000), totals.SubtotalCents)
	assert.Equal(t, Cents(1040), totals.TaxCents)
	assert.Equal(t, Cents(14040), totals.TotalCents)
	assert.Equal(t, []Cents{10000, 3000}, totals.LineAmounts)

	assert.Equal(t, "130.00", FormatAmount(totals.SubtotalCents))
	assert.Equal(t, "10.40", FormatAmount(totals.TaxCents))
	assert.Equal(t, "140.40", FormatAmount(totals.TotalCents))
}

func TestComputeTotals_FractionalHoursRoundHalfUp(t *testing.T) {
	// 0.25 hours at 99.99/hour: 25 * 9999 / 100 = 2499.75, rounds to 2500
	services := []ServiceLine{
		{HoursHundredth: 25, HourlyRateCents: 9999},
	}

	totals, err := ComputeTotals(services, nil, 0)

	assert.NoError(t, err)
	assert.Equal(t, Cents(2500), totals.SubtotalCents)
	assert.Equal(t, Cents(0), totals.TaxCents)
	assert.Equal(t, Cents(2500), totals.TotalCents)
}

func TestComputeTotals_TaxRoundsHalfUp(t *testing.T) {
	// 0.75 at 8.25%: 75 * 825 / 10000 = 6.1875, rounds to 6
	parts := []PartLine{
		{Quantity: 1, UnitCostCents: 75},
	}

	totals, err := ComputeTotals(nil, parts, 825)

	assert.NoError(t, err)
	assert.Equal(t, Cents(75), totals.SubtotalCents)
	assert.Equal(t, Cents(6), totals.TaxCents)

	// 0.50 at 5%: 50 * 500 / 10000 = 2.5, exact half rounds up to 3
	totals, err = ComputeTotals(nil, []PartLine{{Quantity: 1, UnitCostCents: 50}}, 500)

	assert.NoError(t, err)
	assert.Equal(t, Cents(3), totals.TaxCents)
}

func TestComputeTotals_EmptyLinesYieldZero(t *testing.T) {
	totals, err := ComputeTotals(nil, nil, 800)

	assert.NoError(t, err)
	assert.Equal(t, Cents(0), totals.SubtotalCents)
	assert.Equal(t, Cents(0), totals.TaxCents)
	assert.Equal(t, Cents(0), totals.TotalCents)
	assert.Empty(t, totals.LineAmounts)
}

func TestComputeTotals_Deterministic(t *testing.T) {
	services := []ServiceLine{
		{HoursHundredth: 133, HourlyRateCents: 12345},
		{HoursHundredth: 999, HourlyRateCents: 77},
	}
	parts := []PartLine{
		{Quantity: 7, UnitCostCents: 399},
	}

	first, err := ComputeTotals(services, parts, 1825)
	assert.NoError(t, err)

	for i := 0; i < 100; i++ {
		again, err := ComputeTotals(services, parts, 1825)
		assert.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestComputeTotals_NegativeInputsRejected(t *testing.T) {
	tests := []struct {
		name     string
		services []ServiceLine
		parts    []PartLine
		taxBP    int64
	}{
		{"negative hours", []ServiceLine{{HoursHundredth: -1, HourlyRateCents: 100}}, nil, 0},
		{"negative rate", []ServiceLine{{HoursHundredth: 100, HourlyRateCents: -1}}, nil, 0},
		{"negative quantity", nil, []PartLine{{Quantity: -1, UnitCostCents: 100}}, 0},
		{"negative unit cost", nil, []PartLine{{Quantity: 1, UnitCostCents: -1}}, 0},
		{"negative tax rate", nil, nil, -800},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeTotals(tt.services, tt.parts, tt.taxBP)
			assert.True(t, errors.Is(err, ErrInvalidLineItem))
		})
	}
}
