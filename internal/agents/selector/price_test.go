package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrice(t *testing.T) {
	tests := []struct {
		text string
		want float64
		ok   bool
	}{
		{"price: 1.450 TL", 1450, true},
		{"Renault Clio - 1.100 TL/day", 1100, true},
		{"total €1,234.50 incl. taxes", 1234.5, true},
		{"1.234,50 EUR", 1234.5, true},
		{"$99", 99, true},
		{"from ₺ 650", 650, true},
		{"price 12.5 USD", 12.5, true},
		{"Volvo XC60, SUV, automatic", 0, false},
		{"departure: 09:05, date: 2025-11-03", 0, false},
		{"1.234.567 TRY", 1234567, true},
		{"name: Ankara Palas, price: 2100, currency: TRY", 2100, true},
		{"name: Ankara Palas, price: amount 2100 currency TRY", 2100, true},
		{"Kızılay Budget Inn, total_price: 1.100,50, currency: EUR", 1100.5, true},
		{"Metro Turizm, fare: 650, currency_code: TL", 650, true},
		{"Renault Clio, price: 1100", 0, false},
		{"currency: TRY, seats: 4", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := Price(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}
}
