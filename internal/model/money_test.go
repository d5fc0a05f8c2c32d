package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fleetrelay/fleetrelay/internal/model"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		name   string
		amount float64
		want   string
	}{
		{name: "whole number gets two fraction digits", amount: 6, want: "6.00"},
		{name: "already two fraction digits", amount: 3.50, want: "3.50"},
		{name: "rounds to two fraction digits", amount: 9.999, want: "10.00"},
		{name: "zero", amount: 0, want: "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, model.FormatAmount(tt.amount))
		})
	}
}

func TestNewPayment_DerivesTotal(t *testing.T) {
	payment := model.NewPayment("PAY-1", "R-1", 6.00, 3.50, "London trip with surcharge "+model.FormatAmount(3.50))

	assert.Equal(t, 9.50, payment.Total)
	assert.Contains(t, payment.Description, "3.50")
}
