package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestNetRefundAmount(t *testing.T) {
	ret := Return{
		RefundAmount:          decimal.NewFromInt(300),
		RestockingFee:         decimal.NewFromInt(20),
		DamageDeduction:       decimal.NewFromInt(30),
		ShippingCostDeduction: decimal.NewFromInt(10),
	}
	if !ret.TotalDeductions().Equal(decimal.NewFromInt(60)) {
		t.Fatalf("total deductions = %s, want 60", ret.TotalDeductions())
	}
	if !ret.NetRefundAmount().Equal(decimal.NewFromInt(240)) {
		t.Fatalf("net refund = %s, want 240", ret.NetRefundAmount())
	}
}

func TestNetRefundAmountClampsAtZero(t *testing.T) {
	ret := Return{
		RefundAmount:    decimal.NewFromInt(50),
		RestockingFee:   decimal.NewFromInt(40),
		DamageDeduction: decimal.NewFromInt(40),
	}
	if !ret.NetRefundAmount().Equal(decimal.Zero) {
		t.Fatalf("net refund = %s, want 0", ret.NetRefundAmount())
	}
}
