package oracle

import (
	"testing"

	"vexchain/native/policy"
)

func guardPolicy() *policy.State {
	pol := policy.Default()
	pol.OracleEnabled = true
	pol.OracleToleranceBps = 500
	pol.OracleStaleSecs = 900
	return pol
}

func TestEffectivePriceTrustsAmmWithinTolerance(t *testing.T) {
	quote := &State{PriceNum: 102, PriceDen: 100, UpdatedTS: 1_000}
	// AMM at 1.00 vs oracle 1.02 deviates ~196 bps, inside 500.
	num, den, err := EffectivePrice(quote, guardPolicy(), 1, 1, 1_100, RoleBorrow)
	if err != nil {
		t.Fatalf("effective price failed: %v", err)
	}
	if num != 1 || den != 1 {
		t.Fatalf("expected amm price, got %d/%d", num, den)
	}
}

func TestEffectivePricePicksLowerOnDeviation(t *testing.T) {
	pol := guardPolicy()
	// AMM at 2.0 vs oracle 1.0: 10000 bps deviation, amm is higher.
	quote := &State{PriceNum: 1, PriceDen: 1, UpdatedTS: 1_000}
	num, den, err := EffectivePrice(quote, pol, 2, 1, 1_100, RoleBorrow)
	if err != nil {
		t.Fatalf("effective price failed: %v", err)
	}
	if num != 1 || den != 1 {
		t.Fatalf("expected lower oracle price, got %d/%d", num, den)
	}

	// AMM at 0.5 vs oracle 1.0: amm is lower and wins for both roles.
	for _, role := range []Role{RoleBorrow, RoleLiquidate} {
		num, den, err = EffectivePrice(quote, pol, 1, 2, 1_100, role)
		if err != nil {
			t.Fatalf("effective price failed: %v", err)
		}
		if num != 1 || den != 2 {
			t.Fatalf("expected lower amm price, got %d/%d", num, den)
		}
	}
}

func TestEffectivePriceIgnoresStaleOracle(t *testing.T) {
	quote := &State{PriceNum: 1, PriceDen: 1, UpdatedTS: 1_000}
	// Way past the 900s staleness window: amm wins despite deviation.
	num, den, err := EffectivePrice(quote, guardPolicy(), 3, 1, 10_000, RoleLiquidate)
	if err != nil {
		t.Fatalf("effective price failed: %v", err)
	}
	if num != 3 || den != 1 {
		t.Fatalf("expected amm price with stale oracle, got %d/%d", num, den)
	}
}

func TestEffectivePriceIgnoresDisabledOracle(t *testing.T) {
	pol := guardPolicy()
	pol.OracleEnabled = false
	quote := &State{PriceNum: 1, PriceDen: 1, UpdatedTS: 9_999}
	num, den, err := EffectivePrice(quote, pol, 5, 1, 10_000, RoleBorrow)
	if err != nil {
		t.Fatalf("effective price failed: %v", err)
	}
	if num != 5 || den != 1 {
		t.Fatalf("expected amm price with oracle disabled, got %d/%d", num, den)
	}
}

func TestEffectivePriceRequiresAmm(t *testing.T) {
	if _, _, err := EffectivePrice(nil, guardPolicy(), 0, 1, 100, RoleBorrow); err == nil {
		t.Fatalf("expected missing amm price rejection")
	}
}

func TestDeviationBps(t *testing.T) {
	cases := []struct {
		ammNum, ammDen       uint64
		oracleNum, oracleDen uint64
		want                 uint64
	}{
		{1, 1, 1, 1, 0},
		{102, 100, 1, 1, 200},
		{98, 100, 1, 1, 200},
		{2, 1, 1, 1, 10_000},
	}
	for _, tc := range cases {
		got, err := DeviationBps(tc.ammNum, tc.ammDen, tc.oracleNum, tc.oracleDen)
		if err != nil {
			t.Fatalf("deviation failed: %v", err)
		}
		if got != tc.want {
			t.Fatalf("deviation(%d/%d vs %d/%d): expected %d, got %d",
				tc.ammNum, tc.ammDen, tc.oracleNum, tc.oracleDen, tc.want, got)
		}
	}
}

func TestValidateRejectsBadState(t *testing.T) {
	if err := (&State{PriceNum: 1, PriceDen: 0}).Validate(); err == nil {
		t.Fatalf("expected zero denominator rejection")
	}
	long := make([]byte, 65)
	if err := (&State{PriceNum: 1, PriceDen: 1, Source: string(long)}).Validate(); err == nil {
		t.Fatalf("expected oversized source rejection")
	}
	if err := (&State{PriceNum: 1, PriceDen: 1, Source: "amm-twap"}).Validate(); err != nil {
		t.Fatalf("valid state rejected: %v", err)
	}
}
