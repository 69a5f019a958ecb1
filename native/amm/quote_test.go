package amm

import (
	"errors"
	"testing"
)

func TestQuoteWithoutFee(t *testing.T) {
	out, fee, err := Quote(100, 1000, 2000, 0)
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if fee != 0 {
		t.Fatalf("expected zero fee, got %d", fee)
	}
	if out != 181 {
		t.Fatalf("expected output 181, got %d", out)
	}
}

func TestQuoteDeductsFeeFromInput(t *testing.T) {
	out, fee, err := Quote(1000, 1000, 2000, 30)
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if fee != 3 {
		t.Fatalf("expected fee 3, got %d", fee)
	}
	// netIn = 997: floor(997*2000 / (1000+997)) = 998
	if out != 998 {
		t.Fatalf("expected output 998, got %d", out)
	}
}

func TestQuoteFullFeeYieldsZeroOutput(t *testing.T) {
	out, fee, err := Quote(500, 1000, 2000, 10_000)
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if fee != 500 || out != 0 {
		t.Fatalf("expected fee 500 and zero output, got fee=%d out=%d", fee, out)
	}
}

func TestQuoteRejectsBadInput(t *testing.T) {
	if _, _, err := Quote(0, 1000, 2000, 0); !errors.Is(err, errZeroQuoteInput) {
		t.Fatalf("expected zero input rejection, got %v", err)
	}
	if _, _, err := Quote(100, 0, 2000, 0); !errors.Is(err, errEmptyReserves) {
		t.Fatalf("expected empty reserve rejection, got %v", err)
	}
	if _, _, err := Quote(100, 1000, 0, 0); !errors.Is(err, errEmptyReserves) {
		t.Fatalf("expected empty reserve rejection, got %v", err)
	}
	if _, _, err := Quote(100, 1000, 2000, 10_001); !errors.Is(err, errQuoteFeeRange) {
		t.Fatalf("expected fee range rejection, got %v", err)
	}
}

func TestQuoteNeverInflatesProduct(t *testing.T) {
	reserveIn, reserveOut := uint64(1_000_000), uint64(3_000_000)
	for _, amountIn := range []uint64{1, 17, 999, 50_000, 1_000_000} {
		out, fee, err := Quote(amountIn, reserveIn, reserveOut, 30)
		if err != nil {
			t.Fatalf("quote(%d) failed: %v", amountIn, err)
		}
		newIn := reserveIn + amountIn - fee
		newOut := reserveOut - out
		before := reserveIn * reserveOut
		after := newIn * newOut
		if after < before {
			t.Fatalf("product shrank for input %d: %d -> %d", amountIn, before, after)
		}
	}
}
