package lending

import (
	"math/big"
	"testing"

	"github.com/mars-protocol/contracts-sub007/core/numeric"
)

func TestScaledRoundTrip(t *testing.T) {
	indexes := []string{"1", "1.000000000000000001", "1.045", "1.1", "3.333333333333333333", "12.5"}
	amounts := []int64{1, 7, 999, 1_000_000, 123_456_789_012}
	for _, raw := range indexes {
		index := dec(raw)
		for _, v := range amounts {
			amount := big.NewInt(v)
			down, err := ScaledAmount(amount, index, RoundDown)
			if err != nil {
				t.Fatalf("scale: %v", err)
			}
			back, err := UnderlyingAmount(down, index, RoundDown)
			if err != nil {
				t.Fatalf("unscale: %v", err)
			}
			if back.Cmp(amount) > 0 {
				t.Fatalf("index %s amount %d: floor round trip grew to %s", raw, v, back)
			}
			up, err := ScaledAmount(amount, index, RoundUp)
			if err != nil {
				t.Fatalf("scale: %v", err)
			}
			back, err = UnderlyingAmount(up, index, RoundUp)
			if err != nil {
				t.Fatalf("unscale: %v", err)
			}
			if back.Cmp(amount) < 0 {
				t.Fatalf("index %s amount %d: ceil round trip shrank to %s", raw, v, back)
			}
		}
	}
}

func TestScaledAmountRejectsZeroIndex(t *testing.T) {
	if _, err := ScaledAmount(big.NewInt(1), numeric.Zero(), RoundDown); err == nil {
		t.Fatalf("expected divide by zero")
	}
}

func TestAppliedLinearInterest(t *testing.T) {
	got := AppliedLinearInterest(numeric.One(), dec("0.1"), SecondsPerYear)
	if got.String() != "1.1" {
		t.Fatalf("one year at 10%%: %s", got)
	}
	got = AppliedLinearInterest(dec("1.1"), dec("0.1"), SecondsPerYear/2)
	if got.String() != "1.155" {
		t.Fatalf("half year on 1.1: %s", got)
	}
	if got := AppliedLinearInterest(dec("1.2"), dec("0.5"), 0); got.String() != "1.2" {
		t.Fatalf("zero elapsed changed index: %s", got)
	}
}

func TestTwoSlopeModel(t *testing.T) {
	m := InterestRateModel{OptimalUtilizationRate: dec("0.8"), Base: numeric.Zero(), Slope1: dec("0.2"), Slope2: dec("3")}
	cases := map[string]string{
		"0":   "0",
		"0.4": "0.1",
		"0.8": "0.2",
		"0.9": "1.7",
		"1":   "3.2",
	}
	for u, want := range cases {
		got, err := m.BorrowRate(dec(u))
		if err != nil {
			t.Fatalf("rate at %s: %v", u, err)
		}
		if got.String() != want {
			t.Fatalf("rate at %s: got %s want %s", u, got, want)
		}
	}
	if r := LiquidityRate(dec("0.2"), dec("0.8"), dec("0.1")); r.String() != "0.144" {
		t.Fatalf("liquidity rate %s", r)
	}
	legacy := LinearInterestRateModel{Base: dec("0.02"), Slope: dec("0.1")}.TwoSlope()
	if got, _ := legacy.BorrowRate(dec("0.5")); got.String() != "0.07" {
		t.Fatalf("legacy mapping %s", got)
	}
}

func TestUtilizationClamp(t *testing.T) {
	u, err := Utilization(big.NewInt(150), big.NewInt(100))
	if err != nil {
		t.Fatalf("utilization: %v", err)
	}
	if !u.Equal(numeric.One()) {
		t.Fatalf("expected clamp to one, got %s", u)
	}
	if u, _ := Utilization(big.NewInt(1), big.NewInt(0)); !u.IsZero() {
		t.Fatalf("zero collateral gave %s", u)
	}
}
