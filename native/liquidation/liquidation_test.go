package liquidation

import (
	"errors"
	"math/big"
	"testing"

	"github.com/mars-protocol/contracts-sub007/core/numeric"
	"github.com/mars-protocol/contracts-sub007/native/params"
)

func osmoBonus() params.LiquidationBonus {
	return params.LiquidationBonus{
		StartingLB: numeric.MustParseDecimal("0.01"),
		Slope:      numeric.MustParseDecimal("2"),
		MinLB:      numeric.Zero(),
		MaxLB:      numeric.MustParseDecimal("0.1"),
	}
}

func TestBonusCurve(t *testing.T) {
	lb := osmoBonus()
	cases := []struct {
		hf   string
		want string
	}{
		{"1", "0.01"},
		{"1.2", "0.01"},
		{"0.98", "0.05"},
		{"0.875", "0.1"},
		{"0", "0.1"},
	}
	for _, tc := range cases {
		got := Bonus(lb, numeric.MustParseDecimal(tc.hf))
		if !got.Equal(numeric.MustParseDecimal(tc.want)) {
			t.Fatalf("hf %s: got %s want %s", tc.hf, got, tc.want)
		}
	}
	lb.MinLB = numeric.MustParseDecimal("0.02")
	if got := Bonus(lb, numeric.One()); !got.Equal(numeric.MustParseDecimal("0.02")) {
		t.Fatalf("min clamp not applied: %s", got)
	}
}

func TestComputeScenarioOsmo(t *testing.T) {
	res, err := Compute(Request{
		RequestedRepay:   big.NewInt(100),
		DebtAmount:       big.NewInt(800),
		CollateralAmount: big.NewInt(1000),
		DebtPrice:        numeric.One(),
		CollateralPrice:  numeric.One(),
		CloseFactor:      DefaultCloseFactor(),
		Bonus:            Bonus(osmoBonus(), numeric.MustParseDecimal("0.875")),
		ProtocolFee:      numeric.MustParseDecimal("0.5"),
	})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if res.Repay.Int64() != 100 || res.Seized.Int64() != 110 {
		t.Fatalf("unexpected repay/seize %s/%s", res.Repay, res.Seized)
	}
	if res.ProtocolFee.Int64() != 55 || res.LiquidatorReceives.Int64() != 55 {
		t.Fatalf("unexpected fee split %s/%s", res.ProtocolFee, res.LiquidatorReceives)
	}
	if res.Refund.Sign() != 0 {
		t.Fatalf("unexpected refund %s", res.Refund)
	}
}

func TestComputeClampOrder(t *testing.T) {
	base := Request{
		RequestedRepay:   big.NewInt(10_000),
		DebtAmount:       big.NewInt(1_000),
		CollateralAmount: big.NewInt(5_000),
		DebtPrice:        numeric.MustParseDecimal("2"),
		CollateralPrice:  numeric.One(),
		CloseFactor:      DefaultCloseFactor(),
		Bonus:            numeric.MustParseDecimal("0.05"),
		ProtocolFee:      numeric.Zero(),
	}

	// Close factor binds: 50% of 1000.
	res, err := Compute(base)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if res.Repay.Int64() != 500 {
		t.Fatalf("expected close factor cap 500, got %s", res.Repay)
	}
	if res.Refund.Int64() != 9_500 {
		t.Fatalf("expected refund 9500, got %s", res.Refund)
	}
	if res.Seized.Int64() != 1_050 {
		t.Fatalf("expected seize 1050, got %s", res.Seized)
	}

	// Collateral binds: 300 * 1 / (1.05 * 2) = 142.
	thin := base
	thin.CollateralAmount = big.NewInt(300)
	res, err = Compute(thin)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if res.Repay.Int64() != 142 {
		t.Fatalf("expected collateral cap 142, got %s", res.Repay)
	}
	if res.Seized.Cmp(thin.CollateralAmount) > 0 {
		t.Fatalf("seized more than collateral: %s", res.Seized)
	}

	// Dust debt still allows one unit.
	dust := base
	dust.DebtAmount = big.NewInt(1)
	res, err = Compute(dust)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if res.Repay.Int64() != 1 {
		t.Fatalf("expected one unit repay, got %s", res.Repay)
	}
}

func TestComputeRepayBound(t *testing.T) {
	for requested := int64(1); requested < 2_000; requested += 37 {
		req := Request{
			RequestedRepay:   big.NewInt(requested),
			DebtAmount:       big.NewInt(777),
			CollateralAmount: big.NewInt(400),
			DebtPrice:        numeric.MustParseDecimal("1.3"),
			CollateralPrice:  numeric.MustParseDecimal("0.9"),
			CloseFactor:      DefaultCloseFactor(),
			Bonus:            numeric.MustParseDecimal("0.08"),
			ProtocolFee:      numeric.MustParseDecimal("0.25"),
		}
		res, err := Compute(req)
		if err != nil {
			t.Fatalf("requested %d: %v", requested, err)
		}
		if res.Repay.Int64() > requested || res.Repay.Int64() > 388 {
			t.Fatalf("requested %d: repay %s exceeds bounds", requested, res.Repay)
		}
		if res.Seized.Int64() > 400 {
			t.Fatalf("requested %d: seized %s exceeds collateral", requested, res.Seized)
		}
		if new(big.Int).Add(res.LiquidatorReceives, res.ProtocolFee).Cmp(res.Seized) != 0 {
			t.Fatalf("fee split does not add up")
		}
	}
}

func TestComputeRejectsZeroInputs(t *testing.T) {
	_, err := Compute(Request{RequestedRepay: big.NewInt(1), DebtAmount: big.NewInt(0), CollateralAmount: big.NewInt(1)})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
	_, err = Compute(Request{
		RequestedRepay:   big.NewInt(1),
		DebtAmount:       big.NewInt(1),
		CollateralAmount: big.NewInt(1),
		DebtPrice:        numeric.One(),
	})
	if !errors.Is(err, ErrZeroPrice) {
		t.Fatalf("expected zero price, got %v", err)
	}
}
