package health

import (
	"math/big"
	"testing"

	"github.com/mars-protocol/contracts-sub007/core/numeric"
	"github.com/mars-protocol/contracts-sub007/core/types"
	"github.com/mars-protocol/contracts-sub007/native/params"
)

func borrowerComputer(debt int64) *Computer {
	return &Computer{
		Kind: DefaultKind(),
		Positions: Positions{
			Deposits: types.Coins{types.NewCoin("uosmo", 1000)},
			Debts:    []DebtAmount{{Denom: "uatom", Amount: big.NewInt(debt)}},
		},
		Denoms: testDenoms(),
		Vaults: VaultsData{
			Values: map[string]VaultPositionValue{},
			Configs: map[string]*params.VaultConfig{
				"vault-atom": {Addr: "vault-atom", MaxLTV: dec("0.45"), LiquidationThreshold: dec("0.5"), Whitelisted: true},
			},
		},
	}
}

func mustSafe(t *testing.T, c *Computer) {
	t.Helper()
	vals, err := c.Compute()
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if vals.AboveMaxLTV {
		t.Fatalf("estimate pushed account above max ltv: %+v", vals)
	}
}

func TestMaxBorrowEstimateWallet(t *testing.T) {
	c := borrowerComputer(300)
	n, err := c.MaxBorrowEstimate("uatom", WalletTarget())
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if n.Int64() != 500 {
		t.Fatalf("expected 500, got %s", n)
	}
	over, err := c.applyBorrow("uatom", big.NewInt(501), WalletTarget())
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if vals, _ := over.Compute(); !vals.AboveMaxLTV {
		t.Fatalf("one unit more than the estimate must be unsafe")
	}
}

func TestMaxBorrowEstimateDeposit(t *testing.T) {
	c := borrowerComputer(300)
	n, err := c.MaxBorrowEstimate("uatom", DepositTarget())
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if n.Int64() != 1000 {
		t.Fatalf("expected 1000, got %s", n)
	}
}

func TestMaxBorrowEstimateIsSafe(t *testing.T) {
	targets := []BorrowTarget{
		WalletTarget(),
		DepositTarget(),
		VaultTarget("vault-atom"),
		SwapTarget("uosmo", dec("0.01")),
		SwapTarget("stAtom", numeric.Zero()),
	}
	for _, debt := range []int64{0, 1, 150, 300, 799} {
		for _, denom := range []string{"uatom", "uosmo"} {
			for _, target := range targets {
				c := borrowerComputer(debt)
				n, err := c.MaxBorrowEstimate(denom, target)
				if err != nil {
					t.Fatalf("debt %d %s target %d: %v", debt, denom, target.Kind, err)
				}
				next, err := c.applyBorrow(denom, n, target)
				if err != nil {
					t.Fatalf("apply: %v", err)
				}
				mustSafe(t, next)
			}
		}
	}
}

func TestEstimatorsAboveMaxLTV(t *testing.T) {
	c := borrowerComputer(900)
	n, err := c.MaxBorrowEstimate("uatom", DepositTarget())
	if err != nil || n.Sign() != 0 {
		t.Fatalf("expected zero borrow estimate, got %v %v", n, err)
	}
	n, err = c.MaxWithdrawEstimate("uosmo")
	if err != nil || n.Sign() != 0 {
		t.Fatalf("expected zero withdraw estimate, got %v %v", n, err)
	}
	n, err = c.MaxSwapEstimate("uosmo", "uatom", SwapMargin, dec("0.01"))
	if err != nil || n.Sign() != 0 {
		t.Fatalf("expected zero swap estimate, got %v %v", n, err)
	}
}

func TestMaxWithdrawEstimate(t *testing.T) {
	c := borrowerComputer(300)
	n, err := c.MaxWithdrawEstimate("uosmo")
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if n.Int64() != 625 {
		t.Fatalf("expected 625, got %s", n)
	}

	free := borrowerComputer(0)
	free.Positions.Debts = nil
	n, err = free.MaxWithdrawEstimate("uosmo")
	if err != nil || n.Int64() != 1000 {
		t.Fatalf("expected full balance without debt, got %v %v", n, err)
	}
	n, err = free.MaxWithdrawEstimate("uatom")
	if err != nil || n.Sign() != 0 {
		t.Fatalf("expected zero for absent deposit, got %v %v", n, err)
	}
}

func TestMaxSwapEstimate(t *testing.T) {
	c := borrowerComputer(300)
	n, err := c.MaxSwapEstimate("uosmo", "uatom", SwapDefault, dec("0.01"))
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if n.Sign() <= 0 || n.Int64() > 1000 {
		t.Fatalf("default swap must stay within the deposit balance, got %s", n)
	}

	margin, err := c.MaxSwapEstimate("uatom", "uosmo", SwapMargin, dec("0.01"))
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if margin.Sign() <= 0 {
		t.Fatalf("expected positive margin swap, got %s", margin)
	}
	pos := c.Positions.Clone()
	pos.addDebt("uatom", margin)
	out, err := c.swapOut("uatom", "uosmo", margin, dec("0.01"))
	if err != nil {
		t.Fatalf("swap out: %v", err)
	}
	pos.Deposits = adjustCoins(pos.Deposits, "uosmo", out)
	mustSafe(t, c.with(pos, c.Vaults))
}

func TestMaxBorrowEstimateHLS(t *testing.T) {
	c := &Computer{
		Kind: HLSKind(),
		Positions: Positions{
			Deposits: types.Coins{types.NewCoin("stAtom", 1000)},
			Debts:    []DebtAmount{{Denom: "uatom", Amount: big.NewInt(100)}},
		},
		Denoms: testDenoms(),
	}
	n, err := c.MaxBorrowEstimate("uosmo", WalletTarget())
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if n.Sign() != 0 {
		t.Fatalf("a second debt denom breaks hls rules, expected 0 got %s", n)
	}
	n, err = c.MaxBorrowEstimate("uatom", WalletTarget())
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if n.Sign() <= 0 {
		t.Fatalf("expected room to borrow the hls debt denom, got %s", n)
	}
}
