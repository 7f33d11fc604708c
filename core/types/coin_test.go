package types

import (
	"errors"
	"testing"
)

func TestCoinsNormalize(t *testing.T) {
	coins := Coins{NewCoin("uosmo", 5), NewCoin("uatom", 0), NewCoin("uatom", 3), NewCoin("uosmo", 2)}
	got := coins.Normalize()
	if len(got) != 2 {
		t.Fatalf("expected two coins, got %v", got)
	}
	if got[0].Denom != "uatom" || got[0].Amount.Int64() != 3 {
		t.Fatalf("unexpected first coin %v", got[0])
	}
	if got[1].Denom != "uosmo" || got[1].Amount.Int64() != 7 {
		t.Fatalf("unexpected second coin %v", got[1])
	}
	if coins.AmountOf("uosmo").Int64() != 7 {
		t.Fatalf("amount of uosmo mismatch")
	}
}

func TestValidateDenom(t *testing.T) {
	for _, denom := range []string{"uatom", "ibc/27394FB092D2ECCD56123C74F36E4C1F926001CEADA9CA97EA622B25F41E5EB2", "factory/mars1abc/lp"} {
		if err := ValidateDenom(denom); err != nil {
			t.Fatalf("denom %q rejected: %v", denom, err)
		}
	}
	for _, denom := range []string{"", "a", "1atom", "u atom"} {
		if err := ValidateDenom(denom); !errors.Is(err, ErrInvalidDenom) {
			t.Fatalf("denom %q accepted", denom)
		}
	}
}

func TestIdentityKey(t *testing.T) {
	direct := NewIdentity("mars1user")
	if direct.Key() != "mars1user" {
		t.Fatalf("unexpected key %q", direct.Key())
	}
	account := NewAccountIdentity("mars1cm", "7")
	if account.Key() != "mars1cm/7" {
		t.Fatalf("unexpected key %q", account.Key())
	}
	if ParseIdentityKey(account.Key()) != account {
		t.Fatalf("round trip mismatch")
	}
}

func TestParseCoins(t *testing.T) {
	coins, err := ParseCoins("5uosmo, 3ibc/ABC,2uosmo")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if coins.String() != "3ibc/ABC,7uosmo" {
		t.Fatalf("unexpected coins %s", coins)
	}
	if empty, err := ParseCoins(" "); err != nil || empty != nil {
		t.Fatalf("expected no coins, got %v %v", empty, err)
	}
	if _, err := ParseCoins("uosmo"); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected amount error, got %v", err)
	}
	if _, err := ParseCoins("10"); !errors.Is(err, ErrInvalidDenom) {
		t.Fatalf("expected denom error, got %v", err)
	}
}

func TestEventAttributes(t *testing.T) {
	evt := Event{Type: "lending.liquidate", Attributes: map[string]string{"debt_repaid": "125", "user": "mars1x", "bad": "1.5"}}
	if evt.Attr("user") != "mars1x" || evt.Attr("missing") != "" {
		t.Fatalf("unexpected attrs %v", evt.Attributes)
	}
	if v, ok := evt.AmountAttr("debt_repaid"); !ok || v.Int64() != 125 {
		t.Fatalf("expected 125, got %v %v", v, ok)
	}
	if _, ok := evt.AmountAttr("bad"); ok {
		t.Fatalf("expected decimal attribute to be rejected")
	}
	if _, ok := evt.AmountAttr("missing"); ok {
		t.Fatalf("expected missing attribute to be rejected")
	}
}
