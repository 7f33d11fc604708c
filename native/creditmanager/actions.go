package creditmanager

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/mars-protocol/contracts-sub007/core/numeric"
	"github.com/mars-protocol/contracts-sub007/core/types"
)

// ActionAmount is either an exact amount or the account's whole balance of
// the denom at the time the action runs. A nil Exact means AccountBalance.
type ActionAmount struct {
	Exact *big.Int
}

func Exact(v *big.Int) ActionAmount    { return ActionAmount{Exact: new(big.Int).Set(v)} }
func ExactInt(v int64) ActionAmount    { return ActionAmount{Exact: big.NewInt(v)} }
func AccountBalance() ActionAmount     { return ActionAmount{} }
func (a ActionAmount) IsBalance() bool { return a.Exact == nil }

const accountBalanceTag = "account_balance"

func (a ActionAmount) MarshalJSON() ([]byte, error) {
	if a.Exact == nil {
		return json.Marshal(accountBalanceTag)
	}
	return json.Marshal(struct {
		Exact *big.Int `json:"exact"`
	}{a.Exact})
}

func (a *ActionAmount) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err == nil {
		if tag != accountBalanceTag {
			return fmt.Errorf("credit manager: unknown action amount %q", tag)
		}
		a.Exact = nil
		return nil
	}
	var exact struct {
		Exact *big.Int `json:"exact"`
	}
	if err := json.Unmarshal(data, &exact); err != nil {
		return err
	}
	if exact.Exact == nil {
		return fmt.Errorf("credit manager: action amount requires exact or %q", accountBalanceTag)
	}
	a.Exact = exact.Exact
	return nil
}

// ActionCoin is a denom with an ActionAmount.
type ActionCoin struct {
	Denom  string       `json:"denom"`
	Amount ActionAmount `json:"amount"`
}

func ExactCoin(coin types.Coin) ActionCoin {
	return ActionCoin{Denom: coin.Denom, Amount: Exact(coin.Amount)}
}

func BalanceCoin(denom string) ActionCoin {
	return ActionCoin{Denom: denom, Amount: AccountBalance()}
}

// Action is one step of an update_credit_account batch.
type Action interface {
	isAction()
	Name() string
}

type Deposit struct {
	Coin types.Coin `json:"coin"`
}

type Withdraw struct {
	Coin ActionCoin `json:"coin"`
}

type Borrow struct {
	Coin types.Coin `json:"coin"`
}

type Repay struct {
	Coin ActionCoin `json:"coin"`
}

type Lend struct {
	Coin ActionCoin `json:"coin"`
}

type Reclaim struct {
	Coin ActionCoin `json:"coin"`
}

// ClaimRewards moves pool incentives earned by the account's lends into its
// deposits.
type ClaimRewards struct{}

type EnterVault struct {
	Vault string     `json:"vault"`
	Coin  ActionCoin `json:"coin"`
}

type ExitVault struct {
	Vault  string   `json:"vault"`
	Amount *big.Int `json:"amount"`
}

type RequestVaultUnlock struct {
	Vault  string   `json:"vault"`
	Amount *big.Int `json:"amount"`
}

type WithdrawUnlocked struct {
	Vault    string `json:"vault"`
	LockupID uint64 `json:"lockup_id"`
}

type SwapExactIn struct {
	Coin     ActionCoin      `json:"coin_in"`
	DenomOut string          `json:"denom_out"`
	Slippage numeric.Decimal `json:"slippage"`
}

type ProvideLiquidity struct {
	Coins      []ActionCoin    `json:"coins_in"`
	LpTokenOut string          `json:"lp_token_out"`
	Slippage   numeric.Decimal `json:"slippage"`
}

type WithdrawLiquidity struct {
	LpToken  ActionCoin      `json:"lp_token"`
	Slippage numeric.Decimal `json:"slippage"`
}

type StakeAstroLp struct {
	LpToken ActionCoin `json:"lp_token"`
}

type UnstakeAstroLp struct {
	LpToken ActionCoin `json:"lp_token"`
}

type ClaimAstroLpRewards struct {
	LpDenom string `json:"lp_denom"`
}

// Liquidate repays DebtCoin of another account from this account's
// deposits and takes the bonused collateral named by Request.
type Liquidate struct {
	LiquidateeAccountID string           `json:"liquidatee_account_id"`
	DebtCoin            types.Coin       `json:"debt_coin"`
	Request             LiquidateRequest `json:"request"`
}

// RefundAllCoinBalances sends every deposit back to the account owner.
type RefundAllCoinBalances struct{}

func (Deposit) isAction()               {}
func (Withdraw) isAction()              {}
func (Borrow) isAction()                {}
func (Repay) isAction()                 {}
func (Lend) isAction()                  {}
func (Reclaim) isAction()               {}
func (ClaimRewards) isAction()          {}
func (EnterVault) isAction()            {}
func (ExitVault) isAction()             {}
func (RequestVaultUnlock) isAction()    {}
func (WithdrawUnlocked) isAction()      {}
func (SwapExactIn) isAction()           {}
func (ProvideLiquidity) isAction()      {}
func (WithdrawLiquidity) isAction()     {}
func (StakeAstroLp) isAction()          {}
func (UnstakeAstroLp) isAction()        {}
func (ClaimAstroLpRewards) isAction()   {}
func (Liquidate) isAction()             {}
func (RefundAllCoinBalances) isAction() {}

func (Deposit) Name() string               { return "deposit" }
func (Withdraw) Name() string              { return "withdraw" }
func (Borrow) Name() string                { return "borrow" }
func (Repay) Name() string                 { return "repay" }
func (Lend) Name() string                  { return "lend" }
func (Reclaim) Name() string               { return "reclaim" }
func (ClaimRewards) Name() string          { return "claim_rewards" }
func (EnterVault) Name() string            { return "enter_vault" }
func (ExitVault) Name() string             { return "exit_vault" }
func (RequestVaultUnlock) Name() string    { return "request_vault_unlock" }
func (WithdrawUnlocked) Name() string      { return "withdraw_unlocked" }
func (SwapExactIn) Name() string           { return "swap_exact_in" }
func (ProvideLiquidity) Name() string      { return "provide_liquidity" }
func (WithdrawLiquidity) Name() string     { return "withdraw_liquidity" }
func (StakeAstroLp) Name() string          { return "stake_astro_lp" }
func (UnstakeAstroLp) Name() string        { return "unstake_astro_lp" }
func (ClaimAstroLpRewards) Name() string   { return "claim_astro_lp_rewards" }
func (Liquidate) Name() string             { return "liquidate" }
func (RefundAllCoinBalances) Name() string { return "refund_all_coin_balances" }

// LiquidateRequest names the collateral taken in a liquidation.
type LiquidateRequest interface {
	isLiquidateRequest()
	Kind() string
}

type LiquidateDeposit struct {
	Denom string `json:"denom"`
}

type LiquidateLend struct {
	Denom string `json:"denom"`
}

type LiquidateVault struct {
	Vault string `json:"vault"`
}

func (LiquidateDeposit) isLiquidateRequest() {}
func (LiquidateLend) isLiquidateRequest()    {}
func (LiquidateVault) isLiquidateRequest()   {}

func (LiquidateDeposit) Kind() string { return "deposit" }
func (LiquidateLend) Kind() string    { return "lend" }
func (LiquidateVault) Kind() string   { return "vault" }

type liquidateJSON struct {
	LiquidateeAccountID string          `json:"liquidatee_account_id"`
	DebtCoin            types.Coin      `json:"debt_coin"`
	Request             json.RawMessage `json:"request"`
}

func (l Liquidate) MarshalJSON() ([]byte, error) {
	if l.Request == nil {
		return nil, fmt.Errorf("credit manager: liquidate request required")
	}
	req, err := withType(l.Request.Kind(), l.Request)
	if err != nil {
		return nil, err
	}
	return json.Marshal(liquidateJSON{LiquidateeAccountID: l.LiquidateeAccountID, DebtCoin: l.DebtCoin, Request: req})
}

func (l *Liquidate) UnmarshalJSON(data []byte) error {
	var raw liquidateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	kind, err := typeOf(raw.Request)
	if err != nil {
		return err
	}
	var req LiquidateRequest
	switch kind {
	case "deposit":
		req, err = decodeAs[LiquidateDeposit](raw.Request)
	case "lend":
		req, err = decodeAs[LiquidateLend](raw.Request)
	case "vault":
		req, err = decodeAs[LiquidateVault](raw.Request)
	default:
		return fmt.Errorf("credit manager: unknown liquidate request %q", kind)
	}
	if err != nil {
		return err
	}
	l.LiquidateeAccountID = raw.LiquidateeAccountID
	l.DebtCoin = raw.DebtCoin
	l.Request = req
	return nil
}

// Actions is an ordered batch with a "type" tagged JSON form.
type Actions []Action

func (as Actions) MarshalJSON() ([]byte, error) {
	out := make([]json.RawMessage, 0, len(as))
	for _, a := range as {
		if a == nil {
			return nil, fmt.Errorf("%w: nil", ErrUnknownAction)
		}
		encoded, err := withType(a.Name(), a)
		if err != nil {
			return nil, err
		}
		out = append(out, encoded)
	}
	return json.Marshal(out)
}

func (as *Actions) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Actions, 0, len(raw))
	for _, item := range raw {
		action, err := UnmarshalAction(item)
		if err != nil {
			return err
		}
		out = append(out, action)
	}
	*as = out
	return nil
}

// UnmarshalAction decodes a single tagged action.
func UnmarshalAction(data []byte) (Action, error) {
	kind, err := typeOf(data)
	if err != nil {
		return nil, err
	}
	switch kind {
	case "deposit":
		return decodeAs[Deposit](data)
	case "withdraw":
		return decodeAs[Withdraw](data)
	case "borrow":
		return decodeAs[Borrow](data)
	case "repay":
		return decodeAs[Repay](data)
	case "lend":
		return decodeAs[Lend](data)
	case "reclaim":
		return decodeAs[Reclaim](data)
	case "claim_rewards":
		return ClaimRewards{}, nil
	case "enter_vault":
		return decodeAs[EnterVault](data)
	case "exit_vault":
		return decodeAs[ExitVault](data)
	case "request_vault_unlock":
		return decodeAs[RequestVaultUnlock](data)
	case "withdraw_unlocked":
		return decodeAs[WithdrawUnlocked](data)
	case "swap_exact_in":
		return decodeAs[SwapExactIn](data)
	case "provide_liquidity":
		return decodeAs[ProvideLiquidity](data)
	case "withdraw_liquidity":
		return decodeAs[WithdrawLiquidity](data)
	case "stake_astro_lp":
		return decodeAs[StakeAstroLp](data)
	case "unstake_astro_lp":
		return decodeAs[UnstakeAstroLp](data)
	case "claim_astro_lp_rewards":
		return decodeAs[ClaimAstroLpRewards](data)
	case "liquidate":
		return decodeAs[Liquidate](data)
	case "refund_all_coin_balances":
		return RefundAllCoinBalances{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, kind)
	}
}

func decodeAs[T any](data []byte) (T, error) {
	var out T
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

func typeOf(data []byte) (string, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return "", err
	}
	if head.Type == "" {
		return "", fmt.Errorf("credit manager: missing type tag")
	}
	return head.Type, nil
}

// withType encodes v as an object and adds the "type" tag.
func withType(kind string, v any) (json.RawMessage, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	tag, err := json.Marshal(kind)
	if err != nil {
		return nil, err
	}
	fields["type"] = tag
	return json.Marshal(fields)
}
