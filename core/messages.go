package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/mars-protocol/contracts-sub007/core/types"
	nativecommon "github.com/mars-protocol/contracts-sub007/native/common"
	"github.com/mars-protocol/contracts-sub007/native/creditmanager"
	"github.com/mars-protocol/contracts-sub007/native/health"
	"github.com/mars-protocol/contracts-sub007/native/incentives"
	"github.com/mars-protocol/contracts-sub007/native/lending"
	"github.com/mars-protocol/contracts-sub007/native/oracle"
	"github.com/mars-protocol/contracts-sub007/native/params"
)

var (
	ErrUnknownMessage = errors.New("dispatch: unknown message type")
	ErrInvalidMessage = errors.New("dispatch: invalid message")
)

const (
	moduleBank     = "bank"
	moduleAdapters = "adapters"
)

// Message is one entry point of a protocol module.
type Message interface {
	Type() string
	// Module names the module that handles the message and receives its
	// funds.
	Module() string
}

type MsgSend struct {
	To    string      `json:"to"`
	Coins types.Coins `json:"coins"`
}

type MsgUpdateAssetParams struct {
	Params *params.AssetParams `json:"params"`
}

type MsgUpdateVaultConfig struct {
	Config *params.VaultConfig `json:"config"`
}

type MsgRemoveVaultConfig struct {
	Addr string `json:"addr"`
}

type MsgSetPaused struct {
	Target string `json:"module"`
	Paused bool   `json:"paused"`
}

type MsgSetPriceSource struct {
	Denom  string              `json:"denom"`
	Kind   string              `json:"kind,omitempty"`
	Source oracle.SourceConfig `json:"source"`
}

type MsgRemovePriceSource struct {
	Denom string `json:"denom"`
	Kind  string `json:"kind,omitempty"`
}

type MsgInitAsset struct {
	Denom  string               `json:"denom"`
	Params lending.MarketParams `json:"params"`
}

type MsgUpdateAsset struct {
	Denom  string                     `json:"denom"`
	Update lending.MarketParamsUpdate `json:"update"`
}

type MsgUpdateLendingConfig struct {
	Config lending.Config `json:"config"`
}

// MsgDeposit deposits the single attached coin.
type MsgDeposit struct {
	OnBehalfOf string `json:"on_behalf_of,omitempty"`
	AccountID  string `json:"account_id,omitempty"`
}

type MsgWithdraw struct {
	AccountID string   `json:"account_id,omitempty"`
	Denom     string   `json:"denom"`
	Amount    *big.Int `json:"amount,omitempty"`
	Recipient string   `json:"recipient,omitempty"`
}

type MsgBorrow struct {
	AccountID string     `json:"account_id,omitempty"`
	Coin      types.Coin `json:"coin"`
	Recipient string     `json:"recipient,omitempty"`
}

// MsgRepay repays with the single attached coin.
type MsgRepay struct {
	OnBehalfOf string `json:"on_behalf_of,omitempty"`
	AccountID  string `json:"account_id,omitempty"`
}

type MsgUpdateCollateralStatus struct {
	AccountID string `json:"account_id,omitempty"`
	Denom     string `json:"denom"`
	Enable    bool   `json:"enable"`
}

// MsgLiquidate repays the attached debt coin for User.
type MsgLiquidate struct {
	User            string `json:"user"`
	AccountID       string `json:"account_id,omitempty"`
	CollateralDenom string `json:"collateral_denom"`
	Recipient       string `json:"recipient,omitempty"`
}

type MsgSetAssetIncentive struct {
	CollateralDenom   string   `json:"collateral_denom"`
	IncentiveDenom    string   `json:"incentive_denom"`
	EmissionPerSecond *big.Int `json:"emission_per_second"`
	StartTime         uint64   `json:"start_time"`
	Duration          uint64   `json:"duration"`
}

type MsgClaimRewards struct {
	Recipient string `json:"recipient,omitempty"`
}

type MsgUpdateIncentiveWhitelist struct {
	Add    []string `json:"add,omitempty"`
	Remove []string `json:"remove,omitempty"`
}

type MsgCreateCreditAccount struct {
	Kind health.AccountKind `json:"kind"`
}

// MsgUpdateCreditAccount runs Actions for AccountID, creating a default
// account first when AccountID is empty.
type MsgUpdateCreditAccount struct {
	AccountID string                `json:"account_id,omitempty"`
	Actions   creditmanager.Actions `json:"actions"`
}

type MsgBurnCreditAccount struct {
	AccountID string `json:"account_id"`
}

type MsgUpdateCreditManagerConfig struct {
	Config creditmanager.Config `json:"config"`
}

// MsgUpdateOwner applies an owner role transition to TargetModule.
type MsgUpdateOwner struct {
	TargetModule string                   `json:"module"`
	Update       nativecommon.OwnerUpdate `json:"-"`
}

type MsgRegisterVault struct {
	Addr string                  `json:"addr"`
	Info creditmanager.VaultInfo `json:"info"`
}

type MsgRegisterPool struct {
	LpDenom string    `json:"lp_denom"`
	Addr    string    `json:"addr"`
	Denoms  [2]string `json:"denoms"`
}

type MsgRegisterFarm struct {
	LpDenom         string   `json:"lp_denom"`
	RewardDenom     string   `json:"reward_denom"`
	RewardPerSecond *big.Int `json:"reward_per_second"`
}

func (MsgSend) Type() string                      { return "send" }
func (MsgUpdateAssetParams) Type() string         { return "update_asset_params" }
func (MsgUpdateVaultConfig) Type() string         { return "update_vault_config" }
func (MsgRemoveVaultConfig) Type() string         { return "remove_vault_config" }
func (MsgSetPaused) Type() string                 { return "set_paused" }
func (MsgSetPriceSource) Type() string            { return "set_price_source" }
func (MsgRemovePriceSource) Type() string         { return "remove_price_source" }
func (MsgInitAsset) Type() string                 { return "init_asset" }
func (MsgUpdateAsset) Type() string               { return "update_asset" }
func (MsgUpdateLendingConfig) Type() string       { return "update_lending_config" }
func (MsgDeposit) Type() string                   { return "deposit" }
func (MsgWithdraw) Type() string                  { return "withdraw" }
func (MsgBorrow) Type() string                    { return "borrow" }
func (MsgRepay) Type() string                     { return "repay" }
func (MsgUpdateCollateralStatus) Type() string    { return "update_collateral_status" }
func (MsgLiquidate) Type() string                 { return "liquidate" }
func (MsgSetAssetIncentive) Type() string         { return "set_asset_incentive" }
func (MsgClaimRewards) Type() string              { return "claim_rewards" }
func (MsgUpdateIncentiveWhitelist) Type() string  { return "update_incentive_whitelist" }
func (MsgCreateCreditAccount) Type() string       { return "create_credit_account" }
func (MsgUpdateCreditAccount) Type() string       { return "update_credit_account" }
func (MsgBurnCreditAccount) Type() string         { return "burn_credit_account" }
func (MsgUpdateCreditManagerConfig) Type() string { return "update_credit_manager_config" }
func (MsgUpdateOwner) Type() string               { return "update_owner" }
func (MsgRegisterVault) Type() string             { return "register_vault" }
func (MsgRegisterPool) Type() string              { return "register_pool" }
func (MsgRegisterFarm) Type() string              { return "register_farm" }

func (MsgSend) Module() string                      { return moduleBank }
func (MsgUpdateAssetParams) Module() string         { return params.ModuleName }
func (MsgUpdateVaultConfig) Module() string         { return params.ModuleName }
func (MsgRemoveVaultConfig) Module() string         { return params.ModuleName }
func (MsgSetPaused) Module() string                 { return params.ModuleName }
func (MsgSetPriceSource) Module() string            { return oracle.ModuleName }
func (MsgRemovePriceSource) Module() string         { return oracle.ModuleName }
func (MsgInitAsset) Module() string                 { return lending.ModuleName }
func (MsgUpdateAsset) Module() string               { return lending.ModuleName }
func (MsgUpdateLendingConfig) Module() string       { return lending.ModuleName }
func (MsgDeposit) Module() string                   { return lending.ModuleName }
func (MsgWithdraw) Module() string                  { return lending.ModuleName }
func (MsgBorrow) Module() string                    { return lending.ModuleName }
func (MsgRepay) Module() string                     { return lending.ModuleName }
func (MsgUpdateCollateralStatus) Module() string    { return lending.ModuleName }
func (MsgLiquidate) Module() string                 { return lending.ModuleName }
func (MsgSetAssetIncentive) Module() string         { return incentives.ModuleName }
func (MsgClaimRewards) Module() string              { return incentives.ModuleName }
func (MsgUpdateIncentiveWhitelist) Module() string  { return incentives.ModuleName }
func (MsgCreateCreditAccount) Module() string       { return creditmanager.ModuleName }
func (MsgUpdateCreditAccount) Module() string       { return creditmanager.ModuleName }
func (MsgBurnCreditAccount) Module() string         { return creditmanager.ModuleName }
func (MsgUpdateCreditManagerConfig) Module() string { return creditmanager.ModuleName }
func (m MsgUpdateOwner) Module() string             { return m.TargetModule }
func (MsgRegisterVault) Module() string             { return moduleAdapters }
func (MsgRegisterPool) Module() string              { return moduleAdapters }
func (MsgRegisterFarm) Module() string              { return moduleAdapters }

type envelope struct {
	Type string          `json:"type"`
	Msg  json.RawMessage `json:"msg"`
}

var messageFactories = map[string]func() Message{
	"send":                         func() Message { return &MsgSend{} },
	"update_asset_params":          func() Message { return &MsgUpdateAssetParams{} },
	"update_vault_config":          func() Message { return &MsgUpdateVaultConfig{} },
	"remove_vault_config":          func() Message { return &MsgRemoveVaultConfig{} },
	"set_paused":                   func() Message { return &MsgSetPaused{} },
	"set_price_source":             func() Message { return &MsgSetPriceSource{} },
	"remove_price_source":          func() Message { return &MsgRemovePriceSource{} },
	"init_asset":                   func() Message { return &MsgInitAsset{} },
	"update_asset":                 func() Message { return &MsgUpdateAsset{} },
	"update_lending_config":        func() Message { return &MsgUpdateLendingConfig{} },
	"deposit":                      func() Message { return &MsgDeposit{} },
	"withdraw":                     func() Message { return &MsgWithdraw{} },
	"borrow":                       func() Message { return &MsgBorrow{} },
	"repay":                        func() Message { return &MsgRepay{} },
	"update_collateral_status":     func() Message { return &MsgUpdateCollateralStatus{} },
	"liquidate":                    func() Message { return &MsgLiquidate{} },
	"set_asset_incentive":          func() Message { return &MsgSetAssetIncentive{} },
	"claim_rewards":                func() Message { return &MsgClaimRewards{} },
	"update_incentive_whitelist":   func() Message { return &MsgUpdateIncentiveWhitelist{} },
	"create_credit_account":        func() Message { return &MsgCreateCreditAccount{} },
	"update_credit_account":        func() Message { return &MsgUpdateCreditAccount{} },
	"burn_credit_account":          func() Message { return &MsgBurnCreditAccount{} },
	"update_credit_manager_config": func() Message { return &MsgUpdateCreditManagerConfig{} },
	"update_owner":                 func() Message { return &MsgUpdateOwner{} },
	"register_vault":               func() Message { return &MsgRegisterVault{} },
	"register_pool":                func() Message { return &MsgRegisterPool{} },
	"register_farm":                func() Message { return &MsgRegisterFarm{} },
}

// MarshalJSON renders the owner update inline as "update".
func (m MsgUpdateOwner) MarshalJSON() ([]byte, error) {
	if m.Update == nil {
		return nil, fmt.Errorf("%w: owner update required", ErrInvalidMessage)
	}
	update, err := nativecommon.MarshalOwnerUpdate(m.Update)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Module string          `json:"module"`
		Update json.RawMessage `json:"update"`
	}{m.TargetModule, update})
}

func (m *MsgUpdateOwner) UnmarshalJSON(data []byte) error {
	var raw struct {
		Module string          `json:"module"`
		Update json.RawMessage `json:"update"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	update, err := nativecommon.UnmarshalOwnerUpdate(raw.Update)
	if err != nil {
		return err
	}
	m.TargetModule = raw.Module
	m.Update = update
	return nil
}

// EncodeMessage renders msg as {"type": ..., "msg": {...}}.
func EncodeMessage(msg Message) ([]byte, error) {
	if msg == nil {
		return nil, fmt.Errorf("%w: nil message", ErrInvalidMessage)
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: msg.Type(), Msg: body})
}

// DecodeMessage parses the envelope produced by EncodeMessage. Unknown
// fields are rejected.
func DecodeMessage(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	factory, ok := messageFactories[env.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, env.Type)
	}
	msg := factory()
	if len(env.Msg) == 0 {
		env.Msg = []byte("{}")
	}
	if _, custom := msg.(json.Unmarshaler); custom {
		if err := json.Unmarshal(env.Msg, msg); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidMessage, env.Type, err)
		}
		return msg, nil
	}
	dec := json.NewDecoder(bytes.NewReader(env.Msg))
	dec.DisallowUnknownFields()
	if err := dec.Decode(msg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidMessage, env.Type, err)
	}
	return msg, nil
}
