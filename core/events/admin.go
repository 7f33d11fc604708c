package events

import (
	"math/big"
	"strconv"

	"github.com/mars-protocol/contracts-sub007/core/types"
)

const (
	TypeOwnerUpdated         = "owner.updated"
	TypeParamsAssetUpdated   = "params.asset_updated"
	TypeParamsVaultUpdated   = "params.vault_updated"
	TypeParamsPauseUpdated   = "params.pause_updated"
	TypeOraclePriceSourceSet = "oracle.price_source_set"
	TypeIncentiveSet         = "incentives.schedule_set"
	TypeIncentiveClaimed     = "incentives.claimed"
	TypeIncentiveWhitelist   = "incentives.whitelist_updated"
	TypeContractMigrated     = "contract.migrated"
)

type OwnerUpdated struct {
	Module    string
	Owner     string
	Proposed  string
	Abolished bool
}

func (OwnerUpdated) EventType() string { return TypeOwnerUpdated }

func (e OwnerUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeOwnerUpdated,
		Attributes: map[string]string{
			"module":    e.Module,
			"owner":     e.Owner,
			"proposed":  e.Proposed,
			"abolished": strconv.FormatBool(e.Abolished),
		},
	}
}

type AssetParamsUpdated struct {
	Denom string
}

func (AssetParamsUpdated) EventType() string { return TypeParamsAssetUpdated }

func (e AssetParamsUpdated) Event() *types.Event {
	return &types.Event{Type: TypeParamsAssetUpdated, Attributes: map[string]string{"denom": e.Denom}}
}

type VaultConfigUpdated struct {
	Addr string
}

func (VaultConfigUpdated) EventType() string { return TypeParamsVaultUpdated }

func (e VaultConfigUpdated) Event() *types.Event {
	return &types.Event{Type: TypeParamsVaultUpdated, Attributes: map[string]string{"addr": e.Addr}}
}

type PauseUpdated struct {
	Module string
	Paused bool
}

func (PauseUpdated) EventType() string { return TypeParamsPauseUpdated }

func (e PauseUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeParamsPauseUpdated,
		Attributes: map[string]string{
			"module": e.Module,
			"paused": strconv.FormatBool(e.Paused),
		},
	}
}

type PriceSourceSet struct {
	Denom  string
	Kind   string
	Source string
}

func (PriceSourceSet) EventType() string { return TypeOraclePriceSourceSet }

func (e PriceSourceSet) Event() *types.Event {
	return &types.Event{
		Type: TypeOraclePriceSourceSet,
		Attributes: map[string]string{
			"denom":  e.Denom,
			"kind":   e.Kind,
			"source": e.Source,
		},
	}
}

type IncentiveSet struct {
	CollateralDenom   string
	IncentiveDenom    string
	EmissionPerSecond *big.Int
	StartTime         uint64
	Duration          uint64
}

func (IncentiveSet) EventType() string { return TypeIncentiveSet }

func (e IncentiveSet) Event() *types.Event {
	return &types.Event{
		Type: TypeIncentiveSet,
		Attributes: map[string]string{
			"collateral_denom":    e.CollateralDenom,
			"incentive_denom":     e.IncentiveDenom,
			"emission_per_second": amountString(e.EmissionPerSecond),
			"start_time":          strconv.FormatUint(e.StartTime, 10),
			"duration":            strconv.FormatUint(e.Duration, 10),
		},
	}
}

type IncentiveClaimed struct {
	User      types.Identity
	Recipient string
	Coins     types.Coins
}

func (IncentiveClaimed) EventType() string { return TypeIncentiveClaimed }

func (e IncentiveClaimed) Event() *types.Event {
	return &types.Event{
		Type: TypeIncentiveClaimed,
		Attributes: map[string]string{
			"user":      e.User.Key(),
			"recipient": e.Recipient,
			"coins":     e.Coins.String(),
		},
	}
}

type IncentiveWhitelistUpdated struct {
	Added   []string
	Removed []string
}

func (IncentiveWhitelistUpdated) EventType() string { return TypeIncentiveWhitelist }

func (e IncentiveWhitelistUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeIncentiveWhitelist,
		Attributes: map[string]string{
			"added":   strconv.Itoa(len(e.Added)),
			"removed": strconv.Itoa(len(e.Removed)),
		},
	}
}

type ContractMigrated struct {
	From string
	To   string
}

func (ContractMigrated) EventType() string { return TypeContractMigrated }

func (e ContractMigrated) Event() *types.Event {
	return &types.Event{
		Type:       TypeContractMigrated,
		Attributes: map[string]string{"from": e.From, "to": e.To},
	}
}
