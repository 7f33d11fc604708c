package core

import (
	"github.com/mars-protocol/contracts-sub007/core/events"
	"github.com/mars-protocol/contracts-sub007/core/numeric"
	"github.com/mars-protocol/contracts-sub007/core/state"
	"github.com/mars-protocol/contracts-sub007/core/types"
	"github.com/mars-protocol/contracts-sub007/crypto"
	"github.com/mars-protocol/contracts-sub007/native/adapters"
	"github.com/mars-protocol/contracts-sub007/native/bank"
	"github.com/mars-protocol/contracts-sub007/native/creditmanager"
	"github.com/mars-protocol/contracts-sub007/native/incentives"
	"github.com/mars-protocol/contracts-sub007/native/lending"
	"github.com/mars-protocol/contracts-sub007/native/oracle"
	"github.com/mars-protocol/contracts-sub007/native/params"
)

// Addresses are the accounts the protocol modules hold coins under.
type Addresses struct {
	Lending       string `json:"lending"`
	Incentives    string `json:"incentives"`
	CreditManager string `json:"credit_manager"`
	Swapper       string `json:"swapper"`
	Staker        string `json:"staker"`
}

// DefaultAddresses derives every module account from the module name.
func DefaultAddresses() Addresses {
	return Addresses{
		Lending:       crypto.ModuleAddress(lending.ModuleName),
		Incentives:    crypto.ModuleAddress(incentives.ModuleName),
		CreditManager: crypto.ModuleAddress(creditmanager.ModuleName),
		Swapper:       crypto.ModuleAddress("swapper"),
		Staker:        crypto.ModuleAddress("staker"),
	}
}

// app is the set of engines bound to one state handle for the duration of a
// turn or a query.
type app struct {
	manager    *state.Manager
	bank       *bank.Engine
	params     *params.Engine
	oracle     *oracle.Engine
	lending    *lending.Engine
	incentives *incentives.Engine
	credit     *creditmanager.Engine
	vaults     *adapters.Vaults
	zapper     *adapters.Zapper
	staker     *adapters.Staker
	swapper    *adapters.Swapper
}

func newApp(manager *state.Manager, emitter events.Emitter, blockTime uint64, addrs Addresses, swapFee numeric.Decimal) *app {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	a := &app{
		manager:    manager,
		bank:       bank.NewEngine(),
		params:     params.NewEngine(),
		oracle:     oracle.NewEngine(),
		lending:    lending.NewEngine(addrs.Lending),
		incentives: incentives.NewEngine(addrs.Incentives),
		credit:     creditmanager.NewEngine(addrs.CreditManager),
	}
	a.vaults = adapters.NewVaults(a.bank)
	a.zapper = adapters.NewZapper(a.bank)
	a.staker = adapters.NewStaker(addrs.Staker, addrs.CreditManager, a.bank)
	a.swapper = adapters.NewSwapper(addrs.Swapper, a.bank, a.oracle, swapFee)

	a.bank.SetState(manager)

	a.params.SetState(manager)
	a.params.SetEmitter(emitter)

	a.oracle.SetState(manager)
	a.oracle.SetEmitter(emitter)

	a.lending.SetState(manager)
	a.lending.SetBank(a.bank)
	a.lending.SetParams(a.params)
	a.lending.SetOracle(a.oracle)
	a.lending.SetIncentives(a.incentives)
	a.lending.SetPauses(a.params)
	a.lending.SetEmitter(emitter)
	a.lending.SetBlockTime(blockTime)

	a.incentives.SetState(manager)
	a.incentives.SetCollateralSource(a.lending)
	a.incentives.SetBank(a.bank)
	a.incentives.SetPauses(a.params)
	a.incentives.SetEmitter(emitter)
	a.incentives.SetBlockTime(blockTime)

	a.vaults.SetState(manager)
	a.vaults.SetBlockTime(blockTime)
	a.zapper.SetState(manager)
	a.staker.SetState(manager)
	a.staker.SetBlockTime(blockTime)

	a.credit.SetState(manager)
	a.credit.SetPool(a.lending)
	a.credit.SetBank(a.bank)
	a.credit.SetParams(a.params)
	a.credit.SetOracle(a.oracle)
	a.credit.SetIncentives(a.incentives)
	a.credit.SetSwapper(a.swapper)
	a.credit.SetVaults(a.vaults)
	a.credit.SetZapper(a.zapper)
	a.credit.SetStaker(a.staker)
	a.credit.SetPauses(a.params)
	a.credit.SetEmitter(emitter)
	a.credit.SetBlockTime(blockTime)
	return a
}

// moduleAddress resolves the account that receives the funds attached to a
// message addressed to module.
func (a Addresses) moduleAddress(module string) string {
	switch module {
	case lending.ModuleName:
		return a.Lending
	case incentives.ModuleName:
		return a.Incentives
	case creditmanager.ModuleName:
		return a.CreditManager
	default:
		return ""
	}
}

// identity resolves the pool identity a message speaks for.
func identityOf(address, accountID string) types.Identity {
	if accountID == "" {
		return types.NewIdentity(address)
	}
	return types.NewAccountIdentity(address, accountID)
}
