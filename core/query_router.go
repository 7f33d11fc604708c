package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mars-protocol/contracts-sub007/core/events"
	"github.com/mars-protocol/contracts-sub007/core/state"
	"github.com/mars-protocol/contracts-sub007/core/types"
	"github.com/mars-protocol/contracts-sub007/native/creditmanager"
	"github.com/mars-protocol/contracts-sub007/native/health"
	"github.com/mars-protocol/contracts-sub007/native/incentives"
	"github.com/mars-protocol/contracts-sub007/native/lending"
	"github.com/mars-protocol/contracts-sub007/native/oracle"
	"github.com/mars-protocol/contracts-sub007/native/params"
	"github.com/mars-protocol/contracts-sub007/observability"
)

// QueryState resolves a read-only query against committed state as of
// blockTime. Paths are slash separated; denoms and identity keys always come
// last so they may contain slashes themselves.
func (d *Dispatcher) QueryState(ctx context.Context, blockTime uint64, namespace, key string) (*QueryResult, error) {
	ns := strings.TrimSpace(strings.ToLower(namespace))
	path := strings.TrimSpace(key)
	_, span := d.tracer.Start(ctx, "query."+ns)
	defer span.End()

	d.mu.RLock()
	defer d.mu.RUnlock()

	manager := state.NewManager(d.db)
	a := newApp(manager, events.NoopEmitter{}, blockTime, d.addrs, d.swapFee)
	var (
		value any
		err   error
	)
	switch ns {
	case "contract":
		value, err = queryContract(manager, path)
	case "bank":
		value, err = a.queryBank(path)
	case params.ModuleName:
		value, err = a.queryParams(path)
	case oracle.ModuleName:
		value, err = a.queryOracle(path)
	case lending.ModuleName:
		value, err = a.queryLending(path)
	case incentives.ModuleName:
		value, err = a.queryIncentives(path)
	case creditmanager.ModuleName:
		value, err = a.queryCreditManager(path)
	default:
		err = ErrQueryNotSupported
	}
	observability.Turns().ObserveQuery(ns, err)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return &QueryResult{Value: payload}, nil
}

// splitPath cuts the leading segment from path.
func splitPath(path string) (string, string) {
	head, rest, _ := strings.Cut(path, "/")
	return head, rest
}

func requireArg(name, v string) (string, error) {
	if strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("query: %s required", name)
	}
	return v, nil
}

func queryContract(manager *state.Manager, path string) (any, error) {
	if path != "version" {
		return nil, ErrQueryNotSupported
	}
	v, ok, err := manager.ContractVersion()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, state.ErrContractVersionMissing
	}
	return map[string]string{"contract": v.Contract, "version": v.Version}, nil
}

func ownerView(manager *state.Manager, module string) (any, error) {
	owner, err := manager.ModuleOwner(module)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"owner":     owner.Owner,
		"proposed":  owner.Proposed,
		"abolished": owner.Abolished,
	}, nil
}

func (a *app) queryBank(path string) (any, error) {
	head, rest := splitPath(path)
	switch head {
	case "balances":
		addr, err := requireArg("address", rest)
		if err != nil {
			return nil, err
		}
		coins, err := a.bank.Balances(addr)
		if err != nil {
			return nil, err
		}
		if coins == nil {
			coins = types.Coins{}
		}
		return coins, nil
	case "balance":
		addr, denom := splitPath(rest)
		if _, err := requireArg("denom", denom); err != nil {
			return nil, err
		}
		amount, err := a.bank.Balance(addr, denom)
		if err != nil {
			return nil, err
		}
		return types.NewCoinBig(denom, amount), nil
	default:
		return nil, ErrQueryNotSupported
	}
}

func (a *app) queryParams(path string) (any, error) {
	head, rest := splitPath(path)
	switch head {
	case "owner":
		return ownerView(a.manager, params.ModuleName)
	case "assets":
		all, err := a.params.AllAssetParams()
		if err != nil {
			return nil, err
		}
		if all == nil {
			all = []*params.AssetParams{}
		}
		return all, nil
	case "asset":
		denom, err := requireArg("denom", rest)
		if err != nil {
			return nil, err
		}
		return a.params.AssetParams(denom)
	case "vaults":
		all, err := a.params.AllVaultConfigs()
		if err != nil {
			return nil, err
		}
		if all == nil {
			all = []*params.VaultConfig{}
		}
		return all, nil
	case "vault":
		addr, err := requireArg("address", rest)
		if err != nil {
			return nil, err
		}
		return a.params.VaultConfig(addr)
	case "paused":
		module, err := requireArg("module", rest)
		if err != nil {
			return nil, err
		}
		return map[string]bool{"paused": a.params.IsPaused(module)}, nil
	default:
		return nil, ErrQueryNotSupported
	}
}

func (a *app) queryOracle(path string) (any, error) {
	head, rest := splitPath(path)
	switch head {
	case "owner":
		return ownerView(a.manager, oracle.ModuleName)
	case "price":
		kindText, denom := splitPath(rest)
		kind, err := oracle.ParseActionKind(kindText)
		if err != nil {
			return nil, err
		}
		if _, err := requireArg("denom", denom); err != nil {
			return nil, err
		}
		price, err := a.oracle.Price(denom, kind)
		if err != nil {
			return nil, err
		}
		return map[string]string{"denom": denom, "price": price.String()}, nil
	case "sources":
		kind, err := oracle.ParseActionKind(rest)
		if err != nil {
			return nil, err
		}
		sources, denoms, err := a.oracle.Sources(kind)
		if err != nil {
			return nil, err
		}
		out := make(map[string]oracle.SourceConfig, len(denoms))
		for _, denom := range denoms {
			out[denom] = oracle.NewSourceConfig(sources[denom])
		}
		return out, nil
	default:
		return nil, ErrQueryNotSupported
	}
}

func (a *app) queryLending(path string) (any, error) {
	head, rest := splitPath(path)
	switch head {
	case "owner":
		return ownerView(a.manager, lending.ModuleName)
	case "config":
		return a.lending.Config()
	case "markets":
		markets, err := a.lending.Markets()
		if err != nil {
			return nil, err
		}
		if markets == nil {
			markets = []*lending.Market{}
		}
		return markets, nil
	case "market":
		denom, err := requireArg("denom", rest)
		if err != nil {
			return nil, err
		}
		return a.lending.Market(denom)
	case "collaterals":
		key, err := requireArg("user", rest)
		if err != nil {
			return nil, err
		}
		return a.lending.UserCollateralAmounts(types.ParseIdentityKey(key))
	case "debts":
		key, err := requireArg("user", rest)
		if err != nil {
			return nil, err
		}
		return a.lending.UserDebtAmounts(types.ParseIdentityKey(key))
	case "position":
		kindText, key := splitPath(rest)
		kind, err := oracle.ParseActionKind(kindText)
		if err != nil {
			return nil, err
		}
		if _, err := requireArg("user", key); err != nil {
			return nil, err
		}
		return a.lending.UserPosition(types.ParseIdentityKey(key), kind)
	default:
		return nil, ErrQueryNotSupported
	}
}

func (a *app) queryIncentives(path string) (any, error) {
	head, rest := splitPath(path)
	switch head {
	case "owner":
		return ownerView(a.manager, incentives.ModuleName)
	case "schedules":
		schedules, err := a.incentives.Schedules()
		if err != nil {
			return nil, err
		}
		if schedules == nil {
			schedules = []*incentives.Schedule{}
		}
		return schedules, nil
	case "active":
		schedules, err := a.incentives.ActiveSchedules()
		if err != nil {
			return nil, err
		}
		if schedules == nil {
			schedules = []*incentives.Schedule{}
		}
		return schedules, nil
	case "rewards":
		key, err := requireArg("user", rest)
		if err != nil {
			return nil, err
		}
		rewards, err := a.incentives.UserUnclaimedRewards(types.ParseIdentityKey(key))
		if err != nil {
			return nil, err
		}
		if rewards == nil {
			rewards = []incentives.UserReward{}
		}
		return rewards, nil
	case "whitelist":
		denoms, err := a.incentives.Whitelist()
		if err != nil {
			return nil, err
		}
		if denoms == nil {
			denoms = []string{}
		}
		return denoms, nil
	default:
		return nil, ErrQueryNotSupported
	}
}

func (a *app) queryCreditManager(path string) (any, error) {
	head, rest := splitPath(path)
	switch head {
	case "owner":
		return ownerView(a.manager, creditmanager.ModuleName)
	case "config":
		return a.credit.Config()
	case "total":
		total, err := a.credit.TotalAccounts()
		if err != nil {
			return nil, err
		}
		return map[string]uint64{"total": total}, nil
	case "account":
		id, err := requireArg("account id", rest)
		if err != nil {
			return nil, err
		}
		return a.credit.Account(id)
	case "accounts":
		owner, err := requireArg("owner", rest)
		if err != nil {
			return nil, err
		}
		accounts, err := a.credit.AccountsOf(owner)
		if err != nil {
			return nil, err
		}
		if accounts == nil {
			accounts = []*creditmanager.Account{}
		}
		return accounts, nil
	case "positions":
		id, err := requireArg("account id", rest)
		if err != nil {
			return nil, err
		}
		return a.credit.Positions(id)
	case "health":
		kindText, id := splitPath(rest)
		kind, err := oracle.ParseActionKind(kindText)
		if err != nil {
			return nil, err
		}
		if _, err := requireArg("account id", id); err != nil {
			return nil, err
		}
		return a.credit.Health(id, kind)
	case "max-withdraw":
		id, denom := splitPath(rest)
		if _, err := requireArg("denom", denom); err != nil {
			return nil, err
		}
		amount, err := a.credit.MaxWithdrawEstimate(id, denom)
		if err != nil {
			return nil, err
		}
		return types.NewCoinBig(denom, amount), nil
	case "max-borrow":
		id, denom := splitPath(rest)
		if _, err := requireArg("denom", denom); err != nil {
			return nil, err
		}
		amount, err := a.credit.MaxBorrowEstimate(id, denom, health.WalletTarget())
		if err != nil {
			return nil, err
		}
		return types.NewCoinBig(denom, amount), nil
	default:
		return nil, ErrQueryNotSupported
	}
}
