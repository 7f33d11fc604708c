package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/blang/semver/v4"

	"github.com/mars-protocol/contracts-sub007/core/events"
	"github.com/mars-protocol/contracts-sub007/core/genesis"
	"github.com/mars-protocol/contracts-sub007/core/state"
	nativecommon "github.com/mars-protocol/contracts-sub007/native/common"
	"github.com/mars-protocol/contracts-sub007/native/creditmanager"
	"github.com/mars-protocol/contracts-sub007/native/incentives"
	"github.com/mars-protocol/contracts-sub007/native/lending"
	"github.com/mars-protocol/contracts-sub007/native/oracle"
	"github.com/mars-protocol/contracts-sub007/native/params"
)

const (
	ContractName    = "mars-protocol/lending-core"
	ContractVersion = "2.0.0"
)

var (
	ErrAlreadyInitialized = errors.New("genesis: store already initialized")
	ErrVersionMismatch    = errors.New("migrate: stored version mismatch")
	ErrNotUpgrade         = errors.New("migrate: target version is not newer")
)

var ownedModules = []string{
	params.ModuleName,
	oracle.ModuleName,
	lending.ModuleName,
	incentives.ModuleName,
	creditmanager.ModuleName,
}

// InitGenesis writes the initial protocol state described by spec. It fails
// when the store already carries a contract version.
func (d *Dispatcher) InitGenesis(ctx context.Context, spec *genesis.GenesisSpec) (*Result, error) {
	if spec == nil {
		return nil, fmt.Errorf("genesis: spec required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	result, err := d.withOverlay(func(manager *state.Manager, buf *events.Buffer) (json.RawMessage, error) {
		if _, ok, err := manager.ContractVersion(); err != nil {
			return nil, err
		} else if ok {
			return nil, ErrAlreadyInitialized
		}
		for _, module := range ownedModules {
			if err := manager.SetModuleOwner(module, nativecommon.NewOwnerState(spec.Owner)); err != nil {
				return nil, err
			}
		}
		a := newApp(manager, buf, spec.BlockTime(), d.addrs, d.swapFee)
		if err := a.applyGenesis(spec, d.addrs); err != nil {
			return nil, err
		}
		return nil, manager.SetContractVersion(state.ContractVersion{Contract: ContractName, Version: ContractVersion})
	})
	if err != nil {
		d.logger.LogAttrs(ctx, slog.LevelError, "genesis failed", slog.Any("error", err))
		return nil, err
	}
	d.logger.LogAttrs(ctx, slog.LevelInfo, "genesis applied",
		slog.String("version", ContractVersion),
		slog.Int("markets", len(spec.Markets)),
		slog.Int("assets", len(spec.Assets)))
	return result, nil
}

func (a *app) applyGenesis(spec *genesis.GenesisSpec, addrs Addresses) error {
	owner := spec.Owner
	if err := a.lending.UpdateConfig(owner, spec.LendingConfig(addrs.CreditManager)); err != nil {
		return fmt.Errorf("lending config: %w", err)
	}
	if err := a.credit.UpdateConfig(owner, spec.CreditManagerConfig()); err != nil {
		return fmt.Errorf("credit manager config: %w", err)
	}
	for i := range spec.Assets {
		if err := a.params.UpdateAssetParams(owner, spec.Assets[i].Params()); err != nil {
			return fmt.Errorf("asset %s: %w", spec.Assets[i].Denom, err)
		}
	}
	for i := range spec.Markets {
		m := &spec.Markets[i]
		if err := a.lending.InitAsset(owner, m.Denom, m.Params()); err != nil {
			return fmt.Errorf("market %s: %w", m.Denom, err)
		}
	}
	for i := range spec.Vaults {
		v := &spec.Vaults[i]
		if err := a.params.UpdateVaultConfig(owner, v.Config()); err != nil {
			return fmt.Errorf("vault %s: %w", v.Addr, err)
		}
		if err := a.vaults.Register(v.Addr, v.Info()); err != nil {
			return fmt.Errorf("vault %s: %w", v.Addr, err)
		}
	}
	for _, p := range spec.Pools {
		if err := a.zapper.RegisterPool(p.LpDenom, p.Addr, p.Denoms[0], p.Denoms[1]); err != nil {
			return fmt.Errorf("pool %s: %w", p.LpDenom, err)
		}
	}
	for i := range spec.Farms {
		f := &spec.Farms[i]
		if err := a.staker.RegisterFarm(f.LpDenom, f.RewardDenom, f.PerSecond()); err != nil {
			return fmt.Errorf("farm %s: %w", f.LpDenom, err)
		}
	}
	for i := range spec.Prices {
		p := &spec.Prices[i]
		if err := a.oracle.SetPriceSource(owner, p.Denom, p.ActionKind(), p.Source()); err != nil {
			return fmt.Errorf("price %s: %w", p.Denom, err)
		}
	}
	if len(spec.IncentiveWhitelist) > 0 {
		if err := a.incentives.UpdateWhitelist(owner, spec.IncentiveWhitelist, nil); err != nil {
			return fmt.Errorf("incentive whitelist: %w", err)
		}
	}
	holders, alloc := spec.Allocations()
	for _, addr := range holders {
		if err := a.bank.Mint(addr, alloc[addr]); err != nil {
			return fmt.Errorf("alloc %s: %w", addr, err)
		}
	}
	return nil
}

// Migrate upgrades state written by fromVersion to the current layout.
// Markets still carrying a single-slope rate model are rewritten onto the
// two-slope curve.
func (d *Dispatcher) Migrate(ctx context.Context, fromVersion string) (*Result, error) {
	from, err := semver.ParseTolerant(fromVersion)
	if err != nil {
		return nil, fmt.Errorf("migrate: from version: %w", err)
	}
	to := semver.MustParse(ContractVersion)
	if !from.LT(to) {
		return nil, fmt.Errorf("%w: %s >= %s", ErrNotUpgrade, from, to)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	result, err := d.withOverlay(func(manager *state.Manager, buf *events.Buffer) (json.RawMessage, error) {
		stored, ok, err := manager.ContractVersion()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, state.ErrContractVersionMissing
		}
		if stored.Contract != ContractName {
			return nil, fmt.Errorf("%w: contract %q", ErrVersionMismatch, stored.Contract)
		}
		current, err := semver.ParseTolerant(stored.Version)
		if err != nil {
			return nil, fmt.Errorf("migrate: stored version: %w", err)
		}
		if !current.Equals(from) {
			return nil, fmt.Errorf("%w: stored %s, expected %s", ErrVersionMismatch, current, from)
		}
		migrated, err := migrateInterestModels(manager)
		if err != nil {
			return nil, err
		}
		if err := manager.SetContractVersion(state.ContractVersion{Contract: ContractName, Version: to.String()}); err != nil {
			return nil, err
		}
		buf.Emit(events.ContractMigrated{From: from.String(), To: to.String()})
		return encodeData(map[string]any{"from": from.String(), "to": to.String(), "markets": migrated})
	})
	if err != nil {
		d.logger.LogAttrs(ctx, slog.LevelError, "migration failed",
			slog.String("from", fromVersion), slog.Any("error", err))
		return nil, err
	}
	d.logger.LogAttrs(ctx, slog.LevelInfo, "migration applied",
		slog.String("from", from.String()), slog.String("to", to.String()))
	return result, nil
}

func migrateInterestModels(manager *state.Manager) ([]string, error) {
	denoms, err := manager.LegacyInterestModelDenoms()
	if err != nil {
		return nil, err
	}
	migrated := make([]string, 0, len(denoms))
	for _, denom := range denoms {
		legacy, ok, err := manager.LegacyInterestModel(denom)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		market, ok, err := manager.Market(denom)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("migrate: legacy rate model for unknown market %q", denom)
		}
		market.InterestRateModel = legacy.TwoSlope()
		if err := manager.PutMarket(market); err != nil {
			return nil, err
		}
		if err := manager.DeleteLegacyInterestModel(denom); err != nil {
			return nil, err
		}
		migrated = append(migrated, denom)
	}
	return migrated, nil
}
