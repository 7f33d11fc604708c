package state

import (
	"fmt"

	"github.com/mars-protocol/contracts-sub007/core/numeric"
	"github.com/mars-protocol/contracts-sub007/core/types"
	"github.com/mars-protocol/contracts-sub007/native/lending"
)

var (
	lendingConfigKey      = []byte("lending:config")
	lendingMarketIndexKey = []byte("lending:markets")
	lendingLegacyIndexKey = []byte("lending:legacy-irm")
)

func marketKey(denom string) []byte { return joinKey("lending", "market", denom) }

func collateralKey(user types.Identity, denom string) []byte {
	return joinKey("lending", "collateral", user.Key(), denom)
}

func collateralIndexKey(user types.Identity) []byte {
	return joinKey("lending", "collateral-denoms", user.Key())
}

func debtKey(user types.Identity, denom string) []byte {
	return joinKey("lending", "debt", user.Key(), denom)
}

func debtIndexKey(user types.Identity) []byte {
	return joinKey("lending", "debt-denoms", user.Key())
}

func legacyModelKey(denom string) []byte { return joinKey("lending", "legacy-irm", denom) }

// Market loads the market of denom.
func (m *Manager) Market(denom string) (*lending.Market, bool, error) {
	market := new(lending.Market)
	ok, err := m.KVGet(marketKey(denom), market)
	if err != nil || !ok {
		return nil, ok, err
	}
	market.CollateralTotalScaled = numeric.IntOrZero(market.CollateralTotalScaled)
	market.DebtTotalScaled = numeric.IntOrZero(market.DebtTotalScaled)
	return market, true, nil
}

// PutMarket stores the market and records its denom in the market index.
func (m *Manager) PutMarket(market *lending.Market) error {
	if market == nil || market.Denom == "" {
		return fmt.Errorf("state: market denom required")
	}
	if err := m.KVPut(marketKey(market.Denom), market); err != nil {
		return err
	}
	return m.KVAppend(lendingMarketIndexKey, []byte(market.Denom))
}

func (m *Manager) MarketDenoms() ([]string, error) {
	return m.stringList(lendingMarketIndexKey)
}

func (m *Manager) Collateral(user types.Identity, denom string) (*lending.Collateral, bool, error) {
	entry := new(lending.Collateral)
	ok, err := m.KVGet(collateralKey(user, denom), entry)
	if err != nil || !ok {
		return nil, ok, err
	}
	entry.AmountScaled = numeric.IntOrZero(entry.AmountScaled)
	return entry, true, nil
}

func (m *Manager) PutCollateral(user types.Identity, denom string, entry *lending.Collateral) error {
	if entry == nil {
		return m.DeleteCollateral(user, denom)
	}
	if err := m.KVPut(collateralKey(user, denom), entry); err != nil {
		return err
	}
	return m.KVAppend(collateralIndexKey(user), []byte(denom))
}

func (m *Manager) DeleteCollateral(user types.Identity, denom string) error {
	if err := m.KVDelete(collateralKey(user, denom)); err != nil {
		return err
	}
	return m.KVRemove(collateralIndexKey(user), []byte(denom))
}

func (m *Manager) CollateralDenoms(user types.Identity) ([]string, error) {
	return m.stringList(collateralIndexKey(user))
}

func (m *Manager) Debt(user types.Identity, denom string) (*lending.Debt, bool, error) {
	entry := new(lending.Debt)
	ok, err := m.KVGet(debtKey(user, denom), entry)
	if err != nil || !ok {
		return nil, ok, err
	}
	entry.AmountScaled = numeric.IntOrZero(entry.AmountScaled)
	return entry, true, nil
}

func (m *Manager) PutDebt(user types.Identity, denom string, entry *lending.Debt) error {
	if entry == nil {
		return m.DeleteDebt(user, denom)
	}
	if err := m.KVPut(debtKey(user, denom), entry); err != nil {
		return err
	}
	return m.KVAppend(debtIndexKey(user), []byte(denom))
}

func (m *Manager) DeleteDebt(user types.Identity, denom string) error {
	if err := m.KVDelete(debtKey(user, denom)); err != nil {
		return err
	}
	return m.KVRemove(debtIndexKey(user), []byte(denom))
}

func (m *Manager) DebtDenoms(user types.Identity) ([]string, error) {
	return m.stringList(debtIndexKey(user))
}

func (m *Manager) LendingConfig() (*lending.Config, bool, error) {
	cfg := new(lending.Config)
	ok, err := m.KVGet(lendingConfigKey, cfg)
	if err != nil || !ok {
		return nil, ok, err
	}
	return cfg, true, nil
}

func (m *Manager) PutLendingConfig(cfg *lending.Config) error {
	if cfg == nil {
		return fmt.Errorf("state: lending config required")
	}
	return m.KVPut(lendingConfigKey, cfg)
}

// LegacyInterestModel is a single-slope model left behind by the first state
// layout. Migration rewrites these onto the markets.
func (m *Manager) LegacyInterestModel(denom string) (*lending.LinearInterestRateModel, bool, error) {
	model := new(lending.LinearInterestRateModel)
	ok, err := m.KVGet(legacyModelKey(denom), model)
	if err != nil || !ok {
		return nil, ok, err
	}
	return model, true, nil
}

func (m *Manager) PutLegacyInterestModel(denom string, model *lending.LinearInterestRateModel) error {
	if model == nil {
		return fmt.Errorf("state: legacy model required")
	}
	if err := m.KVPut(legacyModelKey(denom), model); err != nil {
		return err
	}
	return m.KVAppend(lendingLegacyIndexKey, []byte(denom))
}

func (m *Manager) DeleteLegacyInterestModel(denom string) error {
	if err := m.KVDelete(legacyModelKey(denom)); err != nil {
		return err
	}
	return m.KVRemove(lendingLegacyIndexKey, []byte(denom))
}

func (m *Manager) LegacyInterestModelDenoms() ([]string, error) {
	return m.stringList(lendingLegacyIndexKey)
}
