package state

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/mars-protocol/contracts-sub007/core/numeric"
	"github.com/mars-protocol/contracts-sub007/core/types"
	"github.com/mars-protocol/contracts-sub007/native/incentives"
)

var (
	incentiveScheduleIndexKey  = []byte("incentives:schedules")
	incentiveWhitelistIndexKey = []byte("incentives:whitelist")
)

// scheduleID joins the pair with '|', which ValidateDenom rejects inside a
// denom.
func scheduleID(collateralDenom, incentiveDenom string) string {
	return collateralDenom + "|" + incentiveDenom
}

func incentiveScheduleKey(collateralDenom, incentiveDenom string) []byte {
	return joinKey("incentives", "schedule", scheduleID(collateralDenom, incentiveDenom))
}

func userIncentiveIndexKey(user types.Identity, collateralDenom, incentiveDenom string) []byte {
	return joinKey("incentives", "user-index", user.Key(), scheduleID(collateralDenom, incentiveDenom))
}

func unclaimedRewardsKey(user types.Identity, collateralDenom, incentiveDenom string) []byte {
	return joinKey("incentives", "unclaimed", user.Key(), scheduleID(collateralDenom, incentiveDenom))
}

func incentiveWhitelistKey(denom string) []byte { return joinKey("incentives", "whitelist", denom) }

func (m *Manager) IncentiveSchedule(collateralDenom, incentiveDenom string) (*incentives.Schedule, bool, error) {
	s := new(incentives.Schedule)
	ok, err := m.KVGet(incentiveScheduleKey(collateralDenom, incentiveDenom), s)
	if err != nil || !ok {
		return nil, ok, err
	}
	s.EmissionPerSecond = numeric.IntOrZero(s.EmissionPerSecond)
	return s, true, nil
}

func (m *Manager) PutIncentiveSchedule(s *incentives.Schedule) error {
	if s == nil || s.CollateralDenom == "" || s.IncentiveDenom == "" {
		return fmt.Errorf("state: schedule denoms required")
	}
	if err := m.KVPut(incentiveScheduleKey(s.CollateralDenom, s.IncentiveDenom), s); err != nil {
		return err
	}
	return m.KVAppend(incentiveScheduleIndexKey, []byte(scheduleID(s.CollateralDenom, s.IncentiveDenom)))
}

// IncentiveSchedules returns every schedule in creation order.
func (m *Manager) IncentiveSchedules() ([]*incentives.Schedule, error) {
	ids, err := m.stringList(incentiveScheduleIndexKey)
	if err != nil {
		return nil, err
	}
	out := make([]*incentives.Schedule, 0, len(ids))
	for _, id := range ids {
		collateral, incentive, ok := strings.Cut(id, "|")
		if !ok {
			return nil, fmt.Errorf("state: malformed schedule id %q", id)
		}
		s, found, err := m.IncentiveSchedule(collateral, incentive)
		if err != nil {
			return nil, err
		}
		if found {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *Manager) UserIncentiveIndex(user types.Identity, collateralDenom, incentiveDenom string) (numeric.Decimal, bool, error) {
	var index numeric.Decimal
	ok, err := m.KVGet(userIncentiveIndexKey(user, collateralDenom, incentiveDenom), &index)
	if err != nil || !ok {
		return numeric.Decimal{}, ok, err
	}
	return index, true, nil
}

func (m *Manager) PutUserIncentiveIndex(user types.Identity, collateralDenom, incentiveDenom string, index numeric.Decimal) error {
	return m.KVPut(userIncentiveIndexKey(user, collateralDenom, incentiveDenom), index)
}

func (m *Manager) UnclaimedRewards(user types.Identity, collateralDenom, incentiveDenom string) (*big.Int, error) {
	amount := new(big.Int)
	if _, err := m.KVGet(unclaimedRewardsKey(user, collateralDenom, incentiveDenom), amount); err != nil {
		return nil, err
	}
	return amount, nil
}

func (m *Manager) PutUnclaimedRewards(user types.Identity, collateralDenom, incentiveDenom string, amount *big.Int) error {
	key := unclaimedRewardsKey(user, collateralDenom, incentiveDenom)
	if amount == nil || amount.Sign() == 0 {
		return m.KVDelete(key)
	}
	return m.KVPut(key, amount)
}

func (m *Manager) IncentiveWhitelisted(denom string) (bool, error) {
	return m.KVGet(incentiveWhitelistKey(denom), nil)
}

func (m *Manager) SetIncentiveWhitelisted(denom string, listed bool) error {
	if !listed {
		if err := m.KVDelete(incentiveWhitelistKey(denom)); err != nil {
			return err
		}
		return m.KVRemove(incentiveWhitelistIndexKey, []byte(denom))
	}
	if err := m.KVPut(incentiveWhitelistKey(denom), true); err != nil {
		return err
	}
	return m.KVAppend(incentiveWhitelistIndexKey, []byte(denom))
}

func (m *Manager) IncentiveWhitelist() ([]string, error) {
	return m.stringList(incentiveWhitelistIndexKey)
}
