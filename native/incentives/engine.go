package incentives

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/mars-protocol/contracts-sub007/core/events"
	"github.com/mars-protocol/contracts-sub007/core/numeric"
	"github.com/mars-protocol/contracts-sub007/core/types"
	nativecommon "github.com/mars-protocol/contracts-sub007/native/common"
)

const ModuleName = "incentives"

var errNilState = errors.New("incentives: state not configured")

type engineState interface {
	nativecommon.OwnerStore
	IncentiveSchedule(collateralDenom, incentiveDenom string) (*Schedule, bool, error)
	PutIncentiveSchedule(s *Schedule) error
	IncentiveSchedules() ([]*Schedule, error)
	UserIncentiveIndex(user types.Identity, collateralDenom, incentiveDenom string) (numeric.Decimal, bool, error)
	PutUserIncentiveIndex(user types.Identity, collateralDenom, incentiveDenom string, index numeric.Decimal) error
	UnclaimedRewards(user types.Identity, collateralDenom, incentiveDenom string) (*big.Int, error)
	PutUnclaimedRewards(user types.Identity, collateralDenom, incentiveDenom string, amount *big.Int) error
	IncentiveWhitelisted(denom string) (bool, error)
	SetIncentiveWhitelisted(denom string, listed bool) error
	IncentiveWhitelist() ([]string, error)
}

// CollateralSource exposes the scaled collateral balances of the pool.
type CollateralSource interface {
	TotalCollateralScaled(denom string) (*big.Int, error)
	UserCollateralScaled(user types.Identity, denom string) (*big.Int, error)
}

// Bank pays out claimed rewards from the module address.
type Bank interface {
	Send(from, to string, coin types.Coin) error
}

// Engine keeps emission schedules and per-user reward indexes for pool
// collateral.
type Engine struct {
	state         engineState
	moduleAddress string
	collateral    CollateralSource
	bank          Bank
	pauses        nativecommon.PauseView
	emitter       events.Emitter
	blockTime     uint64
}

func NewEngine(moduleAddr string) *Engine {
	return &Engine{moduleAddress: moduleAddr, emitter: events.NoopEmitter{}}
}

func (e *Engine) SetState(state engineState) { e.state = state }

// SetCollateralSource wires the pool whose deposits earn incentives.
func (e *Engine) SetCollateralSource(src CollateralSource) { e.collateral = src }

func (e *Engine) SetBank(bank Bank) { e.bank = bank }

func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
}

func (e *Engine) SetBlockTime(t uint64) { e.blockTime = t }

func (e *Engine) ModuleAddress() string { return e.moduleAddress }

func (e *Engine) withState() (engineState, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state, nil
}

func (e *Engine) mutable() (engineState, error) {
	state, err := e.withState()
	if err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, ModuleName); err != nil {
		return nil, err
	}
	return state, nil
}

func (e *Engine) schedulesOf(state engineState, collateralDenom string) ([]*Schedule, error) {
	all, err := state.IncentiveSchedules()
	if err != nil {
		return nil, err
	}
	out := make([]*Schedule, 0, len(all))
	for _, s := range all {
		if s != nil && s.CollateralDenom == collateralDenom {
			out = append(out, s)
		}
	}
	return out, nil
}

// accrueUser settles the reward of user in s given the scaled balance held
// since the last settlement. s must already be advanced.
func (e *Engine) accrueUser(state engineState, s *Schedule, user types.Identity, userScaled *big.Int) error {
	userIndex, _, err := state.UserIncentiveIndex(user, s.CollateralDenom, s.IncentiveDenom)
	if err != nil {
		return err
	}
	if userIndex.Equal(s.Index) {
		return nil
	}
	earned, err := accrued(userScaled, userIndex, s.Index)
	if err != nil {
		return err
	}
	if earned.Sign() > 0 {
		unclaimed, err := state.UnclaimedRewards(user, s.CollateralDenom, s.IncentiveDenom)
		if err != nil {
			return err
		}
		total := new(big.Int).Add(numeric.IntOrZero(unclaimed), earned)
		if err := state.PutUnclaimedRewards(user, s.CollateralDenom, s.IncentiveDenom, total); err != nil {
			return err
		}
	}
	return state.PutUserIncentiveIndex(user, s.CollateralDenom, s.IncentiveDenom, s.Index)
}

// BalanceChange is called by the pool before the scaled collateral of user
// in denom changes. The values passed are the balances before the change.
func (e *Engine) BalanceChange(user types.Identity, denom string, userScaledBefore, totalScaledBefore *big.Int) error {
	state, err := e.withState()
	if err != nil {
		return err
	}
	schedules, err := e.schedulesOf(state, denom)
	if err != nil {
		return err
	}
	for _, s := range schedules {
		if err := s.advance(e.blockTime, totalScaledBefore); err != nil {
			return err
		}
		if err := state.PutIncentiveSchedule(s); err != nil {
			return err
		}
		if err := e.accrueUser(state, s, user, userScaledBefore); err != nil {
			return err
		}
	}
	return nil
}

// SetAssetIncentive installs a schedule funded by the attached funds, which
// must already sit at the module address and equal the total emission. Any
// sender may fund a whitelisted incentive denom.
func (e *Engine) SetAssetIncentive(sender, collateralDenom, incentiveDenom string, emissionPerSecond *big.Int, startTime, duration uint64, funds types.Coins) error {
	state, err := e.mutable()
	if err != nil {
		return err
	}
	listed, err := state.IncentiveWhitelisted(incentiveDenom)
	if err != nil {
		return err
	}
	if !listed {
		return fmt.Errorf("%w: %s", ErrNotWhitelisted, incentiveDenom)
	}
	if startTime < e.blockTime {
		return fmt.Errorf("%w: %d < %d", ErrInvalidStartTime, startTime, e.blockTime)
	}
	next := &Schedule{
		CollateralDenom:   collateralDenom,
		IncentiveDenom:    incentiveDenom,
		EmissionPerSecond: numeric.IntOrZero(emissionPerSecond),
		StartTime:         startTime,
		Duration:          duration,
		Index:             numeric.Zero(),
		LastUpdated:       e.blockTime,
	}
	if err := next.validate(); err != nil {
		return err
	}
	funds = funds.Normalize()
	if len(funds) != 1 || funds[0].Denom != incentiveDenom || funds[0].Amount.Cmp(next.TotalEmission()) != 0 {
		return fmt.Errorf("%w: expected %s%s, got %s", ErrFundsMismatch, next.TotalEmission(), incentiveDenom, funds)
	}

	current, ok, err := state.IncentiveSchedule(collateralDenom, incentiveDenom)
	if err != nil {
		return err
	}
	if ok && current != nil {
		if e.blockTime < current.EndTime() {
			return fmt.Errorf("%w: %s/%s ends at %d", ErrScheduleActive, collateralDenom, incentiveDenom, current.EndTime())
		}
		// Settle the old window so the index carries over.
		total, err := e.totalScaled(collateralDenom)
		if err != nil {
			return err
		}
		if err := current.advance(e.blockTime, total); err != nil {
			return err
		}
		next.Index = current.Index
	}
	if err := state.PutIncentiveSchedule(next); err != nil {
		return err
	}
	e.emitter.Emit(events.IncentiveSet{
		CollateralDenom:   collateralDenom,
		IncentiveDenom:    incentiveDenom,
		EmissionPerSecond: next.EmissionPerSecond,
		StartTime:         startTime,
		Duration:          duration,
	})
	return nil
}

func (e *Engine) totalScaled(denom string) (*big.Int, error) {
	if e.collateral == nil {
		return nil, ErrCollateralSourceNil
	}
	return e.collateral.TotalCollateralScaled(denom)
}

// ClaimRewards settles every schedule for user and pays the tally to
// recipient. The claimed coins are returned.
func (e *Engine) ClaimRewards(user types.Identity, recipient string) (types.Coins, error) {
	state, err := e.mutable()
	if err != nil {
		return nil, err
	}
	if e.collateral == nil {
		return nil, ErrCollateralSourceNil
	}
	if strings.TrimSpace(recipient) == "" {
		recipient = user.Address
	}
	schedules, err := state.IncentiveSchedules()
	if err != nil {
		return nil, err
	}
	claimed := types.Coins{}
	for _, s := range schedules {
		total, err := e.collateral.TotalCollateralScaled(s.CollateralDenom)
		if err != nil {
			return nil, err
		}
		userScaled, err := e.collateral.UserCollateralScaled(user, s.CollateralDenom)
		if err != nil {
			return nil, err
		}
		if err := s.advance(e.blockTime, total); err != nil {
			return nil, err
		}
		if err := state.PutIncentiveSchedule(s); err != nil {
			return nil, err
		}
		if err := e.accrueUser(state, s, user, userScaled); err != nil {
			return nil, err
		}
		unclaimed, err := state.UnclaimedRewards(user, s.CollateralDenom, s.IncentiveDenom)
		if err != nil {
			return nil, err
		}
		if numeric.IntOrZero(unclaimed).Sign() == 0 {
			continue
		}
		if err := state.PutUnclaimedRewards(user, s.CollateralDenom, s.IncentiveDenom, big.NewInt(0)); err != nil {
			return nil, err
		}
		claimed = append(claimed, types.NewCoinBig(s.IncentiveDenom, unclaimed))
	}
	claimed = claimed.Normalize()
	for _, coin := range claimed {
		if e.bank == nil || recipient == e.moduleAddress {
			break
		}
		if err := e.bank.Send(e.moduleAddress, recipient, coin); err != nil {
			return nil, err
		}
	}
	if len(claimed) > 0 {
		e.emitter.Emit(events.IncentiveClaimed{User: user, Recipient: recipient, Coins: claimed})
	}
	return claimed, nil
}

// UpdateWhitelist adds and removes incentive denoms. Owner only.
func (e *Engine) UpdateWhitelist(sender string, add, remove []string) error {
	state, err := e.withState()
	if err != nil {
		return err
	}
	if err := nativecommon.RequireOwner(state, ModuleName, sender); err != nil {
		return err
	}
	for _, denom := range add {
		if err := types.ValidateDenom(denom); err != nil {
			return err
		}
		if err := state.SetIncentiveWhitelisted(denom, true); err != nil {
			return err
		}
	}
	for _, denom := range remove {
		if err := state.SetIncentiveWhitelisted(denom, false); err != nil {
			return err
		}
	}
	e.emitter.Emit(events.IncentiveWhitelistUpdated{Added: add, Removed: remove})
	return nil
}

func (e *Engine) UpdateOwner(sender string, update nativecommon.OwnerUpdate) error {
	state, err := e.withState()
	if err != nil {
		return err
	}
	next, err := nativecommon.UpdateOwner(state, ModuleName, sender, update)
	if err != nil {
		return err
	}
	e.emitter.Emit(events.OwnerUpdated{Module: ModuleName, Owner: next.Owner, Proposed: next.Proposed, Abolished: next.Abolished})
	return nil
}

// Schedules returns every schedule ordered by collateral then incentive
// denom. Indexes are as last persisted.
func (e *Engine) Schedules() ([]*Schedule, error) {
	state, err := e.withState()
	if err != nil {
		return nil, err
	}
	all, err := state.IncentiveSchedules()
	if err != nil {
		return nil, err
	}
	sortSchedules(all)
	return all, nil
}

// ActiveSchedules returns the schedules emitting at the block time.
func (e *Engine) ActiveSchedules() ([]*Schedule, error) {
	all, err := e.Schedules()
	if err != nil {
		return nil, err
	}
	out := make([]*Schedule, 0, len(all))
	for _, s := range all {
		if s.Active(e.blockTime) {
			out = append(out, s)
		}
	}
	return out, nil
}

// UserUnclaimedRewards projects the rewards user could claim at the block
// time without persisting anything.
func (e *Engine) UserUnclaimedRewards(user types.Identity) ([]UserReward, error) {
	state, err := e.withState()
	if err != nil {
		return nil, err
	}
	if e.collateral == nil {
		return nil, ErrCollateralSourceNil
	}
	all, err := state.IncentiveSchedules()
	if err != nil {
		return nil, err
	}
	sortSchedules(all)
	out := make([]UserReward, 0, len(all))
	for _, stored := range all {
		s := stored.Clone()
		total, err := e.collateral.TotalCollateralScaled(s.CollateralDenom)
		if err != nil {
			return nil, err
		}
		userScaled, err := e.collateral.UserCollateralScaled(user, s.CollateralDenom)
		if err != nil {
			return nil, err
		}
		if err := s.advance(e.blockTime, total); err != nil {
			return nil, err
		}
		userIndex, _, err := state.UserIncentiveIndex(user, s.CollateralDenom, s.IncentiveDenom)
		if err != nil {
			return nil, err
		}
		earned, err := accrued(userScaled, userIndex, s.Index)
		if err != nil {
			return nil, err
		}
		unclaimed, err := state.UnclaimedRewards(user, s.CollateralDenom, s.IncentiveDenom)
		if err != nil {
			return nil, err
		}
		earned.Add(earned, numeric.IntOrZero(unclaimed))
		if earned.Sign() > 0 {
			out = append(out, UserReward{CollateralDenom: s.CollateralDenom, IncentiveDenom: s.IncentiveDenom, Unclaimed: earned})
		}
	}
	return out, nil
}

func (e *Engine) Whitelist() ([]string, error) {
	state, err := e.withState()
	if err != nil {
		return nil, err
	}
	out, err := state.IncentiveWhitelist()
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

func sortSchedules(all []*Schedule) {
	sort.Slice(all, func(i, j int) bool {
		if all[i].CollateralDenom != all[j].CollateralDenom {
			return all[i].CollateralDenom < all[j].CollateralDenom
		}
		return all[i].IncentiveDenom < all[j].IncentiveDenom
	})
}
