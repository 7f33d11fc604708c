package adapters

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/mars-protocol/contracts-sub007/core/numeric"
	"github.com/mars-protocol/contracts-sub007/core/types"
)

var ErrNotManager = errors.New("adapters: only the credit manager may stake")

// FarmRecord streams RewardPerSecond of RewardDenom to the stakers of
// LpDenom pro rata.
type FarmRecord struct {
	LpDenom         string
	RewardDenom     string
	RewardPerSecond *big.Int
	Index           numeric.Decimal
	LastUpdated     uint64
	TotalStaked     *big.Int
}

// StakeRecord is one credit account's position in a farm.
type StakeRecord struct {
	Amount  *big.Int
	Index   numeric.Decimal
	Pending *big.Int
}

type farmState interface {
	StakingFarm(lpDenom string) (*FarmRecord, bool, error)
	PutStakingFarm(rec *FarmRecord) error
	StakePosition(lpDenom, accountID string) (*StakeRecord, bool, error)
	PutStakePosition(lpDenom, accountID string, rec *StakeRecord) error
}

// Staker holds LP tokens for credit accounts. Staking, unstaking and
// claiming all pay out the account's pending rewards.
type Staker struct {
	state     farmState
	bank      Bank
	addr      string
	manager   string
	blockTime uint64
}

func NewStaker(addr, manager string, bank Bank) *Staker {
	return &Staker{addr: addr, manager: manager, bank: bank}
}

func (s *Staker) SetState(state farmState) { s.state = state }
func (s *Staker) SetBlockTime(t uint64)    { s.blockTime = t }
func (s *Staker) Address() string          { return s.addr }

// RegisterFarm opens a farm; rewards are paid from the staker's balance.
func (s *Staker) RegisterFarm(lpDenom, rewardDenom string, perSecond *big.Int) error {
	if s == nil || s.state == nil {
		return ErrStateNotConfigured
	}
	for _, denom := range []string{lpDenom, rewardDenom} {
		if err := types.ValidateDenom(denom); err != nil {
			return err
		}
	}
	if perSecond == nil || perSecond.Sign() < 0 {
		return ErrInvalidAmount
	}
	return s.state.PutStakingFarm(&FarmRecord{
		LpDenom:         lpDenom,
		RewardDenom:     rewardDenom,
		RewardPerSecond: new(big.Int).Set(perSecond),
		LastUpdated:     s.blockTime,
		TotalStaked:     big.NewInt(0),
	})
}

func (s *Staker) load(lpDenom, accountID string) (*FarmRecord, *StakeRecord, error) {
	if s == nil || s.state == nil {
		return nil, nil, ErrStateNotConfigured
	}
	farm, ok, err := s.state.StakingFarm(lpDenom)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownFarm, lpDenom)
	}
	farm.TotalStaked = numeric.IntOrZero(farm.TotalStaked)
	farm.RewardPerSecond = numeric.IntOrZero(farm.RewardPerSecond)
	pos, ok, err := s.state.StakePosition(lpDenom, accountID)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		pos = &StakeRecord{Index: farm.Index}
	}
	pos.Amount = numeric.IntOrZero(pos.Amount)
	pos.Pending = numeric.IntOrZero(pos.Pending)
	if err := s.accrue(farm, pos); err != nil {
		return nil, nil, err
	}
	return farm, pos, nil
}

// accrue moves the farm index to the block time and settles pos against it.
func (s *Staker) accrue(farm *FarmRecord, pos *StakeRecord) error {
	if s.blockTime > farm.LastUpdated {
		if farm.TotalStaked.Sign() > 0 {
			emitted := new(big.Int).Mul(farm.RewardPerSecond, new(big.Int).SetUint64(s.blockTime-farm.LastUpdated))
			delta, err := numeric.NewDecimalFromRatio(emitted, farm.TotalStaked)
			if err != nil {
				return err
			}
			farm.Index = farm.Index.Add(delta)
		}
		farm.LastUpdated = s.blockTime
	}
	diff, err := farm.Index.CheckedSub(pos.Index)
	if err != nil {
		return err
	}
	earned, err := numeric.MulFloor(pos.Amount, diff)
	if err != nil {
		return err
	}
	pos.Pending.Add(pos.Pending, earned)
	pos.Index = farm.Index
	return nil
}

func (s *Staker) store(farm *FarmRecord, accountID string, pos *StakeRecord) error {
	if err := s.state.PutStakingFarm(farm); err != nil {
		return err
	}
	return s.state.PutStakePosition(farm.LpDenom, accountID, pos)
}

func (s *Staker) payout(farm *FarmRecord, pos *StakeRecord, to string) error {
	if pos.Pending.Sign() == 0 {
		return nil
	}
	reward := types.NewCoinBig(farm.RewardDenom, pos.Pending)
	pos.Pending = big.NewInt(0)
	return s.bank.Send(s.addr, to, reward)
}

func (s *Staker) authorize(from string) error {
	if from != s.manager {
		return fmt.Errorf("%w: %s", ErrNotManager, from)
	}
	return nil
}

func (s *Staker) Stake(from, accountID string, lpToken types.Coin) error {
	if err := s.authorize(from); err != nil {
		return err
	}
	if err := positive(lpToken.Amount); err != nil {
		return err
	}
	farm, pos, err := s.load(lpToken.Denom, accountID)
	if err != nil {
		return err
	}
	if err := s.bank.Send(from, s.addr, lpToken); err != nil {
		return err
	}
	pos.Amount.Add(pos.Amount, lpToken.Amount)
	farm.TotalStaked.Add(farm.TotalStaked, lpToken.Amount)
	if err := s.payout(farm, pos, from); err != nil {
		return err
	}
	return s.store(farm, accountID, pos)
}

func (s *Staker) Unstake(from, accountID string, lpToken types.Coin) error {
	if err := s.authorize(from); err != nil {
		return err
	}
	if err := positive(lpToken.Amount); err != nil {
		return err
	}
	farm, pos, err := s.load(lpToken.Denom, accountID)
	if err != nil {
		return err
	}
	if pos.Amount.Cmp(lpToken.Amount) < 0 {
		return fmt.Errorf("%w: %s staked %s", ErrInsufficientStake, accountID, pos.Amount)
	}
	pos.Amount.Sub(pos.Amount, lpToken.Amount)
	farm.TotalStaked.Sub(farm.TotalStaked, lpToken.Amount)
	if err := s.bank.Send(s.addr, from, lpToken); err != nil {
		return err
	}
	if err := s.payout(farm, pos, from); err != nil {
		return err
	}
	return s.store(farm, accountID, pos)
}

func (s *Staker) ClaimRewards(from, accountID, lpDenom string) error {
	if err := s.authorize(from); err != nil {
		return err
	}
	farm, pos, err := s.load(lpDenom, accountID)
	if err != nil {
		return err
	}
	if err := s.payout(farm, pos, from); err != nil {
		return err
	}
	return s.store(farm, accountID, pos)
}

// PendingRewards lists the farm's reward denom even when nothing accrued
// yet.
func (s *Staker) PendingRewards(accountID, lpDenom string) (types.Coins, error) {
	farm, pos, err := s.load(lpDenom, accountID)
	if err != nil {
		return nil, err
	}
	return types.Coins{types.NewCoinBig(farm.RewardDenom, pos.Pending)}, nil
}
