package incentives

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/mars-protocol/contracts-sub007/core/numeric"
	"github.com/mars-protocol/contracts-sub007/core/types"
)

var (
	ErrInvalidSchedule     = errors.New("incentives: invalid schedule")
	ErrNotWhitelisted      = errors.New("incentives: incentive denom not whitelisted")
	ErrInvalidStartTime    = errors.New("incentives: start time is in the past")
	ErrScheduleActive      = errors.New("incentives: schedule still active")
	ErrFundsMismatch       = errors.New("incentives: attached funds do not match emission")
	ErrScheduleNotFound    = errors.New("incentives: schedule not found")
	ErrCollateralSourceNil = errors.New("incentives: collateral source not configured")
)

// Schedule emits EmissionPerSecond of IncentiveDenom to depositors of
// CollateralDenom during [StartTime, StartTime+Duration). Index is the
// reward per scaled collateral unit accumulated so far.
type Schedule struct {
	CollateralDenom   string          `json:"collateral_denom"`
	IncentiveDenom    string          `json:"incentive_denom"`
	EmissionPerSecond *big.Int        `json:"emission_per_second"`
	StartTime         uint64          `json:"start_time"`
	Duration          uint64          `json:"duration"`
	Index             numeric.Decimal `json:"index"`
	LastUpdated       uint64          `json:"last_updated"`
}

// EndTime is the first second without emission.
func (s *Schedule) EndTime() uint64 { return s.StartTime + s.Duration }

// Active reports whether now falls in the emission window.
func (s *Schedule) Active(now uint64) bool {
	return now >= s.StartTime && now < s.EndTime()
}

// TotalEmission is the amount the schedule pays out over its lifetime.
func (s *Schedule) TotalEmission() *big.Int {
	return new(big.Int).Mul(numeric.IntOrZero(s.EmissionPerSecond), new(big.Int).SetUint64(s.Duration))
}

func (s *Schedule) Clone() *Schedule {
	if s == nil {
		return nil
	}
	clone := *s
	clone.EmissionPerSecond = numeric.IntOrZero(s.EmissionPerSecond)
	return &clone
}

func (s *Schedule) validate() error {
	if err := types.ValidateDenom(s.CollateralDenom); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}
	if err := types.ValidateDenom(s.IncentiveDenom); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}
	if s.EmissionPerSecond == nil || s.EmissionPerSecond.Sign() <= 0 {
		return fmt.Errorf("%w: emission per second must be positive", ErrInvalidSchedule)
	}
	if s.Duration == 0 {
		return fmt.Errorf("%w: duration must be positive", ErrInvalidSchedule)
	}
	return numeric.CheckUint128(s.TotalEmission())
}

// advance moves the index to now using the total scaled collateral that was
// outstanding over the elapsed period.
func (s *Schedule) advance(now uint64, totalScaled *big.Int) error {
	if now <= s.LastUpdated {
		return nil
	}
	from := s.LastUpdated
	if from < s.StartTime {
		from = s.StartTime
	}
	to := now
	if end := s.EndTime(); to > end {
		to = end
	}
	if to > from && totalScaled != nil && totalScaled.Sign() > 0 {
		emitted := new(big.Int).Mul(s.EmissionPerSecond, new(big.Int).SetUint64(to-from))
		delta, err := numeric.NewDecimalFromRatio(emitted, totalScaled)
		if err != nil {
			return err
		}
		s.Index = s.Index.Add(delta)
	}
	s.LastUpdated = now
	return nil
}

// accrued is the reward earned by scaled collateral between userIndex and
// the schedule index.
func accrued(scaled *big.Int, userIndex, index numeric.Decimal) (*big.Int, error) {
	if scaled == nil || scaled.Sign() == 0 || index.LTE(userIndex) {
		return big.NewInt(0), nil
	}
	return numeric.MulFloor(scaled, index.SaturatingSub(userIndex))
}

// UserReward is the query view of a user's position in one schedule.
type UserReward struct {
	CollateralDenom string   `json:"collateral_denom"`
	IncentiveDenom  string   `json:"incentive_denom"`
	Unclaimed       *big.Int `json:"unclaimed"`
}
