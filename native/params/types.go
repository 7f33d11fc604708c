package params

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/mars-protocol/contracts-sub007/core/numeric"
	"github.com/mars-protocol/contracts-sub007/core/types"
)

var (
	ErrInvalidParams        = errors.New("params: invalid parameter value")
	ErrAssetParamsNotFound  = errors.New("params: asset params not found")
	ErrVaultConfigNotFound  = errors.New("params: vault config not found")
	ErrInvalidCorrelation   = errors.New("params: invalid hls correlation")
	ErrUnknownPausedModule  = errors.New("params: unknown module")
	ErrDuplicateCorrelation = errors.New("params: duplicate hls correlation")
)

// LiquidationBonus parameterises the bonus curve
// clamp(starting_lb + slope*(1-hf), min_lb, max_lb).
type LiquidationBonus struct {
	StartingLB numeric.Decimal `json:"starting_lb"`
	Slope      numeric.Decimal `json:"slope"`
	MinLB      numeric.Decimal `json:"min_lb"`
	MaxLB      numeric.Decimal `json:"max_lb"`
}

func (lb LiquidationBonus) Validate() error {
	one := numeric.One()
	for name, v := range map[string]numeric.Decimal{"starting_lb": lb.StartingLB, "min_lb": lb.MinLB, "max_lb": lb.MaxLB} {
		if v.GT(one) {
			return fmt.Errorf("%w: %s %s must be within [0, 1]", ErrInvalidParams, name, v)
		}
	}
	if lb.MinLB.GT(lb.MaxLB) {
		return fmt.Errorf("%w: min_lb %s exceeds max_lb %s", ErrInvalidParams, lb.MinLB, lb.MaxLB)
	}
	return nil
}

// HlsAssetType identifies a holding that is correlated with an HLS debt.
type HlsAssetType interface {
	isHlsAsset()
	Key() string
}

type HlsCoin struct {
	Denom string `json:"denom"`
}

type HlsVault struct {
	Addr string `json:"addr"`
}

func (HlsCoin) isHlsAsset()  {}
func (HlsVault) isHlsAsset() {}

func (c HlsCoin) Key() string  { return "coin:" + c.Denom }
func (v HlsVault) Key() string { return "vault:" + v.Addr }

// Correlations is the ordered list of HLS correlated assets.
type Correlations []HlsAssetType

// ContainsCoin reports whether denom is listed.
func (cs Correlations) ContainsCoin(denom string) bool {
	return cs.contains(HlsCoin{Denom: denom}.Key())
}

// ContainsVault reports whether the vault is listed.
func (cs Correlations) ContainsVault(addr string) bool {
	return cs.contains(HlsVault{Addr: addr}.Key())
}

func (cs Correlations) contains(key string) bool {
	for _, c := range cs {
		if c != nil && c.Key() == key {
			return true
		}
	}
	return false
}

type correlationJSON struct {
	Coin  *HlsCoin  `json:"coin,omitempty"`
	Vault *HlsVault `json:"vault,omitempty"`
}

func (cs Correlations) MarshalJSON() ([]byte, error) {
	out := make([]correlationJSON, 0, len(cs))
	for _, c := range cs {
		switch v := c.(type) {
		case HlsCoin:
			coin := v
			out = append(out, correlationJSON{Coin: &coin})
		case HlsVault:
			vault := v
			out = append(out, correlationJSON{Vault: &vault})
		default:
			return nil, fmt.Errorf("%w: %T", ErrInvalidCorrelation, c)
		}
	}
	return json.Marshal(out)
}

func (cs *Correlations) UnmarshalJSON(data []byte) error {
	var in []correlationJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	out := make(Correlations, 0, len(in))
	for _, c := range in {
		switch {
		case c.Coin != nil && c.Vault == nil:
			out = append(out, *c.Coin)
		case c.Vault != nil && c.Coin == nil:
			out = append(out, *c.Vault)
		default:
			return fmt.Errorf("%w: exactly one of coin or vault required", ErrInvalidCorrelation)
		}
	}
	*cs = out
	return nil
}

// HlsParams are the LTV pair used by high levered strategy accounts.
type HlsParams struct {
	MaxLTV               numeric.Decimal `json:"max_ltv"`
	LiquidationThreshold numeric.Decimal `json:"liquidation_threshold"`
	Correlations         Correlations    `json:"correlations"`
}

func (h *HlsParams) Validate() error {
	if h == nil {
		return nil
	}
	if err := validateLTVPair(h.MaxLTV, h.LiquidationThreshold); err != nil {
		return fmt.Errorf("hls: %w", err)
	}
	seen := make(map[string]struct{}, len(h.Correlations))
	for _, c := range h.Correlations {
		switch v := c.(type) {
		case HlsCoin:
			if err := types.ValidateDenom(v.Denom); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidCorrelation, err)
			}
		case HlsVault:
			if strings.TrimSpace(v.Addr) == "" {
				return fmt.Errorf("%w: empty vault address", ErrInvalidCorrelation)
			}
		default:
			return fmt.Errorf("%w: %T", ErrInvalidCorrelation, c)
		}
		if _, dup := seen[c.Key()]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateCorrelation, c.Key())
		}
		seen[c.Key()] = struct{}{}
	}
	return nil
}

func (h *HlsParams) Clone() *HlsParams {
	if h == nil {
		return nil
	}
	clone := *h
	clone.Correlations = append(Correlations(nil), h.Correlations...)
	return &clone
}

// AssetParams are the risk parameters of a single denom.
type AssetParams struct {
	Denom                  string           `json:"denom"`
	MaxLTV                 numeric.Decimal  `json:"max_ltv"`
	LiquidationThreshold   numeric.Decimal  `json:"liquidation_threshold"`
	LiquidationBonus       LiquidationBonus `json:"liquidation_bonus"`
	ProtocolLiquidationFee numeric.Decimal  `json:"protocol_liquidation_fee"`
	DepositCap             *big.Int         `json:"deposit_cap"`
	// Whitelisted gates use of the denom inside credit accounts.
	Whitelisted    bool       `json:"whitelisted"`
	BorrowEnabled  bool       `json:"borrow_enabled"`
	DepositEnabled bool       `json:"deposit_enabled"`
	Hls            *HlsParams `json:"hls,omitempty"`
}

func (p *AssetParams) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil asset params", ErrInvalidParams)
	}
	if err := types.ValidateDenom(p.Denom); err != nil {
		return err
	}
	if err := validateLTVPair(p.MaxLTV, p.LiquidationThreshold); err != nil {
		return err
	}
	if err := p.LiquidationBonus.Validate(); err != nil {
		return err
	}
	if p.ProtocolLiquidationFee.GTE(numeric.One()) {
		return fmt.Errorf("%w: protocol_liquidation_fee %s must be below 1", ErrInvalidParams, p.ProtocolLiquidationFee)
	}
	if p.DepositCap != nil {
		if err := numeric.CheckUint128(p.DepositCap); err != nil {
			return fmt.Errorf("%w: deposit_cap: %v", ErrInvalidParams, err)
		}
	}
	return p.Hls.Validate()
}

// Cap returns the deposit cap, zero when unset.
func (p *AssetParams) Cap() *big.Int {
	return numeric.IntOrZero(p.DepositCap)
}

func (p *AssetParams) Clone() *AssetParams {
	if p == nil {
		return nil
	}
	clone := *p
	if p.DepositCap != nil {
		clone.DepositCap = new(big.Int).Set(p.DepositCap)
	}
	clone.Hls = p.Hls.Clone()
	return &clone
}

// VaultConfig are the risk parameters of a yield vault. DepositCap is
// expressed in oracle value units.
type VaultConfig struct {
	Addr                 string          `json:"addr"`
	DepositCap           *big.Int        `json:"deposit_cap"`
	MaxLTV               numeric.Decimal `json:"max_ltv"`
	LiquidationThreshold numeric.Decimal `json:"liquidation_threshold"`
	Whitelisted          bool            `json:"whitelisted"`
	Hls                  *HlsParams      `json:"hls,omitempty"`
}

func (v *VaultConfig) Validate() error {
	if v == nil {
		return fmt.Errorf("%w: nil vault config", ErrInvalidParams)
	}
	if strings.TrimSpace(v.Addr) == "" {
		return fmt.Errorf("%w: vault address required", ErrInvalidParams)
	}
	if err := validateLTVPair(v.MaxLTV, v.LiquidationThreshold); err != nil {
		return err
	}
	if v.DepositCap != nil {
		if err := numeric.CheckUint128(v.DepositCap); err != nil {
			return fmt.Errorf("%w: deposit_cap: %v", ErrInvalidParams, err)
		}
	}
	return v.Hls.Validate()
}

func (v *VaultConfig) Clone() *VaultConfig {
	if v == nil {
		return nil
	}
	clone := *v
	if v.DepositCap != nil {
		clone.DepositCap = new(big.Int).Set(v.DepositCap)
	}
	clone.Hls = v.Hls.Clone()
	return &clone
}

func validateLTVPair(maxLTV, threshold numeric.Decimal) error {
	if threshold.GT(numeric.One()) {
		return fmt.Errorf("%w: liquidation_threshold %s exceeds 1", ErrInvalidParams, threshold)
	}
	if maxLTV.GTE(threshold) {
		return fmt.Errorf("%w: max_ltv %s must be below liquidation_threshold %s", ErrInvalidParams, maxLTV, threshold)
	}
	return nil
}
