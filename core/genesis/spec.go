package genesis

import (
	"bytes"
	"fmt"
	"math/big"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mars-protocol/contracts-sub007/core/numeric"
	"github.com/mars-protocol/contracts-sub007/core/types"
	"github.com/mars-protocol/contracts-sub007/crypto"
	"github.com/mars-protocol/contracts-sub007/native/creditmanager"
	"github.com/mars-protocol/contracts-sub007/native/lending"
	"github.com/mars-protocol/contracts-sub007/native/oracle"
	"github.com/mars-protocol/contracts-sub007/native/params"
)

type GenesisSpec struct {
	GenesisTime        string                       `yaml:"genesisTime"`
	Owner              string                       `yaml:"owner"`
	RewardsCollector   string                       `yaml:"rewardsCollector"`
	CloseFactor        string                       `yaml:"closeFactor,omitempty"`
	CreditManager      *CreditManagerSpec           `yaml:"creditManager,omitempty"`
	Markets            []MarketSpec                 `yaml:"markets"`
	Assets             []AssetSpec                  `yaml:"assets"`
	Vaults             []VaultSpec                  `yaml:"vaults,omitempty"`
	Pools              []PoolSpec                   `yaml:"pools,omitempty"`
	Farms              []FarmSpec                   `yaml:"farms,omitempty"`
	Prices             []PriceSpec                  `yaml:"prices"`
	IncentiveWhitelist []string                     `yaml:"incentiveWhitelist,omitempty"`
	Alloc              map[string]map[string]string `yaml:"alloc,omitempty"` // addr -> denom -> amount

	genesisTimestamp time.Time
	closeFactor      numeric.Decimal
	alloc            map[string]types.Coins
}

type CreditManagerSpec struct {
	MaxUnlockingPositions uint32 `yaml:"maxUnlockingPositions"`
	MaxSlippage           string `yaml:"maxSlippage"`
	MaxValueForBurn       string `yaml:"maxValueForBurn"`

	config creditmanager.Config
}

type InterestRateModelSpec struct {
	OptimalUtilizationRate string `yaml:"optimalUtilizationRate"`
	Base                   string `yaml:"base"`
	Slope1                 string `yaml:"slope1"`
	Slope2                 string `yaml:"slope2"`
}

type MarketSpec struct {
	Denom             string                `yaml:"denom"`
	ReserveFactor     string                `yaml:"reserveFactor"`
	InterestRateModel InterestRateModelSpec `yaml:"interestRateModel"`

	params lending.MarketParams
}

type LiquidationBonusSpec struct {
	StartingLB string `yaml:"startingLb"`
	Slope      string `yaml:"slope"`
	MinLB      string `yaml:"minLb"`
	MaxLB      string `yaml:"maxLb"`
}

type CorrelationSpec struct {
	Coin  string `yaml:"coin,omitempty"`
	Vault string `yaml:"vault,omitempty"`
}

type HlsSpec struct {
	MaxLTV               string            `yaml:"maxLtv"`
	LiquidationThreshold string            `yaml:"liquidationThreshold"`
	Correlations         []CorrelationSpec `yaml:"correlations,omitempty"`
}

type AssetSpec struct {
	Denom                  string               `yaml:"denom"`
	MaxLTV                 string               `yaml:"maxLtv"`
	LiquidationThreshold   string               `yaml:"liquidationThreshold"`
	LiquidationBonus       LiquidationBonusSpec `yaml:"liquidationBonus"`
	ProtocolLiquidationFee string               `yaml:"protocolLiquidationFee"`
	// DepositCap is unlimited when empty.
	DepositCap     string   `yaml:"depositCap,omitempty"`
	Whitelisted    bool     `yaml:"whitelisted"`
	BorrowEnabled  bool     `yaml:"borrowEnabled"`
	DepositEnabled bool     `yaml:"depositEnabled"`
	Hls            *HlsSpec `yaml:"hls,omitempty"`

	params *params.AssetParams
}

type VaultSpec struct {
	Addr                 string   `yaml:"addr"`
	BaseToken            string   `yaml:"baseToken"`
	VaultToken           string   `yaml:"vaultToken"`
	LockupDuration       uint64   `yaml:"lockupDuration,omitempty"`
	DepositCap           string   `yaml:"depositCap,omitempty"`
	MaxLTV               string   `yaml:"maxLtv"`
	LiquidationThreshold string   `yaml:"liquidationThreshold"`
	Whitelisted          bool     `yaml:"whitelisted"`
	Hls                  *HlsSpec `yaml:"hls,omitempty"`

	config *params.VaultConfig
}

type PoolSpec struct {
	LpDenom string   `yaml:"lpDenom"`
	Addr    string   `yaml:"addr"`
	Denoms  []string `yaml:"denoms"`
}

type FarmSpec struct {
	LpDenom         string `yaml:"lpDenom"`
	RewardDenom     string `yaml:"rewardDenom"`
	RewardPerSecond string `yaml:"rewardPerSecond"`

	rewardPerSecond *big.Int
}

// PriceSpec sets either a fixed price or a price derived from another denom.
type PriceSpec struct {
	Denom       string `yaml:"denom"`
	Kind        string `yaml:"kind,omitempty"`
	Fixed       string `yaml:"fixed,omitempty"`
	DerivedFrom string `yaml:"derivedFrom,omitempty"`
	Multiplier  string `yaml:"multiplier,omitempty"`

	kind   oracle.ActionKind
	source oracle.PriceSource
}

func LoadGenesisSpec(path string) (*GenesisSpec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis spec path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis spec %q: %w", path, err)
	}
	spec, err := ParseGenesisSpec(raw)
	if err != nil {
		return nil, fmt.Errorf("genesis spec %q: %w", path, err)
	}
	return spec, nil
}

// ParseGenesisSpec decodes and validates a YAML document. Unknown fields are
// rejected.
func ParseGenesisSpec(raw []byte) (*GenesisSpec, error) {
	var spec GenesisSpec
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := spec.validate(); err != nil {
		return nil, fmt.Errorf("invalid: %w", err)
	}
	return &spec, nil
}

func (s *GenesisSpec) GenesisTimestamp() time.Time { return s.genesisTimestamp }

// BlockTime is the genesis time in unix seconds.
func (s *GenesisSpec) BlockTime() uint64 {
	if s.genesisTimestamp.IsZero() {
		return 0
	}
	return uint64(s.genesisTimestamp.Unix())
}

// LendingConfig returns the pool config; creditManager is filled in by the
// caller from the module address.
func (s *GenesisSpec) LendingConfig(creditManager string) lending.Config {
	return lending.Config{
		RewardsCollector: s.RewardsCollector,
		CreditManager:    creditManager,
		CloseFactor:      s.closeFactor,
	}
}

func (s *GenesisSpec) CreditManagerConfig() creditmanager.Config {
	if s.CreditManager == nil {
		return creditmanager.DefaultConfig()
	}
	return s.CreditManager.config
}

func (m *MarketSpec) Params() lending.MarketParams { return m.params }

func (a *AssetSpec) Params() *params.AssetParams { return a.params.Clone() }

func (v *VaultSpec) Config() *params.VaultConfig { return v.config.Clone() }

func (v *VaultSpec) Info() creditmanager.VaultInfo {
	return creditmanager.VaultInfo{BaseToken: v.BaseToken, VaultToken: v.VaultToken, LockupDuration: v.LockupDuration}
}

func (f *FarmSpec) PerSecond() *big.Int { return new(big.Int).Set(f.rewardPerSecond) }

func (p *PriceSpec) ActionKind() oracle.ActionKind { return p.kind }

func (p *PriceSpec) Source() oracle.PriceSource { return p.source }

// Allocations returns the initial balances sorted by address.
func (s *GenesisSpec) Allocations() ([]string, map[string]types.Coins) {
	addrs := make([]string, 0, len(s.alloc))
	for addr := range s.alloc {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	return addrs, s.alloc
}

func (s *GenesisSpec) validate() error {
	ts, err := parseGenesisTime(s.GenesisTime)
	if err != nil {
		return err
	}
	s.genesisTimestamp = ts
	if err := crypto.ValidateAddress(s.Owner); err != nil {
		return fmt.Errorf("owner: %w", err)
	}
	if err := crypto.ValidateAddress(s.RewardsCollector); err != nil {
		return fmt.Errorf("rewardsCollector: %w", err)
	}
	s.closeFactor = lending.DefaultConfig().CloseFactor
	if strings.TrimSpace(s.CloseFactor) != "" {
		if s.closeFactor, err = parseDecimal("closeFactor", s.CloseFactor); err != nil {
			return err
		}
	}
	if err := s.LendingConfig(s.Owner).Validate(); err != nil {
		return err
	}
	if s.CreditManager != nil {
		if err := s.CreditManager.validate(); err != nil {
			return fmt.Errorf("creditManager: %w", err)
		}
	}

	markets := make(map[string]struct{}, len(s.Markets))
	for i := range s.Markets {
		m := &s.Markets[i]
		if err := m.validate(); err != nil {
			return fmt.Errorf("markets[%d]: %w", i, err)
		}
		if _, dup := markets[m.Denom]; dup {
			return fmt.Errorf("markets[%d]: duplicate denom %q", i, m.Denom)
		}
		markets[m.Denom] = struct{}{}
	}
	for i := range s.Assets {
		if err := s.Assets[i].validate(); err != nil {
			return fmt.Errorf("assets[%d]: %w", i, err)
		}
	}
	for i := range s.Vaults {
		if err := s.Vaults[i].validate(); err != nil {
			return fmt.Errorf("vaults[%d]: %w", i, err)
		}
	}
	for i, p := range s.Pools {
		if strings.TrimSpace(p.LpDenom) == "" || len(p.Denoms) != 2 {
			return fmt.Errorf("pools[%d]: lpDenom and two denoms required", i)
		}
		if err := crypto.ValidateAddress(p.Addr); err != nil {
			return fmt.Errorf("pools[%d]: %w", i, err)
		}
	}
	for i := range s.Farms {
		f := &s.Farms[i]
		if strings.TrimSpace(f.LpDenom) == "" || strings.TrimSpace(f.RewardDenom) == "" {
			return fmt.Errorf("farms[%d]: lpDenom and rewardDenom required", i)
		}
		if f.rewardPerSecond, err = parseAmountString(f.RewardPerSecond); err != nil {
			return fmt.Errorf("farms[%d]: rewardPerSecond: %w", i, err)
		}
	}
	for i := range s.Prices {
		if err := s.Prices[i].validate(); err != nil {
			return fmt.Errorf("prices[%d]: %w", i, err)
		}
	}
	for _, denom := range s.IncentiveWhitelist {
		if err := types.ValidateDenom(denom); err != nil {
			return fmt.Errorf("incentiveWhitelist: %w", err)
		}
	}

	s.alloc = make(map[string]types.Coins, len(s.Alloc))
	for addr, balances := range s.Alloc {
		if err := crypto.ValidateAddress(addr); err != nil {
			return fmt.Errorf("alloc %q: %w", addr, err)
		}
		coins := make(types.Coins, 0, len(balances))
		for denom, raw := range balances {
			amount, err := parseAmountString(raw)
			if err != nil {
				return fmt.Errorf("alloc %q %s: %w", addr, denom, err)
			}
			coin := types.NewCoinBig(denom, amount)
			if err := coin.Validate(); err != nil {
				return fmt.Errorf("alloc %q: %w", addr, err)
			}
			coins = append(coins, coin)
		}
		s.alloc[addr] = coins.Normalize()
	}
	return nil
}

func (c *CreditManagerSpec) validate() error {
	slippage, err := parseDecimal("maxSlippage", c.MaxSlippage)
	if err != nil {
		return err
	}
	maxBurn, err := parseAmountString(c.MaxValueForBurn)
	if err != nil {
		return fmt.Errorf("maxValueForBurn: %w", err)
	}
	c.config = creditmanager.Config{
		MaxUnlockingPositions: c.MaxUnlockingPositions,
		MaxSlippage:           slippage,
		MaxValueForBurn:       maxBurn,
	}
	return c.config.Validate()
}

func (m *MarketSpec) validate() error {
	if err := types.ValidateDenom(m.Denom); err != nil {
		return err
	}
	m.params = lending.MarketParams{}
	model := &m.params.InterestRateModel
	if err := parseDecimals([]decimalField{
		{"reserveFactor", m.ReserveFactor, &m.params.ReserveFactor},
		{"interestRateModel.optimalUtilizationRate", m.InterestRateModel.OptimalUtilizationRate, &model.OptimalUtilizationRate},
		{"interestRateModel.base", m.InterestRateModel.Base, &model.Base},
		{"interestRateModel.slope1", m.InterestRateModel.Slope1, &model.Slope1},
		{"interestRateModel.slope2", m.InterestRateModel.Slope2, &model.Slope2},
	}); err != nil {
		return err
	}
	return m.params.Validate()
}

func (h *HlsSpec) build() (*params.HlsParams, error) {
	if h == nil {
		return nil, nil
	}
	maxLTV, err := parseDecimal("hls.maxLtv", h.MaxLTV)
	if err != nil {
		return nil, err
	}
	lt, err := parseDecimal("hls.liquidationThreshold", h.LiquidationThreshold)
	if err != nil {
		return nil, err
	}
	out := &params.HlsParams{MaxLTV: maxLTV, LiquidationThreshold: lt}
	for i, c := range h.Correlations {
		switch {
		case c.Coin != "" && c.Vault == "":
			out.Correlations = append(out.Correlations, params.HlsCoin{Denom: c.Coin})
		case c.Vault != "" && c.Coin == "":
			out.Correlations = append(out.Correlations, params.HlsVault{Addr: c.Vault})
		default:
			return nil, fmt.Errorf("hls.correlations[%d]: exactly one of coin or vault required", i)
		}
	}
	return out, nil
}

func (a *AssetSpec) validate() error {
	p := &params.AssetParams{
		Denom:          a.Denom,
		Whitelisted:    a.Whitelisted,
		BorrowEnabled:  a.BorrowEnabled,
		DepositEnabled: a.DepositEnabled,
	}
	if err := parseDecimals([]decimalField{
		{"maxLtv", a.MaxLTV, &p.MaxLTV},
		{"liquidationThreshold", a.LiquidationThreshold, &p.LiquidationThreshold},
		{"liquidationBonus.startingLb", a.LiquidationBonus.StartingLB, &p.LiquidationBonus.StartingLB},
		{"liquidationBonus.slope", a.LiquidationBonus.Slope, &p.LiquidationBonus.Slope},
		{"liquidationBonus.minLb", a.LiquidationBonus.MinLB, &p.LiquidationBonus.MinLB},
		{"liquidationBonus.maxLb", a.LiquidationBonus.MaxLB, &p.LiquidationBonus.MaxLB},
		{"protocolLiquidationFee", a.ProtocolLiquidationFee, &p.ProtocolLiquidationFee},
	}); err != nil {
		return err
	}
	var err error
	if strings.TrimSpace(a.DepositCap) != "" {
		if p.DepositCap, err = parseAmountString(a.DepositCap); err != nil {
			return fmt.Errorf("depositCap: %w", err)
		}
	}
	if p.Hls, err = a.Hls.build(); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}
	a.params = p
	return nil
}

func (v *VaultSpec) validate() error {
	if err := crypto.ValidateAddress(v.Addr); err != nil {
		return err
	}
	if err := types.ValidateDenom(v.BaseToken); err != nil {
		return fmt.Errorf("baseToken: %w", err)
	}
	if err := types.ValidateDenom(v.VaultToken); err != nil {
		return fmt.Errorf("vaultToken: %w", err)
	}
	cfg := &params.VaultConfig{Addr: v.Addr, Whitelisted: v.Whitelisted}
	var err error
	if cfg.MaxLTV, err = parseDecimal("maxLtv", v.MaxLTV); err != nil {
		return err
	}
	if cfg.LiquidationThreshold, err = parseDecimal("liquidationThreshold", v.LiquidationThreshold); err != nil {
		return err
	}
	if strings.TrimSpace(v.DepositCap) != "" {
		if cfg.DepositCap, err = parseAmountString(v.DepositCap); err != nil {
			return fmt.Errorf("depositCap: %w", err)
		}
	}
	if cfg.Hls, err = v.Hls.build(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	v.config = cfg
	return nil
}

func (p *PriceSpec) validate() error {
	if err := types.ValidateDenom(p.Denom); err != nil {
		return err
	}
	kind, err := oracle.ParseActionKind(p.Kind)
	if err != nil {
		return err
	}
	p.kind = kind
	switch {
	case p.Fixed != "" && p.DerivedFrom == "":
		price, err := parseDecimal("fixed", p.Fixed)
		if err != nil {
			return err
		}
		p.source = oracle.Fixed{Price: price}
	case p.DerivedFrom != "" && p.Fixed == "":
		mult, err := parseDecimal("multiplier", p.Multiplier)
		if err != nil {
			return err
		}
		p.source = oracle.Derived{Denom: p.DerivedFrom, Multiplier: mult}
	default:
		return fmt.Errorf("exactly one of fixed or derivedFrom required")
	}
	return p.source.Validate(p.Denom)
}

type decimalField struct {
	name string
	raw  string
	dst  *numeric.Decimal
}

func parseDecimals(fields []decimalField) error {
	for _, f := range fields {
		v, err := parseDecimal(f.name, f.raw)
		if err != nil {
			return err
		}
		*f.dst = v
	}
	return nil
}

func parseDecimal(field, value string) (numeric.Decimal, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return numeric.Zero(), nil
	}
	d, err := numeric.ParseDecimal(trimmed)
	if err != nil {
		return numeric.Zero(), fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}

func parseAmountString(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	return amount, nil
}

func parseGenesisTime(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, fmt.Errorf("genesisTime must be provided")
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts, nil
	}
	return time.Time{}, fmt.Errorf("invalid genesisTime %q", value)
}
