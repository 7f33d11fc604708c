package config

import (
	"fmt"
	"strings"

	"github.com/mars-protocol/contracts-sub007/core/numeric"
	"github.com/mars-protocol/contracts-sub007/observability/logging"
)

var (
	MaxSwapFee = numeric.NewDecimalPercent(10)
)

func ValidateConfig(c *Config) error {
	if c == nil {
		return fmt.Errorf("config: nil")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("config: DataDir required")
	}
	switch c.Store.Backend {
	case BackendLevelDB, BackendMemory:
	default:
		return fmt.Errorf("store: unknown backend %q", c.Store.Backend)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		return fmt.Errorf("log: rotation limits must not be negative")
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry: SampleRatio must be within [0, 1]")
	}
	fee, err := c.Protocol.SwapFeeDecimal()
	if err != nil {
		return err
	}
	if fee.GT(MaxSwapFee) {
		return fmt.Errorf("protocol: SwapFee %s exceeds %s", fee, MaxSwapFee)
	}
	return nil
}
