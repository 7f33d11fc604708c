package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mars-protocol/contracts-sub007/core/numeric"
)

// SwapFeeDecimal parses the configured swap venue fee.
func (p Protocol) SwapFeeDecimal() (numeric.Decimal, error) {
	if strings.TrimSpace(p.SwapFee) == "" {
		return numeric.Zero(), nil
	}
	fee, err := numeric.ParseDecimal(strings.TrimSpace(p.SwapFee))
	if err != nil {
		return numeric.Zero(), fmt.Errorf("invalid protocol.SwapFee: %w", err)
	}
	return fee, nil
}

// StorePath resolves the database directory, defaulting under DataDir.
func (c *Config) StorePath() string {
	if strings.TrimSpace(c.Store.Path) != "" {
		return c.Store.Path
	}
	return filepath.Join(c.DataDir, "state")
}
