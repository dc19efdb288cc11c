package runner

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	ui "github.com/holiman/uint256"
)

func parseAddress(value string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("invalid address: %q", value)
	}
	return common.HexToAddress(value), nil
}

func parsePoolID(value string) (common.Hash, error) {
	if len(value) != 66 || value[:2] != "0x" {
		return common.Hash{}, fmt.Errorf("invalid pool id: %q", value)
	}
	return common.HexToHash(value), nil
}

// parseAmount decodes a decimal amount string; the empty string reads as
// zero so optional payload fields stay optional.
func parseAmount(value string) (*ui.Int, error) {
	if value == "" {
		return new(ui.Int), nil
	}
	parsed, err := ui.FromDecimal(value)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	return parsed, nil
}
