// Package txbuilder assembles and signs the liquidation and tip transactions.
package txbuilder

import (
	"errors"
	"fmt"
	"math"
	"math/bits"

	"pumpfun-liquidator/internal/decision"
)

// BpsDenominator is the basis-point scale of slippage tolerances.
const BpsDenominator = 10_000

var (
	ErrSlippageOutOfRange = errors.New("slippage bps out of range")
	ErrProceedsOverflow   = errors.New("expected proceeds overflow")
)

// ExpectedProceeds returns held * price * 1000 truncated to whole lamports.
func ExpectedProceeds(held uint64, price float64) (uint64, error) {
	v := float64(held) * price * decision.UnitScale
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v >= 1<<64 {
		return 0, fmt.Errorf("held=%d price=%g: %w", held, price, ErrProceedsOverflow)
	}
	return uint64(v), nil
}

// MinProceeds applies a slippage tolerance: expected * (10000 - bps) / 10000,
// rounded down, with a 128-bit intermediate.
func MinProceeds(expected uint64, slippageBps uint64) (uint64, error) {
	if slippageBps > BpsDenominator {
		return 0, fmt.Errorf("%d: %w", slippageBps, ErrSlippageOutOfRange)
	}
	hi, lo := bits.Mul64(expected, BpsDenominator-slippageBps)
	q, _ := bits.Div64(hi, lo, BpsDenominator)
	return q, nil
}
