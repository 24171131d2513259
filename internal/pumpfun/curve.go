package pumpfun

import (
	"fmt"
	"math"
)

// accountDiscriminatorLen is the Anchor account tag preceding account fields.
const accountDiscriminatorLen = 8

// BondingCurveState is the on-chain reserve snapshot of a bonding curve account.
type BondingCurveState struct {
	VirtualTokenReserves uint64
	VirtualSolReserves   uint64
	RealTokenReserves    uint64
	RealSolReserves      uint64
	TokenTotalSupply     uint64
	Complete             bool
}

// Price returns the spot price implied by the virtual reserves.
func (s *BondingCurveState) Price() float64 {
	return Price(s.VirtualSolReserves, s.VirtualTokenReserves)
}

// DecodeBondingCurve decodes bonding curve account data.
// Layout: discriminator(8) | virtual_token(8) | virtual_sol(8) | real_token(8) |
// real_sol(8) | total_supply(8) | complete(1) | ...
func DecodeBondingCurve(data []byte) (*BondingCurveState, error) {
	if len(data) < accountDiscriminatorLen {
		return nil, fmt.Errorf("bonding curve data too short: %d", len(data))
	}

	d := decoder{buf: data[accountDiscriminatorLen:]}
	state := &BondingCurveState{
		VirtualTokenReserves: d.uint64(),
		VirtualSolReserves:   d.uint64(),
		RealTokenReserves:    d.uint64(),
		RealSolReserves:      d.uint64(),
		TokenTotalSupply:     d.uint64(),
		Complete:             d.bool(),
	}
	if d.err != nil {
		return nil, fmt.Errorf("decode bonding curve: %w", d.err)
	}
	return state, nil
}

// Price maps a virtual reserve pair to the token price in SOL:
// (vSol / 10^9) / (vToken / 10^6). A zero token reserve gives a non-finite result.
func Price(virtualSolReserves, virtualTokenReserves uint64) float64 {
	sol := float64(virtualSolReserves) / math.Pow10(SolDecimals)
	token := float64(virtualTokenReserves) / math.Pow10(TokenDecimals)
	return sol / token
}

// IsUsablePrice reports whether p can drive a decision.
func IsUsablePrice(p float64) bool {
	return !math.IsNaN(p) && !math.IsInf(p, 0) && p > 0
}

// InitialPrice is the price of a freshly launched curve.
func InitialPrice() float64 {
	return Price(InitialVirtualSolReserves, InitialVirtualTokenReserves)
}
