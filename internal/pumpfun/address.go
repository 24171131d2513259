package pumpfun

import (
	"crypto/sha256"
	"errors"

	"filippo.io/edwards25519"
	"github.com/gagliardetto/solana-go"
)

const pdaMarker = "ProgramDerivedAddress"

// ErrNoViableBump is returned when no bump seed yields an off-curve address.
var ErrNoViableBump = errors.New("unable to find a viable program address bump seed")

// BondingCurvePDA derives the bonding curve account of mint.
func BondingCurvePDA(mint solana.PublicKey) (solana.PublicKey, error) {
	return derivePDA([][]byte{[]byte(bondingCurveSeed), mint[:]}, ProgramID)
}

// AssociatedTokenAddress derives the associated token account of owner for mint.
func AssociatedTokenAddress(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	return derivePDA(
		[][]byte{owner[:], TokenProgramID[:], mint[:]},
		AssociatedTokenAccountProgramID,
	)
}

// derivePDA hashes seeds, bump, program ID and the PDA marker, walking the bump
// down from 255 until the hash is not a valid ed25519 point.
func derivePDA(seeds [][]byte, programID solana.PublicKey) (solana.PublicKey, error) {
	for bump := 255; bump >= 0; bump-- {
		h := sha256.New()
		for _, seed := range seeds {
			h.Write(seed)
		}
		h.Write([]byte{byte(bump)})
		h.Write(programID[:])
		h.Write([]byte(pdaMarker))

		sum := h.Sum(nil)
		if !isOnCurve(sum) {
			return solana.PublicKeyFromBytes(sum), nil
		}
	}
	return solana.PublicKey{}, ErrNoViableBump
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
