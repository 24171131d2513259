// Package pumpfun decodes pump.fun bonding-curve program events and accounts and
// encodes the instructions needed to exit a position.
package pumpfun

import "github.com/gagliardetto/solana-go"

// Program and well-known accounts.
var (
	// ProgramID is the pump.fun bonding-curve program.
	ProgramID = solana.MustPublicKeyFromBase58("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")
	// Global is the program's global config account.
	Global = solana.MustPublicKeyFromBase58("4wTV1YmiEkRvAtNtsSGPtUrqRYQMe5SKy2uB4Jjaxnjf")
	// FeeRecipient receives protocol fees on every trade.
	FeeRecipient = solana.MustPublicKeyFromBase58("CebN5WGQ4jvEPvsVU4EoHEpgzq1VV7AbicfhtW4xC9iM")
	// EventAuthority is the PDA the program uses to self-invoke for events.
	EventAuthority = solana.MustPublicKeyFromBase58("Ce6TQqeHC9p8KetsN6JsjHK7UTZk7nasjjnr7XxXp9F1")

	TokenProgramID                  = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	AssociatedTokenAccountProgramID = solana.MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
	SystemProgramID                 = solana.MustPublicKeyFromBase58("11111111111111111111111111111111")
)

// Initial virtual reserves of every fresh bonding curve.
const (
	InitialVirtualSolReserves   uint64 = 30_000_000_000
	InitialVirtualTokenReserves uint64 = 1_073_000_191_000_000
	TotalSupply                 uint64 = 1_000_000_000_000_000
)

// Decimal exponents of the two reserve sides.
const (
	SolDecimals   = 9
	TokenDecimals = 6
)

const bondingCurveSeed = "bonding-curve"
