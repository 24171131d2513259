package pumpfun

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// SellDiscriminator tags the program's sell instruction.
var SellDiscriminator = [8]byte{0x33, 0xe6, 0x85, 0xa4, 0x01, 0x7f, 0x83, 0xad}

// SellAccounts are the accounts a sell touches beyond the program's fixed ones.
type SellAccounts struct {
	Mint                   solana.PublicKey
	BondingCurve           solana.PublicKey
	AssociatedBondingCurve solana.PublicKey
	UserTokenAccount       solana.PublicKey
	User                   solana.PublicKey
}

// SellInstruction sells amount raw token units for at least minSolOutput lamports.
func SellInstruction(accts SellAccounts, amount, minSolOutput uint64) solana.Instruction {
	data := make([]byte, 0, 24)
	data = append(data, SellDiscriminator[:]...)
	data = binary.LittleEndian.AppendUint64(data, amount)
	data = binary.LittleEndian.AppendUint64(data, minSolOutput)

	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(Global, false, false),
		solana.NewAccountMeta(FeeRecipient, true, false),
		solana.NewAccountMeta(accts.Mint, false, false),
		solana.NewAccountMeta(accts.BondingCurve, true, false),
		solana.NewAccountMeta(accts.AssociatedBondingCurve, true, false),
		solana.NewAccountMeta(accts.UserTokenAccount, true, false),
		solana.NewAccountMeta(accts.User, true, true),
		solana.NewAccountMeta(SystemProgramID, false, false),
		solana.NewAccountMeta(AssociatedTokenAccountProgramID, false, false),
		solana.NewAccountMeta(TokenProgramID, false, false),
		solana.NewAccountMeta(EventAuthority, false, false),
		solana.NewAccountMeta(ProgramID, false, false),
	}

	return solana.NewInstruction(ProgramID, metas, data)
}

// DeriveSellAccounts resolves the PDAs a sell of mint by user needs.
func DeriveSellAccounts(mint, user solana.PublicKey) (SellAccounts, error) {
	curve, err := BondingCurvePDA(mint)
	if err != nil {
		return SellAccounts{}, err
	}
	curveATA, err := AssociatedTokenAddress(curve, mint)
	if err != nil {
		return SellAccounts{}, err
	}
	userATA, err := AssociatedTokenAddress(user, mint)
	if err != nil {
		return SellAccounts{}, err
	}
	return SellAccounts{
		Mint:                   mint,
		BondingCurve:           curve,
		AssociatedBondingCurve: curveATA,
		UserTokenAccount:       userATA,
		User:                   user,
	}, nil
}
