package txbuilder

import (
	"errors"
	"math/rand/v2"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
)

// TipAccounts are the relay's published tip accounts.
var TipAccounts = []solana.PublicKey{
	solana.MustPublicKeyFromBase58("ADaUMid9yfUytqMBgopwjb2DTLSokTSzL1zt6iGPaS49"),
	solana.MustPublicKeyFromBase58("DttWaMuVvTiduZRnguLF7jNxTgiMBZ1hyAumKUiL2KRL"),
	solana.MustPublicKeyFromBase58("Cw8CFyM9FkoMi7K7Crf6HNQqf4uEMzpKw6QNghXLvLkY"),
	solana.MustPublicKeyFromBase58("ADuUkR4vqLUMWXxW9gh6D6L8pMSawimctcNZ5pGwDcEt"),
	solana.MustPublicKeyFromBase58("HFqU5x63VTqvQss8hp11i4wVV8bD44PvwucfZ2bU7gRe"),
	solana.MustPublicKeyFromBase58("DfXygSm4jCyNCybVYYK6DwvWqjKee8pbDmJGcLWNDXjh"),
	solana.MustPublicKeyFromBase58("3AVi9Tg9Uo68tJfuvoKvqKNWKkC5wPdSSdeBnizKZ6jT"),
	solana.MustPublicKeyFromBase58("96gYZGLnJYVFmbjzopPSU6QiEV5fGqZNyN9nmNhvrZU5"),
}

// ErrEmptyTipAccounts is returned when there is no tip account to pick from.
var ErrEmptyTipAccounts = errors.New("no tip accounts configured")

// TipSelector picks a tip account uniformly at random.
// Not safe for concurrent use when built with a custom source.
type TipSelector struct {
	accounts []solana.PublicKey
	rng      *rand.Rand
}

// NewTipSelector creates a selector over accounts. A nil rng uses the global source.
func NewTipSelector(accounts []solana.PublicKey, rng *rand.Rand) *TipSelector {
	return &TipSelector{accounts: accounts, rng: rng}
}

// Pick returns one tip account.
func (s *TipSelector) Pick() (solana.PublicKey, error) {
	if len(s.accounts) == 0 {
		return solana.PublicKey{}, ErrEmptyTipAccounts
	}
	var i int
	if s.rng != nil {
		i = s.rng.IntN(len(s.accounts))
	} else {
		i = rand.IntN(len(s.accounts))
	}
	return s.accounts[i], nil
}

// BuildTipTransfer signs a single transfer of lamports from signer to tipAccount.
func BuildTipTransfer(signer solana.PrivateKey, tipAccount solana.PublicKey, lamports uint64, blockhash solana.Hash) (*solana.Transaction, error) {
	ix := system.NewTransferInstruction(lamports, signer.PublicKey(), tipAccount).Build()
	return signTransaction(signer, []solana.Instruction{ix}, blockhash)
}
