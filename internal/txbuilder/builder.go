package txbuilder

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/programs/token"

	"pumpfun-liquidator/internal/pumpfun"
)

const (
	DefaultUnitLimit uint32 = 500_000
	DefaultUnitPrice uint64 = 20_000
)

// Options configures the priority-fee directives of built transactions.
type Options struct {
	// UnitLimit is the compute unit ceiling.
	UnitLimit uint32
	// UnitPrice is the compute unit price in micro-lamports.
	UnitPrice uint64
}

// Builder assembles liquidation transactions.
type Builder struct {
	unitLimit uint32
	unitPrice uint64
}

// NewBuilder creates a Builder. Zero options fall back to defaults.
func NewBuilder(opts Options) *Builder {
	b := &Builder{
		unitLimit: opts.UnitLimit,
		unitPrice: opts.UnitPrice,
	}
	if b.unitLimit == 0 {
		b.unitLimit = DefaultUnitLimit
	}
	if b.unitPrice == 0 {
		b.unitPrice = DefaultUnitPrice
	}
	return b
}

// Liquidation describes one full exit of a held position.
type Liquidation struct {
	Mint        solana.PublicKey
	Held        uint64
	Price       float64
	SlippageBps uint64
}

// LiquidationInstructions returns, in order: compute unit limit, compute unit
// price, sell of the whole position, close of the seller's token account.
func (b *Builder) LiquidationInstructions(owner solana.PublicKey, liq Liquidation) ([]solana.Instruction, error) {
	expected, err := ExpectedProceeds(liq.Held, liq.Price)
	if err != nil {
		return nil, err
	}
	minSol, err := MinProceeds(expected, liq.SlippageBps)
	if err != nil {
		return nil, err
	}

	accts, err := pumpfun.DeriveSellAccounts(liq.Mint, owner)
	if err != nil {
		return nil, fmt.Errorf("derive sell accounts: %w", err)
	}

	closeIx, err := token.NewCloseAccountInstruction(
		accts.UserTokenAccount,
		owner,
		owner,
		[]solana.PublicKey{},
	).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("build close account: %w", err)
	}

	return []solana.Instruction{
		computebudget.NewSetComputeUnitLimitInstruction(b.unitLimit).Build(),
		computebudget.NewSetComputeUnitPriceInstruction(b.unitPrice).Build(),
		pumpfun.SellInstruction(accts, liq.Held, minSol),
		closeIx,
	}, nil
}

// BuildLiquidation assembles and signs the liquidation transaction.
func (b *Builder) BuildLiquidation(signer solana.PrivateKey, liq Liquidation, blockhash solana.Hash) (*solana.Transaction, error) {
	owner := signer.PublicKey()

	ixs, err := b.LiquidationInstructions(owner, liq)
	if err != nil {
		return nil, err
	}
	return signTransaction(signer, ixs, blockhash)
}

func signTransaction(signer solana.PrivateKey, ixs []solana.Instruction, blockhash solana.Hash) (*solana.Transaction, error) {
	owner := signer.PublicKey()

	tx, err := solana.NewTransaction(ixs, blockhash, solana.TransactionPayer(owner))
	if err != nil {
		return nil, fmt.Errorf("assemble transaction: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(owner) {
			return &signer
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	return tx, nil
}
