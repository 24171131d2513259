// Package execution submits liquidation transactions, either directly to the
// ledger or as a tipped bundle through the relay.
package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"pumpfun-liquidator/internal/ledger"
	"pumpfun-liquidator/internal/observability"
	"pumpfun-liquidator/internal/txbuilder"
)

// Mode is the submission path, fixed at construction.
type Mode int

const (
	// ModeDirect broadcasts the liquidation through the RPC node.
	ModeDirect Mode = iota
	// ModeBundled submits the liquidation plus a tip transfer as one bundle.
	ModeBundled
)

func (m Mode) String() string {
	if m == ModeBundled {
		return "bundled"
	}
	return "direct"
}

var (
	ErrNoRelay       = errors.New("bundled mode requires a relay client")
	ErrNoLedger      = errors.New("ledger client is required")
	ErrNothingToSell = errors.New("held quantity is zero")
)

// Ledger is the subset of ledger.RPCClient the dispatcher needs.
type Ledger interface {
	GetLatestBlockhash(ctx context.Context) (*ledger.Blockhash, error)
	SendAndConfirmTransaction(ctx context.Context, rawTx []byte, lastValidBlockHeight uint64) (string, error)
}

// BundleSender submits ordered transaction bundles.
type BundleSender interface {
	SendBundle(ctx context.Context, txs [][]byte) (string, error)
}

// Options configures a Dispatcher.
type Options struct {
	Ledger  Ledger
	Relay   BundleSender
	Builder *txbuilder.Builder
	Tips    *txbuilder.TipSelector

	Signer solana.PrivateKey
	Mint   solana.PublicKey
	Held   uint64
	// Tip in lamports; a positive tip selects ModeBundled.
	Tip uint64

	Logger logrus.FieldLogger
}

// Outcome describes a submission.
type Outcome struct {
	Mode Mode
	// Signature of the liquidation transaction.
	Signature string
	// BundleID is set in bundled mode when the relay returned one.
	BundleID string
	// Inconclusive marks a bundle the relay accepted without an id.
	Inconclusive bool
}

// Dispatcher liquidates the whole held position at a given price.
type Dispatcher struct {
	mode    Mode
	ledger  Ledger
	relay   BundleSender
	builder *txbuilder.Builder
	tips    *txbuilder.TipSelector
	signer  solana.PrivateKey
	mint    solana.PublicKey
	held    uint64
	tip     uint64
	logger  logrus.FieldLogger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(opts Options) (*Dispatcher, error) {
	if opts.Ledger == nil {
		return nil, ErrNoLedger
	}
	if opts.Held == 0 {
		return nil, ErrNothingToSell
	}

	d := &Dispatcher{
		mode:    ModeDirect,
		ledger:  opts.Ledger,
		relay:   opts.Relay,
		builder: opts.Builder,
		tips:    opts.Tips,
		signer:  opts.Signer,
		mint:    opts.Mint,
		held:    opts.Held,
		tip:     opts.Tip,
		logger:  opts.Logger,
	}
	if d.builder == nil {
		d.builder = txbuilder.NewBuilder(txbuilder.Options{})
	}
	if d.tips == nil {
		d.tips = txbuilder.NewTipSelector(txbuilder.TipAccounts, nil)
	}
	if d.logger == nil {
		d.logger = logrus.StandardLogger()
	}

	if opts.Tip > 0 {
		if opts.Relay == nil {
			return nil, ErrNoRelay
		}
		d.mode = ModeBundled
	}
	d.logger = d.logger.WithField("mode", d.mode.String())
	return d, nil
}

// Mode returns the submission path.
func (d *Dispatcher) Mode() Mode {
	return d.mode
}

// Liquidate fetches a blockhash, builds the liquidation at price with the given
// slippage and submits it. Nothing is retried.
func (d *Dispatcher) Liquidate(ctx context.Context, price float64, slippageBps uint64) (Outcome, error) {
	start := time.Now()
	out, err := d.liquidate(ctx, price, slippageBps)

	status := "success"
	switch {
	case err != nil:
		status = "error"
	case out.Inconclusive:
		status = "inconclusive"
	}
	observability.RecordExecution(d.mode.String(), status, time.Since(start).Seconds())
	return out, err
}

func (d *Dispatcher) liquidate(ctx context.Context, price float64, slippageBps uint64) (Outcome, error) {
	out := Outcome{Mode: d.mode}

	bh, err := d.ledger.GetLatestBlockhash(ctx)
	if err != nil {
		return out, fmt.Errorf("get latest blockhash: %w", err)
	}
	blockhash, err := solana.HashFromBase58(bh.Hash)
	if err != nil {
		return out, fmt.Errorf("parse blockhash %q: %w", bh.Hash, err)
	}

	tx, err := d.builder.BuildLiquidation(d.signer, txbuilder.Liquidation{
		Mint:        d.mint,
		Held:        d.held,
		Price:       price,
		SlippageBps: slippageBps,
	}, blockhash)
	if err != nil {
		return out, fmt.Errorf("build liquidation: %w", err)
	}
	out.Signature = tx.Signatures[0].String()

	raw, err := tx.MarshalBinary()
	if err != nil {
		return out, fmt.Errorf("serialize liquidation: %w", err)
	}

	log := d.logger.WithFields(logrus.Fields{
		"mint":      d.mint.String(),
		"price":     price,
		"held":      d.held,
		"slippage":  slippageBps,
		"signature": out.Signature,
	})

	if d.mode == ModeDirect {
		sig, err := d.ledger.SendAndConfirmTransaction(ctx, raw, bh.LastValidBlockHeight)
		if sig != "" {
			out.Signature = sig
		}
		if err != nil {
			return out, fmt.Errorf("send liquidation: %w", err)
		}
		log.Info("liquidation confirmed")
		return out, nil
	}

	tipAccount, err := d.tips.Pick()
	if err != nil {
		return out, err
	}
	tipTx, err := txbuilder.BuildTipTransfer(d.signer, tipAccount, d.tip, blockhash)
	if err != nil {
		return out, fmt.Errorf("build tip transfer: %w", err)
	}
	tipRaw, err := tipTx.MarshalBinary()
	if err != nil {
		return out, fmt.Errorf("serialize tip transfer: %w", err)
	}

	bundleID, err := d.relay.SendBundle(ctx, [][]byte{raw, tipRaw})
	if err != nil {
		return out, fmt.Errorf("send bundle: %w", err)
	}
	if bundleID == "" {
		out.Inconclusive = true
		log.Warn("relay accepted bundle without an id")
		return out, nil
	}

	out.BundleID = bundleID
	log.WithFields(logrus.Fields{
		"bundle_id":   bundleID,
		"tip_account": tipAccount.String(),
		"tip":         d.tip,
	}).Info("bundle submitted")
	return out, nil
}
