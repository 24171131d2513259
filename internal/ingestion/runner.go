package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"pumpfun-liquidator/internal/decision"
	"pumpfun-liquidator/internal/execution"
	"pumpfun-liquidator/internal/observability"
	"pumpfun-liquidator/internal/pumpfun"
)

// Default slippage tolerances in basis points.
const (
	DefaultAutoSlippageBps   uint64 = 1500
	DefaultManualSlippageBps uint64 = 5000
)

// Liquidator submits a full exit of the held position.
type Liquidator interface {
	Liquidate(ctx context.Context, price float64, slippageBps uint64) (execution.Outcome, error)
}

// Runner multiplexes the update stream and operator commands for one mint.
type Runner struct {
	source     UpdateSource
	commands   <-chan Command
	evaluator  *decision.Evaluator
	liquidator Liquidator
	price      *LatestPrice
	mint       solana.PublicKey
	held       uint64
	encoding   pumpfun.Encoding

	autoSlippageBps   uint64
	manualSlippageBps uint64

	logger logrus.FieldLogger
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Source     UpdateSource
	Commands   <-chan Command
	Evaluator  *decision.Evaluator
	Liquidator Liquidator
	// Price is shared with whoever seeded it with the startup price.
	Price *LatestPrice
	Mint  solana.PublicKey
	Held  uint64
	// Encoding of inner instruction data. Default: base58.
	Encoding pumpfun.Encoding

	AutoSlippageBps   uint64 // Default: 1500
	ManualSlippageBps uint64 // Default: 5000

	Logger logrus.FieldLogger
}

// NewRunner creates a new ingest runner.
func NewRunner(opts RunnerOptions) *Runner {
	price := opts.Price
	if price == nil {
		price = NewLatestPrice()
	}

	autoSlippage := opts.AutoSlippageBps
	if autoSlippage == 0 {
		autoSlippage = DefaultAutoSlippageBps
	}

	manualSlippage := opts.ManualSlippageBps
	if manualSlippage == 0 {
		manualSlippage = DefaultManualSlippageBps
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Runner{
		source:            opts.Source,
		commands:          opts.Commands,
		evaluator:         opts.Evaluator,
		liquidator:        opts.Liquidator,
		price:             price,
		mint:              opts.Mint,
		held:              opts.Held,
		encoding:          opts.Encoding,
		autoSlippageBps:   autoSlippage,
		manualSlippageBps: manualSlippage,
		logger:            logger.WithField("mint", opts.Mint.String()),
	}
}

// Price returns the shared price cell.
func (r *Runner) Price() *LatestPrice {
	return r.price
}

// Run subscribes to the source and processes updates until the stream closes
// (nil), a manual liquidation completes (its result) or ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	updates, err := r.source.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"held":            r.held,
		"floor":           r.evaluator.Floor(),
		"auto_slippage":   r.autoSlippageBps,
		"manual_slippage": r.manualSlippageBps,
	}).Info("runner started")

	commands := r.commands
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("runner stopping")
			return ctx.Err()

		case cmd, ok := <-commands:
			if !ok {
				// Control input exhausted; keep following the stream.
				commands = nil
				continue
			}
			return r.handleCommand(ctx, cmd)

		case u, ok := <-updates:
			if !ok {
				r.logger.Info("update stream closed")
				return nil
			}
			r.handleUpdate(ctx, u)
		}
	}
}

// handleUpdate runs one iteration of the automated path. Errors are logged and
// never end the loop.
func (r *Runner) handleUpdate(ctx context.Context, u Update) {
	observability.RecordUpdate(u.Kind(), u.Slot, time.Now().Unix())

	if u.Err != nil {
		r.logger.WithError(u.Err).WithField("signature", u.Signature).Warn("stream error")
		return
	}
	if u.Transaction == nil {
		return
	}

	res := pumpfun.Scan(r.mint, u.Transaction.InnerInstructionData(), r.encoding)
	if res.Event.Recognized() {
		observability.RecordEvent(res.Event.Kind.String())
	}
	if !res.Matched {
		return
	}

	log := r.logger.WithFields(logrus.Fields{
		"signature": u.Signature,
		"slot":      u.Slot,
		"price":     res.Price,
	})
	if !pumpfun.IsUsablePrice(res.Price) {
		log.Debug("skip unusable price")
		return
	}

	r.price.Set(res.Price)
	observability.RecordPrice(res.Price)

	d := r.evaluator.Evaluate(res.Price, r.held)
	observability.RecordDecision(string(d.Verdict), d.NetChange)

	log = log.WithFields(logrus.Fields{
		"net_change": d.NetChange,
		"floor":      d.Floor,
		"verdict":    d.Verdict,
	})
	if !d.Execute() {
		log.Debug("hold")
		return
	}

	log.Info("profit floor reached, liquidating")
	out, err := r.liquidator.Liquidate(ctx, res.Price, r.autoSlippageBps)
	if err != nil {
		log.WithError(err).Error("liquidation failed")
		return
	}
	logOutcome(log, out)
}

// handleCommand liquidates at the latest known price without the profit gate.
func (r *Runner) handleCommand(ctx context.Context, cmd Command) error {
	if cmd != CommandLiquidate {
		return fmt.Errorf("unsupported command %s", cmd)
	}

	price, ok := r.price.Get()
	if !ok {
		return errors.New("manual liquidation: no price observed")
	}

	log := r.logger.WithFields(logrus.Fields{
		"price":    price,
		"slippage": r.manualSlippageBps,
	})
	log.Info("manual liquidation requested")

	out, err := r.liquidator.Liquidate(ctx, price, r.manualSlippageBps)
	if err != nil {
		return fmt.Errorf("manual liquidation: %w", err)
	}
	logOutcome(log, out)
	return nil
}

func logOutcome(log logrus.FieldLogger, out execution.Outcome) {
	log = log.WithFields(logrus.Fields{
		"mode":      out.Mode.String(),
		"signature": out.Signature,
	})
	switch {
	case out.Inconclusive:
		log.Warn("bundle outcome inconclusive")
	case out.BundleID != "":
		log.WithField("bundle_id", out.BundleID).Info("bundle submitted")
	default:
		log.Info("liquidation confirmed")
	}
}
