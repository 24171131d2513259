package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"pumpfun-liquidator/internal/config"
	"pumpfun-liquidator/internal/decision"
	"pumpfun-liquidator/internal/execution"
	"pumpfun-liquidator/internal/ingestion"
	"pumpfun-liquidator/internal/jito"
	"pumpfun-liquidator/internal/ledger"
	"pumpfun-liquidator/internal/logger"
	"pumpfun-liquidator/internal/observability"
	"pumpfun-liquidator/internal/oracle"
	"pumpfun-liquidator/internal/pumpfun"
	"pumpfun-liquidator/internal/txbuilder"
)

func main() {
	envFile := flag.String("env-file", ".env", "Environment file loaded if present")
	configFile := flag.String("config", "", "Optional config file (yaml, json, toml)")
	flag.Parse()

	cfg, err := config.Load(config.LoadOptions{EnvFile: *envFile, ConfigFile: *configFile})
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}

	log, err := logger.Setup(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logrus.Fatalf("logger: %v", err)
	}

	if cfg.MetricsAddr != "" {
		go serveMetrics(log, cfg.MetricsAddr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		select {
		case sig := <-sigCh:
			log.Infof("Received signal %v, shutting down", sig)
			cancel()
		case <-done:
			return
		}

		select {
		case sig := <-sigCh:
			log.Warnf("Received second signal %v, forcing exit", sig)
			os.Exit(1)
		case <-done:
		}
	}()

	err = run(ctx, log, cfg)
	close(done)

	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Error: %v", err)
	}
	log.Info("Shutdown complete")
}

func serveMetrics(log logrus.FieldLogger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	log.Infof("Starting metrics server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		log.Errorf("Metrics server error: %v", err)
	}
}

func run(ctx context.Context, log *logrus.Logger, cfg *config.Config) error {
	rpc := ledger.NewHTTPClient(cfg.RPCURL,
		ledger.WithMaxRetries(cfg.RPCMaxRetries),
		ledger.WithConfirmTimeout(cfg.ConfirmTimeout),
	)

	wallet := cfg.Wallet()
	mint := cfg.TokenMint
	mlog := log.WithFields(logrus.Fields{"wallet": wallet.String(), "mint": mint.String()})

	held, err := heldBalance(ctx, rpc, wallet, mint)
	if err != nil {
		return err
	}
	if held == 0 {
		mlog.Info("No tokens held, nothing to liquidate")
		return nil
	}

	if err := logWalletSummary(ctx, mlog, rpc, cfg); err != nil {
		return err
	}

	startPrice, err := curvePrice(ctx, mlog, rpc, mint)
	if err != nil {
		return err
	}

	evaluator := decision.NewEvaluator(decision.Costs{
		LaunchCost: cfg.LaunchCost,
		MinProfit:  cfg.MinProfit,
		Tip:        cfg.Tip,
	})
	mlog.Info(evaluator.Evaluate(startPrice, held).Summary())

	var relay execution.BundleSender
	if cfg.Bundled() {
		client, err := jito.NewClient(cfg.JitoURL, cfg.JitoUUID)
		if err != nil {
			return fmt.Errorf("relay client: %w", err)
		}
		relay = client
	}

	dispatcher, err := execution.NewDispatcher(execution.Options{
		Ledger: rpc,
		Relay:  relay,
		Builder: txbuilder.NewBuilder(txbuilder.Options{
			UnitLimit: cfg.UnitLimit,
			UnitPrice: cfg.UnitPrice,
		}),
		Tips:   txbuilder.NewTipSelector(txbuilder.TipAccounts, nil),
		Signer: cfg.Signer,
		Mint:   mint,
		Held:   held,
		Tip:    cfg.Tip,
		Logger: log,
	})
	if err != nil {
		return fmt.Errorf("dispatcher: %w", err)
	}

	wsConfig := ledger.DefaultWSConfig()
	wsConfig.Logger = log
	ws, err := ledger.NewWSClient(ctx, cfg.StreamURL, &wsConfig)
	if err != nil {
		return fmt.Errorf("stream connect: %w", err)
	}
	defer ws.Close()

	var source ingestion.UpdateSource
	switch cfg.StreamMode {
	case config.StreamLogs:
		source = ingestion.NewWSLogsSource(ws, rpc, cfg.Commitment, log)
	default:
		source = ingestion.NewWSTransactionSource(ws, mint.String(), cfg.Commitment, log)
	}

	price := ingestion.NewLatestPrice()
	price.Set(startPrice)

	commands := make(chan ingestion.Command, 1)
	go func() {
		if err := ingestion.ReadCommands(ctx, os.Stdin, commands); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Warn("command input closed")
		}
	}()

	runner := ingestion.NewRunner(ingestion.RunnerOptions{
		Source:            source,
		Commands:          commands,
		Evaluator:         evaluator,
		Liquidator:        dispatcher,
		Price:             price,
		Mint:              mint,
		Held:              held,
		AutoSlippageBps:   cfg.SlippageBps,
		ManualSlippageBps: cfg.ManualSlippageBps,
		Logger:            log,
	})

	mlog.WithField("mode", dispatcher.Mode().String()).Info("Watching for buys, type q + enter to liquidate now")
	return runner.Run(ctx)
}

// heldBalance returns the raw token amount in the wallet's associated token
// account. A missing account holds nothing.
func heldBalance(ctx context.Context, rpc ledger.RPCClient, wallet, mint solana.PublicKey) (uint64, error) {
	ata, err := pumpfun.AssociatedTokenAddress(wallet, mint)
	if err != nil {
		return 0, fmt.Errorf("derive token account: %w", err)
	}

	info, err := rpc.GetAccountInfo(ctx, ata.String())
	if err != nil {
		return 0, fmt.Errorf("get token account %s: %w", ata, err)
	}
	if info == nil {
		return 0, nil
	}

	held, err := rpc.GetTokenAccountBalance(ctx, ata.String())
	if err != nil {
		return 0, fmt.Errorf("get token balance %s: %w", ata, err)
	}
	return held, nil
}

func logWalletSummary(ctx context.Context, log logrus.FieldLogger, rpc ledger.RPCClient, cfg *config.Config) error {
	lamports, err := rpc.GetBalance(ctx, cfg.Wallet().String())
	if err != nil {
		return fmt.Errorf("get wallet balance: %w", err)
	}

	solUSD, err := oracle.FetchPrice(ctx, rpc, cfg.PythSOLUSDAccount)
	if err != nil {
		return fmt.Errorf("sol/usd price: %w", err)
	}

	log.WithFields(logrus.Fields{
		"sol":       oracle.LamportsToSOL(lamports).StringFixed(4),
		"sol_usd":   solUSD.Decimal().StringFixed(2),
		"value_usd": oracle.ValueUSD(lamports, solUSD).StringFixed(2),
	}).Info("Wallet")
	return nil
}

// curvePrice reads the bonding curve and returns its current price, the
// fallback for a manual liquidation before any buy is observed.
func curvePrice(ctx context.Context, log logrus.FieldLogger, rpc ledger.RPCClient, mint solana.PublicKey) (float64, error) {
	curveAddr, err := pumpfun.BondingCurvePDA(mint)
	if err != nil {
		return 0, fmt.Errorf("derive bonding curve: %w", err)
	}

	data, err := rpc.GetAccountData(ctx, curveAddr.String())
	if err != nil {
		return 0, fmt.Errorf("get bonding curve %s: %w", curveAddr, err)
	}
	if data == nil {
		return 0, fmt.Errorf("bonding curve %s not found", curveAddr)
	}

	state, err := pumpfun.DecodeBondingCurve(data)
	if err != nil {
		return 0, err
	}

	price := state.Price()
	if !pumpfun.IsUsablePrice(price) {
		return 0, fmt.Errorf("bonding curve %s has no usable price", curveAddr)
	}

	clog := log.WithFields(logrus.Fields{"curve": curveAddr.String(), "price": price})
	if state.Complete {
		clog.Warn("Bonding curve is complete, sells will fail on the curve")
	} else {
		clog.Info("Bonding curve")
	}
	return price, nil
}
