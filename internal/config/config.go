// Package config builds the liquidator's immutable configuration from the
// environment, an optional .env file and an optional config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Stream modes.
const (
	StreamTransactions = "transactions"
	StreamLogs         = "logs"
)

// Defaults for optional settings.
const (
	DefaultStreamMode        = StreamTransactions
	DefaultCommitment        = "processed"
	DefaultUnitLimit         = 500_000
	DefaultUnitPrice         = 20_000
	DefaultSlippageBps       = 1500
	DefaultManualSlippageBps = 5000
	DefaultRPCMaxRetries     = 0
	DefaultConfirmTimeout    = 60 * time.Second
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
	DefaultPythSOLUSDAccount = "H6ARHf6YXhGYeQfUzQNGk6rDNnLBQKrenN712K4AQJEG"
)

// Config is the process configuration. It is built once at startup and never mutated.
type Config struct {
	TokenMint solana.PublicKey
	Signer    solana.PrivateKey

	RPCURL     string
	StreamURL  string
	StreamMode string
	Commitment string

	// Costs in lamports.
	LaunchCost uint64
	MinProfit  uint64
	Tip        uint64

	JitoURL  string
	JitoUUID string

	UnitLimit         uint32
	UnitPrice         uint64
	SlippageBps       uint64
	ManualSlippageBps uint64

	PythSOLUSDAccount solana.PublicKey

	RPCMaxRetries  int
	ConfirmTimeout time.Duration

	LogLevel    string
	LogFormat   string
	MetricsAddr string
}

// Wallet returns the signer's public key.
func (c *Config) Wallet() solana.PublicKey {
	return c.Signer.PublicKey()
}

// Bundled reports whether liquidations go through the relay with a tip.
func (c *Config) Bundled() bool {
	return c.Tip > 0
}

// LoadOptions locates optional configuration sources.
type LoadOptions struct {
	// EnvFile is loaded into the environment if it exists. Defaults to ".env".
	EnvFile string
	// ConfigFile is read by viper when set. Environment variables take precedence.
	ConfigFile string
}

// Load reads the configuration. Any missing required value or malformed value is an error.
func Load(opts LoadOptions) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("stream_url", "STREAM_URL", "GRPC_URL", "WS_URL"); err != nil {
		return nil, err
	}

	v.SetDefault("stream_mode", DefaultStreamMode)
	v.SetDefault("commitment", DefaultCommitment)
	v.SetDefault("unit_limit", DefaultUnitLimit)
	v.SetDefault("unit_price", DefaultUnitPrice)
	v.SetDefault("slippage_bps", DefaultSlippageBps)
	v.SetDefault("manual_slippage_bps", DefaultManualSlippageBps)
	v.SetDefault("rpc_max_retries", DefaultRPCMaxRetries)
	v.SetDefault("confirm_timeout", DefaultConfirmTimeout.String())
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("log_format", DefaultLogFormat)
	v.SetDefault("pyth_sol_usd_account", DefaultPythSOLUSDAccount)

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	return fromViper(v)
}

// parser collects the first error of a sequence of field reads.
type parser struct {
	v   *viper.Viper
	err error
}

func (p *parser) fail(key string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%s: %w", strings.ToUpper(key), err)
	}
}

func (p *parser) raw(key string) string {
	return strings.TrimSpace(p.v.GetString(key))
}

func (p *parser) required(key string) string {
	s := p.raw(key)
	if s == "" {
		p.fail(key, ErrMissing)
	}
	return s
}

func (p *parser) uint64(key string, required bool) uint64 {
	s := p.raw(key)
	if s == "" {
		if required {
			p.fail(key, ErrMissing)
		}
		return 0
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		p.fail(key, err)
	}
	return n
}

func (p *parser) uint32(key string) uint32 {
	n, err := strconv.ParseUint(p.raw(key), 10, 32)
	if err != nil {
		p.fail(key, err)
	}
	return uint32(n)
}

func (p *parser) int(key string) int {
	n, err := strconv.Atoi(p.raw(key))
	if err != nil {
		p.fail(key, err)
	}
	return n
}

func (p *parser) duration(key string) time.Duration {
	d, err := time.ParseDuration(p.raw(key))
	if err != nil {
		p.fail(key, err)
	}
	return d
}

func (p *parser) pubkey(key string) solana.PublicKey {
	s := p.required(key)
	if s == "" {
		return solana.PublicKey{}
	}
	pk, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		p.fail(key, err)
	}
	return pk
}

// ErrMissing marks a required setting that is absent.
var ErrMissing = errors.New("required setting is missing")

func fromViper(v *viper.Viper) (*Config, error) {
	p := &parser{v: v}

	cfg := &Config{
		TokenMint:         p.pubkey("token_mint"),
		RPCURL:            p.required("rpc_url"),
		StreamURL:         p.required("stream_url"),
		StreamMode:        strings.ToLower(p.raw("stream_mode")),
		Commitment:        strings.ToLower(p.raw("commitment")),
		LaunchCost:        p.uint64("launch_cost", true),
		MinProfit:         p.uint64("min_profit", true),
		Tip:               p.uint64("tip", true),
		JitoURL:           p.raw("jito"),
		JitoUUID:          p.raw("jito_uuid"),
		UnitLimit:         p.uint32("unit_limit"),
		UnitPrice:         p.uint64("unit_price", true),
		SlippageBps:       p.uint64("slippage_bps", true),
		ManualSlippageBps: p.uint64("manual_slippage_bps", true),
		PythSOLUSDAccount: p.pubkey("pyth_sol_usd_account"),
		RPCMaxRetries:     p.int("rpc_max_retries"),
		ConfirmTimeout:    p.duration("confirm_timeout"),
		LogLevel:          p.raw("log_level"),
		LogFormat:         strings.ToLower(p.raw("log_format")),
		MetricsAddr:       p.raw("metrics_addr"),
	}

	if pk := p.required("pk"); pk != "" {
		signer, err := solana.PrivateKeyFromBase58(pk)
		if err != nil {
			p.fail("pk", err)
		} else if len(signer) != 64 {
			p.fail("pk", fmt.Errorf("expected 64-byte keypair, got %d bytes", len(signer)))
		} else {
			cfg.Signer = signer
		}
	}

	if p.err != nil {
		return nil, p.err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.StreamMode {
	case StreamTransactions, StreamLogs:
	default:
		return fmt.Errorf("STREAM_MODE: unknown mode %q", c.StreamMode)
	}
	switch c.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		return fmt.Errorf("COMMITMENT: unknown level %q", c.Commitment)
	}
	if c.Tip > 0 && c.JitoURL == "" {
		return fmt.Errorf("JITO: %w (required when TIP > 0)", ErrMissing)
	}
	if c.SlippageBps > 10_000 {
		return fmt.Errorf("SLIPPAGE_BPS: %d exceeds 10000", c.SlippageBps)
	}
	if c.ManualSlippageBps > 10_000 {
		return fmt.Errorf("MANUAL_SLIPPAGE_BPS: %d exceeds 10000", c.ManualSlippageBps)
	}
	if c.UnitLimit == 0 {
		return fmt.Errorf("UNIT_LIMIT: must be positive")
	}
	if c.RPCMaxRetries < 0 {
		return fmt.Errorf("RPC_MAX_RETRIES: must not be negative")
	}
	if c.ConfirmTimeout <= 0 {
		return fmt.Errorf("CONFIRM_TIMEOUT: must be positive")
	}
	return nil
}
