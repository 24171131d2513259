package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	"TOKEN_MINT", "PK", "RPC_URL", "STREAM_URL", "GRPC_URL", "WS_URL", "STREAM_MODE",
	"COMMITMENT", "LAUNCH_COST", "MIN_PROFIT", "TIP", "JITO", "JITO_UUID", "UNIT_LIMIT",
	"UNIT_PRICE", "SLIPPAGE_BPS", "MANUAL_SLIPPAGE_BPS", "PYTH_SOL_USD_ACCOUNT",
	"RPC_MAX_RETRIES", "CONFIRM_TIMEOUT", "LOG_LEVEL", "LOG_FORMAT", "METRICS_ADDR",
}

// clearEnv unsets every setting for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func setRequired(t *testing.T) (solana.PublicKey, solana.PrivateKey) {
	t.Helper()
	mint := solana.NewWallet().PublicKey()
	signer := solana.NewWallet().PrivateKey

	t.Setenv("TOKEN_MINT", mint.String())
	t.Setenv("PK", signer.String())
	t.Setenv("RPC_URL", "https://rpc.example.com")
	t.Setenv("STREAM_URL", "wss://stream.example.com")
	t.Setenv("LAUNCH_COST", "5000")
	t.Setenv("MIN_PROFIT", "10000000")
	t.Setenv("TIP", "0")
	return mint, signer
}

func noEnvFile(t *testing.T) LoadOptions {
	return LoadOptions{EnvFile: filepath.Join(t.TempDir(), "missing.env")}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	mint, signer := setRequired(t)

	cfg, err := Load(noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, mint, cfg.TokenMint)
	assert.Equal(t, signer.PublicKey(), cfg.Wallet())
	assert.Equal(t, uint64(5000), cfg.LaunchCost)
	assert.Equal(t, uint64(10_000_000), cfg.MinProfit)
	assert.False(t, cfg.Bundled())
	assert.Equal(t, StreamTransactions, cfg.StreamMode)
	assert.Equal(t, "processed", cfg.Commitment)
	assert.Equal(t, uint32(DefaultUnitLimit), cfg.UnitLimit)
	assert.Equal(t, uint64(DefaultUnitPrice), cfg.UnitPrice)
	assert.Equal(t, uint64(1500), cfg.SlippageBps)
	assert.Equal(t, uint64(5000), cfg.ManualSlippageBps)
	assert.Equal(t, DefaultPythSOLUSDAccount, cfg.PythSOLUSDAccount.String())
	assert.Equal(t, 0, cfg.RPCMaxRetries)
	assert.Equal(t, 60*time.Second, cfg.ConfirmTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.MetricsAddr)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	setRequired(t)
	t.Setenv("TIP", "1000000")
	t.Setenv("JITO", "https://mainnet.block-engine.jito.wtf")
	t.Setenv("JITO_UUID", "abc")
	t.Setenv("STREAM_MODE", "LOGS")
	t.Setenv("UNIT_LIMIT", "200000")
	t.Setenv("UNIT_PRICE", "1")
	t.Setenv("SLIPPAGE_BPS", "100")
	t.Setenv("CONFIRM_TIMEOUT", "15s")

	cfg, err := Load(noEnvFile(t))
	require.NoError(t, err)

	assert.True(t, cfg.Bundled())
	assert.Equal(t, "https://mainnet.block-engine.jito.wtf", cfg.JitoURL)
	assert.Equal(t, "abc", cfg.JitoUUID)
	assert.Equal(t, StreamLogs, cfg.StreamMode)
	assert.Equal(t, uint32(200_000), cfg.UnitLimit)
	assert.Equal(t, uint64(1), cfg.UnitPrice)
	assert.Equal(t, uint64(100), cfg.SlippageBps)
	assert.Equal(t, 15*time.Second, cfg.ConfirmTimeout)
}

func TestLoad_StreamURLAliases(t *testing.T) {
	clearEnv(t)
	setRequired(t)
	os.Unsetenv("STREAM_URL")
	t.Setenv("GRPC_URL", "wss://grpc.example.com")

	cfg, err := Load(noEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, "wss://grpc.example.com", cfg.StreamURL)
}

func TestLoad_MissingRequired(t *testing.T) {
	for _, key := range []string{"TOKEN_MINT", "PK", "RPC_URL", "STREAM_URL", "LAUNCH_COST", "MIN_PROFIT", "TIP"} {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			setRequired(t)
			os.Unsetenv(key)

			_, err := Load(noEnvFile(t))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMissing), "got %v", err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoad_TipRequiresRelay(t *testing.T) {
	clearEnv(t)
	setRequired(t)
	t.Setenv("TIP", "1000")

	_, err := Load(noEnvFile(t))
	assert.ErrorIs(t, err, ErrMissing)
	assert.ErrorContains(t, err, "JITO")
}

func TestLoad_StrictParsing(t *testing.T) {
	tests := map[string]string{
		"LAUNCH_COST":     "5k",
		"MIN_PROFIT":      "-1",
		"TIP":             "1.5",
		"UNIT_LIMIT":      "5000000000",
		"SLIPPAGE_BPS":    "10001",
		"TOKEN_MINT":      "not-a-key",
		"PK":              "abc",
		"STREAM_MODE":     "grpc",
		"COMMITMENT":      "rooted",
		"CONFIRM_TIMEOUT": "60",
		"RPC_MAX_RETRIES": "-2",
	}

	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			setRequired(t)
			t.Setenv(key, value)

			_, err := Load(noEnvFile(t))
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	mint := solana.NewWallet().PublicKey()
	signer := solana.NewWallet().PrivateKey

	path := filepath.Join(t.TempDir(), ".env")
	content := "TOKEN_MINT=" + mint.String() + "\n" +
		"PK=" + signer.String() + "\n" +
		"RPC_URL=https://rpc.example.com\n" +
		"WS_URL=wss://ws.example.com\n" +
		"LAUNCH_COST=1\nMIN_PROFIT=2\nTIP=0\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("MIN_PROFIT", "99")

	cfg, err := Load(LoadOptions{EnvFile: path})
	require.NoError(t, err)

	assert.Equal(t, mint, cfg.TokenMint)
	assert.Equal(t, "wss://ws.example.com", cfg.StreamURL)
	assert.Equal(t, uint64(99), cfg.MinProfit, "process environment wins over .env")
}

func TestLoad_ConfigFile(t *testing.T) {
	clearEnv(t)
	setRequired(t)

	path := filepath.Join(t.TempDir(), "liquidator.yaml")
	require.NoError(t, os.WriteFile(path, []byte("slippage_bps: 700\nlog_format: json\nlaunch_cost: 1\n"), 0o600))

	cfg, err := Load(LoadOptions{EnvFile: path + ".missing", ConfigFile: path})
	require.NoError(t, err)

	assert.Equal(t, uint64(700), cfg.SlippageBps)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, uint64(5000), cfg.LaunchCost, "environment wins over config file")
}
