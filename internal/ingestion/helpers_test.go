package ingestion

import (
	"context"
	"encoding/binary"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"

	"pumpfun-liquidator/internal/execution"
	"pumpfun-liquidator/internal/ledger"
	"pumpfun-liquidator/internal/pumpfun"
)

// eventIxTag is the self-CPI instruction tag that precedes emitted events.
var eventIxTag = []byte{0xe4, 0x45, 0xa5, 0x2e, 0x51, 0xcb, 0x9a, 0x1d}

// tradePayload encodes a trade event as base58 inner instruction data.
func tradePayload(mint solana.PublicKey, isBuy bool, vSol, vToken uint64) string {
	buf := append([]byte{}, eventIxTag...)
	buf = append(buf, pumpfun.TradeEventDiscriminator[:]...)
	buf = append(buf, mint[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, 1_000_000_000)
	buf = binary.LittleEndian.AppendUint64(buf, 25_000_000)
	if isBuy {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	user := solana.NewWallet().PublicKey()
	buf = append(buf, user[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, 1_700_000_000)
	buf = binary.LittleEndian.AppendUint64(buf, vSol)
	buf = binary.LittleEndian.AppendUint64(buf, vToken)
	buf = binary.LittleEndian.AppendUint64(buf, vSol-pumpfun.InitialVirtualSolReserves)
	buf = binary.LittleEndian.AppendUint64(buf, vToken)
	return base58.Encode(buf)
}

func txUpdate(slot int64, payloads ...string) Update {
	ixs := make([]ledger.CompiledInstruction, 0, len(payloads))
	for _, p := range payloads {
		ixs = append(ixs, ledger.CompiledInstruction{Data: p})
	}
	return Update{
		Slot:      slot,
		Signature: "sig",
		Transaction: &ledger.Transaction{
			Slot:      slot,
			Signature: "sig",
			Meta: &ledger.TransactionMeta{
				InnerInstructions: []ledger.InnerInstructions{{Index: 0, Instructions: ixs}},
			},
		},
	}
}

// chanSource replays a fixed channel of updates.
type chanSource struct {
	ch  chan Update
	err error
}

func newChanSource(updates ...Update) *chanSource {
	ch := make(chan Update, len(updates)+1)
	for _, u := range updates {
		ch <- u
	}
	return &chanSource{ch: ch}
}

func (s *chanSource) Subscribe(context.Context) (<-chan Update, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.ch, nil
}

type liquidateCall struct {
	price    float64
	slippage uint64
}

type fakeLiquidator struct {
	mu    sync.Mutex
	err   error
	calls []liquidateCall
}

func (l *fakeLiquidator) Liquidate(_ context.Context, price float64, slippageBps uint64) (execution.Outcome, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, liquidateCall{price: price, slippage: slippageBps})
	return execution.Outcome{Mode: execution.ModeDirect, Signature: "fake"}, l.err
}

func (l *fakeLiquidator) Calls() []liquidateCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]liquidateCall(nil), l.calls...)
}

func newMint(t *testing.T) solana.PublicKey {
	t.Helper()
	return solana.NewWallet().PublicKey()
}
