package pumpfun

import (
	"encoding/base64"
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// eventPayload prefixes body with an instruction tag and disc.
func eventPayload(disc [8]byte, body []byte) []byte {
	data := []byte{0xe4, 0x45, 0xa5, 0x2e, 0x51, 0xcb, 0x9a, 0x1d}
	data = append(data, disc[:]...)
	return append(data, body...)
}

func encodeTrade(ev TradeEvent) []byte {
	var b []byte
	b = append(b, ev.Mint[:]...)
	b = binary.LittleEndian.AppendUint64(b, ev.SolAmount)
	b = binary.LittleEndian.AppendUint64(b, ev.TokenAmount)
	if ev.IsBuy {
		b = append(b, 1)
	} else {
		b = append(b, 0)
	}
	b = append(b, ev.User[:]...)
	b = binary.LittleEndian.AppendUint64(b, uint64(ev.Timestamp))
	b = binary.LittleEndian.AppendUint64(b, ev.VirtualSolReserves)
	b = binary.LittleEndian.AppendUint64(b, ev.VirtualTokenReserves)
	b = binary.LittleEndian.AppendUint64(b, ev.RealSolReserves)
	b = binary.LittleEndian.AppendUint64(b, ev.RealTokenReserves)
	return eventPayload(TradeEventDiscriminator, b)
}

func appendString(b []byte, s string) []byte {
	b = binary.LittleEndian.AppendUint32(b, uint32(len(s)))
	return append(b, s...)
}

func encodeCreate(ev CreateEvent) []byte {
	var b []byte
	b = appendString(b, ev.Name)
	b = appendString(b, ev.Symbol)
	b = appendString(b, ev.URI)
	b = append(b, ev.Mint[:]...)
	b = append(b, ev.BondingCurve[:]...)
	b = append(b, ev.User[:]...)
	return eventPayload(CreateEventDiscriminator, b)
}

func encodeComplete(ev CompleteEvent) []byte {
	var b []byte
	b = append(b, ev.User[:]...)
	b = append(b, ev.Mint[:]...)
	b = append(b, ev.BondingCurve[:]...)
	b = binary.LittleEndian.AppendUint64(b, uint64(ev.Timestamp))
	return eventPayload(CompleteEventDiscriminator, b)
}

func newKey(t *testing.T) solana.PublicKey {
	t.Helper()
	return solana.NewWallet().PublicKey()
}

func sampleTrade(t *testing.T, isBuy bool) TradeEvent {
	return TradeEvent{
		Mint:                 newKey(t),
		SolAmount:            1_500_000_000,
		TokenAmount:          52_000_000_000,
		IsBuy:                isBuy,
		User:                 newKey(t),
		Timestamp:            1_718_000_000,
		VirtualSolReserves:   40_000_000_000,
		VirtualTokenReserves: 900_000_000_000_000,
		RealSolReserves:      10_000_000_000,
		RealTokenReserves:    700_000_000_000_000,
	}
}

func TestDecodeEvent_Trade(t *testing.T) {
	for _, isBuy := range []bool{true, false} {
		want := sampleTrade(t, isBuy)
		ev := DecodeEvent(encodeTrade(want))

		wantKind := EventSell
		if isBuy {
			wantKind = EventBuy
		}
		if ev.Kind != wantKind {
			t.Fatalf("kind = %s, want %s", ev.Kind, wantKind)
		}
		if ev.Trade == nil || *ev.Trade != want {
			t.Errorf("trade = %+v, want %+v", ev.Trade, want)
		}
		if mint, ok := ev.Mint(); !ok || !mint.Equals(want.Mint) {
			t.Errorf("Mint() = %s, %v", mint, ok)
		}
	}
}

func TestDecodeEvent_Create(t *testing.T) {
	want := CreateEvent{
		Name:         "Dog Wif Hat",
		Symbol:       "WIF",
		URI:          "https://ipfs.io/ipfs/QmExample",
		Mint:         newKey(t),
		BondingCurve: newKey(t),
		User:         newKey(t),
	}
	ev := DecodeEvent(encodeCreate(want))
	if ev.Kind != EventCreate {
		t.Fatalf("kind = %s, want create", ev.Kind)
	}
	if *ev.Create != want {
		t.Errorf("create = %+v, want %+v", ev.Create, want)
	}
}

func TestDecodeEvent_Complete(t *testing.T) {
	want := CompleteEvent{
		User:         newKey(t),
		Mint:         newKey(t),
		BondingCurve: newKey(t),
		Timestamp:    -5,
	}
	ev := DecodeEvent(encodeComplete(want))
	if ev.Kind != EventComplete {
		t.Fatalf("kind = %s, want complete", ev.Kind)
	}
	if *ev.Complete != want {
		t.Errorf("complete = %+v, want %+v", ev.Complete, want)
	}
}

func TestDecodeEvent_TrailingBytesTolerated(t *testing.T) {
	want := sampleTrade(t, true)
	data := append(encodeTrade(want), 0xde, 0xad, 0xbe, 0xef)
	ev := DecodeEvent(data)
	if ev.Kind != EventBuy || *ev.Trade != want {
		t.Errorf("trailing bytes broke decode: %+v", ev)
	}
}

func TestDecodeEvent_Unrecognized(t *testing.T) {
	trade := encodeTrade(sampleTrade(t, true))

	corrupted := append([]byte(nil), trade...)
	corrupted[9] ^= 0xff

	badBool := append([]byte(nil), trade...)
	badBool[16+32+8+8] = 2

	longName := appendString(nil, string(make([]byte, maxStringLen+1)))
	invalidUTF8 := appendString(nil, "\xff\xfe")

	tests := []struct {
		name string
		data []byte
	}{
		{"nil", nil},
		{"shorter than header", trade[:15]},
		{"header only", trade[:16]},
		{"truncated trade", trade[:len(trade)-1]},
		{"corrupted discriminator", corrupted},
		{"bool out of range", badBool},
		{"oversized string", eventPayload(CreateEventDiscriminator, longName)},
		{"invalid utf-8", eventPayload(CreateEventDiscriminator, invalidUTF8)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := DecodeEvent(tt.data)
			if ev.Recognized() {
				t.Errorf("expected unrecognized, got %s", ev.Kind)
			}
			if ev.Trade != nil || ev.Create != nil || ev.Complete != nil {
				t.Error("unrecognized event should carry no payload")
			}
		})
	}
}

func TestDecodeInstructionData(t *testing.T) {
	raw := encodeTrade(sampleTrade(t, true))

	got, err := DecodeInstructionData(base58.Encode(raw), EncodingBase58)
	if err != nil || string(got) != string(raw) {
		t.Errorf("base58 decode mismatch: %v", err)
	}

	got, err = DecodeInstructionData(base64.StdEncoding.EncodeToString(raw), EncodingBase64)
	if err != nil || string(got) != string(raw) {
		t.Errorf("base64 decode mismatch: %v", err)
	}

	if _, err := DecodeInstructionData("0OIl", EncodingBase58); err == nil {
		t.Error("expected error for invalid base58 alphabet")
	}
	if _, err := DecodeInstructionData("abc", Encoding(9)); err == nil {
		t.Error("expected error for unknown encoding")
	}
}
