package pumpfun

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// Encoding of instruction data strings in transaction metadata.
type Encoding int

const (
	EncodingBase58 Encoding = iota
	EncodingBase64
)

// eventHeaderLen covers the 8-byte instruction tag and the 8-byte event discriminator.
const eventHeaderLen = 16

// maxStringLen caps length-prefixed strings so garbage lengths fail fast.
const maxStringLen = 1024

var errShortBuffer = errors.New("short buffer")

// DecodeInstructionData decodes an instruction data string.
func DecodeInstructionData(data string, enc Encoding) ([]byte, error) {
	switch enc {
	case EncodingBase58:
		return base58.Decode(data)
	case EncodingBase64:
		return base64.StdEncoding.DecodeString(data)
	default:
		return nil, fmt.Errorf("unknown encoding %d", enc)
	}
}

// DecodeEvent classifies a raw instruction payload. Payloads that are too short,
// carry an unknown discriminator or do not fit the event layout yield an
// unrecognized Event.
func DecodeEvent(data []byte) Event {
	if len(data) < eventHeaderLen {
		return Event{}
	}

	disc := data[8:16]
	body := data[eventHeaderLen:]

	switch {
	case bytes.Equal(disc, CreateEventDiscriminator[:]):
		ev, err := decodeCreateEvent(body)
		if err != nil {
			return Event{}
		}
		return Event{Kind: EventCreate, Create: ev}

	case bytes.Equal(disc, CompleteEventDiscriminator[:]):
		ev, err := decodeCompleteEvent(body)
		if err != nil {
			return Event{}
		}
		return Event{Kind: EventComplete, Complete: ev}

	case bytes.Equal(disc, TradeEventDiscriminator[:]):
		ev, err := decodeTradeEvent(body)
		if err != nil {
			return Event{}
		}
		if ev.IsBuy {
			return Event{Kind: EventBuy, Trade: ev}
		}
		return Event{Kind: EventSell, Trade: ev}
	}

	return Event{}
}

// Field layouts. Trailing bytes after the listed fields are ignored: newer
// program versions append fields to the same events.

func decodeCreateEvent(body []byte) (*CreateEvent, error) {
	d := decoder{buf: body}
	ev := &CreateEvent{
		Name:         d.string(),
		Symbol:       d.string(),
		URI:          d.string(),
		Mint:         d.pubkey(),
		BondingCurve: d.pubkey(),
		User:         d.pubkey(),
	}
	return ev, d.err
}

func decodeCompleteEvent(body []byte) (*CompleteEvent, error) {
	d := decoder{buf: body}
	ev := &CompleteEvent{
		User:         d.pubkey(),
		Mint:         d.pubkey(),
		BondingCurve: d.pubkey(),
		Timestamp:    d.int64(),
	}
	return ev, d.err
}

func decodeTradeEvent(body []byte) (*TradeEvent, error) {
	d := decoder{buf: body}
	ev := &TradeEvent{
		Mint:                 d.pubkey(),
		SolAmount:            d.uint64(),
		TokenAmount:          d.uint64(),
		IsBuy:                d.bool(),
		User:                 d.pubkey(),
		Timestamp:            d.int64(),
		VirtualSolReserves:   d.uint64(),
		VirtualTokenReserves: d.uint64(),
		RealSolReserves:      d.uint64(),
		RealTokenReserves:    d.uint64(),
	}
	return ev, d.err
}

// decoder reads borsh-encoded little-endian fields. The first failure sticks;
// later reads return zero values.
type decoder struct {
	buf []byte
	off int
	err error
}

func (d *decoder) next(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || d.off+n > len(d.buf) {
		d.err = fmt.Errorf("read %d bytes at offset %d: %w", n, d.off, errShortBuffer)
		return nil
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b
}

func (d *decoder) uint64() uint64 {
	b := d.next(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (d *decoder) int64() int64 {
	return int64(d.uint64())
}

func (d *decoder) bool() bool {
	b := d.next(1)
	if b == nil {
		return false
	}
	switch b[0] {
	case 0:
		return false
	case 1:
		return true
	}
	d.err = fmt.Errorf("invalid bool byte %d at offset %d", b[0], d.off-1)
	return false
}

func (d *decoder) pubkey() solana.PublicKey {
	b := d.next(solana.PublicKeyLength)
	if b == nil {
		return solana.PublicKey{}
	}
	return solana.PublicKeyFromBytes(b)
}

func (d *decoder) string() string {
	lb := d.next(4)
	if lb == nil {
		return ""
	}
	n := binary.LittleEndian.Uint32(lb)
	if n > maxStringLen {
		d.err = fmt.Errorf("string length %d exceeds %d", n, maxStringLen)
		return ""
	}
	b := d.next(int(n))
	if b == nil {
		return ""
	}
	if !utf8.Valid(b) {
		d.err = fmt.Errorf("invalid utf-8 string at offset %d", d.off-int(n))
		return ""
	}
	return string(b)
}
