package pumpfun

import "github.com/gagliardetto/solana-go"

// Event discriminators emitted by the program at bytes 8..16 of a self-CPI payload.
var (
	CreateEventDiscriminator   = [8]byte{27, 114, 169, 77, 222, 235, 99, 118}
	CompleteEventDiscriminator = [8]byte{95, 114, 97, 156, 212, 46, 152, 8}
	TradeEventDiscriminator    = [8]byte{189, 219, 127, 211, 78, 230, 97, 238}
)

// EventKind tags the variant held by an Event.
type EventKind int

const (
	EventUnrecognized EventKind = iota
	EventCreate
	EventComplete
	EventBuy
	EventSell
)

func (k EventKind) String() string {
	switch k {
	case EventCreate:
		return "create"
	case EventComplete:
		return "complete"
	case EventBuy:
		return "buy"
	case EventSell:
		return "sell"
	default:
		return "unrecognized"
	}
}

// TradeEvent is a buy or sell fill on the bonding curve.
type TradeEvent struct {
	Mint                 solana.PublicKey
	SolAmount            uint64
	TokenAmount          uint64
	IsBuy                bool
	User                 solana.PublicKey
	Timestamp            int64
	VirtualSolReserves   uint64
	VirtualTokenReserves uint64
	RealSolReserves      uint64
	RealTokenReserves    uint64
}

// Price returns the spot price implied by the post-trade virtual reserves.
func (e *TradeEvent) Price() float64 {
	return Price(e.VirtualSolReserves, e.VirtualTokenReserves)
}

// CreateEvent is emitted once when a token launches.
type CreateEvent struct {
	Name         string
	Symbol       string
	URI          string
	Mint         solana.PublicKey
	BondingCurve solana.PublicKey
	User         solana.PublicKey
}

// CompleteEvent marks a bonding curve as graduated.
type CompleteEvent struct {
	User         solana.PublicKey
	Mint         solana.PublicKey
	BondingCurve solana.PublicKey
	Timestamp    int64
}

// Event is one decoded program event. Exactly one payload is set, matching Kind;
// none is set for EventUnrecognized.
type Event struct {
	Kind     EventKind
	Create   *CreateEvent
	Complete *CompleteEvent
	Trade    *TradeEvent
}

// Recognized reports whether the payload matched a known event layout.
func (e Event) Recognized() bool {
	return e.Kind != EventUnrecognized
}

// Mint returns the mint the event refers to.
func (e Event) Mint() (solana.PublicKey, bool) {
	switch {
	case e.Trade != nil:
		return e.Trade.Mint, true
	case e.Create != nil:
		return e.Create.Mint, true
	case e.Complete != nil:
		return e.Complete.Mint, true
	}
	return solana.PublicKey{}, false
}
