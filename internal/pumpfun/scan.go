package pumpfun

import "github.com/gagliardetto/solana-go"

// ScanResult is the outcome of scanning one transaction's inner instructions.
type ScanResult struct {
	// Event is the first recognized event, if any.
	Event Event
	// Matched is true when Event is a buy of the target mint.
	Matched bool
	// Price is derived from the matched buy's virtual reserves.
	Price float64
}

// Scan walks instruction payloads in order and stops at the first recognized event.
// Only a buy of target yields a match; a sell, an off-target buy, a create or a
// complete ends the scan without one. Undecodable payloads are skipped.
func Scan(target solana.PublicKey, payloads []string, enc Encoding) ScanResult {
	for _, payload := range payloads {
		data, err := DecodeInstructionData(payload, enc)
		if err != nil {
			continue
		}

		ev := DecodeEvent(data)
		if !ev.Recognized() {
			continue
		}

		if ev.Kind == EventBuy && ev.Trade.Mint.Equals(target) {
			return ScanResult{
				Event:   ev,
				Matched: true,
				Price:   ev.Trade.Price(),
			}
		}
		return ScanResult{Event: ev}
	}
	return ScanResult{}
}
