// Package oracle reads Pyth price accounts.
package oracle

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// SOLUSDPriceAccount is the Pyth SOL/USD price account on mainnet.
var SOLUSDPriceAccount = solana.MustPublicKeyFromBase58("H6ARHf6YXhGYeQfUzQNGk6rDNnLBQKrenN712K4AQJEG")

const (
	pythMagic        uint32 = 0xa1b2c3d4
	pythVersion2     uint32 = 2
	accountTypePrice uint32 = 3

	offsetMagic        = 0
	offsetVersion      = 4
	offsetAccountType  = 8
	offsetExpo         = 20
	offsetAggPrice     = 208
	offsetAggConf      = 216
	offsetAggStatus    = 224
	offsetAggPubSlot   = 232
	minPriceAccountLen = 240
)

var (
	ErrInvalidPriceAccount = errors.New("invalid pyth price account")
	ErrAccountNotFound     = errors.New("price account not found")
)

// Price is an aggregate price as mantissa * 10^Expo.
type Price struct {
	Mantissa    int64
	Expo        int32
	Conf        uint64
	Status      uint32
	PublishSlot uint64
}

// Decimal returns the exact price value.
func (p Price) Decimal() decimal.Decimal {
	return decimal.New(p.Mantissa, p.Expo)
}

// Float64 returns the price as a float.
func (p Price) Float64() float64 {
	f, _ := p.Decimal().Float64()
	return f
}

// DecodePriceAccount decodes the aggregate price of a v2 price account without
// checking its trading status or staleness.
func DecodePriceAccount(data []byte) (Price, error) {
	if len(data) < minPriceAccountLen {
		return Price{}, fmt.Errorf("%w: length %d", ErrInvalidPriceAccount, len(data))
	}

	le := binary.LittleEndian
	if magic := le.Uint32(data[offsetMagic:]); magic != pythMagic {
		return Price{}, fmt.Errorf("%w: magic %#x", ErrInvalidPriceAccount, magic)
	}
	if ver := le.Uint32(data[offsetVersion:]); ver != pythVersion2 {
		return Price{}, fmt.Errorf("%w: version %d", ErrInvalidPriceAccount, ver)
	}
	if atype := le.Uint32(data[offsetAccountType:]); atype != accountTypePrice {
		return Price{}, fmt.Errorf("%w: account type %d", ErrInvalidPriceAccount, atype)
	}

	return Price{
		Mantissa:    int64(le.Uint64(data[offsetAggPrice:])),
		Expo:        int32(le.Uint32(data[offsetExpo:])),
		Conf:        le.Uint64(data[offsetAggConf:]),
		Status:      le.Uint32(data[offsetAggStatus:]),
		PublishSlot: le.Uint64(data[offsetAggPubSlot:]),
	}, nil
}

// AccountFetcher reads raw account data.
type AccountFetcher interface {
	GetAccountData(ctx context.Context, address string) ([]byte, error)
}

// FetchPrice reads and decodes a price account.
func FetchPrice(ctx context.Context, fetcher AccountFetcher, account solana.PublicKey) (Price, error) {
	data, err := fetcher.GetAccountData(ctx, account.String())
	if err != nil {
		return Price{}, fmt.Errorf("get price account %s: %w", account, err)
	}
	if data == nil {
		return Price{}, fmt.Errorf("%s: %w", account, ErrAccountNotFound)
	}
	return DecodePriceAccount(data)
}

var lamportsPerSOL = decimal.New(1, 9)

// LamportsToSOL converts lamports to SOL.
func LamportsToSOL(lamports uint64) decimal.Decimal {
	return decimal.NewFromUint64(lamports).Div(lamportsPerSOL)
}

// ValueUSD values a lamport amount at the given SOL/USD price.
func ValueUSD(lamports uint64, solUSD Price) decimal.Decimal {
	return LamportsToSOL(lamports).Mul(solUSD.Decimal())
}
