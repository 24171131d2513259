package ingestion

import (
	"context"
	"sync"
)

// LatestPrice holds the most recent observed price. Set wakes every goroutine
// waiting on the previous Changed channel.
type LatestPrice struct {
	mu      sync.Mutex
	price   float64
	ok      bool
	changed chan struct{}
}

// NewLatestPrice creates an empty price cell.
func NewLatestPrice() *LatestPrice {
	return &LatestPrice{changed: make(chan struct{})}
}

// Set stores price and notifies waiters.
func (p *LatestPrice) Set(price float64) {
	p.mu.Lock()
	p.price = price
	p.ok = true
	close(p.changed)
	p.changed = make(chan struct{})
	p.mu.Unlock()
}

// Get returns the stored price and whether one was ever set.
func (p *LatestPrice) Get() (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.price, p.ok
}

// Changed returns a channel closed by the next Set.
func (p *LatestPrice) Changed() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.changed
}

// Wait returns the stored price, blocking until one is set or ctx ends.
func (p *LatestPrice) Wait(ctx context.Context) (float64, error) {
	for {
		p.mu.Lock()
		price, ok, changed := p.price, p.ok, p.changed
		p.mu.Unlock()
		if ok {
			return price, nil
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}
