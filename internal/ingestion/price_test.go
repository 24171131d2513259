package ingestion

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatestPrice_GetBeforeSet(t *testing.T) {
	p := NewLatestPrice()
	_, ok := p.Get()
	assert.False(t, ok)

	p.Set(0.5)
	price, ok := p.Get()
	assert.True(t, ok)
	assert.Equal(t, 0.5, price)
}

func TestLatestPrice_WaitReturnsStoredPrice(t *testing.T) {
	p := NewLatestPrice()
	p.Set(1.25)

	price, err := p.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1.25, price)
}

func TestLatestPrice_WaitBlocksUntilSet(t *testing.T) {
	p := NewLatestPrice()

	got := make(chan float64, 1)
	go func() {
		price, err := p.Wait(context.Background())
		if err == nil {
			got <- price
		}
	}()

	select {
	case <-got:
		t.Fatal("Wait returned before Set")
	case <-time.After(20 * time.Millisecond):
	}

	p.Set(2)
	select {
	case price := <-got:
		assert.Equal(t, 2.0, price)
	case <-time.After(time.Second):
		t.Fatal("Wait not woken by Set")
	}
}

func TestLatestPrice_WaitCancelled(t *testing.T) {
	p := NewLatestPrice()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLatestPrice_ChangedBroadcast(t *testing.T) {
	p := NewLatestPrice()
	first := p.Changed()
	second := p.Changed()

	p.Set(3)

	for _, ch := range []<-chan struct{}{first, second} {
		select {
		case <-ch:
		default:
			t.Fatal("waiter not notified")
		}
	}

	select {
	case <-p.Changed():
		t.Fatal("new channel already closed")
	default:
	}
}
