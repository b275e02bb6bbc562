package portfolio

import (
	"context"
	"strings"
	"sync"
)

// Collector is the part of Aggregator the refresher depends on.
type Collector interface {
	Collect(ctx context.Context, address string) Result
}

// Refresher holds the latest aggregate for the watched address. It fetches
// only when the address changes or Refresh is called, never on a timer.
// Every trigger bumps a counter; a fetch that finishes after a newer
// trigger is discarded.
type Refresher struct {
	src Collector

	mu      sync.Mutex
	address string
	counter uint64
	current Result
}

func NewRefresher(src Collector) *Refresher {
	return &Refresher{src: src}
}

// Counter is the number of manual refreshes so far.
func (r *Refresher) Counter() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counter
}

func (r *Refresher) Address() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.address
}

func (r *Refresher) Current() Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// SetAddress switches the watched wallet. An unchanged address is a no-op
// that returns the cached result; an empty address clears it without any
// network call.
func (r *Refresher) SetAddress(ctx context.Context, address string) Result {
	address = strings.TrimSpace(address)
	r.mu.Lock()
	if address == r.address && r.counter > 0 {
		cur := r.current
		r.mu.Unlock()
		return cur
	}
	r.address = address
	r.counter++
	gen := r.counter
	r.mu.Unlock()
	return r.fetch(ctx, gen, address)
}

// Refresh bumps the counter and refetches the current address.
func (r *Refresher) Refresh(ctx context.Context) Result {
	r.mu.Lock()
	r.counter++
	gen, address := r.counter, r.address
	r.mu.Unlock()
	return r.fetch(ctx, gen, address)
}

func (r *Refresher) fetch(ctx context.Context, gen uint64, address string) Result {
	var res Result
	if address != "" {
		res = r.src.Collect(ctx, address)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.counter {
		return r.current
	}
	r.current = res
	return res
}
