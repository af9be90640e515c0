package cache

import (
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

// MemoryProvider is an in-process Provider backed by a map. Expired entries
// are dropped when they are next read, and by Sweep. WithCleanupInterval
// runs Sweep periodically until Close.
type MemoryProvider struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time

	cleanupInterval time.Duration
	stopCh          chan struct{}
	stopOnce        sync.Once
	wg              sync.WaitGroup
}

// MemoryOption configures a MemoryProvider.
type MemoryOption func(*MemoryProvider)

// WithClock replaces the clock used to stamp and expire entries.
func WithClock(now func() time.Time) MemoryOption {
	return func(p *MemoryProvider) { p.now = now }
}

// WithCleanupInterval sweeps expired entries every interval. Zero or
// negative disables the loop.
func WithCleanupInterval(interval time.Duration) MemoryOption {
	return func(p *MemoryProvider) { p.cleanupInterval = interval }
}

// NewMemoryProvider creates an empty MemoryProvider.
func NewMemoryProvider(opts ...MemoryOption) *MemoryProvider {
	p := &MemoryProvider{
		items:  make(map[string]memoryItem),
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.cleanupInterval > 0 {
		ticker := time.NewTicker(p.cleanupInterval)
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					p.Sweep()
				case <-p.stopCh:
					return
				}
			}
		}()
	}
	return p
}

var _ Provider = (*MemoryProvider)(nil)

func (p *MemoryProvider) Name() string { return "memory" }

func (p *MemoryProvider) Get(_ context.Context, key string) ([]byte, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	item, ok := p.items[key]
	if !ok {
		return nil, false, nil
	}
	if !p.now().Before(item.expiresAt) {
		delete(p.items, key)
		return nil, false, nil
	}
	return item.value, true, nil
}

func (p *MemoryProvider) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.items[key] = memoryItem{value: stored, expiresAt: p.now().Add(ttl)}
	return nil
}

func (p *MemoryProvider) Del(_ context.Context, keys ...string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, k := range keys {
		delete(p.items, k)
	}
	return nil
}

// Sweep removes every expired entry and returns how many it removed.
func (p *MemoryProvider) Sweep() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	removed := 0
	for k, item := range p.items {
		if !now.Before(item.expiresAt) {
			delete(p.items, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired ones included.
func (p *MemoryProvider) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

// Close stops the cleanup loop and drops every entry.
func (p *MemoryProvider) Close() error {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = make(map[string]memoryItem)
	return nil
}
