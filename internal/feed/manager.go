package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"perpdesk/internal/logger"
	"perpdesk/internal/market"
	"perpdesk/internal/scheduler"
)

var ErrUnknownExchange = errors.New("no market data source for exchange")

const DefaultInterval = "1m"

// Resolver looks up the market-data transport of a venue.
type Resolver interface {
	StreamProtocol(ex market.Exchange) (market.StreamProtocol, bool)
	PollSource(ex market.Exchange) (market.PollSource, bool)
}

type Options struct {
	Limits  Limits
	Backoff Backoff
	Dialer  Dialer
}

// Manager keeps at most one live session per venue. Subscribing to a new
// market or interval on a venue tears the previous session down first.
type Manager struct {
	resolver Resolver
	opts     Options

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	slots map[market.Exchange]*Session
}

func NewManager(resolver Resolver, opts Options) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	opts.Backoff = opts.Backoff.withDefaults()
	return &Manager{
		resolver: resolver,
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
		slots:    make(map[market.Exchange]*Session),
	}
}

// NormalizeKey upper-cases the symbol and canonicalizes the interval.
func NormalizeKey(key market.Key) (market.Key, error) {
	key.Symbol = strings.ToUpper(strings.TrimSpace(key.Symbol))
	if key.Symbol == "" {
		return key, fmt.Errorf("symbol is required")
	}
	if strings.TrimSpace(key.Interval) == "" {
		key.Interval = DefaultInterval
	}
	if _, ok := scheduler.ParseIntervalDuration(key.Interval); !ok {
		return key, fmt.Errorf("invalid interval %q", key.Interval)
	}
	key.Interval = scheduler.Canonical(key.Interval)
	return key, nil
}

// Subscribe returns the live session for key, replacing any session the
// venue had for a different market or interval.
func (m *Manager) Subscribe(key market.Key) (*Session, error) {
	key, err := NormalizeKey(key)
	if err != nil {
		return nil, err
	}
	// The old session is closed without m.mu held; closing waits for an
	// in-flight poll and must not block other venues.
	for {
		m.mu.Lock()
		if m.ctx.Err() != nil {
			m.mu.Unlock()
			return nil, ErrSessionClosed
		}
		cur, ok := m.slots[key.Exchange]
		if !ok {
			break
		}
		if cur.Key() == key {
			m.mu.Unlock()
			return cur, nil
		}
		delete(m.slots, key.Exchange)
		m.mu.Unlock()
		cur.Close()
		logger.Infof("[feed] %s unsubscribed (replaced by %s)", cur.Key(), key)
	}
	defer m.mu.Unlock()
	sess := NewSession(m.ctx, key, m.opts.Limits)
	sess.Status().OnChange(func(v StatusView) {
		logger.Infof("[feed] %s state=%s %s", key, v.State, v.Message)
	})
	driver, err := m.driverFor(key, sess)
	if err != nil {
		sess.Close()
		return nil, err
	}
	if err := sess.Start(driver); err != nil {
		return nil, err
	}
	m.slots[key.Exchange] = sess
	return sess, nil
}

func (m *Manager) driverFor(key market.Key, sess *Session) (Driver, error) {
	if proto, ok := m.resolver.StreamProtocol(key.Exchange); ok {
		opts := []SocketOption{WithBackoff(m.opts.Backoff)}
		if m.opts.Dialer != nil {
			opts = append(opts, WithDialer(m.opts.Dialer))
		}
		return NewSocket(key, proto, sess, sess.Status(), opts...), nil
	}
	if src, ok := m.resolver.PollSource(key.Exchange); ok {
		return NewPoller(key, src, sess, sess.Status()), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownExchange, key.Exchange)
}

// Session returns the live session of a venue.
func (m *Manager) Session(ex market.Exchange) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[ex]
	return s, ok
}

// Unsubscribe closes the venue's session synchronously.
func (m *Manager) Unsubscribe(ex market.Exchange) bool {
	m.mu.Lock()
	s, ok := m.slots[ex]
	delete(m.slots, ex)
	m.mu.Unlock()
	if ok {
		s.Close()
	}
	return ok
}

func (m *Manager) Close() {
	m.cancel()
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.slots))
	for ex, s := range m.slots {
		sessions = append(sessions, s)
		delete(m.slots, ex)
	}
	m.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}
