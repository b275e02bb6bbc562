package feed

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"perpdesk/internal/market"
)

// fakeProto decodes frames of the form "candle:<ts>:<close>".
type fakeProto struct {
	streams int
}

func (p *fakeProto) Endpoint() string { return "wss://example.invalid/ws" }

func (p *fakeProto) SubscribeMessages(key market.Key) ([]any, error) {
	out := make([]any, 0, p.streams)
	for i := 0; i < p.streams; i++ {
		out = append(out, map[string]any{"stream": i, "coin": key.Symbol})
	}
	return out, nil
}

func (p *fakeProto) Decode(_ market.Key, raw []byte, sink market.Sink) error {
	parts := strings.Split(string(raw), ":")
	if len(parts) != 3 || parts[0] != "candle" {
		return errors.New("unknown frame")
	}
	ts, _ := strconv.ParseInt(parts[1], 10, 64)
	c, _ := strconv.ParseFloat(parts[2], 64)
	sink.PushCandle(market.Candle{Timestamp: ts, Open: c, High: c, Low: c, Close: c})
	return nil
}

type fakeConn struct {
	frames chan []byte
	closed chan struct{}
	once   sync.Once

	mu     sync.Mutex
	writes []any
}

func newFakeConn() *fakeConn {
	return &fakeConn{frames: make(chan []byte, 16), closed: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case f, ok := <-c.frames:
		if !ok {
			return 0, nil, errors.New("server went away")
		}
		return 1, f, nil
	case <-c.closed:
		return 0, nil, errors.New("use of closed connection")
	}
}

func (c *fakeConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, v)
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) writeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.writes)
}

// fakeDialer hands out queued connections, failing once the queue is empty.
type fakeDialer struct {
	dials atomic.Int32
	conns chan *fakeConn
}

func newFakeDialer(conns ...*fakeConn) *fakeDialer {
	d := &fakeDialer{conns: make(chan *fakeConn, 16)}
	for _, c := range conns {
		d.conns <- c
	}
	return d
}

func (d *fakeDialer) Dial(ctx context.Context, _ string) (Conn, error) {
	d.dials.Add(1)
	select {
	case c := <-d.conns:
		return c, nil
	default:
		return nil, errors.New("connection refused")
	}
}

type recordingStatus struct {
	mu    sync.Mutex
	views []StatusView
}

func (r *recordingStatus) attach(s *Status) {
	s.OnChange(func(v StatusView) {
		r.mu.Lock()
		r.views = append(r.views, v)
		r.mu.Unlock()
	})
}

func (r *recordingStatus) states() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.views))
	for _, v := range r.views {
		out = append(out, string(v.State)+"|"+v.Message)
	}
	return out
}

type fakePollSource struct {
	interval time.Duration
	fetch    func(ctx context.Context, key market.Key) (market.Snapshot, error)
	calls    atomic.Int32
}

func (f *fakePollSource) PollInterval() time.Duration { return f.interval }

func (f *fakePollSource) Fetch(ctx context.Context, key market.Key) (market.Snapshot, error) {
	f.calls.Add(1)
	return f.fetch(ctx, key)
}

type fakeResolver struct {
	streams map[market.Exchange]market.StreamProtocol
	polls   map[market.Exchange]market.PollSource
}

func (r fakeResolver) StreamProtocol(ex market.Exchange) (market.StreamProtocol, bool) {
	p, ok := r.streams[ex]
	return p, ok
}

func (r fakeResolver) PollSource(ex market.Exchange) (market.PollSource, bool) {
	p, ok := r.polls[ex]
	return p, ok
}
