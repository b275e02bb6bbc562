package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"perpdesk/internal/logger"
	"perpdesk/internal/market"

	"github.com/gorilla/websocket"
)

// Conn is the subset of a WebSocket connection the socket controller uses.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v any) error
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, endpoint string) (Conn, error)
}

// WSDialer dials with gorilla/websocket.
type WSDialer struct {
	dialer *websocket.Dialer
	header http.Header
}

// NewWSDialer builds a dialer; proxyURL may be empty.
func NewWSDialer(proxyURL string, handshakeTimeout time.Duration) (*WSDialer, error) {
	d := *websocket.DefaultDialer
	if handshakeTimeout > 0 {
		d.HandshakeTimeout = handshakeTimeout
	}
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid ws proxy url: %w", err)
		}
		d.Proxy = http.ProxyURL(u)
	}
	return &WSDialer{dialer: &d, header: http.Header{}}, nil
}

func (d *WSDialer) Dial(ctx context.Context, endpoint string) (Conn, error) {
	conn, resp, err := d.dialer.DialContext(ctx, endpoint, d.header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	return &wsConn{conn: conn}, nil
}

// wsConn serializes writes; gorilla allows one concurrent writer.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) ReadMessage() (int, []byte, error) {
	return c.conn.ReadMessage()
}

func (c *wsConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(v)
}

func (c *wsConn) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return c.conn.Close()
}

// Heartbeater is implemented by protocols whose servers drop idle sockets.
type Heartbeater interface {
	Heartbeat() (msg any, every time.Duration)
}

// Socket drives one reconnecting WebSocket subscription.
type Socket struct {
	key     market.Key
	proto   market.StreamProtocol
	sink    market.Sink
	status  *Status
	dialer  Dialer
	backoff Backoff
	opts    market.SubscribeOptions

	kick chan struct{}

	mu   sync.Mutex
	conn Conn

	statsMu sync.Mutex
	stats   market.SourceStats
}

type SocketOption func(*Socket)

func WithDialer(d Dialer) SocketOption {
	return func(s *Socket) {
		if d != nil {
			s.dialer = d
		}
	}
}

func WithBackoff(b Backoff) SocketOption {
	return func(s *Socket) {
		s.backoff = b.withDefaults()
	}
}

func WithCallbacks(onConnect func(), onDisconnect func(error)) SocketOption {
	return func(s *Socket) {
		s.opts.OnConnect = onConnect
		s.opts.OnDisconnect = onDisconnect
	}
}

func NewSocket(key market.Key, proto market.StreamProtocol, sink market.Sink, status *Status, opts ...SocketOption) *Socket {
	s := &Socket{
		key:     key,
		proto:   proto,
		sink:    sink,
		status:  status,
		backoff: DefaultBackoff(),
		kick:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.dialer == nil {
		s.dialer, _ = NewWSDialer("", 10*time.Second)
	}
	return s
}

// Run connects and keeps reconnecting until ctx ends. It returns only after
// the socket is closed and no further sink writes can happen.
func (s *Socket) Run(ctx context.Context) {
	s.status.Loading("Connecting")
	closes := 0
	for {
		opened, err := s.connectOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		if opened {
			closes = 0
		}
		if s.takeKick() {
			closes = 0
			s.status.Loading("Reconnecting")
			continue
		}
		if err != nil && !isNormalClose(err) {
			s.recordError(err)
			s.status.Fail(fmt.Sprintf("Connection error: %v", err))
		}
		if s.opts.OnDisconnect != nil {
			s.opts.OnDisconnect(err)
		}

		closes++
		s.recordReconnect()
		if closes >= s.backoff.MaxRetries {
			logger.Warnf("[feed] %s gave up after %d attempts", s.key, closes)
			s.status.Fail(TerminalMessage)
			select {
			case <-ctx.Done():
				return
			case <-s.kick:
			}
			closes = 0
			s.status.Loading("Reconnecting")
			continue
		}
		s.status.Reconnecting(closes, s.backoff.MaxRetries)
		delay := s.backoff.Delay(closes - 1)
		logger.Debugf("[feed] %s reconnect %d/%d in %s", s.key, closes, s.backoff.MaxRetries, delay)
		switch wait(ctx, delay, s.kick) {
		case waitCancelled:
			return
		case waitKicked:
			closes = 0
			s.status.Loading("Reconnecting")
		}
	}
}

// Reconnect resets the retry counter and re-establishes the connection
// immediately, whatever the current state.
func (s *Socket) Reconnect() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
	s.mu.Lock()
	c := s.conn
	s.mu.Unlock()
	if c != nil {
		_ = c.Close()
	}
}

func (s *Socket) Stats() market.SourceStats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.stats
}

// connectOnce dials, subscribes and reads until the connection ends.
// opened reports whether the handshake succeeded.
func (s *Socket) connectOnce(ctx context.Context) (opened bool, err error) {
	msgs, err := s.proto.SubscribeMessages(s.key)
	if err != nil {
		return false, err
	}
	conn, err := s.dialer.Dial(ctx, s.proto.Endpoint())
	if err != nil {
		return false, err
	}
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(connCtx, func() { _ = conn.Close() })
	defer stop()
	s.setConn(conn)
	defer s.setConn(nil)

	s.status.Open()
	s.takeKick()
	if s.opts.OnConnect != nil {
		s.opts.OnConnect()
	}
	for _, m := range msgs {
		if err := conn.WriteJSON(m); err != nil {
			return true, fmt.Errorf("subscribe %s: %w", s.key, err)
		}
	}
	if bf, ok := s.proto.(market.Backfiller); ok {
		go func() {
			if err := bf.Backfill(connCtx, s.key, s.sink); err != nil && connCtx.Err() == nil {
				logger.Warnf("[feed] %s backfill failed: %v", s.key, err)
			}
		}()
	}
	if hb, ok := s.proto.(Heartbeater); ok {
		go s.heartbeat(connCtx, conn, hb)
	}
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}
		if connCtx.Err() != nil {
			return true, nil
		}
		if err := s.proto.Decode(s.key, raw, s.sink); err != nil {
			logger.Debugf("[feed] %s decode: %v", s.key, err)
		}
	}
}

func (s *Socket) heartbeat(ctx context.Context, conn Conn, hb Heartbeater) {
	msg, every := hb.Heartbeat()
	if msg == nil || every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteJSON(msg); err != nil {
				logger.Debugf("[feed] %s heartbeat: %v", s.key, err)
				return
			}
		}
	}
}

func (s *Socket) setConn(c Conn) {
	s.mu.Lock()
	s.conn = c
	s.mu.Unlock()
}

func (s *Socket) takeKick() bool {
	select {
	case <-s.kick:
		return true
	default:
		return false
	}
}

func (s *Socket) recordError(err error) {
	s.statsMu.Lock()
	s.stats.SubscribeErrors++
	s.stats.LastError = err.Error()
	s.statsMu.Unlock()
}

func (s *Socket) recordReconnect() {
	s.statsMu.Lock()
	s.stats.Reconnects++
	s.statsMu.Unlock()
}

func isNormalClose(err error) bool {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code == websocket.CloseNormalClosure || ce.Code == websocket.CloseGoingAway
	}
	return false
}
