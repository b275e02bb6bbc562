package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"perpdesk/internal/market"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = market.Key{Exchange: market.Hyperliquid, Symbol: "BTC", Interval: "1m"}

func fastBackoff(maxRetries int) Backoff {
	return Backoff{Base: time.Millisecond, Max: 4 * time.Millisecond, MaxRetries: maxRetries}
}

func TestSocketExhaustedReconnect(t *testing.T) {
	dialer := newFakeDialer()
	sess := NewSession(context.Background(), testKey, Limits{})
	sock := NewSocket(testKey, &fakeProto{streams: 3}, sess, sess.Status(),
		WithDialer(dialer), WithBackoff(fastBackoff(2)))
	require.NoError(t, sess.Start(sock))
	defer sess.Close()

	require.Eventually(t, func() bool {
		v := sess.Status().View()
		return v.State == market.StateError && v.Message == TerminalMessage
	}, 2*time.Second, 2*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 2, dialer.dials.Load(), "no automatic reconnect after exhaustion")
	assert.Equal(t, 2, sock.Stats().Reconnects)

	conn := newFakeConn()
	dialer.conns <- conn
	require.NoError(t, sess.Reconnect())
	require.Eventually(t, func() bool {
		return sess.Status().State() == market.StateOpen
	}, 2*time.Second, 2*time.Millisecond)
	assert.EqualValues(t, 3, dialer.dials.Load())
}

func TestSocketOpenSubscribesAndDecodes(t *testing.T) {
	first, second := newFakeConn(), newFakeConn()
	dialer := newFakeDialer(first, second)
	sess := NewSession(context.Background(), testKey, Limits{})
	rec := &recordingStatus{}
	rec.attach(sess.Status())
	sock := NewSocket(testKey, &fakeProto{streams: 3}, sess, sess.Status(),
		WithDialer(dialer), WithBackoff(fastBackoff(3)))
	require.NoError(t, sess.Start(sock))
	defer sess.Close()

	require.Eventually(t, func() bool { return first.writeCount() == 3 }, time.Second, time.Millisecond)
	assert.Equal(t, market.StateOpen, sess.Status().State())

	first.frames <- []byte("candle:60000:101")
	first.frames <- []byte("garbage")
	first.frames <- []byte("candle:60000:102")
	require.Eventually(t, func() bool {
		cs := sess.View().Candles
		return len(cs) == 1 && cs[0].Close == 102
	}, time.Second, time.Millisecond)

	close(first.frames)
	require.Eventually(t, func() bool { return second.writeCount() == 3 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{
		"loading|Connecting",
		"open|",
		"error|Connection error: server went away",
		"loading|Reconnecting (1/3)",
		"open|",
	}, rec.states())
}

func TestSocketManualReconnectWhileOpen(t *testing.T) {
	first, second := newFakeConn(), newFakeConn()
	dialer := newFakeDialer(first, second)
	sess := NewSession(context.Background(), testKey, Limits{})
	sock := NewSocket(testKey, &fakeProto{streams: 1}, sess, sess.Status(),
		WithDialer(dialer), WithBackoff(Backoff{Base: time.Hour, Max: time.Hour, MaxRetries: 5}))
	require.NoError(t, sess.Start(sock))
	defer sess.Close()

	require.Eventually(t, func() bool { return first.writeCount() == 1 }, time.Second, time.Millisecond)
	sock.Reconnect()
	require.Eventually(t, func() bool { return second.writeCount() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, market.StateOpen, sess.Status().State())
	assert.Zero(t, sess.Status().View().Retries)
}

func TestSessionCloseStopsWrites(t *testing.T) {
	conn := newFakeConn()
	sess := NewSession(context.Background(), testKey, Limits{})
	sock := NewSocket(testKey, &fakeProto{streams: 1}, sess, sess.Status(),
		WithDialer(newFakeDialer(conn)), WithBackoff(fastBackoff(3)))
	require.NoError(t, sess.Start(sock))
	require.Eventually(t, func() bool { return conn.writeCount() == 1 }, time.Second, time.Millisecond)

	sess.Close()
	sess.PushCandle(market.Candle{Timestamp: 1, Close: 1})
	sess.MergeTrades([]market.Trade{{ID: "late"}})
	v := sess.View()
	assert.Empty(t, v.Candles)
	assert.Empty(t, v.Trades)
	assert.ErrorIs(t, sess.Reconnect(), ErrSessionClosed)
}

func TestSocketOverGorilla(t *testing.T) {
	upgrader := websocket.Upgrader{}
	subscribed := make(chan string, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		subscribed <- string(msg)
		_ = conn.WriteMessage(websocket.TextMessage, []byte("candle:120000:7"))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	dialer, err := NewWSDialer("", time.Second)
	require.NoError(t, err)
	proto := &urlProto{fakeProto: fakeProto{streams: 1}, url: "ws" + strings.TrimPrefix(srv.URL, "http")}
	sess := NewSession(context.Background(), testKey, Limits{})
	require.NoError(t, sess.Start(NewSocket(testKey, proto, sess, sess.Status(), WithDialer(dialer))))
	defer sess.Close()

	select {
	case msg := <-subscribed:
		assert.Contains(t, msg, `"coin":"BTC"`)
	case <-time.After(2 * time.Second):
		t.Fatal("no subscribe message")
	}
	require.Eventually(t, func() bool { return len(sess.View().Candles) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, market.StateOpen, sess.Status().State())
}

type urlProto struct {
	fakeProto
	url string
}

func (p *urlProto) Endpoint() string { return p.url }
