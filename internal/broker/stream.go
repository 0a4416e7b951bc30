package broker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/quantleap/intraday-engine/internal/logger"
	"github.com/quantleap/intraday-engine/internal/types"
	"github.com/quantleap/intraday-engine/pkg/errors"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// reconnectDelay is the base delay before attempting to reconnect.
	reconnectDelay = 2 * time.Second

	// maxReconnectDelay caps the backoff for reconnection.
	maxReconnectDelay = 30 * time.Second
)

// QuoteHandler is called for every tick received on the stream.
type QuoteHandler func(types.Quote)

// QuoteStream is a WebSocket client for the broker's real-time tick feed.
// When configured, the fast loop consumes its ticks instead of polling
// GetQuote. The stream reconnects with capped backoff and restores its
// subscriptions; polling remains the engine's fallback when the stream is
// absent.
type QuoteStream struct {
	wsURL string
	conn  *websocket.Conn

	mu     sync.Mutex
	closed bool

	// Symbols to (re)subscribe on connect.
	symbols []string

	handler QuoteHandler
	log     *logger.Logger

	// done is closed when the stream is shut down.
	done chan struct{}
}

type streamCommand struct {
	Action  string   `json:"action"`
	Symbols []string `json:"symbols"`
}

type streamTick struct {
	Symbol    string  `json:"n"`
	LastPrice float64 `json:"lp"`
	Timestamp int64   `json:"t"`
}

// NewQuoteStream creates a stream client for the given WebSocket URL.
func NewQuoteStream(wsURL string, symbols []string, handler QuoteHandler, log *logger.Logger) *QuoteStream {
	return &QuoteStream{
		wsURL:   wsURL,
		symbols: symbols,
		handler: handler,
		log:     log,
		done:    make(chan struct{}),
	}
}

// Run connects and consumes ticks until ctx is cancelled or Close is called.
// Connection drops are retried with capped backoff; Run only returns an error
// when the initial dial fails and every retry within the backoff loop is
// cancelled.
func (s *QuoteStream) Run(ctx context.Context) error {
	delay := reconnectDelay

	for {
		if err := s.connect(ctx); err != nil {
			s.log.Warn("tick stream connect failed",
				zap.String("url", s.wsURL),
				zap.Error(err),
			)
		} else {
			delay = reconnectDelay

			s.readLoop(ctx)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		case <-time.After(delay):
		}

		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

// Close shuts the stream down. Safe to call more than once.
func (s *QuoteStream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.closed = true
	close(s.done)

	if s.conn != nil {
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		_ = s.conn.Close()
	}
}

func (s *QuoteStream) connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New(errors.ErrCodeStreamClosed, "tick stream already closed")
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBrokerUnavailable, "dial tick stream", err)
	}

	s.conn = conn

	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	sub := streamCommand{Action: "subscribe", Symbols: s.symbols}

	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(sub); err != nil {
		_ = s.conn.Close()

		return errors.Wrap(errors.ErrCodeBrokerUnavailable, "subscribe tick stream", err)
	}

	return nil
}

// readLoop consumes messages until the connection drops or the stream stops.
func (s *QuoteStream) readLoop(ctx context.Context) {
	pingTicker := time.NewTicker(pingPeriod)
	defer pingTicker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.done:
				return
			case <-pingTicker.C:
				s.mu.Lock()
				conn := s.conn
				s.mu.Unlock()

				if conn == nil {
					return
				}

				_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		default:
		}

		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			s.log.Warn("tick stream read failed", zap.Error(err))

			return
		}

		var tick streamTick
		if err := json.Unmarshal(payload, &tick); err != nil {
			s.log.Warn("tick stream payload malformed", zap.Error(err))

			continue
		}

		if tick.Symbol == "" {
			continue
		}

		s.handler(types.Quote{
			Symbol:    tick.Symbol,
			LastPrice: tick.LastPrice,
			Time:      time.Unix(tick.Timestamp, 0),
		})
	}
}
