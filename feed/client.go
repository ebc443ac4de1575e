package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"execution-sim/orderbook"
)

const (
	initialReconnectDelay = time.Second
	maxReconnectDelay     = 60 * time.Second
	readTimeout           = 30 * time.Second
)

// Handler receives each normalized update in arrival order.
type Handler func(orderbook.Update)

// Client maintains a websocket subscription to one venue/symbol pair and
// delivers normalized book updates to a handler. Reconnects use exponential
// backoff starting at one second and capped at one minute; the delay resets
// after a successful connect.
type Client struct {
	venue   Venue
	symbol  string
	handler Handler
	log     *zap.Logger
	dialer  *websocket.Dialer

	// OnReconnect, if set, is invoked once per reconnect attempt. Used by
	// the runner to count reconnects in metrics.
	OnReconnect func()

	localSeq int64 // fallback sequence for venues without one
}

func NewClient(venue Venue, symbol string, handler Handler, log *zap.Logger) (*Client, error) {
	if _, err := venue.Endpoint(); err != nil {
		return nil, err
	}
	if handler == nil {
		return nil, errors.New("feed: nil handler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		venue:   venue,
		symbol:  symbol,
		handler: handler,
		log:     log.With(zap.String("venue", string(venue)), zap.String("symbol", symbol)),
		dialer:  websocket.DefaultDialer,
	}, nil
}

// Run connects and consumes messages until the context is cancelled,
// reconnecting on any transport error.
func (c *Client) Run(ctx context.Context) error {
	delay := initialReconnectDelay
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := c.runOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("feed connection lost", zap.Error(err), zap.Duration("retry_in", delay))
		if c.OnReconnect != nil {
			c.OnReconnect()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = min(delay*2, maxReconnectDelay)
	}
}

func (c *Client) runOnce(ctx context.Context) error {
	endpoint, err := c.venue.Endpoint()
	if err != nil {
		return err
	}
	conn, _, err := c.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", endpoint, err)
	}
	defer conn.Close()
	c.log.Info("feed connected", zap.String("endpoint", endpoint))

	sub, err := c.venue.SubscribeMessage(c.symbol)
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, sub); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	// Unblock the read loop when the context is cancelled.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			return err
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		update, ok, err := c.venue.Parse(raw)
		if err != nil {
			c.log.Warn("unparseable feed message", zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		if update.SequenceID == 0 {
			// Venue carries no sequence on this message (coinbase level2
			// diffs); continue from the last seen sequence.
			c.localSeq++
			update.SequenceID = c.localSeq
		} else if update.SequenceID > c.localSeq {
			c.localSeq = update.SequenceID
		}
		c.handler(update)
	}
}
