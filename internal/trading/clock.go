package trading

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/aristath/chronotrader/internal/domain"
	"github.com/aristath/chronotrader/pkg/logger"
)

// Tick is one synchronized market-clock step: a date and the current bar
// for every symbol the engine is watching.
type Tick struct {
	Date time.Time
	Bars map[string]domain.Bar
}

// ErrClockClosed is returned by Clock.Next once the underlying feed ends.
var ErrClockClosed = fmt.Errorf("trading: clock closed")

// Clock is the market-clock abstraction the engine drives strategies
// against. Exactly one Clock backs an entire engine (all strategies tick
// in lockstep against it, per spec.md §4.4).
type Clock interface {
	Next(ctx context.Context) (Tick, error)
	Close() error
}

// ReplayClock steps through a fixed, pre-built sequence of Ticks. Used for
// paper-trading replays against recorded data and for tests — the engine
// itself is agnostic to whether a Clock is live or replayed.
type ReplayClock struct {
	ticks []Tick
	pos   int
}

// NewReplayClock builds a Clock over a fixed tick sequence.
func NewReplayClock(ticks []Tick) *ReplayClock { return &ReplayClock{ticks: ticks} }

func (c *ReplayClock) Next(ctx context.Context) (Tick, error) {
	if err := ctx.Err(); err != nil {
		return Tick{}, err
	}
	if c.pos >= len(c.ticks) {
		return Tick{}, ErrClockClosed
	}
	t := c.ticks[c.pos]
	c.pos++
	return t, nil
}

func (c *ReplayClock) Close() error { return nil }

// wireTick is the JSON shape a live feed publishes per message.
type wireTick struct {
	Date string                 `json:"date"`
	Bars map[string]domain.Bar  `json:"bars"`
}

// LiveClock streams ticks over a websocket connection to a real-time
// market-data gateway, decoding one wireTick JSON message per Next call.
// Grounded on the pack's nhooyr.io/websocket usage for streaming market
// feeds.
type LiveClock struct {
	conn *websocket.Conn
	log  zerolog.Logger
}

// DialLiveClock connects to a websocket market-data feed at url.
func DialLiveClock(ctx context.Context, url string, log zerolog.Logger) (*LiveClock, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("trading: dial live clock feed: %w", err)
	}
	return &LiveClock{conn: conn, log: logger.Component(log, "trading.clock")}, nil
}

func (c *LiveClock) Next(ctx context.Context) (Tick, error) {
	var wt wireTick
	if err := wsjson.Read(ctx, c.conn, &wt); err != nil {
		return Tick{}, fmt.Errorf("trading: read live tick: %w", err)
	}
	date, err := time.Parse("2006-01-02", wt.Date)
	if err != nil {
		return Tick{}, fmt.Errorf("trading: parse live tick date: %w", err)
	}
	return Tick{Date: date, Bars: wt.Bars}, nil
}

func (c *LiveClock) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "trading: engine shutdown")
}
