// Package realtime is the change-feed client for the hosted backend.
// It speaks a small JSON protocol over a WebSocket: the client sends one
// subscribe frame per table filter, the server pushes row-change events.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	ws "github.com/coder/websocket"
)

const (
	eventBufferSize = 16
	pingInterval    = 30 * time.Second
)

// EventKind is the row-change type reported by the backend.
type EventKind string

const (
	EventInsert EventKind = "INSERT"
	EventUpdate EventKind = "UPDATE"
	EventDelete EventKind = "DELETE"
)

// Event is one row change. New carries the row after the change for
// inserts and updates; Old carries the row before a delete.
type Event struct {
	Kind  EventKind       `json:"kind"`
	Table string          `json:"table"`
	New   json.RawMessage `json:"new,omitempty"`
	Old   json.RawMessage `json:"old,omitempty"`
}

type subscribeFrame struct {
	Action string `json:"action"`
	Table  string `json:"table"`
	Filter string `json:"filter,omitempty"`
}

// Client is a realtime connection. Subscriptions live for the lifetime of
// the connection; Close ends them all.
type Client struct {
	conn   *ws.Conn
	logger *slog.Logger

	mu   sync.RWMutex
	subs map[string][]chan Event
}

// Dial connects to the realtime endpoint, authenticating with a bearer
// token. The caller must run the client (Run) before events flow.
func Dial(ctx context.Context, url, token string, logger *slog.Logger) (*Client, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, _, err := ws.Dial(ctx, url, &ws.DialOptions{HTTPHeader: header})
	if err != nil {
		return nil, fmt.Errorf("dial realtime: %w", err)
	}

	return &Client{
		conn:   conn,
		logger: logger,
		subs:   make(map[string][]chan Event),
	}, nil
}

// Subscribe opens a change feed for one table. The filter string is
// passed through to the backend unparsed (e.g. an OR predicate over two
// reference columns). Events arrive on the returned channel once Run is
// reading frames.
func (c *Client) Subscribe(ctx context.Context, table, filter string) (<-chan Event, error) {
	frame, err := json.Marshal(subscribeFrame{Action: "subscribe", Table: table, Filter: filter})
	if err != nil {
		return nil, fmt.Errorf("encode subscribe frame: %w", err)
	}
	if err := c.conn.Write(ctx, ws.MessageText, frame); err != nil {
		return nil, fmt.Errorf("send subscribe frame: %w", err)
	}

	ch := make(chan Event, eventBufferSize)
	c.mu.Lock()
	c.subs[table] = append(c.subs[table], ch)
	c.mu.Unlock()
	return ch, nil
}

// Run reads frames and dispatches events until the connection closes or
// ctx is canceled. It also pings periodically to detect stale
// connections. All subscription channels are closed on return.
func (c *Client) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer c.closeSubs()

	go c.pingLoop(ctx)

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			c.logger.Info("realtime connection closed", "error", err)
			return
		}

		var event Event
		if err := json.Unmarshal(data, &event); err != nil {
			c.logger.Warn("malformed realtime frame", "error", err)
			continue
		}
		c.dispatch(event)
	}
}

func (c *Client) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) dispatch(event Event) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, ch := range c.subs[event.Table] {
		select {
		case ch <- event:
		default:
			// Subscriber buffer full — drop rather than stall the read loop
		}
	}
}

func (c *Client) closeSubs() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for table, chans := range c.subs {
		for _, ch := range chans {
			close(ch)
		}
		delete(c.subs, table)
	}
}

// Close shuts the connection down.
func (c *Client) Close() error {
	return c.conn.Close(ws.StatusNormalClosure, "client closing")
}
