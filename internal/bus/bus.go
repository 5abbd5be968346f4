// Package bus connects hark to a websocket message hub. Text addressed to
// hark is submitted as a typed command and replies are published back.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	Name      = "hark"
	Broadcast = "all"

	KindText  = "text"
	KindReply = "reply"
	KindEvent = "event"
)

var ErrNotConnected = errors.New("bus not connected")

type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Kind    string `json:"kind"`
	Content string `json:"content"`
}

// Receiver gets every text message addressed to this client.
type Receiver func(ctx context.Context, m Message)

type Client struct {
	url     string
	name    string
	retry   time.Duration
	receive Receiver
	dialer  *websocket.Dialer

	mu   sync.Mutex
	conn *websocket.Conn
}

type Option func(*Client)

func WithName(name string) Option { return func(c *Client) { c.name = name } }

func WithRetry(d time.Duration) Option { return func(c *Client) { c.retry = d } }

func New(url string, receive Receiver, opts ...Option) *Client {
	c := &Client{
		url:     url,
		name:    Name,
		retry:   3 * time.Second,
		receive: receive,
		dialer:  websocket.DefaultDialer,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Run dials the hub and reads until ctx is done, reconnecting after every
// dropped connection.
func (c *Client) Run(ctx context.Context) error {
	for {
		conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
		if err != nil {
			log.Warn("Bus dial failed", "url", c.url, "err", err)
		} else {
			log.Info("Connected to bus", "url", c.url)
			c.setConn(conn)
			c.read(ctx, conn)
			c.setConn(nil)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retry):
			log.Debug("Reconnecting to bus", "url", c.url)
		}
	}
}

func (c *Client) read(ctx context.Context, conn *websocket.Conn) {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && !isClosed(err) {
				log.Error("Bus read failed", "err", err)
			}
			return
		}

		var m Message
		if err := json.Unmarshal(data, &m); err != nil {
			log.Warn("Bad bus message", "msg", string(data), "err", err)
			continue
		}
		if !c.forMe(m) {
			continue
		}
		if c.receive != nil {
			c.receive(ctx, m)
		}
	}
}

func (c *Client) forMe(m Message) bool {
	to := strings.ToLower(m.To)
	return (to == c.name || to == Broadcast) && m.Kind == KindText && strings.TrimSpace(m.Content) != ""
}

// Publish sends m stamped with this client's name.
func (c *Client) Publish(m Message) error {
	m.From = c.name
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode bus message: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Connected reports whether a hub connection is open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

func isClosed(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure)
}
