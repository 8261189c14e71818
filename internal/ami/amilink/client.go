// Package amilink is the concrete Asterisk Manager Interface adapter behind
// the ami.Link contract: a TCP connection speaking newline-delimited
// "Key: Value" frames, with ActionID-based response correlation.
package amilink

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/enmanuelbasulto/fop2-clone/internal/ami"
)

// Config carries the manager account used to open the link.
type Config struct {
	Addr     string
	Username string
	Secret   string
	// DialTimeout bounds the TCP connect plus login handshake.
	DialTimeout time.Duration
}

type pendingAction struct {
	ch chan *ami.Response
}

// Client is one live AMI session.
type Client struct {
	conn   net.Conn
	logger *log.Logger

	mu      sync.Mutex
	pending map[string]*pendingAction
	closed  bool
	err     error

	events chan ami.RawEvent
	done   chan struct{}
}

// Dial opens, authenticates and starts reading an AMI session. The returned
// dialer fits ami.Dialer so the supervisor can redial on failure.
func Dial(cfg Config, logger *log.Logger) ami.Dialer {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	return func(ctx context.Context) (ami.Link, error) {
		d := net.Dialer{Timeout: cfg.DialTimeout}
		conn, err := d.DialContext(ctx, "tcp", cfg.Addr)
		if err != nil {
			return nil, fmt.Errorf("amilink: dial %s: %w", cfg.Addr, err)
		}

		c := &Client{
			conn:    conn,
			logger:  logger,
			pending: make(map[string]*pendingAction),
			events:  make(chan ami.RawEvent, 256),
			done:    make(chan struct{}),
		}

		// Banner line ("Asterisk Call Manager/x.y") precedes the first frame.
		reader := bufio.NewReader(conn)
		conn.SetReadDeadline(time.Now().Add(cfg.DialTimeout))
		if _, err := reader.ReadString('\n'); err != nil {
			conn.Close()
			return nil, fmt.Errorf("amilink: read banner: %w", err)
		}
		conn.SetReadDeadline(time.Time{})

		go c.readLoop(reader)

		loginCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
		resp, err := c.Do(loginCtx, ami.Action{
			Name: "Login",
			Fields: map[string]string{
				"Username": cfg.Username,
				"Secret":   cfg.Secret,
			},
		})
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("amilink: login: %w", err)
		}
		if !resp.Success {
			c.Close()
			return nil, fmt.Errorf("amilink: login rejected: %s", resp.Message)
		}
		return c, nil
	}
}

// Events implements ami.Link.
func (c *Client) Events() <-chan ami.RawEvent {
	return c.events
}

// Done implements ami.Link.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err implements ami.Link.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Do submits an action and waits for the correlated response. Each action
// gets a generated ActionID; the read loop routes the response back by id.
func (c *Client) Do(ctx context.Context, a ami.Action) (*ami.Response, error) {
	id := uuid.NewString()
	p := &pendingAction{ch: make(chan *ami.Response, 1)}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, fmt.Errorf("amilink: link closed")
	}
	c.pending[id] = p
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	var b strings.Builder
	fmt.Fprintf(&b, "Action: %s\r\n", a.Name)
	fmt.Fprintf(&b, "ActionID: %s\r\n", id)
	for k, v := range a.Fields {
		fmt.Fprintf(&b, "%s: %s\r\n", k, v)
	}
	b.WriteString("\r\n")

	if _, err := c.conn.Write([]byte(b.String())); err != nil {
		return nil, fmt.Errorf("amilink: write action %s: %w", a.Name, err)
	}

	select {
	case resp := <-p.ch:
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, fmt.Errorf("amilink: link closed while waiting for %s", a.Name)
	}
}

// Close tears the session down. Safe to call more than once.
func (c *Client) Close() error {
	c.fail(nil)
	return nil
}

func (c *Client) readLoop(reader *bufio.Reader) {
	defer close(c.events)
	for {
		frame, err := readFrame(reader)
		if err != nil {
			c.fail(err)
			return
		}
		if len(frame) == 0 {
			continue
		}
		if id, ok := frame["actionid"]; ok {
			if _, isResp := frame["response"]; isResp {
				c.resolve(id, frame)
				continue
			}
		}
		if name, ok := frame["event"]; ok {
			select {
			case c.events <- ami.RawEvent{Name: strings.ToLower(name), Fields: frame}:
			case <-c.done:
				return
			}
		}
	}
}

func (c *Client) resolve(id string, frame map[string]string) {
	c.mu.Lock()
	p := c.pending[id]
	c.mu.Unlock()
	if p == nil {
		// Late response for an abandoned action; its effect on the exchange
		// stands either way.
		return
	}
	resp := &ami.Response{
		Success: strings.EqualFold(frame["response"], "Success"),
		Message: frame["message"],
		Fields:  frame,
	}
	select {
	case p.ch <- resp:
	default:
	}
}

func (c *Client) fail(err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.err = err
	c.mu.Unlock()
	c.conn.Close()
	close(c.done)
}

// readFrame reads one frame: "Key: Value" lines up to a blank line.
func readFrame(reader *bufio.Reader) (map[string]string, error) {
	fields := make(map[string]string)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			return fields, nil
		}
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		fields[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}
}
