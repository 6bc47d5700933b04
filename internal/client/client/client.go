package client

import (
	"context"
	"fmt"
	"net"

	"github.com/sethvargo/go-retry"

	"github.com/serezk4/collectiond/internal/client/config"
	"github.com/serezk4/collectiond/internal/logging"
	"github.com/serezk4/collectiond/internal/model"
	"github.com/serezk4/collectiond/internal/wire/frame"
	"github.com/serezk4/collectiond/internal/wire/payload"
)

// Client is a connection to a collectiond server: Connect dials (retrying
// with backoff on failure), Send writes one framed Request and blocks for
// the matching framed Response, and Close tears the connection down.
//
// A Client is not safe for concurrent use — callers issuing overlapping
// Send calls on the same Client must serialize them, exactly as the server
// serializes decode-through-dispatch per connection.
type Client struct {
	cfg  *config.Config
	log  logging.Logger
	conn net.Conn
	dec  *frame.Decoder
}

// New returns a Client that is not yet connected. Call Connect before Send.
func New(cfg *config.Config, log logging.Logger) *Client {
	return &Client{cfg: cfg, log: log, dec: frame.NewDecoder()}
}

// Connect dials the configured server address, retrying up to
// cfg.ConnectRetries times with a constant cfg.ConnectBackoff delay between
// attempts.
func (c *Client) Connect(ctx context.Context) error {
	addr := net.JoinHostPort(c.cfg.ServerHost, fmt.Sprintf("%d", c.cfg.ServerPort))

	b := retry.NewConstant(c.cfg.ConnectBackoff)
	b = retry.WithMaxRetries(uint64(c.cfg.ConnectRetries), b)

	var conn net.Conn
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		d := net.Dialer{}
		var err error
		conn, err = d.DialContext(ctx, "tcp", addr)
		if err != nil {
			c.log.Warn(ctx, "connect attempt failed", "addr", addr, "err", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("connect to %s: %w", addr, err)
	}

	c.conn = conn
	c.dec = frame.NewDecoder()
	c.log.Info(ctx, "connected", "addr", addr)
	return nil
}

// Send writes req as a single framed Request and blocks until the matching
// framed Response arrives. Connect must have succeeded first.
func (c *Client) Send(ctx context.Context, req model.Request) (model.Response, error) {
	if c.conn == nil {
		return model.Response{}, ErrNotConnected
	}

	wire, err := frame.Encode(payload.EncodeRequest(req))
	if err != nil {
		return model.Response{}, err
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetDeadline(deadline)
	}

	if _, err := c.conn.Write(wire); err != nil {
		return model.Response{}, fmt.Errorf("send request: %w", err)
	}

	buf := make([]byte, 8192)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			payloads, decErr := c.dec.Push(buf[:n])
			if decErr != nil {
				return model.Response{}, fmt.Errorf("response framing: %w", decErr)
			}
			if len(payloads) > 0 {
				resp, decodeErr := payload.DecodeResponse(payloads[0])
				if decodeErr != nil {
					return model.Response{}, fmt.Errorf("response decode: %w", decodeErr)
				}
				return resp, nil
			}
		}
		if err != nil {
			return model.Response{}, fmt.Errorf("read response: %w", err)
		}
	}
}

// Close closes the underlying connection. Safe to call on an unconnected
// Client.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
