// Package streamclient talks to the forecast WebSocket stream.
package streamclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"churn-horizon-lab/internal/domain"
)

// ErrClosed is returned by calls on a closed client.
var ErrClosed = errors.New("stream client closed")

// RemoteError is an {"error": "..."} reply from the server.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return "remote: " + e.Message
}

// Config configures client behavior.
type Config struct {
	// HandshakeTimeout bounds the WebSocket dial.
	HandshakeTimeout time.Duration
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay caps the exponential backoff.
	MaxReconnectDelay time.Duration
	// MaxRetries is the number of reconnects per request; 0 disables retry.
	MaxRetries int
	// ReadTimeout is the timeout for a reply.
	ReadTimeout time.Duration
	// WriteTimeout is the timeout for sending a request.
	WriteTimeout time.Duration
}

// DefaultConfig returns default client configuration.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout:  10 * time.Second,
		ReconnectDelay:    500 * time.Millisecond,
		MaxReconnectDelay: 5 * time.Second,
		MaxRetries:        3,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// Client sends scenarios over one connection and reads the forecast replies.
// Requests are serialized; the server answers in order.
type Client struct {
	endpoint string
	config   Config

	mu     sync.Mutex // guards conn and serializes requests
	conn   *websocket.Conn
	closed atomic.Bool
}

// Dial connects to a stream endpoint such as ws://host:8080/v1/churn/stream.
func Dial(ctx context.Context, endpoint string, config *Config) (*Client, error) {
	cfg := DefaultConfig()
	if config != nil {
		cfg = *config
	}

	c := &Client{endpoint: endpoint, config: cfg}
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	return c, nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: c.config.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	return conn, nil
}

// Forecast sends one scenario and returns the horizon forecast.
// Transport failures trigger a reconnect with exponential backoff;
// a RemoteError is returned as is.
func (c *Client) Forecast(ctx context.Context, in domain.ScenarioInput) (domain.HorizonForecast, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	delay := c.config.ReconnectDelay
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > c.config.MaxReconnectDelay {
				delay = c.config.MaxReconnectDelay
			}

			if c.conn != nil {
				c.conn.Close()
			}
			conn, err := c.dial(ctx)
			if err != nil {
				c.conn = nil
				lastErr = err
				continue
			}
			c.conn = conn
		}

		if c.conn == nil {
			lastErr = errors.New("not connected")
			continue
		}

		reply, err := c.roundTrip(in)
		if err != nil {
			if c.closed.Load() {
				return nil, ErrClosed
			}
			lastErr = err
			continue
		}
		return decodeReply(reply)
	}

	return nil, fmt.Errorf("forecast after %d retries: %w", c.config.MaxRetries, lastErr)
}

func (c *Client) roundTrip(in domain.ScenarioInput) ([]byte, error) {
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := c.conn.WriteJSON(in); err != nil {
		return nil, fmt.Errorf("write scenario: %w", err)
	}

	c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	_, msg, err := c.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("read reply: %w", err)
	}
	return msg, nil
}

// decodeReply tells an error reply from a forecast by its "error" key.
func decodeReply(msg []byte) (domain.HorizonForecast, error) {
	var probe struct {
		Error *string `json:"error"`
	}
	if err := json.Unmarshal(msg, &probe); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	if probe.Error != nil {
		return nil, &RemoteError{Message: *probe.Error}
	}

	var f domain.HorizonForecast
	if err := json.Unmarshal(msg, &f); err != nil {
		return nil, fmt.Errorf("decode forecast: %w", err)
	}
	return f, nil
}

// Close sends a normal closure and closes the connection.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil // Already closed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(c.config.WriteTimeout))
	err := c.conn.Close()
	c.conn = nil
	return err
}
