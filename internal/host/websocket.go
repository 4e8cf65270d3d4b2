package host

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/TheMichaelB/overlaycfg/internal/config"
	"github.com/TheMichaelB/overlaycfg/internal/events"
	"github.com/TheMichaelB/overlaycfg/internal/models"
)

// request is one endpoint invocation.
type request struct {
	ID      string `json:"id"`
	Key     string `json:"key"`
	Payload any    `json:"payload"`
}

// response answers the request with the same ID.
type response struct {
	ID      string          `json:"id"`
	OK      bool            `json:"ok"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// WSClient invokes host endpoints over a websocket.
type WSClient struct {
	url     string
	timeout time.Duration
	logger  *events.Logger

	// Connection state
	mu      sync.Mutex
	writeMu sync.Mutex
	conn    *websocket.Conn
	closed  bool
	pending map[string]chan response
	done    chan struct{}
}

// NewWSClient creates a client for the host at cfg.URL.
func NewWSClient(cfg *config.HostConfig, logger *events.Logger) *WSClient {
	if logger == nil {
		logger = events.Discard()
	}

	wsURL := cfg.URL
	if strings.HasPrefix(wsURL, "http") {
		wsURL = "ws" + wsURL[4:] // Convert http(s) to ws(s)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &WSClient{
		url:     wsURL,
		timeout: timeout,
		logger:  logger.WithField("component", "host_client"),
		pending: make(map[string]chan response),
		done:    make(chan struct{}),
	}
}

// Connect dials the host.
func (c *WSClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.conn != nil {
		return fmt.Errorf("already connected")
	}

	c.logger.WithField("url", c.url).Info("Connecting to host")

	dialer := websocket.Dialer{HandshakeTimeout: c.timeout}
	conn, resp, err := dialer.DialContext(ctx, c.url, http.Header{})
	if err != nil {
		if resp != nil {
			return fmt.Errorf("host connect failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("host connect failed: %w", err)
	}

	c.conn = conn
	go c.readLoop(conn)

	c.logger.Info("Host connected")
	return nil
}

// Close shuts the connection and fails outstanding calls.
func (c *WSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)

	if c.conn == nil {
		return nil
	}

	c.writeMu.Lock()
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()

	err := c.conn.Close()
	c.conn = nil
	return err
}

// readLoop routes responses to their waiting callers.
func (c *WSClient) readLoop(conn *websocket.Conn) {
	defer c.failPending()

	for {
		var resp response
		if err := conn.ReadJSON(&resp); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure) {
				c.logger.WithError(err).Error("Host read error")
			}
			return
		}

		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		delete(c.pending, resp.ID)
		c.mu.Unlock()

		if !ok {
			c.logger.WithField("id", resp.ID).Warn("Dropping response for unknown request")
			continue
		}
		ch <- resp
	}
}

func (c *WSClient) failPending() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.conn = nil
}

// Invoke calls endpoint key with payload and decodes the reply into out
// when out is non-nil.
func (c *WSClient) Invoke(ctx context.Context, key string, payload any, out any) error {
	id := uuid.NewString()
	ch := make(chan response, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	c.logger.WithFields(map[string]interface{}{
		"id":  id,
		"key": key,
	}).Debug("Invoking host endpoint")

	c.writeMu.Lock()
	err := conn.WriteJSON(request{ID: id, Key: key, Payload: payload})
	c.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("send %s: %w", key, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	select {
	case resp, ok := <-ch:
		if !ok {
			return fmt.Errorf("%s: %w", key, ErrClosed)
		}
		if !resp.OK {
			return &RemoteError{Key: key, Message: resp.Error}
		}
		if out != nil && len(resp.Payload) > 0 {
			if err := json.Unmarshal(resp.Payload, out); err != nil {
				return fmt.Errorf("decode %s reply: %w", key, err)
			}
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", key, ctx.Err())
	case <-c.done:
		return fmt.Errorf("%s: %w", key, ErrClosed)
	}
}

// PushSpecification sends the overlay specification.
func (c *WSClient) PushSpecification(ctx context.Context, spec Spec) error {
	return c.Invoke(ctx, EndpointPushSpecification, spec, nil)
}

// BindHotkey registers a hotkey combination.
func (c *WSClient) BindHotkey(ctx context.Context, binding models.Binding) error {
	return c.Invoke(ctx, EndpointBindHotkey, binding, nil)
}

// ClearHotkey unregisters the combination bound to action.
func (c *WSClient) ClearHotkey(ctx context.Context, action models.Action) error {
	return c.Invoke(ctx, EndpointClearHotkey, map[string]any{"action": action}, nil)
}

// SetCapture starts or stops capture.
func (c *WSClient) SetCapture(ctx context.Context, active bool) error {
	return c.Invoke(ctx, EndpointSetCapture, map[string]any{"active": active}, nil)
}

// Introspect fetches the metric catalog.
func (c *WSClient) Introspect(ctx context.Context) (*Introspection, error) {
	var intro Introspection
	if err := c.Invoke(ctx, EndpointIntrospect, struct{}{}, &intro); err != nil {
		return nil, err
	}
	if intro.Metrics == nil || intro.Stats == nil || intro.Units == nil {
		return nil, fmt.Errorf("bad (non-array) member type returned from introspect")
	}
	return &intro, nil
}

// EnumerateAdapters lists graphics adapters.
func (c *WSClient) EnumerateAdapters(ctx context.Context) ([]Adapter, error) {
	var reply struct {
		Adapters []Adapter `json:"adapters"`
	}
	if err := c.Invoke(ctx, EndpointEnumerateAdapters, struct{}{}, &reply); err != nil {
		return nil, err
	}
	if reply.Adapters == nil {
		return nil, fmt.Errorf("bad (non-array) type returned from enumerateAdapters")
	}
	return reply.Adapters, nil
}
