package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/zlnvch/drawguess/models"
	"github.com/zlnvch/drawguess/transport"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024 * 64

	// Outbound draw events: 20 per second with a burst of 30
	DefaultSendRate = 20
	burstLimit      = 30

	sendBufferSize = 128

	subprotocol = "drawguess-v1"
)

// Websocket message envelope
type message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type outboundMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type loginMessage struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Avatar    string `json:"avatar"`
	RequestId string `json:"requestId"`
}

type registerMessage struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	RequestId string `json:"requestId"`
}

// Client is a transport.Transport over a single websocket connection. Inbound
// events are dispatched on the read goroutine in arrival order.
type Client struct {
	url      string
	dialer   *websocket.Dialer
	registry *transport.Registry
	limiter  *rate.Limiter
	log      zerolog.Logger

	// Concurrent Connect calls share one dial
	dials singleflight.Group

	mu    sync.Mutex
	state models.ConnectionState
	conn  *websocket.Conn
	send  chan []byte // Buffered channel of outbound messages.
}

var _ transport.Transport = (*Client)(nil)

// NewClient creates a disconnected client for serverURL. sendRate limits
// outbound draw events per second; zero or less uses DefaultSendRate.
func NewClient(serverURL string, sendRate float64, log zerolog.Logger) *Client {
	if sendRate <= 0 {
		sendRate = DefaultSendRate
	}
	return &Client{
		url: serverURL,
		dialer: &websocket.Dialer{
			HandshakeTimeout: writeWait,
			Subprotocols:     []string{subprotocol},
		},
		registry: transport.NewRegistry(),
		limiter:  rate.NewLimiter(rate.Limit(sendRate), burstLimit),
		log:      log.With().Str("component", "ws").Logger(),
		state:    models.StateDisconnected,
	}
}

func (c *Client) ConnectionState() models.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect dials the server and starts the pumps. It returns nil right away
// when already connected. Callers that arrive while a dial is in flight wait
// for it and get its result; that dial runs under the first caller's ctx.
func (c *Client) Connect(ctx context.Context) error {
	if c.ConnectionState() == models.StateConnected {
		return nil
	}

	ch := c.dials.DoChan("dial", func() (any, error) {
		return nil, c.dial(ctx)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) dial(ctx context.Context) error {
	c.mu.Lock()
	if c.state == models.StateConnected {
		c.mu.Unlock()
		return nil
	}
	c.state = models.StateConnecting
	c.mu.Unlock()

	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		c.mu.Lock()
		c.state = models.StateDisconnected
		c.mu.Unlock()
		return fmt.Errorf("dial %s: %w", c.url, err)
	}

	send := make(chan []byte, sendBufferSize)

	c.mu.Lock()
	c.conn = conn
	c.send = send
	c.state = models.StateConnected
	c.mu.Unlock()

	c.log.Info().Str("url", c.url).Msg("Connected")

	go c.readPump(conn)
	go c.writePump(conn, send)
	return nil
}

// Close ends the current connection without emitting connection_failed.
func (c *Client) Close() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil && c.detach(conn) {
		c.log.Info().Msg("Disconnected")
	}
}

// detach tears down conn if it is still the current connection and reports
// whether it was. Closing the send channel makes the write pump send a close
// frame and shut the socket.
func (c *Client) detach(conn *websocket.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != conn {
		return false
	}
	close(c.send)
	c.conn = nil
	c.send = nil
	c.state = models.StateDisconnected
	return true
}

func (c *Client) readPump(conn *websocket.Conn) {
	defer conn.Close()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if c.detach(conn) {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					c.log.Warn().Err(err).Msg("WS close error")
				}
				c.registry.Dispatch(transport.EventConnectionFailed, nil)
			}
			return
		}

		if !c.handleMessage(conn, messageBytes) {
			return
		}
	}
}

// handleMessage dispatches one inbound envelope and reports whether the
// connection should keep reading.
func (c *Client) handleMessage(conn *websocket.Conn, messageBytes []byte) bool {
	var msg message
	if err := json.Unmarshal(messageBytes, &msg); err != nil {
		c.log.Warn().Err(err).Msg("Invalid JSON")
		return true
	}

	switch msg.Type {
	case transport.EventServerShutdown, transport.EventAccountLoggedInElsewhere:
		// Subscribers must already see the session as gone
		c.detach(conn)
		c.log.Warn().Str("type", msg.Type).Msg("Server ended the session")
		c.registry.Dispatch(msg.Type, msg.Data)
		return false
	case "":
		c.log.Warn().Msg("Message without type")
		return true
	}

	c.registry.Dispatch(msg.Type, msg.Data)
	return true
}

func (c *Client) writePump(conn *websocket.Conn, send <-chan []byte) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()
	for {
		select {
		case message, ok := <-send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				)
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.Warn().Err(err).Msg("WS send error")
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueue reports whether the message was handed to the write pump.
func (c *Client) enqueue(messageType string, data any) bool {
	messageBytes, err := json.Marshal(outboundMessage{Type: messageType, Data: data})
	if err != nil {
		c.log.Error().Err(err).Str("type", messageType).Msg("Error marshaling message")
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != models.StateConnected {
		return false
	}
	select {
	case c.send <- messageBytes:
		return true
	default:
		c.log.Warn().Str("type", messageType).Msg("Send buffer full")
		return false
	}
}

func newRequestId() string {
	id, err := uuid.NewV7()
	if err != nil {
		return ""
	}
	return id.String()
}

func (c *Client) Login(username, password, avatar string) bool {
	return c.enqueue("login", loginMessage{
		Username:  username,
		Password:  password,
		Avatar:    avatar,
		RequestId: newRequestId(),
	})
}

func (c *Client) Register(username, password string) bool {
	return c.enqueue("register", registerMessage{
		Username:  username,
		Password:  password,
		RequestId: newRequestId(),
	})
}

func (c *Client) Logout() {
	c.enqueue("logout", struct{}{})
}

// SendDraw drops the event when the connection is down or the send rate is
// exceeded.
func (c *Client) SendDraw(event models.DrawEvent) bool {
	if c.ConnectionState() != models.StateConnected {
		return false
	}
	if !c.limiter.Allow() {
		c.log.Debug().Str("action", event.Action.String()).Msg("Draw rate limit exceeded")
		return false
	}
	return c.enqueue(transport.EventDraw, event)
}

func (c *Client) Subscribe(event string, handler transport.Handler) transport.Subscription {
	return c.registry.Subscribe(event, handler)
}

func (c *Client) Unsubscribe(sub transport.Subscription) {
	c.registry.Unsubscribe(sub)
}
