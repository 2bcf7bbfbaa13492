package transport

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/zlnvch/drawguess/models"
)

// Events emitted by a Transport.
const (
	EventLoginResponse            = "login_response"
	EventRegisterResponse         = "register_response"
	EventError                    = "error"
	EventConnectionFailed         = "connection_failed"
	EventServerShutdown           = "server_shutdown"
	EventAccountLoggedInElsewhere = "account_logged_in_elsewhere"
	EventDraw                     = "draw"
)

var ErrNotConnected = errors.New("transport is not connected")

// Handler receives the raw data object of an event. Handlers for one
// transport are called one at a time, in arrival order.
type Handler func(payload json.RawMessage)

type Subscription struct {
	Event string
	Id    uint64
}

// Transport performs the network I/O for the game client. Request methods
// report whether the request was dispatched, never whether it succeeded;
// outcomes arrive as events.
type Transport interface {
	Connect(ctx context.Context) error
	ConnectionState() models.ConnectionState
	Login(username, password, avatar string) bool
	Register(username, password string) bool
	Logout()
	SendDraw(event models.DrawEvent) bool
	Subscribe(event string, handler Handler) Subscription
	Unsubscribe(sub Subscription)
}
