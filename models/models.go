package models

import "encoding/json"

// Logical canvas resolution every draw event is expressed in.
const (
	LogicalWidth  = 1920
	LogicalHeight = 1080
)

type DrawAction int

const (
	ActionDraw  DrawAction = 1
	ActionClear DrawAction = 2
	ActionErase DrawAction = 3
)

func (a DrawAction) String() string {
	switch a {
	case ActionDraw:
		return "draw"
	case ActionClear:
		return "clear"
	case ActionErase:
		return "erase"
	default:
		return "unknown"
	}
}

// Point is a position in logical canvas space.
type Point struct {
	X int
	Y int
}

// DrawEvent is one stroke segment as it travels over the wire.
type DrawEvent struct {
	Action   DrawAction `json:"action"`
	X1       int        `json:"x1"`
	Y1       int        `json:"y1"`
	X2       int        `json:"x2"`
	Y2       int        `json:"y2"`
	ColorHex string     `json:"colorHex,omitempty"`
	Width    int        `json:"width,omitempty"`
}

// Clear segments carry no coordinates on the wire.
func (e DrawEvent) MarshalJSON() ([]byte, error) {
	if e.Action == ActionClear {
		return json.Marshal(struct {
			Action DrawAction `json:"action"`
		}{e.Action})
	}
	type wire DrawEvent
	return json.Marshal(wire(e))
}

func (e DrawEvent) Start() Point {
	return Point{X: e.X1, Y: e.Y1}
}

func (e DrawEvent) End() Point {
	return Point{X: e.X2, Y: e.Y2}
}

type UserProfile struct {
	Id       int    `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
)

// Inbound transport event payloads

type LoginResponse struct {
	Status   string `json:"status"`
	UserId   int    `json:"userId"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

type RegisterResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Notice carries the human-readable message of error, server_shutdown and
// account_logged_in_elsewhere events.
type Notice struct {
	Message string `json:"message"`
}

const StatusSuccess = "success"
