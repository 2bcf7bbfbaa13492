package mocks

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"
	"github.com/zlnvch/drawguess/models"
	"github.com/zlnvch/drawguess/transport"
)

// MockTransport records requests through mock.Mock and keeps real
// subscriptions so tests can Emit events at the subscribers.
type MockTransport struct {
	mock.Mock
	Registry *transport.Registry
}

func NewMockTransport() *MockTransport {
	return &MockTransport{Registry: transport.NewRegistry()}
}

func (m *MockTransport) Connect(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTransport) ConnectionState() models.ConnectionState {
	args := m.Called()
	return args.Get(0).(models.ConnectionState)
}

func (m *MockTransport) Login(username, password, avatar string) bool {
	args := m.Called(username, password, avatar)
	return args.Bool(0)
}

func (m *MockTransport) Register(username, password string) bool {
	args := m.Called(username, password)
	return args.Bool(0)
}

func (m *MockTransport) Logout() {
	m.Called()
}

func (m *MockTransport) SendDraw(event models.DrawEvent) bool {
	args := m.Called(event)
	return args.Bool(0)
}

func (m *MockTransport) Subscribe(event string, handler transport.Handler) transport.Subscription {
	return m.Registry.Subscribe(event, handler)
}

func (m *MockTransport) Unsubscribe(sub transport.Subscription) {
	m.Registry.Unsubscribe(sub)
}

// Emit delivers data to the subscribers of event as the transport would.
func (m *MockTransport) Emit(event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		panic(err)
	}
	m.Registry.Dispatch(event, payload)
}
