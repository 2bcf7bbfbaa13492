package mocks

import (
	"github.com/stretchr/testify/mock"
)

type MockSurface struct {
	mock.Mock
}

func (m *MockSurface) Size() (int, int) {
	args := m.Called()
	return args.Int(0), args.Int(1)
}

func (m *MockSurface) DrawLine(x1, y1, x2, y2 float64, colorHex string, width float64) error {
	args := m.Called(x1, y1, x2, y2, colorHex, width)
	return args.Error(0)
}

func (m *MockSurface) Clear() {
	m.Called()
}
