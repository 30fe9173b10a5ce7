package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockSensor is a mock implementation of the sensor.Sensor interface
type MockSensor struct {
	mock.Mock
}

func (m *MockSensor) Sample(ctx context.Context) (float64, error) {
	args := m.Called(ctx)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockSensor) Close() error {
	args := m.Called()
	return args.Error(0)
}
