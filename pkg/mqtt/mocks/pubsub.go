package mocks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
)

// PubSub is a mock implementation of the PubSub interface for testing.
type PubSub struct {
	mock.Mock
}

// NewPubSub creates a mock whose expectations are asserted on test cleanup.
func NewPubSub(t *testing.T) *PubSub {
	m := &PubSub{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *PubSub) Publish(ctx context.Context, topic string, msg any) error {
	args := m.Called(ctx, topic, msg)

	return args.Error(0)
}

func (m *PubSub) Disconnect(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
