package testutil

import (
	"context"
	"errors"
)

type MockRandomnessOracle struct {
	RequestFunc func(ctx context.Context, requestID, seed string) error
}

func (m *MockRandomnessOracle) Request(ctx context.Context, requestID, seed string) error {
	if m.RequestFunc != nil {
		return m.RequestFunc(ctx, requestID, seed)
	}

	return errors.New("not implemented")
}
