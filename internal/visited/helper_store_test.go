package visited_test

import (
	"context"

	"github.com/rohmanhakim/page-crawler/internal/checkpoint"
	"github.com/rohmanhakim/page-crawler/pkg/failure"
	"github.com/stretchr/testify/mock"
)

type storeMock struct {
	mock.Mock
}

func (m *storeMock) Load(ctx context.Context) (checkpoint.Checkpoint, failure.ClassifiedError) {
	args := m.Called(ctx)
	cp := args.Get(0).(checkpoint.Checkpoint)
	if err := args.Get(1); err != nil {
		return cp, err.(failure.ClassifiedError)
	}
	return cp, nil
}

func (m *storeMock) Save(ctx context.Context, cp checkpoint.Checkpoint) failure.ClassifiedError {
	args := m.Called(ctx, cp)
	if err := args.Get(0); err != nil {
		return err.(failure.ClassifiedError)
	}
	return nil
}

func (m *storeMock) Path() string {
	return "mock://checkpoint"
}

func (m *storeMock) Close() error {
	return nil
}
