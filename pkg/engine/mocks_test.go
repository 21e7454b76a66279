package engine

import (
	"context"
	"sync"

	"github.com/dukex/taskflow/pkg/eventbus"
	"github.com/dukex/taskflow/pkg/models"
	"github.com/stretchr/testify/mock"
)

type mockDomainStore struct {
	mock.Mock
}

func (m *mockDomainStore) CreateTask(ctx context.Context, fields models.TaskFields) (*models.Task, error) {
	args := m.Called(ctx, fields)

	task, _ := args.Get(0).(*models.Task)

	return task, args.Error(1)
}

func (m *mockDomainStore) UpdateTask(ctx context.Context, id string, fields models.TaskFields) (*models.Task, error) {
	args := m.Called(ctx, id, fields)

	task, _ := args.Get(0).(*models.Task)

	return task, args.Error(1)
}

func (m *mockDomainStore) DeleteTask(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockDomainStore) CreateNotification(ctx context.Context, userID, title, message string) error {
	return m.Called(ctx, userID, title, message).Error(0)
}

type mockEgress struct {
	mock.Mock
}

func (m *mockEgress) Request(ctx context.Context, url, method string, headers map[string]string, body any) (any, error) {
	args := m.Called(ctx, url, method, headers, body)

	return args.Get(0), args.Error(1)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)

	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	types := make([]string, 0, len(p.events))
	for _, event := range p.events {
		types = append(types, string(event.GetType()))
	}

	return types
}
