package mocks

import (
	"context"
	"time"

	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockPersistence is a mock implementation of persistence.Persistence interface.
// Repository accessors return the embedded repository mocks.
type MockPersistence struct {
	mock.Mock

	Workflows       *MockWorkflowRepository
	Executions      *MockExecutionRepository
	WebhookTriggers *MockWebhookTriggerRepository
}

func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		Workflows:       &MockWorkflowRepository{},
		Executions:      &MockExecutionRepository{},
		WebhookTriggers: &MockWebhookTriggerRepository{},
	}
}

func (m *MockPersistence) WorkflowRepository() persistence.WorkflowRepository {
	return m.Workflows
}

func (m *MockPersistence) ExecutionRepository() persistence.ExecutionRepository {
	return m.Executions
}

func (m *MockPersistence) WebhookTriggerRepository() persistence.WebhookTriggerRepository {
	return m.WebhookTriggers
}

func (m *MockPersistence) TaskRepository() persistence.TaskRepository {
	args := m.Called()

	repo, _ := args.Get(0).(persistence.TaskRepository)

	return repo
}

func (m *MockPersistence) NotificationRepository() persistence.NotificationRepository {
	args := m.Called()

	repo, _ := args.Get(0).(persistence.NotificationRepository)

	return repo
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

// MockWorkflowRepository is a mock implementation of persistence.WorkflowRepository interface.
type MockWorkflowRepository struct {
	mock.Mock
}

func (m *MockWorkflowRepository) List(ctx context.Context, workspaceID string) ([]*models.Workflow, error) {
	args := m.Called(ctx, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	args := m.Called(ctx, workflow)

	return args.Error(0)
}

func (m *MockWorkflowRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockExecutionRepository is a mock implementation of persistence.ExecutionRepository interface.
type MockExecutionRepository struct {
	mock.Mock
}

func (m *MockExecutionRepository) Save(ctx context.Context, execution *models.Execution) error {
	args := m.Called(ctx, execution)

	return args.Error(0)
}

func (m *MockExecutionRepository) GetByID(ctx context.Context, id string) (*models.Execution, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Execution), args.Error(1)
}

func (m *MockExecutionRepository) FinishRunning(ctx context.Context, execution *models.Execution) error {
	args := m.Called(ctx, execution)

	return args.Error(0)
}

func (m *MockExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error) {
	args := m.Called(ctx, workflowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Execution), args.Error(1)
}

// MockWebhookTriggerRepository is a mock implementation of persistence.WebhookTriggerRepository interface.
type MockWebhookTriggerRepository struct {
	mock.Mock
}

func (m *MockWebhookTriggerRepository) Save(ctx context.Context, trigger *models.WebhookTrigger) error {
	args := m.Called(ctx, trigger)

	return args.Error(0)
}

func (m *MockWebhookTriggerRepository) GetByID(ctx context.Context, id string) (*models.WebhookTrigger, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.WebhookTrigger), args.Error(1)
}

func (m *MockWebhookTriggerRepository) GetByURL(ctx context.Context, urlSuffix string) (*models.WebhookTrigger, error) {
	args := m.Called(ctx, urlSuffix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.WebhookTrigger), args.Error(1)
}

func (m *MockWebhookTriggerRepository) ListByWorkspace(ctx context.Context, workspaceID string) ([]*models.WebhookTrigger, error) {
	args := m.Called(ctx, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.WebhookTrigger), args.Error(1)
}

func (m *MockWebhookTriggerRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *MockWebhookTriggerRepository) SetActive(ctx context.Context, id string, active bool) (*models.WebhookTrigger, error) {
	args := m.Called(ctx, id, active)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.WebhookTrigger), args.Error(1)
}

func (m *MockWebhookTriggerRepository) RecordInvocation(ctx context.Context, id string, at time.Time) (*models.WebhookTrigger, error) {
	args := m.Called(ctx, id, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.WebhookTrigger), args.Error(1)
}
