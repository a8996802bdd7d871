package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/agency/backoffice/internal/domain/audit"
	"github.com/agency/backoffice/internal/domain/crm"
	"github.com/agency/backoffice/internal/domain/policy"
	"github.com/agency/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockInstanceRepository is a mock implementation of policy.InstanceRepository
type MockInstanceRepository struct {
	mock.Mock
}

func (m *MockInstanceRepository) FindByID(ctx context.Context, id uuid.UUID) (*policy.PolicyInstance, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*policy.PolicyInstance), args.Error(1)
}

func (m *MockInstanceRepository) FindByIDWithTemplate(ctx context.Context, id uuid.UUID) (*policy.InstanceWithTemplate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*policy.InstanceWithTemplate), args.Error(1)
}

func (m *MockInstanceRepository) FindByClient(ctx context.Context, clientID uuid.UUID) ([]policy.InstanceWithTemplate, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]policy.InstanceWithTemplate), args.Error(1)
}

func (m *MockInstanceRepository) FindAll(ctx context.Context, opts policy.ListOptions) ([]policy.InstanceWithTemplate, int64, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]policy.InstanceWithTemplate), args.Get(1).(int64), args.Error(2)
}

func (m *MockInstanceRepository) FindExpiredWithStatusActive(ctx context.Context, limit int) ([]policy.PolicyInstance, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]policy.PolicyInstance), args.Error(1)
}

func (m *MockInstanceRepository) FindExpiringWithin(ctx context.Context, days int, limit int) ([]policy.InstanceWithTemplate, error) {
	args := m.Called(ctx, days, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]policy.InstanceWithTemplate), args.Error(1)
}

func (m *MockInstanceRepository) Save(ctx context.Context, instance *policy.PolicyInstance) error {
	args := m.Called(ctx, instance)
	return args.Error(0)
}

func (m *MockInstanceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

var _ policy.InstanceRepository = (*MockInstanceRepository)(nil)

// MockClientRepository is a mock implementation of crm.ClientRepository
type MockClientRepository struct {
	mock.Mock
}

func (m *MockClientRepository) FindByID(ctx context.Context, id uuid.UUID) (*crm.Client, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crm.Client), args.Error(1)
}

func (m *MockClientRepository) FindAll(ctx context.Context, filter shared.Filter) ([]crm.Client, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]crm.Client), args.Error(1)
}

func (m *MockClientRepository) Save(ctx context.Context, client *crm.Client) error {
	args := m.Called(ctx, client)
	return args.Error(0)
}

func (m *MockClientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockClientRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockClientRepository) CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).(int64), args.Error(1)
}

var _ crm.ClientRepository = (*MockClientRepository)(nil)

// MockAuditRepository is a mock implementation of audit.Repository
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Record(ctx context.Context, entry *audit.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditRepository) FindByEntity(ctx context.Context, entityType string, entityID uuid.UUID, filter shared.Filter) ([]audit.Entry, error) {
	args := m.Called(ctx, entityType, entityID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]audit.Entry), args.Error(1)
}

var _ audit.Repository = (*MockAuditRepository)(nil)

// MockSender is a mock implementation of both sender ports
type MockSender struct {
	mock.Mock
}

func (m *MockSender) SendEmail(ctx context.Context, to, subject, body string) error {
	args := m.Called(ctx, to, subject, body)
	return args.Error(0)
}

func (m *MockSender) SendWhatsApp(ctx context.Context, phone, message string) error {
	args := m.Called(ctx, phone, message)
	return args.Error(0)
}

var _ EmailSender = (*MockSender)(nil)
var _ WhatsAppSender = (*MockSender)(nil)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func expiringPair(clientID uuid.UUID, policyNumber string, expiry time.Time) policy.InstanceWithTemplate {
	return policy.InstanceWithTemplate{
		Instance: policy.PolicyInstance{
			BaseEntity: shared.NewBaseEntity(),
			TemplateID: uuid.New(),
			ClientID:   clientID,
			Premium:    decimal.NewFromInt(1000),
			Commission: decimal.NewFromInt(100),
			Status:     policy.InstanceStatusActive,
			StartDate:  expiry.AddDate(-1, 0, 0),
			ExpiryDate: expiry,
		},
		Template: policy.PolicyTemplate{
			BaseEntity:   shared.NewBaseEntity(),
			PolicyNumber: policyNumber,
			Type:         policy.PolicyTypeAuto,
			Provider:     "Harel",
		},
	}
}

func TestSendExpiryReminders(t *testing.T) {
	ctx := context.Background()
	cfg := Config{WindowDays: 30, BatchLimit: 50}

	t.Run("delivers email and whatsapp per channel availability", func(t *testing.T) {
		instances := new(MockInstanceRepository)
		clients := new(MockClientRepository)
		audits := new(MockAuditRepository)
		sender := new(MockSender)

		bothChannels := uuid.New()
		emailOnly := uuid.New()
		pairs := []policy.InstanceWithTemplate{
			expiringPair(bothChannels, "AUTO-001", testNow.AddDate(0, 0, 10)),
			expiringPair(emailOnly, "AUTO-002", testNow.AddDate(0, 0, 20)),
		}
		instances.On("FindExpiringWithin", mock.Anything, 30, 50).Return(pairs, nil)
		clients.On("FindByID", mock.Anything, bothChannels).Return(&crm.Client{
			FirstName: "Dana", LastName: "Aviv", Email: "dana@example.com", Phone: "+972501234567",
		}, nil)
		clients.On("FindByID", mock.Anything, emailOnly).Return(&crm.Client{
			FirstName: "Yoav", LastName: "Peretz", Email: "yoav@example.com",
		}, nil)
		sender.On("SendEmail", mock.Anything, "dana@example.com", mock.Anything, mock.Anything).Return(nil)
		sender.On("SendEmail", mock.Anything, "yoav@example.com", mock.Anything, mock.Anything).Return(nil)
		sender.On("SendWhatsApp", mock.Anything, "+972501234567", mock.Anything).Return(nil)
		audits.On("Record", mock.Anything, mock.MatchedBy(func(e *audit.Entry) bool {
			return e.Action == audit.ActionRemind
		})).Return(nil).Times(2)

		service := NewReminderService(instances, clients, audits, sender, sender, zap.NewNop(), cfg,
			WithClock(func() time.Time { return testNow }))
		result, err := service.SendExpiryReminders(ctx)

		require.NoError(t, err)
		assert.Equal(t, 2, result.Candidates)
		assert.Equal(t, 2, result.EmailsSent)
		assert.Equal(t, 1, result.Messages)
		assert.Equal(t, 0, result.Failures)
		instances.AssertExpectations(t)
		sender.AssertExpectations(t)
		audits.AssertExpectations(t)
	})

	t.Run("per-instance failures do not abort the batch", func(t *testing.T) {
		instances := new(MockInstanceRepository)
		clients := new(MockClientRepository)
		audits := new(MockAuditRepository)
		sender := new(MockSender)

		missingClient := uuid.New()
		okClient := uuid.New()
		pairs := []policy.InstanceWithTemplate{
			expiringPair(missingClient, "AUTO-003", testNow.AddDate(0, 0, 3)),
			expiringPair(okClient, "AUTO-004", testNow.AddDate(0, 0, 8)),
		}
		instances.On("FindExpiringWithin", mock.Anything, 30, 50).Return(pairs, nil)
		clients.On("FindByID", mock.Anything, missingClient).Return(nil, shared.ErrNotFound)
		clients.On("FindByID", mock.Anything, okClient).Return(&crm.Client{
			FirstName: "Noa", LastName: "Levi", Email: "noa@example.com",
		}, nil)
		sender.On("SendEmail", mock.Anything, "noa@example.com", mock.Anything, mock.Anything).Return(nil)
		audits.On("Record", mock.Anything, mock.Anything).Return(nil).Once()

		service := NewReminderService(instances, clients, audits, sender, sender, zap.NewNop(), cfg,
			WithClock(func() time.Time { return testNow }))
		result, err := service.SendExpiryReminders(ctx)

		require.NoError(t, err)
		assert.Equal(t, 2, result.Candidates)
		assert.Equal(t, 1, result.EmailsSent)
		assert.Equal(t, 1, result.Failures)
	})

	t.Run("query failure is returned", func(t *testing.T) {
		instances := new(MockInstanceRepository)
		boom := errors.New("connection refused")
		instances.On("FindExpiringWithin", mock.Anything, mock.Anything, mock.Anything).Return(nil, boom)

		service := NewReminderService(instances, new(MockClientRepository), new(MockAuditRepository),
			new(MockSender), new(MockSender), zap.NewNop(), cfg)
		_, err := service.SendExpiryReminders(ctx)
		assert.ErrorIs(t, err, boom)
	})
}

func TestSweepExpiredStatuses(t *testing.T) {
	ctx := context.Background()
	cfg := Config{WindowDays: 30, BatchLimit: 50}

	t.Run("marks past-expiry instances expired", func(t *testing.T) {
		instances := new(MockInstanceRepository)
		stale := []policy.PolicyInstance{
			expiringPair(uuid.New(), "AUTO-005", testNow.AddDate(0, 0, -2)).Instance,
			expiringPair(uuid.New(), "AUTO-006", testNow.AddDate(0, 0, -40)).Instance,
		}
		instances.On("FindExpiredWithStatusActive", mock.Anything, 50).Return(stale, nil)
		instances.On("Save", mock.Anything, mock.MatchedBy(func(i *policy.PolicyInstance) bool {
			return i.Status == policy.InstanceStatusExpired
		})).Return(nil).Times(2)

		service := NewReminderService(instances, new(MockClientRepository), new(MockAuditRepository),
			new(MockSender), new(MockSender), zap.NewNop(), cfg)
		swept, err := service.SweepExpiredStatuses(ctx)

		require.NoError(t, err)
		assert.Equal(t, 2, swept)
		instances.AssertExpectations(t)
	})

	t.Run("save failures are skipped, not fatal", func(t *testing.T) {
		instances := new(MockInstanceRepository)
		stale := []policy.PolicyInstance{
			expiringPair(uuid.New(), "AUTO-007", testNow.AddDate(0, 0, -2)).Instance,
		}
		instances.On("FindExpiredWithStatusActive", mock.Anything, 50).Return(stale, nil)
		instances.On("Save", mock.Anything, mock.Anything).Return(errors.New("deadlock"))

		service := NewReminderService(instances, new(MockClientRepository), new(MockAuditRepository),
			new(MockSender), new(MockSender), zap.NewNop(), cfg)
		swept, err := service.SweepExpiredStatuses(ctx)

		require.NoError(t, err)
		assert.Equal(t, 0, swept)
	})
}
