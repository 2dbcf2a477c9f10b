package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"app-groups-sync/internal/models"
	"app-groups-sync/internal/okta"
	"app-groups-sync/internal/warehouse"
)

// MockIdentity stands in for the Okta client.
type MockIdentity struct {
	mock.Mock
}

func (m *MockIdentity) FetchApplication(ctx context.Context, appID string) okta.Result[models.Application] {
	return m.Called(ctx, appID).Get(0).(okta.Result[models.Application])
}

func (m *MockIdentity) FetchGroupMemberships(ctx context.Context, appID string) okta.Result[[]string] {
	return m.Called(ctx, appID).Get(0).(okta.Result[[]string])
}

func (m *MockIdentity) FetchGroupDetails(ctx context.Context, groupID string) okta.Result[models.Group] {
	return m.Called(ctx, groupID).Get(0).(okta.Result[models.Group])
}

// MockSink implements warehouse.Sink. Name is SinkName, or "BigQuery" when unset.
type MockSink struct {
	mock.Mock
	SinkName string
}

var _ warehouse.Sink = (*MockSink)(nil)

func (m *MockSink) Name() string {
	if m.SinkName == "" {
		return "BigQuery"
	}
	return m.SinkName
}

func (m *MockSink) Append(ctx context.Context, table warehouse.TableRef, batch models.Batch) error {
	return m.Called(ctx, table, batch).Error(0)
}

func (m *MockSink) Health(ctx context.Context) error { return m.Called(ctx).Error(0) }

func (m *MockSink) Close() error { return m.Called().Error(0) }

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, event models.SyncEvent) error {
	return m.Called(ctx, event).Error(0)
}
