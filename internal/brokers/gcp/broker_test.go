package gcp

import (
	"context"
	"testing"

	"app-groups-sync/internal/brokers"
	"app-groups-sync/internal/common/errors"
	"app-groups-sync/internal/common/logging"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	testProject = "test-project"
	testTopic   = "app-groups-synced"
)

// newFakeServer starts an in-memory Pub/Sub server with testTopic created and returns
// a client option pointing at it.
func newFakeServer(t *testing.T) (*pstest.Server, func() option.ClientOption) {
	t.Helper()

	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	dial := func() option.ClientOption {
		conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		require.NoError(t, err)
		t.Cleanup(func() { _ = conn.Close() })
		return option.WithGRPCConn(conn)
	}

	admin, err := pubsub.NewClient(context.Background(), testProject, dial())
	require.NoError(t, err)
	t.Cleanup(func() { _ = admin.Close() })

	_, err = admin.CreateTopic(context.Background(), testTopic)
	require.NoError(t, err)

	return srv, dial
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{"valid", Config{ProjectID: testProject, TopicID: testTopic}, ""},
		{"missing project", Config{TopicID: testTopic}, "NOTIFY_GCP_PROJECT_ID is required"},
		{"missing topic", Config{ProjectID: testProject}, "NOTIFY_GCP_TOPIC_ID is required"},
		{"reserved topic", Config{ProjectID: testProject, TopicID: "goog-events"}, "NOTIFY_GCP_TOPIC_ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ConnectionString(t *testing.T) {
	c := &Config{ProjectID: testProject, TopicID: testTopic}
	assert.Equal(t, "gcp", c.GetType())
	assert.Equal(t, "pubsub://projects/test-project/topics/app-groups-synced", c.GetConnectionString())
}

func TestBroker_Publish(t *testing.T) {
	srv, dial := newFakeServer(t)
	ctx := context.Background()

	b, err := NewBroker(ctx, &Config{ProjectID: testProject, TopicID: testTopic}, logging.NewNopLogger(), dial())
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, "gcp", b.Name())
	require.NoError(t, b.Health(ctx))

	err = b.Publish(ctx, &brokers.Message{
		MessageID: "evt-1",
		Subject:   "SyncCompleted",
		Headers:   map[string]string{"app_id": "app123", "request_id": ""},
		Body:      []byte(`{"app_id":"app123"}`),
	})
	require.NoError(t, err)

	messages := srv.Messages()
	require.Len(t, messages, 1)
	assert.JSONEq(t, `{"app_id":"app123"}`, string(messages[0].Data))
	assert.Equal(t, "app123", messages[0].Attributes["app_id"])
	assert.Equal(t, "SyncCompleted", messages[0].Attributes["subject"])
	assert.Equal(t, "evt-1", messages[0].Attributes["message_id"])
	assert.NotContains(t, messages[0].Attributes, "request_id")
}

func TestNewBroker_MissingTopic(t *testing.T) {
	_, dial := newFakeServer(t)

	b, err := NewBroker(context.Background(), &Config{ProjectID: testProject, TopicID: "missing-topic"}, logging.NewNopLogger(), dial())
	require.Error(t, err)
	assert.Nil(t, b)
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
	assert.Contains(t, err.Error(), "missing-topic does not exist")
}

func TestNewBroker_InvalidConfig(t *testing.T) {
	b, err := NewBroker(context.Background(), &Config{}, logging.NewNopLogger())
	require.Error(t, err)
	assert.Nil(t, b)
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
}

func TestFactory_Registered(t *testing.T) {
	assert.True(t, brokers.DefaultRegistry.IsRegistered("gcp"))
	assert.Equal(t, "gcp", GetFactory().GetType())
}
