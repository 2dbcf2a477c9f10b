package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"app-groups-sync/internal/common/errors"
	"app-groups-sync/internal/common/logging"
	"app-groups-sync/internal/models"
	"app-groups-sync/internal/okta"
	"app-groups-sync/internal/testutil"
	"app-groups-sync/internal/warehouse"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testTable = warehouse.TableRef{Project: "my-project", Dataset: "okta", Table: "apps_groups"}

func newTestPipeline(t *testing.T, identity Identity, sink warehouse.Sink, notifier Notifier, policy FailurePolicy) *Pipeline {
	t.Helper()
	deps := Deps{
		Identity:       identity,
		Sink:           sink,
		Table:          testTable,
		Logger:         logging.NewNopLogger(),
		MaxConcurrency: 2,
		FailurePolicy:  policy,
	}
	if notifier != nil {
		deps.Notifier = notifier
	}
	p, err := New(deps)
	require.NoError(t, err)
	return p
}

func TestNew(t *testing.T) {
	identity := new(testutil.MockIdentity)
	sink := new(testutil.MockSink)

	tests := []struct {
		name    string
		deps    Deps
		wantErr string
	}{
		{"missing identity", Deps{Sink: sink, Table: testTable}, "identity client"},
		{"missing sink", Deps{Identity: identity, Table: testTable}, "warehouse sink"},
		{"missing table", Deps{Identity: identity, Sink: sink}, "destination table"},
		{"unknown policy", Deps{Identity: identity, Sink: sink, Table: testTable, FailurePolicy: "retry"}, "retry"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.deps)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	p, err := New(Deps{Identity: identity, Sink: sink, Table: testTable})
	require.NoError(t, err)
	assert.Equal(t, PolicyAbort, p.policy)
	assert.Equal(t, defaultMaxConcurrency, p.maxConcurrency)
}

func TestRun_AppWithTwoGroups(t *testing.T) {
	identity := new(testutil.MockIdentity)
	identity.On("FetchApplication", mock.Anything, "app123").Return(testutil.AppResult("app123", "okta_app", "My App"))
	identity.On("FetchGroupMemberships", mock.Anything, "app123").Return(testutil.MembershipsResult("g1", "g2"))
	identity.On("FetchGroupDetails", mock.Anything, "g1").Return(testutil.GroupResult("g1", "Eng", "Engineering"))
	identity.On("FetchGroupDetails", mock.Anything, "g2").Return(testutil.GroupResult("g2", "Sales", ""))

	sink := new(testutil.MockSink)
	sink.On("Append", mock.Anything, testTable, testutil.ScenarioBatch()).Return(nil).Once()

	notifier := new(testutil.MockNotifier)
	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(e models.SyncEvent) bool {
		return e.AppID == "app123" && e.AppName == "okta_app" && e.Rows == 2 &&
			e.Sink == "BigQuery" && e.Table == "my-project.okta.apps_groups" && !e.Degraded
	})).Return(nil).Once()

	p := newTestPipeline(t, identity, sink, notifier, PolicyAbort)
	result, err := p.Run(context.Background(), "app123")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Rows)
	assert.Equal(t, "My App", result.AppLabel)
	assert.Empty(t, result.Skipped)
	assert.Equal(t, "Successfully uploaded Okta app app123 and groups data to BigQuery", result.Message())
	assert.Contains(t, result.Message(), "app123")

	identity.AssertExpectations(t)
	sink.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestRun_ZeroGroupsAppendsEmptyBatch(t *testing.T) {
	identity := new(testutil.MockIdentity)
	identity.On("FetchApplication", mock.Anything, "app1").Return(testutil.AppResult("app1", "n", "l"))
	identity.On("FetchGroupMemberships", mock.Anything, "app1").Return(testutil.MembershipsResult())

	sink := new(testutil.MockSink)
	sink.On("Append", mock.Anything, testTable, models.Batch{}).Return(nil).Once()

	p := newTestPipeline(t, identity, sink, nil, PolicyAbort)
	result, err := p.Run(context.Background(), "app1")
	require.NoError(t, err)
	assert.Equal(t, 0, result.Rows)
	assert.False(t, result.Degraded)
	identity.AssertNotCalled(t, "FetchGroupDetails", mock.Anything, mock.Anything)
	sink.AssertExpectations(t)
}

func TestRun_BlankAppIDMakesNoCalls(t *testing.T) {
	for _, id := range []string{"", "   ", "\t\n"} {
		t.Run(fmt.Sprintf("%q", id), func(t *testing.T) {
			identity := new(testutil.MockIdentity)
			sink := new(testutil.MockSink)
			p := newTestPipeline(t, identity, sink, nil, PolicyAbort)

			result, err := p.Run(context.Background(), id)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, errors.IsType(err, errors.ErrTypeValidation))

			identity.AssertNotCalled(t, "FetchApplication", mock.Anything, mock.Anything)
			sink.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestRun_UnknownApp(t *testing.T) {
	identity := new(testutil.MockIdentity)
	identity.On("FetchApplication", mock.Anything, "missing-app").Return(okta.Result[models.Application]{
		Outcome: okta.OutcomeNotFound,
		Err:     errors.NotFoundError("application missing-app"),
	})
	sink := new(testutil.MockSink)
	notifier := new(testutil.MockNotifier)

	p := newTestPipeline(t, identity, sink, notifier, PolicyAbort)
	_, err := p.Run(context.Background(), "missing-app")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
	assert.Contains(t, err.Error(), "missing-app")

	identity.AssertNotCalled(t, "FetchGroupMemberships", mock.Anything, mock.Anything)
	sink.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestRun_AppLookupFailureIsInternal(t *testing.T) {
	for _, outcome := range []okta.Outcome{okta.OutcomeTransport, okta.OutcomeShape} {
		t.Run(outcome.String(), func(t *testing.T) {
			identity := new(testutil.MockIdentity)
			identity.On("FetchApplication", mock.Anything, "app1").Return(okta.Result[models.Application]{
				Outcome: outcome,
				Err:     errors.ConnectionError("dial failed", nil),
			})
			sink := new(testutil.MockSink)

			p := newTestPipeline(t, identity, sink, nil, PolicyAbort)
			_, err := p.Run(context.Background(), "app1")
			require.Error(t, err)
			assert.Equal(t, errors.ErrTypeInternal, errors.GetType(err))
			identity.AssertNotCalled(t, "FetchGroupMemberships", mock.Anything, mock.Anything)
			sink.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestRun_MembershipFailureDegradesToNoGroups(t *testing.T) {
	for _, outcome := range []okta.Outcome{okta.OutcomeNotFound, okta.OutcomeTransport, okta.OutcomeShape} {
		t.Run(outcome.String(), func(t *testing.T) {
			identity := new(testutil.MockIdentity)
			identity.On("FetchApplication", mock.Anything, "app1").Return(testutil.AppResult("app1", "n", "l"))
			identity.On("FetchGroupMemberships", mock.Anything, "app1").Return(okta.Result[[]string]{
				Outcome: outcome,
				Value:   []string{},
				Err:     stderrors.New("lookup failed"),
			})
			sink := new(testutil.MockSink)
			sink.On("Append", mock.Anything, testTable, models.Batch{}).Return(nil).Once()

			p := newTestPipeline(t, identity, sink, nil, PolicyAbort)
			result, err := p.Run(context.Background(), "app1")
			require.NoError(t, err)
			assert.True(t, result.Degraded)
			assert.Equal(t, 0, result.Rows)
			identity.AssertNotCalled(t, "FetchGroupDetails", mock.Anything, mock.Anything)
			sink.AssertExpectations(t)
		})
	}
}

func TestRun_AbortPolicyFailsOnGroupError(t *testing.T) {
	identity := new(testutil.MockIdentity)
	identity.On("FetchApplication", mock.Anything, "app1").Return(testutil.AppResult("app1", "n", "l"))
	identity.On("FetchGroupMemberships", mock.Anything, "app1").Return(testutil.MembershipsResult("g1", "g2"))
	identity.On("FetchGroupDetails", mock.Anything, "g1").Return(testutil.GroupResult("g1", "Eng", "")).Maybe()
	identity.On("FetchGroupDetails", mock.Anything, "g2").Return(testutil.FailedGroup(okta.OutcomeNotFound, "g2"))
	sink := new(testutil.MockSink)

	p := newTestPipeline(t, identity, sink, nil, PolicyAbort)
	_, err := p.Run(context.Background(), "app1")
	require.Error(t, err)
	assert.Equal(t, errors.ErrTypeInternal, errors.GetType(err))
	assert.Contains(t, err.Error(), "g2")
	sink.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_SkipPolicyDropsFailedGroups(t *testing.T) {
	identity := new(testutil.MockIdentity)
	identity.On("FetchApplication", mock.Anything, "app1").Return(testutil.AppResult("app1", "n", "l"))
	identity.On("FetchGroupMemberships", mock.Anything, "app1").Return(testutil.MembershipsResult("g1", "g2", "g3"))
	identity.On("FetchGroupDetails", mock.Anything, "g1").Return(testutil.GroupResult("g1", "Eng", ""))
	identity.On("FetchGroupDetails", mock.Anything, "g2").Return(testutil.FailedGroup(okta.OutcomeTransport, "g2"))
	identity.On("FetchGroupDetails", mock.Anything, "g3").Return(testutil.GroupResult("g3", "Ops", "Operations"))

	sink := new(testutil.MockSink)
	sink.On("Append", mock.Anything, testTable, mock.MatchedBy(func(b models.Batch) bool {
		return len(b) == 2 && b[0].GroupID == "g1" && b[1].GroupID == "g3"
	})).Return(nil).Once()

	p := newTestPipeline(t, identity, sink, nil, PolicySkip)
	result, err := p.Run(context.Background(), "app1")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Rows)
	assert.Equal(t, []string{"g2"}, result.Skipped)
	sink.AssertExpectations(t)
}

func TestRun_MalformedGroupIsFatal(t *testing.T) {
	identity := new(testutil.MockIdentity)
	identity.On("FetchApplication", mock.Anything, "app1").Return(testutil.AppResult("app1", "n", "l"))
	identity.On("FetchGroupMemberships", mock.Anything, "app1").Return(testutil.MembershipsResult("g1"))
	identity.On("FetchGroupDetails", mock.Anything, "g1").Return(okta.Result[models.Group]{
		Outcome: okta.OutcomeOK,
		Value:   models.Group{ID: "g1"},
	})
	sink := new(testutil.MockSink)

	p := newTestPipeline(t, identity, sink, nil, PolicySkip)
	_, err := p.Run(context.Background(), "app1")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeShape))
	sink.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_RowErrorsFailTheRun(t *testing.T) {
	identity := new(testutil.MockIdentity)
	identity.On("FetchApplication", mock.Anything, "app1").Return(testutil.AppResult("app1", "n", "l"))
	identity.On("FetchGroupMemberships", mock.Anything, "app1").Return(testutil.MembershipsResult("g1"))
	identity.On("FetchGroupDetails", mock.Anything, "g1").Return(testutil.GroupResult("g1", "Eng", ""))

	rowErrs := &warehouse.RowErrors{Table: testTable, Errors: []warehouse.RowError{{Index: 0, Reason: "invalid", Message: "no such field"}}}
	sink := new(testutil.MockSink)
	sink.On("Append", mock.Anything, testTable, mock.Anything).Return(rowErrs)
	notifier := new(testutil.MockNotifier)

	p := newTestPipeline(t, identity, sink, notifier, PolicyAbort)
	result, err := p.Run(context.Background(), "app1")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.IsType(err, errors.ErrTypePersistence))

	var got *warehouse.RowErrors
	require.True(t, stderrors.As(err, &got))
	assert.Equal(t, "no such field", got.Errors[0].Message)
	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestRun_NotifyFailureDoesNotFailRun(t *testing.T) {
	identity := new(testutil.MockIdentity)
	identity.On("FetchApplication", mock.Anything, "app1").Return(testutil.AppResult("app1", "n", "l"))
	identity.On("FetchGroupMemberships", mock.Anything, "app1").Return(testutil.MembershipsResult())
	sink := new(testutil.MockSink)
	sink.On("Append", mock.Anything, testTable, models.Batch{}).Return(nil)
	notifier := new(testutil.MockNotifier)
	notifier.On("Notify", mock.Anything, mock.Anything).Return(stderrors.New("broker down")).Once()

	p := newTestPipeline(t, identity, sink, notifier, PolicyAbort)
	result, err := p.Run(context.Background(), "app1")
	require.NoError(t, err)
	assert.NotNil(t, result)
	notifier.AssertExpectations(t)
}

// slowIdentity answers group lookups after a per-group delay and records the
// highest number of concurrent lookups.
type slowIdentity struct {
	ids      []string
	delays   map[string]time.Duration
	inFlight atomic.Int32
	peak     atomic.Int32
	mu       sync.Mutex
	calls    []string
}

func (s *slowIdentity) FetchApplication(_ context.Context, appID string) okta.Result[models.Application] {
	return testutil.AppResult(appID, "name", "label")
}

func (s *slowIdentity) FetchGroupMemberships(context.Context, string) okta.Result[[]string] {
	return testutil.MembershipsResult(s.ids...)
}

func (s *slowIdentity) FetchGroupDetails(ctx context.Context, groupID string) okta.Result[models.Group] {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		peak := s.peak.Load()
		if n <= peak || s.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	s.mu.Lock()
	s.calls = append(s.calls, groupID)
	s.mu.Unlock()

	select {
	case <-time.After(s.delays[groupID]):
	case <-ctx.Done():
		return okta.Result[models.Group]{Outcome: okta.OutcomeTransport, Err: ctx.Err()}
	}
	return testutil.GroupResult(groupID, "name-"+groupID, "")
}

func TestRun_FanOutPreservesOrderAndRespectsLimit(t *testing.T) {
	identity := &slowIdentity{
		ids: []string{"g1", "g2", "g3", "g4", "g5", "g6"},
		delays: map[string]time.Duration{
			"g1": 40 * time.Millisecond,
			"g2": 5 * time.Millisecond,
			"g3": 30 * time.Millisecond,
			"g4": 1 * time.Millisecond,
			"g5": 20 * time.Millisecond,
			"g6": 1 * time.Millisecond,
		},
	}

	var appended models.Batch
	sink := new(testutil.MockSink)
	sink.On("Append", mock.Anything, testTable, mock.Anything).
		Run(func(args mock.Arguments) { appended = args.Get(2).(models.Batch) }).
		Return(nil)

	p := newTestPipeline(t, identity, sink, nil, PolicyAbort)
	result, err := p.Run(context.Background(), "app1")
	require.NoError(t, err)
	assert.Equal(t, 6, result.Rows)

	require.Len(t, appended, 6)
	for i, id := range identity.ids {
		assert.Equal(t, id, appended[i].GroupID)
		assert.Equal(t, "app1", appended[i].AppID)
	}
	assert.LessOrEqual(t, identity.peak.Load(), int32(2))
	assert.Len(t, identity.calls, 6)
}

func TestRun_DuplicateMembershipsAreKept(t *testing.T) {
	identity := &slowIdentity{ids: []string{"g1", "g1"}, delays: map[string]time.Duration{}}

	sink := new(testutil.MockSink)
	sink.On("Append", mock.Anything, testTable, mock.MatchedBy(func(b models.Batch) bool {
		return len(b) == 2 && b[0] == b[1]
	})).Return(nil)

	p := newTestPipeline(t, identity, sink, nil, PolicyAbort)
	result, err := p.Run(context.Background(), "app1")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Rows)
}

func TestRun_CancelledContextStopsFanOut(t *testing.T) {
	identity := &slowIdentity{
		ids:    []string{"g1", "g2", "g3"},
		delays: map[string]time.Duration{"g1": time.Second, "g2": time.Second, "g3": time.Second},
	}
	sink := new(testutil.MockSink)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	p := newTestPipeline(t, identity, sink, nil, PolicySkip)
	_, err := p.Run(ctx, "app1")
	require.Error(t, err)
	assert.Equal(t, errors.ErrTypeInternal, errors.GetType(err))
	sink.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_RunTimeoutBoundsSlowGroups(t *testing.T) {
	identity := &slowIdentity{
		ids:    []string{"g1", "g2"},
		delays: map[string]time.Duration{"g1": time.Second, "g2": time.Second},
	}
	sink := new(testutil.MockSink)

	p, err := New(Deps{
		Identity:   identity,
		Sink:       sink,
		Table:      testTable,
		Logger:     logging.NewNopLogger(),
		RunTimeout: 30 * time.Millisecond,
	})
	require.NoError(t, err)

	started := time.Now()
	_, err = p.Run(context.Background(), "app1")
	require.Error(t, err)
	assert.Less(t, time.Since(started), 500*time.Millisecond)
	sink.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_RunTimeoutDuringMembershipsDoesNotPersist(t *testing.T) {
	identity := new(testutil.MockIdentity)
	identity.On("FetchApplication", mock.Anything, "app1").Return(testutil.AppResult("app1", "n", "l"))
	identity.On("FetchGroupMemberships", mock.Anything, "app1").
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(okta.Result[[]string]{Outcome: okta.OutcomeTransport, Value: []string{}, Err: context.DeadlineExceeded})
	sink := new(testutil.MockSink)

	p, err := New(Deps{
		Identity:   identity,
		Sink:       sink,
		Table:      testTable,
		Logger:     logging.NewNopLogger(),
		RunTimeout: 30 * time.Millisecond,
	})
	require.NoError(t, err)

	result, err := p.Run(context.Background(), "app1")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.IsType(err, errors.ErrTypeTimeout), "got %v", err)
	sink.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunOutcome(t *testing.T) {
	assert.Equal(t, "success", runOutcome(nil))
	assert.Equal(t, "bad_request", runOutcome(errors.ValidationError("x")))
	assert.Equal(t, "not_found", runOutcome(errors.NotFoundError("x")))
	assert.Equal(t, "failure", runOutcome(errors.PersistenceError("x", nil)))
}
