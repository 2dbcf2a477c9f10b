// Package pipeline runs one application sync: it fetches the application and its
// groups from the identity provider, joins them into flat records, appends the
// records to the warehouse and announces the result.
package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"app-groups-sync/internal/common/errors"
	"app-groups-sync/internal/common/logging"
	"app-groups-sync/internal/join"
	"app-groups-sync/internal/metrics"
	"app-groups-sync/internal/models"
	"app-groups-sync/internal/okta"
	"app-groups-sync/internal/warehouse"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Stage names the step a run is in.
type Stage string

const (
	StageValidatingInput     Stage = "validating_input"
	StageFetchingApp         Stage = "fetching_app"
	StageFetchingMemberships Stage = "fetching_memberships"
	StageResolvingGroups     Stage = "resolving_groups"
	StageJoining             Stage = "joining"
	StagePersisting          Stage = "persisting"
	StageResponding          Stage = "responding"
)

// FailurePolicy decides what a failed group lookup does to the run.
type FailurePolicy string

const (
	// PolicyAbort fails the run on the first group that cannot be fetched
	PolicyAbort FailurePolicy = "abort"
	// PolicySkip drops the group and keeps the rest
	PolicySkip FailurePolicy = "skip"
)

const defaultMaxConcurrency = 4

// Identity is the subset of the identity provider client a run needs.
type Identity interface {
	FetchApplication(ctx context.Context, appID string) okta.Result[models.Application]
	FetchGroupMemberships(ctx context.Context, appID string) okta.Result[[]string]
	FetchGroupDetails(ctx context.Context, groupID string) okta.Result[models.Group]
}

// Notifier announces successful runs.
type Notifier interface {
	Notify(ctx context.Context, event models.SyncEvent) error
}

// Deps are the collaborators of a Pipeline. Notifier, Logger and Tracer are optional.
type Deps struct {
	Identity       Identity
	Sink           warehouse.Sink
	Table          warehouse.TableRef
	Notifier       Notifier
	Logger         logging.Logger
	Tracer         trace.Tracer
	MaxConcurrency int
	FailurePolicy  FailurePolicy
	// RunTimeout bounds a whole run. Zero leaves only the caller's deadline.
	RunTimeout time.Duration
}

// Pipeline is safe for concurrent use; runs share nothing but their collaborators.
type Pipeline struct {
	identity       Identity
	sink           warehouse.Sink
	table          warehouse.TableRef
	notifier       Notifier
	logger         logging.Logger
	tracer         trace.Tracer
	maxConcurrency int
	policy         FailurePolicy
	runTimeout     time.Duration
}

// Result describes a successful run.
type Result struct {
	AppID    string   `json:"app_id"`
	AppLabel string   `json:"app_label"`
	Rows     int      `json:"rows"`
	Skipped  []string `json:"skipped_groups,omitempty"`
	Degraded bool     `json:"memberships_degraded"`
	Table    string   `json:"table"`
	Sink     string   `json:"sink"`
}

// Message is the confirmation returned to the caller.
func (r *Result) Message() string {
	return fmt.Sprintf("Successfully uploaded Okta app %s and groups data to %s", r.AppID, r.Sink)
}

// New checks deps and fills in defaults.
func New(deps Deps) (*Pipeline, error) {
	if deps.Identity == nil {
		return nil, errors.ConfigError("pipeline requires an identity client")
	}
	if deps.Sink == nil {
		return nil, errors.ConfigError("pipeline requires a warehouse sink")
	}
	if deps.Table.Table == "" {
		return nil, errors.ConfigError("pipeline requires a destination table")
	}

	policy := deps.FailurePolicy
	switch policy {
	case "":
		policy = PolicyAbort
	case PolicyAbort, PolicySkip:
	default:
		return nil, errors.ConfigError(fmt.Sprintf("unknown group failure policy %q", policy))
	}

	maxConcurrency := deps.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = defaultMaxConcurrency
	}

	logger := deps.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	tracer := deps.Tracer
	if tracer == nil {
		tracer = otel.Tracer("app-groups-sync/pipeline")
	}

	return &Pipeline{
		identity:       deps.Identity,
		sink:           deps.Sink,
		table:          deps.Table,
		notifier:       deps.Notifier,
		logger:         logger.WithFields(logging.Field{Key: "component", Value: "pipeline"}),
		tracer:         tracer,
		maxConcurrency: maxConcurrency,
		policy:         policy,
		runTimeout:     deps.RunTimeout,
	}, nil
}

// Run syncs one application. Errors are *errors.AppError values: validation for a
// blank id, not_found for an unknown application, anything else is an internal
// failure whose detail is meant for logs only.
func (p *Pipeline) Run(ctx context.Context, appID string) (result *Result, err error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.Run", trace.WithAttributes(
		attribute.String("app_id", appID),
	))
	defer span.End()

	logger := p.logger.WithContext(ctx).WithFields(logging.Field{Key: "app_id", Value: appID})
	started := time.Now()

	defer func() {
		outcome := runOutcome(err)
		metrics.SyncRunsTotal.WithLabelValues(outcome).Inc()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
			return
		}
		logger.Info("Sync completed",
			logging.Field{Key: "rows", Value: result.Rows},
			logging.Field{Key: "skipped_groups", Value: len(result.Skipped)},
			logging.Field{Key: "degraded", Value: result.Degraded},
			logging.Field{Key: "duration", Value: time.Since(started)},
		)
	}()

	// validating_input
	if strings.TrimSpace(appID) == "" {
		return nil, errors.ValidationError("app_id is required").WithContext("stage", string(StageValidatingInput))
	}

	if p.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.runTimeout)
		defer cancel()
	}

	// fetching_app
	app, err := p.fetchApplication(ctx, logger, appID)
	if err != nil {
		return nil, err
	}

	// fetching_memberships
	groupIDs, degraded := p.fetchMemberships(ctx, logger, appID)

	// resolving_groups
	groups, skipped, err := p.resolveGroups(ctx, logger, groupIDs)
	if err != nil {
		return nil, err
	}

	// joining
	timer := metrics.NewTimer()
	batch, err := join.Join(app, groups)
	timer.ObserveDurationVec(metrics.StageDuration, string(StageJoining))
	if err != nil {
		logger.Error("Join failed", err)
		return nil, fmt.Errorf("%s: %w", StageJoining, err)
	}

	// persisting
	// Degraded lookups can hide an expired run; never persist what it collected.
	if ctxErr := ctx.Err(); ctxErr != nil {
		err := errors.TimeoutError("sync run", ctxErr).WithContext("stage", string(StagePersisting))
		logger.Error("Sync ran out of time before persisting", err)
		return nil, err
	}
	if err := p.persist(ctx, logger, batch); err != nil {
		return nil, err
	}

	// responding
	result = &Result{
		AppID:    appID,
		AppLabel: app.Label,
		Rows:     batch.Len(),
		Skipped:  skipped,
		Degraded: degraded,
		Table:    p.table.String(),
		Sink:     p.sink.Name(),
	}
	p.notify(ctx, logger, app, result)
	return result, nil
}

func (p *Pipeline) fetchApplication(ctx context.Context, logger logging.Logger, appID string) (models.Application, error) {
	ctx, end := p.startStage(ctx, StageFetchingApp)
	res := p.identity.FetchApplication(ctx, appID)
	countCall("application", res.Outcome)

	switch res.Outcome {
	case okta.OutcomeOK:
		end(nil)
		return res.Value, nil
	case okta.OutcomeNotFound:
		err := errors.NotFoundError(fmt.Sprintf("application %s", appID)).
			WithContext("app_id", appID).
			WithContext("stage", string(StageFetchingApp))
		end(err)
		logger.Info("Application not found")
		return models.Application{}, err
	default:
		err := errors.InternalError("failed to fetch application", res.Err).
			WithContext("outcome", res.Outcome.String()).
			WithContext("stage", string(StageFetchingApp))
		end(err)
		logger.Error("Application lookup failed", err)
		return models.Application{}, err
	}
}

// fetchMemberships never fails the run: any failed lookup degrades to an empty list.
func (p *Pipeline) fetchMemberships(ctx context.Context, logger logging.Logger, appID string) ([]string, bool) {
	ctx, end := p.startStage(ctx, StageFetchingMemberships)
	res := p.identity.FetchGroupMemberships(ctx, appID)
	countCall("memberships", res.Outcome)

	if res.OK() {
		end(nil)
		return res.Value, false
	}

	err := errors.DegradedError("group memberships unavailable, continuing without groups", res.Err).
		WithContext("outcome", res.Outcome.String())
	end(nil)
	metrics.DegradedMembershipsTotal.WithLabelValues(res.Outcome.String()).Inc()
	logger.Warn("Group memberships unavailable, continuing with no groups",
		logging.Field{Key: "outcome", Value: res.Outcome.String()},
		logging.Field{Key: "error", Value: err.Error()},
	)
	return []string{}, true
}

// resolveGroups fetches group details with at most maxConcurrency calls in flight.
// Results are stored by index so the output follows the membership order.
func (p *Pipeline) resolveGroups(ctx context.Context, logger logging.Logger, ids []string) ([]models.Group, []string, error) {
	ctx, end := p.startStage(ctx, StageResolvingGroups)

	results := make([]okta.Result[models.Group], len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxConcurrency)

	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			res := p.identity.FetchGroupDetails(gctx, id)
			countCall("group", res.Outcome)
			results[i] = res

			if !res.OK() && p.policy == PolicyAbort {
				return fmt.Errorf("group %s: %s: %w", id, res.Outcome, res.Err)
			}
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		// Under skip a cancelled caller shows up only as failed lookups.
		err = ctx.Err()
	}
	if err != nil {
		appErr := errors.InternalError("failed to resolve group details", err).
			WithContext("stage", string(StageResolvingGroups))
		end(appErr)
		logger.Error("Group resolution aborted", err, logging.Field{Key: "groups", Value: len(ids)})
		return nil, nil, appErr
	}

	groups := make([]models.Group, 0, len(ids))
	var skipped []string
	for i, res := range results {
		if res.OK() {
			groups = append(groups, res.Value)
			continue
		}
		skipped = append(skipped, ids[i])
		metrics.SkippedGroupsTotal.WithLabelValues(res.Outcome.String()).Inc()
		logger.Warn("Skipping group that could not be fetched",
			logging.Field{Key: "group_id", Value: ids[i]},
			logging.Field{Key: "outcome", Value: res.Outcome.String()},
		)
	}

	end(nil)
	return groups, skipped, nil
}

func (p *Pipeline) persist(ctx context.Context, logger logging.Logger, batch models.Batch) error {
	ctx, end := p.startStage(ctx, StagePersisting)
	sinkName := p.sink.Name()

	err := p.sink.Append(ctx, p.table, batch)
	if err == nil {
		end(nil)
		metrics.RowsAppendedTotal.WithLabelValues(sinkName).Add(float64(batch.Len()))
		return nil
	}

	kind := "persistence"
	var rowErrs *warehouse.RowErrors
	if stderrors.As(err, &rowErrs) {
		kind = "row_errors"
	}
	metrics.AppendFailuresTotal.WithLabelValues(sinkName, kind).Inc()

	appErr := errors.PersistenceError(fmt.Sprintf("failed to append %d row(s) to %s", batch.Len(), p.table), err).
		WithContext("sink", sinkName).
		WithContext("stage", string(StagePersisting))
	end(appErr)
	logger.Error("Warehouse append failed", err,
		logging.Field{Key: "sink", Value: sinkName},
		logging.Field{Key: "table", Value: p.table.String()},
		logging.Field{Key: "rows", Value: batch.Len()},
		logging.Field{Key: "kind", Value: kind},
	)
	return appErr
}

// notify publishes the completion event. Failures are logged and never change the result.
func (p *Pipeline) notify(ctx context.Context, logger logging.Logger, app models.Application, result *Result) {
	if p.notifier == nil {
		return
	}

	event := models.SyncEvent{
		AppID:    result.AppID,
		AppName:  app.Name,
		AppLabel: result.AppLabel,
		Rows:     result.Rows,
		Skipped:  result.Skipped,
		Degraded: result.Degraded,
		Sink:     result.Sink,
		Table:    result.Table,
	}
	if err := p.notifier.Notify(ctx, event); err != nil {
		logger.Warn("Failed to publish sync event", logging.Field{Key: "error", Value: err.Error()})
	}
}

// startStage opens a span and a duration timer for stage. The returned func ends both.
func (p *Pipeline) startStage(ctx context.Context, stage Stage) (context.Context, func(error)) {
	ctx, span := p.tracer.Start(ctx, string(stage))
	timer := metrics.NewTimer()

	return ctx, func(err error) {
		timer.ObserveDurationVec(metrics.StageDuration, string(stage))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

func countCall(operation string, outcome okta.Outcome) {
	metrics.OktaCallsTotal.WithLabelValues(operation, outcome.String()).Inc()
}

func runOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.IsType(err, errors.ErrTypeValidation):
		return "bad_request"
	case errors.IsType(err, errors.ErrTypeNotFound):
		return "not_found"
	default:
		return "failure"
	}
}
