package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/staff-account-service/internal/domain"
	"github.com/spec-kit/staff-account-service/internal/events"
	"github.com/spec-kit/staff-account-service/internal/observability"
	"github.com/spec-kit/staff-account-service/internal/repository"
	"github.com/spec-kit/staff-account-service/pkg/util/errorutil"
)

// committedFailure is returned from a command body whose changes must be
// committed even though the command fails, e.g. a recorded failed login.
type committedFailure struct {
	err *errorutil.AppError
}

func (f *committedFailure) Error() string { return f.err.Error() }
func (f *committedFailure) Unwrap() error { return f.err }

func failAfterCommit(err *errorutil.AppError) error {
	return &committedFailure{err: err}
}

type eventSource interface {
	PullEvents() []domain.Event
}

// commandRunner executes one command inside one unit of work.
type commandRunner struct {
	uow     repository.UnitOfWork
	bus     events.Bus
	logger  *zap.Logger
	metrics *observability.Metrics
}

func newCommandRunner(uow repository.UnitOfWork, bus events.Bus, logger *zap.Logger, metrics *observability.Metrics) *commandRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bus == nil {
		bus = events.Fanout(nil)
	}
	return &commandRunner{uow: uow, bus: bus, logger: logger, metrics: metrics}
}

// execute begins a unit of work, runs fn with the transactional context and
// commits on success. The deferred rollback is a no-op after commit.
func (r *commandRunner) execute(ctx context.Context, command string, fn func(ctx context.Context) error) (err error) {
	defer func() { r.observe(command, err) }()

	txCtx, tx, err := r.uow.Begin(ctx)
	if err != nil {
		return errorutil.NewInternalError(fmt.Errorf("begin unit of work: %w", err))
	}
	defer func() {
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			r.logger.Error("rollback failed", zap.String("command", command), zap.Error(rbErr))
		}
	}()

	var committed *committedFailure
	if fnErr := fn(txCtx); fnErr != nil {
		if !errors.As(fnErr, &committed) {
			return toAppError(fnErr)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return mapRepositoryError(fmt.Errorf("commit: %w", err), "")
	}
	if committed != nil {
		return committed.err
	}
	return nil
}

// publish drains the aggregates and hands their events to the bus. It runs
// after persistence and before commit, so a failure aborts the unit of work.
func (r *commandRunner) publish(ctx context.Context, sources ...eventSource) error {
	return publishDrained(ctx, r.bus, sources...)
}

func publishDrained(ctx context.Context, bus events.Bus, sources ...eventSource) error {
	var pending []domain.Event
	for _, source := range sources {
		pending = append(pending, source.PullEvents()...)
	}
	return publishEvents(ctx, bus, pending...)
}

func publishEvents(ctx context.Context, bus events.Bus, pending ...domain.Event) error {
	if len(pending) == 0 {
		return nil
	}
	if err := bus.PublishAll(ctx, pending); err != nil {
		return errorutil.NewInternalError(fmt.Errorf("publish events: %w", err))
	}
	return nil
}

func (r *commandRunner) observe(command string, err error) {
	if err == nil {
		r.metrics.RecordCommand(command, "ok")
		return
	}
	appErr := errorutil.ToAppError(err)
	r.metrics.RecordCommand(command, appErr.Code)

	fields := []zap.Field{
		zap.String("command", command),
		zap.String("code", appErr.Code),
		zap.NamedError("cause", appErr.Err),
	}
	switch {
	case appErr.HTTPStatus >= 500:
		r.logger.Error("command failed", fields...)
	case appErr.IsSecurity():
		r.logger.Warn("security check failed", fields...)
	default:
		r.logger.Info("command rejected", fields...)
	}
}
