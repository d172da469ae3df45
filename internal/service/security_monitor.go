package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/staff-account-service/internal/domain"
	"github.com/spec-kit/staff-account-service/internal/events"
	"github.com/spec-kit/staff-account-service/internal/observability"
)

// SecurityMonitor audits security relevant domain events through logs and
// metrics.
type SecurityMonitor struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewSecurityMonitor creates the monitor.
func NewSecurityMonitor(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *SecurityMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SecurityMonitor{
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
	}
}

// RegisterHandlers subscribes to events.
func (m *SecurityMonitor) RegisterHandlers() {
	if m.dispatcher == nil {
		return
	}
	m.dispatcher.Subscribe(domain.EventFailedLoginRecorded, m.handleFailedLogin)
	m.dispatcher.Subscribe(domain.EventAccountLocked, m.handleAccountLocked)
	m.dispatcher.Subscribe(domain.EventRefreshTokenReuseDetected, m.handleReuseDetected)
	m.dispatcher.Subscribe(domain.EventRefreshTokenRevoked, m.handleTokenRevoked)
	m.dispatcher.Subscribe(domain.EventAccountDisabled, m.handleAudit)
	m.dispatcher.Subscribe(domain.EventAccountEnabled, m.handleAudit)
	m.dispatcher.Subscribe(domain.EventPasswordReset, m.handleAudit)
	m.dispatcher.Subscribe(domain.EventStaffAccountRegistered, m.handleAudit)
}

func (m *SecurityMonitor) handleFailedLogin(_ context.Context, event domain.Event) error {
	e, ok := event.(domain.FailedLoginRecorded)
	if !ok {
		return nil
	}
	m.metrics.RecordSecurityEvent(event.EventName(), 1)
	m.logger.Info("failed login recorded",
		zap.String("staff_account_id", e.StaffAccountID.String()),
		zap.Int("failed_login_attempts", e.FailedLoginAttempts))
	return nil
}

func (m *SecurityMonitor) handleAccountLocked(_ context.Context, event domain.Event) error {
	e, ok := event.(domain.AccountLocked)
	if !ok {
		return nil
	}
	m.metrics.RecordSecurityEvent(event.EventName(), 1)
	m.logger.Warn("staff account locked",
		zap.String("staff_account_id", e.StaffAccountID.String()),
		zap.Time("locked_until", e.LockedUntil))
	return nil
}

func (m *SecurityMonitor) handleReuseDetected(_ context.Context, event domain.Event) error {
	e, ok := event.(domain.RefreshTokenReuseDetected)
	if !ok {
		return nil
	}
	m.metrics.RecordSecurityEvent(event.EventName(), 1)
	m.logger.Warn("refresh token replayed; sessions revoked",
		zap.String("staff_account_id", e.StaffAccountID.String()),
		zap.String("refresh_token_id", e.RefreshTokenID.String()),
		zap.Int("revoked_count", e.RevokedCount))
	return nil
}

func (m *SecurityMonitor) handleTokenRevoked(_ context.Context, event domain.Event) error {
	m.metrics.RecordSecurityEvent(event.EventName(), 1)
	return nil
}

func (m *SecurityMonitor) handleAudit(_ context.Context, event domain.Event) error {
	m.logger.Info("staff account audit",
		zap.String("event", event.EventName()),
		zap.String("staff_account_id", event.AggregateID()),
		zap.Time("at", event.OccurredAt()))
	return nil
}
