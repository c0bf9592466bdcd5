package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/himanshudhami/InvoiceX-sub001/internal/accounting/reports"
	jobmetrics "github.com/himanshudhami/InvoiceX-sub001/internal/jobs"
)

// IntegrityChecker compares stored balances with posted lines.
type IntegrityChecker interface {
	CheckIntegrity(ctx context.Context, companyID int64) (reports.IntegrityReport, error)
}

// GLIntegrityJob runs the ledger integrity check and reports drift.
type GLIntegrityJob struct {
	Service IntegrityChecker
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	// FailOnDrift makes drift a job failure so asynq keeps it in the retry set.
	FailOnDrift bool
}

// NewGLIntegrityJob constructs the job handler.
func NewGLIntegrityJob(service IntegrityChecker, logger *slog.Logger, metrics *jobmetrics.Metrics) *GLIntegrityJob {
	return &GLIntegrityJob{Service: service, Logger: logger, Metrics: metrics}
}

// ErrDrift is returned when FailOnDrift is set and drift was found.
var ErrDrift = errors.New("jobs: ledger drift detected")

// Handle executes one integrity check.
func (j *GLIntegrityJob) Handle(ctx context.Context, task *asynq.Task) (resultErr error) {
	if j == nil || j.Service == nil {
		return errors.New("gl integrity: dependencies not configured")
	}
	payload, err := decodeCompany(task)
	if err != nil {
		return err
	}

	tracker := j.Metrics.Track(TaskIntegrityCheck)
	defer func() { resultErr = tracker.End(resultErr) }()

	report, err := j.Service.CheckIntegrity(ctx, payload.CompanyID)
	if err != nil {
		j.log().Error("integrity check failed", slog.Int64("company_id", payload.CompanyID), slog.Any("error", err))
		return err
	}

	byScope := make(map[string]int)
	for _, d := range report.Drifts {
		byScope[d.Scope]++
		j.log().Warn("ledger drift",
			slog.String("scope", d.Scope),
			slog.Int64("account_id", d.AccountID),
			slog.String("account_code", d.AccountCode),
			slog.String("key", d.Key),
			slog.String("expected", d.Expected.String()),
			slog.String("actual", d.Actual.String()))
	}
	for scope, n := range byScope {
		j.Metrics.AddDrifts(scope, payload.CompanyID, n)
	}

	if report.OK() {
		j.log().Info("ledger integrity ok", slog.Int64("company_id", payload.CompanyID))
		return nil
	}
	if j.FailOnDrift {
		return fmt.Errorf("%w: %d mismatches for company %d: %w", ErrDrift, len(report.Drifts), payload.CompanyID, asynq.SkipRetry)
	}
	return nil
}

func (j *GLIntegrityJob) log() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskIntegrityCheck))
	}
	return slog.Default().With(slog.String("job", TaskIntegrityCheck))
}
