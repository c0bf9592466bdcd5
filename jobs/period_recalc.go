package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/himanshudhami/InvoiceX-sub001/internal/jobs"
)

// PeriodRecalculator rebuilds period balance rows.
type PeriodRecalculator interface {
	Recalculate(ctx context.Context, companyID int64) (int, error)
}

// PeriodRecalcJob rebuilds account_period_balances on demand or on a schedule.
type PeriodRecalcJob struct {
	Service PeriodRecalculator
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewPeriodRecalcJob constructs the job handler.
func NewPeriodRecalcJob(service PeriodRecalculator, logger *slog.Logger, metrics *jobmetrics.Metrics) *PeriodRecalcJob {
	return &PeriodRecalcJob{Service: service, Logger: logger, Metrics: metrics}
}

// Handle executes one recalculation.
func (j *PeriodRecalcJob) Handle(ctx context.Context, task *asynq.Task) (resultErr error) {
	if j == nil || j.Service == nil {
		return errors.New("period recalc: dependencies not configured")
	}
	payload, err := decodeCompany(task)
	if err != nil {
		return err
	}

	tracker := j.Metrics.Track(TaskPeriodRecalc)
	defer func() { resultErr = tracker.End(resultErr) }()

	rows, err := j.Service.Recalculate(ctx, payload.CompanyID)
	if err != nil {
		j.log().Error("period recalc failed", slog.Int64("company_id", payload.CompanyID), slog.Any("error", err))
		return err
	}
	j.Metrics.SetRebuiltRows(payload.CompanyID, rows)
	j.log().Info("period recalc completed", slog.Int64("company_id", payload.CompanyID), slog.Int("rows", rows))
	return nil
}

func (j *PeriodRecalcJob) log() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskPeriodRecalc))
	}
	return slog.Default().With(slog.String("job", TaskPeriodRecalc))
}
