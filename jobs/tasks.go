package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPeriodRecalc rebuilds account_period_balances from posted lines.
	TaskPeriodRecalc = "ledger:periods:recalc"
	// TaskIntegrityCheck compares stored balances with posted lines.
	TaskIntegrityCheck = "ledger:integrity:check"
)

// CompanyPayload scopes a ledger job. CompanyID zero means every company.
type CompanyPayload struct {
	CompanyID int64 `json:"company_id"`
}

func newCompanyTask(taskType string, companyID int64) (*asynq.Task, error) {
	if companyID < 0 {
		return nil, fmt.Errorf("jobs: %s: negative company id %d", taskType, companyID)
	}
	body, err := json.Marshal(CompanyPayload{CompanyID: companyID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, body, asynq.Queue(QueueDefault)), nil
}

// NewPeriodRecalcTask creates a recalculation task for companyID.
func NewPeriodRecalcTask(companyID int64) (*asynq.Task, error) {
	return newCompanyTask(TaskPeriodRecalc, companyID)
}

// NewIntegrityCheckTask creates an integrity check task for companyID.
func NewIntegrityCheckTask(companyID int64) (*asynq.Task, error) {
	return newCompanyTask(TaskIntegrityCheck, companyID)
}

func decodeCompany(task *asynq.Task) (CompanyPayload, error) {
	var payload CompanyPayload
	if len(task.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("jobs: %s payload: %v: %w", task.Type(), err, asynq.SkipRetry)
	}
	if payload.CompanyID < 0 {
		return payload, fmt.Errorf("jobs: %s: negative company id: %w", task.Type(), asynq.SkipRetry)
	}
	return payload, nil
}

// TaskFor builds a task by type name, as used by the operator CLI.
func TaskFor(taskType string, companyID int64) (*asynq.Task, error) {
	switch taskType {
	case TaskPeriodRecalc:
		return NewPeriodRecalcTask(companyID)
	case TaskIntegrityCheck:
		return NewIntegrityCheckTask(companyID)
	}
	return nil, fmt.Errorf("jobs: unsupported task %q", taskType)
}
